package volume

// PackedGrid is the single-channel R×R×R grid delivered to the volumetric
// renderer, flattened as x + y*R + z*R*R.
type PackedGrid struct {
	R      int
	Values []float32
}

// NewPackedGrid allocates a zeroed packed grid.
func NewPackedGrid(r int) (*PackedGrid, error) {
	if err := ValidateResolution(r); err != nil {
		return nil, err
	}
	values, err := allocFloats("packed grid", r*r*r)
	if err != nil {
		return nil, err
	}
	return &PackedGrid{R: r, Values: values}, nil
}

// Len returns the number of voxels, R³.
func (g *PackedGrid) Len() int {
	return g.R * g.R * g.R
}

// Index returns the flat offset of voxel (x, y, z).
func (g *PackedGrid) Index(x, y, z int) int {
	return x + y*g.R + z*g.R*g.R
}

// At returns the value at (x, y, z).
func (g *PackedGrid) At(x, y, z int) float32 {
	return g.Values[g.Index(x, y, z)]
}

// Validate checks the extent and that every value lies in [0, 1].
func (g *PackedGrid) Validate() error {
	if g == nil {
		return IndexError("packed grid", "nil grid")
	}
	if len(g.Values) != g.Len() {
		return IndexError("packed grid", "have %d values, want %d", len(g.Values), g.Len())
	}
	for i, v := range g.Values {
		if !(v >= 0 && v <= 1) {
			return IndexError("packed grid", "value %v at %d outside [0,1]", v, i)
		}
	}
	return nil
}
