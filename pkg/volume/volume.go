// Package volume defines the buffers a density bake moves through: the dense
// synthesis volume, the per-depth layers read back from it, and the packed
// grid handed to the renderer.
package volume

import "fmt"

// DefaultResolution is the edge length used by the reference configuration.
const DefaultResolution = 32

// MaxResolution caps the edge length so that a bake never attempts an
// allocation the process cannot satisfy.
const MaxResolution = 256

// ValidateResolution checks that r describes a usable r×r×r cube.
func ValidateResolution(r int) error {
	if r <= 0 {
		return ConfigError("resolution", "must be positive, got %d", r)
	}
	if r > MaxResolution {
		return &BakeError{
			Kind: KindAllocation,
			Op:   "resolution",
			Err:  fmt.Errorf("%d exceeds maximum %d", r, MaxResolution),
		}
	}
	return nil
}

// allocFloats allocates n float32 values, reporting failure as a
// KindAllocation error instead of a panic.
func allocFloats(op string, n int) (buf []float32, err error) {
	defer func() {
		if r := recover(); r != nil {
			buf = nil
			err = &BakeError{Kind: KindAllocation, Op: op, Err: fmt.Errorf("%v", r)}
		}
	}()
	return make([]float32, n), nil
}

// Dense is the synthesis volume: one scalar density per voxel, flattened as
// x + y*R + z*R*R.
type Dense struct {
	R    int
	Data []float32
}

// NewDense allocates a zeroed R×R×R volume.
func NewDense(r int) (*Dense, error) {
	if err := ValidateResolution(r); err != nil {
		return nil, err
	}
	data, err := allocFloats("dense volume", r*r*r)
	if err != nil {
		return nil, err
	}
	return &Dense{R: r, Data: data}, nil
}

// Index returns the flat offset of voxel (x, y, z).
func (d *Dense) Index(x, y, z int) int {
	return x + y*d.R + z*d.R*d.R
}

// At returns the density at (x, y, z).
func (d *Dense) At(x, y, z int) float32 {
	return d.Data[d.Index(x, y, z)]
}

// Set stores the density at (x, y, z).
func (d *Dense) Set(x, y, z int, v float32) {
	d.Data[d.Index(x, y, z)] = v
}

// Slab returns the R*R values of depth z, aliasing the volume storage.
func (d *Dense) Slab(z int) []float32 {
	n := d.R * d.R
	return d.Data[z*n : (z+1)*n]
}
