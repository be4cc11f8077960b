package volume

import "fmt"

// Texel is one RGBA float texel.
type Texel struct {
	R, G, B, A float32
}

// LayerFormat describes how a layer encodes the scalar density in its texels.
type LayerFormat uint8

const (
	// LayerFormatRGBDuplicated stores the same density in R, G and B with
	// A = 1. Reassembly recovers the density as (R+G+B)/3, which is only
	// lossless because the three channels are identical copies.
	LayerFormatRGBDuplicated LayerFormat = iota + 1
)

// String returns the format name.
func (f LayerFormat) String() string {
	switch f {
	case LayerFormatRGBDuplicated:
		return "rgb-duplicated"
	default:
		return fmt.Sprintf("LayerFormat(%d)", f)
	}
}

// Layer is one fixed-depth cross section of a Dense volume in readback
// layout. Pixel (u, v) lives at flat offset v + u*R: the in-plane axes are
// transposed relative to the packed grid's x/y.
type Layer struct {
	Z      int
	R      int
	Format LayerFormat
	Pix    []Texel
}

// NewLayer allocates a layer for depth z of an R×R×R volume.
func NewLayer(z, r int) (layer *Layer, err error) {
	if err := ValidateResolution(r); err != nil {
		return nil, err
	}
	if z < 0 || z >= r {
		return nil, IndexError("layer", "depth %d outside [0,%d)", z, r)
	}
	defer func() {
		if rec := recover(); rec != nil {
			layer = nil
			err = &BakeError{Kind: KindAllocation, Op: "layer", Err: fmt.Errorf("%v", rec)}
		}
	}()
	return &Layer{
		Z:      z,
		R:      r,
		Format: LayerFormatRGBDuplicated,
		Pix:    make([]Texel, r*r),
	}, nil
}

// Offset returns the flat pixel offset of (u, v).
func (l *Layer) Offset(u, v int) int {
	return v + u*l.R
}

// At returns the texel at (u, v).
func (l *Layer) At(u, v int) Texel {
	return l.Pix[l.Offset(u, v)]
}

// Set stores the texel at (u, v).
func (l *Layer) Set(u, v int, t Texel) {
	l.Pix[l.Offset(u, v)] = t
}
