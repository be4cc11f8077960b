package bake

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/densitybaker/pkg/volume"
)

// Reassemble packs r layers back into a single-channel grid. Layer i must
// hold depth i. Texel (x, y) of a layer is read from offset y + x*R and
// written to x + y*R + z*R*R.
//
// Values are copied as recovered, without clamping.
func Reassemble(ctx context.Context, layers []*volume.Layer, r, workers int) (*volume.PackedGrid, error) {
	if err := volume.ValidateResolution(r); err != nil {
		return nil, err
	}
	if len(layers) != r {
		return nil, volume.IndexError("reassemble", "have %d layers, want %d", len(layers), r)
	}
	for i, l := range layers {
		if err := checkLayer(l, i, r); err != nil {
			return nil, err
		}
	}

	grid, err := volume.NewPackedGrid(r)
	if err != nil {
		return nil, err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(workers))
	for z, layer := range layers {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return packLayer(grid, layer, z)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return grid, nil
}

func checkLayer(l *volume.Layer, i, r int) error {
	switch {
	case l == nil:
		return volume.IndexError("reassemble", "layer %d missing", i)
	case l.Z != i:
		return volume.IndexError("reassemble", "layer %d holds depth %d", i, l.Z)
	case l.R != r || len(l.Pix) != r*r:
		return volume.IndexError("reassemble", "layer %d extent %d (%d texels), want %d", i, l.R, len(l.Pix), r)
	case l.Format != volume.LayerFormatRGBDuplicated:
		return volume.IndexError("reassemble", "layer %d has unsupported format %s", i, l.Format)
	}
	return nil
}

// packLayer writes one depth of the grid. Each z owns a disjoint range of
// grid.Values.
func packLayer(grid *volume.PackedGrid, layer *volume.Layer, z int) error {
	r := grid.R
	n := len(grid.Values)
	for y := 0; y < r; y++ {
		for x := 0; x < r; x++ {
			idx := x + y*r + z*r*r
			if idx < 0 || idx >= n {
				return volume.IndexError("reassemble", "packed index %d outside [0,%d)", idx, n)
			}
			grid.Values[idx] = average(layer.Pix[y+x*r])
		}
	}
	return nil
}

// average recovers the density from a duplicated-channel texel. The sum is
// taken in float64 so that three equal float32 channels average back to the
// exact input.
func average(t volume.Texel) float32 {
	return float32((float64(t.R) + float64(t.G) + float64(t.B)) / 3)
}
