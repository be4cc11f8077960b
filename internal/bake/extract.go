package bake

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/densitybaker/pkg/volume"
)

// ExtractLayers reads every depth of vol into its own layer. Layers are
// extracted in parallel and returned ordered by Z; each depth is extracted
// exactly once.
func ExtractLayers(ctx context.Context, vol Volume, workers int) ([]*volume.Layer, error) {
	r := vol.Resolution()
	if err := volume.ValidateResolution(r); err != nil {
		return nil, err
	}

	layers := make([]*volume.Layer, r)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(workers))
	for z := 0; z < r; z++ {
		g.Go(func() error {
			layer, err := vol.ExtractLayer(ctx, z)
			if err != nil {
				return err
			}
			if layer.Z != z {
				return volume.IndexError("extract layer", "requested depth %d, got %d", z, layer.Z)
			}
			layers[z] = layer
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return layers, nil
}
