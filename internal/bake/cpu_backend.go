package bake

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/densitybaker/pkg/field"
	"github.com/Faultbox/densitybaker/pkg/volume"
)

// CPUBackend evaluates the field on a pool of goroutines, one z-slab per
// work unit.
type CPUBackend struct {
	workers int
}

// NewCPUBackend creates a CPU backend; workers <= 0 uses one per CPU.
func NewCPUBackend(workers int) *CPUBackend {
	return &CPUBackend{workers: workerCount(workers)}
}

func (b *CPUBackend) Name() string { return "cpu" }

func (b *CPUBackend) Close() error { return nil }

// Synthesize fills a dense volume. Each voxel is written exactly once by the
// worker owning its slab; Wait is the barrier before any layer is read.
func (b *CPUBackend) Synthesize(ctx context.Context, ev *field.Evaluator, r int) (Volume, error) {
	if ev == nil {
		return nil, errNilEvaluator("synthesize")
	}
	dense, err := volume.NewDense(r)
	if err != nil {
		return nil, err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for z := 0; z < r; z++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			slab := dense.Slab(z)
			for y := 0; y < r; y++ {
				row := slab[y*r : (y+1)*r]
				for x := range row {
					row[x] = ev.EvaluateVoxel(x, y, z, r)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &cpuVolume{dense: dense}, nil
}

// cpuVolume is a dense volume in host memory.
type cpuVolume struct {
	dense *volume.Dense
}

// NewCPUVolume wraps an existing dense volume so it can be fed through
// layer extraction.
func NewCPUVolume(d *volume.Dense) Volume {
	return &cpuVolume{dense: d}
}

func (v *cpuVolume) Resolution() int { return v.dense.R }

// ExtractLayer copies Dense(u, v, z) to layer (u, v), duplicating the
// density into R, G and B.
func (v *cpuVolume) ExtractLayer(ctx context.Context, z int) (*volume.Layer, error) {
	r := v.dense.R
	if err := checkDepth(z, r); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	layer, err := volume.NewLayer(z, r)
	if err != nil {
		return nil, err
	}
	slab := v.dense.Slab(z)
	for y := 0; y < r; y++ {
		for x := 0; x < r; x++ {
			d := slab[x+y*r]
			layer.Set(x, y, volume.Texel{R: d, G: d, B: d, A: 1})
		}
	}
	return layer, nil
}

// ReadPacked hands the dense buffer over as the packed grid: both use the
// x + y*R + z*R*R flattening, so no copy or transpose is needed.
func (v *cpuVolume) ReadPacked(ctx context.Context) (*volume.PackedGrid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	grid := &volume.PackedGrid{R: v.dense.R, Values: v.dense.Data}
	v.dense = &volume.Dense{R: v.dense.R}
	return grid, nil
}

func (v *cpuVolume) Release() {
	v.dense.Data = nil
}
