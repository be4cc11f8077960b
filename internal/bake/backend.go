// Package bake runs the density bake pipeline: synthesize a dense volume,
// read it back one depth layer at a time and reassemble the layers into the
// packed grid consumed by the volumetric renderer.
package bake

import (
	"context"
	"runtime"

	"github.com/Faultbox/densitybaker/pkg/field"
	"github.com/Faultbox/densitybaker/pkg/volume"
)

// Backend synthesizes density volumes.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string
	// Synthesize evaluates ev at every voxel of an r×r×r grid. The returned
	// volume is complete: no voxel is written after Synthesize returns.
	Synthesize(ctx context.Context, ev *field.Evaluator, r int) (Volume, error)
	// Close releases backend resources.
	Close() error
}

// Volume is a synthesized volume owned by a backend.
type Volume interface {
	Resolution() int
	// ExtractLayer copies depth z into a new layer in readback layout.
	// Safe to call concurrently for distinct z.
	ExtractLayer(ctx context.Context, z int) (*volume.Layer, error)
	// ReadPacked returns the whole volume in packed order without going
	// through layers. The volume must not be used afterwards.
	ReadPacked(ctx context.Context) (*volume.PackedGrid, error)
	// Release frees the volume's storage.
	Release()
}

// NewBackend returns the backend registered under name.
func NewBackend(name string, workers int) (Backend, error) {
	switch name {
	case "", "cpu":
		return NewCPUBackend(workers), nil
	case "gl":
		return NewGLBackend()
	}
	return nil, volume.ConfigError("backend", "unknown backend %q", name)
}

// workerCount resolves a configured worker count, 0 meaning one per CPU.
func workerCount(n int) int {
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

func checkDepth(z, r int) error {
	if z < 0 || z >= r {
		return volume.IndexError("extract layer", "depth %d outside [0,%d)", z, r)
	}
	return nil
}

func errNilEvaluator(op string) error {
	return volume.ConfigError(op, "no evaluator")
}
