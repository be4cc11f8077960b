package bake

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/densitybaker/internal/logger"
	"github.com/Faultbox/densitybaker/pkg/field"
	"github.com/Faultbox/densitybaker/pkg/volume"
)

// Mode selects how the synthesized volume reaches the packed grid.
type Mode string

const (
	// ModeSliced reads the volume back one depth layer at a time and
	// reassembles the layers.
	ModeSliced Mode = "sliced"
	// ModeDirect hands the synthesized buffer over as the packed grid.
	ModeDirect Mode = "direct"
)

// ParseMode parses a pipeline mode name. Empty means ModeSliced.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeSliced:
		return ModeSliced, nil
	case ModeDirect:
		return ModeDirect, nil
	}
	return "", volume.ConfigError("pipeline mode", "unknown mode %q", s)
}

// Options configures a Baker.
type Options struct {
	Resolution int
	Mode       Mode
	Workers    int
}

// Result is a finished bake.
type Result struct {
	ID         uuid.UUID
	Grid       *volume.PackedGrid
	Params     field.Params
	Resolution int
	Mode       Mode
	Backend    string
	// Layers is the number of layers extracted; zero in direct mode.
	Layers   int
	Stats    Stats
	Duration time.Duration
}

// Baker runs bakes on one backend.
type Baker struct {
	backend Backend
	opts    Options
	log     *zap.Logger
}

// New creates a Baker. The options are validated on every bake.
func New(backend Backend, opts Options) *Baker {
	if opts.Mode == "" {
		opts.Mode = ModeSliced
	}
	return &Baker{
		backend: backend,
		opts:    opts,
		log:     logger.Named("bake"),
	}
}

// Options returns the baker's options.
func (b *Baker) Options() Options {
	return b.opts
}

// Bake runs Configure, Synthesize, Extract, Reassemble in order. Any failure
// aborts the bake and no grid is returned.
func (b *Baker) Bake(ctx context.Context, params field.Params) (*Result, error) {
	start := time.Now()
	r := b.opts.Resolution

	// Configure
	if b.backend == nil {
		return nil, volume.ConfigError("bake", "no backend")
	}
	if err := volume.ValidateResolution(r); err != nil {
		return nil, err
	}
	if _, err := ParseMode(string(b.opts.Mode)); err != nil {
		return nil, err
	}
	ev, err := field.NewEvaluator(params)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	log := b.log.With(
		zap.String("bake_id", id.String()),
		zap.String("backend", b.backend.Name()),
	)
	log.Debug("configured",
		zap.Stringer("params", params),
		zap.Int("resolution", r),
		zap.String("mode", string(b.opts.Mode)),
	)

	// Synthesize
	vol, err := b.backend.Synthesize(ctx, ev, r)
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	defer vol.Release()
	log.Debug("synthesized", zap.Duration("elapsed", time.Since(start)))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		grid   *volume.PackedGrid
		layers int
	)
	switch b.opts.Mode {
	case ModeDirect:
		grid, err = vol.ReadPacked(ctx)
		if err != nil {
			return nil, fmt.Errorf("read packed: %w", err)
		}
	default:
		ls, err := ExtractLayers(ctx, vol, b.opts.Workers)
		if err != nil {
			return nil, fmt.Errorf("extract: %w", err)
		}
		layers = len(ls)
		log.Debug("extracted", zap.Int("layers", layers))

		grid, err = Reassemble(ctx, ls, r, b.opts.Workers)
		if err != nil {
			return nil, fmt.Errorf("reassemble: %w", err)
		}
	}

	if err := grid.Validate(); err != nil {
		return nil, err
	}

	res := &Result{
		ID:         id,
		Grid:       grid,
		Params:     params,
		Resolution: r,
		Mode:       b.opts.Mode,
		Backend:    b.backend.Name(),
		Layers:     layers,
		Stats:      ComputeStats(grid),
		Duration:   time.Since(start),
	}
	log.Info("bake finished", append([]zap.Field{
		zap.String("shape", params.Shape.Kind().String()),
		zap.Int("resolution", r),
		zap.String("mode", string(res.Mode)),
		zap.Duration("duration", res.Duration),
	}, res.Stats.Fields()...)...)
	return res, nil
}
