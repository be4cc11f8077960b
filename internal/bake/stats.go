package bake

import (
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/Faultbox/densitybaker/pkg/volume"
)

// Stats summarises the densities of a packed grid.
type Stats struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
	// Occupied counts voxels at or above the surface level 0.5.
	Occupied int
}

// ComputeStats summarises g.
func ComputeStats(g *volume.PackedGrid) Stats {
	if g == nil || len(g.Values) == 0 {
		return Stats{}
	}
	xs := make([]float64, len(g.Values))
	var occupied int
	for i, v := range g.Values {
		xs[i] = float64(v)
		if v >= 0.5 {
			occupied++
		}
	}
	mean, std := stat.MeanStdDev(xs, nil)
	return Stats{
		Mean:     mean,
		StdDev:   std,
		Min:      floats.Min(xs),
		Max:      floats.Max(xs),
		Occupied: occupied,
	}
}

// Fill returns the fraction of occupied voxels.
func (s Stats) Fill(n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(s.Occupied) / float64(n)
}

// Fields returns the stats as log fields.
func (s Stats) Fields() []zap.Field {
	return []zap.Field{
		zap.Float64("mean", s.Mean),
		zap.Float64("stddev", s.StdDev),
		zap.Float64("min", s.Min),
		zap.Float64("max", s.Max),
		zap.Int("occupied", s.Occupied),
	}
}
