package field

import (
	"fmt"
	"math"

	m "github.com/Faultbox/densitybaker/pkg/math"
	"github.com/Faultbox/densitybaker/pkg/noise"
)

// Evaluator maps voxel positions to densities for one parameter set.
// It holds no mutable state and is safe for concurrent use.
type Evaluator struct {
	params  Params
	fallOff float32
}

// NewEvaluator validates p and returns an evaluator for it.
func NewEvaluator(p Params) (*Evaluator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Evaluator{
		params:  p,
		fallOff: float32(math.Max(float64(p.FallOff), MinFallOff)),
	}, nil
}

// Params returns the parameters the evaluator was built with.
func (e *Evaluator) Params() Params {
	return e.params
}

// Evaluate returns the density in [0, 1] at position p of the unit cube.
func (e *Evaluator) Evaluate(p m.Vec3) float32 {
	if e.params.Shape.Kind() == KindNoise {
		return NoiseDensity(e.sampleNoise(p), e.params.Noise.Intensity)
	}

	d, r := ShapeDistance(e.params.Shape, p.Sub(m.Center))
	density := Falloff(d, r, e.fallOff)
	if e.params.Noise.Enabled {
		density = Modulate(density, e.sampleNoise(p), e.params.Noise.Intensity)
	}
	return density
}

// EvaluateVoxel evaluates the center of voxel (x, y, z) in an n³ grid.
func (e *Evaluator) EvaluateVoxel(x, y, z, n int) float32 {
	return e.Evaluate(m.VoxelCenter(x, y, z, n))
}

func (e *Evaluator) sampleNoise(p m.Vec3) float32 {
	q := p.Scale(e.params.Noise.Density)
	return float32(noise.Simplex3(float64(q.X), float64(q.Y), float64(q.Z)))
}

// ShapeDistance returns the distance of the centred position q from the
// shape's core together with the radius that distance is measured against.
// NoiseShape has no core and reports (0, 1).
func ShapeDistance(s Shape, q m.Vec3) (d, r float32) {
	switch s := s.(type) {
	case Sphere:
		return q.Length(), s.Radius
	case Cylinder:
		return q.XZ().Length(), s.Radius
	case Torus:
		ring := m.Vec2{X: q.XZ().Length() - s.Major, Y: q.Y}
		return ring.Length(), s.Minor
	case NoiseShape:
		return 0, 1
	}
	panic(fmt.Sprintf("field: unsupported shape type %T", s))
}

// Falloff is a logistic edge: 0.5 at d == r, approaching 1 at the core and 0
// far outside, strictly decreasing in d. fallOff sets the steepness.
func Falloff(d, r, fallOff float32) float32 {
	if fallOff < MinFallOff {
		fallOff = MinFallOff
	}
	if r <= 0 {
		r = MinFallOff
	}
	x := float64(fallOff) * float64(d-r) / float64(r)
	return float32(1 / (1 + math.Exp(x)))
}

// Modulate applies noise n in [-1, 1] to a shape density.
func Modulate(density, n, intensity float32) float32 {
	return m.Saturate(density * (1 + n*intensity*NoiseGain))
}

// NoiseDensity turns a raw noise sample into a standalone density.
func NoiseDensity(n, intensity float32) float32 {
	return m.Saturate(0.5 + n*intensity*NoiseGain)
}
