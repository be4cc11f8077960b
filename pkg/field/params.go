package field

import (
	"fmt"
	"math"

	"github.com/Faultbox/densitybaker/pkg/volume"
)

// Noise parameter bounds.
const (
	MinNoiseDensity   = 1
	MaxNoiseDensity   = 10
	MinNoiseIntensity = 0
	MaxNoiseIntensity = 10
)

// NoiseGain scales noiseIntensity into a density offset; at intensity 5 the
// noise spans the full [0,1] range around 0.5.
const NoiseGain = 0.1

// MinFallOff is the smallest falloff the evaluator will use.
const MinFallOff = 1e-3

// Noise configures the coherent noise term.
type Noise struct {
	Enabled   bool
	Density   float32 // sampling frequency over the unit cube
	Intensity float32 // modulation strength
}

// Params is everything the evaluator reads during one bake.
type Params struct {
	Shape   Shape
	FallOff float32
	Noise   Noise
}

// Default returns the reference configuration: a sphere, falloff 10, noise
// disabled.
func Default() Params {
	return Params{
		Shape:   Sphere{Radius: DefaultRadius},
		FallOff: 10,
		Noise: Noise{
			Enabled:   false,
			Density:   5,
			Intensity: 5,
		},
	}
}

// UsesNoise reports whether the noise term is evaluated.
func (p Params) UsesNoise() bool {
	if p.Shape == nil {
		return false
	}
	return p.Noise.Enabled || p.Shape.Kind() == KindNoise
}

// Validate rejects parameters that cannot produce a well-defined field.
func (p Params) Validate() error {
	if p.Shape == nil {
		return volume.ConfigError("shape", "no shape selected")
	}
	if err := checkVariant(p.Shape); err != nil {
		return err
	}
	if err := p.Shape.Validate(); err != nil {
		return err
	}
	f := float64(p.FallOff)
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return volume.ConfigError("falloff", "must be a positive finite value, got %v", p.FallOff)
	}
	if !p.UsesNoise() {
		return nil
	}
	if !inRange(p.Noise.Density, MinNoiseDensity, MaxNoiseDensity) {
		return volume.ConfigError("noise density", "must be in [%d,%d], got %v",
			MinNoiseDensity, MaxNoiseDensity, p.Noise.Density)
	}
	if !inRange(p.Noise.Intensity, MinNoiseIntensity, MaxNoiseIntensity) {
		return volume.ConfigError("noise intensity", "must be in [%d,%d], got %v",
			MinNoiseIntensity, MaxNoiseIntensity, p.Noise.Intensity)
	}
	return nil
}

func inRange(v, lo, hi float32) bool {
	return v >= lo && v <= hi
}

// String summarises the parameters for logs.
func (p Params) String() string {
	if p.Shape == nil {
		return "<no shape>"
	}
	s := fmt.Sprintf("%s %+v falloff=%g", p.Shape.Kind(), p.Shape, p.FallOff)
	if p.UsesNoise() {
		s += fmt.Sprintf(" noise(density=%g intensity=%g)", p.Noise.Density, p.Noise.Intensity)
	}
	return s
}
