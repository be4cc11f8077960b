// Package field evaluates the procedural density function sampled by a bake:
// one implicit shape with a smooth falloff, optionally modulated by coherent
// noise.
package field

import (
	"fmt"
	"math"
	"strings"

	"github.com/Faultbox/densitybaker/pkg/volume"
)

// ShapeKind identifies a shape variant.
type ShapeKind uint8

// Shape kinds, in the order the editor enum lists them.
const (
	KindSphere ShapeKind = iota
	KindCylinder
	KindTorus
	KindNoise
)

// String returns the lower-case shape name used in config files.
func (k ShapeKind) String() string {
	switch k {
	case KindSphere:
		return "sphere"
	case KindCylinder:
		return "cylinder"
	case KindTorus:
		return "torus"
	case KindNoise:
		return "noise"
	default:
		return fmt.Sprintf("ShapeKind(%d)", k)
	}
}

// ParseShapeKind maps a config name to a ShapeKind.
func ParseShapeKind(name string) (ShapeKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sphere":
		return KindSphere, nil
	case "cylinder":
		return KindCylinder, nil
	case "torus":
		return KindTorus, nil
	case "noise":
		return KindNoise, nil
	}
	return 0, volume.ConfigError("shape", "unknown shape %q", name)
}

// Shape is one of Sphere, Cylinder, Torus or NoiseShape. Each variant carries
// only the parameters it needs; distances are in unit-cube space with the
// shape centred at (0.5, 0.5, 0.5). Variants are held by value; the set is
// closed to this package.
type Shape interface {
	Kind() ShapeKind
	Validate() error
	isShape()
}

// Sphere is a ball of the given radius.
type Sphere struct {
	Radius float32
}

// Cylinder is an infinite cylinder along Y.
type Cylinder struct {
	Radius float32
}

// Torus is a ring lying in the XZ plane.
type Torus struct {
	Major float32 // ring radius
	Minor float32 // tube radius
}

// NoiseShape uses the noise term alone as the density source.
type NoiseShape struct{}

func (Sphere) Kind() ShapeKind     { return KindSphere }
func (Cylinder) Kind() ShapeKind   { return KindCylinder }
func (Torus) Kind() ShapeKind      { return KindTorus }
func (NoiseShape) Kind() ShapeKind { return KindNoise }

func (Sphere) isShape()     {}
func (Cylinder) isShape()   {}
func (Torus) isShape()      {}
func (NoiseShape) isShape() {}

// checkVariant rejects anything other than the four value variants, such as
// a pointer to one of them.
func checkVariant(s Shape) error {
	switch s.(type) {
	case Sphere, Cylinder, Torus, NoiseShape:
		return nil
	}
	return volume.ConfigError("shape", "unsupported shape type %T", s)
}

func (s Sphere) Validate() error {
	return validRadius("sphere radius", s.Radius)
}

func (c Cylinder) Validate() error {
	return validRadius("cylinder radius", c.Radius)
}

func (t Torus) Validate() error {
	if err := validRadius("torus major radius", t.Major); err != nil {
		return err
	}
	return validRadius("torus minor radius", t.Minor)
}

func (NoiseShape) Validate() error { return nil }

func validRadius(op string, r float32) error {
	if math.IsNaN(float64(r)) || r <= 0 || r > 1 {
		return volume.ConfigError(op, "must be in (0,1], got %v", r)
	}
	return nil
}

// Default shape dimensions.
const (
	DefaultRadius     = 0.35
	DefaultTorusMajor = 0.28
	DefaultTorusMinor = 0.12
)

// NewShape builds the variant for kind using the given dimensions; fields a
// variant does not use are ignored.
func NewShape(kind ShapeKind, radius, major, minor float32) (Shape, error) {
	switch kind {
	case KindSphere:
		return Sphere{Radius: radius}, nil
	case KindCylinder:
		return Cylinder{Radius: radius}, nil
	case KindTorus:
		return Torus{Major: major, Minor: minor}, nil
	case KindNoise:
		return NoiseShape{}, nil
	}
	return nil, volume.ConfigError("shape", "unknown shape kind %d", kind)
}
