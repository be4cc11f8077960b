// Package math provides the small vector toolkit used to evaluate density
// fields in normalized voxel space.
package math

import "math"

// Vec3 is a 3D vector.
type Vec3 struct {
	X, Y, Z float32
}

// Splat returns a vector with all components set to s.
func Splat(s float32) Vec3 {
	return Vec3{s, s, s}
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

// Scale returns v * scalar.
func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Length returns the magnitude.
func (v Vec3) Length() float32 {
	return float32(math.Sqrt(float64(v.X*v.X + v.Y*v.Y + v.Z*v.Z)))
}

// Distance returns the distance to another point.
func (v Vec3) Distance(other Vec3) float32 {
	return v.Sub(other).Length()
}

// XZ returns the XZ components as Vec2.
func (v Vec3) XZ() Vec2 {
	return Vec2{v.X, v.Z}
}

// Center is the middle of the unit voxel cube.
var Center = Splat(0.5)

// VoxelCenter maps integer voxel coordinates of an n³ grid to the center of
// that voxel in the unit cube, i.e. (i + 0.5) / n per axis.
func VoxelCenter(x, y, z, n int) Vec3 {
	inv := 1 / float32(n)
	return Vec3{
		(float32(x) + 0.5) * inv,
		(float32(y) + 0.5) * inv,
		(float32(z) + 0.5) * inv,
	}
}
