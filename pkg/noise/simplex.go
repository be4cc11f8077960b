// Package noise implements seedless, coherent 3D simplex noise.
//
// The lattice hashing uses the permutation polynomial (34x²+x) mod 289, so
// no permutation table or seed is involved: a coordinate always maps to the
// same value, on the CPU and in the GLSL port used by the GPU backend.
package noise

import "math"

const (
	skew   = 1.0 / 3.0
	unskew = 1.0 / 6.0
	// sevenths lays out gradients on a 7x7 grid over the octahedron.
	sevenths = 1.0 / 7.0
)

// Simplex3 returns 3D simplex noise at (x, y, z). Output is in [-1, 1].
func Simplex3(x, y, z float64) float64 {
	// Skew into simplex lattice space and find the base corner.
	s := (x + y + z) * skew
	ix := math.Floor(x + s)
	iy := math.Floor(y + s)
	iz := math.Floor(z + s)

	t := (ix + iy + iz) * unskew
	x0 := [3]float64{x - ix + t, y - iy + t, z - iz + t}

	// Rank the offsets to pick the two middle corners. The z-over-x test is
	// strict so equal offsets still order into a single simplex.
	g := [3]float64{
		step(x0[1], x0[0]),
		step(x0[2], x0[1]),
		1 - step(x0[2], x0[0]),
	}
	l := [3]float64{1 - g[0], 1 - g[1], 1 - g[2]}
	i1 := [3]float64{math.Min(g[0], l[2]), math.Min(g[1], l[0]), math.Min(g[2], l[1])}
	i2 := [3]float64{math.Max(g[0], l[2]), math.Max(g[1], l[0]), math.Max(g[2], l[1])}

	var corners [4][3]float64
	for a := 0; a < 3; a++ {
		corners[0][a] = x0[a]
		corners[1][a] = x0[a] - i1[a] + unskew
		corners[2][a] = x0[a] - i2[a] + skew
		corners[3][a] = x0[a] - 0.5
	}

	ix, iy, iz = mod289(ix), mod289(iy), mod289(iz)
	var p [4]float64
	offX := [4]float64{0, i1[0], i2[0], 1}
	offY := [4]float64{0, i1[1], i2[1], 1}
	offZ := [4]float64{0, i1[2], i2[2], 1}
	for k := 0; k < 4; k++ {
		h := permute(iz + offZ[k])
		h = permute(h + iy + offY[k])
		p[k] = permute(h + ix + offX[k])
	}

	var sum float64
	for k := 0; k < 4; k++ {
		gx, gy, gz := gradient(p[k])
		c := corners[k]
		m := 0.6 - (c[0]*c[0] + c[1]*c[1] + c[2]*c[2])
		if m <= 0 {
			continue
		}
		m *= m
		sum += m * m * (gx*c[0] + gy*c[1] + gz*c[2])
	}

	n := 42 * sum
	if n > 1 {
		return 1
	}
	if n < -1 {
		return -1
	}
	return n
}

// gradient maps a hashed corner value to a normalized gradient on the
// surface of an octahedron.
func gradient(h float64) (float64, float64, float64) {
	nsx := 2 * sevenths
	nsy := 0.5*sevenths - 1
	nsz := sevenths

	j := h - 49*math.Floor(h*nsz*nsz)
	xq := math.Floor(j * nsz)
	yq := math.Floor(j - 7*xq)

	gx := xq*nsx + nsy
	gy := yq*nsx + nsy
	gz := 1 - math.Abs(gx) - math.Abs(gy)

	// Fold the lower half of the octahedron back up.
	if gz <= 0 {
		gx += (math.Floor(gx)*2 + 1) * -1
		gy += (math.Floor(gy)*2 + 1) * -1
	}

	norm := taylorInvSqrt(gx*gx + gy*gy + gz*gz)
	return gx * norm, gy * norm, gz * norm
}

func step(edge, v float64) float64 {
	if v < edge {
		return 0
	}
	return 1
}

func mod289(v float64) float64 {
	return v - math.Floor(v*(1.0/289.0))*289.0
}

func permute(v float64) float64 {
	return mod289((v*34 + 1) * v)
}

func taylorInvSqrt(r float64) float64 {
	return 1.79284291400159 - 0.85373472095314*r
}
