package noise

import (
	"math"
	"testing"
)

func TestSimplex3Deterministic(t *testing.T) {
	for i := 0; i < 100; i++ {
		x := float64(i) * 0.15
		y := float64(i) * 0.25
		z := float64(i) * 0.35
		if Simplex3(x, y, z) != Simplex3(x, y, z) {
			t.Fatalf("Simplex3 not deterministic at (%f, %f, %f)", x, y, z)
		}
	}
}

func TestSimplex3Range(t *testing.T) {
	for i := 0; i < 10000; i++ {
		x := float64(i)*0.37 - 500
		y := float64(i)*0.53 - 500
		z := float64(i)*0.71 - 500
		v := Simplex3(x, y, z)
		if v < -1.0 || v > 1.0 || math.IsNaN(v) {
			t.Fatalf("Simplex3(%f, %f, %f) = %f, out of [-1,1]", x, y, z, v)
		}
	}
}

func TestSimplex3Varies(t *testing.T) {
	// Coherent noise must not collapse to a constant.
	seen := make(map[float64]bool)
	for i := 0; i < 64; i++ {
		seen[Simplex3(float64(i)*0.31, 0.7, 1.3)] = true
	}
	if len(seen) < 32 {
		t.Errorf("expected varied output, got %d distinct values", len(seen))
	}
}

func TestSimplex3Continuity(t *testing.T) {
	// Band-limited: a tiny step in input gives a tiny step in output.
	const eps = 1e-4
	for i := 0; i < 1000; i++ {
		x := float64(i) * 0.113
		y := float64(i) * 0.071
		z := float64(i) * 0.029
		a := Simplex3(x, y, z)
		b := Simplex3(x+eps, y, z)
		if math.Abs(a-b) > 0.01 {
			t.Fatalf("discontinuity at (%f, %f, %f): %f vs %f", x, y, z, a, b)
		}
	}
}

func TestSimplex3DiagonalTies(t *testing.T) {
	// Points with equal offsets sit on simplex boundaries; nudging off
	// them must not jump.
	const eps = 1e-9
	for i := 0; i < 32; i++ {
		v := (float64(i) + 0.5) / 32 * 5
		ties := [][3]float64{
			{v, v, v},
			{v, 0.25, v},
			{0.25, v, v},
		}
		for _, p := range ties {
			a := Simplex3(p[0], p[1], p[2])
			b := Simplex3(p[0]+eps, p[1], p[2])
			if math.Abs(a-b) > 1e-3 {
				t.Fatalf("jump at %v: %f vs %f", p, a, b)
			}
		}
	}
	if got := Simplex3(0, 0, 0); got != 0 {
		t.Errorf("Simplex3(0, 0, 0) = %f, want 0", got)
	}
}
