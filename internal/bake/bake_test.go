package bake

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/densitybaker/pkg/field"
	"github.com/Faultbox/densitybaker/pkg/volume"
)

func sphereParams() field.Params {
	return field.Params{Shape: field.Sphere{Radius: field.DefaultRadius}, FallOff: 10}
}

func runBake(t *testing.T, params field.Params, r int, mode Mode) *Result {
	t.Helper()
	b := New(NewCPUBackend(4), Options{Resolution: r, Mode: mode, Workers: 4})
	res, err := b.Bake(context.Background(), params)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func TestBakeResolutionInvariant(t *testing.T) {
	t.Parallel()

	for _, r := range []int{1, 2, 7, 16, 32} {
		res := runBake(t, sphereParams(), r, ModeSliced)
		assert.Equal(t, r, res.Grid.R)
		assert.Len(t, res.Grid.Values, r*r*r, "resolution %d", r)
		assert.Equal(t, r, res.Layers, "resolution %d", r)
	}
}

func TestBakeDeterministic(t *testing.T) {
	t.Parallel()

	params := sphereParams()
	params.Noise = field.Noise{Enabled: true, Density: 4, Intensity: 3}

	a := runBake(t, params, 16, ModeSliced)
	b := runBake(t, params, 16, ModeSliced)
	if diff := cmp.Diff(a.Grid.Values, b.Grid.Values); diff != "" {
		t.Errorf("bakes differ (-first +second):\n%s", diff)
	}
	assert.NotEqual(t, a.ID, b.ID)
}

func TestBakeSphereRangeAndMonotonic(t *testing.T) {
	t.Parallel()

	const r = 32
	res := runBake(t, sphereParams(), r, ModeSliced)
	g := res.Grid

	for i, v := range g.Values {
		require.True(t, v >= 0 && v <= 1, "value %v at %d outside [0,1]", v, i)
	}

	// Walk outward from the voxel nearest the centre along +X.
	c := r / 2
	for x := c + 1; x < r; x++ {
		prev := g.At(x-1, c, c)
		cur := g.At(x, c, c)
		assert.Less(t, cur, prev, "density should fall between x=%d and x=%d", x-1, x)
	}

	// And along the diagonal.
	for i := c + 1; i < r; i++ {
		assert.Less(t, g.At(i, i, i), g.At(i-1, i-1, i-1))
	}

	assert.Greater(t, g.At(c, c, c), float32(0.99))
	assert.Less(t, g.At(0, 0, 0), float32(0.01))
}

func TestBakeShapeExclusivity(t *testing.T) {
	t.Parallel()

	const r = 16
	cyl := runBake(t, field.Params{Shape: field.Cylinder{Radius: 0.3}, FallOff: 10}, r, ModeSliced).Grid
	sph := runBake(t, field.Params{Shape: field.Sphere{Radius: 0.3}, FallOff: 10}, r, ModeSliced).Grid

	// The cylinder runs along Y; the sphere does not.
	for z := 0; z < r; z++ {
		for x := 0; x < r; x++ {
			assert.Equal(t, cyl.At(x, 0, z), cyl.At(x, r-1, z))
		}
	}
	assert.NotEqual(t, sph.At(r/2, 0, r/2), sph.At(r/2, r/2, r/2))
	assert.NotEqual(t, cyl.Values, sph.Values)
}

func TestBakeNoise(t *testing.T) {
	t.Parallel()

	noise := func(intensity float32) field.Params {
		return field.Params{
			Shape:   field.NoiseShape{},
			FallOff: 10,
			Noise:   field.Noise{Density: 5, Intensity: intensity},
		}
	}

	t.Run("deterministic", func(t *testing.T) {
		a := runBake(t, noise(5), 16, ModeSliced)
		b := runBake(t, noise(5), 16, ModeSliced)
		assert.Empty(t, cmp.Diff(a.Grid.Values, b.Grid.Values))
		assert.Greater(t, a.Stats.StdDev, 0.0, "noise should vary across the volume")
	})

	t.Run("zero intensity is uniform", func(t *testing.T) {
		res := runBake(t, noise(0), 16, ModeSliced)
		for i, v := range res.Grid.Values {
			require.Equal(t, float32(0.5), v, "voxel %d", i)
		}
		assert.Equal(t, 0.0, res.Stats.StdDev)
	})
}

func TestDirectMatchesSliced(t *testing.T) {
	t.Parallel()

	noise := field.Noise{Enabled: true, Density: 3, Intensity: 6}
	tests := []struct {
		name   string
		params field.Params
	}{
		{"sphere", field.Params{Shape: field.Sphere{Radius: 0.4}, FallOff: 8}},
		{"cylinder noise", field.Params{Shape: field.Cylinder{Radius: 0.25}, FallOff: 12, Noise: noise}},
		{"torus", field.Params{Shape: field.Torus{Major: 0.28, Minor: 0.12}, FallOff: 10}},
		{"noise", field.Params{Shape: field.NoiseShape{}, FallOff: 1, Noise: noise}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sliced := runBake(t, tt.params, 12, ModeSliced)
			direct := runBake(t, tt.params, 12, ModeDirect)
			if diff := cmp.Diff(sliced.Grid.Values, direct.Grid.Values); diff != "" {
				t.Errorf("direct mode differs from sliced (-sliced +direct):\n%s", diff)
			}
			assert.Zero(t, direct.Layers)
			assert.Equal(t, sliced.Stats, direct.Stats)
		})
	}
}

func TestBakeFailsOnBadConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		r      int
		mode   Mode
		params field.Params
		want   error
	}{
		{"zero resolution", 0, ModeSliced, sphereParams(), volume.ErrConfiguration},
		{"negative resolution", -4, ModeSliced, sphereParams(), volume.ErrConfiguration},
		{"too large", volume.MaxResolution + 1, ModeSliced, sphereParams(), volume.ErrAllocation},
		{"no shape", 8, ModeSliced, field.Params{FallOff: 10}, volume.ErrConfiguration},
		{"nan falloff", 8, ModeSliced, field.Params{Shape: field.Sphere{Radius: 0.3}, FallOff: float32(math.NaN())}, volume.ErrConfiguration},
		{"negative falloff", 8, ModeSliced, field.Params{Shape: field.Sphere{Radius: 0.3}, FallOff: -1}, volume.ErrConfiguration},
		{"zero radius", 8, ModeDirect, field.Params{Shape: field.Cylinder{}, FallOff: 10}, volume.ErrConfiguration},
		{"unknown mode", 8, Mode("sideways"), sphereParams(), volume.ErrConfiguration},
		{"pointer shape", 8, ModeSliced, field.Params{Shape: &field.Sphere{Radius: 0.3}, FallOff: 10}, volume.ErrConfiguration},
		{"pointer shape direct", 8, ModeDirect, field.Params{Shape: &field.Torus{Major: 0.3, Minor: 0.1}, FallOff: 10}, volume.ErrConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(NewCPUBackend(2), Options{Resolution: tt.r, Mode: tt.mode})
			res, err := b.Bake(context.Background(), tt.params)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, tt.want), "expected %v, got %v", tt.want, err)
		})
	}
}

func TestBakeNoBackend(t *testing.T) {
	_, err := New(nil, Options{Resolution: 8}).Bake(context.Background(), sphereParams())
	assert.ErrorIs(t, err, volume.ErrConfiguration)
}

func TestBakeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := New(NewCPUBackend(2), Options{Resolution: 16})
	res, err := b.Bake(ctx, sphereParams())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeSliced, false},
		{"sliced", ModeSliced, false},
		{"direct", ModeDirect, false},
		{"Direct", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, volume.ErrConfiguration, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestNewBackend(t *testing.T) {
	b, err := NewBackend("cpu", 3)
	require.NoError(t, err)
	assert.Equal(t, "cpu", b.Name())
	require.NoError(t, b.Close())

	b, err = NewBackend("", 0)
	require.NoError(t, err)
	assert.Equal(t, "cpu", b.Name())

	_, err = NewBackend("vulkan", 0)
	assert.ErrorIs(t, err, volume.ErrConfiguration)
}

func TestComputeStats(t *testing.T) {
	g := &volume.PackedGrid{R: 2, Values: []float32{0, 0.25, 0.5, 0.75, 1, 1, 0, 0.5}}
	s := ComputeStats(g)

	assert.InDelta(t, 0.5, s.Mean, 1e-9)
	assert.Equal(t, 0.0, s.Min)
	assert.Equal(t, 1.0, s.Max)
	assert.Equal(t, 5, s.Occupied)
	assert.InDelta(t, 0.625, s.Fill(g.Len()), 1e-9)
	assert.Greater(t, s.StdDev, 0.0)

	assert.Equal(t, Stats{}, ComputeStats(nil))
}
