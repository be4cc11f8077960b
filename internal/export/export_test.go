package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/densitybaker/internal/bake"
	"github.com/Faultbox/densitybaker/pkg/field"
	"github.com/Faultbox/densitybaker/pkg/formats"
)

func testResult(t *testing.T, r int) *bake.Result {
	t.Helper()
	b := bake.New(bake.NewCPUBackend(2), bake.Options{Resolution: r})
	res, err := b.Bake(context.Background(), field.Default())
	require.NoError(t, err)
	return res
}

var floatOpts = Options{Encoding: formats.EncodingFloat, Compress: true}

func TestFileExporterWrites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "assets")
	res := testResult(t, 8)
	e := NewFileExporter(dir, floatOpts)

	out, err := e.Export(context.Background(), "DensityVolume_densityTex", res)
	require.NoError(t, err)
	assert.Equal(t, OutcomeWritten, out)

	path := filepath.Join(dir, "DensityVolume_densityTex.asset")
	assert.Equal(t, path, e.AssetPath("DensityVolume_densityTex"))

	d, err := formats.ParseDVOLFile(path)
	require.NoError(t, err)
	assert.Equal(t, "DensityVolume_densityTex", d.Name)
	if diff := cmp.Diff(res.Grid.Values, d.Values); diff != "" {
		t.Errorf("asset differs from bake (-bake +asset):\n%s", diff)
	}
}

func TestFileExporterNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mask.asset")
	require.NoError(t, os.WriteFile(path, []byte("existing"), 0644))

	out, err := NewFileExporter(dir, floatOpts).Export(context.Background(), "mask", testResult(t, 4))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "existing", string(data))
}

func TestFileExporterRejectsBadInput(t *testing.T) {
	e := NewFileExporter(t.TempDir(), floatOpts)

	_, err := e.Export(context.Background(), "", testResult(t, 2))
	assert.Error(t, err)

	_, err = e.Export(context.Background(), "x", nil)
	assert.True(t, errors.Is(err, errNoResult))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Export(ctx, "x", testResult(t, 2))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileExporterRemovesPartialAsset(t *testing.T) {
	dir := t.TempDir()
	e := NewFileExporter(dir, Options{Encoding: formats.Encoding(0)})

	_, err := e.Export(context.Background(), "broken", testResult(t, 2))
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "broken.asset"))
	assert.True(t, os.IsNotExist(statErr), "partial asset should be removed")
}

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := OpenCatalog(filepath.Join(t.TempDir(), "bakes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCatalogMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bakes.db")
	c, err := OpenCatalog(path)
	require.NoError(t, err)
	v, err := c.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
	require.NoError(t, c.Close())

	// Reopening must be a no-op migration.
	c, err = OpenCatalog(path)
	require.NoError(t, err)
	require.NoError(t, c.Close())
}

func TestCatalogExporter(t *testing.T) {
	ctx := context.Background()
	c := openTestCatalog(t)
	e := NewCatalogExporter(c, floatOpts)
	res := testResult(t, 8)

	out, err := e.Export(ctx, "sphere", res)
	require.NoError(t, err)
	assert.Equal(t, OutcomeWritten, out)

	entry, err := c.Get(ctx, "sphere")
	require.NoError(t, err)
	assert.Equal(t, res.ID, entry.ID)
	assert.Equal(t, "sphere", entry.Shape)
	assert.Equal(t, 8, entry.Resolution)
	assert.Equal(t, "sliced", entry.Mode)
	assert.Equal(t, "cpu", entry.Backend)
	assert.Equal(t, "float", entry.Encoding)
	assert.InDelta(t, res.Stats.Mean, entry.Mean, 1e-12)

	asset, err := c.Asset(ctx, "sphere")
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(res.Grid.Values, asset.Values))

	// A second bake under the same name is skipped and the first kept.
	out, err = e.Export(ctx, "sphere", testResult(t, 4))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, out)

	entry, err = c.Get(ctx, "sphere")
	require.NoError(t, err)
	assert.Equal(t, 8, entry.Resolution)

	entries, err := c.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCatalogNotFound(t *testing.T) {
	c := openTestCatalog(t)

	_, err := c.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.Asset(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMulti(t *testing.T) {
	dir := t.TempDir()
	c := openTestCatalog(t)
	m := Multi{NewFileExporter(dir, floatOpts), NewCatalogExporter(c, floatOpts)}
	res := testResult(t, 4)

	out, err := m.Export(context.Background(), "both", res)
	require.NoError(t, err)
	assert.Equal(t, OutcomeWritten, out)

	out, err = m.Export(context.Background(), "both", res)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, out)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "written", OutcomeWritten.String())
	assert.Equal(t, "skipped", OutcomeSkipped.String())
	assert.Equal(t, "Outcome(7)", Outcome(7).String())
}
