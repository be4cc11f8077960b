package export

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Faultbox/densitybaker/internal/bake"
	"github.com/Faultbox/densitybaker/internal/logger"
	"github.com/Faultbox/densitybaker/pkg/formats"
)

// AssetExt is the extension of baked volume files.
const AssetExt = ".asset"

// FileExporter writes each bake to <Dir>/<name>.asset.
type FileExporter struct {
	Dir  string
	opts Options
	log  *zap.Logger
}

// NewFileExporter creates a file exporter rooted at dir.
func NewFileExporter(dir string, opts Options) *FileExporter {
	return &FileExporter{Dir: dir, opts: opts, log: logger.Named("export")}
}

// AssetPath returns the path a bake named name is written to.
func (e *FileExporter) AssetPath(name string) string {
	return filepath.Join(e.Dir, name+AssetExt)
}

// Export creates the asset file. If the file already exists it is not
// touched and OutcomeSkipped is returned.
func (e *FileExporter) Export(ctx context.Context, name string, res *bake.Result) (Outcome, error) {
	if err := checkExport(name, res); err != nil {
		return OutcomeSkipped, err
	}
	if err := ctx.Err(); err != nil {
		return OutcomeSkipped, err
	}

	out, err := e.WriteAsset(name, e.opts.asset(name, res))
	if err != nil || out == OutcomeSkipped {
		return out, err
	}

	e.log.Info("asset written",
		zap.String("path", e.AssetPath(name)),
		zap.String("bake_id", res.ID.String()),
		zap.Stringer("encoding", e.opts.Encoding),
	)
	return OutcomeWritten, nil
}

// WriteAsset creates <Dir>/<name>.asset from an encoded asset, leaving an
// existing file untouched.
func (e *FileExporter) WriteAsset(name string, d *formats.DVOL) (Outcome, error) {
	if e.Dir != "" {
		if err := os.MkdirAll(e.Dir, 0755); err != nil {
			return OutcomeSkipped, fmt.Errorf("creating export dir: %w", err)
		}
	}

	path := e.AssetPath(name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, fs.ErrExist) {
		e.log.Info("asset already exists, not overwriting", zap.String("path", path))
		return OutcomeSkipped, nil
	}
	if err != nil {
		return OutcomeSkipped, fmt.Errorf("creating asset: %w", err)
	}

	if err := d.Encode(f); err != nil {
		f.Close()
		os.Remove(path)
		return OutcomeSkipped, fmt.Errorf("writing asset: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return OutcomeSkipped, fmt.Errorf("closing asset: %w", err)
	}
	return OutcomeWritten, nil
}
