// Package export delivers finished bakes: as .asset files on disk and as
// rows in a SQLite bake catalog. An exporter never overwrites an artifact
// that already exists under the same name.
package export

import (
	"context"
	"errors"
	"fmt"

	"github.com/Faultbox/densitybaker/internal/bake"
	"github.com/Faultbox/densitybaker/pkg/formats"
)

// Outcome reports what an exporter did with a bake.
type Outcome int

const (
	// OutcomeWritten means a new artifact was created.
	OutcomeWritten Outcome = iota
	// OutcomeSkipped means an artifact with the same name already existed
	// and was left untouched.
	OutcomeSkipped
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeWritten:
		return "written"
	case OutcomeSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Exporter delivers a bake result under a name.
type Exporter interface {
	Export(ctx context.Context, name string, res *bake.Result) (Outcome, error)
}

// Options controls how grids are encoded.
type Options struct {
	Encoding formats.Encoding
	Compress bool
}

func (o Options) asset(name string, res *bake.Result) *formats.DVOL {
	return formats.NewDVOL(name, res.Grid, o.Encoding, o.Compress)
}

var errNoResult = errors.New("no bake result")

func checkExport(name string, res *bake.Result) error {
	if name == "" {
		return fmt.Errorf("empty export name")
	}
	if res == nil || res.Grid == nil {
		return errNoResult
	}
	return nil
}

// Multi runs several exporters in order. The outcome is OutcomeWritten if
// any exporter wrote.
type Multi []Exporter

// Export runs every exporter, stopping at the first error.
func (m Multi) Export(ctx context.Context, name string, res *bake.Result) (Outcome, error) {
	out := OutcomeSkipped
	for _, e := range m {
		o, err := e.Export(ctx, name, res)
		if err != nil {
			return out, err
		}
		if o == OutcomeWritten {
			out = OutcomeWritten
		}
	}
	return out, nil
}
