package export

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/Faultbox/densitybaker/internal/bake"
	"github.com/Faultbox/densitybaker/internal/logger"
	"github.com/Faultbox/densitybaker/pkg/formats"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when no bake has the requested name.
var ErrNotFound = errors.New("bake not found")

// Catalog is a SQLite database of finished bakes, keyed by export name.
type Catalog struct {
	db  *sql.DB
	log *zap.Logger
}

// Entry is one catalogued bake.
type Entry struct {
	ID         uuid.UUID
	Name       string
	Shape      string
	Params     string
	Resolution int
	Mode       string
	Backend    string
	Encoding   string
	Mean       float64
	StdDev     float64
	Min        float64
	Max        float64
	Duration   time.Duration
	CreatedAt  time.Time
}

// OpenCatalog opens (creating if needed) the catalog at path and applies
// pending migrations.
func OpenCatalog(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configuring catalog: %w", err)
	}

	c := &Catalog{db: db, log: logger.Named("catalog")}
	if err := c.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Catalog) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(c.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{log: c.log}
	// m is not closed: that would close the underlying DB.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// SchemaVersion returns the applied migration version.
func (c *Catalog) SchemaVersion() (uint, error) {
	var v uint
	err := c.db.QueryRow("SELECT version FROM schema_migrations LIMIT 1").Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Insert stores res and its encoded asset under name. An existing row with
// the same name is kept and OutcomeSkipped returned.
func (c *Catalog) Insert(ctx context.Context, name string, res *bake.Result, asset *formats.DVOL) (Outcome, error) {
	blob, err := asset.MarshalBinary()
	if err != nil {
		return OutcomeSkipped, fmt.Errorf("encoding asset: %w", err)
	}

	r, err := c.db.ExecContext(ctx, `
		INSERT INTO bakes (
			bake_id, name, shape, params, resolution, mode, backend, encoding,
			mean, stddev, min_value, max_value, duration_ms, asset, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING`,
		res.ID.String(), name, res.Params.Shape.Kind().String(), res.Params.String(),
		res.Resolution, string(res.Mode), res.Backend, asset.Encoding.String(),
		res.Stats.Mean, res.Stats.StdDev, res.Stats.Min, res.Stats.Max,
		res.Duration.Milliseconds(), blob, time.Now().UnixMilli(),
	)
	if err != nil {
		return OutcomeSkipped, fmt.Errorf("inserting bake: %w", err)
	}
	n, err := r.RowsAffected()
	if err != nil {
		return OutcomeSkipped, err
	}
	if n == 0 {
		return OutcomeSkipped, nil
	}
	return OutcomeWritten, nil
}

const entryColumns = `bake_id, name, shape, params, resolution, mode, backend, encoding,
	mean, stddev, min_value, max_value, duration_ms, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e          Entry
		id         string
		durationMs int64
		createdMs  int64
	)
	err := s.Scan(&id, &e.Name, &e.Shape, &e.Params, &e.Resolution, &e.Mode, &e.Backend, &e.Encoding,
		&e.Mean, &e.StdDev, &e.Min, &e.Max, &durationMs, &createdMs)
	if err != nil {
		return Entry{}, err
	}
	if e.ID, err = uuid.Parse(id); err != nil {
		return Entry{}, fmt.Errorf("bake %q: %w", e.Name, err)
	}
	e.Duration = time.Duration(durationMs) * time.Millisecond
	e.CreatedAt = time.UnixMilli(createdMs)
	return e, nil
}

// List returns all bakes, newest first.
func (c *Catalog) List(ctx context.Context) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT "+entryColumns+" FROM bakes ORDER BY created_at DESC, name")
	if err != nil {
		return nil, fmt.Errorf("listing bakes: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get returns the entry named name.
func (c *Catalog) Get(ctx context.Context, name string) (Entry, error) {
	e, err := scanEntry(c.db.QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM bakes WHERE name = ?", name))
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return e, err
}

// Asset decodes the stored asset of the bake named name.
func (c *Catalog) Asset(ctx context.Context, name string) (*formats.DVOL, error) {
	var blob []byte
	err := c.db.QueryRowContext(ctx, "SELECT asset FROM bakes WHERE name = ?", name).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return formats.ParseDVOL(blob)
}

// CatalogExporter records bakes in a Catalog.
type CatalogExporter struct {
	catalog *Catalog
	opts    Options
	log     *zap.Logger
}

// NewCatalogExporter creates an exporter writing to c.
func NewCatalogExporter(c *Catalog, opts Options) *CatalogExporter {
	return &CatalogExporter{catalog: c, opts: opts, log: logger.Named("export")}
}

// Export inserts the bake. A bake already catalogued under name is kept.
func (e *CatalogExporter) Export(ctx context.Context, name string, res *bake.Result) (Outcome, error) {
	if err := checkExport(name, res); err != nil {
		return OutcomeSkipped, err
	}
	out, err := e.catalog.Insert(ctx, name, res, e.opts.asset(name, res))
	if err != nil {
		return out, err
	}
	if out == OutcomeSkipped {
		e.log.Info("bake already catalogued, not overwriting", zap.String("name", name))
	} else {
		e.log.Info("bake catalogued", zap.String("name", name), zap.String("bake_id", res.ID.String()))
	}
	return out, nil
}

// migrateLogger adapts migrate.Logger to zap.
type migrateLogger struct {
	log *zap.Logger
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.log.Sugar().Debugf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return false
}
