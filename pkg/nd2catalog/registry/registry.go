// Package registry provides a SQLite-backed index of built experiment
// catalogs, keyed by experiment ID.
package registry

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ukaji3/nd2catalog-go/pkg/nd2catalog/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS experiments (
	exp_id       TEXT PRIMARY KEY,
	dir          TEXT NOT NULL,
	device_type  TEXT NOT NULL DEFAULT '',
	schema       TEXT NOT NULL DEFAULT 'waves',
	catalog_path TEXT NOT NULL DEFAULT '',
	files        INTEGER NOT NULL DEFAULT 0,
	built_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_experiments_dir ON experiments(dir);
`

// ErrUnknownExperiment is returned by Resolve when no experiment has the
// requested ID.
var ErrUnknownExperiment = errors.New("unknown experiment")

// Experiment is one registered catalog.
type Experiment struct {
	ExpID       string
	Dir         string
	DeviceType  string
	Schema      models.Schema
	CatalogPath string
	Files       int
	BuiltAt     time.Time
}

// Registry wraps a sql.DB holding the experiments table.
type Registry struct {
	conn *sql.DB
}

// Open opens (or creates) the registry database at path and applies the
// schema.
func Open(path string) (*Registry, error) {
	conn, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("registry: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("registry: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("registry: apply schema: %w", err)
	}
	return &Registry{conn: conn}, nil
}

// Close closes the underlying database connection.
func (r *Registry) Close() error {
	return r.conn.Close()
}

// Upsert inserts or replaces the experiment with e.ExpID.
func (r *Registry) Upsert(e Experiment) error {
	if e.ExpID == "" {
		return fmt.Errorf("registry: empty experiment ID")
	}
	if e.BuiltAt.IsZero() {
		e.BuiltAt = time.Now()
	}
	_, err := r.conn.Exec(`
		INSERT INTO experiments (exp_id, dir, device_type, schema, catalog_path, files, built_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(exp_id) DO UPDATE SET
			dir          = excluded.dir,
			device_type  = excluded.device_type,
			schema       = excluded.schema,
			catalog_path = excluded.catalog_path,
			files        = excluded.files,
			built_at     = excluded.built_at
	`, e.ExpID, e.Dir, e.DeviceType, string(e.Schema), e.CatalogPath, e.Files, e.BuiltAt.UTC())
	if err != nil {
		return fmt.Errorf("registry: upsert experiment: %w", err)
	}
	return nil
}

// Resolve returns the experiment with the given ID. It returns
// ErrUnknownExperiment when there is none.
func (r *Registry) Resolve(expID string) (Experiment, error) {
	row := r.conn.QueryRow(`
		SELECT exp_id, dir, device_type, schema, catalog_path, files, built_at
		FROM experiments WHERE exp_id = ?`, expID)
	e, err := scanExperiment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Experiment{}, fmt.Errorf("%w: %s", ErrUnknownExperiment, expID)
	}
	if err != nil {
		return Experiment{}, fmt.Errorf("registry: resolve: %w", err)
	}
	return e, nil
}

// List returns every registered experiment ordered by ID.
func (r *Registry) List() ([]Experiment, error) {
	rows, err := r.conn.Query(`
		SELECT exp_id, dir, device_type, schema, catalog_path, files, built_at
		FROM experiments ORDER BY exp_id`)
	if err != nil {
		return nil, fmt.Errorf("registry: list: %w", err)
	}
	defer rows.Close()

	var out []Experiment
	for rows.Next() {
		e, err := scanExperiment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanExperiment(s scanner) (Experiment, error) {
	var (
		e      Experiment
		schema string
	)
	if err := s.Scan(&e.ExpID, &e.Dir, &e.DeviceType, &schema, &e.CatalogPath, &e.Files, &e.BuiltAt); err != nil {
		return Experiment{}, err
	}
	e.Schema = models.Schema(schema)
	return e, nil
}
