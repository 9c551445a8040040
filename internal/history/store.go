// Package history records analysis runs in a SQLite database so metric
// trends can be followed across runs.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	cerrors "cppdep/internal/errors"
	"cppdep/internal/flaws"
	"cppdep/internal/report"
)

// ErrRunNotFound is returned by Get for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded analysis.
type Run struct {
	ID        string
	CreatedAt time.Time
	Project   string
	Version   string

	Findings int
	Errors   int
	Warnings int
	Waived   int

	Levels []LevelMetrics
}

// LevelMetrics are the headline figures of one level graph.
type LevelMetrics struct {
	Level  string
	Nodes  int
	Cycles int
	Levels int
	CCD    int
	ACD    *float64
	NCCD   *float64
}

// FromDocument summarizes a report for recording.
func FromDocument(doc *report.Document, project string) *Run {
	counts := flaws.CountBySeverity(doc.Findings)
	r := &Run{
		Project:  project,
		Version:  doc.Version,
		Findings: len(doc.Findings),
		Errors:   counts[flaws.Error],
		Warnings: counts[flaws.Warning],
		Waived:   doc.Waived,
	}
	for _, lr := range doc.Levels {
		r.Levels = append(r.Levels, LevelMetrics{
			Level:  lr.Level,
			Nodes:  lr.Summary.Internal,
			Cycles: lr.Summary.Cycles,
			Levels: lr.Summary.Levels,
			CCD:    lr.Summary.CCD,
			ACD:    lr.Summary.ACD,
			NCCD:   lr.Summary.NCCD,
		})
	}
	return r
}

// Store persists runs.
type Store struct {
	conn   *sql.DB
	logger *slog.Logger
	dbPath string
	now    func() time.Time
}

// OpenStore opens or creates the history database at path.
func OpenStore(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, cerrors.New(cerrors.IOFailure, "failed to create history directory", err)
	}
	_, statErr := os.Stat(path)
	exists := statErr == nil

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, cerrors.New(cerrors.IOFailure, "failed to open history database", err)
	}
	// pragmas are per connection
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			_ = conn.Close()
			return nil, cerrors.New(cerrors.IOFailure, "failed to set pragma", err)
		}
	}

	s := &Store{conn: conn, logger: logger, dbPath: path, now: time.Now}
	if !exists {
		logger.Info("creating history database", "path", path)
	}
	if err := s.initializeSchema(); err != nil {
		_ = conn.Close()
		return nil, cerrors.New(cerrors.IOFailure, "failed to initialize history schema", err)
	}
	return s, nil
}

func (s *Store) initializeSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			project TEXT NOT NULL,
			version TEXT NOT NULL,
			findings INTEGER NOT NULL,
			errors INTEGER NOT NULL,
			warnings INTEGER NOT NULL,
			waived INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);

		CREATE TABLE IF NOT EXISTS level_metrics (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			level TEXT NOT NULL,
			nodes INTEGER NOT NULL,
			cycles INTEGER NOT NULL,
			levels INTEGER NOT NULL,
			ccd INTEGER NOT NULL,
			acd REAL,
			nccd REAL,
			PRIMARY KEY (run_id, level)
		);

		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);
		INSERT OR REPLACE INTO schema_version (version) VALUES (1);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Path returns the database file.
func (s *Store) Path() string { return s.dbPath }

// Record stores r, assigning its ID and timestamp.
func (s *Store) Record(ctx context.Context, r *Run) error {
	r.ID = uuid.New().String()
	r.CreatedAt = s.now().UTC().Truncate(time.Second)

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return cerrors.New(cerrors.IOFailure, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, project, version, findings, errors, warnings, waived)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CreatedAt.Format(time.RFC3339), r.Project, r.Version,
		r.Findings, r.Errors, r.Warnings, r.Waived,
	)
	if err != nil {
		return cerrors.New(cerrors.IOFailure, "failed to insert run", err)
	}
	for _, m := range r.Levels {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO level_metrics (run_id, level, nodes, cycles, levels, ccd, acd, nccd)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, m.Level, m.Nodes, m.Cycles, m.Levels, m.CCD, nullFloat(m.ACD), nullFloat(m.NCCD),
		)
		if err != nil {
			return cerrors.New(cerrors.IOFailure, "failed to insert level metrics", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return cerrors.New(cerrors.IOFailure, "failed to commit run", err)
	}
	s.logger.Debug("recorded run", "id", r.ID, "findings", r.Findings)
	return nil
}

// List returns up to limit runs, newest first. A limit of zero or less
// returns all runs.
func (s *Store) List(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, created_at, project, version, findings, errors, warnings, waived
		FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, cerrors.New(cerrors.IOFailure, "failed to list runs", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, cerrors.New(cerrors.IOFailure, "failed to list runs", err)
	}
	for _, r := range runs {
		if r.Levels, err = s.levels(ctx, r.ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// Get returns one run with its metrics.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT id, created_at, project, version, findings, errors, warnings, waived
		FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if r.Levels, err = s.levels(ctx, r.ID); err != nil {
		return nil, err
	}
	return r, nil
}

// Prune deletes all but the newest keep runs and returns how many went.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	res, err := s.conn.ExecContext(ctx, `
		DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, cerrors.New(cerrors.IOFailure, "failed to prune runs", err)
	}
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM level_metrics WHERE run_id NOT IN (SELECT id FROM runs)`); err != nil {
		return 0, cerrors.New(cerrors.IOFailure, "failed to prune level metrics", err)
	}
	return res.RowsAffected()
}

func (s *Store) levels(ctx context.Context, id string) ([]LevelMetrics, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT level, nodes, cycles, levels, ccd, acd, nccd
		FROM level_metrics WHERE run_id = ?
		ORDER BY CASE level WHEN 'component' THEN 0 WHEN 'package' THEN 1 ELSE 2 END`, id)
	if err != nil {
		return nil, cerrors.New(cerrors.IOFailure, "failed to read level metrics", err)
	}
	defer func() { _ = rows.Close() }()

	var out []LevelMetrics
	for rows.Next() {
		var m LevelMetrics
		var acd, nccd sql.NullFloat64
		if err := rows.Scan(&m.Level, &m.Nodes, &m.Cycles, &m.Levels, &m.CCD, &acd, &nccd); err != nil {
			return nil, cerrors.New(cerrors.IOFailure, "failed to scan level metrics", err)
		}
		m.ACD, m.NCCD = floatPtr(acd), floatPtr(nccd)
		out = append(out, m)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var r Run
	var created string
	err := sc.Scan(&r.ID, &created, &r.Project, &r.Version, &r.Findings, &r.Errors, &r.Warnings, &r.Waived)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, cerrors.New(cerrors.IOFailure, "failed to scan run", err)
	}
	if r.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return nil, cerrors.New(cerrors.IOFailure, "bad run timestamp", err)
	}
	return &r, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	f := n.Float64
	return &f
}
