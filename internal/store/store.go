// Package store archives analysis runs in a sqlite database so results can be
// listed and fetched after the process exits.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no run has the requested id.
var ErrNotFound = errors.New("run not found")

// Run kinds.
const (
	KindOptimize = "optimize"
	KindPareto   = "pareto"
	KindCarbon   = "carbon"
	KindHeatmap  = "heatmap"
	KindShapley  = "shapley"
	KindMCMC     = "mcmc"
)

// Kinds lists every archived analysis kind.
var Kinds = []string{KindOptimize, KindPareto, KindCarbon, KindHeatmap, KindShapley, KindMCMC}

// Summary identifies an archived run without its payload.
type Summary struct {
	ID        string    `json:"id" yaml:"id"`
	Kind      string    `json:"kind" yaml:"kind"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Run is an archived analysis with its parameters and result payload as JSON.
type Run struct {
	Summary `yaml:",inline"`
	Params  json.RawMessage `json:"params" yaml:"-"`
	Payload json.RawMessage `json:"payload" yaml:"-"`
}

// Store manages the run archive.
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
	now    func() time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	params TEXT NOT NULL,
	payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
`

// Open creates or opens the archive at path.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("store path must not be empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite serializes writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Debug("opened run archive",
		zap.String("op", "store.Open"),
		zap.String("path", path),
	)
	return &Store{db: db, path: path, logger: logger, now: time.Now}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun archives one analysis and returns its generated id. params and
// payload are stored as JSON.
func (s *Store) SaveRun(ctx context.Context, kind string, params, payload any) (string, error) {
	if !validKind(kind) {
		return "", fmt.Errorf("unknown run kind %q", kind)
	}
	p, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("failed to encode run params: %w", err)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode run payload: %w", err)
	}

	id := uuid.NewString()
	created := s.now().UTC()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, kind, created_at, params, payload) VALUES (?, ?, ?, ?, ?)`,
		id, kind, created.UnixNano(), string(p), string(body),
	); err != nil {
		return "", fmt.Errorf("failed to save run: %w", err)
	}

	s.logger.Info("archived run",
		zap.String("op", "store.SaveRun"),
		zap.String("runId", id),
		zap.String("kind", kind),
		zap.Int("payloadBytes", len(body)),
	)
	return id, nil
}

// ListRuns returns archived runs, newest first. An empty kind lists every
// kind; a non-positive limit lists everything.
func (s *Store) ListRuns(ctx context.Context, kind string, limit int) ([]Summary, error) {
	query := `SELECT id, kind, created_at FROM runs`
	var args []any
	if kind != "" {
		if !validKind(kind) {
			return nil, fmt.Errorf("unknown run kind %q", kind)
		}
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum     Summary
			created int64
		)
		if err := rows.Scan(&sum.ID, &sum.Kind, &created); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		sum.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return out, nil
}

// LoadRun fetches one archived run by id.
func (s *Store) LoadRun(ctx context.Context, id string) (Run, error) {
	var (
		run             Run
		created         int64
		params, payload string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, kind, created_at, params, payload FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &run.Kind, &created, &params, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	run.CreatedAt = time.Unix(0, created).UTC()
	run.Params = json.RawMessage(params)
	run.Payload = json.RawMessage(payload)
	return run, nil
}

// DecodePayload unmarshals the run payload into v.
func (r Run) DecodePayload(v any) error {
	if err := json.Unmarshal(r.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s run %s: %w", r.Kind, r.ID, err)
	}
	return nil
}

func validKind(kind string) bool {
	for _, k := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}
