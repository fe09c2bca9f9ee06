package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okian/pitchside/internal/domain/model"
	"github.com/okian/pitchside/pkg/logger"
	"github.com/okian/pitchside/pkg/metrics"
)

//go:embed schema.sql
var schemaSQL string

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// SQLiteStore implements Store on an embedded SQLite database.
type SQLiteStore struct {
	conn   *sql.DB
	logger logger.Logger
}

// Open opens (or creates) the SQLite database at path and applies the schema.
func Open(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	dsn := path
	if path != MemoryDSN {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open db: %w", ErrStorage, err)
	}
	// One connection keeps an in-memory database alive and serializes writers.
	conn.SetMaxOpenConns(1)
	if _, err := conn.ExecContext(ctx, schemaSQL); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: apply schema: %w", ErrStorage, err)
	}

	s := &SQLiteStore{conn: conn, logger: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("store")
	return s, nil
}

// Close closes the underlying connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, a model.Analysis) (err error) {
	defer s.observe("save", time.Now(), &err)

	if a.MatchID == "" || a.Version == "" {
		return fmt.Errorf("%w: match id and version are required", ErrInvalidAnalysis)
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("%w: encode analysis: %w", ErrStorage, err)
	}
	res, err := s.conn.ExecContext(ctx,
		`INSERT INTO analyses (match_id, version, run_id, created_at, event_count, payload)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(match_id, version) DO NOTHING`,
		a.MatchID, a.Version, a.RunID, a.CreatedAt.UTC().Format(time.RFC3339Nano), len(a.Events), string(payload))
	if err != nil {
		return fmt.Errorf("%w: insert analysis: %w", ErrStorage, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: insert analysis: %w", ErrStorage, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s@%s", ErrVersionExists, a.MatchID, a.Version)
	}
	s.logger.Info(ctx, "analysis stored",
		logger.String("match", a.MatchID),
		logger.String("version", a.Version),
		logger.Int("events", len(a.Events)))
	return nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, matchID, version string) (a model.Analysis, err error) {
	defer s.observe("get", time.Now(), &err)

	row := s.conn.QueryRowContext(ctx,
		`SELECT payload FROM analyses WHERE match_id = ? AND version = ?`, matchID, version)
	return decodeRow(row, matchID, version)
}

// Latest implements Store.
func (s *SQLiteStore) Latest(ctx context.Context, matchID string) (a model.Analysis, err error) {
	defer s.observe("latest", time.Now(), &err)

	row := s.conn.QueryRowContext(ctx,
		`SELECT payload FROM analyses WHERE match_id = ? ORDER BY rowid DESC LIMIT 1`, matchID)
	return decodeRow(row, matchID, "latest")
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, matchID string) (out []model.VersionInfo, err error) {
	defer s.observe("list", time.Now(), &err)

	rows, err := s.conn.QueryContext(ctx,
		`SELECT match_id, version, run_id, created_at, event_count
		 FROM analyses WHERE match_id = ? ORDER BY rowid`, matchID)
	if err != nil {
		return nil, fmt.Errorf("%w: list analyses: %w", ErrStorage, err)
	}
	defer rows.Close()

	out = []model.VersionInfo{}
	for rows.Next() {
		var (
			v       model.VersionInfo
			created string
		)
		if err := rows.Scan(&v.MatchID, &v.Version, &v.RunID, &created, &v.Events); err != nil {
			return nil, fmt.Errorf("%w: scan version: %w", ErrStorage, err)
		}
		if v.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("%w: parse created_at: %w", ErrStorage, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list analyses: %w", ErrStorage, err)
	}
	return out, nil
}

func decodeRow(row *sql.Row, matchID, version string) (model.Analysis, error) {
	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Analysis{}, fmt.Errorf("%w: %s@%s", ErrNotFound, matchID, version)
		}
		return model.Analysis{}, fmt.Errorf("%w: read analysis: %w", ErrStorage, err)
	}
	var a model.Analysis
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		return model.Analysis{}, fmt.Errorf("%w: decode analysis: %w", ErrStorage, err)
	}
	return a, nil
}

func (s *SQLiteStore) observe(op string, start time.Time, err *error) {
	status := "ok"
	switch {
	case *err == nil:
	case errors.Is(*err, ErrNotFound):
		status = "not_found"
	case errors.Is(*err, ErrVersionExists):
		status = "conflict"
	default:
		status = "error"
		metrics.RecordErrorByComponent("store", op)
	}
	metrics.RecordStoreOperation(op, status, float64(time.Since(start).Milliseconds()))
}
