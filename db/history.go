// Package db keeps an append-only history of served predictions.
package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"forestcover/ml"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"

	DefaultRecentLimit = 50
	MaxRecentLimit     = 500
)

var schemas = map[string]string{
	DriverSQLite: `
    CREATE TABLE IF NOT EXISTS predictions (
        seq INTEGER PRIMARY KEY AUTOINCREMENT,
        id TEXT NOT NULL UNIQUE,
        input TEXT NOT NULL,
        label INTEGER NOT NULL,
        cover_type TEXT NOT NULL,
        confidence REAL NOT NULL,
        created_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_predictions_cover_type ON predictions(cover_type);`,
	DriverPostgres: `
    CREATE TABLE IF NOT EXISTS predictions (
        seq BIGSERIAL PRIMARY KEY,
        id TEXT NOT NULL UNIQUE,
        input TEXT NOT NULL,
        label INTEGER NOT NULL,
        cover_type TEXT NOT NULL,
        confidence DOUBLE PRECISION NOT NULL,
        created_at TIMESTAMPTZ NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_predictions_cover_type ON predictions(cover_type);`,
}

// Record is one stored prediction.
type Record struct {
	ID         string    `json:"id"`
	Input      ml.Input  `json:"input"`
	Label      int       `json:"label"`
	CoverType  string    `json:"cover_type"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewRecord captures a prediction for storage.
func NewRecord(in ml.Input, p ml.Prediction) Record {
	return Record{
		ID:         uuid.NewString(),
		Input:      in,
		Label:      p.Label,
		CoverType:  p.CoverType,
		Confidence: p.Confidence,
		CreatedAt:  time.Now().UTC(),
	}
}

type recordRow struct {
	Seq        int64     `db:"seq"`
	ID         string    `db:"id"`
	Input      string    `db:"input"`
	Label      int       `db:"label"`
	CoverType  string    `db:"cover_type"`
	Confidence float64   `db:"confidence"`
	CreatedAt  time.Time `db:"created_at"`
}

type Store struct {
	db     *sqlx.DB
	driver string
}

// Open connects to driver/dsn and creates the schema if needed.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	if _, ok := schemas[driver]; !ok {
		return nil, fmt.Errorf("unsupported history driver %q", driver)
	}
	conn, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if driver == DriverSQLite {
		// One writer; also keeps ":memory:" databases on a single connection.
		conn.SetMaxOpenConns(1)
	}
	store := &Store{db: conn, driver: driver}
	if err := store.Migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemas[s.driver]); err != nil {
		return fmt.Errorf("create history schema: %w", err)
	}
	return nil
}

func (s *Store) Save(ctx context.Context, r Record) error {
	if s == nil || s.db == nil {
		return errors.New("history store not initialized")
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	input, err := json.Marshal(r.Input)
	if err != nil {
		return fmt.Errorf("marshal input: %w", err)
	}
	query := s.db.Rebind(`
        INSERT INTO predictions (id, input, label, cover_type, confidence, created_at)
        VALUES (?, ?, ?, ?, ?, ?)`)
	_, err = s.db.ExecContext(ctx, query, r.ID, string(input), r.Label, r.CoverType, r.Confidence, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("save prediction: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first. limit is clamped to
// [1, MaxRecentLimit].
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}
	var rows []recordRow
	query := s.db.Rebind(`
        SELECT seq, id, input, label, cover_type, confidence, created_at
        FROM predictions
        ORDER BY seq DESC
        LIMIT ?`)
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		var in ml.Input
		if err := json.Unmarshal([]byte(row.Input), &in); err != nil {
			return nil, fmt.Errorf("decode stored input %s: %w", row.ID, err)
		}
		records = append(records, Record{
			ID:         row.ID,
			Input:      in,
			Label:      row.Label,
			CoverType:  row.CoverType,
			Confidence: row.Confidence,
			CreatedAt:  row.CreatedAt,
		})
	}
	return records, nil
}

// CountByCoverType returns how many stored predictions landed on each type.
func (s *Store) CountByCoverType(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		CoverType string `db:"cover_type"`
		N         int    `db:"n"`
	}
	if err := s.db.SelectContext(ctx, &rows, `SELECT cover_type, COUNT(*) AS n FROM predictions GROUP BY cover_type`); err != nil {
		return nil, fmt.Errorf("count predictions: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.CoverType] = row.N
	}
	return counts, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
