// Package results persists run summaries to a SQLite database so repeated
// experiments can be compared afterwards.
package results

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	uuid "github.com/satori/go.uuid"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so that lexicographic order on the stored text
// matches chronological order.
const timeLayout = "2006-01-02 15:04:05.000000000"

// A RunRecord summarizes one completed simulation run.
type RunRecord struct {
	ID               string
	Scenario         string
	Seed             int64
	StopTime         float64
	ClusterCount     int
	NodeCount        int
	RepIndices       string
	PacketsDelivered int
	FinalTime        float64
	WallMillis       int64
	CreatedAt        time.Time
}

// A Store reads and writes run records.
type Store struct {
	db *sql.DB
}

// Open opens the database at path, creating the schema if needed. Pass
// ":memory:" for a throwaway in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open results database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		scenario TEXT NOT NULL,
		seed INTEGER NOT NULL,
		stop_time REAL NOT NULL,
		cluster_count INTEGER NOT NULL,
		node_count INTEGER NOT NULL,
		rep_indices TEXT NOT NULL,
		packets_delivered INTEGER NOT NULL,
		final_time REAL NOT NULL,
		wall_millis INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate results database: %w", err)
	}

	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun inserts the record. A missing ID or creation time is filled in.
func (s *Store) SaveRun(ctx context.Context, rec *RunRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewV4().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (
			id, scenario, seed, stop_time, cluster_count, node_count,
			rep_indices, packets_delivered, final_time, wall_millis, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Scenario, rec.Seed, rec.StopTime,
		rec.ClusterCount, rec.NodeCount, rec.RepIndices,
		rec.PacketsDelivered, rec.FinalTime, rec.WallMillis,
		rec.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", rec.ID, err)
	}

	return nil
}

// ListRuns returns up to limit runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scenario, seed, stop_time, cluster_count, node_count,
			rep_indices, packets_delivered, final_time, wall_millis, created_at
		FROM runs
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var recs []RunRecord
	for rows.Next() {
		var rec RunRecord
		var createdAt string
		if err := rows.Scan(
			&rec.ID, &rec.Scenario, &rec.Seed, &rec.StopTime,
			&rec.ClusterCount, &rec.NodeCount, &rec.RepIndices,
			&rec.PacketsDelivered, &rec.FinalTime, &rec.WallMillis,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}

		rec.CreatedAt, err = time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse run timestamp %q: %w", createdAt, err)
		}

		recs = append(recs, rec)
	}

	return recs, rows.Err()
}
