package budget

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store persists per-job cost records in SQLite. It backs the `budget`
// CLI command and seeds the in-memory ledger when a serve process starts
// mid-day. The gate itself never talks to the store directly.
type Store struct {
	db *sql.DB
}

// JobRecord is one completed job's accounting row.
type JobRecord struct {
	JobID          string
	ModelUsed      string
	Success        bool
	CostUsed       float64
	ElapsedSeconds float64
	CreatedAt      time.Time
}

// OpenStore opens (creating if needed) the usage database at the given
// directory and runs migrations.
func OpenStore(dataPath string) (*Store, error) {
	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dataPath, "resolver.db"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS jobs (
		job_id TEXT PRIMARY KEY,
		model_used TEXT NOT NULL,
		success INTEGER NOT NULL,
		cost_used REAL NOT NULL,
		elapsed_seconds REAL NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`)
	return err
}

// RecordJob inserts one accounting row.
func (s *Store) RecordJob(rec JobRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT INTO jobs (job_id, model_used, success, cost_used, elapsed_seconds, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.JobID, rec.ModelUsed, rec.Success, rec.CostUsed, rec.ElapsedSeconds, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record job: %w", err)
	}
	return nil
}

// UsedSince sums the cost of all jobs recorded at or after the given time.
func (s *Store) UsedSince(since time.Time) (float64, error) {
	var total sql.NullFloat64
	err := s.db.QueryRow(
		`SELECT SUM(cost_used) FROM jobs WHERE created_at >= ?`, since,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum usage: %w", err)
	}
	return total.Float64, nil
}

// RecentJobs returns the most recent job records, newest first.
func (s *Store) RecentJobs(limit int) ([]JobRecord, error) {
	rows, err := s.db.Query(
		`SELECT job_id, model_used, success, cost_used, elapsed_seconds, created_at
		 FROM jobs ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var records []JobRecord
	for rows.Next() {
		var rec JobRecord
		if err := rows.Scan(&rec.JobID, &rec.ModelUsed, &rec.Success, &rec.CostUsed, &rec.ElapsedSeconds, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
