package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteConfig configures the SQLite store.
type SQLiteConfig struct {
	Path string `json:"path"`
}

// SQLiteStore persists runs to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(c SQLiteConfig) (*SQLiteStore, error) {
	if c.Path == "" {
		return nil, errors.New("sqlite store: empty path")
	}
	db, err := sql.Open("sqlite", c.Path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS repair_runs (
        id TEXT PRIMARY KEY,
        ts INTEGER NOT NULL,
        margin_ok INTEGER NOT NULL,
        orders INTEGER NOT NULL,
        record TEXT NOT NULL
    );
    CREATE INDEX IF NOT EXISTS repair_runs_ts ON repair_runs (ts);`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Append writes the record. Appending an existing id replaces it.
func (s *SQLiteStore) Append(ctx context.Context, rec RunRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	ok := 0
	if rec.Feasibility.MarginOK {
		ok = 1
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO repair_runs (id, ts, margin_ok, orders, record) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Timestamp.UnixNano(), ok, len(rec.Orders), string(b))
	return err
}

// Query returns runs matching q, oldest first.
func (s *SQLiteStore) Query(ctx context.Context, q RunQuery) ([]RunRecord, error) {
	var args []any
	query := `SELECT record FROM repair_runs WHERE 1=1`
	if q.ID != "" {
		query += ` AND id = ?`
		args = append(args, q.ID)
	}
	if !q.Start.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, q.Start.UnixNano())
	}
	if !q.End.IsZero() {
		query += ` AND ts <= ?`
		args = append(args, q.End.UnixNano())
	}
	query += ` ORDER BY ts DESC, id DESC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []RunRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r RunRecord
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("unmarshal run: %w", err)
		}
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sortAndLimit(res, 0), nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
