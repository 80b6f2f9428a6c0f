package oplog

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists the operation history to a local SQLite file so
// it survives process restarts. Arguments and results are stored as
// JSON; rows are append-only.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS operations (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL,
	timestamp  TEXT NOT NULL,
	operation  TEXT NOT NULL,
	params     TEXT,
	result     TEXT,
	error      TEXT
);
`

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open operation log database")
	}

	// SQLite serializes writes; a single connection avoids lock churn.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "connect to operation log database")
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "enable WAL")
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create operations table")
	}
	return &SQLiteStore{db: db}, nil
}

// Append inserts one row.
func (s *SQLiteStore) Append(entry Entry) error {
	params, err := json.Marshal(entry.Args)
	if err != nil {
		return errors.Wrap(err, "encode params")
	}
	result, err := json.Marshal(entry.Result)
	if err != nil {
		return errors.Wrap(err, "encode result")
	}
	_, err = s.db.Exec(
		`INSERT INTO operations (id, timestamp, operation, params, result, error) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Timestamp.Format(time.RFC3339Nano), entry.Operation,
		string(params), string(result), entry.Error,
	)
	return errors.Wrap(err, "insert operation")
}

// Recent returns the last min(limit, count) rows in insertion order.
func (s *SQLiteStore) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		return []Entry{}, nil
	}
	rows, err := s.db.Query(
		`SELECT id, timestamp, operation, params, result, error FROM (
			SELECT * FROM operations ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query operations")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var ts, params, result string
		if err := rows.Scan(&entry.ID, &ts, &entry.Operation, &params, &result, &entry.Error); err != nil {
			return nil, errors.Wrap(err, "scan operation row")
		}
		entry.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, errors.Wrap(err, "parse timestamp")
		}
		if params != "" && params != "null" {
			if err := json.Unmarshal([]byte(params), &entry.Args); err != nil {
				return nil, errors.Wrap(err, "decode params")
			}
		}
		if result != "" && result != "null" {
			if err := json.Unmarshal([]byte(result), &entry.Result); err != nil {
				return nil, errors.Wrap(err, "decode result")
			}
		}
		entries = append(entries, entry)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, rows.Err()
}

// Count returns the total number of rows.
func (s *SQLiteStore) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM operations`).Scan(&n)
	return n, errors.Wrap(err, "count operations")
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
