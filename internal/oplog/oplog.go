// Package oplog maintains the append-only history of attempted robot
// operations. Entries are never mutated or deleted once appended; readers
// only ever see the most recent window.
package oplog

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DefaultRecentLimit is the window size used when a caller does not ask
// for a specific number of entries.
const DefaultRecentLimit = 50

// Entry is one attempted operation with its inputs and outcome.
type Entry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Operation string         `json:"operation"`
	Args      map[string]any `json:"params,omitempty"`
	Result    any            `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Store persists entries. Append is O(1); Recent returns the last
// min(limit, count) entries in insertion order and must not mutate the
// log. A non-positive limit yields an empty slice.
type Store interface {
	Append(entry Entry) error
	Recent(limit int) ([]Entry, error)
	Count() (int, error)
}

// Log wraps a Store and mirrors every entry to the process logger, so
// the operation history is visible in the logs as it is recorded.
type Log struct {
	store  Store
	logger *slog.Logger
}

// New creates a Log over the given store.
func New(store Store, logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{store: store, logger: logger}
}

// Record appends one entry for the named operation. A failing store is
// reported but never surfaces to the operation itself: history loss must
// not fail robot commands.
func (l *Log) Record(operation string, args map[string]any, result any, errText string) {
	entry := Entry{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Operation: operation,
		Args:      args,
		Result:    result,
		Error:     errText,
	}
	if err := l.store.Append(entry); err != nil {
		l.logger.Warn("operation log append failed", "operation", operation, "error", err)
		return
	}
	if errText != "" {
		l.logger.Info("operation failed", "operation", operation, "params", args, "error", errText)
	} else {
		l.logger.Info("operation completed", "operation", operation, "params", args)
	}
}

// Recent returns the most recent limit entries in insertion order.
func (l *Log) Recent(limit int) ([]Entry, error) {
	return l.store.Recent(limit)
}

// Count returns the total number of recorded operations.
func (l *Log) Count() (int, error) {
	return l.store.Count()
}
