package oplog_test

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/ZhangJunboX/mcp-hackathon-fall-2025/internal/oplog"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func recordN(l *oplog.Log, n int) {
	for i := 0; i < n; i++ {
		l.Record(fmt.Sprintf("op-%d", i), map[string]any{"i": i}, "ok", "")
	}
}

func TestMemoryRecentReturnsLastEntriesInOrder(t *testing.T) {
	l := oplog.New(oplog.NewMemoryStore(0), discardLogger())
	recordN(l, 8)

	entries, err := l.Recent(5)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(entries))
	}
	for i, entry := range entries {
		want := fmt.Sprintf("op-%d", i+3)
		if entry.Operation != want {
			t.Errorf("entry %d operation = %q, want %q", i, entry.Operation, want)
		}
	}
}

func TestMemoryRecentZeroLimitIsEmpty(t *testing.T) {
	l := oplog.New(oplog.NewMemoryStore(0), discardLogger())
	recordN(l, 3)

	for _, limit := range []int{0, -1} {
		entries, err := l.Recent(limit)
		if err != nil {
			t.Fatalf("Recent(%d): %v", limit, err)
		}
		if len(entries) != 0 {
			t.Errorf("Recent(%d) returned %d entries, want 0", limit, len(entries))
		}
	}
}

func TestMemoryRecentLimitExceedsLength(t *testing.T) {
	l := oplog.New(oplog.NewMemoryStore(0), discardLogger())
	recordN(l, 3)

	entries, err := l.Recent(50)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("expected 3 entries, got %d", len(entries))
	}
}

func TestMemoryCapacityEvictsOldest(t *testing.T) {
	store := oplog.NewMemoryStore(4)
	l := oplog.New(store, discardLogger())
	recordN(l, 10)

	count, err := store.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected 4 retained entries, got %d", count)
	}

	entries, _ := l.Recent(oplog.DefaultRecentLimit)
	if entries[0].Operation != "op-6" {
		t.Errorf("oldest retained entry = %q, want op-6", entries[0].Operation)
	}
	if entries[len(entries)-1].Operation != "op-9" {
		t.Errorf("newest entry = %q, want op-9", entries[len(entries)-1].Operation)
	}
}

func TestRecordKeepsFailureDetail(t *testing.T) {
	store := oplog.NewMemoryStore(0)
	l := oplog.New(store, discardLogger())

	l.Record("bcap_robot_move_to_pose", map[string]any{"pose": []float64{1, 2, 3}}, nil, "access denied")

	entries, _ := l.Recent(1)
	if len(entries) != 1 {
		t.Fatal("expected one entry")
	}
	if entries[0].Error != "access denied" {
		t.Errorf("error text = %q", entries[0].Error)
	}
	if entries[0].ID == "" {
		t.Error("expected entry ID to be assigned")
	}
	if entries[0].Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oplog.db")
	store, err := oplog.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	l := oplog.New(store, discardLogger())
	recordN(l, 6)
	l.Record("bcap_disconnect", nil, nil, "not connected")

	count, err := store.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 7 {
		t.Fatalf("expected 7 rows, got %d", count)
	}

	entries, err := store.Recent(3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	last := entries[2]
	if last.Operation != "bcap_disconnect" || last.Error != "not connected" {
		t.Errorf("unexpected last entry %+v", last)
	}
	if entries[0].Operation != "op-4" {
		t.Errorf("window start = %q, want op-4", entries[0].Operation)
	}

	if got, _ := store.Recent(0); len(got) != 0 {
		t.Errorf("Recent(0) returned %d entries, want 0", len(got))
	}
}
