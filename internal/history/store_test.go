package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "journal", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Record("cmd-1", "echo one", 0, 120*time.Millisecond, 4, false); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Record("cmd-2", "seq 1 100000", -1, 3*time.Second, 50000, true); err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	// Newest first.
	if entries[0].CommandID != "cmd-2" {
		t.Errorf("first entry %q", entries[0].CommandID)
	}
	if entries[0].ExitCode != -1 || !entries[0].Truncated {
		t.Errorf("entry %+v", entries[0])
	}
	if entries[0].DurationMS != 3000 {
		t.Errorf("duration %d", entries[0].DurationMS)
	}
	if entries[0].RanAt.IsZero() {
		t.Error("ran_at not recorded")
	}
	if entries[1].CommandID != "cmd-1" || entries[1].OutputBytes != 4 {
		t.Errorf("entry %+v", entries[1])
	}
}

func TestRecentHonorsLimit(t *testing.T) {
	s := openTestStore(t)
	for i := 0; i < 5; i++ {
		if err := s.Record("cmd", "true", 0, time.Millisecond, 0, false); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	entries, err := s.Recent(context.Background(), 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if err := s1.Record("cmd-1", "ls", 0, time.Millisecond, 10, false); err != nil {
		t.Fatalf("Record: %v", err)
	}
	s1.Close()

	// Reopening applies migrations again and keeps existing rows.
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer s2.Close()
	if err := s2.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	entries, err := s2.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry after reopen, got %d", len(entries))
	}
}
