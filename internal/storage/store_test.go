package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	journal, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = journal.Close() })
	if err := journal.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return journal
}

func TestMigrateIsIdempotent(t *testing.T) {
	journal := newTestJournal(t)
	if err := journal.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestRecordAndRecent(t *testing.T) {
	journal := newTestJournal(t)
	ctx := context.Background()
	base := time.UnixMilli(1_700_000_000_000)

	events := []struct {
		event    string
		username string
	}{
		{"login", "alice"},
		{"notify", "alice"},
		{"logout", "alice"},
	}
	for i, e := range events {
		if err := journal.Record(ctx, e.event, e.username, base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("record %s: %v", e.event, err)
		}
	}

	entries, err := journal.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].Event != "logout" || entries[1].Event != "notify" {
		t.Fatalf("expected newest first, got %+v", entries)
	}
	if entries[0].At != base.Add(2*time.Second).UnixMilli() {
		t.Fatalf("at = %d", entries[0].At)
	}
}

func TestRecentOnEmptyJournal(t *testing.T) {
	journal := newTestJournal(t)
	entries, err := journal.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("len = %d, want 0", len(entries))
	}
}
