package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"uploade/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)

	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	snap := &Snapshot{Entries: []models.Entry{
		{
			ID:          "20260314092653-ab12cd34",
			AgentNumber: 1,
			Category:    "python",
			Title:       "Mutable default arguments sharing state",
			Tags:        []string{"functions", "debugging"},
			Type:        "warning",
			ContentHash: "0123456789abcdef",
			CreatedAt:   now,
			Date:        "14 Mar 2026",
			SizeBytes:   321,
		},
	}}

	if err := s.SaveSnapshot(snap); err != nil {
		t.Fatalf("failed to save snapshot: %v", err)
	}
	loaded, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("failed to load snapshot: %v", err)
	}
	if len(loaded.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(loaded.Entries))
	}
	got := loaded.Entries[0]
	if got.ID != snap.Entries[0].ID || got.ContentHash != snap.Entries[0].ContentHash {
		t.Errorf("round-trip mismatch: %+v", got)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("timestamp mismatch: %v", got.CreatedAt)
	}
}

func TestLoadSnapshotMissingFile(t *testing.T) {
	s := newTestStore(t)

	snap, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("missing snapshot should not error: %v", err)
	}
	if len(snap.Entries) != 0 {
		t.Errorf("expected empty snapshot, got %d entries", len(snap.Entries))
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SaveSnapshot(&Snapshot{}); err != nil {
		t.Fatal(err)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
	if _, err := os.Stat(filepath.Join(dir, "index.json")); err != nil {
		t.Errorf("snapshot file missing: %v", err)
	}
}

func TestRenderDocument(t *testing.T) {
	draft := &models.Draft{
		Title:    "SQLite locked errors under gunicorn",
		Category: "database",
		Type:     "lesson",
		Tags:     []string{"sql", "deadlock"},
		Content:  "Problem: ... Cause: ... Solution: ... Result: ...",
	}
	doc := RenderDocument(draft)

	if !strings.HasPrefix(doc, "# SQLite locked errors under gunicorn\n") {
		t.Errorf("missing title header: %q", doc)
	}
	for _, want := range []string{"Category: database", "Type: lesson", "Tags: sql, deadlock"} {
		if !strings.Contains(doc, want) {
			t.Errorf("rendered document missing %q", want)
		}
	}
	if !strings.HasSuffix(doc, draft.Content) {
		t.Error("raw body should close the document")
	}
}

func TestDocumentWriteRead(t *testing.T) {
	s := newTestStore(t)

	rendered := "# A title here\n\nCategory: go\nType: tip\nTags: http\n\nbody"
	if err := s.WriteDocument("go", "20260101000000-deadbeef", rendered); err != nil {
		t.Fatalf("failed to write document: %v", err)
	}
	got, err := s.ReadDocument("go", "20260101000000-deadbeef")
	if err != nil {
		t.Fatalf("failed to read document: %v", err)
	}
	if got != rendered {
		t.Errorf("document mismatch: %q", got)
	}
}

func TestReadDocumentNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ReadDocument("go", "nope")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRewardsRoundTrip(t *testing.T) {
	s := newTestStore(t)

	doc := models.NewRewardsDocument()
	doc.Wallets["digest-1"] = "0x1111111111111111111111111111111111111111"
	doc.Claims["digest-1"] = 14
	doc.Pending = append(doc.Pending, models.PendingSettlement{
		ID: "p-1", Identity: "digest-1", Wallet: doc.Wallets["digest-1"], Amount: 14,
	})

	if err := s.SaveRewards(doc); err != nil {
		t.Fatal(err)
	}
	loaded, err := s.LoadRewards()
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Claims["digest-1"] != 14 || len(loaded.Pending) != 1 {
		t.Errorf("rewards round-trip mismatch: %+v", loaded)
	}
}

func TestLoadRewardsMissingFile(t *testing.T) {
	s := newTestStore(t)

	doc, err := s.LoadRewards()
	if err != nil {
		t.Fatal(err)
	}
	if doc.Wallets == nil || doc.Claims == nil {
		t.Error("fresh rewards document should have initialized maps")
	}
}

func TestAgentsRoundTrip(t *testing.T) {
	s := newTestStore(t)

	agents := map[string]int{"digest-a": 1, "digest-b": 2}
	if err := s.SaveAgents(agents); err != nil {
		t.Fatal(err)
	}
	loaded, err := s.LoadAgents()
	if err != nil {
		t.Fatal(err)
	}
	if loaded["digest-a"] != 1 || loaded["digest-b"] != 2 {
		t.Errorf("agents round-trip mismatch: %v", loaded)
	}
}
