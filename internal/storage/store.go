// Package storage persists the index snapshot, the identity mapping, the
// rewards ledger, and the rendered per-entry documents under one data
// directory. Every document write goes through an atomic temp-then-rename
// replace so readers never observe a half-written file.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"uploade/internal/models"
)

const (
	snapshotFile = "index.json"
	agentsFile   = "agents.json"
	rewardsFile  = "rewards.json"
	entriesDir   = "experiences"
)

// Snapshot is the persisted form of the index: metadata rows only, the
// bodies live in the rendered documents.
type Snapshot struct {
	Entries []models.Entry `json:"entries"`
}

// Store is the durable half of the acceptance path.
type Store struct {
	dataDir string
}

// New creates the data layout if needed and returns a store rooted at dataDir.
func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dataDir, entriesDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Store{dataDir: dataDir}, nil
}

// LoadSnapshot reads the persisted index. A missing file is a fresh start,
// not an error.
func (s *Store) LoadSnapshot() (*Snapshot, error) {
	var snap Snapshot
	if err := s.readJSON(snapshotFile, &snap); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Snapshot{}, nil
		}
		return nil, err
	}
	return &snap, nil
}

// SaveSnapshot atomically replaces the persisted index wholesale.
func (s *Store) SaveSnapshot(snap *Snapshot) error {
	return s.writeJSON(snapshotFile, snap)
}

// LoadAgents reads the credential-digest to agent-number mapping.
func (s *Store) LoadAgents() (map[string]int, error) {
	agents := make(map[string]int)
	if err := s.readJSON(agentsFile, &agents); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return agents, nil
		}
		return nil, err
	}
	return agents, nil
}

// SaveAgents atomically replaces the identity mapping document.
func (s *Store) SaveAgents(agents map[string]int) error {
	return s.writeJSON(agentsFile, agents)
}

// LoadRewards reads the rewards ledger document.
func (s *Store) LoadRewards() (*models.RewardsDocument, error) {
	doc := models.NewRewardsDocument()
	if err := s.readJSON(rewardsFile, doc); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return doc, nil
		}
		return nil, err
	}
	// Maps may be nil after decoding an older hand-edited document.
	if doc.Wallets == nil {
		doc.Wallets = make(map[string]string)
	}
	if doc.Claims == nil {
		doc.Claims = make(map[string]float64)
	}
	return doc, nil
}

// SaveRewards atomically replaces the rewards ledger document.
func (s *Store) SaveRewards(doc *models.RewardsDocument) error {
	return s.writeJSON(rewardsFile, doc)
}

// RenderDocument produces the canonical per-entry artifact: a markdown
// header (title, category, type, tags) followed by the raw body.
func RenderDocument(d *models.Draft) string {
	return fmt.Sprintf("# %s\n\nCategory: %s\nType: %s\nTags: %s\n\n%s",
		d.Title, d.Category, d.Type, strings.Join(d.Tags, ", "), d.Content)
}

// WriteDocument persists a rendered entry under experiences/<category>/<id>.md.
func (s *Store) WriteDocument(category, id, rendered string) error {
	dir := filepath.Join(s.dataDir, entriesDir, category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create category directory: %w", err)
	}
	rel, err := filepath.Rel(s.dataDir, filepath.Join(dir, id+".md"))
	if err != nil {
		return err
	}
	return s.writeAtomic(rel, []byte(rendered))
}

// ReadDocument returns the rendered artifact for an accepted entry.
func (s *Store) ReadDocument(category, id string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dataDir, entriesDir, category, id+".md"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", models.ErrNotFound
		}
		return "", err
	}
	return string(data), nil
}

func (s *Store) readJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dataDir, name))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

func (s *Store) writeJSON(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return s.writeAtomic(name, data)
}

// writeAtomic writes to a sibling temp file, fsyncs, then renames over the
// target. Readers see either the old document or the new one, never a blend.
func (s *Store) writeAtomic(rel string, data []byte) error {
	path := filepath.Join(s.dataDir, rel)
	tmp := path + ".tmp"

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
