package services

import (
	"sort"
	"strings"
	"sync"

	"uploade/internal/models"
)

// Search result limits. DefaultSearchLimit applies when the caller supplies
// none; MaxSearchLimit is a hard ceiling.
const (
	DefaultSearchLimit = 50
	MaxSearchLimit     = 200
)

// SearchQuery is a filter set. All supplied filters are ANDed; zero values
// mean "no filter".
type SearchQuery struct {
	Category string
	Tags     []string
	Type     string
	Query    string // case-insensitive substring over titles
	Limit    int
}

// IndexService answers filtered, ranked queries over the append-only entry
// set. Mutation is funneled through the submission pipeline's critical
// section; the internal lock only protects readers racing a concurrent Add.
type IndexService struct {
	mu         sync.RWMutex
	entries    []*models.Entry
	byID       map[string]*models.Entry
	byCategory map[string][]*models.Entry
	byTag      map[string][]*models.Entry
	byType     map[string][]*models.Entry
	seq        map[string]int // id -> insertion order, for deterministic ties
	agentNums  map[int]struct{}
	hashes     map[string]struct{}
	totalSize  int64
}

// NewIndexService returns an empty index.
func NewIndexService() *IndexService {
	return &IndexService{
		byID:       make(map[string]*models.Entry),
		byCategory: make(map[string][]*models.Entry),
		byTag:      make(map[string][]*models.Entry),
		byType:     make(map[string][]*models.Entry),
		seq:        make(map[string]int),
		agentNums:  make(map[int]struct{}),
		hashes:     make(map[string]struct{}),
	}
}

// Add inserts an entry into the primary store and every secondary structure.
// Callers guarantee id uniqueness; Add does not re-check it.
func (s *IndexService) Add(e *models.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq[e.ID] = len(s.entries)
	s.entries = append(s.entries, e)
	s.byID[e.ID] = e
	s.byCategory[e.Category] = append(s.byCategory[e.Category], e)
	s.byType[e.Type] = append(s.byType[e.Type], e)
	for _, t := range e.Tags {
		s.byTag[t] = append(s.byTag[t], e)
	}
	s.agentNums[e.AgentNumber] = struct{}{}
	s.hashes[e.ContentHash] = struct{}{}
	s.totalSize += int64(e.SizeBytes)

	metricIndexEntries.Set(float64(len(s.entries)))
	metricStorageBytes.Set(float64(s.totalSize))
}

// Get returns the entry with the given id.
func (s *IndexService) Get(id string) (*models.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	return e, ok
}

// HasContentHash reports whether a body digest was ever accepted.
func (s *IndexService) HasContentHash(h string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.hashes[h]
	return ok
}

// Len returns the number of accepted entries.
func (s *IndexService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// TotalSize returns the cumulative rendered-document bytes.
func (s *IndexService) TotalSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalSize
}

// AgentCount returns the number of distinct contributing agents.
func (s *IndexService) AgentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.agentNums)
}

// CountByAgent returns how many accepted entries an agent has. The rewards
// ledger derives earned credit from this, so it is always computed live.
func (s *IndexService) CountByAgent(agentNumber int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.entries {
		if e.AgentNumber == agentNumber {
			n++
		}
	}
	return n
}

// Entries returns a copy of all entries in insertion order, for snapshotting.
func (s *IndexService) Entries() []models.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = *e
	}
	return out
}

// Search returns entries matching all supplied filters, newest first, ties
// broken by insertion order. Unknown filter values yield empty results.
//
// Single-filter queries read their secondary structure directly; the full
// scan only happens for title-substring or mixed queries.
func (s *IndexService) Search(q SearchQuery) []*models.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	var results []*models.Entry
	switch {
	case q.Category != "" && len(q.Tags) == 0 && q.Type == "" && q.Query == "":
		results = s.byCategory[q.Category]
	case len(q.Tags) == 1 && q.Category == "" && q.Type == "" && q.Query == "":
		results = s.byTag[q.Tags[0]]
	case q.Type != "" && q.Category == "" && len(q.Tags) == 0 && q.Query == "":
		results = s.byType[q.Type]
	default:
		if len(q.Tags) > 0 {
			results = s.intersectTags(q.Tags)
		} else {
			results = s.entries
		}
		results = filterEntries(results, func(e *models.Entry) bool {
			if q.Category != "" && e.Category != q.Category {
				return false
			}
			if q.Type != "" && e.Type != q.Type {
				return false
			}
			if q.Query != "" && !strings.Contains(strings.ToLower(e.Title), strings.ToLower(q.Query)) {
				return false
			}
			return true
		})
	}

	sorted := make([]*models.Entry, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return s.seq[sorted[i].ID] < s.seq[sorted[j].ID]
	})

	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// intersectTags computes the id-set intersection across per-tag postings and
// returns the matching entries in insertion order.
func (s *IndexService) intersectTags(tags []string) []*models.Entry {
	common := make(map[string]int, len(s.byTag[tags[0]]))
	for _, e := range s.byTag[tags[0]] {
		common[e.ID] = 1
	}
	for _, tag := range tags[1:] {
		for _, e := range s.byTag[tag] {
			if n, ok := common[e.ID]; ok && n == 1 {
				common[e.ID] = 2
			}
		}
		for id, n := range common {
			if n != 2 {
				delete(common, id)
			} else {
				common[id] = 1
			}
		}
	}

	out := make([]*models.Entry, 0, len(common))
	for _, e := range s.entries {
		if _, ok := common[e.ID]; ok {
			out = append(out, e)
		}
	}
	return out
}

func filterEntries(in []*models.Entry, keep func(*models.Entry) bool) []*models.Entry {
	out := make([]*models.Entry, 0, len(in))
	for _, e := range in {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
