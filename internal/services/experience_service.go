package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"uploade/internal/logging"
	"uploade/internal/models"
	"uploade/internal/schema"
	"uploade/internal/security"
	"uploade/internal/storage"
)

// Moderator decides whether a normalized draft may enter the repository.
type Moderator interface {
	Review(ctx context.Context, d *models.Draft) ReviewDecision
}

// ExperienceService runs the acceptance pipeline: capacity check, rate
// limit, duplicate detection, moderation, then durable commit. Everything up
// to and including moderation runs concurrently across requests; only the
// commit goes through the critical section, which makes id assignment and
// the persisted snapshot atomic with respect to racing submissions.
type ExperienceService struct {
	index      *IndexService
	identities *IdentityService
	limiter    *SubmissionLimiter
	moderator  Moderator
	store      *storage.Store
	schema     *schema.Schema

	maxEntries      int
	maxStorageBytes int64

	mu          sync.Mutex
	lastCreated time.Time
	now         func() time.Time
}

// NewExperienceService wires the pipeline together.
func NewExperienceService(index *IndexService, identities *IdentityService, limiter *SubmissionLimiter, moderator Moderator, store *storage.Store, sch *schema.Schema, maxEntries int, maxStorageBytes int64) *ExperienceService {
	return &ExperienceService{
		index:           index,
		identities:      identities,
		limiter:         limiter,
		moderator:       moderator,
		store:           store,
		schema:          sch,
		maxEntries:      maxEntries,
		maxStorageBytes: maxStorageBytes,
		now:             time.Now,
	}
}

// Submit takes a raw submission through the full pipeline. It returns the
// assigned id and agent number on acceptance, or the first rejection hit.
func (s *ExperienceService) Submit(ctx context.Context, sub schema.Submission) (*models.SubmissionResult, error) {
	draft, err := s.schema.Normalize(sub)
	if err != nil {
		metricSubmissionsRejected.WithLabelValues("validation").Inc()
		return nil, err
	}

	if s.index.Len() >= s.maxEntries || s.index.TotalSize() >= s.maxStorageBytes {
		metricSubmissionsRejected.WithLabelValues("capacity").Inc()
		return nil, models.ErrStorageFull
	}

	digest := security.CredentialDigest(draft.AgentID)
	if !s.limiter.Admit(digest) {
		metricSubmissionsRejected.WithLabelValues("rate_limit").Inc()
		return nil, models.ErrRateLimited
	}

	contentHash := security.ContentHash(draft.Content)
	if s.index.HasContentHash(contentHash) {
		metricSubmissionsRejected.WithLabelValues("duplicate").Inc()
		return nil, models.ErrDuplicateContent
	}

	decision := s.moderator.Review(ctx, draft)
	if !decision.Approved {
		metricSubmissionsRejected.WithLabelValues("moderation").Inc()
		return nil, &models.ModerationRejectedError{Reason: decision.Reason, Flags: decision.Flags}
	}

	return s.commit(draft, contentHash)
}

// commit is the critical section: one acquisition per accepted submission
// covers id assignment, in-memory mutation, and the durable writes. Nothing
// becomes query-visible until the document and snapshot hit disk.
func (s *ExperienceService) commit(draft *models.Draft, contentHash string) (*models.SubmissionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Two races through moderation with identical bodies both reach here;
	// this recheck is the authoritative duplicate decision.
	if s.index.HasContentHash(contentHash) {
		metricSubmissionsRejected.WithLabelValues("duplicate").Inc()
		return nil, models.ErrDuplicateContent
	}

	ts := s.now().UTC().Truncate(time.Second)
	if !ts.After(s.lastCreated) {
		ts = s.lastCreated.Add(time.Second)
	}
	id := entryID(ts, draft.Title)
	for {
		if _, exists := s.index.Get(id); !exists {
			break
		}
		ts = ts.Add(time.Second)
		id = entryID(ts, draft.Title)
	}
	s.lastCreated = ts

	_, agentNum := s.identities.Register(draft.AgentID)

	rendered := storage.RenderDocument(draft)
	entry := &models.Entry{
		ID:          id,
		AgentNumber: agentNum,
		Category:    draft.Category,
		Title:       draft.Title,
		Tags:        draft.Tags,
		Type:        draft.Type,
		ContentHash: contentHash,
		CreatedAt:   ts,
		Date:        ts.Format("02 Jan 2006"),
		SizeBytes:   len(rendered),
	}

	if err := s.store.WriteDocument(entry.Category, entry.ID, rendered); err != nil {
		return nil, fmt.Errorf("failed to persist document %s: %w", entry.ID, err)
	}
	snap := &storage.Snapshot{Entries: append(s.index.Entries(), *entry)}
	if err := s.store.SaveSnapshot(snap); err != nil {
		return nil, fmt.Errorf("failed to persist index snapshot: %w", err)
	}
	if err := s.store.SaveAgents(s.identities.Snapshot()); err != nil {
		return nil, fmt.Errorf("failed to persist agent registry: %w", err)
	}

	s.index.Add(entry)
	metricSubmissionsAccepted.Inc()
	logging.WithSubmission(entry.ID, agentNum).Info("experience accepted",
		"category", entry.Category, "type", entry.Type, "size_bytes", entry.SizeBytes)

	return &models.SubmissionResult{ID: entry.ID, AgentNumber: agentNum}, nil
}

func entryID(ts time.Time, title string) string {
	return ts.Format("20060102150405") + "-" + security.TitleHash(title)
}

// Search returns list-shaped summaries for the given filters.
func (s *ExperienceService) Search(q SearchQuery) []models.EntrySummary {
	entries := s.index.Search(q)
	out := make([]models.EntrySummary, len(entries))
	for i, e := range entries {
		out[i] = e.Summary()
	}
	return out
}

// Fetch returns the rendered markdown document for an entry id.
func (s *ExperienceService) Fetch(id string) (string, error) {
	entry, ok := s.index.Get(id)
	if !ok {
		return "", models.ErrNotFound
	}
	return s.store.ReadDocument(entry.Category, entry.ID)
}

// Flush rewrites the snapshot and agent registry. Used by the periodic
// snapshot job and during shutdown.
func (s *ExperienceService) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.SaveSnapshot(&storage.Snapshot{Entries: s.index.Entries()}); err != nil {
		return err
	}
	return s.store.SaveAgents(s.identities.Snapshot())
}
