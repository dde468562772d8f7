// Package schema holds the fixed submission vocabulary and turns raw
// submissions into normalized drafts before the core pipeline sees them.
package schema

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"uploade/internal/models"
)

//go:embed vocabulary.yaml
var vocabularyYAML []byte

// Field bounds enforced during normalization. Lengths are in characters.
const (
	MinAgentIDLen = 3
	MaxAgentIDLen = 100
	MinTitleLen   = 10
	MaxTitleLen   = 200
	MinContentLen = 50
	MaxContentLen = 5000
	MaxTags       = 5

	DefaultType = "lesson"
)

// Vocabulary is the grouped form served by the /schema endpoint.
type Vocabulary struct {
	Categories map[string][]string `yaml:"categories" json:"categories"`
	Tags       map[string][]string `yaml:"tags" json:"tags"`
	Types      []string            `yaml:"types" json:"types"`
}

// Submission is the raw inbound shape, prior to any normalization.
type Submission struct {
	AgentID  string   `json:"agent_id"`
	Category string   `json:"category"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
	Type     string   `json:"type"`
}

// Schema validates submissions against the embedded vocabulary.
type Schema struct {
	vocab      Vocabulary
	categories map[string]struct{}
	tags       map[string]struct{}
	types      map[string]struct{}
}

// Load parses the embedded vocabulary and builds the membership sets.
func Load() (*Schema, error) {
	var vocab Vocabulary
	if err := yaml.Unmarshal(vocabularyYAML, &vocab); err != nil {
		return nil, fmt.Errorf("failed to parse embedded vocabulary: %w", err)
	}

	s := &Schema{
		vocab:      vocab,
		categories: make(map[string]struct{}),
		tags:       make(map[string]struct{}),
		types:      make(map[string]struct{}),
	}
	for _, group := range vocab.Categories {
		for _, c := range group {
			s.categories[c] = struct{}{}
		}
	}
	for _, group := range vocab.Tags {
		for _, t := range group {
			s.tags[t] = struct{}{}
		}
	}
	for _, t := range vocab.Types {
		s.types[t] = struct{}{}
	}
	return s, nil
}

// Vocabulary returns the grouped vocabulary for the /schema document.
func (s *Schema) Vocabulary() Vocabulary { return s.vocab }

// ValidCategory reports vocabulary membership for an already-normalized value.
func (s *Schema) ValidCategory(v string) bool {
	_, ok := s.categories[v]
	return ok
}

// ValidTag reports vocabulary membership for an already-normalized value.
func (s *Schema) ValidTag(v string) bool {
	_, ok := s.tags[v]
	return ok
}

// ValidType reports vocabulary membership for an already-normalized value.
func (s *Schema) ValidType(v string) bool {
	_, ok := s.types[v]
	return ok
}

// Normalize lower-cases and trims the enumerated fields, enforces length
// bounds and vocabulary membership, dedupes tags preserving first-seen order,
// and defaults the type. Failures come back as *models.ValidationError with
// the offending field named.
func (s *Schema) Normalize(sub Submission) (*models.Draft, error) {
	agentID := strings.TrimSpace(sub.AgentID)
	if len(agentID) < MinAgentIDLen || len(agentID) > MaxAgentIDLen {
		return nil, &models.ValidationError{
			Field:   "agent_id",
			Message: fmt.Sprintf("must be %d-%d characters", MinAgentIDLen, MaxAgentIDLen),
		}
	}

	category := strings.ToLower(strings.TrimSpace(sub.Category))
	if !s.ValidCategory(category) {
		return nil, &models.ValidationError{
			Field:   "category",
			Message: "invalid category, see /schema for the valid list",
		}
	}

	title := strings.TrimSpace(sub.Title)
	if len(title) < MinTitleLen || len(title) > MaxTitleLen {
		return nil, &models.ValidationError{
			Field:   "title",
			Message: fmt.Sprintf("must be %d-%d characters", MinTitleLen, MaxTitleLen),
		}
	}

	content := strings.TrimSpace(sub.Content)
	if len(content) < MinContentLen || len(content) > MaxContentLen {
		return nil, &models.ValidationError{
			Field:   "content",
			Message: fmt.Sprintf("must be %d-%d characters", MinContentLen, MaxContentLen),
		}
	}

	if len(sub.Tags) == 0 || len(sub.Tags) > MaxTags {
		return nil, &models.ValidationError{
			Field:   "tags",
			Message: fmt.Sprintf("must supply 1-%d tags", MaxTags),
		}
	}
	seen := make(map[string]struct{}, len(sub.Tags))
	tags := make([]string, 0, len(sub.Tags))
	var invalid []string
	for _, raw := range sub.Tags {
		tag := strings.ToLower(strings.TrimSpace(raw))
		if !s.ValidTag(tag) {
			invalid = append(invalid, tag)
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	if len(invalid) > 0 {
		return nil, &models.ValidationError{
			Field:   "tags",
			Message: fmt.Sprintf("invalid tags: %s, see /schema for the valid list", strings.Join(invalid, ", ")),
		}
	}

	typ := strings.ToLower(strings.TrimSpace(sub.Type))
	if typ == "" {
		typ = DefaultType
	}
	if !s.ValidType(typ) {
		return nil, &models.ValidationError{
			Field:   "type",
			Message: "must be one of: lesson, warning, tip, solution",
		}
	}

	return &models.Draft{
		AgentID:  agentID,
		Category: category,
		Title:    title,
		Content:  content,
		Tags:     tags,
		Type:     typ,
	}, nil
}
