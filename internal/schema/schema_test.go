package schema

import (
	"errors"
	"strings"
	"testing"

	"uploade/internal/models"
)

func validSubmission() Submission {
	return Submission{
		AgentID:  "agent-test-001",
		Category: "Python",
		Title:    "Generator exhaustion after the first full iteration",
		Content:  strings.Repeat("Problem: generators are single-use. Cause, solution, result follow. ", 3),
		Tags:     []string{"generators", "iterators"},
		Type:     "warning",
	}
}

func mustLoad(t *testing.T) *Schema {
	t.Helper()
	s, err := Load()
	if err != nil {
		t.Fatalf("failed to load embedded vocabulary: %v", err)
	}
	return s
}

func TestNormalizeValid(t *testing.T) {
	s := mustLoad(t)

	draft, err := s.Normalize(validSubmission())
	if err != nil {
		t.Fatalf("expected valid submission to normalize, got %v", err)
	}
	if draft.Category != "python" {
		t.Errorf("category should be lower-cased, got %q", draft.Category)
	}
	if draft.Type != "warning" {
		t.Errorf("expected type warning, got %q", draft.Type)
	}
}

func TestNormalizeDefaultsType(t *testing.T) {
	s := mustLoad(t)

	sub := validSubmission()
	sub.Type = ""
	draft, err := s.Normalize(sub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if draft.Type != DefaultType {
		t.Errorf("expected default type %q, got %q", DefaultType, draft.Type)
	}
}

func TestNormalizeRejectsUnknownEnumValues(t *testing.T) {
	s := mustLoad(t)

	cases := []struct {
		name   string
		mutate func(*Submission)
		field  string
	}{
		{"category", func(sub *Submission) { sub.Category = "cobol" }, "category"},
		{"tag", func(sub *Submission) { sub.Tags = []string{"generators", "quantum"} }, "tags"},
		{"type", func(sub *Submission) { sub.Type = "rant" }, "type"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sub := validSubmission()
			tc.mutate(&sub)
			_, err := s.Normalize(sub)
			var verr *models.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tc.field {
				t.Errorf("expected field %q, got %q", tc.field, verr.Field)
			}
		})
	}
}

func TestNormalizeBounds(t *testing.T) {
	s := mustLoad(t)

	sub := validSubmission()
	sub.Title = "too short"
	if _, err := s.Normalize(sub); err == nil {
		t.Error("expected short title to be rejected")
	}

	sub = validSubmission()
	sub.Content = "way too short"
	if _, err := s.Normalize(sub); err == nil {
		t.Error("expected short content to be rejected")
	}

	sub = validSubmission()
	sub.Tags = []string{"async", "sync", "loops", "recursion", "functions", "classes"}
	if _, err := s.Normalize(sub); err == nil {
		t.Error("expected more than 5 tags to be rejected")
	}

	sub = validSubmission()
	sub.Tags = nil
	if _, err := s.Normalize(sub); err == nil {
		t.Error("expected empty tags to be rejected")
	}
}

func TestNormalizeDedupesTagsPreservingOrder(t *testing.T) {
	s := mustLoad(t)

	sub := validSubmission()
	sub.Tags = []string{"sql", "Optimization", "sql", "queries"}
	draft, err := s.Normalize(sub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"sql", "optimization", "queries"}
	if len(draft.Tags) != len(want) {
		t.Fatalf("expected %d tags, got %v", len(want), draft.Tags)
	}
	for i, tag := range want {
		if draft.Tags[i] != tag {
			t.Errorf("tag %d: expected %q, got %q", i, tag, draft.Tags[i])
		}
	}
}

func TestVocabularyGroupsArePopulated(t *testing.T) {
	s := mustLoad(t)

	v := s.Vocabulary()
	if len(v.Categories["languages"]) == 0 || len(v.Categories["domains"]) == 0 {
		t.Error("category groups missing")
	}
	if len(v.Types) != 4 {
		t.Errorf("expected 4 types, got %d", len(v.Types))
	}
	if !s.ValidTag("race-condition") || !s.ValidCategory("debugging") || !s.ValidType("tip") {
		t.Error("expected known vocabulary members to validate")
	}
}
