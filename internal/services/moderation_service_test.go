package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"uploade/internal/models"
)

func cleanDraft(content string) *models.Draft {
	return &models.Draft{
		AgentID:  "test-agent-001",
		Category: "go",
		Title:    "A lesson about goroutine lifecycle management",
		Content:  content,
		Tags:     []string{"goroutine"},
		Type:     "lesson",
	}
}

// reviewerStub is an OpenAI-style chat completion endpoint that always
// returns the given verdict and counts how often it is called.
func reviewerStub(t *testing.T, calls *atomic.Int64, decision, reason string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		verdict, _ := json.Marshal(map[string]any{
			"decision": decision,
			"reason":   reason,
			"flags":    []string{},
		})
		resp := map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"content": string(verdict)}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func newTestModeration(t *testing.T, baseURL string) *ModerationService {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reviewer.json")
	cfg := fmt.Sprintf(`{"base_url": %q, "api_key": "test-key", "model": "test-model"}`, baseURL)
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return NewModerationService(path, 5*time.Second, 1000, nil)
}

func TestReviewApproves(t *testing.T) {
	var calls atomic.Int64
	srv := reviewerStub(t, &calls, "APPROVED", "")
	defer srv.Close()

	m := newTestModeration(t, srv.URL)
	d := cleanDraft("Problem: tests were flaky. Cause: shared state. Solution: isolate fixtures. Result: green builds.")
	got := m.Review(context.Background(), d)
	if !got.Approved {
		t.Fatalf("expected approval, got rejection: %s", got.Reason)
	}
	if calls.Load() != 1 {
		t.Errorf("reviewer called %d times, want 1", calls.Load())
	}
}

func TestReviewSemanticRejection(t *testing.T) {
	var calls atomic.Int64
	srv := reviewerStub(t, &calls, "REJECTED", "spam or low quality")
	defer srv.Close()

	m := newTestModeration(t, srv.URL)
	got := m.Review(context.Background(), cleanDraft("Problem: none really. Cause: n/a. Solution: n/a. Result: filler text to reach length."))
	if got.Approved {
		t.Fatal("expected rejection")
	}
	if got.Reason != "spam or low quality" {
		t.Errorf("reason = %q", got.Reason)
	}
}

// An embedded email must be caught by the deterministic scan; the semantic
// reviewer is never invoked for it.
func TestReviewScanShortCircuits(t *testing.T) {
	var calls atomic.Int64
	srv := reviewerStub(t, &calls, "APPROVED", "")
	defer srv.Close()

	m := newTestModeration(t, srv.URL)
	d := cleanDraft("Problem: outage. Cause: dns. Solution: mail admin@internal-ops.net for a zone fix. Result: resolved.")
	got := m.Review(context.Background(), d)
	if got.Approved {
		t.Fatal("expected rejection from the deterministic scan")
	}
	if got.Reason != "Email detected" {
		t.Errorf("reason = %q, want Email detected", got.Reason)
	}
	if calls.Load() != 0 {
		t.Errorf("semantic reviewer was called %d times, want 0", calls.Load())
	}
}

// A second review of identical content reuses the cached verdict instead of
// spending another reviewer call.
func TestReviewVerdictCache(t *testing.T) {
	var calls atomic.Int64
	srv := reviewerStub(t, &calls, "APPROVED", "")
	defer srv.Close()

	m := newTestModeration(t, srv.URL)
	d := cleanDraft("Problem: cache misses. Cause: key casing. Solution: normalize keys. Result: hit rate recovered.")
	m.Review(context.Background(), d)
	m.Review(context.Background(), d)
	if calls.Load() != 1 {
		t.Errorf("reviewer called %d times for identical content, want 1", calls.Load())
	}
}

func TestReviewFailsClosedOnBadResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices": [{"message": {"content": "not json at all"}}]}`)
	}))
	defer srv.Close()

	m := newTestModeration(t, srv.URL)
	d := cleanDraft("Problem: parser crash. Cause: bad input. Solution: validate first. Result: no more crashes.")
	got := m.Review(context.Background(), d)
	if got.Approved {
		t.Fatal("malformed reviewer output must not approve")
	}
	if got.Reason != FailClosedReason {
		t.Errorf("reason = %q, want %q", got.Reason, FailClosedReason)
	}
}

func TestReviewFailsClosedWhenUnreachable(t *testing.T) {
	m := newTestModeration(t, "http://127.0.0.1:1")
	got := m.Review(context.Background(), cleanDraft("Problem: a thing. Cause: another. Solution: the fix. Result: all good now."))
	if got.Approved {
		t.Fatal("unreachable reviewer must not approve")
	}
	if got.Reason != FailClosedReason {
		t.Errorf("reason = %q, want %q", got.Reason, FailClosedReason)
	}
}

// Fail-closed verdicts are transient and must not be cached: once the
// reviewer recovers, the same content gets a fresh review.
func TestReviewFailClosedNotCached(t *testing.T) {
	var calls atomic.Int64
	var healthy atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if !healthy.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		verdict, _ := json.Marshal(map[string]any{"decision": "APPROVED", "reason": "", "flags": []string{}})
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": string(verdict)}}},
		})
	}))
	defer srv.Close()

	m := newTestModeration(t, srv.URL)
	d := cleanDraft("Problem: drift. Cause: clock skew. Solution: ntp everywhere. Result: aligned timestamps.")

	if got := m.Review(context.Background(), d); got.Approved {
		t.Fatal("expected fail-closed rejection while reviewer is down")
	}
	healthy.Store(true)
	if got := m.Review(context.Background(), d); !got.Approved {
		t.Fatalf("expected approval after recovery, got %q", got.Reason)
	}
	if calls.Load() != 2 {
		t.Errorf("reviewer called %d times, want 2", calls.Load())
	}
}

func TestReviewUnconfiguredFailsClosed(t *testing.T) {
	m := NewModerationService(filepath.Join(t.TempDir(), "missing.json"), time.Second, 1000, nil)
	got := m.Review(context.Background(), cleanDraft("Problem: anything. Cause: something. Solution: a change. Result: better outcome."))
	if got.Approved {
		t.Fatal("unconfigured reviewer must not approve")
	}
	if got.Reason != FailClosedReason {
		t.Errorf("reason = %q, want %q", got.Reason, FailClosedReason)
	}
}
