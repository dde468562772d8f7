package services

import (
	"sync"
	"time"
)

// SubmissionLimiter enforces the per-identity upload cap with a sliding
// window: at most max admissions within any trailing window, no mid-window
// refill. Windows live in memory only; a restart allows a fresh burst, which
// is an accepted property, not a bug.
type SubmissionLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	uploads map[string][]time.Time
	now     func() time.Time
}

// NewSubmissionLimiter returns a limiter admitting max submissions per window.
func NewSubmissionLimiter(max int, window time.Duration) *SubmissionLimiter {
	return &SubmissionLimiter{
		max:     max,
		window:  window,
		uploads: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Admit prunes instants older than the window, admits if fewer than max
// remain, and records the current instant on admission.
func (l *SubmissionLimiter) Admit(identity string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	kept := l.uploads[identity][:0]
	for _, t := range l.uploads[identity] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.max {
		l.uploads[identity] = kept
		return false
	}
	l.uploads[identity] = append(kept, now)
	return true
}

// RetryAfter returns the window length, surfaced to rejected submitters as a
// fixed retry hint.
func (l *SubmissionLimiter) RetryAfter() time.Duration {
	return l.window
}
