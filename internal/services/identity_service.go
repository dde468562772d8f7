package services

import (
	"sync"

	"uploade/internal/security"
)

// IdentityService maps credential digests to stable, small agent numbers.
// Numbers are assigned sequentially on first registration and never reused,
// so historical entries stay attributable across restarts.
type IdentityService struct {
	mu     sync.RWMutex
	agents map[string]int // credential digest -> agent number
}

// NewIdentityService wraps an existing mapping (loaded from the agents
// document) or starts fresh when given nil.
func NewIdentityService(existing map[string]int) *IdentityService {
	if existing == nil {
		existing = make(map[string]int)
	}
	return &IdentityService{agents: existing}
}

// Register returns the digest and agent number for a credential, assigning
// the next number on first sight.
func (s *IdentityService) Register(credential string) (digest string, num int) {
	digest = security.CredentialDigest(credential)

	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.agents[digest]; ok {
		return digest, n
	}
	num = len(s.agents) + 1
	s.agents[digest] = num
	return digest, num
}

// Lookup resolves a credential without registering it.
func (s *IdentityService) Lookup(credential string) (digest string, num int, ok bool) {
	digest = security.CredentialDigest(credential)

	s.mu.RLock()
	defer s.mu.RUnlock()
	num, ok = s.agents[digest]
	return digest, num, ok
}

// Count returns the number of registered identities.
func (s *IdentityService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.agents)
}

// Snapshot returns a copy of the mapping for persistence.
func (s *IdentityService) Snapshot() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.agents))
	for k, v := range s.agents {
		out[k] = v
	}
	return out
}
