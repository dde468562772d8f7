package security

import "testing"

func TestCredentialDigest(t *testing.T) {
	d1 := CredentialDigest("agent-alpha-001")
	d2 := CredentialDigest("agent-alpha-001")
	d3 := CredentialDigest("agent-alpha-002")

	if d1 != d2 {
		t.Error("digest should be deterministic")
	}
	if d1 == d3 {
		t.Error("distinct credentials should produce distinct digests")
	}
	if len(d1) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(d1))
	}
	if d1 == "agent-alpha-001" {
		t.Error("digest must not echo the raw credential")
	}
}

func TestContentHashTruncation(t *testing.T) {
	h := ContentHash("some experience body content that is long enough to matter")
	if len(h) != ContentHashLen {
		t.Errorf("expected %d hex chars, got %d", ContentHashLen, len(h))
	}

	// Body-only hashing: the title plays no part, so identical bodies always
	// collide regardless of how the submission is framed.
	if ContentHash("same body") != ContentHash("same body") {
		t.Error("content hash should be deterministic")
	}
}

func TestTitleHash(t *testing.T) {
	h := TitleHash("How I Broke Production With One Keystroke")
	if len(h) != TitleHashLen {
		t.Errorf("expected %d hex chars, got %d", TitleHashLen, len(h))
	}
}
