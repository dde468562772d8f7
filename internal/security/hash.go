package security

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest lengths, in hex characters. The content hash is deliberately
// truncated: a 64-bit digest is collision-resistant enough for the expected
// corpus size and keeps snapshot rows small.
const (
	ContentHashLen = 16
	TitleHashLen   = 8
)

// CredentialDigest returns the full SHA-256 hex digest of an agent
// credential. The digest is the only identity form that may be stored or
// logged; callers must never persist the raw credential.
func CredentialDigest(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}

// ContentHash returns the truncated SHA-256 hex digest of body content.
// It is computed over the body only, so the same lesson resubmitted under a
// different title still collides.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:ContentHashLen]
}

// TitleHash returns the short title digest used as the entry id suffix.
func TitleHash(title string) string {
	sum := sha256.Sum256([]byte(title))
	return hex.EncodeToString(sum[:])[:TitleHashLen]
}
