package models

import (
	"errors"
	"fmt"
)

// Expected, recoverable rejection outcomes. The submission pipeline
// short-circuits on the first of these; handlers map them to HTTP statuses.
var (
	ErrRateLimited        = errors.New("rate limit: max 3 uploads per hour")
	ErrDuplicateContent   = errors.New("duplicate content already exists")
	ErrStorageFull        = errors.New("storage full, no new uploads accepted")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredential  = errors.New("unknown agent credential")
	ErrWalletNotSet       = errors.New("no wallet address registered")
	ErrNothingToClaim     = errors.New("nothing to claim")
	ErrBelowPayoutMinimum = errors.New("not enough contributions for payout")
)

// ValidationError reports a field-level failure from submission normalization.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ModerationRejectedError carries the moderation verdict. Only Reason is ever
// surfaced to the submitter; Flags go to the audit log so rejected submitters
// cannot enumerate which checks they tripped.
type ModerationRejectedError struct {
	Reason string
	Flags  []string
}

func (e *ModerationRejectedError) Error() string {
	return "moderation rejected: " + e.Reason
}
