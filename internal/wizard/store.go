// Package wizard is the client-side core of the mortgage funnel: session
// tracking, step guarding, per-branch routing and the answer schema.
package wizard

import (
	"context"
	"errors"
)

// SessionStore is the key/value storage the wizard persists into. Get reports
// ok=false for a missing key. Delete ignores keys that do not exist.
type SessionStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

var (
	ErrUnknownBranch   = errors.New("UNKNOWN_BRANCH")
	ErrBranchLocked    = errors.New("BRANCH_LOCKED")
	ErrInvalidAnswer   = errors.New("INVALID_ANSWER")
	ErrUnexpectedKey   = errors.New("UNEXPECTED_KEY")
	ErrSessionRejected = errors.New("SESSION_REJECTED")
)
