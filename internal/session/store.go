package session

import (
	"context"
	"errors"
	"time"
)

// ErrNoSession covers every way a handle can fail to resolve: forged or
// malformed handles, expired or destroyed sessions, and sessions whose
// user row no longer exists.
var ErrNoSession = errors.New("no valid session")

// Store holds session state keyed by session id. Only the user id is
// stored, never profile fields; the codec re-fetches the user on every
// resolve so a role change is visible immediately.
type Store interface {
	Set(ctx context.Context, id string, userID int64, ttl time.Duration) error
	// Get returns the referenced user id, or found=false when the id is
	// absent or expired.
	Get(ctx context.Context, id string) (userID int64, found bool, err error)
	// Refresh slides the expiry to now+ttl. Missing ids are a no-op.
	Refresh(ctx context.Context, id string, ttl time.Duration) error
	// Delete is idempotent.
	Delete(ctx context.Context, id string) error
}
