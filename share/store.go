package share

import (
	"context"
	"time"
)

// Store persists links. Redeem must be atomic per token: the expiry check,
// the count check and the increment happen as one step, so concurrent calls
// never push RedemptionCount past MaxRedemptions.
type Store interface {
	// Create stores a new link. A token already in use fails with ALREADY_EXISTS.
	Create(ctx context.Context, link *Link) error

	// Get returns the link for token or NOT_FOUND.
	Get(ctx context.Context, token string) (*Link, error)

	// Redeem consumes one redemption at now and returns the updated link.
	// It fails with NOT_FOUND, LINK_EXPIRED or LINK_EXHAUSTED without
	// changing anything.
	Redeem(ctx context.Context, token string, now time.Time) (*Link, error)

	// Revoke marks the link revoked at at. Revoking twice keeps the first
	// timestamp. Unknown tokens fail with NOT_FOUND.
	Revoke(ctx context.Context, token string, at time.Time) (*Link, error)

	// ListByFile returns every link issued for fileID, oldest first.
	ListByFile(ctx context.Context, fileID string) ([]*Link, error)

	// TakeExpiredCopies returns up to limit materialized copies of links
	// expired at now and clears them from their links. A copy is handed out
	// at most once, also across concurrent callers.
	TakeExpiredCopies(ctx context.Context, now time.Time, limit int) ([]Copy, error)
}

// Copy is a temp-class object materialized for a link.
type Copy struct {
	Token string
	Path  string
}
