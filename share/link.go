package share

import (
	"time"

	"github.com/kbukum/filevault/errors"
	"github.com/kbukum/filevault/storage"
)

// State classifies a link at a point in time. Every state except StateActive
// is terminal.
type State string

const (
	StateActive    State = "active"
	StateExhausted State = "exhausted"
	StateExpired   State = "expired"
	StateRevoked   State = "revoked"
)

// ObjectRef locates a stored object by class and backend-relative path.
type ObjectRef struct {
	Class storage.Class `json:"class"`
	Path  string        `json:"path"`
}

// Link is a persisted share link. Token, ExpiresAt and MaxRedemptions never
// change after issuance.
type Link struct {
	Token           string    `json:"token"`
	Object          ObjectRef `json:"object"`
	FileID          string    `json:"file_id,omitempty"`
	OwnerID         string    `json:"owner_id"`
	ExpiresAt       time.Time `json:"expires_at"`
	MaxRedemptions  int       `json:"max_redemptions"`
	RedemptionCount int       `json:"redemption_count"`

	// MaterializedPath is the temp-class copy served instead of Object, if any.
	MaterializedPath string `json:"materialized_path,omitempty"`

	// RevokedAt is zero while the link has not been revoked.
	RevokedAt time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// State reports the link state at now. Revoked wins over expired, expired
// over exhausted.
func (l *Link) State(now time.Time) State {
	switch {
	case !l.RevokedAt.IsZero():
		return StateRevoked
	case !now.Before(l.ExpiresAt):
		return StateExpired
	case l.RedemptionCount >= l.MaxRedemptions:
		return StateExhausted
	default:
		return StateActive
	}
}

// Remaining returns how many redemptions are left.
func (l *Link) Remaining() int {
	if n := l.MaxRedemptions - l.RedemptionCount; n > 0 {
		return n
	}
	return 0
}

// Source returns the object a redemption streams: the materialized temp copy
// when present, the original object otherwise.
func (l *Link) Source() ObjectRef {
	if l.MaterializedPath != "" {
		return ObjectRef{Class: storage.ClassTemp, Path: l.MaterializedPath}
	}
	return l.Object
}

// Clone returns a copy that shares no memory with l.
func (l *Link) Clone() *Link {
	c := *l
	return &c
}

// RedeemError returns the error a redemption attempt fails with in state, or
// nil for an active link. Stores use it to classify a refused redemption.
func RedeemError(state State) error {
	switch state {
	case StateRevoked:
		return errors.LinkExpired().WithDetail("reason", string(StateRevoked))
	case StateExpired:
		return errors.LinkExpired()
	case StateExhausted:
		return errors.LinkExhausted()
	default:
		return nil
	}
}

// TruncateMillis drops sub-millisecond precision; stores keep expiry in ms.
func TruncateMillis(t time.Time) time.Time {
	return time.UnixMilli(t.UnixMilli()).UTC()
}
