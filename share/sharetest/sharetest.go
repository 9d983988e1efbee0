// Package sharetest provides the conformance suite every share.Store must pass.
package sharetest

import (
	"context"
	"crypto/rand"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/filevault/errors"
	"github.com/kbukum/filevault/share"
	"github.com/kbukum/filevault/storage"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) share.Store

// NewLink returns an unsaved link with a random token expiring in ttl.
func NewLink(t testing.TB, fileID string, ttl time.Duration, maxRedemptions int) *share.Link {
	t.Helper()
	token, err := share.NewToken(rand.Reader)
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	now := share.TruncateMillis(time.Now())
	return &share.Link{
		Token:          token,
		Object:         share.ObjectRef{Class: storage.ClassPrivate, Path: "owner/ab/" + fileID},
		FileID:         fileID,
		OwnerID:        "owner",
		ExpiresAt:      now.Add(ttl),
		MaxRedemptions: maxRedemptions,
		CreatedAt:      now,
	}
}

func create(t *testing.T, s share.Store, l *share.Link) {
	t.Helper()
	if err := s.Create(context.Background(), l); err != nil {
		t.Fatalf("Create: %v", err)
	}
}

// RunStoreSuite runs the store contract against stores built by newStore.
func RunStoreSuite(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("CreateAndGet", func(t *testing.T) {
		s := newStore(t)
		l := NewLink(t, "file-1", time.Hour, 3)
		l.MaterializedPath = "shares/copy-1"
		create(t, s, l)

		got, err := s.Get(ctx, l.Token)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Token != l.Token || got.FileID != l.FileID || got.OwnerID != l.OwnerID {
			t.Errorf("identity mismatch: %+v", got)
		}
		if got.Object != l.Object || got.MaterializedPath != l.MaterializedPath {
			t.Errorf("object mismatch: %+v", got)
		}
		if !got.ExpiresAt.Equal(l.ExpiresAt) || !got.CreatedAt.Equal(l.CreatedAt) {
			t.Errorf("times not preserved at ms precision: got %v/%v want %v/%v",
				got.ExpiresAt, got.CreatedAt, l.ExpiresAt, l.CreatedAt)
		}
		if got.MaxRedemptions != 3 || got.RedemptionCount != 0 || !got.RevokedAt.IsZero() {
			t.Errorf("counters mismatch: %+v", got)
		}
	})

	t.Run("DuplicateToken", func(t *testing.T) {
		s := newStore(t)
		l := NewLink(t, "file-1", time.Hour, 1)
		create(t, s, l)
		dup := NewLink(t, "file-2", time.Hour, 5)
		dup.Token = l.Token
		if err := s.Create(ctx, dup); !errors.HasCode(err, errors.ErrCodeAlreadyExists) {
			t.Fatalf("got %v, want ALREADY_EXISTS", err)
		}
		got, _ := s.Get(ctx, l.Token)
		if got == nil || got.FileID != "file-1" {
			t.Errorf("original link was overwritten: %+v", got)
		}
	})

	t.Run("UnknownToken", func(t *testing.T) {
		s := newStore(t)
		unknown := NewLink(t, "f", time.Hour, 1).Token
		if _, err := s.Get(ctx, unknown); !errors.HasCode(err, errors.ErrCodeNotFound) {
			t.Errorf("Get: got %v, want NOT_FOUND", err)
		}
		if _, err := s.Redeem(ctx, unknown, time.Now()); !errors.HasCode(err, errors.ErrCodeNotFound) {
			t.Errorf("Redeem: got %v, want NOT_FOUND", err)
		}
		if _, err := s.Revoke(ctx, unknown, time.Now()); !errors.HasCode(err, errors.ErrCodeNotFound) {
			t.Errorf("Revoke: got %v, want NOT_FOUND", err)
		}
	})

	t.Run("RedeemUntilExhausted", func(t *testing.T) {
		s := newStore(t)
		l := NewLink(t, "file-1", time.Hour, 2)
		create(t, s, l)

		for want := 1; want <= 2; want++ {
			got, err := s.Redeem(ctx, l.Token, time.Now())
			if err != nil {
				t.Fatalf("redeem %d: %v", want, err)
			}
			if got.RedemptionCount != want {
				t.Errorf("count = %d, want %d", got.RedemptionCount, want)
			}
		}
		if _, err := s.Redeem(ctx, l.Token, time.Now()); !errors.HasCode(err, errors.ErrCodeLinkExhausted) {
			t.Fatalf("third redeem: got %v, want LINK_EXHAUSTED", err)
		}
		got, _ := s.Get(ctx, l.Token)
		if got.RedemptionCount != 2 {
			t.Errorf("refused redemption mutated count: %d", got.RedemptionCount)
		}
	})

	t.Run("RedeemPastExpiry", func(t *testing.T) {
		s := newStore(t)
		l := NewLink(t, "file-1", time.Hour, 5)
		create(t, s, l)

		_, err := s.Redeem(ctx, l.Token, l.ExpiresAt.Add(time.Millisecond))
		if !errors.HasCode(err, errors.ErrCodeLinkExpired) {
			t.Fatalf("got %v, want LINK_EXPIRED", err)
		}
		if _, err := s.Redeem(ctx, l.Token, l.ExpiresAt); !errors.HasCode(err, errors.ErrCodeLinkExpired) {
			t.Fatalf("at the expiry instant: got %v, want LINK_EXPIRED", err)
		}
		got, _ := s.Get(ctx, l.Token)
		if got.RedemptionCount != 0 {
			t.Errorf("count = %d, want 0", got.RedemptionCount)
		}
	})

	t.Run("ExpiredBeatsExhausted", func(t *testing.T) {
		s := newStore(t)
		l := NewLink(t, "file-1", time.Hour, 1)
		create(t, s, l)
		if _, err := s.Redeem(ctx, l.Token, time.Now()); err != nil {
			t.Fatal(err)
		}
		_, err := s.Redeem(ctx, l.Token, l.ExpiresAt.Add(time.Second))
		if !errors.HasCode(err, errors.ErrCodeLinkExpired) {
			t.Errorf("got %v, want LINK_EXPIRED", err)
		}
	})

	t.Run("RevokeIsIdempotent", func(t *testing.T) {
		s := newStore(t)
		l := NewLink(t, "file-1", time.Hour, 5)
		create(t, s, l)

		first := share.TruncateMillis(time.Now())
		r1, err := s.Revoke(ctx, l.Token, first)
		if err != nil {
			t.Fatal(err)
		}
		r2, err := s.Revoke(ctx, l.Token, first.Add(time.Minute))
		if err != nil {
			t.Fatalf("second revoke: %v", err)
		}
		if !r1.RevokedAt.Equal(first) || !r2.RevokedAt.Equal(first) {
			t.Errorf("revoked_at = %v then %v, want %v", r1.RevokedAt, r2.RevokedAt, first)
		}
		if st := r2.State(time.Now()); st != share.StateRevoked {
			t.Errorf("state = %s, want revoked", st)
		}

		_, err = s.Redeem(ctx, l.Token, time.Now())
		if !errors.HasCode(err, errors.ErrCodeLinkExpired) {
			t.Fatalf("redeem revoked: got %v, want LINK_EXPIRED", err)
		}
		if appErr, ok := errors.AsAppError(err); !ok || appErr.Details["reason"] != "revoked" {
			t.Errorf("expected reason=revoked detail, got %v", err)
		}
	})

	t.Run("ListByFile", func(t *testing.T) {
		s := newStore(t)
		a1 := NewLink(t, "file-a", time.Hour, 1)
		a2 := NewLink(t, "file-a", time.Hour, 1)
		a2.CreatedAt = a1.CreatedAt.Add(time.Millisecond)
		b := NewLink(t, "file-b", time.Hour, 1)
		create(t, s, a2)
		create(t, s, a1)
		create(t, s, b)

		got, err := s.ListByFile(ctx, "file-a")
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 || got[0].Token != a1.Token || got[1].Token != a2.Token {
			t.Errorf("unexpected listing: %+v", got)
		}
		none, err := s.ListByFile(ctx, "file-z")
		if err != nil || len(none) != 0 {
			t.Errorf("unknown file: %v, %v", none, err)
		}
	})

	t.Run("TakeExpiredCopies", func(t *testing.T) {
		s := newStore(t)
		early := NewLink(t, "file-1", time.Minute, 3)
		early.MaterializedPath = "shares/early"
		late := NewLink(t, "file-1", 2*time.Minute, 3)
		late.MaterializedPath = "shares/late"
		active := NewLink(t, "file-1", time.Hour, 3)
		active.MaterializedPath = "shares/active"
		plain := NewLink(t, "file-1", time.Minute, 3)
		for _, l := range []*share.Link{late, early, active, plain} {
			create(t, s, l)
		}
		at := time.Now().Add(10 * time.Minute)

		first, err := s.TakeExpiredCopies(ctx, at, 1)
		if err != nil {
			t.Fatal(err)
		}
		if len(first) != 1 || first[0] != (share.Copy{Token: early.Token, Path: "shares/early"}) {
			t.Errorf("first batch = %+v, want the earliest expiry only", first)
		}
		rest, err := s.TakeExpiredCopies(ctx, at, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(rest) != 1 || rest[0] != (share.Copy{Token: late.Token, Path: "shares/late"}) {
			t.Errorf("second batch = %+v", rest)
		}
		if again, _ := s.TakeExpiredCopies(ctx, at, 10); len(again) != 0 {
			t.Errorf("copies handed out twice: %+v", again)
		}

		got, _ := s.Get(ctx, early.Token)
		if got == nil || got.MaterializedPath != "" {
			t.Errorf("taken copy still on the link: %+v", got)
		}
		got, _ = s.Get(ctx, active.Token)
		if got == nil || got.MaterializedPath != "shares/active" {
			t.Errorf("active link lost its copy: %+v", got)
		}
	})

	t.Run("ConcurrentRedeemNeverOvershoots", func(t *testing.T) {
		const n = 10
		s := newStore(t)
		l := NewLink(t, "file-1", time.Hour, n)
		create(t, s, l)

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			exhausted int
			other     []error
		)
		start := make(chan struct{})
		for i := 0; i < 2*n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, err := s.Redeem(ctx, l.Token, time.Now())
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					successes++
				case errors.HasCode(err, errors.ErrCodeLinkExhausted):
					exhausted++
				default:
					other = append(other, err)
				}
			}()
		}
		close(start)
		wg.Wait()

		if len(other) > 0 {
			t.Fatalf("unexpected errors: %v", other)
		}
		if successes != n || exhausted != n {
			t.Errorf("successes = %d, exhausted = %d, want %d each", successes, exhausted, n)
		}
		got, _ := s.Get(ctx, l.Token)
		if got.RedemptionCount != n {
			t.Errorf("final count = %d, want %d", got.RedemptionCount, n)
		}
	})
}
