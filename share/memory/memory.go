// Package memory implements share.Store in process memory.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kbukum/filevault/errors"
	"github.com/kbukum/filevault/share"
)

// Store keeps links in a map guarded by one mutex.
type Store struct {
	mu     sync.Mutex
	links  map[string]*share.Link
	byFile map[string][]string
}

// ensure Store satisfies share.Store.
var _ share.Store = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{
		links:  make(map[string]*share.Link),
		byFile: make(map[string][]string),
	}
}

func (s *Store) Create(_ context.Context, link *share.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.links[link.Token]; ok {
		return errors.AlreadyExists("share link")
	}
	s.links[link.Token] = link.Clone()
	if link.FileID != "" {
		s.byFile[link.FileID] = append(s.byFile[link.FileID], link.Token)
	}
	return nil
}

func (s *Store) Get(_ context.Context, token string) (*share.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.links[token]
	if !ok {
		return nil, errors.NotFound("share link", "")
	}
	return l.Clone(), nil
}

func (s *Store) Redeem(_ context.Context, token string, now time.Time) (*share.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.links[token]
	if !ok {
		return nil, errors.NotFound("share link", "")
	}
	if err := share.RedeemError(l.State(now)); err != nil {
		return nil, err
	}
	l.RedemptionCount++
	return l.Clone(), nil
}

func (s *Store) Revoke(_ context.Context, token string, at time.Time) (*share.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.links[token]
	if !ok {
		return nil, errors.NotFound("share link", "")
	}
	if l.RevokedAt.IsZero() {
		l.RevokedAt = at
	}
	return l.Clone(), nil
}

func (s *Store) ListByFile(_ context.Context, fileID string) ([]*share.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens := s.byFile[fileID]
	out := make([]*share.Link, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, s.links[t].Clone())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) TakeExpiredCopies(_ context.Context, now time.Time, limit int) ([]share.Copy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*share.Link
	for _, l := range s.links {
		if l.MaterializedPath != "" && !now.Before(l.ExpiresAt) {
			due = append(due, l)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ExpiresAt.Before(due[j].ExpiresAt) })
	if len(due) > limit {
		due = due[:limit]
	}

	out := make([]share.Copy, 0, len(due))
	for _, l := range due {
		out = append(out, share.Copy{Token: l.Token, Path: l.MaterializedPath})
		l.MaterializedPath = ""
	}
	return out, nil
}
