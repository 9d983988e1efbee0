package share

import (
	"context"
	"crypto/rand"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/filevault/errors"
	"github.com/kbukum/filevault/logger"
	"github.com/kbukum/filevault/observability"
	"github.com/kbukum/filevault/validation"
)

// defaultIssueAttempts bounds token generation when the store reports a collision.
const defaultIssueAttempts = 3

// MaxLifetime is the longest a link may stay valid.
const MaxLifetime = 10 * 365 * 24 * time.Hour

// IssueRequest describes a link to mint.
type IssueRequest struct {
	Object         ObjectRef
	FileID         string
	OwnerID        string
	ExpiresAt      time.Time
	MaxRedemptions int

	// MaterializedPath is an existing temp-class copy to serve instead of Object.
	MaterializedPath string
}

// Redemption is the result of one successful Redeem.
type Redemption struct {
	Link *Link
}

// Source returns the object to stream.
func (r *Redemption) Source() ObjectRef {
	return r.Link.Source()
}

// Final reports whether this redemption used the last allowed count.
func (r *Redemption) Final() bool {
	return r.Link.RedemptionCount >= r.Link.MaxRedemptions
}

// Service issues, redeems and revokes share links.
type Service struct {
	store    Store
	now      func() time.Time
	random   io.Reader
	attempts int
	metrics  *observability.Metrics
	log      *logger.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRandom replaces crypto/rand as the token source.
func WithRandom(r io.Reader) Option {
	return func(s *Service) { s.random = r }
}

// WithMetrics records issue and redemption counters.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.log = l.WithComponent("share") }
}

// NewService creates a Service over store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		now:      time.Now,
		random:   rand.Reader,
		attempts: defaultIssueAttempts,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue validates the policy and persists a new link with a fresh token.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (_ *Link, err error) {
	ctx, span := observability.StartSpan(ctx, "share.issue",
		attribute.String(observability.AttrFileID, req.FileID),
		attribute.String(observability.AttrStorageClass, string(req.Object.Class)),
	)
	defer func() { observability.EndSpan(span, err) }()

	if verr := validation.New().
		Required("owner_id", req.OwnerID).
		Required("object.path", req.Object.Path).
		Custom(req.Object.Class.Valid(), "object.class", "must be one of public, private, temp").
		Validate(); verr != nil {
		return nil, verr
	}

	now := s.now()
	if err := checkPolicy(req.ExpiresAt, req.MaxRedemptions, now); err != nil {
		return nil, err
	}

	link := &Link{
		Object:           req.Object,
		FileID:           req.FileID,
		OwnerID:          req.OwnerID,
		ExpiresAt:        TruncateMillis(req.ExpiresAt),
		MaxRedemptions:   req.MaxRedemptions,
		MaterializedPath: req.MaterializedPath,
		CreatedAt:        TruncateMillis(now),
	}

	for attempt := 1; ; attempt++ {
		link.Token, err = NewToken(s.random)
		if err != nil {
			return nil, errors.Internal(err)
		}
		err = s.store.Create(ctx, link)
		if err == nil {
			break
		}
		if !errors.HasCode(err, errors.ErrCodeAlreadyExists) || attempt >= s.attempts {
			return nil, err
		}
		s.log.Warn("share token collision, retrying", logger.Fields("attempt", attempt))
	}

	s.metrics.RecordShareIssued(ctx)
	s.log.Info("share link issued", logger.Fields(
		logger.FieldToken, logger.RedactToken(link.Token),
		logger.FieldFileID, link.FileID,
		logger.FieldOwnerID, link.OwnerID,
		"max_redemptions", link.MaxRedemptions,
		"expires_at", link.ExpiresAt,
	))
	return link.Clone(), nil
}

// CheckPolicy reports whether a link expiring at expiresAt with
// maxRedemptions uses could be issued now.
func (s *Service) CheckPolicy(expiresAt time.Time, maxRedemptions int) error {
	return checkPolicy(expiresAt, maxRedemptions, s.now())
}

func checkPolicy(expiresAt time.Time, maxRedemptions int, now time.Time) error {
	expiresAt = TruncateMillis(expiresAt)
	if !expiresAt.After(now) {
		return errors.InvalidPolicy("expires_at must be in the future")
	}
	if expiresAt.Sub(now) > MaxLifetime {
		return errors.InvalidPolicy("expires_at is more than 10 years away")
	}
	if maxRedemptions < 1 {
		return errors.InvalidPolicy("max_redemptions must be at least 1")
	}
	return nil
}

// Redeem consumes one use of token.
func (s *Service) Redeem(ctx context.Context, token string) (_ *Redemption, err error) {
	ctx, span := observability.StartSpan(ctx, "share.redeem")
	defer func() { observability.EndSpan(span, err) }()

	if !WellFormed(token) {
		s.metrics.RecordRedemption(ctx, observability.OutcomeNotFound)
		return nil, errors.NotFound("share link", "")
	}

	link, err := s.store.Redeem(ctx, token, s.now())
	s.metrics.RecordRedemption(ctx, redemptionOutcome(err))
	if err != nil {
		s.log.Info("share link refused", logger.Fields(
			logger.FieldToken, logger.RedactToken(token),
			logger.FieldError, err.Error(),
		))
		return nil, err
	}

	s.log.Info("share link redeemed", logger.Fields(
		logger.FieldToken, logger.RedactToken(token),
		logger.FieldFileID, link.FileID,
		"redemption_count", link.RedemptionCount,
		"max_redemptions", link.MaxRedemptions,
	))
	return &Redemption{Link: link}, nil
}

// Revoke marks token revoked. Revoking an already revoked link succeeds.
func (s *Service) Revoke(ctx context.Context, token string) (_ *Link, err error) {
	ctx, span := observability.StartSpan(ctx, "share.revoke")
	defer func() { observability.EndSpan(span, err) }()

	if !WellFormed(token) {
		return nil, errors.NotFound("share link", "")
	}
	link, err := s.store.Revoke(ctx, token, TruncateMillis(s.now()))
	if err != nil {
		return nil, err
	}
	s.log.Info("share link revoked", logger.Fields(
		logger.FieldToken, logger.RedactToken(token),
		logger.FieldFileID, link.FileID,
	))
	return link, nil
}

// Get returns the link for token.
func (s *Service) Get(ctx context.Context, token string) (*Link, error) {
	if !WellFormed(token) {
		return nil, errors.NotFound("share link", "")
	}
	return s.store.Get(ctx, token)
}

// ListForFile returns the links issued for fileID.
func (s *Service) ListForFile(ctx context.Context, fileID string) ([]*Link, error) {
	return s.store.ListByFile(ctx, fileID)
}

// TakeExpiredCopies claims up to limit materialized copies of links that
// have expired. The caller owns deleting them.
func (s *Service) TakeExpiredCopies(ctx context.Context, limit int) ([]Copy, error) {
	return s.store.TakeExpiredCopies(ctx, s.now(), limit)
}

func redemptionOutcome(err error) string {
	switch {
	case err == nil:
		return observability.OutcomeOK
	case errors.HasCode(err, errors.ErrCodeLinkExpired):
		return observability.OutcomeExpired
	case errors.HasCode(err, errors.ErrCodeLinkExhausted):
		return observability.OutcomeExhausted
	case errors.HasCode(err, errors.ErrCodeNotFound):
		return observability.OutcomeNotFound
	default:
		return observability.OutcomeError
	}
}
