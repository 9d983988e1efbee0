package auth

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/filevault/auth/jwt"
	"github.com/kbukum/filevault/errors"
)

// Claims is the identity carried by a verified bearer token. The subject is
// the owner id used by the catalog.
type Claims struct {
	gojwt.RegisteredClaims
	Name string `json:"name,omitempty"`
}

// UserID returns the subject of the token.
func (c *Claims) UserID() string {
	return c.Subject
}

// SetDefaults fills the registered time claims for a token issued at now.
func (c *Claims) SetDefaults(now time.Time, ttl time.Duration, issuer, audience string) {
	c.IssuedAt = gojwt.NewNumericDate(now)
	c.NotBefore = gojwt.NewNumericDate(now)
	c.ExpiresAt = gojwt.NewNumericDate(now.Add(ttl))
	if issuer != "" {
		c.Issuer = issuer
	}
	if audience != "" {
		c.Audience = gojwt.ClaimStrings{audience}
	}
}

// Provider verifies bearer tokens. Middleware depends on this interface
// rather than on a specific token format.
type Provider interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// ProviderFunc adapts an ordinary function to the Provider interface.
type ProviderFunc func(ctx context.Context, token string) (*Claims, error)

// Verify implements Provider.
func (f ProviderFunc) Verify(ctx context.Context, token string) (*Claims, error) {
	return f(ctx, token)
}

// JWTProvider verifies and issues HMAC-signed JWTs.
type JWTProvider struct {
	svc *jwt.Service[*Claims]
}

// NewJWTProvider creates a provider from cfg.
func NewJWTProvider(cfg jwt.Config, opts ...jwt.Option[*Claims]) (*JWTProvider, error) {
	svc, err := jwt.NewService(cfg, func() *Claims { return &Claims{} }, opts...)
	if err != nil {
		return nil, err
	}
	return &JWTProvider{svc: svc}, nil
}

// Verify parses token and returns its claims. Expired tokens yield
// TOKEN_EXPIRED; every other failure, including a missing subject, yields
// INVALID_TOKEN.
func (p *JWTProvider) Verify(_ context.Context, token string) (*Claims, error) {
	claims, err := p.svc.Parse(token)
	if err != nil {
		if stderrors.Is(err, gojwt.ErrTokenExpired) {
			return nil, errors.TokenExpired().WithCause(err)
		}
		return nil, errors.InvalidToken().WithCause(err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, errors.InvalidToken().WithDetail("reason", "missing subject")
	}
	return claims, nil
}

// Issue signs an access token for subject.
func (p *JWTProvider) Issue(subject, name string) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", errors.InvalidInput("subject", "subject is required")
	}
	return p.svc.GenerateAccess(&Claims{
		RegisteredClaims: gojwt.RegisteredClaims{Subject: subject},
		Name:             name,
	})
}
