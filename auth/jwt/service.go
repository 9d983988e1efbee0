// Package jwt provides a generic JWT token service using Go generics.
//
// The service is parameterized by a claims type T, which must implement
// jwt.Claims (typically by embedding jwt.RegisteredClaims):
//
//	svc, err := jwt.NewService(cfg, func() *MyClaims { return &MyClaims{} })
//	token, err := svc.GenerateAccess(&MyClaims{...})
//	claims, err := svc.Parse(token)
package jwt

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Service provides JWT token generation and parsing for claims type T.
type Service[T gojwt.Claims] struct {
	cfg      Config
	newEmpty func() T
	now      func() time.Time
}

// Option configures a Service.
type Option[T gojwt.Claims] func(*Service[T])

// WithClock replaces the time source used for issuing and validating tokens.
func WithClock[T gojwt.Claims](now func() time.Time) Option[T] {
	return func(s *Service[T]) { s.now = now }
}

// NewService creates a new JWT service.
// The newEmpty function returns a zero-value instance of T for parsing.
func NewService[T gojwt.Claims](cfg Config, newEmpty func() T, opts ...Option[T]) (*Service[T], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("jwt: %w", err)
	}
	s := &Service[T]{cfg: cfg, newEmpty: newEmpty, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Generate creates a signed JWT token from the given claims as-is.
func (s *Service[T]) Generate(claims T) (string, error) {
	token := gojwt.NewWithClaims(s.cfg.signingMethod(), claims)
	signed, err := token.SignedString(s.cfg.key())
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, nil
}

// GenerateAccess stamps the standard time claims with AccessTokenTTL and
// signs the token.
func (s *Service[T]) GenerateAccess(claims T) (string, error) {
	if setter, ok := any(claims).(interface {
		SetDefaults(now time.Time, ttl time.Duration, issuer, audience string)
	}); ok {
		setter.SetDefaults(s.now(), s.cfg.TTL(), s.cfg.Issuer, s.cfg.Audience)
	}
	return s.Generate(claims)
}

// Parse validates and parses a JWT token string into claims of type T.
// It verifies the signature, expiry, and optionally issuer/audience. The
// returned error wraps the golang-jwt sentinel errors.
func (s *Service[T]) Parse(tokenString string) (T, error) {
	var zero T
	claims := s.newEmpty()
	token, err := gojwt.ParseWithClaims(tokenString, claims, s.keyFunc, s.parserOptions()...)
	if err != nil {
		return zero, fmt.Errorf("jwt: parse token: %w", err)
	}
	if !token.Valid {
		return zero, errors.New("jwt: invalid token")
	}
	parsed, ok := token.Claims.(T)
	if !ok {
		return zero, errors.New("jwt: unexpected claims type")
	}
	return parsed, nil
}

func (s *Service[T]) keyFunc(token *gojwt.Token) (interface{}, error) {
	if token.Method.Alg() != s.cfg.signingMethod().Alg() {
		return nil, fmt.Errorf("jwt: unexpected signing method: %s", token.Method.Alg())
	}
	return s.cfg.key(), nil
}

func (s *Service[T]) parserOptions() []gojwt.ParserOption {
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{s.cfg.signingMethod().Alg()}),
		gojwt.WithExpirationRequired(),
		gojwt.WithTimeFunc(s.now),
		gojwt.WithLeeway(s.cfg.leeway()),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, gojwt.WithIssuer(s.cfg.Issuer))
	}
	if s.cfg.Audience != "" {
		opts = append(opts, gojwt.WithAudience(s.cfg.Audience))
	}
	return opts
}
