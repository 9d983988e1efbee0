package jwt

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// SigningMethod defines supported JWT signing algorithms.
type SigningMethod string

const (
	HS256 SigningMethod = "HS256"
	HS384 SigningMethod = "HS384"
	HS512 SigningMethod = "HS512"
)

// minSecretLen is the shortest HMAC secret accepted.
const minSecretLen = 32

// Config configures the JWT token service.
type Config struct {
	// Secret is the HMAC signing key.
	Secret string `mapstructure:"secret"`

	// Method is the signing algorithm (default: HS256).
	Method SigningMethod `mapstructure:"method"`

	// Issuer is the "iss" claim; when set, tokens from other issuers are rejected.
	Issuer string `mapstructure:"issuer"`

	// Audience is the "aud" claim; when set, tokens for other audiences are rejected.
	Audience string `mapstructure:"audience"`

	// AccessTokenTTL is the lifetime of issued tokens (default: 15m).
	AccessTokenTTL string `mapstructure:"access_token_ttl"`

	// Leeway tolerates clock skew when checking exp/nbf (default: 0s).
	Leeway string `mapstructure:"leeway"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Method == "" {
		c.Method = HS256
	}
	if c.AccessTokenTTL == "" {
		c.AccessTokenTTL = "15m"
	}
	if c.Leeway == "" {
		c.Leeway = "0s"
	}
}

// Validate checks required fields.
func (c *Config) Validate() error {
	switch c.Method {
	case HS256, HS384, HS512:
	default:
		return fmt.Errorf("unsupported signing method: %s", c.Method)
	}
	if len(c.Secret) < minSecretLen {
		return fmt.Errorf("secret must be at least %d bytes", minSecretLen)
	}
	if ttl, err := time.ParseDuration(c.AccessTokenTTL); err != nil || ttl <= 0 {
		return errors.New("access_token_ttl must be a positive duration")
	}
	if l, err := time.ParseDuration(c.Leeway); err != nil || l < 0 {
		return errors.New("leeway must be a non-negative duration")
	}
	return nil
}

// TTL returns the parsed access token lifetime.
func (c *Config) TTL() time.Duration {
	d, _ := time.ParseDuration(c.AccessTokenTTL)
	return d
}

func (c *Config) leeway() time.Duration {
	d, _ := time.ParseDuration(c.Leeway)
	return d
}

// signingMethod returns the golang-jwt SigningMethod instance.
func (c *Config) signingMethod() gojwt.SigningMethod {
	switch c.Method {
	case HS384:
		return gojwt.SigningMethodHS384
	case HS512:
		return gojwt.SigningMethodHS512
	default:
		return gojwt.SigningMethodHS256
	}
}

func (c *Config) key() []byte {
	return []byte(c.Secret)
}
