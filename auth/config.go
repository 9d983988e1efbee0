package auth

import (
	"fmt"

	"github.com/kbukum/filevault/auth/jwt"
)

// Config holds authentication configuration.
type Config struct {
	// JWT configures bearer token verification.
	JWT jwt.Config `mapstructure:"jwt"`
}

// ApplyDefaults sets sensible defaults.
func (c *Config) ApplyDefaults() {
	c.JWT.ApplyDefaults()
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := c.JWT.Validate(); err != nil {
		return fmt.Errorf("auth.jwt: %w", err)
	}
	return nil
}

// Describe returns a human-readable one-liner for the startup summary.
func (c *Config) Describe() string {
	line := fmt.Sprintf("JWT(%s) TTL=%s", c.JWT.Method, c.JWT.AccessTokenTTL)
	if c.JWT.Issuer != "" {
		line += fmt.Sprintf(" iss=%s", c.JWT.Issuer)
	}
	return line
}
