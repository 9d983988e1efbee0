package share

import (
	"encoding/base64"
	"fmt"
	"io"
)

const (
	// TokenBytes is the entropy of a share token.
	TokenBytes = 32
	// TokenLength is the encoded length: base64url without padding.
	TokenLength = 43
)

// NewToken reads TokenBytes from r and encodes them URL-safe without padding.
func NewToken(r io.Reader) (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("share: read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// WellFormed reports whether s could be a token produced by NewToken.
func WellFormed(s string) bool {
	if len(s) != TokenLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}
