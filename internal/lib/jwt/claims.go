// Package jwt implements generation and parsing of JWT tokens with the
// custom claims the API needs: username, role and user UID.
package jwt

import (
	"time"
)

// Maker describes token generation and parsing.
type Maker interface {
	// GenerateToken issues a signed token for the given user.
	GenerateToken(username, role, userUID string) (string, error)
	// ParseToken validates a token and returns its claims.
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl implements Maker with an HS256 secret key and a token TTL.
type MakerImpl struct {
	secretKey string
	tokenTTL  time.Duration
}

// NewMaker creates a MakerImpl from a secret key and TTL.
func NewMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
	}
}
