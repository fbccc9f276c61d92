package token

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// rawTokenSize is the entropy of an opaque refresh token before encoding.
const rawTokenSize = 64

// Record is a stored refresh-token row. The token string is the primary
// lookup key; ExpiresAt bounds its validity regardless of storage GC.
type Record struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

// New generates an opaque refresh token: 64 cryptographically random
// bytes encoded as unpadded base64url. Tokens are not predictable or
// enumerable and carry no embedded structure.
func New() (string, error) {
	var raw [rawTokenSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}
