package claims

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const minSecretBytes = 32

// ErrTokenTampered is returned by [Codec.Decode] when the session token
// signature does not verify or the token is otherwise malformed.
var ErrTokenTampered = errors.New("session token invalid or tampered")

// Codec signs and verifies session tokens carrying a [Payload].
//
// Codec instances are intended to be configured during initialization and
// then treated as immutable. The payload is opaque to the client only in
// the tamper-evidence sense: claims are signed, not encrypted.
type Codec struct {
	secret []byte
	issuer string
	maxAge time.Duration
}

type sessionClaims struct {
	Name               string   `json:"name,omitempty"`
	Email              string   `json:"email,omitempty"`
	Picture            string   `json:"picture,omitempty"`
	AccessTokenExpires int64    `json:"accessTokenExpires,omitempty"`
	RefreshToken       string   `json:"refreshToken,omitempty"`
	SessionError       ErrorTag `json:"error,omitempty"`
	jwt.RegisteredClaims
}

// NewCodec creates a [Codec]. The signing secret must be at least 32
// bytes; maxAge bounds the lifetime of the outer token and must cover
// the refresh window so an expired-but-refreshable payload still decodes.
func NewCodec(secret []byte, issuer string, maxAge time.Duration) (*Codec, error) {
	if len(secret) < minSecretBytes {
		return nil, fmt.Errorf("session signing secret must be at least %d bytes", minSecretBytes)
	}
	if maxAge <= 0 {
		return nil, errors.New("session token max age must be positive")
	}

	s := make([]byte, len(secret))
	copy(s, secret)

	return &Codec{
		secret: s,
		issuer: issuer,
		maxAge: maxAge,
	}, nil
}

// Encode signs p into a compact session token string. All payload
// fields round-trip losslessly through [Codec.Decode].
func (c *Codec) Encode(p Payload) (string, error) {
	now := time.Now()

	claims := sessionClaims{
		Name:               p.Name,
		Email:              p.Email,
		Picture:            p.Picture,
		AccessTokenExpires: p.AccessTokenExpires,
		RefreshToken:       p.RefreshToken,
		SessionError:       p.Error,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.maxAge)),
		},
	}
	if c.issuer != "" {
		claims.Issuer = c.issuer
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Decode verifies the signature and returns the embedded [Payload].
// Any signature, structure, or registered-claim failure collapses to
// [ErrTokenTampered]; the caller never sees a half-trusted payload.
func (c *Codec) Decode(tokenStr string) (Payload, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if c.issuer != "" {
		options = append(options, jwt.WithIssuer(c.issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &sessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrTokenTampered, err)
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return Payload{}, ErrTokenTampered
	}

	return Payload{
		UserID:             claims.Subject,
		Name:               claims.Name,
		Email:              claims.Email,
		Picture:            claims.Picture,
		AccessTokenExpires: claims.AccessTokenExpires,
		RefreshToken:       claims.RefreshToken,
		Error:              claims.SessionError,
	}, nil
}
