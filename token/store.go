package token

import (
	"context"
	"errors"
	"time"
)

// ErrTokenNotFound is returned by [Store.Validate] for unknown and for
// expired tokens alike; the two cases are deliberately indistinguishable.
var ErrTokenNotFound = errors.New("refresh token not found or expired")

// ErrTokenRotated is returned by [Store.Rotate] when the old token no
// longer exists — typically because a concurrent refresh already
// consumed it. The losing caller must force re-authentication.
var ErrTokenRotated = errors.New("refresh token already rotated")

// ErrStoreUnavailable wraps backend transport failures.
var ErrStoreUnavailable = errors.New("token store unavailable")

// Store persists refresh tokens. All operations are scoped to a single
// token or a single user id; implementations must provide single-row
// atomicity but no cross-row transactions are required.
type Store interface {
	// Create deletes every existing record for userID, then inserts a
	// new record. This is the first-issuance path: after Create the
	// user holds exactly one valid token.
	Create(ctx context.Context, userID, tok string, expiresAt time.Time) error

	// Validate returns the owning user id when tok exists with an
	// expiry strictly in the future, and ErrTokenNotFound otherwise.
	// Expired rows still present in storage are never returned.
	Validate(ctx context.Context, tok string) (string, error)

	// Rotate atomically deletes the record for oldTok and inserts a
	// freshly generated token for userID with the given expiry. When
	// oldTok does not exist the rotation fails with ErrTokenRotated and
	// nothing is inserted — exactly one of N concurrent rotations of
	// the same token succeeds.
	Rotate(ctx context.Context, oldTok, userID string, expiresAt time.Time) (string, error)

	// Revoke deletes the single matching record. Idempotent.
	Revoke(ctx context.Context, tok string) error

	// RevokeAll deletes every record for the user.
	RevokeAll(ctx context.Context, userID string) error
}
