package authsession

import (
	"context"
	"log/slog"

	"github.com/prathamesh-patil-5090/authsession/password"
)

// CredentialVerifier checks an email/password pair against the
// directory.
//
// Every negative outcome collapses to ok=false: unknown email, an
// account without a password hash (OAuth-only), a wrong password, and
// a storage failure all look the same to the caller. Storage failures
// are logged before being collapsed so operators can tell an outage
// from an attack.
type CredentialVerifier struct {
	directory Directory
	hasher    *password.Hasher
	logger    *slog.Logger
}

// NewCredentialVerifier wires a verifier over the given directory and
// hasher.
func NewCredentialVerifier(directory Directory, hasher *password.Hasher, logger *slog.Logger) *CredentialVerifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &CredentialVerifier{
		directory: directory,
		hasher:    hasher,
		logger:    logger,
	}
}

// Verify resolves the identity for the email/password pair. ok is
// false for any non-match, without distinguishing why.
func (v *CredentialVerifier) Verify(ctx context.Context, email, pass string) (Identity, bool) {
	email = normalizeEmail(email)

	user, err := v.directory.FindUserByEmail(ctx, email)
	if err != nil {
		v.logger.ErrorContext(ctx, "credential lookup failed", "err", err)
		return Identity{}, false
	}
	if user == nil || user.PasswordHash == "" {
		return Identity{}, false
	}

	ok, err := v.hasher.Verify(pass, user.PasswordHash)
	if err != nil {
		v.logger.ErrorContext(ctx, "password hash unreadable", "user_id", user.ID, "err", err)
		return Identity{}, false
	}
	if !ok {
		return Identity{}, false
	}

	return Identity{
		UserID:  user.ID,
		Name:    user.Name,
		Email:   user.Email,
		Picture: user.Picture,
	}, true
}
