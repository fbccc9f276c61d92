package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is the DDL for the refresh-token table. The library does not
// run migrations; apply this with your migration tooling of choice.
const Schema = `
CREATE TABLE IF NOT EXISTS refresh_tokens (
	token      text PRIMARY KEY,
	user_id    text NOT NULL,
	expires_at timestamptz NOT NULL
);
CREATE INDEX IF NOT EXISTS refresh_tokens_user_id_idx ON refresh_tokens (user_id);
`

// PostgresStore is a PostgreSQL-backed [Store] over a pgx connection
// pool. Rotation runs as a conditional delete-and-insert in a single
// transaction, so row-level locking gives concurrent rotations of the
// same token exactly one winner.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a store bound to the given pool. The pool
// lifecycle (init/shutdown) belongs to the caller; no global connection
// state is kept.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Create deletes every record for userID and inserts the new one inside
// one transaction.
func (s *PostgresStore) Create(ctx context.Context, userID, tok string, expiresAt time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO refresh_tokens (token, user_id, expires_at) VALUES ($1, $2, $3)`,
		tok, userID, expiresAt,
	); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Validate returns the owning user id for a token whose expiry is
// strictly in the future. Expired rows are never returned even when
// still present.
func (s *PostgresStore) Validate(ctx context.Context, tok string) (string, error) {
	var userID string
	err := s.pool.QueryRow(ctx,
		`SELECT user_id FROM refresh_tokens WHERE token = $1 AND expires_at > now()`,
		tok,
	).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return userID, nil
}

// Rotate consumes oldTok and inserts a freshly generated token. The
// delete is conditional on the row still existing and being unexpired;
// zero rows affected means a concurrent rotation won and the call fails
// with ErrTokenRotated.
func (s *PostgresStore) Rotate(ctx context.Context, oldTok, userID string, expiresAt time.Time) (string, error) {
	newTok, err := New()
	if err != nil {
		return "", err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`DELETE FROM refresh_tokens WHERE token = $1 AND user_id = $2 AND expires_at > now()`,
		oldTok, userID,
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return "", ErrTokenRotated
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO refresh_tokens (token, user_id, expires_at) VALUES ($1, $2, $3)`,
		newTok, userID, expiresAt,
	); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return newTok, nil
}

// Revoke deletes a single record. Idempotent.
func (s *PostgresStore) Revoke(ctx context.Context, tok string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, tok); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// RevokeAll deletes every record for the user.
func (s *PostgresStore) RevokeAll(ctx context.Context, userID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
