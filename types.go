package authsession

import (
	"context"
	"strings"
)

// Provider identifies how an account authenticates.
type Provider string

const (
	ProviderCredentials Provider = "credentials"
	ProviderGoogle      Provider = "google"
	ProviderGitHub      Provider = "github"
)

// Role is the coarse authorization level stored on the account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Identity is a resolved user identity, ready for session issuance.
type Identity struct {
	UserID  string
	Name    string
	Email   string
	Picture string
}

// UserRecord is the directory's view of an account.
type UserRecord struct {
	ID           string
	Email        string
	Name         string
	Picture      string
	PasswordHash string // empty for OAuth-only accounts
	Provider     Provider
	Role         Role
}

// CreateUserInput carries the fields for a new account. ID is minted
// by the caller; directories may override it and return their own.
type CreateUserInput struct {
	ID       string
	Email    string
	Name     string
	Picture  string
	Provider Provider
	Role     Role
}

// Directory is the user storage the host application plugs in.
//
// FindUserByEmail returns (nil, nil) when no account matches; an error
// return means storage itself failed and sign-in must not proceed.
type Directory interface {
	FindUserByEmail(ctx context.Context, email string) (*UserRecord, error)
	CreateUser(ctx context.Context, input CreateUserInput) (string, error)
	UpdateUserProvider(ctx context.Context, userID string, provider Provider, picture string) error
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
