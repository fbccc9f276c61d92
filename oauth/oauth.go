package oauth

import (
	"context"
	"errors"
)

// ErrExchange wraps any failure while exchanging an authorization code
// or fetching the provider profile.
var ErrExchange = errors.New("oauth exchange failed")

// Identity is the normalized profile returned by a provider exchange.
type Identity struct {
	Provider string // "google" or "github"
	Subject  string // provider-scoped stable user id
	Email    string
	Name     string
	Picture  string
}

// Client is implemented by each provider integration.
type Client interface {
	// AuthCodeURL builds the provider consent URL for the given
	// anti-CSRF state value.
	AuthCodeURL(state string) string

	// Exchange swaps the authorization code for provider tokens and
	// fetches the user profile.
	Exchange(ctx context.Context, code string) (Identity, error)
}
