package authsession

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/prathamesh-patil-5090/authsession/oauth"
)

// providerUpgrades is the transition table for the provider tag on an
// existing account. An entry from→to allows the tag to be replaced
// when the "to" provider authenticates an account currently tagged
// "from". Upgrades are one-way: once an account is on an OAuth
// provider it never returns to credentials.
var providerUpgrades = map[Provider]map[Provider]bool{
	ProviderCredentials: {
		ProviderGoogle: true,
		ProviderGitHub: true,
	},
}

func upgradeAllowed(from, to Provider) bool {
	return providerUpgrades[from][to]
}

// Adapter reconciles external provider profiles with the directory.
type Adapter struct {
	directory Directory
	logger    *slog.Logger
}

// NewAdapter wires an adapter over the given directory.
func NewAdapter(directory Directory, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{directory: directory, logger: logger}
}

// SyncExternalIdentity resolves or creates the account for an OAuth
// profile and returns the identity to issue a session for. Any
// directory failure blocks the sign-in; this path never guesses.
func (a *Adapter) SyncExternalIdentity(ctx context.Context, profile oauth.Identity) (Identity, error) {
	provider := Provider(profile.Provider)
	switch provider {
	case ProviderGoogle, ProviderGitHub:
	default:
		return Identity{}, fmt.Errorf("%w: %q", ErrProviderUnknown, profile.Provider)
	}

	email := normalizeEmail(profile.Email)
	if email == "" {
		return Identity{}, fmt.Errorf("%w: provider profile has no email", ErrSignInBlocked)
	}

	user, err := a.directory.FindUserByEmail(ctx, email)
	if err != nil {
		a.logger.ErrorContext(ctx, "identity sync lookup failed", "provider", provider, "err", err)
		return Identity{}, fmt.Errorf("%w: %v", ErrSignInBlocked, err)
	}

	if user == nil {
		input := CreateUserInput{
			ID:       uuid.NewString(),
			Email:    email,
			Name:     profile.Name,
			Picture:  profile.Picture,
			Provider: provider,
			Role:     RoleUser,
		}
		id, err := a.directory.CreateUser(ctx, input)
		if err != nil {
			a.logger.ErrorContext(ctx, "identity sync create failed", "provider", provider, "err", err)
			return Identity{}, fmt.Errorf("%w: %v", ErrSignInBlocked, err)
		}
		return Identity{
			UserID:  id,
			Name:    profile.Name,
			Email:   email,
			Picture: profile.Picture,
		}, nil
	}

	if upgradeAllowed(user.Provider, provider) {
		if err := a.directory.UpdateUserProvider(ctx, user.ID, provider, profile.Picture); err != nil {
			a.logger.ErrorContext(ctx, "provider upgrade failed", "user_id", user.ID, "provider", provider, "err", err)
			return Identity{}, fmt.Errorf("%w: %v", ErrSignInBlocked, err)
		}
		user.Provider = provider
		user.Picture = profile.Picture
	}

	return Identity{
		UserID:  user.ID,
		Name:    user.Name,
		Email:   user.Email,
		Picture: user.Picture,
	}, nil
}
