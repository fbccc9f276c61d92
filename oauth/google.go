package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// Google exchanges authorization codes against Google's OpenID Connect
// endpoints. Config and UserInfoURL are exported so tests can point the
// client at a local server.
type Google struct {
	Config      oauth2.Config
	UserInfoURL string
}

// NewGoogle creates a Google [Client] with the openid/email/profile scopes.
func NewGoogle(clientID, clientSecret, redirectURL string) *Google {
	return &Google{
		Config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		UserInfoURL: googleUserInfoURL,
	}
}

// AuthCodeURL builds the consent URL for the given state value.
func (g *Google) AuthCodeURL(state string) string {
	return g.Config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange swaps the code for tokens and fetches the OIDC userinfo
// document.
func (g *Google) Exchange(ctx context.Context, code string) (Identity, error) {
	tok, err := g.Config.Exchange(ctx, code)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrExchange, err)
	}

	resp, err := g.Config.Client(ctx, tok).Get(g.UserInfoURL)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrExchange, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("%w: userinfo status %d", ErrExchange, resp.StatusCode)
	}

	var info struct {
		Sub     string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrExchange, err)
	}
	if info.Sub == "" || info.Email == "" {
		return Identity{}, fmt.Errorf("%w: userinfo missing sub or email", ErrExchange)
	}

	return Identity{
		Provider: "google",
		Subject:  info.Sub,
		Email:    info.Email,
		Name:     info.Name,
		Picture:  info.Picture,
	}, nil
}
