package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const (
	githubUserURL   = "https://api.github.com/user"
	githubEmailsURL = "https://api.github.com/user/emails"
)

// GitHub exchanges authorization codes against GitHub's OAuth endpoints.
// GitHub profiles may hide the email; in that case the primary verified
// address is fetched from the emails endpoint.
type GitHub struct {
	Config    oauth2.Config
	UserURL   string
	EmailsURL string
}

// NewGitHub creates a GitHub [Client] with the read:user and user:email
// scopes.
func NewGitHub(clientID, clientSecret, redirectURL string) *GitHub {
	return &GitHub{
		Config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     github.Endpoint,
			Scopes:       []string{"read:user", "user:email"},
		},
		UserURL:   githubUserURL,
		EmailsURL: githubEmailsURL,
	}
}

// AuthCodeURL builds the consent URL for the given state value.
func (g *GitHub) AuthCodeURL(state string) string {
	return g.Config.AuthCodeURL(state)
}

// Exchange swaps the code for tokens and fetches the user profile,
// falling back to the emails endpoint when the profile email is hidden.
func (g *GitHub) Exchange(ctx context.Context, code string) (Identity, error) {
	tok, err := g.Config.Exchange(ctx, code)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrExchange, err)
	}
	client := g.Config.Client(ctx, tok)

	var profile struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := getJSON(client, g.UserURL, &profile); err != nil {
		return Identity{}, err
	}
	if profile.ID == 0 {
		return Identity{}, fmt.Errorf("%w: profile missing id", ErrExchange)
	}

	email := profile.Email
	if email == "" {
		email, err = g.primaryEmail(client)
		if err != nil {
			return Identity{}, err
		}
	}
	if email == "" {
		return Identity{}, fmt.Errorf("%w: no verified email on github account", ErrExchange)
	}

	name := profile.Name
	if name == "" {
		name = profile.Login
	}

	return Identity{
		Provider: "github",
		Subject:  strconv.FormatInt(profile.ID, 10),
		Email:    email,
		Name:     name,
		Picture:  profile.AvatarURL,
	}, nil
}

func (g *GitHub) primaryEmail(client *http.Client) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := getJSON(client, g.EmailsURL, &emails); err != nil {
		return "", err
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email, nil
		}
	}
	return "", nil
}

func getJSON(client *http.Client, url string, out any) error {
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExchange, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s status %d", ErrExchange, url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrExchange, err)
	}
	return nil
}
