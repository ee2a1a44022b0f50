package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/octrolabs/userhub/internal/identity"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type Config struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	// UserInfoURL and Endpoint default to Google's; tests point them at
	// a stub server.
	UserInfoURL string
	Endpoint    oauth2.Endpoint
}

// Provider is the OAuth2 client side of the login flow: it builds the
// authorization redirect, exchanges the callback code, and fetches the
// verified profile.
type Provider struct {
	cfg         *oauth2.Config
	userInfoURL string
}

func NewProvider(cfg Config) *Provider {
	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = google.Endpoint
	}

	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = defaultUserInfoURL
	}

	return &Provider{
		cfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.profile",
				"https://www.googleapis.com/auth/userinfo.email",
			},
			Endpoint: endpoint,
		},
		userInfoURL: userInfoURL,
	}
}

func (p *Provider) AuthCodeURL(state string) string {
	return p.cfg.AuthCodeURL(state)
}

func (p *Provider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return p.cfg.Exchange(ctx, code)
}

type userInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// FetchProfile resolves the token into the provider-asserted profile.
func (p *Provider) FetchProfile(ctx context.Context, token *oauth2.Token) (identity.Profile, error) {
	client := p.cfg.Client(ctx, token)

	resp, err := client.Get(p.userInfoURL)
	if err != nil {
		return identity.Profile{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return identity.Profile{}, fmt.Errorf("fetch userinfo: unexpected status %d", resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return identity.Profile{}, fmt.Errorf("decode userinfo: %w", err)
	}

	if info.ID == "" || info.Email == "" {
		return identity.Profile{}, fmt.Errorf("userinfo missing subject id or email")
	}

	return identity.Profile{
		ExternalID: info.ID,
		Email:      info.Email,
		Name:       info.Name,
		AvatarURL:  info.Picture,
	}, nil
}
