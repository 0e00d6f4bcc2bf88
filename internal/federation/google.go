package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	googleoauth2 "golang.org/x/oauth2/google"
)

var googleUserInfoEndpoint = "https://www.googleapis.com/oauth2/v3/userinfo"

// GoogleProvider implements the Provider interface for Google.
type GoogleProvider struct {
	baseProvider
}

// NewGoogleProvider creates a new GoogleProvider.
func NewGoogleProvider(cfg Config) (*GoogleProvider, error) {
	if !cfg.valid() {
		return nil, ErrProviderMisconfigured
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "profile", "email"}
	}
	return &GoogleProvider{
		baseProvider: baseProvider{
			name: "google",
			conf: &oauth2.Config{
				ClientID:     cfg.ClientID,
				ClientSecret: cfg.ClientSecret,
				RedirectURL:  cfg.RedirectURL,
				Scopes:       scopes,
				Endpoint:     googleoauth2.Endpoint,
			},
		},
	}, nil
}

// FetchUserInfo retrieves the Google identity behind the token.
func (g *GoogleProvider) FetchUserInfo(ctx context.Context, token *oauth2.Token) (*UserInfo, error) {
	resp, err := g.httpClient(ctx, token).Get(googleUserInfoEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info from Google: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to fetch user info from Google: status %d, body: %s", resp.StatusCode, string(body))
	}

	var raw struct {
		Sub     string `json:"sub"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
		Email   string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode Google user info: %w", err)
	}
	if raw.Sub == "" {
		return nil, fmt.Errorf("google user info response is missing 'sub'")
	}

	return &UserInfo{
		ProviderUserID: raw.Sub,
		Email:          raw.Email,
		Username:       raw.Name,
		PictureURL:     raw.Picture,
	}, nil
}

var _ Provider = (*GoogleProvider)(nil)
