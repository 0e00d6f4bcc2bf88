package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

var discordUserEndpoint = "https://discord.com/api/users/@me"

// discordEndpoint is Discord's OAuth2 endpoint pair.
var discordEndpoint = oauth2.Endpoint{
	AuthURL:  "https://discord.com/oauth2/authorize",
	TokenURL: "https://discord.com/api/oauth2/token",
}

// DiscordProvider implements the Provider interface for Discord.
type DiscordProvider struct {
	baseProvider
}

// NewDiscordProvider creates a new DiscordProvider.
func NewDiscordProvider(cfg Config) (*DiscordProvider, error) {
	if !cfg.valid() {
		return nil, ErrProviderMisconfigured
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"identify", "email"}
	}
	return &DiscordProvider{
		baseProvider: baseProvider{
			name: "discord",
			conf: &oauth2.Config{
				ClientID:     cfg.ClientID,
				ClientSecret: cfg.ClientSecret,
				RedirectURL:  cfg.RedirectURL,
				Scopes:       scopes,
				Endpoint:     discordEndpoint,
			},
		},
	}, nil
}

// FetchUserInfo retrieves the Discord identity behind the token.
func (d *DiscordProvider) FetchUserInfo(ctx context.Context, token *oauth2.Token) (*UserInfo, error) {
	resp, err := d.httpClient(ctx, token).Get(discordUserEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info from Discord: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to fetch user info from Discord: status %d, body: %s", resp.StatusCode, string(body))
	}

	var raw struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Avatar   string `json:"avatar"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode Discord user info: %w", err)
	}
	if raw.ID == "" {
		return nil, fmt.Errorf("discord user info response is missing 'id'")
	}

	info := &UserInfo{
		ProviderUserID: raw.ID,
		Email:          raw.Email,
		Username:       raw.Username,
	}
	if raw.Avatar != "" {
		info.PictureURL = fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png", raw.ID, raw.Avatar)
	}
	return info, nil
}

var _ Provider = (*DiscordProvider)(nil)
