package federation

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/oauth2"
)

var ErrProviderMisconfigured = errors.New("oauth provider is not configured")

// UserInfo holds the standardized identity retrieved from an external OAuth2
// provider. Only the fields the account resolution needs are kept.
type UserInfo struct {
	ProviderUserID string // unique id at the provider (e.g. Google's 'sub')
	Email          string
	Username       string
	PictureURL     string
}

// Provider abstracts an external OAuth2 identity provider. The handshake
// coordinator never sees any of this; it only receives the resolved user id.
type Provider interface {
	// Name returns the provider identifier used in URLs ("google",
	// "discord").
	Name() string

	// AuthCodeURL builds the authorization URL the browser is redirected
	// to. state is the CSRF token minted by the caller.
	AuthCodeURL(state string) string

	// Exchange trades an authorization code for a provider token.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)

	// FetchUserInfo retrieves the external identity behind the token.
	FetchUserInfo(ctx context.Context, token *oauth2.Token) (*UserInfo, error)
}

// Config is the explicit per-provider configuration. It is passed in at
// construction; providers never read credentials from ambient process state.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

func (c Config) valid() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURL != ""
}

// baseProvider carries the shared oauth2.Config plumbing.
type baseProvider struct {
	name string
	conf *oauth2.Config
}

func (p *baseProvider) Name() string { return p.name }

func (p *baseProvider) AuthCodeURL(state string) string {
	return p.conf.AuthCodeURL(state)
}

func (p *baseProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return p.conf.Exchange(ctx, code)
}

func (p *baseProvider) httpClient(ctx context.Context, token *oauth2.Token) *http.Client {
	return p.conf.Client(ctx, token)
}
