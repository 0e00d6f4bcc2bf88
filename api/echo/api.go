package echo

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"go.pilab.hu/gamelink/api"
	"go.pilab.hu/gamelink/domain"
	"go.pilab.hu/gamelink/internal/federation"
	"go.pilab.hu/gamelink/services"
)

// AuthAPI holds the HTTP handlers for the pairing handshake and the
// browser-facing auth flows.
type AuthAPI struct {
	handshake *services.HandshakeService
	auth      *services.AuthService
	sessions  *services.SessionService
	providers map[string]federation.Provider
	states    *federation.StateStore
	health    func(c echo.Context) error
}

// NewAuthAPI initializes the auth API. providers may be empty when no OAuth
// provider is configured; healthCheck may be nil.
func NewAuthAPI(
	handshake *services.HandshakeService,
	auth *services.AuthService,
	sessions *services.SessionService,
	providers []federation.Provider,
	states *federation.StateStore,
	healthCheck func(c echo.Context) error,
) *AuthAPI {
	byName := make(map[string]federation.Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &AuthAPI{
		handshake: handshake,
		auth:      auth,
		sessions:  sessions,
		providers: byName,
		states:    states,
		health:    healthCheck,
	}
}

// RegisterRoutes registers the auth routes.
func (a *AuthAPI) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/auth/init", a.InitPairingHandler)
	e.POST("/api/auth/finalize", a.FinalizeHandler)
	e.POST("/api/auth/register-email", a.RegisterHandler)
	e.POST("/api/auth/login-email", a.LoginHandler)
	e.GET("/api/auth/oauth/:provider", a.OAuthRedirectHandler)
	e.GET("/api/auth/oauth/:provider/callback", a.OAuthCallbackHandler)
	e.GET("/api/session/validate", a.SessionValidateHandler)
	if a.health != nil {
		e.GET("/healthz", a.health)
	}
}

// InitPairingHandler starts a handshake: the device posts its id and gets
// back a pairing token plus the login URL to show the user.
func (a *AuthAPI) InitPairingHandler(c echo.Context) error {
	var req api.InitPairingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: api.ErrCodeInvalidRequest, Description: "malformed request body"})
	}

	token, authURL, err := a.handshake.StartPairing(c.Request().Context(), req.DeviceID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: api.ErrCodeInvalidRequest, Description: "device_id is required"})
		}
		log.Error().Err(err).Msg("Failed to start pairing")
		return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: api.ErrCodeServerError})
	}

	return c.JSON(http.StatusOK, api.InitPairingResponse{
		Token:     token.Token,
		AuthURL:   authURL,
		ExpiresAt: token.ExpiresAt,
	})
}

// FinalizeHandler is the device's polling endpoint. 202 means "user has not
// logged in yet, keep polling"; 200 carries the device session; 410 means
// the token is spent or never was valid and the device must start over.
func (a *AuthAPI) FinalizeHandler(c echo.Context) error {
	var req api.FinalizeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: api.ErrCodeInvalidRequest, Description: "malformed request body"})
	}

	result, err := a.handshake.Poll(c.Request().Context(), req.Token, req.DeviceID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: api.ErrCodeInvalidRequest, Description: "token and device_id are required"})
		case errors.Is(err, domain.ErrTokenInvalid):
			return c.JSON(http.StatusGone, api.ErrorResponse{Error: api.ErrCodeInvalidToken, Description: "pairing token is invalid, expired or already used"})
		default:
			log.Error().Err(err).Msg("Failed to finalize pairing")
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: api.ErrCodeServerError})
		}
	}

	if result.Status == services.PollPending {
		return c.JSON(http.StatusAccepted, api.FinalizeResponse{Status: api.StatusPending})
	}

	return c.JSON(http.StatusOK, api.FinalizeResponse{
		Status:       api.StatusReady,
		SessionToken: result.Session.SessionToken,
		UserID:       result.Session.UserID,
		Username:     result.Username,
		ExpiresAt:    &result.Session.ExpiresAt,
	})
}

// RegisterHandler creates an account from the browser and, when a web token
// rode along, links it to the waiting device.
func (a *AuthAPI) RegisterHandler(c echo.Context) error {
	var req api.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: api.ErrCodeInvalidRequest, Description: "malformed request body"})
	}

	result, err := a.auth.RegisterWithEmail(c.Request().Context(), services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		WebToken: req.WebToken,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: api.ErrCodeInvalidRequest, Description: "username, email and password are required"})
		case errors.Is(err, domain.ErrUserExists):
			return c.JSON(http.StatusConflict, api.ErrorResponse{Error: api.ErrCodeUserExists, Description: "an account with this email or username already exists"})
		default:
			log.Error().Err(err).Msg("Registration failed")
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: api.ErrCodeServerError})
		}
	}

	return c.JSON(http.StatusOK, authResponse(result))
}

// LoginHandler authenticates an existing account from the browser.
func (a *AuthAPI) LoginHandler(c echo.Context) error {
	var req api.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: api.ErrCodeInvalidRequest, Description: "malformed request body"})
	}

	result, err := a.auth.LoginWithEmail(c.Request().Context(), services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		WebToken: req.WebToken,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: api.ErrCodeInvalidRequest, Description: "email and password are required"})
		case errors.Is(err, domain.ErrInvalidCredentials):
			return c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: api.ErrCodeInvalidCredentials, Description: "invalid email or password"})
		default:
			log.Error().Err(err).Msg("Login failed")
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: api.ErrCodeServerError})
		}
	}

	return c.JSON(http.StatusOK, authResponse(result))
}

// OAuthRedirectHandler sends the browser to the external provider. The
// optional web_token query parameter is parked in the state store and picked
// up again in the callback.
func (a *AuthAPI) OAuthRedirectHandler(c echo.Context) error {
	provider, ok := a.providers[c.Param("provider")]
	if !ok {
		return c.JSON(http.StatusNotFound, api.ErrorResponse{Error: api.ErrCodeInvalidRequest, Description: "unknown oauth provider"})
	}

	state := a.states.Begin(federation.FlowState{WebToken: c.QueryParam("web_token")})
	return c.Redirect(http.StatusFound, provider.AuthCodeURL(state))
}

// OAuthCallbackHandler completes the provider round trip: redeems the state,
// exchanges the code, resolves the external identity to a local account and
// finishes like a browser login.
func (a *AuthAPI) OAuthCallbackHandler(c echo.Context) error {
	provider, ok := a.providers[c.Param("provider")]
	if !ok {
		return c.JSON(http.StatusNotFound, api.ErrorResponse{Error: api.ErrCodeInvalidRequest, Description: "unknown oauth provider"})
	}

	flow, err := a.states.Redeem(c.QueryParam("state"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: api.ErrCodeInvalidRequest, Description: "authentication flow expired or invalid"})
	}

	code := c.QueryParam("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: api.ErrCodeInvalidRequest, Description: "missing authorization code"})
	}

	ctx := c.Request().Context()
	token, err := provider.Exchange(ctx, code)
	if err != nil {
		log.Error().Err(err).Str("provider", provider.Name()).Msg("OAuth code exchange failed")
		return c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: api.ErrCodeServerError, Description: "provider exchange failed"})
	}

	info, err := provider.FetchUserInfo(ctx, token)
	if err != nil {
		log.Error().Err(err).Str("provider", provider.Name()).Msg("OAuth user info fetch failed")
		return c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: api.ErrCodeServerError, Description: "provider user info fetch failed"})
	}

	result, err := a.auth.CompleteOAuth(ctx, provider.Name(), info, flow.WebToken)
	if err != nil {
		log.Error().Err(err).Str("provider", provider.Name()).Msg("OAuth completion failed")
		return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: api.ErrCodeServerError})
	}

	return c.JSON(http.StatusOK, authResponse(result))
}

// SessionValidateHandler answers a game-server check of a device session
// token carried as a Bearer credential.
func (a *AuthAPI) SessionValidateHandler(c echo.Context) error {
	token := bearerToken(c)
	if token == "" {
		return c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: api.ErrCodeInvalidToken, Description: "missing bearer token"})
	}

	session, err := a.sessions.Validate(c.Request().Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrSessionExpired):
			return c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: api.ErrCodeInvalidToken, Description: "session is unknown or expired"})
		default:
			log.Error().Err(err).Msg("Session validation failed")
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: api.ErrCodeServerError})
		}
	}

	return c.JSON(http.StatusOK, api.SessionValidateResponse{
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
	})
}

func authResponse(result *services.AuthResult) api.AuthResponse {
	return api.AuthResponse{
		Token:    result.JWT,
		UserID:   result.User.ID,
		Username: result.User.Username,
		Linked:   result.Linked,
	}
}

func bearerToken(c echo.Context) string {
	const prefix = "Bearer "
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}
