package echo

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go.pilab.hu/gamelink/api"
	"go.pilab.hu/gamelink/cache"
	"go.pilab.hu/gamelink/internal/auth"
	"go.pilab.hu/gamelink/internal/federation"
	"go.pilab.hu/gamelink/services"
)

// newTestServer wires the full API over in-memory stores.
func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	pairings := cache.NewMemoryPairingStore()
	sessions := cache.NewMemorySessionStore()
	t.Cleanup(func() {
		_ = pairings.Close()
		_ = sessions.Close()
	})

	users := newMemUserRepo()
	links := newMemOAuthRepo()
	hasher := auth.NewHasher(bcrypt.MinCost)
	tokens := services.NewTokenService("test-secret", "gamelink-test", time.Hour, 5*time.Minute, 24*time.Hour)
	handshake := services.NewHandshakeService(pairings, sessions, users, tokens, "https://play.example.com")
	authSvc := services.NewAuthService(users, links, hasher, tokens, handshake)
	sessionSvc := services.NewSessionService(sessions, nil)

	states := federation.NewStateStore(time.Minute)
	t.Cleanup(func() { _ = states.Close() })

	e := echo.New()
	NewAuthAPI(handshake, authSvc, sessionSvc, nil, states, nil).RegisterRoutes(e)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestInitPairing(t *testing.T) {
	e := newTestServer(t)

	rec := doJSON(t, e, http.MethodPost, "/api/auth/init", api.InitPairingRequest{DeviceID: "device-1"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[api.InitPairingResponse](t, rec)
	assert.NotEmpty(t, resp.Token)
	assert.Contains(t, resp.AuthURL, resp.Token)
	assert.True(t, resp.ExpiresAt.After(time.Now()))
}

func TestInitPairing_MissingDeviceID(t *testing.T) {
	e := newTestServer(t)

	rec := doJSON(t, e, http.MethodPost, "/api/auth/init", api.InitPairingRequest{}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decode[api.ErrorResponse](t, rec)
	assert.Equal(t, api.ErrCodeInvalidRequest, resp.Error)
}

func TestFullHandshakeOverHTTP(t *testing.T) {
	e := newTestServer(t)

	// Device starts the handshake.
	rec := doJSON(t, e, http.MethodPost, "/api/auth/init", api.InitPairingRequest{DeviceID: "device-1"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	initResp := decode[api.InitPairingResponse](t, rec)

	// First poll: pending.
	rec = doJSON(t, e, http.MethodPost, "/api/auth/finalize", api.FinalizeRequest{Token: initResp.Token, DeviceID: "device-1"}, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, api.StatusPending, decode[api.FinalizeResponse](t, rec).Status)

	// Browser registers with the pairing token attached.
	rec = doJSON(t, e, http.MethodPost, "/api/auth/register-email", api.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "s3cret",
		WebToken: initResp.Token,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	authResp := decode[api.AuthResponse](t, rec)
	assert.True(t, authResp.Linked)
	assert.NotEmpty(t, authResp.Token)

	// Next poll: ready with a session.
	rec = doJSON(t, e, http.MethodPost, "/api/auth/finalize", api.FinalizeRequest{Token: initResp.Token, DeviceID: "device-1"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	finResp := decode[api.FinalizeResponse](t, rec)
	assert.Equal(t, api.StatusReady, finResp.Status)
	assert.NotEmpty(t, finResp.SessionToken)
	assert.Equal(t, authResp.UserID, finResp.UserID)
	assert.Equal(t, "alice", finResp.Username)
	require.NotNil(t, finResp.ExpiresAt)

	// The token is spent: a further poll gets 410.
	rec = doJSON(t, e, http.MethodPost, "/api/auth/finalize", api.FinalizeRequest{Token: initResp.Token, DeviceID: "device-1"}, nil)
	require.Equal(t, http.StatusGone, rec.Code)
	assert.Equal(t, api.ErrCodeInvalidToken, decode[api.ErrorResponse](t, rec).Error)

	// The issued session validates.
	header := http.Header{}
	header.Set(echo.HeaderAuthorization, "Bearer "+finResp.SessionToken)
	rec = doJSON(t, e, http.MethodGet, "/api/session/validate", nil, header)
	require.Equal(t, http.StatusOK, rec.Code)
	valResp := decode[api.SessionValidateResponse](t, rec)
	assert.Equal(t, authResp.UserID, valResp.UserID)
}

func TestFinalize_WrongDevice(t *testing.T) {
	e := newTestServer(t)

	rec := doJSON(t, e, http.MethodPost, "/api/auth/init", api.InitPairingRequest{DeviceID: "device-1"}, nil)
	initResp := decode[api.InitPairingResponse](t, rec)

	doJSON(t, e, http.MethodPost, "/api/auth/register-email", api.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "s3cret",
		WebToken: initResp.Token,
	}, nil)

	rec = doJSON(t, e, http.MethodPost, "/api/auth/finalize", api.FinalizeRequest{Token: initResp.Token, DeviceID: "device-2"}, nil)
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestFinalize_UnknownToken(t *testing.T) {
	e := newTestServer(t)

	rec := doJSON(t, e, http.MethodPost, "/api/auth/finalize", api.FinalizeRequest{Token: "glp_bogus", DeviceID: "device-1"}, nil)
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestRegister_Duplicate(t *testing.T) {
	e := newTestServer(t)

	body := api.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "s3cret"}
	rec := doJSON(t, e, http.MethodPost, "/api/auth/register-email", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, e, http.MethodPost, "/api/auth/register-email", body, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, api.ErrCodeUserExists, decode[api.ErrorResponse](t, rec).Error)
}

func TestLogin(t *testing.T) {
	e := newTestServer(t)

	doJSON(t, e, http.MethodPost, "/api/auth/register-email", api.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "s3cret",
	}, nil)

	rec := doJSON(t, e, http.MethodPost, "/api/auth/login-email", api.LoginRequest{
		Email: "alice@example.com", Password: "s3cret",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[api.AuthResponse](t, rec)
	assert.Equal(t, "alice", resp.Username)
	assert.NotEmpty(t, resp.Token)
	assert.False(t, resp.Linked)
}

func TestLogin_WrongPassword(t *testing.T) {
	e := newTestServer(t)

	doJSON(t, e, http.MethodPost, "/api/auth/register-email", api.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "s3cret",
	}, nil)

	rec := doJSON(t, e, http.MethodPost, "/api/auth/login-email", api.LoginRequest{
		Email: "alice@example.com", Password: "wrong",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, api.ErrCodeInvalidCredentials, decode[api.ErrorResponse](t, rec).Error)
}

func TestSessionValidate_MissingToken(t *testing.T) {
	e := newTestServer(t)

	rec := doJSON(t, e, http.MethodGet, "/api/session/validate", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionValidate_UnknownToken(t *testing.T) {
	e := newTestServer(t)

	header := http.Header{}
	header.Set(echo.HeaderAuthorization, "Bearer gls_bogus")
	rec := doJSON(t, e, http.MethodGet, "/api/session/validate", nil, header)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOAuthRedirect_UnknownProvider(t *testing.T) {
	e := newTestServer(t)

	rec := doJSON(t, e, http.MethodGet, "/api/auth/oauth/unknown", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
