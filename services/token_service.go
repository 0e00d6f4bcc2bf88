package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"go.pilab.hu/gamelink/domain"
)

// Token prefixes keep the pairing and session namespaces visibly distinct; a
// pairing token pasted where a session token belongs fails loudly.
const (
	pairingTokenPrefix = "glp_"
	sessionTokenPrefix = "gls_"
)

// BrowserClaims is the claim set of the JWT issued to the browser after a
// successful login or registration.
type BrowserClaims struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenService mints every credential in the system: pairing tokens, device
// session tokens and browser JWTs. All signing material and TTL policy is
// handed in at construction; nothing is read from ambient process state.
type TokenService struct {
	jwtSecret  []byte
	issuer     string
	jwtTTL     time.Duration
	pairingTTL time.Duration
	sessionTTL time.Duration
}

// NewTokenService creates a new TokenService.
func NewTokenService(jwtSecret, issuer string, jwtTTL, pairingTTL, sessionTTL time.Duration) *TokenService {
	return &TokenService{
		jwtSecret:  []byte(jwtSecret),
		issuer:     issuer,
		jwtTTL:     jwtTTL,
		pairingTTL: pairingTTL,
		sessionTTL: sessionTTL,
	}
}

// NewPairingToken mints a fresh unguessable pairing token for deviceID.
// The caller persists it.
func (s *TokenService) NewPairingToken(deviceID string) *domain.PairingToken {
	now := time.Now().UTC()
	return &domain.PairingToken{
		Token:     pairingTokenPrefix + uuid.NewString(),
		DeviceID:  deviceID,
		Consumed:  false,
		ExpiresAt: now.Add(s.pairingTTL),
		CreatedAt: now,
	}
}

// NewDeviceSession mints a fresh device session for userID. The caller
// persists it.
func (s *TokenService) NewDeviceSession(userID string) *domain.DeviceSession {
	now := time.Now().UTC()
	return &domain.DeviceSession{
		SessionToken: sessionTokenPrefix + uuid.NewString(),
		UserID:       userID,
		ExpiresAt:    now.Add(s.sessionTTL),
		CreatedAt:    now,
	}
}

// NewBrowserJWT signs a short-lived JWT for the browser session.
func (s *TokenService) NewBrowserJWT(user *domain.User) (string, error) {
	now := time.Now().UTC()
	claims := BrowserClaims{
		Username: user.Username,
		Email:    user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign browser JWT: %w", err)
	}
	return signed, nil
}

// ParseBrowserJWT validates a browser JWT and returns its claims.
func (s *TokenService) ParseBrowserJWT(tokenString string) (*BrowserClaims, error) {
	claims := &BrowserClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return s.jwtSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid browser JWT: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid browser JWT")
	}
	return claims, nil
}
