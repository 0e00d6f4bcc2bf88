package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"go.pilab.hu/gamelink/domain"
	"go.pilab.hu/gamelink/internal/federation"
)

// RegisterInput carries an email registration request. WebToken is the
// optional pairing token from the device login URL.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	WebToken string
}

// LoginInput carries an email login request.
type LoginInput struct {
	Email    string
	Password string
	WebToken string
}

// AuthResult is the browser-facing outcome of a register, login or OAuth
// completion. Linked reports whether a pairing token was attached to the
// authenticated user during the call.
type AuthResult struct {
	User   *domain.User
	JWT    string
	Linked bool
}

// AuthService owns the browser side of authentication: email registration,
// email login and OAuth completion. After the credential check it hands the
// resolved user id to the HandshakeService when a pairing token rode along.
type AuthService struct {
	users     domain.UserRepository
	links     domain.UserOAuthRepository
	hasher    PasswordHasher
	tokens    *TokenService
	handshake *HandshakeService
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	users domain.UserRepository,
	links domain.UserOAuthRepository,
	hasher PasswordHasher,
	tokens *TokenService,
	handshake *HandshakeService,
) *AuthService {
	return &AuthService{
		users:     users,
		links:     links,
		hasher:    hasher,
		tokens:    tokens,
		handshake: handshake,
	}
}

// RegisterWithEmail creates a new account. The pairing link is optional and
// never fails the registration itself.
func (s *AuthService) RegisterWithEmail(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", domain.ErrInvalidInput)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		log.Error().Err(err).Msg("RegisterWithEmail: password hashing failed")
		return nil, err
	}

	user := &domain.User{
		Username:     in.Username,
		Email:        strings.ToLower(in.Email),
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if !errors.Is(err, domain.ErrUserExists) {
			log.Error().Err(err).Str("email", user.Email).Msg("RegisterWithEmail: failed to create user")
		}
		return nil, err
	}
	log.Info().Str("userID", user.ID).Str("email", user.Email).Msg("User registered")

	return s.finishBrowserAuth(ctx, user, in.WebToken)
}

// LoginWithEmail verifies credentials and issues a browser JWT. The pairing
// link is optional and never fails the login itself.
func (s *AuthService) LoginWithEmail(ctx context.Context, in LoginInput) (*AuthResult, error) {
	if in.Email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrInvalidInput)
	}

	user, err := s.users.GetByEmail(ctx, strings.ToLower(in.Email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if user.PasswordHash == "" {
		// OAuth-only account; no password to verify against.
		return nil, domain.ErrInvalidCredentials
	}
	if err := s.hasher.Verify(user.PasswordHash, in.Password); err != nil {
		log.Warn().Str("userID", user.ID).Msg("LoginWithEmail: incorrect password")
		return nil, domain.ErrInvalidCredentials
	}

	now := time.Now().UTC()
	user.LastLoginAt = &now
	if err := s.users.Update(ctx, user); err != nil {
		log.Warn().Err(err).Str("userID", user.ID).Msg("LoginWithEmail: failed to update last login time")
	}

	return s.finishBrowserAuth(ctx, user, in.WebToken)
}

// CompleteOAuth resolves an external identity to a local account, creating
// the account and the provider link on first sight, then finishes like an
// email login.
func (s *AuthService) CompleteOAuth(ctx context.Context, providerName string, info *federation.UserInfo, webToken string) (*AuthResult, error) {
	if providerName == "" || info == nil || info.ProviderUserID == "" {
		return nil, fmt.Errorf("%w: provider identity is required", domain.ErrInvalidInput)
	}

	user, err := s.resolveOAuthUser(ctx, providerName, info)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user.LastLoginAt = &now
	if err := s.users.Update(ctx, user); err != nil {
		log.Warn().Err(err).Str("userID", user.ID).Msg("CompleteOAuth: failed to update last login time")
	}

	return s.finishBrowserAuth(ctx, user, webToken)
}

func (s *AuthService) resolveOAuthUser(ctx context.Context, providerName string, info *federation.UserInfo) (*domain.User, error) {
	link, err := s.links.GetByProviderKey(ctx, providerName, info.ProviderUserID)
	if err == nil {
		return s.users.GetByID(ctx, link.UserID)
	}
	if !errors.Is(err, domain.ErrOAuthLinkNotFound) {
		return nil, err
	}

	user := &domain.User{
		Username: oauthUsername(info),
		Email:    strings.ToLower(info.Email),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if !errors.Is(err, domain.ErrUserExists) {
			return nil, err
		}
		// Username taken; retry once with a random suffix. Email conflicts
		// surface to the caller: the account exists with a password and the
		// user should log in with it instead.
		user.Username = user.Username + "-" + uuid.NewString()[:8]
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
	}

	newLink := &domain.UserOAuthLink{
		UserID:         user.ID,
		ProviderName:   providerName,
		ProviderUserID: info.ProviderUserID,
		ProviderEmail:  info.Email,
	}
	if err := s.links.Create(ctx, newLink); err != nil {
		log.Error().Err(err).Str("provider", providerName).Str("userID", user.ID).Msg("CompleteOAuth: failed to store oauth link")
		return nil, err
	}

	log.Info().Str("userID", user.ID).Str("provider", providerName).Msg("User created from external identity")
	return user, nil
}

// finishBrowserAuth attaches the pairing token when present and signs the
// browser JWT. Link failures are reported in the result, not as errors: the
// browser login itself succeeded.
func (s *AuthService) finishBrowserAuth(ctx context.Context, user *domain.User, webToken string) (*AuthResult, error) {
	linked := false
	if webToken != "" {
		if err := s.handshake.CompleteWithIdentity(ctx, webToken, user.ID); err != nil {
			log.Warn().Err(err).Str("userID", user.ID).Msg("Pairing link failed during browser auth")
		} else {
			linked = true
		}
	}

	token, err := s.tokens.NewBrowserJWT(user)
	if err != nil {
		log.Error().Err(err).Str("userID", user.ID).Msg("Failed to issue browser JWT")
		return nil, err
	}

	return &AuthResult{User: user, JWT: token, Linked: linked}, nil
}

func oauthUsername(info *federation.UserInfo) string {
	if info.Username != "" {
		return info.Username
	}
	if at := strings.IndexByte(info.Email, '@'); at > 0 {
		return info.Email[:at]
	}
	return "player-" + uuid.NewString()[:8]
}
