package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/rs/zerolog/log"

	"go.pilab.hu/gamelink/domain"
)

// PollStatus is the outcome of a device poll.
type PollStatus string

const (
	// PollPending means the user has not completed the browser login yet.
	// The device keeps polling.
	PollPending PollStatus = "pending"
	// PollReady means the handshake completed and a device session was
	// issued. The pairing token is spent.
	PollReady PollStatus = "ready"
)

// PollResult carries the outcome of a device poll. Session and Username are
// set only when Status is PollReady.
type PollResult struct {
	Status   PollStatus
	Session  *domain.DeviceSession
	Username string
}

// HandshakeService coordinates the cross-device authentication handshake:
// it creates pairing tokens for devices, links them to browser-authenticated
// users and finalizes them into device sessions. All state lives in the
// pairing store; the service holds policy only, so it is safe to call from
// any number of concurrent request handlers.
type HandshakeService struct {
	pairings    domain.PairingTokenRepository
	sessions    domain.DeviceSessionRepository
	users       domain.UserRepository
	tokens      *TokenService
	frontendURL string
}

// NewHandshakeService creates a new HandshakeService. frontendURL is the
// browser login page the device shows to the user (as URL or QR code).
func NewHandshakeService(
	pairings domain.PairingTokenRepository,
	sessions domain.DeviceSessionRepository,
	users domain.UserRepository,
	tokens *TokenService,
	frontendURL string,
) *HandshakeService {
	return &HandshakeService{
		pairings:    pairings,
		sessions:    sessions,
		users:       users,
		tokens:      tokens,
		frontendURL: frontendURL,
	}
}

// StartPairing mints a pairing token for deviceID and returns it together
// with the browser URL that completes the handshake.
func (s *HandshakeService) StartPairing(ctx context.Context, deviceID string) (*domain.PairingToken, string, error) {
	if deviceID == "" {
		return nil, "", fmt.Errorf("%w: device id is required", domain.ErrInvalidInput)
	}

	token := s.tokens.NewPairingToken(deviceID)
	if err := s.pairings.Create(ctx, token); err != nil {
		log.Error().Err(err).Str("deviceID", deviceID).Msg("StartPairing: failed to store pairing token")
		return nil, "", err
	}

	authURL := fmt.Sprintf("%s/login?token=%s", s.frontendURL, url.QueryEscape(token.Token))

	log.Debug().Str("deviceID", deviceID).Time("expiresAt", token.ExpiresAt).Msg("Pairing started")
	return token, authURL, nil
}

// CompleteWithIdentity links an authenticated user to a pairing token. It is
// called after the credential check (password or OAuth) has already
// succeeded. Calling it again with the same user is harmless; calling it
// with a different user overwrites the link (last writer wins).
func (s *HandshakeService) CompleteWithIdentity(ctx context.Context, token, userID string) error {
	if token == "" || userID == "" {
		return fmt.Errorf("%w: token and user id are required", domain.ErrInvalidInput)
	}

	if err := s.pairings.LinkUser(ctx, token, userID); err != nil {
		if !errors.Is(err, domain.ErrTokenInvalid) {
			log.Error().Err(err).Msg("CompleteWithIdentity: failed to link user to pairing token")
		}
		return err
	}

	log.Info().Str("userID", userID).Msg("Pairing token linked to user")
	return nil
}

// Poll is the device side of the handshake. While the browser login is
// outstanding it reports PollPending; the first poll after linking consumes
// the token, mints a device session and returns it. Every later poll gets
// domain.ErrTokenInvalid. Poll is safe to call at arbitrary frequency.
func (s *HandshakeService) Poll(ctx context.Context, token, deviceID string) (*PollResult, error) {
	if token == "" || deviceID == "" {
		return nil, fmt.Errorf("%w: token and device id are required", domain.ErrInvalidInput)
	}

	consumed, err := s.pairings.Consume(ctx, token, deviceID)
	if err != nil {
		if errors.Is(err, domain.ErrPairingNotReady) {
			return &PollResult{Status: PollPending}, nil
		}
		return nil, err
	}

	session := s.tokens.NewDeviceSession(consumed.LinkedUserID)
	if err := s.sessions.Store(ctx, session); err != nil {
		// The token is consumed but no session exists. A retry sees
		// ErrTokenInvalid and the device falls back to a fresh pairing,
		// which is the documented crash contract.
		log.Error().Err(err).
			Str("userID", consumed.LinkedUserID).
			Msg("Poll: pairing token consumed but session store failed")
		return nil, err
	}

	username := ""
	if user, err := s.users.GetByID(ctx, consumed.LinkedUserID); err == nil {
		username = user.Username
	} else {
		log.Warn().Err(err).Str("userID", consumed.LinkedUserID).Msg("Poll: could not resolve username for device session")
	}

	log.Info().
		Str("userID", consumed.LinkedUserID).
		Str("deviceID", deviceID).
		Time("expiresAt", session.ExpiresAt).
		Msg("Pairing handshake finalized, device session issued")

	return &PollResult{
		Status:   PollReady,
		Session:  session,
		Username: username,
	}, nil
}
