package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"go.pilab.hu/gamelink/domain"
)

// SessionService validates device session tokens for the game server. It
// checks a cache first and falls back to the durable store; cache problems
// are never fatal to validation.
type SessionService struct {
	sessions domain.DeviceSessionRepository
	cache    SessionCache
}

// NewSessionService creates a new SessionService. cache may be nil, in which
// case every validation hits the store.
func NewSessionService(sessions domain.DeviceSessionRepository, cache SessionCache) *SessionService {
	return &SessionService{
		sessions: sessions,
		cache:    cache,
	}
}

// Validate resolves a device session token. Returns ErrSessionNotFound for
// unknown tokens and ErrSessionExpired for known-but-stale ones.
func (s *SessionService) Validate(ctx context.Context, sessionToken string) (*domain.DeviceSession, error) {
	if sessionToken == "" {
		return nil, domain.ErrInvalidInput
	}
	now := time.Now().UTC()

	if s.cache != nil {
		if session, ok := s.cache.Get(ctx, sessionToken); ok {
			if session.Expired(now) {
				return nil, domain.ErrSessionExpired
			}
			return session, nil
		}
	}

	session, err := s.sessions.GetByToken(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	if session.Expired(now) {
		return nil, domain.ErrSessionExpired
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, session); err != nil {
			log.Warn().Err(err).Msg("Validate: failed to cache device session")
		}
	}

	return session, nil
}
