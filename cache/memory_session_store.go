package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"go.pilab.hu/gamelink/domain"
)

// MemorySessionStore implements domain.DeviceSessionRepository using
// ttlcache. Sessions are write-once, so no locking beyond the cache's own is
// needed.
type MemorySessionStore struct {
	sessions *ttlcache.Cache[string, *domain.DeviceSession]
}

// NewMemorySessionStore creates an in-memory device session store.
func NewMemorySessionStore() *MemorySessionStore {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, *domain.DeviceSession](),
	)
	go cache.Start()

	return &MemorySessionStore{sessions: cache}
}

// Store implements domain.DeviceSessionRepository.
func (s *MemorySessionStore) Store(_ context.Context, session *domain.DeviceSession) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	cp := *session
	s.sessions.Set(session.SessionToken, &cp, time.Until(session.ExpiresAt))
	return nil
}

// GetByToken implements domain.DeviceSessionRepository.
func (s *MemorySessionStore) GetByToken(_ context.Context, sessionToken string) (*domain.DeviceSession, error) {
	item := s.sessions.Get(sessionToken)
	if item == nil {
		return nil, domain.ErrSessionNotFound
	}
	cp := *item.Value()
	return &cp, nil
}

// DeleteExpired implements domain.DeviceSessionRepository.
func (s *MemorySessionStore) DeleteExpired(_ context.Context) error {
	s.sessions.DeleteExpired()
	return nil
}

// Close stops the cleanup goroutine.
func (s *MemorySessionStore) Close() error {
	s.sessions.Stop()
	return nil
}

var _ domain.DeviceSessionRepository = (*MemorySessionStore)(nil)
