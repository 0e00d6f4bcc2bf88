package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog/log"

	"go.pilab.hu/gamelink/domain"
)

// MemoryPairingStore implements domain.PairingTokenRepository using ttlcache.
// It is the store used in tests and single-node development setups. The
// mutex is the in-process stand-in for the transactional boundary the Mongo
// store gets from its CAS updates: every read-check-write runs under it, so
// concurrent LinkUser/Consume calls on the same token serialize here too.
type MemoryPairingStore struct {
	mu     sync.Mutex
	tokens *ttlcache.Cache[string, *domain.PairingToken]
}

// NewMemoryPairingStore creates an in-memory pairing token store with
// automatic expiry cleanup.
func NewMemoryPairingStore() *MemoryPairingStore {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, *domain.PairingToken](),
	)
	go cache.Start()

	return &MemoryPairingStore{tokens: cache}
}

// Create implements domain.PairingTokenRepository.
func (s *MemoryPairingStore) Create(_ context.Context, token *domain.PairingToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	cp := *token
	s.tokens.Set(token.Token, &cp, time.Until(token.ExpiresAt))
	return nil
}

// FindByToken implements domain.PairingTokenRepository.
func (s *MemoryPairingStore) FindByToken(_ context.Context, token string) (*domain.PairingToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.tokens.Get(token)
	if item == nil {
		return nil, domain.ErrTokenInvalid
	}
	cp := *item.Value()
	return &cp, nil
}

// LinkUser implements domain.PairingTokenRepository. Last writer wins on
// re-link, matching the durable store.
func (s *MemoryPairingStore) LinkUser(_ context.Context, token, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.tokens.Get(token)
	if item == nil {
		return domain.ErrTokenInvalid
	}
	t := item.Value()
	if !t.Usable(time.Now().UTC()) {
		return domain.ErrTokenInvalid
	}
	if t.LinkedUserID != "" && t.LinkedUserID != userID {
		log.Warn().
			Str("previous_user_id", t.LinkedUserID).
			Str("user_id", userID).
			Msg("Pairing token re-linked to a different user before consumption")
	}
	t.LinkedUserID = userID
	return nil
}

// Consume implements domain.PairingTokenRepository. Exactly one call can
// succeed per token; the mutex makes the check-and-flip atomic.
func (s *MemoryPairingStore) Consume(_ context.Context, token, deviceID string) (*domain.PairingToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.tokens.Get(token)
	if item == nil {
		return nil, domain.ErrTokenInvalid
	}
	t := item.Value()
	if t.DeviceID != deviceID || !t.Usable(time.Now().UTC()) {
		return nil, domain.ErrTokenInvalid
	}
	if !t.Linked() {
		return nil, domain.ErrPairingNotReady
	}
	t.Consumed = true
	cp := *t
	return &cp, nil
}

// DeleteExpired implements domain.PairingTokenRepository. ttlcache evicts on
// its own; this just forces a pass.
func (s *MemoryPairingStore) DeleteExpired(_ context.Context) error {
	s.tokens.DeleteExpired()
	return nil
}

// Close stops the cleanup goroutine.
func (s *MemoryPairingStore) Close() error {
	s.tokens.Stop()
	return nil
}

var _ domain.PairingTokenRepository = (*MemoryPairingStore)(nil)
