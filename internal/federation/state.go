package federation

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
)

var ErrStateNotFound = errors.New("oauth state not found or expired")

// FlowState is what the redirect to the provider must carry across the
// round trip: which pairing token (if any) to link after the callback.
type FlowState struct {
	WebToken string
}

// StateStore holds short-lived CSRF state for in-flight OAuth redirects.
// Each state value is single-use: the callback consumes it.
type StateStore struct {
	states *ttlcache.Cache[string, FlowState]
}

// NewStateStore creates a StateStore whose entries expire after ttl.
func NewStateStore(ttl time.Duration) *StateStore {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, FlowState](ttl),
		ttlcache.WithDisableTouchOnHit[string, FlowState](),
	)
	go cache.Start()

	return &StateStore{states: cache}
}

// Begin mints a state value for a new redirect and remembers its flow data.
func (s *StateStore) Begin(flow FlowState) string {
	state := uuid.NewString()
	s.states.Set(state, flow, ttlcache.DefaultTTL)
	return state
}

// Redeem consumes a state value, returning its flow data. A second redeem of
// the same value fails.
func (s *StateStore) Redeem(state string) (FlowState, error) {
	item := s.states.Get(state)
	if item == nil {
		return FlowState{}, ErrStateNotFound
	}
	s.states.Delete(state)
	return item.Value(), nil
}

// Close stops the cleanup goroutine.
func (s *StateStore) Close() error {
	s.states.Stop()
	return nil
}
