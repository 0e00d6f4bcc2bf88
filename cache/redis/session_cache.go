package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"go.pilab.hu/gamelink/cache"
	"go.pilab.hu/gamelink/domain"
)

// SessionCache is a read-through cache for device session validation backed
// by Redis. Sessions are immutable, so a cached entry is valid until its own
// expiry; the Redis key TTL matches the session expiry.
type SessionCache struct {
	client *redis.Client
	prefix string
}

// NewSessionCache creates a new SessionCache instance.
func NewSessionCache(client *redis.Client, prefix string) *SessionCache {
	return &SessionCache{
		client: client,
		prefix: prefix,
	}
}

func (c *SessionCache) redisKey(sessionToken string) string {
	return fmt.Sprintf("%s:session:%s", c.prefix, cache.HashKey(sessionToken))
}

// Get retrieves a cached session. A miss or a decode problem reports false;
// the caller falls back to the durable store.
func (c *SessionCache) Get(ctx context.Context, sessionToken string) (*domain.DeviceSession, bool) {
	data, err := c.client.Get(ctx, c.redisKey(sessionToken)).Bytes()
	if err != nil {
		return nil, false
	}

	var session domain.DeviceSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, false
	}
	return &session, true
}

// Set stores a session until its natural expiry. Already-expired sessions
// are not cached.
func (c *SessionCache) Set(ctx context.Context, session *domain.DeviceSession) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal device session: %w", err)
	}

	if err := c.client.Set(ctx, c.redisKey(session.SessionToken), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache device session in Redis: %w", err)
	}
	return nil
}
