package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.pilab.hu/gamelink/cache"
	"go.pilab.hu/gamelink/domain"
)

type handshakeFixture struct {
	pairings  *cache.MemoryPairingStore
	sessions  *cache.MemorySessionStore
	users     *stubUserRepo
	handshake *HandshakeService
}

// stubUserRepo is a minimal in-memory user repository for handshake tests.
type stubUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == "" {
		user.ID = fmt.Sprintf("user-%d", len(r.users)+1)
	}
	r.users[user.ID] = user
	return nil
}

func (r *stubUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (r *stubUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func newHandshakeFixture(t *testing.T) *handshakeFixture {
	t.Helper()

	pairings := cache.NewMemoryPairingStore()
	sessions := cache.NewMemorySessionStore()
	t.Cleanup(func() {
		_ = pairings.Close()
		_ = sessions.Close()
	})

	users := newStubUserRepo()
	tokens := NewTokenService("test-secret", "gamelink-test", time.Hour, 5*time.Minute, 24*time.Hour)
	handshake := NewHandshakeService(pairings, sessions, users, tokens, "https://play.example.com")

	return &handshakeFixture{
		pairings:  pairings,
		sessions:  sessions,
		users:     users,
		handshake: handshake,
	}
}

func TestHandshakeService_StartPairing(t *testing.T) {
	f := newHandshakeFixture(t)
	ctx := context.Background()

	token, authURL, err := f.handshake.StartPairing(ctx, "device-1")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(token.Token, "glp_"))
	assert.Equal(t, "device-1", token.DeviceID)
	assert.False(t, token.Consumed)
	assert.WithinDuration(t, time.Now().UTC().Add(5*time.Minute), token.ExpiresAt, 5*time.Second)
	assert.Equal(t, "https://play.example.com/login?token="+token.Token, authURL)

	stored, err := f.pairings.FindByToken(ctx, token.Token)
	require.NoError(t, err)
	assert.Equal(t, "device-1", stored.DeviceID)
}

func TestHandshakeService_StartPairing_EmptyDeviceID(t *testing.T) {
	f := newHandshakeFixture(t)

	_, _, err := f.handshake.StartPairing(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestHandshakeService_FullHandshake(t *testing.T) {
	f := newHandshakeFixture(t)
	ctx := context.Background()

	user := &domain.User{Username: "alice", Email: "alice@example.com"}
	require.NoError(t, f.users.Create(ctx, user))

	token, _, err := f.handshake.StartPairing(ctx, "device-1")
	require.NoError(t, err)

	// Device polls before the browser login completes.
	result, err := f.handshake.Poll(ctx, token.Token, "device-1")
	require.NoError(t, err)
	assert.Equal(t, PollPending, result.Status)
	assert.Nil(t, result.Session)

	// Browser login links the user.
	require.NoError(t, f.handshake.CompleteWithIdentity(ctx, token.Token, user.ID))

	// Next poll finalizes.
	result, err = f.handshake.Poll(ctx, token.Token, "device-1")
	require.NoError(t, err)
	assert.Equal(t, PollReady, result.Status)
	require.NotNil(t, result.Session)
	assert.True(t, strings.HasPrefix(result.Session.SessionToken, "gls_"))
	assert.Equal(t, user.ID, result.Session.UserID)
	assert.Equal(t, "alice", result.Username)
	assert.WithinDuration(t, time.Now().UTC().Add(24*time.Hour), result.Session.ExpiresAt, 5*time.Second)

	// The session is retrievable from the session store.
	session, err := f.sessions.GetByToken(ctx, result.Session.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.UserID)

	// The pairing token is spent for good.
	_, err = f.handshake.Poll(ctx, token.Token, "device-1")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestHandshakeService_Poll_WrongDevice(t *testing.T) {
	f := newHandshakeFixture(t)
	ctx := context.Background()

	token, _, err := f.handshake.StartPairing(ctx, "device-1")
	require.NoError(t, err)
	require.NoError(t, f.handshake.CompleteWithIdentity(ctx, token.Token, "user-1"))

	_, err = f.handshake.Poll(ctx, token.Token, "device-2")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestHandshakeService_Poll_UnknownToken(t *testing.T) {
	f := newHandshakeFixture(t)

	_, err := f.handshake.Poll(context.Background(), "glp_unknown", "device-1")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestHandshakeService_Poll_EmptyInput(t *testing.T) {
	f := newHandshakeFixture(t)
	ctx := context.Background()

	_, err := f.handshake.Poll(ctx, "", "device-1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.handshake.Poll(ctx, "glp_token", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestHandshakeService_CompleteWithIdentity_EmptyInput(t *testing.T) {
	f := newHandshakeFixture(t)
	ctx := context.Background()

	err := f.handshake.CompleteWithIdentity(ctx, "", "user-1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = f.handshake.CompleteWithIdentity(ctx, "glp_token", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestHandshakeService_CompleteWithIdentity_UnknownToken(t *testing.T) {
	f := newHandshakeFixture(t)

	err := f.handshake.CompleteWithIdentity(context.Background(), "glp_unknown", "user-1")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestHandshakeService_RelinkBeforePoll(t *testing.T) {
	f := newHandshakeFixture(t)
	ctx := context.Background()

	alice := &domain.User{Username: "alice", Email: "alice@example.com"}
	bob := &domain.User{Username: "bob", Email: "bob@example.com"}
	require.NoError(t, f.users.Create(ctx, alice))
	require.NoError(t, f.users.Create(ctx, bob))

	token, _, err := f.handshake.StartPairing(ctx, "device-1")
	require.NoError(t, err)

	require.NoError(t, f.handshake.CompleteWithIdentity(ctx, token.Token, alice.ID))
	require.NoError(t, f.handshake.CompleteWithIdentity(ctx, token.Token, bob.ID))

	result, err := f.handshake.Poll(ctx, token.Token, "device-1")
	require.NoError(t, err)
	assert.Equal(t, PollReady, result.Status)
	assert.Equal(t, bob.ID, result.Session.UserID)
	assert.Equal(t, "bob", result.Username)
}

func TestHandshakeService_ConcurrentPolls(t *testing.T) {
	f := newHandshakeFixture(t)
	ctx := context.Background()

	token, _, err := f.handshake.StartPairing(ctx, "device-1")
	require.NoError(t, err)
	require.NoError(t, f.handshake.CompleteWithIdentity(ctx, token.Token, "user-1"))

	const pollers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ready   int
		invalid int
	)
	start := make(chan struct{})

	for i := 0; i < pollers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			result, err := f.handshake.Poll(ctx, token.Token, "device-1")
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				invalid++
				return
			}
			if result.Status == PollReady {
				ready++
			}
		}()
	}

	close(start)
	wg.Wait()

	assert.Equal(t, 1, ready, "exactly one poll may finalize")
	assert.Equal(t, pollers-1, invalid)
}
