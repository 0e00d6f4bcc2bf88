package echo

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.pilab.hu/gamelink/domain"
)

// In-memory repositories backing the HTTP tests. They enforce the same
// uniqueness rules as the Mongo implementations.

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
	seq   int
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*domain.User)}
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, user.Email) || strings.EqualFold(existing.Username, user.Username) {
			return domain.ErrUserExists
		}
	}
	r.seq++
	user.ID = fmt.Sprintf("user-%d", r.seq)
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	r.users[user.ID] = user
	return nil
}

type memOAuthRepo struct {
	mu    sync.Mutex
	links map[string]*domain.UserOAuthLink
}

func newMemOAuthRepo() *memOAuthRepo {
	return &memOAuthRepo{links: make(map[string]*domain.UserOAuthLink)}
}

func oauthKey(providerName, providerUserID string) string {
	return providerName + "/" + providerUserID
}

func (r *memOAuthRepo) Create(_ context.Context, link *domain.UserOAuthLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links[oauthKey(link.ProviderName, link.ProviderUserID)] = link
	return nil
}

func (r *memOAuthRepo) GetByProviderKey(_ context.Context, providerName, providerUserID string) (*domain.UserOAuthLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	link, ok := r.links[oauthKey(providerName, providerUserID)]
	if !ok {
		return nil, domain.ErrOAuthLinkNotFound
	}
	return link, nil
}

var (
	_ domain.UserRepository      = (*memUserRepo)(nil)
	_ domain.UserOAuthRepository = (*memOAuthRepo)(nil)
)
