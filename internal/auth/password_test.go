package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go.pilab.hu/gamelink/domain"
)

func TestHasher_RoundTrip(t *testing.T) {
	hasher := NewHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("s3cret")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "s3cret", hash)

	assert.NoError(t, hasher.Verify(hash, "s3cret"))
	assert.ErrorIs(t, hasher.Verify(hash, "wrong"), domain.ErrInvalidCredentials)
}

func TestHasher_CostClamping(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(0).Cost())
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(-5).Cost())
	assert.Equal(t, bcrypt.MinCost, NewHasher(1).Cost())
	assert.Equal(t, bcrypt.MaxCost, NewHasher(99).Cost())
	assert.Equal(t, 12, NewHasher(12).Cost())
}

func TestHasher_OverlongPassword(t *testing.T) {
	hasher := NewHasher(bcrypt.MinCost)

	_, err := hasher.Hash(strings.Repeat("x", maxPasswordBytes+1))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// Exactly at the limit is fine.
	hash, err := hasher.Hash(strings.Repeat("x", maxPasswordBytes))
	require.NoError(t, err)
	assert.NoError(t, hasher.Verify(hash, strings.Repeat("x", maxPasswordBytes)))
}

func TestHasher_MalformedHash(t *testing.T) {
	hasher := NewHasher(bcrypt.MinCost)

	err := hasher.Verify("not-a-bcrypt-hash", "anything")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestHasher_DistinctHashes(t *testing.T) {
	hasher := NewHasher(bcrypt.MinCost)

	first, err := hasher.Hash("same-password")
	require.NoError(t, err)
	second, err := hasher.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "bcrypt salts each hash")
}
