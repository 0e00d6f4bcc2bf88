package federation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateStore_BeginRedeem(t *testing.T) {
	store := NewStateStore(time.Minute)
	t.Cleanup(func() { _ = store.Close() })

	state := store.Begin(FlowState{WebToken: "glp_abc"})
	require.NotEmpty(t, state)

	flow, err := store.Redeem(state)
	require.NoError(t, err)
	assert.Equal(t, "glp_abc", flow.WebToken)
}

func TestStateStore_RedeemIsSingleUse(t *testing.T) {
	store := NewStateStore(time.Minute)
	t.Cleanup(func() { _ = store.Close() })

	state := store.Begin(FlowState{})
	_, err := store.Redeem(state)
	require.NoError(t, err)

	_, err = store.Redeem(state)
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestStateStore_UnknownState(t *testing.T) {
	store := NewStateStore(time.Minute)
	t.Cleanup(func() { _ = store.Close() })

	_, err := store.Redeem("never-issued")
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestStateStore_Expiry(t *testing.T) {
	store := NewStateStore(20 * time.Millisecond)
	t.Cleanup(func() { _ = store.Close() })

	state := store.Begin(FlowState{WebToken: "glp_abc"})
	time.Sleep(50 * time.Millisecond)

	_, err := store.Redeem(state)
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestStateStore_DistinctStates(t *testing.T) {
	store := NewStateStore(time.Minute)
	t.Cleanup(func() { _ = store.Close() })

	first := store.Begin(FlowState{WebToken: "glp_1"})
	second := store.Begin(FlowState{WebToken: "glp_2"})
	assert.NotEqual(t, first, second)

	flow, err := store.Redeem(second)
	require.NoError(t, err)
	assert.Equal(t, "glp_2", flow.WebToken)
}
