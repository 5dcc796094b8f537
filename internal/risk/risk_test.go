package risk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arbengine/arbengine/internal/domain"
)

func TestApprove_RejectsWhenWouldExceedVenueCap(t *testing.T) {
	store := NewMemStore()
	store.IncrementIfWithinCap(context.Background(), domain.VenueA, 4900, -1) // seed current exposure, cap disabled for seeding
	m := NewManager(store, Config{VenueCapUSD: 5000, PerContractLimitUSD: 5000, MaxConcurrentPairs: 5})

	decision, err := m.Approve(context.Background(), domain.ExecutionIntent{}, domain.VenueA, 200)
	require.NoError(t, err)
	require.False(t, decision.Approved)

	current, err := store.CurrentExposure(context.Background(), domain.VenueA)
	require.NoError(t, err)
	require.InDelta(t, 4900, current, 1e-9)
}

func TestApprove_RejectsAbovePerContractLimit(t *testing.T) {
	store := NewMemStore()
	m := NewManager(store, DefaultConfig())

	decision, err := m.Approve(context.Background(), domain.ExecutionIntent{}, domain.VenueA, 300)
	require.NoError(t, err)
	require.False(t, decision.Approved)
	require.Contains(t, decision.Reason, "per-contract limit")
}

func TestApprove_RejectsAtMaxConcurrentPairs(t *testing.T) {
	store := NewMemStore()
	for i := 0; i < 5; i++ {
		store.IncrementActivePairs(context.Background(), 1)
	}
	m := NewManager(store, DefaultConfig())

	decision, err := m.Approve(context.Background(), domain.ExecutionIntent{}, domain.VenueA, 100)
	require.NoError(t, err)
	require.False(t, decision.Approved)
	require.Contains(t, decision.Reason, "concurrent")
}

func TestApprove_ApprovesWithinAllCaps(t *testing.T) {
	store := NewMemStore()
	m := NewManager(store, DefaultConfig())

	decision, err := m.Approve(context.Background(), domain.ExecutionIntent{}, domain.VenueA, 100)
	require.NoError(t, err)
	require.True(t, decision.Approved)

	current, err := store.CurrentExposure(context.Background(), domain.VenueA)
	require.NoError(t, err)
	require.InDelta(t, 100, current, 1e-9)
}

func TestMemStore_ConcurrentIncrementsStayUnderCap(t *testing.T) {
	store := NewMemStore()
	var approvedCount int
	done := make(chan bool, 60)
	for i := 0; i < 60; i++ {
		go func() {
			_, ok, _ := store.IncrementIfWithinCap(context.Background(), domain.VenueA, 100, 5000)
			done <- ok
		}()
	}
	for i := 0; i < 60; i++ {
		if <-done {
			approvedCount++
		}
	}
	require.Equal(t, 50, approvedCount) // exactly 5000/100 approvals fit under the cap

	current, _ := store.CurrentExposure(context.Background(), domain.VenueA)
	require.InDelta(t, 5000, current, 1e-9)
}
