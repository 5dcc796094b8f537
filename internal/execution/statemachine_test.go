package execution

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/arbengine/arbengine/internal/domain"
)

type fakeExecutor struct {
	venue         domain.Venue
	latency       time.Duration
	placeErr      error
	cancelCalls   []string
	orderCounter  int
}

func (f *fakeExecutor) Venue() domain.Venue { return f.venue }

func (f *fakeExecutor) PlaceOrder(ctx context.Context, intent domain.OrderIntent) (domain.OrderRecord, error) {
	select {
	case <-time.After(f.latency):
	case <-ctx.Done():
		return domain.OrderRecord{}, ctx.Err()
	}
	if f.placeErr != nil {
		return domain.OrderRecord{}, f.placeErr
	}
	f.orderCounter++
	return domain.OrderRecord{
		ID: intent.ClientOrderID, Venue: f.venue, MarketID: intent.MarketID,
		Side: intent.Side, Price: intent.Price, Quantity: intent.Size,
		VenueOrderID: "venue-order-1", Status: domain.OrderStatusPending,
	}, nil
}

func (f *fakeExecutor) CancelOrder(ctx context.Context, orderID string) error {
	f.cancelCalls = append(f.cancelCalls, orderID)
	return nil
}

func newIntent() domain.ExecutionIntent {
	return domain.ExecutionIntent{
		IntentID:     "intent-1",
		PrimaryOrder: domain.OrderIntent{Venue: domain.VenueA, MarketID: "m1", ClientOrderID: "co-1"},
		HedgeOrder:   domain.OrderIntent{Venue: domain.VenueB, MarketID: "m2", ClientOrderID: "co-2"},
	}
}

func TestExecute_SettlesWithinBudget(t *testing.T) {
	primary := &fakeExecutor{venue: domain.VenueA, latency: 20 * time.Millisecond}
	hedge := &fakeExecutor{venue: domain.VenueB, latency: 20 * time.Millisecond}
	coord := NewCoordinator(primary, hedge, Config{HedgeCompletionBudget: 250 * time.Millisecond, MaxAttempts: 1}, nil, zerolog.Nop())

	result := coord.Execute(context.Background(), newIntent())
	require.Equal(t, StateSettled, result.State)
	require.Empty(t, primary.cancelCalls)
	require.Empty(t, hedge.cancelCalls)
}

func TestExecute_FailsWhenHedgeExceedsBudget(t *testing.T) {
	primary := &fakeExecutor{venue: domain.VenueA, latency: 200 * time.Millisecond}
	hedge := &fakeExecutor{venue: domain.VenueB, latency: 100 * time.Millisecond}
	coord := NewCoordinator(primary, hedge, Config{HedgeCompletionBudget: 250 * time.Millisecond, MaxAttempts: 1}, nil, zerolog.Nop())

	result := coord.Execute(context.Background(), newIntent())
	require.Equal(t, StateFailed, result.State)
	require.Equal(t, "Hedge timeout exceeded", result.Reason)
	require.Contains(t, primary.cancelCalls, "venue-order-1")
}

func TestExecute_FailsWhenPrimaryRejected(t *testing.T) {
	primary := &fakeExecutor{venue: domain.VenueA, placeErr: errors.New("insufficient balance")}
	hedge := &fakeExecutor{venue: domain.VenueB}
	coord := NewCoordinator(primary, hedge, DefaultConfig(), nil, zerolog.Nop())

	result := coord.Execute(context.Background(), newIntent())
	require.Equal(t, StateFailed, result.State)
	require.Contains(t, result.Reason, "primary order rejected")
	require.Empty(t, hedge.cancelCalls)
}

func TestExecute_CancelsPrimaryWhenHedgeRejected(t *testing.T) {
	primary := &fakeExecutor{venue: domain.VenueA, latency: 10 * time.Millisecond}
	hedge := &fakeExecutor{venue: domain.VenueB, placeErr: errors.New("market closed")}
	coord := NewCoordinator(primary, hedge, DefaultConfig(), nil, zerolog.Nop())

	result := coord.Execute(context.Background(), newIntent())
	require.Equal(t, StateFailed, result.State)
	require.Contains(t, primary.cancelCalls, "venue-order-1")
}
