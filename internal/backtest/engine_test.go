package backtest

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/arbengine/arbengine/internal/domain"
	"github.com/arbengine/arbengine/internal/signal/friction"
)

func bookAt(t time.Time, askPrice, bidPrice float64) (domain.BookSnapshot, domain.BookSnapshot) {
	primary := domain.BookSnapshot{
		Timestamp: t,
		Asks:      []domain.BookLevel{{Price: decimal.NewFromFloat(askPrice), Size: decimal.NewFromInt(1000)}},
	}
	hedge := domain.BookSnapshot{
		Timestamp: t,
		Bids:      []domain.BookLevel{{Price: decimal.NewFromFloat(bidPrice), Size: decimal.NewFromInt(1000)}},
	}
	return primary, hedge
}

func TestEngine_Run_OpensTradeWhenEdgeClearsThreshold(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	primary1, hedge1 := bookAt(base, 0.55, 0.60) // 5c edge
	primary2, hedge2 := bookAt(base.Add(time.Minute), 0.55, 0.56) // 1c edge, below threshold

	legs := [2]friction.Leg{{Pack: friction.Pack{}}, {Pack: friction.Pack{}}}
	engine := NewEngine(legs, 2.5, 100, zerolog.Nop())

	result := engine.Run([]PairSnapshots{{
		PairID:  "pair-1",
		Primary: []domain.BookSnapshot{primary1, primary2},
		Hedge:   []domain.BookSnapshot{hedge1, hedge2},
	}})

	require.Len(t, result.Trades, 1)
	require.InDelta(t, 5.0, result.Trades[0].EntryEdgeCents, 1e-9)
	require.Equal(t, 1, result.Metrics.TotalTrades)
}

func TestEngine_Run_EmptySnapshotsYieldsNoTrades(t *testing.T) {
	legs := [2]friction.Leg{{Pack: friction.Pack{}}, {Pack: friction.Pack{}}}
	engine := NewEngine(legs, 2.5, 100, zerolog.Nop())
	result := engine.Run(nil)
	require.Empty(t, result.Trades)
	require.Equal(t, 0, result.Metrics.TotalTrades)
}

func TestCalculateMetrics_HitRateAndDrawdown(t *testing.T) {
	trades := []Trade{
		{Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), PnLCents: 100, EntryEdgeCents: 5, SizeUSD: 100},
		{Timestamp: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), PnLCents: -50, EntryEdgeCents: 3, SizeUSD: 100},
		{Timestamp: time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC), PnLCents: 200, EntryEdgeCents: 6, SizeUSD: 100},
	}
	metrics := calculateMetrics(trades)
	require.Equal(t, 3, metrics.TotalTrades)
	require.Equal(t, 2, metrics.WinningTrades)
	require.Equal(t, 1, metrics.LosingTrades)
	require.InDelta(t, 2.0/3.0, metrics.HitRate, 1e-9)
	require.InDelta(t, -50, metrics.MaxDrawdownCents, 1e-9)
}
