package aggregate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/arbengine/arbengine/internal/domain"
	"github.com/arbengine/arbengine/internal/signal/friction"
	"github.com/arbengine/arbengine/internal/signal/leadlag"
)

func lvl(price, size float64) domain.BookLevel {
	return domain.BookLevel{Price: decimal.NewFromFloat(price), Size: decimal.NewFromFloat(size)}
}

func TestComputeGross_BuyPrimarySellHedge(t *testing.T) {
	primary := domain.BookSnapshot{Asks: []domain.BookLevel{lvl(0.55, 100)}}
	hedge := domain.BookSnapshot{Bids: []domain.BookLevel{lvl(0.60, 100)}}

	result, ok := ComputeGross(primary, hedge)
	require.True(t, ok)
	require.Equal(t, domain.SideBuy, result.Side)
	require.InDelta(t, 5.0, result.EdgeCents, 1e-9)
}

func TestNetEdgeCents_SubtractsFrictionAndSlippageFromGross(t *testing.T) {
	net := NetEdgeCents(5.0, 0.5, 0.3)
	require.InDelta(t, 4.2, net, 1e-9)
}

func TestComputeGross_PicksLargerOfBothDirections(t *testing.T) {
	primary := domain.BookSnapshot{
		Asks: []domain.BookLevel{lvl(0.55, 100)},
		Bids: []domain.BookLevel{lvl(0.52, 100)},
	}
	hedge := domain.BookSnapshot{
		Asks: []domain.BookLevel{lvl(0.58, 100)},
		Bids: []domain.BookLevel{lvl(0.60, 100)},
	}
	// buy primary/sell hedge: 0.60-0.55 = 0.05 -> 5c
	// sell primary/buy hedge: 0.52-0.58 = -0.06 -> -6c
	result, ok := ComputeGross(primary, hedge)
	require.True(t, ok)
	require.Equal(t, domain.SideBuy, result.Side)
	require.InDelta(t, 5.0, result.EdgeCents, 1e-9)
}

func TestComputeGross_EmptyBookReturnsFalse(t *testing.T) {
	_, ok := ComputeGross(domain.BookSnapshot{}, domain.BookSnapshot{})
	require.False(t, ok)
}

func TestEvaluate_EmitsWhenBothThresholdsClear(t *testing.T) {
	cfg := Config{MinEdgeCents: 2.5, MinHedgeProbability: 0.99}
	primary := domain.BookSnapshot{Asks: []domain.BookLevel{lvl(0.55, 1000)}}
	hedge := domain.BookSnapshot{Bids: []domain.BookLevel{lvl(0.60, 1000)}}

	zeroLeg := friction.Leg{Pack: friction.Pack{}}
	signal, emit := Evaluate(cfg, "v1", Input{
		PairID:       "pair-1",
		Primary:      primary,
		Hedge:        hedge,
		FrictionPack: [2]friction.Leg{zeroLeg, zeroLeg},
		NotionalUSD:  100,
		LeadLag:      leadlag.Detection{Leader: domain.LeaderVenueA, Correlation: 0.9},
		LeaderStable: true,
		Confidence:   0.9,
		Now:          time.Now(),
	})
	require.True(t, emit)
	require.InDelta(t, 5.0, signal.GrossEdgeCents, 1e-9)
	require.InDelta(t, 0.99, signal.HedgeProbability, 1e-9)
	require.True(t, signal.LeaderStable)
}

func TestEvaluate_SuppressedWhenHedgeProbabilityBelowThreshold(t *testing.T) {
	cfg := Config{MinEdgeCents: 2.5, MinHedgeProbability: 0.99}
	primary := domain.BookSnapshot{Asks: []domain.BookLevel{lvl(0.55, 1000)}}
	hedge := domain.BookSnapshot{Bids: []domain.BookLevel{lvl(0.60, 1000)}}

	zeroLeg := friction.Leg{Pack: friction.Pack{}}
	_, emit := Evaluate(cfg, "v1", Input{
		PairID:       "pair-1",
		Primary:      primary,
		Hedge:        hedge,
		FrictionPack: [2]friction.Leg{zeroLeg, zeroLeg},
		NotionalUSD:  100,
		LeaderStable: false,
		Now:          time.Now(),
	})
	require.False(t, emit)
}

func TestEvaluate_SuppressedOnInsufficientLiquidity(t *testing.T) {
	cfg := Config{MinEdgeCents: 0.1, MinHedgeProbability: 0.5}
	primary := domain.BookSnapshot{Asks: []domain.BookLevel{lvl(0.55, 1)}}
	hedge := domain.BookSnapshot{Bids: []domain.BookLevel{lvl(0.60, 1000)}}

	zeroLeg := friction.Leg{Pack: friction.Pack{}}
	signal, emit := Evaluate(cfg, "v1", Input{
		PairID:       "pair-1",
		Primary:      primary,
		Hedge:        hedge,
		FrictionPack: [2]friction.Leg{zeroLeg, zeroLeg},
		NotionalUSD:  10000,
		LeaderStable: true,
		Now:          time.Now(),
	})
	require.False(t, emit)
	require.True(t, signal.InsufficientLiquidity)
	require.Equal(t, 0.0, signal.HedgeProbability)
}
