package depth

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/arbengine/arbengine/internal/domain"
)

func level(price, size float64) domain.BookLevel {
	return domain.BookLevel{Price: decimal.NewFromFloat(price), Size: decimal.NewFromFloat(size)}
}

func TestWalk_SingleLevelFullyFills(t *testing.T) {
	levels := []domain.BookLevel{level(0.55, 100)}
	res := Walk(levels, 10) // $10 notional, plenty of depth at 0.55*100=$55
	require.False(t, res.InsufficientLiquidity)
	require.InDelta(t, 0.55, res.VWAP, 1e-9)
}

func TestWalk_MultiLevelVWAP(t *testing.T) {
	levels := []domain.BookLevel{level(0.50, 10), level(0.60, 10)}
	// first level offers $5 notional, need $8 total -> take all of
	// level 1 ($5) plus $3 from level 2.
	res := Walk(levels, 8)
	require.False(t, res.InsufficientLiquidity)
	expectedCost := 5.0 + 3.0
	expectedSize := 10.0 + 3.0/0.60
	require.InDelta(t, expectedCost/expectedSize, res.VWAP, 1e-9)
}

func TestWalk_InsufficientLiquidity(t *testing.T) {
	levels := []domain.BookLevel{level(0.50, 1)}
	res := Walk(levels, 100)
	require.True(t, res.InsufficientLiquidity)
}

func TestEstimate_ConservativePenaltyOnInsufficientDepth(t *testing.T) {
	primaryAsks := []domain.BookLevel{level(0.55, 1)}
	hedgeBids := []domain.BookLevel{level(0.60, 100)}
	slip, insufficient := Estimate(primaryAsks, hedgeBids, 100)
	require.True(t, insufficient)
	require.InDelta(t, conservativePenaltyPct*100*100, slip, 1e-9)
}

func TestMaxTradableSizeUSD_TakesMinimum(t *testing.T) {
	primaryAsks := []domain.BookLevel{level(0.55, 100)} // $55
	hedgeBids := []domain.BookLevel{level(0.60, 50)}     // $30
	require.InDelta(t, 30, MaxTradableSizeUSD(primaryAsks, hedgeBids), 1e-9)
}
