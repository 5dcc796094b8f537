// Package depth implements the depth/slippage model: VWAP computed by
// walking top-K levels, slippage in dollars, and the
// max-tradable-size calculation.
package depth

import "github.com/arbengine/arbengine/internal/domain"

// FillResult is the outcome of walking a book side for a target
// notional.
type FillResult struct {
	VWAP               float64
	FilledSize         float64
	FilledNotional     float64
	InsufficientLiquidity bool
}

// Walk consumes levels (already truncated to top-K by the caller)
// until targetNotional is filled or the book side is exhausted.
func Walk(levels []domain.BookLevel, targetNotional float64) FillResult {
	remaining := targetNotional
	var cost, filledSize float64

	for _, lvl := range levels {
		if remaining <= 0 {
			break
		}
		price, _ := lvl.Price.Float64()
		size, _ := lvl.Size.Float64()
		levelNotional := price * size

		take := remaining
		if levelNotional < take {
			take = levelNotional
		}
		cost += take
		filledSize += take / price
		remaining -= take
	}

	result := FillResult{FilledNotional: targetNotional - remaining, FilledSize: filledSize}
	if filledSize > 0 {
		result.VWAP = cost / filledSize
	}
	if remaining > 1e-9 {
		result.InsufficientLiquidity = true
	}
	return result
}

// LegSlippage converts a leg's VWAP deviation from the best opposite
// quote into dollars: slippage_leg = |VWAP-best| * N / best.
func LegSlippage(vwap, best, notional float64) float64 {
	if best == 0 {
		return 0
	}
	diff := vwap - best
	if diff < 0 {
		diff = -diff
	}
	return diff * notional / best
}

// conservativePenaltyPct is applied when either leg cannot fill the
// target notional from the top-K book.
const conservativePenaltyPct = 0.02

// Estimate computes the total package slippage in cents for a target
// notional N, walking the primary ask side and hedge bid side. When
// either leg cannot fill N, it reports a conservative 2% penalty and
// flags insufficient liquidity.
func Estimate(primaryAsks, hedgeBids []domain.BookLevel, notionalUSD float64) (slippageCents float64, insufficientLiquidity bool) {
	primaryFill := Walk(primaryAsks, notionalUSD)
	hedgeFill := Walk(hedgeBids, notionalUSD)

	if primaryFill.InsufficientLiquidity || hedgeFill.InsufficientLiquidity {
		return conservativePenaltyPct * notionalUSD * 100, true
	}

	bestPrimary, _ := bestPrice(primaryAsks)
	bestHedge, _ := bestPrice(hedgeBids)

	primarySlip := LegSlippage(primaryFill.VWAP, bestPrimary, notionalUSD)
	hedgeSlip := LegSlippage(hedgeFill.VWAP, bestHedge, notionalUSD)

	return (primarySlip + hedgeSlip) * 100, false
}

func bestPrice(levels []domain.BookLevel) (float64, bool) {
	if len(levels) == 0 {
		return 0, false
	}
	p, _ := levels[0].Price.Float64()
	return p, true
}

// MaxTradableSizeUSD is min(ask-depth on primary, bid-depth on hedge)
// in notional, summed across the top-K levels supplied.
func MaxTradableSizeUSD(primaryAsks, hedgeBids []domain.BookLevel) float64 {
	sum := func(levels []domain.BookLevel) float64 {
		total := 0.0
		for _, lvl := range levels {
			p, _ := lvl.Price.Float64()
			s, _ := lvl.Size.Float64()
			total += p * s
		}
		return total
	}
	primaryDepth := sum(primaryAsks)
	hedgeDepth := sum(hedgeBids)
	if primaryDepth < hedgeDepth {
		return primaryDepth
	}
	return hedgeDepth
}
