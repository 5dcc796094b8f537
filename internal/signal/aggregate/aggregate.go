// Package aggregate ties together gross edge, friction, depth/slippage
// and lead-lag into the final net-edge decision: whether a pair clears
// both the minimum net edge and minimum hedge probability thresholds.
package aggregate

import (
	"time"

	"github.com/arbengine/arbengine/internal/domain"
	"github.com/arbengine/arbengine/internal/signal/depth"
	"github.com/arbengine/arbengine/internal/signal/friction"
	"github.com/arbengine/arbengine/internal/signal/leadlag"
)

// GrossResult is the outcome of the symmetric direction check: which
// side of the package is primary (buy or sell) and the resulting
// edge before costs.
type GrossResult struct {
	EdgeCents float64
	Side      domain.Side
}

// ComputeGross evaluates both trade directions - buy primary/sell
// hedge, and sell primary/buy hedge - and returns whichever yields the
// larger edge. A direction missing one of its book sides is skipped;
// returns false only when neither direction can be computed.
func ComputeGross(primary, hedge domain.BookSnapshot) (GrossResult, bool) {
	primaryAsk, okPA := primary.BestAsk()
	primaryBid, okPB := primary.BestBid()
	hedgeAsk, okHA := hedge.BestAsk()
	hedgeBid, okHB := hedge.BestBid()

	var results []GrossResult
	if okPA && okHB {
		ask, _ := primaryAsk.Price.Float64()
		bid, _ := hedgeBid.Price.Float64()
		results = append(results, GrossResult{EdgeCents: (bid - ask) * 100, Side: domain.SideBuy})
	}
	if okPB && okHA {
		bid, _ := primaryBid.Price.Float64()
		ask, _ := hedgeAsk.Price.Float64()
		results = append(results, GrossResult{EdgeCents: (bid - ask) * 100, Side: domain.SideSell})
	}
	if len(results) == 0 {
		return GrossResult{}, false
	}

	best := results[0]
	for _, r := range results[1:] {
		if r.EdgeCents > best.EdgeCents {
			best = r
		}
	}
	return best, true
}

// NetEdgeCents applies the final net-edge formula: net = gross -
// friction - slippage.
func NetEdgeCents(grossCents, frictionCents, slippageCents float64) float64 {
	return grossCents - frictionCents - slippageCents
}

// Config holds the thresholds gating signal emission.
type Config struct {
	MinEdgeCents        float64
	MinHedgeProbability float64
}

// hedgeProbability derives an execution-confidence estimate from depth
// sufficiency and leader stability: insufficient depth on either leg
// zeroes it out; otherwise it starts from a high base and only the
// stable-leader case earns the full probability needed to clear the
// default 0.99 threshold.
func hedgeProbability(insufficientLiquidity, leaderStable bool) float64 {
	if insufficientLiquidity {
		return 0
	}
	if leaderStable {
		return 0.99
	}
	return 0.95
}

// Input bundles everything one recomputation needs for a pair.
type Input struct {
	PairID      string
	Primary     domain.BookSnapshot
	Hedge       domain.BookSnapshot
	FrictionPack [2]friction.Leg
	NotionalUSD  float64
	LeadLag      leadlag.Detection
	LeaderStable bool
	Confidence   float64
	Now          time.Time
}

// Evaluate runs the full net-edge pipeline for one pair and returns
// the resulting EdgeSignal along with whether it clears both emission
// thresholds.
func Evaluate(cfg Config, frictionVersion string, in Input) (domain.EdgeSignal, bool) {
	gross, ok := ComputeGross(in.Primary, in.Hedge)
	if !ok {
		return domain.EdgeSignal{}, false
	}

	frictionCost := friction.Compute(in.FrictionPack, in.NotionalUSD)

	var primaryLevels, hedgeLevels []domain.BookLevel
	if gross.Side == domain.SideBuy {
		primaryLevels, hedgeLevels = in.Primary.Asks, in.Hedge.Bids
	} else {
		primaryLevels, hedgeLevels = in.Hedge.Asks, in.Primary.Bids
	}
	slippageCents, insufficientLiquidity := depth.Estimate(primaryLevels, hedgeLevels, in.NotionalUSD)

	netEdgeCents := NetEdgeCents(gross.EdgeCents, frictionCost.TotalCents, slippageCents)
	hedgeProb := hedgeProbability(insufficientLiquidity, in.LeaderStable)

	signal := domain.EdgeSignal{
		PairID:                in.PairID,
		Timestamp:             in.Now,
		PrimarySide:           gross.Side,
		GrossEdgeCents:        gross.EdgeCents,
		FrictionCents:         frictionCost.TotalCents,
		SlippageCents:         slippageCents,
		NetEdgeCents:          netEdgeCents,
		Confidence:            in.Confidence,
		Leader:                in.LeadLag.Leader,
		LeaderStable:          in.LeaderStable,
		FrictionVersion:       frictionVersion,
		HedgeProbability:      hedgeProb,
		InsufficientLiquidity: insufficientLiquidity,
	}

	emit := netEdgeCents >= cfg.MinEdgeCents && hedgeProb >= cfg.MinHedgeProbability
	return signal, emit
}
