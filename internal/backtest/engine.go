// Package backtest replays historical order-book snapshots through the
// same friction and depth models the live signal engine uses,
// producing trade-level and aggregate performance metrics. Grounded on
// original_source/src/arbitrage/backtest/engine.py, reauthored in the
// teacher's idiom (plain structs and functions, no numpy dependency -
// Go's math/stat needs come from stdlib math plus manual accumulation,
// which is the pack's own pattern in signal/depth and signal/friction).
package backtest

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/arbengine/arbengine/internal/domain"
	"github.com/arbengine/arbengine/internal/signal/depth"
	"github.com/arbengine/arbengine/internal/signal/friction"
)

// tradingDaysPerYear is the annualization factor for the Sharpe ratio,
// matching the original's np.sqrt(252).
const tradingDaysPerYear = 252

// Trade is a record of one simulated arbitrage trade.
type Trade struct {
	Timestamp         time.Time
	PairID            string
	EntryEdgeCents    float64
	RealizedEdgeCents float64
	SlippageCents     float64
	FeesCents         float64
	SizeUSD           float64
	PnLCents          float64
}

// Metrics are the aggregate statistics computed from a trade history.
type Metrics struct {
	TotalTrades          int
	WinningTrades        int
	LosingTrades         int
	TotalPnLCents        float64
	GrossPnLCents        float64
	TotalFeesCents       float64
	TotalSlippageCents   float64
	AvgEntryEdgeCents    float64
	AvgRealizedEdgeCents float64
	AvgSlippageCents     float64
	SharpeRatio          float64
	MaxDrawdownCents     float64
	HitRate              float64
	AvgTradeSizeUSD      float64
}

// Result is the complete output of one backtest run.
type Result struct {
	Metrics      Metrics
	Trades       []Trade
	EquityCurve  []float64
	Timestamps   []time.Time
}

// Engine replays snapshots for a set of market pairs.
type Engine struct {
	frictionLegs      [2]friction.Leg
	minEdgeCents      float64
	defaultTradeSize  float64
	log               zerolog.Logger
}

// NewEngine builds a backtest engine against a fixed friction
// schedule, the threshold used for the live signal engine, and a
// default per-trade notional.
func NewEngine(frictionLegs [2]friction.Leg, minEdgeCents, defaultTradeSize float64, log zerolog.Logger) *Engine {
	return &Engine{frictionLegs: frictionLegs, minEdgeCents: minEdgeCents, defaultTradeSize: defaultTradeSize, log: log}
}

// PairSnapshots is one pair's index-aligned primary/hedge book history.
type PairSnapshots struct {
	PairID  string
	Primary []domain.BookSnapshot
	Hedge   []domain.BookSnapshot
}

// Run replays every pair's snapshot history, opening a simulated trade
// whenever the gross edge clears minEdgeCents, and returns the full
// trade history plus aggregate metrics.
func (e *Engine) Run(pairSnapshots []PairSnapshots) Result {
	var trades []Trade
	equityCurve := []float64{0.0}
	var timestamps []time.Time

	for _, ps := range pairSnapshots {
		n := len(ps.Primary)
		if len(ps.Hedge) < n {
			n = len(ps.Hedge)
		}
		for i := 0; i < n; i++ {
			primaryBook := ps.Primary[i]
			hedgeBook := ps.Hedge[i]

			primaryAsk, okA := primaryBook.BestAsk()
			hedgeBid, okB := hedgeBook.BestBid()
			if !okA || !okB {
				continue
			}
			askPrice, _ := primaryAsk.Price.Float64()
			bidPrice, _ := hedgeBid.Price.Float64()
			grossEdgeCents := (bidPrice - askPrice) * 100
			if grossEdgeCents < e.minEdgeCents {
				continue
			}

			trade := e.simulateTrade(ps.PairID, primaryBook, hedgeBook, grossEdgeCents, e.defaultTradeSize)
			trades = append(trades, trade)
			equityCurve = append(equityCurve, equityCurve[len(equityCurve)-1]+trade.PnLCents/100)
			timestamps = append(timestamps, trade.Timestamp)
		}
	}

	metrics := calculateMetrics(trades)
	e.log.Info().Int("trades", len(trades)).Float64("sharpe", metrics.SharpeRatio).
		Float64("pnl_usd", metrics.TotalPnLCents/100).Msg("backtest complete")

	return Result{Metrics: metrics, Trades: trades, EquityCurve: equityCurve, Timestamps: timestamps}
}

func (e *Engine) simulateTrade(pairID string, primaryBook, hedgeBook domain.BookSnapshot, entryEdgeCents, sizeUSD float64) Trade {
	feesCents := friction.Compute(e.frictionLegs, sizeUSD).TotalCents
	slippageCents, _ := depth.Estimate(primaryBook.Asks, hedgeBook.Bids, sizeUSD)

	realizedEdgeCents := entryEdgeCents - feesCents - slippageCents
	pnlCents := realizedEdgeCents * (sizeUSD / 100)

	return Trade{
		Timestamp:         primaryBook.Timestamp,
		PairID:            pairID,
		EntryEdgeCents:    entryEdgeCents,
		RealizedEdgeCents: realizedEdgeCents,
		SlippageCents:     slippageCents,
		FeesCents:         feesCents,
		SizeUSD:           sizeUSD,
		PnLCents:          pnlCents,
	}
}

func calculateMetrics(trades []Trade) Metrics {
	if len(trades) == 0 {
		return Metrics{}
	}

	var winning, losing int
	var totalPnL, grossPnL, totalFees, totalSlippage float64
	var sumEntryEdge, sumRealizedEdge, sumSlippage, sumSize float64
	dailyReturns := make(map[string]float64)

	for _, t := range trades {
		if t.PnLCents > 0 {
			winning++
		} else {
			losing++
		}
		totalPnL += t.PnLCents
		grossPnL += t.EntryEdgeCents * (t.SizeUSD / 100)
		totalFees += t.FeesCents
		totalSlippage += t.SlippageCents
		sumEntryEdge += t.EntryEdgeCents
		sumRealizedEdge += t.RealizedEdgeCents
		sumSlippage += t.SlippageCents
		sumSize += t.SizeUSD

		day := t.Timestamp.Format("2006-01-02")
		dailyReturns[day] += t.PnLCents / 100
	}

	n := float64(len(trades))
	sharpe := computeSharpe(dailyReturns)
	maxDrawdown := computeMaxDrawdown(trades)

	return Metrics{
		TotalTrades:          len(trades),
		WinningTrades:        winning,
		LosingTrades:         losing,
		TotalPnLCents:        totalPnL,
		GrossPnLCents:        grossPnL,
		TotalFeesCents:       totalFees,
		TotalSlippageCents:   totalSlippage,
		AvgEntryEdgeCents:    sumEntryEdge / n,
		AvgRealizedEdgeCents: sumRealizedEdge / n,
		AvgSlippageCents:     sumSlippage / n,
		SharpeRatio:          sharpe,
		MaxDrawdownCents:     maxDrawdown,
		HitRate:              float64(winning) / n,
		AvgTradeSizeUSD:      sumSize / n,
	}
}

// computeSharpe groups P&L into daily returns (dollars) and annualizes
// the mean/stdev ratio by sqrt(252), matching the original's daily
// bucketing approach.
func computeSharpe(dailyReturns map[string]float64) float64 {
	if len(dailyReturns) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(dailyReturns))
	for _, r := range dailyReturns {
		returns = append(returns, r)
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))
	stddev := math.Sqrt(variance)

	if stddev == 0 {
		return 0
	}
	return mean / stddev * math.Sqrt(tradingDaysPerYear)
}

// computeMaxDrawdown walks the cumulative P&L curve and returns the
// largest peak-to-trough decline in cents (a non-positive number).
func computeMaxDrawdown(trades []Trade) float64 {
	var cumulative, runningMax, maxDrawdown float64
	for _, t := range trades {
		cumulative += t.PnLCents
		if cumulative > runningMax {
			runningMax = cumulative
		}
		if dd := cumulative - runningMax; dd < maxDrawdown {
			maxDrawdown = dd
		}
	}
	return maxDrawdown
}
