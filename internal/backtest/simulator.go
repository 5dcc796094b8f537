package backtest

import (
	"math/rand"
	"time"

	"github.com/arbengine/arbengine/internal/domain"
)

// SimulatedFill is the outcome of walking one book side for a target
// size during simulated execution.
type SimulatedFill struct {
	Success    bool
	FilledPrice float64
	FilledSize  float64
	LatencyMs   int
	Timestamp   time.Time
	Reason      string
}

// SimulatorConfig holds the latency model's tunables, matching the
// original's alert-to-order latency percentiles and hedge timeout.
type SimulatorConfig struct {
	LatencyP50Ms   int
	LatencyP95Ms   int
	HedgeTimeoutMs int
}

// DefaultSimulatorConfig mirrors the original's documented defaults.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{LatencyP50Ms: 200, LatencyP95Ms: 350, HedgeTimeoutMs: 250}
}

// Simulator models realistic hedged execution for paper trading and
// backtesting: latency sampled from the configured percentile bands,
// fills walked through the top-3 book levels, and a hedge-timeout
// check against the combined leg latency.
type Simulator struct {
	cfg SimulatorConfig
	rnd *rand.Rand
}

// NewSimulator builds a simulator. rnd may be a seeded source for
// deterministic tests; nil falls back to a source with fixed seed 1.
func NewSimulator(cfg SimulatorConfig, rnd *rand.Rand) *Simulator {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(1))
	}
	return &Simulator{cfg: cfg, rnd: rnd}
}

// simulateLatencyMs draws from [100,p50] for a median-latency sample
// or [p50,p95] for a tail sample, matching the original's two-band
// model.
func (s *Simulator) simulateLatencyMs(tail bool) int {
	if tail {
		return s.cfg.LatencyP50Ms + s.rnd.Intn(s.cfg.LatencyP95Ms-s.cfg.LatencyP50Ms+1)
	}
	return 100 + s.rnd.Intn(s.cfg.LatencyP50Ms-100+1)
}

// ExecuteAgainstBook walks up to the top 3 levels of one book side to
// fill targetSize, returning the resulting VWAP fill or a failure
// reason if no liquidity is available.
func (s *Simulator) ExecuteAgainstBook(book domain.BookSnapshot, side domain.Side, targetSize float64) SimulatedFill {
	levels := book.Asks
	if side == domain.SideSell {
		levels = book.Bids
	}
	if len(levels) == 0 {
		return SimulatedFill{Success: false, LatencyMs: s.simulateLatencyMs(false), Timestamp: book.Timestamp, Reason: "No liquidity available"}
	}

	const topK = 3
	if len(levels) > topK {
		levels = levels[:topK]
	}

	var totalCost, totalSize, remaining float64
	remaining = targetSize
	for _, lvl := range levels {
		if remaining <= 0 {
			break
		}
		price, _ := lvl.Price.Float64()
		size, _ := lvl.Size.Float64()
		fillSize := remaining
		if size < fillSize {
			fillSize = size
		}
		totalCost += fillSize * price
		totalSize += fillSize
		remaining -= fillSize
	}

	if totalSize == 0 {
		return SimulatedFill{Success: false, LatencyMs: s.simulateLatencyMs(false), Timestamp: book.Timestamp, Reason: "Insufficient liquidity"}
	}

	return SimulatedFill{
		Success:     true,
		FilledPrice: totalCost / totalSize,
		FilledSize:  totalSize,
		LatencyMs:   s.simulateLatencyMs(false),
		Timestamp:   book.Timestamp,
	}
}

// HedgedExecutionResult mirrors the live state machine's terminal
// outcome, reused by the backtest engine's trade simulation path.
type HedgedExecutionResult struct {
	Success          bool
	Message          string
	HedgeCompletedMs int
	PrimaryFill      SimulatedFill
	HedgeFill        SimulatedFill
}

// SimulateHedgedExecution walks both legs of a package trade and
// checks the combined latency against the hedge timeout, matching
// ExecutionSimulator.simulate_hedged_execution in the original.
func (s *Simulator) SimulateHedgedExecution(primarySide domain.Side, targetSize float64, primaryBook, hedgeBook domain.BookSnapshot) HedgedExecutionResult {
	hedgeSide := domain.SideSell
	if primarySide == domain.SideSell {
		hedgeSide = domain.SideBuy
	}

	primaryFill := s.ExecuteAgainstBook(primaryBook, primarySide, targetSize)
	if !primaryFill.Success {
		return HedgedExecutionResult{Success: false, Message: "Primary failed: " + primaryFill.Reason, PrimaryFill: primaryFill}
	}

	hedgeFill := s.ExecuteAgainstBook(hedgeBook, hedgeSide, primaryFill.FilledSize)
	totalLatency := primaryFill.LatencyMs + hedgeFill.LatencyMs

	if totalLatency > s.cfg.HedgeTimeoutMs {
		return HedgedExecutionResult{Success: false, Message: "Hedge timeout exceeded", HedgeCompletedMs: totalLatency, PrimaryFill: primaryFill, HedgeFill: hedgeFill}
	}
	if !hedgeFill.Success {
		return HedgedExecutionResult{Success: false, Message: "Hedge failed: " + hedgeFill.Reason, HedgeCompletedMs: totalLatency, PrimaryFill: primaryFill, HedgeFill: hedgeFill}
	}

	return HedgedExecutionResult{Success: true, HedgeCompletedMs: totalLatency, PrimaryFill: primaryFill, HedgeFill: hedgeFill}
}
