package leadlag

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/arbengine/arbengine/internal/domain"
)

// waveValue is a chirp rather than a fixed-period wave, so within
// ±MaxLagBars only the true shift lines the two venues' series up.
func waveValue(i int) float64 {
	return math.Sin(0.05 * float64(i*i))
}

func pushBars(ring *Ring, start time.Time, barSeconds, numBars int, venue domain.Venue, offset int) {
	for i := 0; i < numBars; i++ {
		ts := start.Add(time.Duration(i*barSeconds) * time.Second)
		mid := decimal.NewFromFloat(0.5 + 0.1*waveValue(i+offset))
		ring.Push(domain.PricePoint{PairKey: "pair-1", Venue: venue, Timestamp: ts, MidPrice: mid})
	}
}

func TestDetect_VenueALeadsByTwoBars(t *testing.T) {
	cfg := Config{WindowMinutes: 2, BarSeconds: 5, MaxLagBars: 12, StabilityWindow: 4, MinCorrelation: 0.3}
	numBars := cfg.WindowMinutes * 60 / cfg.BarSeconds // 24

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start.Add(time.Duration(numBars*cfg.BarSeconds) * time.Second)

	ring := NewRing(1000)
	pushBars(ring, start, cfg.BarSeconds, numBars, domain.VenueA, 0)
	// venue B mirrors venue A's wave two bars (10s) later: b bar i
	// equals a bar (i-2).
	pushBars(ring, start, cfg.BarSeconds, numBars, domain.VenueB, -2)

	det := Detect(cfg, ring, now)
	require.Equal(t, domain.LeaderVenueA, det.Leader)
	require.Equal(t, 10, det.LagSeconds)
	require.Greater(t, det.Correlation, 0.9)
}

func TestStabilityTracker_StableAfterThreeOfFourConsistentWindows(t *testing.T) {
	tracker := NewStabilityTracker(4)

	var stable bool
	var confidence float64
	for i := 0; i < 4; i++ {
		stable, confidence = tracker.Observe(domain.LeaderVenueA, 0.95, 0.3)
	}
	require.True(t, stable)
	require.InDelta(t, 0.95, confidence, 1e-9)
}

func TestStabilityTracker_UnstableWhenCorrelationBelowThreshold(t *testing.T) {
	tracker := NewStabilityTracker(4)
	var stable bool
	var confidence float64
	for i := 0; i < 4; i++ {
		stable, confidence = tracker.Observe(domain.LeaderVenueA, 0.1, 0.3)
	}
	require.False(t, stable)
	require.InDelta(t, 0.05, confidence, 1e-9)
}

func TestStabilityTracker_UnstableWhenLeaderFlipsTooOften(t *testing.T) {
	tracker := NewStabilityTracker(4)
	leaders := []domain.Leader{domain.LeaderVenueA, domain.LeaderVenueB, domain.LeaderVenueA, domain.LeaderVenueB}
	var stable bool
	for _, l := range leaders {
		stable, _ = tracker.Observe(l, 0.9, 0.3)
	}
	require.False(t, stable)
}

func TestDetect_NoDataReturnsNoneLeader(t *testing.T) {
	cfg := DefaultConfig()
	ring := NewRing(1000)
	det := Detect(cfg, ring, time.Now())
	require.Equal(t, domain.LeaderNone, det.Leader)
}
