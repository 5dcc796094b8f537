package domain

import "time"

// PairWindow is the trading window within which a MarketPair is
// considered live, plus the resolution timestamp it was validated
// against.
type PairWindow struct {
	Open       time.Time
	Close      time.Time
	Resolution time.Time
}

// MarketPair links two economically-equivalent markets on different
// venues. MarketPairs are owned by persistence; the signal engine only
// ever holds read-only snapshots refreshed on a timer.
type MarketPair struct {
	ID             string
	Primary        MarketRef
	Hedge          MarketRef
	Window         PairWindow
	LLMScore       float64
	HardRulesPassed bool
	Active         bool
	LastValidated  time.Time
	Notes          string // rejection reason when HardRulesPassed is false
}

// Tradable reports whether the pair is currently eligible for signal
// generation: hard rules passed, marked active, and now falls inside
// the validated window.
func (p MarketPair) Tradable(now time.Time) bool {
	if !p.HardRulesPassed || !p.Active {
		return false
	}
	if now.Before(p.Window.Open) || now.After(p.Window.Close) {
		return false
	}
	return true
}
