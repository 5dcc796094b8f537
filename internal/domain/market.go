// Package domain holds the value types shared across the arbitrage
// pipeline. Types here are owned by whichever stage currently produces
// them and are never mutated after emission; downstream stages hold
// opaque ids and look records up via a read-only catalog snapshot.
package domain

import "time"

// Venue identifies one of the two supported trading venues. The wire
// encoding is the slug string, not a numeric enum.
type Venue string

const (
	VenueA Venue = "venue_a" // CLOB-style, signed orders
	VenueB Venue = "venue_b" // central-exchange, session-token
)

// MarketRef identifies a market on a specific venue. Identity is
// (Venue, VenueMarketID); CanonicalSymbol is a best-effort human label
// and is not part of identity.
type MarketRef struct {
	Venue           Venue
	VenueMarketID   string
	CanonicalSymbol string
}

// Key returns the identity tuple as a comparable map key.
func (m MarketRef) Key() string {
	return string(m.Venue) + ":" + m.VenueMarketID
}

// Market is a catalog record returned by an adapter's FetchMarkets.
type Market struct {
	ID                string
	Venue             Venue
	VenueTicker       string
	Title             string
	EventName         string
	ResolutionSource  string
	OpenTime          time.Time
	CloseTime         time.Time
	Category          string
	Tags              []string
	IsBinary          bool
	LiquidityUSD      float64 // supplemented: from original_source markets.py, best-effort, zero when unknown
}
