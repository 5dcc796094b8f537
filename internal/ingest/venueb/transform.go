// Package venueb implements the central-exchange venue B ingestion
// adapter. Its defining canonical-semantics responsibility is the
// YES/NO -> bid/ask transform: YES bids become bids; NO bids become
// asks at price 1-p; both sides are re-sorted and truncated.
package venueb

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/arbengine/arbengine/internal/domain"
)

// RawLevel is a venue B price/size pair with price quoted in integer
// cents (1..99), matching the venue's order schema.
type RawLevel struct {
	PriceCents int64
	Size       float64
}

// RawBook is the raw YES/NO book venue B returns for one market.
type RawBook struct {
	MarketID string
	Yes      []RawLevel
	No       []RawLevel
}

var hundred = decimal.NewFromInt(100)
var one = decimal.NewFromInt(1)

// Transform converts a RawBook into a canonical BookSnapshot: YES
// levels become bids directly (after cents->fraction normalization);
// NO levels become asks at price 1-p. Levels with size <= 0 or a
// resulting price outside (0,1) are discarded. Both sides are sorted
// (bids descending, asks ascending) and truncated to maxDepth.
func Transform(raw RawBook, timestamp time.Time, maxDepth int) domain.BookSnapshot {
	bids := make([]domain.BookLevel, 0, len(raw.Yes))
	for _, lvl := range raw.Yes {
		if lvl.Size <= 0 {
			continue
		}
		price := decimal.NewFromInt(lvl.PriceCents).Div(hundred)
		if price.LessThanOrEqual(decimal.Zero) || price.GreaterThanOrEqual(one) {
			continue
		}
		bids = append(bids, domain.BookLevel{Price: price, Size: decimal.NewFromFloat(lvl.Size)})
	}

	asks := make([]domain.BookLevel, 0, len(raw.No))
	for _, lvl := range raw.No {
		if lvl.Size <= 0 {
			continue
		}
		noPrice := decimal.NewFromInt(lvl.PriceCents).Div(hundred)
		askPrice := one.Sub(noPrice)
		if askPrice.LessThanOrEqual(decimal.Zero) || askPrice.GreaterThanOrEqual(one) {
			continue
		}
		asks = append(asks, domain.BookLevel{Price: askPrice, Size: decimal.NewFromFloat(lvl.Size)})
	}

	sort.Slice(bids, func(i, j int) bool { return bids[i].Price.GreaterThan(bids[j].Price) })
	sort.Slice(asks, func(i, j int) bool { return asks[i].Price.LessThan(asks[j].Price) })

	snap := domain.BookSnapshot{
		Market:    domain.MarketRef{Venue: domain.VenueB, VenueMarketID: raw.MarketID},
		Timestamp: timestamp,
		Bids:      bids,
		Asks:      asks,
	}
	return snap.Truncate(maxDepth)
}
