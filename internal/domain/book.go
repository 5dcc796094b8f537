package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BookLevel is a single price/size pair. Price is a dollar-denominated
// probability in (0,1); Size is strictly positive.
type BookLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// BookSnapshot is a full order book view for one market at one point in
// time. Bids are sorted descending by price, Asks ascending. At most K
// levels are retained per side (K is the adapter's max_depth).
//
// BookSnapshot is a value record: once emitted by an adapter it is
// never mutated; callers that need a modified view must copy it.
type BookSnapshot struct {
	Market    MarketRef
	Timestamp time.Time
	Bids      []BookLevel // descending by price
	Asks      []BookLevel // ascending by price
}

// BestBid returns the highest bid level, or false if the book is empty
// on that side.
func (s BookSnapshot) BestBid() (BookLevel, bool) {
	if len(s.Bids) == 0 {
		return BookLevel{}, false
	}
	return s.Bids[0], true
}

// BestAsk returns the lowest ask level, or false if the book is empty
// on that side.
func (s BookSnapshot) BestAsk() (BookLevel, bool) {
	if len(s.Asks) == 0 {
		return BookLevel{}, false
	}
	return s.Asks[0], true
}

// Mid returns (best_bid+best_ask)/2, or false if either side is empty.
func (s BookSnapshot) Mid() (decimal.Decimal, bool) {
	bid, okB := s.BestBid()
	ask, okA := s.BestAsk()
	if !okB || !okA {
		return decimal.Zero, false
	}
	return bid.Price.Add(ask.Price).Div(decimal.NewFromInt(2)), true
}

// Validate checks the invariants required of every emitted snapshot:
// bids sorted descending, asks sorted ascending, all prices in (0,1),
// all sizes positive, and best_bid < best_ask when both sides are
// non-empty.
func (s BookSnapshot) Validate() error {
	zero, one := decimal.Zero, decimal.NewFromInt(1)
	checkSide := func(levels []BookLevel, descending bool) error {
		for i, lvl := range levels {
			if lvl.Price.LessThanOrEqual(zero) || lvl.Price.GreaterThanOrEqual(one) {
				return fmt.Errorf("level %d price %s out of (0,1)", i, lvl.Price)
			}
			if lvl.Size.LessThanOrEqual(zero) {
				return fmt.Errorf("level %d size %s not positive", i, lvl.Size)
			}
			if i > 0 {
				prev := levels[i-1].Price
				if descending && lvl.Price.GreaterThan(prev) {
					return fmt.Errorf("bids not sorted descending at %d", i)
				}
				if !descending && lvl.Price.LessThan(prev) {
					return fmt.Errorf("asks not sorted ascending at %d", i)
				}
			}
		}
		return nil
	}
	if err := checkSide(s.Bids, true); err != nil {
		return fmt.Errorf("bids: %w", err)
	}
	if err := checkSide(s.Asks, false); err != nil {
		return fmt.Errorf("asks: %w", err)
	}
	if bid, ok := s.BestBid(); ok {
		if ask, ok := s.BestAsk(); ok {
			if !bid.Price.LessThan(ask.Price) {
				return fmt.Errorf("best_bid %s not < best_ask %s", bid.Price, ask.Price)
			}
		}
	}
	return nil
}

// Truncate returns a copy of the snapshot with each side truncated to
// at most maxDepth levels. Levels beyond maxDepth are dropped before
// emission, per the adapter contract.
func (s BookSnapshot) Truncate(maxDepth int) BookSnapshot {
	out := s
	if maxDepth > 0 {
		if len(out.Bids) > maxDepth {
			out.Bids = append([]BookLevel(nil), out.Bids[:maxDepth]...)
		} else {
			out.Bids = append([]BookLevel(nil), out.Bids...)
		}
		if len(out.Asks) > maxDepth {
			out.Asks = append([]BookLevel(nil), out.Asks[:maxDepth]...)
		} else {
			out.Asks = append([]BookLevel(nil), out.Asks...)
		}
	}
	return out
}
