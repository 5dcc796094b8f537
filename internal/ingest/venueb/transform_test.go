package venueb

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Raw {yes:[(55,100),(54,200)], no:[(45,120),(46,180)]} (prices in
// cents). Expected at max_depth=3: bids=[(0.55,100),(0.54,200)],
// asks=[(0.54,180),(0.55,120)].
func TestTransform_ConvertsYesNoBookToBidAsk(t *testing.T) {
	raw := RawBook{
		MarketID: "m1",
		Yes:      []RawLevel{{PriceCents: 55, Size: 100}, {PriceCents: 54, Size: 200}},
		No:       []RawLevel{{PriceCents: 45, Size: 120}, {PriceCents: 46, Size: 180}},
	}

	snap := Transform(raw, time.Now(), 3)

	require.Len(t, snap.Bids, 2)
	require.True(t, snap.Bids[0].Price.Equal(dec("0.55")))
	require.True(t, snap.Bids[0].Size.Equal(dec("100")))
	require.True(t, snap.Bids[1].Price.Equal(dec("0.54")))
	require.True(t, snap.Bids[1].Size.Equal(dec("200")))

	require.Len(t, snap.Asks, 2)
	require.True(t, snap.Asks[0].Price.Equal(dec("0.54")))
	require.True(t, snap.Asks[0].Size.Equal(dec("180")))
	require.True(t, snap.Asks[1].Price.Equal(dec("0.55")))
	require.True(t, snap.Asks[1].Size.Equal(dec("120")))

	require.NoError(t, snap.Validate())
}

func TestTransform_TruncatesToMaxDepth(t *testing.T) {
	raw := RawBook{
		MarketID: "m1",
		Yes:      []RawLevel{{PriceCents: 60, Size: 1}, {PriceCents: 59, Size: 1}, {PriceCents: 58, Size: 1}, {PriceCents: 57, Size: 1}},
	}
	snap := Transform(raw, time.Now(), 2)
	require.Len(t, snap.Bids, 2)
}

func TestTransform_DropsZeroSizeAndOutOfRangeLevels(t *testing.T) {
	raw := RawBook{
		MarketID: "m1",
		Yes:      []RawLevel{{PriceCents: 50, Size: 0}, {PriceCents: 100, Size: 10}, {PriceCents: 40, Size: 10}},
		No:       []RawLevel{{PriceCents: 100, Size: 10}},
	}
	snap := Transform(raw, time.Now(), 5)
	require.Len(t, snap.Bids, 1)
	require.True(t, snap.Bids[0].Price.Equal(dec("0.40")))
	require.Len(t, snap.Asks, 0)
}

// Invariant: every NO level (p,s) produces an ask level (1-p,s) and
// vice versa, up to truncation.
func TestTransform_NoToAskInvariant(t *testing.T) {
	raw := RawBook{
		MarketID: "m1",
		No:       []RawLevel{{PriceCents: 30, Size: 50}},
	}
	snap := Transform(raw, time.Now(), 5)
	require.Len(t, snap.Asks, 1)
	require.True(t, snap.Asks[0].Price.Equal(dec("0.70")))
	require.True(t, snap.Asks[0].Size.Equal(dec("50")))
}
