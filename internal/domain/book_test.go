package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func lvl(price, size string) BookLevel {
	p, _ := decimal.NewFromString(price)
	s, _ := decimal.NewFromString(size)
	return BookLevel{Price: p, Size: s}
}

func TestBookSnapshot_ValidateOK(t *testing.T) {
	snap := BookSnapshot{
		Bids: []BookLevel{lvl("0.55", "10"), lvl("0.54", "5")},
		Asks: []BookLevel{lvl("0.56", "10"), lvl("0.57", "5")},
	}
	require.NoError(t, snap.Validate())
}

func TestBookSnapshot_ValidateRejectsCrossedBook(t *testing.T) {
	snap := BookSnapshot{
		Bids: []BookLevel{lvl("0.60", "10")},
		Asks: []BookLevel{lvl("0.55", "10")},
	}
	require.Error(t, snap.Validate())
}

func TestBookSnapshot_ValidateRejectsUnsortedBids(t *testing.T) {
	snap := BookSnapshot{
		Bids: []BookLevel{lvl("0.50", "10"), lvl("0.55", "5")},
	}
	require.Error(t, snap.Validate())
}

func TestBookSnapshot_ValidateRejectsOutOfRangePrice(t *testing.T) {
	snap := BookSnapshot{Bids: []BookLevel{lvl("1.5", "10")}}
	require.Error(t, snap.Validate())
}

func TestBookSnapshot_TruncateDropsExcessLevels(t *testing.T) {
	snap := BookSnapshot{
		Bids: []BookLevel{lvl("0.55", "1"), lvl("0.54", "1"), lvl("0.53", "1")},
	}
	trunc := snap.Truncate(2)
	require.Len(t, trunc.Bids, 2)
	require.Len(t, snap.Bids, 3, "original snapshot must not be mutated")
}

func TestBookSnapshot_Mid(t *testing.T) {
	snap := BookSnapshot{
		Bids: []BookLevel{lvl("0.50", "1")},
		Asks: []BookLevel{lvl("0.60", "1")},
	}
	mid, ok := snap.Mid()
	require.True(t, ok)
	require.True(t, mid.Equal(decimal.RequireFromString("0.55")))
}
