package venuea

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/arbengine/arbengine/internal/domain"
)

func num(s string) json.Number { return json.Number(s) }

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestNormalize_SortsBidsDescendingAsksAscending(t *testing.T) {
	d := wireDelta{
		MarketID: "m1",
		Bids:     [][2]json.Number{{num("0.54"), num("100")}, {num("0.56"), num("50")}},
		Asks:     [][2]json.Number{{num("0.60"), num("10")}, {num("0.58"), num("20")}},
	}
	snap, err := normalize(d, 10)
	require.NoError(t, err)

	require.Len(t, snap.Bids, 2)
	require.True(t, snap.Bids[0].Price.Equal(dec("0.56")))
	require.True(t, snap.Bids[1].Price.Equal(dec("0.54")))

	require.Len(t, snap.Asks, 2)
	require.True(t, snap.Asks[0].Price.Equal(dec("0.58")))
	require.True(t, snap.Asks[1].Price.Equal(dec("0.60")))
}

func TestNormalize_DropsOutOfRangeAndUnparsableLevels(t *testing.T) {
	d := wireDelta{
		MarketID: "m1",
		Bids: [][2]json.Number{
			{num("0.50"), num("100")},  // valid
			{num("1.00"), num("100")},  // price >= 1, dropped
			{num("0.40"), num("0")},    // zero size, dropped
			{num("not-a-number"), num("1")}, // unparsable, dropped
		},
	}
	snap, err := normalize(d, 10)
	require.NoError(t, err)
	require.Len(t, snap.Bids, 1)
	require.True(t, snap.Bids[0].Price.Equal(dec("0.50")))
}

func TestNormalize_TruncatesToMaxDepth(t *testing.T) {
	d := wireDelta{
		MarketID: "m1",
		Bids: [][2]json.Number{
			{num("0.50"), num("1")}, {num("0.49"), num("1")},
			{num("0.48"), num("1")}, {num("0.47"), num("1")},
		},
	}
	snap, err := normalize(d, 2)
	require.NoError(t, err)
	require.Len(t, snap.Bids, 2)
}

func TestNormalize_DefaultsTimestampWhenAbsent(t *testing.T) {
	before := time.Now().UTC()
	d := wireDelta{MarketID: "m1", Bids: [][2]json.Number{{num("0.5"), num("1")}}}
	snap, err := normalize(d, 10)
	require.NoError(t, err)
	require.False(t, snap.Timestamp.Before(before))
}

func TestNormalize_UsesWireTimestampWhenPresent(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	d := wireDelta{MarketID: "m1", TS: &ts, Bids: [][2]json.Number{{num("0.5"), num("1")}}}
	snap, err := normalize(d, 10)
	require.NoError(t, err)
	require.Equal(t, time.UnixMilli(ts).UTC(), snap.Timestamp)
}

func newWSServer(t *testing.T, handler func(conn *websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + srv.URL[len("http"):]
}

func TestRunStream_DropsMalformedMessageAndContinues(t *testing.T) {
	wsURL := newWSServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"market_id":"m1","bids":[["0.5","10"]]}`))
		time.Sleep(50 * time.Millisecond)
	})

	a := New("http://example.invalid", wsURL, time.Second, zerolog.Nop())
	out := make(chan domain.BookSnapshot, 4)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_ = a.runStream(ctx, out, nil, 10)

	select {
	case snap := <-out:
		require.Equal(t, "m1", snap.Market.VenueMarketID)
	default:
		t.Fatal("expected one snapshot to have been emitted despite the malformed message")
	}
}

func TestRunStream_FiltersToTrackedMarkets(t *testing.T) {
	wsURL := newWSServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"market_id":"untracked","bids":[["0.5","10"]]}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"market_id":"m1","bids":[["0.5","10"]]}`))
		time.Sleep(50 * time.Millisecond)
	})

	a := New("http://example.invalid", wsURL, time.Second, zerolog.Nop())
	out := make(chan domain.BookSnapshot, 4)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_ = a.runStream(ctx, out, map[string]bool{"m1": true}, 10)

	close(out)
	var got []domain.BookSnapshot
	for s := range out {
		got = append(got, s)
	}
	require.Len(t, got, 1)
	require.Equal(t, "m1", got[0].Market.VenueMarketID)
}

func TestSubscribeBooks_ReturnsNilOnContextCancellation(t *testing.T) {
	wsURL := newWSServer(t, func(conn *websocket.Conn) {
		time.Sleep(500 * time.Millisecond)
	})

	a := New("http://example.invalid", wsURL, time.Second, zerolog.Nop())
	out := make(chan domain.BookSnapshot, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := a.SubscribeBooks(ctx, out, nil, 10)
	require.NoError(t, err)
}

// TestSubscribeBooks_ReconnectsAfterTransientFailure simulates a
// connection that drops immediately, then succeeds on the next dial,
// exercising SubscribeBooks' backoff-then-reconnect path rather than
// just the terminal ctx-cancellation path.
func TestSubscribeBooks_ReconnectsAfterTransientFailure(t *testing.T) {
	var mu sync.Mutex
	connCount := 0
	wsURL := newWSServer(t, func(conn *websocket.Conn) {
		mu.Lock()
		connCount++
		n := connCount
		mu.Unlock()
		if n == 1 {
			return // close immediately, forcing a reconnect
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"market_id":"m1","bids":[["0.5","10"]]}`))
		time.Sleep(time.Second)
	})

	a := New("http://example.invalid", wsURL, time.Second, zerolog.Nop())
	out := make(chan domain.BookSnapshot, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 7*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- a.SubscribeBooks(ctx, out, nil, 10) }()

	select {
	case snap := <-out:
		require.Equal(t, "m1", snap.Market.VenueMarketID)
		cancel()
	case <-time.After(7 * time.Second):
		t.Fatal("expected a reconnect within the backoff window")
	}
	<-done
}
