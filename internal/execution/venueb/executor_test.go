package venueb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/arbengine/arbengine/internal/domain"
)

func newTestServer(t *testing.T, orderStatus int) (*httptest.Server, *int) {
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(loginResponse{Token: "tok-1", ExpiresIn: 3600})
	})
	mux.HandleFunc("/orders", func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 && orderStatus == http.StatusUnauthorized {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(orderResponse{OrderID: "vb-order-1", Status: "accepted"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testIntent() domain.OrderIntent {
	return domain.OrderIntent{
		Venue: domain.VenueB, MarketID: "m1", Side: domain.SideBuy,
		Price: decimal.NewFromFloat(0.55), Size: decimal.NewFromInt(100),
		ClientOrderID: "co-1",
	}
}

func TestPlaceOrder_SucceedsOnFirstAttempt(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusOK)
	exec := New(srv.URL, "user@example.com", "pw", 2*time.Second, time.Minute, zerolog.Nop())

	rec, err := exec.PlaceOrder(context.Background(), testIntent())
	require.NoError(t, err)
	require.Equal(t, "vb-order-1", rec.VenueOrderID)
	require.Equal(t, domain.OrderStatusAccepted, rec.Status)
	require.Equal(t, 1, *calls)
}

func TestPlaceOrder_RefreshesOnceAfter401(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusUnauthorized)
	exec := New(srv.URL, "user@example.com", "pw", 2*time.Second, time.Minute, zerolog.Nop())
	exec.sess.set("stale-token", time.Now().Add(time.Hour))

	rec, err := exec.PlaceOrder(context.Background(), testIntent())
	require.NoError(t, err)
	require.Equal(t, "vb-order-1", rec.VenueOrderID)
	require.Equal(t, 2, *calls)
}
