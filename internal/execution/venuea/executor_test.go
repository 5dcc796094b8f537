package venuea

import (
	"context"
	"encoding/hex"
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

// testPrivateKeyHex is a well-known throwaway test key (Hardhat/Anvil
// account #0), never used against a live venue.
const testPrivateKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func testIntent() domain.OrderIntent {
	return domain.OrderIntent{
		Venue: domain.VenueA, MarketID: "m1", Side: domain.SideBuy,
		Price: decimal.NewFromFloat(0.55), Size: decimal.NewFromInt(100),
		ClientOrderID: "co-1",
	}
}

func TestNew_DerivesAddressFromPrivateKey(t *testing.T) {
	exec, err := New("http://example.invalid", testPrivateKeyHex, 137, time.Second, zerolog.Nop())
	require.NoError(t, err)
	require.NotEqual(t, "0x0000000000000000000000000000000000000000", exec.address.Hex())
}

func TestNew_RejectsMalformedPrivateKey(t *testing.T) {
	_, err := New("http://example.invalid", "not-hex", 137, time.Second, zerolog.Nop())
	require.Error(t, err)
}

func TestSignOrder_ProducesNormalizedSignature(t *testing.T) {
	exec, err := New("http://example.invalid", testPrivateKeyHex, 137, time.Second, zerolog.Nop())
	require.NoError(t, err)

	sig, err := exec.signOrder("m1", string(domain.SideBuy), "550000", "100000000", 1, time.Now().Add(time.Minute).Unix())
	require.NoError(t, err)
	require.True(t, len(sig) > 2 && sig[:2] == "0x")

	// the recovery id byte must already be normalized to 27/28 the way
	// go-ethereum's crypto.Sign never returns it.
	raw, err := hex.DecodeString(sig[2:])
	require.NoError(t, err)
	require.Len(t, raw, 65)
	require.True(t, raw[64] == 27 || raw[64] == 28)
}

func TestPlaceOrder_SucceedsAndSignsEachCall(t *testing.T) {
	var gotOrders []signedOrder
	mux := http.NewServeMux()
	mux.HandleFunc("/orders", func(w http.ResponseWriter, r *http.Request) {
		var body signedOrder
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotOrders = append(gotOrders, body)
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(orderResponse{OrderID: "va-order-1", Status: "accepted"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	exec, err := New(srv.URL, testPrivateKeyHex, 137, 2*time.Second, zerolog.Nop())
	require.NoError(t, err)

	rec, err := exec.PlaceOrder(context.Background(), testIntent())
	require.NoError(t, err)
	require.Equal(t, "va-order-1", rec.VenueOrderID)
	require.Equal(t, domain.OrderStatusAccepted, rec.Status)
	require.Len(t, gotOrders, 1)
	require.NotEmpty(t, gotOrders[0].Signature)
	require.Equal(t, "1", gotOrders[0].Nonce)

	_, err = exec.PlaceOrder(context.Background(), testIntent())
	require.NoError(t, err)
	require.Equal(t, "2", gotOrders[1].Nonce)
}

func TestPlaceOrder_ReturnsVenueRejectionOn4xx(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/orders", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	exec, err := New(srv.URL, testPrivateKeyHex, 137, 2*time.Second, zerolog.Nop())
	require.NoError(t, err)

	_, err = exec.PlaceOrder(context.Background(), testIntent())
	require.Error(t, err)
}

func TestCancelOrder_Succeeds(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/orders/va-order-1", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	exec, err := New(srv.URL, testPrivateKeyHex, 137, 2*time.Second, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, exec.CancelOrder(context.Background(), "va-order-1"))
}
