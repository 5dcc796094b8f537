// Package venuea implements the venue A taker executor: EIP-712
// signed orders submitted over REST. Grounded on
// 0xtitan6-polymarket-mm's internal/exchange/auth.go (ClobAuth typed
// data, PriceToAmounts scaling) and client.go (order payload, POST
// /orders, cancel endpoint).
package venuea

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethmath "github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/arbengine/arbengine/internal/domain"
	"github.com/arbengine/arbengine/internal/errkind"
)

// priceTickScale and sizeBaseScale mirror Polymarket's on-chain
// conventions: prices quantized to 1e-6, sizes expressed in 6-decimal
// base units (USDC-denominated collateral).
const (
	priceTickScale = 1_000_000
	sizeBaseScale  = 1_000_000
	orderExpirySec = 120
)

// Executor places and cancels signed taker orders against venue A.
type Executor struct {
	rest       *resty.Client
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    *big.Int
	log        zerolog.Logger

	mu    sync.Mutex
	nonce uint64
}

// New builds a venue A executor from a hex-encoded private key and
// chain id.
func New(baseURL, privateKeyHex string, chainID int64, requestTimeout time.Duration, log zerolog.Logger) (*Executor, error) {
	keyHex := privateKeyHex
	if len(keyHex) >= 2 && keyHex[:2] == "0x" {
		keyHex = keyHex[2:]
	}
	pk, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("parse venue a private key: %w", err)
	}
	return &Executor{
		rest:       resty.New().SetBaseURL(baseURL).SetTimeout(requestTimeout),
		privateKey: pk,
		address:    crypto.PubkeyToAddress(pk.PublicKey),
		chainID:    big.NewInt(chainID),
		log:        log,
	}, nil
}

func (e *Executor) Venue() domain.Venue { return domain.VenueA }

// nextNonce returns a monotonically increasing nonce, safe for
// concurrent callers.
func (e *Executor) nextNonce() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nonce++
	return e.nonce
}

type signedOrder struct {
	Maker      string `json:"maker"`
	MarketID   string `json:"market_id"`
	Side       string `json:"side"`
	PriceTicks string `json:"price_ticks"`
	SizeBase   string `json:"size_base"`
	Nonce      string `json:"nonce"`
	Expiration string `json:"expiration"`
	Signature  string `json:"signature"`
}

type orderResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// PlaceOrder signs and submits a single taker order, retrying
// internally is left to the caller's state machine; this method makes
// exactly one attempt.
func (e *Executor) PlaceOrder(ctx context.Context, intent domain.OrderIntent) (domain.OrderRecord, error) {
	if err := intent.Validate(); err != nil {
		return domain.OrderRecord{}, err
	}

	priceTicks := intent.Price.Mul(decimal.NewFromInt(priceTickScale)).Round(0)
	sizeBase := intent.Size.Mul(decimal.NewFromInt(sizeBaseScale)).Round(0)
	nonce := e.nextNonce()
	expiration := time.Now().Add(orderExpirySec * time.Second).Unix()

	sig, err := e.signOrder(intent.MarketID, string(intent.Side), priceTicks.String(), sizeBase.String(), nonce, expiration)
	if err != nil {
		return domain.OrderRecord{}, fmt.Errorf("sign venue a order: %w", err)
	}

	payload := signedOrder{
		Maker:      e.address.Hex(),
		MarketID:   intent.MarketID,
		Side:       string(intent.Side),
		PriceTicks: priceTicks.String(),
		SizeBase:   sizeBase.String(),
		Nonce:      strconv.FormatUint(nonce, 10),
		Expiration: strconv.FormatInt(expiration, 10),
		Signature:  sig,
	}

	var result orderResponse
	resp, err := e.rest.R().SetContext(ctx).SetBody(payload).SetResult(&result).Post("/orders")
	if err != nil {
		return domain.OrderRecord{}, errkind.New(errkind.KindTransientTransport, err)
	}
	if resp.StatusCode() >= 500 {
		return domain.OrderRecord{}, errkind.New(errkind.KindTransientTransport, fmt.Errorf("venue a order: status %d", resp.StatusCode()))
	}
	if resp.IsError() {
		return domain.OrderRecord{}, errkind.New(errkind.KindVenueRejection, fmt.Errorf("venue a order rejected: status %d", resp.StatusCode()))
	}

	return domain.OrderRecord{
		ID:           intent.ClientOrderID,
		Venue:        domain.VenueA,
		MarketID:     intent.MarketID,
		Side:         intent.Side,
		Price:        intent.Price,
		Quantity:     intent.Size,
		SentAt:       time.Now(),
		AckedAt:      time.Now(),
		Status:       domain.OrderStatusAccepted,
		VenueOrderID: result.OrderID,
	}, nil
}

// CancelOrder cancels a previously placed order by its venue-assigned
// id. A cancel against an already-settled or already-cancelled order
// is a no-op from the caller's perspective.
func (e *Executor) CancelOrder(ctx context.Context, orderID string) error {
	resp, err := e.rest.R().SetContext(ctx).Delete("/orders/" + orderID)
	if err != nil {
		return errkind.New(errkind.KindTransientTransport, err)
	}
	if resp.StatusCode() >= 500 {
		return errkind.New(errkind.KindTransientTransport, fmt.Errorf("venue a cancel: status %d", resp.StatusCode()))
	}
	return nil
}

// signOrder produces an EIP-712 signature over the order fields,
// following the same ClobAuth-style typed data pattern used for
// authentication.
func (e *Executor) signOrder(marketID, side, priceTicks, sizeBase string, nonce uint64, expiration int64) (string, error) {
	domainData := apitypes.TypedDataDomain{
		Name:    "ArbEngineExchange",
		Version: "1",
		ChainId: (*ethmath.HexOrDecimal256)(new(big.Int).Set(e.chainID)),
	}
	types := apitypes.Types{
		"EIP712Domain": {
			{Name: "name", Type: "string"},
			{Name: "version", Type: "string"},
			{Name: "chainId", Type: "uint256"},
		},
		"Order": {
			{Name: "maker", Type: "address"},
			{Name: "marketId", Type: "string"},
			{Name: "side", Type: "string"},
			{Name: "priceTicks", Type: "string"},
			{Name: "sizeBase", Type: "string"},
			{Name: "nonce", Type: "uint256"},
			{Name: "expiration", Type: "uint256"},
		},
	}
	message := apitypes.TypedDataMessage{
		"maker":      e.address.Hex(),
		"marketId":   marketID,
		"side":       side,
		"priceTicks": priceTicks,
		"sizeBase":   sizeBase,
		"nonce":      strconv.FormatUint(nonce, 10),
		"expiration": strconv.FormatInt(expiration, 10),
	}
	typedData := apitypes.TypedData{Types: types, PrimaryType: "Order", Domain: domainData, Message: message}

	digest, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return "", err
	}
	sig, err := crypto.Sign(digest, e.privateKey)
	if err != nil {
		return "", err
	}
	if sig[64] < 27 {
		sig[64] += 27
	}
	return "0x" + common.Bytes2Hex(sig), nil
}
