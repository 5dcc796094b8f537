// Package venueb implements the venue B taker executor: session-JWT
// authenticated IOC orders submitted over REST. Grounded on the
// ingest/venueb adapter's session/login/401-refresh-retry pattern,
// reused here for the trading-side session instead of the
// market-data session.
package venueb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/arbengine/arbengine/internal/domain"
	"github.com/arbengine/arbengine/internal/errkind"
)

type session struct {
	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

func (s *session) get() (string, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.expiresAt
}

func (s *session) set(token string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.expiresAt = expiresAt
}

// Executor places and cancels IOC orders against venue B.
type Executor struct {
	email, password string
	rest            *resty.Client
	sess            *session
	refreshSlack    time.Duration
	log             zerolog.Logger
}

// New builds a venue B executor.
func New(baseURL, email, password string, requestTimeout, refreshSlack time.Duration, log zerolog.Logger) *Executor {
	return &Executor{
		email:        email,
		password:     password,
		rest:         resty.New().SetBaseURL(baseURL).SetTimeout(requestTimeout),
		sess:         &session{},
		refreshSlack: refreshSlack,
		log:          log,
	}
}

func (e *Executor) Venue() domain.Venue { return domain.VenueB }

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in_seconds"`
}

func (e *Executor) login(ctx context.Context) error {
	var resp loginResponse
	r, err := e.rest.R().SetContext(ctx).
		SetBody(map[string]string{"email": e.email, "password": e.password}).
		SetResult(&resp).
		Post("/auth/login")
	if err != nil {
		return errkind.New(errkind.KindTransientTransport, err)
	}
	if r.IsError() {
		return errkind.New(errkind.KindAuthExpired, fmt.Errorf("login failed: status %d", r.StatusCode()))
	}
	e.sess.set(resp.Token, time.Now().Add(time.Duration(resp.ExpiresIn)*time.Second))
	return nil
}

func (e *Executor) ensureToken(ctx context.Context) (string, error) {
	token, expiresAt := e.sess.get()
	if token == "" || time.Until(expiresAt) < e.refreshSlack {
		if err := e.login(ctx); err != nil {
			return "", err
		}
		token, _ = e.sess.get()
	}
	return token, nil
}

type orderRequest struct {
	MarketID  string `json:"market_id"`
	Side      string `json:"side"`
	PriceCents int64 `json:"price_cents"`
	Size      int64  `json:"size"`
	ClientID  string `json:"client_order_id"`
	TimeInForce string `json:"time_in_force"`
}

type orderResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// PlaceOrder submits a single immediate-or-cancel taker order. On a
// 401 it forces one token refresh and retries once; a second 401 is
// surfaced to the caller.
func (e *Executor) PlaceOrder(ctx context.Context, intent domain.OrderIntent) (domain.OrderRecord, error) {
	if err := intent.Validate(); err != nil {
		return domain.OrderRecord{}, err
	}

	priceCents, _ := intent.Price.Mul(decimal.NewFromInt(100)).Round(0).Float64()
	size, _ := intent.Size.Round(0).Float64()

	req := orderRequest{
		MarketID:    intent.MarketID,
		Side:        string(intent.Side),
		PriceCents:  int64(priceCents),
		Size:        int64(size),
		ClientID:    intent.ClientOrderID,
		TimeInForce: "IOC",
	}

	result, err := e.placeOrder(ctx, req)
	if err != nil && errkind.Classify(err) == errkind.KindAuthExpired {
		if loginErr := e.login(ctx); loginErr != nil {
			return domain.OrderRecord{}, loginErr
		}
		result, err = e.placeOrder(ctx, req)
	}
	if err != nil {
		return domain.OrderRecord{}, err
	}

	status := domain.OrderStatusAccepted
	if result.Status == "rejected" {
		status = domain.OrderStatusRejected
	}

	return domain.OrderRecord{
		ID:           intent.ClientOrderID,
		Venue:        domain.VenueB,
		MarketID:     intent.MarketID,
		Side:         intent.Side,
		Price:        intent.Price,
		Quantity:     intent.Size,
		SentAt:       time.Now(),
		AckedAt:      time.Now(),
		Status:       status,
		VenueOrderID: result.OrderID,
	}, nil
}

func (e *Executor) placeOrder(ctx context.Context, req orderRequest) (orderResponse, error) {
	token, err := e.ensureToken(ctx)
	if err != nil {
		return orderResponse{}, err
	}
	var result orderResponse
	r, err := e.rest.R().SetContext(ctx).
		SetHeader("Authorization", "Bearer "+token).
		SetBody(req).
		SetResult(&result).
		Post("/orders")
	if err != nil {
		return orderResponse{}, errkind.New(errkind.KindTransientTransport, err)
	}
	if r.StatusCode() == 401 {
		return orderResponse{}, errkind.New(errkind.KindAuthExpired, fmt.Errorf("venue b order: unauthorized"))
	}
	if r.StatusCode() >= 500 {
		return orderResponse{}, errkind.New(errkind.KindTransientTransport, fmt.Errorf("venue b order: status %d", r.StatusCode()))
	}
	if r.IsError() {
		return orderResponse{}, errkind.New(errkind.KindVenueRejection, fmt.Errorf("venue b order rejected: status %d", r.StatusCode()))
	}
	return result, nil
}

// CancelOrder cancels a previously placed order. A cancel against an
// already-settled or already-cancelled order is a no-op.
func (e *Executor) CancelOrder(ctx context.Context, orderID string) error {
	token, err := e.ensureToken(ctx)
	if err != nil {
		return err
	}
	r, err := e.rest.R().SetContext(ctx).
		SetHeader("Authorization", "Bearer "+token).
		Delete("/orders/" + orderID)
	if err != nil {
		return errkind.New(errkind.KindTransientTransport, err)
	}
	if r.StatusCode() >= 500 {
		return errkind.New(errkind.KindTransientTransport, fmt.Errorf("venue b cancel: status %d", r.StatusCode()))
	}
	return nil
}
