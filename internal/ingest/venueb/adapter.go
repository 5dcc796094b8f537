package venueb

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/arbengine/arbengine/internal/domain"
	"github.com/arbengine/arbengine/internal/errkind"
)

// session holds the venue B JWT and its expiry, protected by a lock
// during refresh; reads are lock-free-ish via RLock, matching the
// spec's "protected by a lock during refresh; read-only access
// otherwise" shared-resource rule for the execution-side session too.
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

// Adapter implements ingest.Adapter for venue B.
type Adapter struct {
	baseURL           string
	wsURL             string
	email, password   string
	rest              *resty.Client
	sess              *session
	refreshSlack      time.Duration
	log               zerolog.Logger
	dialer            *websocket.Dialer
}

// New builds a venue B adapter.
func New(baseURL, wsURL, email, password string, requestTimeout, refreshSlack time.Duration, log zerolog.Logger) *Adapter {
	return &Adapter{
		baseURL:      baseURL,
		wsURL:        wsURL,
		email:        email,
		password:     password,
		rest:         resty.New().SetBaseURL(baseURL).SetTimeout(requestTimeout),
		sess:         &session{},
		refreshSlack: refreshSlack,
		log:          log,
		dialer:       websocket.DefaultDialer,
	}
}

func (a *Adapter) Venue() domain.Venue { return domain.VenueB }

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in_seconds"`
}

// login acquires a fresh session JWT via email/password.
func (a *Adapter) login(ctx context.Context) error {
	var resp loginResponse
	r, err := a.rest.R().SetContext(ctx).
		SetBody(map[string]string{"email": a.email, "password": a.password}).
		SetResult(&resp).
		Post("/auth/login")
	if err != nil {
		return errkind.New(errkind.KindTransientTransport, err)
	}
	if r.IsError() {
		return errkind.New(errkind.KindAuthExpired, fmt.Errorf("login failed: status %d", r.StatusCode()))
	}
	a.sess.set(resp.Token, time.Now().Add(time.Duration(resp.ExpiresIn)*time.Second))
	return nil
}

// ensureToken refreshes the session token_refresh_slack_seconds before
// expiry, or immediately if no token is held yet.
func (a *Adapter) ensureToken(ctx context.Context) (string, error) {
	token, expiresAt := a.sess.get()
	if token == "" || time.Until(expiresAt) < a.refreshSlack {
		if err := a.login(ctx); err != nil {
			return "", err
		}
		token, _ = a.sess.get()
	}
	return token, nil
}

type venueBMarket struct {
	MarketID         string   `json:"market_id"`
	Ticker           string   `json:"ticker"`
	Title            string   `json:"title"`
	EventName        string   `json:"event_name"`
	ResolutionSource string   `json:"resolution_source"`
	OpenTime         string   `json:"open_time"`
	CloseTime        string   `json:"close_time"`
	Category         string   `json:"category"`
	Tags             []string `json:"tags"`
}

// FetchMarkets loads the venue B catalog. On a 401 it forces one token
// refresh and retries once.
func (a *Adapter) FetchMarkets(ctx context.Context) ([]domain.Market, error) {
	raw, err := a.fetchMarkets(ctx)
	if err != nil && errkind.Classify(err) == errkind.KindAuthExpired {
		if loginErr := a.login(ctx); loginErr != nil {
			return nil, loginErr
		}
		raw, err = a.fetchMarkets(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch venue b catalog: %w", err)
	}

	out := make([]domain.Market, 0, len(raw))
	for _, m := range raw {
		open, _ := time.Parse(time.RFC3339, m.OpenTime)
		close_, _ := time.Parse(time.RFC3339, m.CloseTime)
		out = append(out, domain.Market{
			ID:               m.MarketID,
			Venue:            domain.VenueB,
			VenueTicker:      m.Ticker,
			Title:            m.Title,
			EventName:        m.EventName,
			ResolutionSource: m.ResolutionSource,
			OpenTime:         open,
			CloseTime:        close_,
			Category:         m.Category,
			Tags:             m.Tags,
			IsBinary:         true,
		})
	}
	return out, nil
}

func (a *Adapter) fetchMarkets(ctx context.Context) ([]venueBMarket, error) {
	token, err := a.ensureToken(ctx)
	if err != nil {
		return nil, err
	}
	var raw []venueBMarket
	r, err := a.rest.R().SetContext(ctx).
		SetHeader("Authorization", "Bearer "+token).
		SetResult(&raw).
		Get("/markets")
	if err != nil {
		return nil, errkind.New(errkind.KindTransientTransport, err)
	}
	if r.StatusCode() == 401 {
		return nil, errkind.New(errkind.KindAuthExpired, fmt.Errorf("venue b markets: unauthorized"))
	}
	if r.IsError() {
		return nil, errkind.New(errkind.KindTransientTransport, fmt.Errorf("venue b markets: status %d", r.StatusCode()))
	}
	return raw, nil
}

type wireBook struct {
	MarketID string     `json:"market_id"`
	Yes      [][2]int64 `json:"yes"` // [price_cents, size]
	No       [][2]int64 `json:"no"`
}

// SubscribeBooks streams YES/NO book deltas and applies the canonical
// transform. Reconnects with exponential backoff; the first emission
// per market after reconnect is a full snapshot since venue B always
// sends full books per update.
func (a *Adapter) SubscribeBooks(ctx context.Context, out chan<- domain.BookSnapshot, tracked map[string]bool, maxDepth int) error {
	consecutiveFails := 0
	delay := 5 * time.Second

	for {
		err := a.runStream(ctx, out, tracked, maxDepth)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			consecutiveFails = 0
			delay = 5 * time.Second
			continue
		}
		consecutiveFails++
		a.log.Warn().Err(err).Int("consecutive_fails", consecutiveFails).Msg("venue b stream disconnected, reconnecting")
		if consecutiveFails >= 10 {
			return fmt.Errorf("venue b stream: %d consecutive failures: %w", consecutiveFails, err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		if delay < 2*time.Minute {
			delay *= 2
		}
	}
}

func (a *Adapter) runStream(ctx context.Context, out chan<- domain.BookSnapshot, tracked map[string]bool, maxDepth int) error {
	token, err := a.ensureToken(ctx)
	if err != nil {
		return err
	}
	header := map[string][]string{"Authorization": {"Bearer " + token}}
	conn, _, err := a.dialer.DialContext(ctx, a.wsURL, header)
	if err != nil {
		return errkind.New(errkind.KindTransientTransport, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return errkind.New(errkind.KindTransientTransport, err)
		}
		var w wireBook
		if err := json.Unmarshal(msg, &w); err != nil {
			a.log.Warn().Err(err).Msg("venue b: dropping malformed message")
			continue
		}
		if len(tracked) > 0 && !tracked[w.MarketID] {
			continue
		}
		raw := RawBook{MarketID: w.MarketID}
		for _, p := range w.Yes {
			raw.Yes = append(raw.Yes, RawLevel{PriceCents: p[0], Size: float64(p[1])})
		}
		for _, p := range w.No {
			raw.No = append(raw.No, RawLevel{PriceCents: p[0], Size: float64(p[1])})
		}
		snap := Transform(raw, time.Now().UTC(), maxDepth)
		if err := snap.Validate(); err != nil {
			a.log.Warn().Err(err).Str("market_id", w.MarketID).Msg("venue b: dropping invalid snapshot")
			continue
		}
		select {
		case out <- snap:
		case <-ctx.Done():
			return nil
		}
	}
}
