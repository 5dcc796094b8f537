// Package venuea implements the CLOB-style venue A ingestion adapter:
// REST catalog fetch plus a websocket book-delta stream, normalized
// into canonical domain.BookSnapshot values. Grounded on
// 0xtitan6-polymarket-mm's internal/exchange/{client,ws}.go REST+WS
// split and the teacher's gobreaker-wrapped provider calls.
package venuea

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	"github.com/arbengine/arbengine/internal/domain"
	"github.com/arbengine/arbengine/internal/errkind"
)

// Adapter implements ingest.Adapter for venue A.
type Adapter struct {
	baseURL   string
	wsURL     string
	rest      *resty.Client
	breaker   *gobreaker.CircuitBreaker
	log       zerolog.Logger
	dialer    *websocket.Dialer
}

// New builds a venue A adapter against baseURL (REST) and wsURL
// (streaming). requestTimeout bounds every individual HTTP request.
func New(baseURL, wsURL string, requestTimeout time.Duration, log zerolog.Logger) *Adapter {
	rest := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(requestTimeout)

	st := gobreaker.Settings{
		Name:    "venue_a_rest",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &Adapter{
		baseURL: baseURL,
		wsURL:   wsURL,
		rest:    rest,
		breaker: gobreaker.NewCircuitBreaker(st),
		log:     log,
		dialer:  websocket.DefaultDialer,
	}
}

func (a *Adapter) Venue() domain.Venue { return domain.VenueA }

type venueAMarket struct {
	ID               string   `json:"id"`
	Ticker           string   `json:"ticker"`
	Title            string   `json:"title"`
	EventName        string   `json:"event_name"`
	ResolutionSource string   `json:"resolution_source"`
	OpenTime         string   `json:"open_time"`
	CloseTime        string   `json:"close_time"`
	Category         string   `json:"category"`
	Tags             []string `json:"tags"`
	Active           bool     `json:"active"`
}

// FetchMarkets loads the full catalog. A fetch error is fatal to the
// adapter.
func (a *Adapter) FetchMarkets(ctx context.Context) ([]domain.Market, error) {
	var raw []venueAMarket
	_, err := a.breaker.Execute(func() (interface{}, error) {
		resp, err := a.rest.R().SetContext(ctx).SetResult(&raw).Get("/markets")
		if err != nil {
			return nil, errkind.New(errkind.KindTransientTransport, err)
		}
		if resp.IsError() {
			return nil, errkind.New(errkind.KindTransientTransport, fmt.Errorf("venue a markets: status %d", resp.StatusCode()))
		}
		return nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch venue a catalog: %w", err)
	}

	out := make([]domain.Market, 0, len(raw))
	for _, m := range raw {
		if !m.Active {
			continue
		}
		open, _ := time.Parse(time.RFC3339, m.OpenTime)
		close_, _ := time.Parse(time.RFC3339, m.CloseTime)
		out = append(out, domain.Market{
			ID:               m.ID,
			Venue:            domain.VenueA,
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

// wireDelta is the venue A websocket book-delta payload shape: prices
// already in fraction-of-dollar form, unlike venue B's integer cents.
type wireDelta struct {
	MarketID string          `json:"market_id"`
	Bids     [][2]json.Number `json:"bids"`
	Asks     [][2]json.Number `json:"asks"`
	TS       *int64          `json:"ts,omitempty"`
}

// SubscribeBooks streams book snapshots, reconnecting with exponential
// backoff. No subscribe message is sent on connect; every received
// message is normalized as the complete book for its market, so the
// first emission per market after a (re)connect is a full snapshot.
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
		a.log.Warn().Err(err).Int("consecutive_fails", consecutiveFails).Msg("venue a stream disconnected, reconnecting")
		if consecutiveFails >= 10 {
			return fmt.Errorf("venue a stream: %d consecutive failures: %w", consecutiveFails, err)
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
	conn, _, err := a.dialer.DialContext(ctx, a.wsURL, nil)
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
		var delta wireDelta
		if err := json.Unmarshal(msg, &delta); err != nil {
			a.log.Warn().Err(err).Msg("venue a: dropping malformed message")
			continue
		}
		if len(tracked) > 0 && !tracked[delta.MarketID] {
			continue
		}
		snap, err := normalize(delta, maxDepth)
		if err != nil {
			a.log.Warn().Err(err).Str("market_id", delta.MarketID).Msg("venue a: dropping invalid snapshot")
			continue
		}
		select {
		case out <- snap:
		case <-ctx.Done():
			return nil
		}
	}
}

// normalize converts a venue A delta (already fraction-denominated)
// into a canonical BookSnapshot: sort, drop invalid levels, truncate.
func normalize(d wireDelta, maxDepth int) (domain.BookSnapshot, error) {
	toLevels := func(raw [][2]json.Number) []domain.BookLevel {
		levels := make([]domain.BookLevel, 0, len(raw))
		for _, pair := range raw {
			price, err1 := decimal.NewFromString(pair[0].String())
			size, err2 := decimal.NewFromString(pair[1].String())
			if err1 != nil || err2 != nil {
				continue
			}
			if size.LessThanOrEqual(decimal.Zero) || price.LessThanOrEqual(decimal.Zero) || price.GreaterThanOrEqual(decimal.NewFromInt(1)) {
				continue
			}
			levels = append(levels, domain.BookLevel{Price: price, Size: size})
		}
		return levels
	}

	bids := sortDescending(toLevels(d.Bids))
	asks := sortAscending(toLevels(d.Asks))

	ts := time.Now().UTC()
	if d.TS != nil {
		ts = time.UnixMilli(*d.TS).UTC()
	}

	snap := domain.BookSnapshot{
		Market:    domain.MarketRef{Venue: domain.VenueA, VenueMarketID: d.MarketID},
		Timestamp: ts,
		Bids:      bids,
		Asks:      asks,
	}.Truncate(maxDepth)

	if err := snap.Validate(); err != nil {
		return domain.BookSnapshot{}, err
	}
	return snap, nil
}

func sortDescending(levels []domain.BookLevel) []domain.BookLevel {
	for i := 1; i < len(levels); i++ {
		for j := i; j > 0 && levels[j].Price.GreaterThan(levels[j-1].Price); j-- {
			levels[j], levels[j-1] = levels[j-1], levels[j]
		}
	}
	return levels
}

func sortAscending(levels []domain.BookLevel) []domain.BookLevel {
	for i := 1; i < len(levels); i++ {
		for j := i; j > 0 && levels[j].Price.LessThan(levels[j-1].Price); j-- {
			levels[j], levels[j-1] = levels[j-1], levels[j]
		}
	}
	return levels
}
