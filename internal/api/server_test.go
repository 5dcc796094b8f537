package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/arbengine/arbengine/internal/domain"
	"github.com/arbengine/arbengine/internal/persistence"
)

type fakeEdgesRepo struct {
	recent []domain.EdgeSignal
	byPair map[string][]domain.EdgeSignal
}

func (f *fakeEdgesRepo) Insert(context.Context, domain.EdgeSignal) error { return nil }
func (f *fakeEdgesRepo) ListByPair(_ context.Context, pairID string, limit int) ([]domain.EdgeSignal, error) {
	return f.byPair[pairID], nil
}
func (f *fakeEdgesRepo) ListRecent(context.Context, int) ([]domain.EdgeSignal, error) {
	return f.recent, nil
}

type fakeFillsRepo struct{}

func (f *fakeFillsRepo) Insert(context.Context, domain.Fill) error            { return nil }
func (f *fakeFillsRepo) ListByOrder(context.Context, string) ([]domain.Fill, error) { return nil, nil }
func (f *fakeFillsRepo) ListRecent(context.Context, int) ([]domain.Fill, error)     { return nil, nil }

type fakePositionsRepo struct {
	all []persistence.Position
}

func (f *fakePositionsRepo) ApplyDelta(context.Context, domain.Venue, string, float64, float64) (persistence.Position, error) {
	return persistence.Position{}, nil
}
func (f *fakePositionsRepo) Get(context.Context, domain.Venue, string) (*persistence.Position, error) {
	return nil, nil
}
func (f *fakePositionsRepo) ListAll(context.Context) ([]persistence.Position, error) {
	return f.all, nil
}

func TestHandleHealth_ReturnsOK(t *testing.T) {
	s := NewServer(&fakeEdgesRepo{}, &fakeFillsRepo{}, &fakePositionsRepo{}, zerolog.Nop())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleEdges_ListsRecentByDefault(t *testing.T) {
	edges := &fakeEdgesRepo{recent: []domain.EdgeSignal{{PairID: "p1", NetEdgeCents: 4.2}}}
	s := NewServer(edges, &fakeFillsRepo{}, &fakePositionsRepo{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/edges?limit=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var out []domain.EdgeSignal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	require.Equal(t, "p1", out[0].PairID)
}

func TestHandleExposure_ReturnsPositions(t *testing.T) {
	positions := &fakePositionsRepo{all: []persistence.Position{{Venue: domain.VenueA, MarketID: "m1", NotionalUSD: 100, UpdatedAt: time.Now()}}}
	s := NewServer(&fakeEdgesRepo{}, &fakeFillsRepo{}, positions, zerolog.Nop())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/exposure", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var out []persistence.Position
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	require.Equal(t, "m1", out[0].MarketID)
}
