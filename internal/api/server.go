// Package api exposes read-only HTTP projections over the persistence
// layer plus a health check, grounded on the teacher's gorilla/mux
// server wiring (one router, explicit timeouts, handlers as methods on
// a Server holding its repo dependencies).
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/arbengine/arbengine/internal/persistence"
)

// Server serves the read-only edges/fills/exposure/health endpoints.
type Server struct {
	edges     persistence.EdgesRepo
	fills     persistence.FillsRepo
	positions persistence.PositionsRepo
	log       zerolog.Logger
	router    *mux.Router
}

// NewServer builds the API server and registers its routes.
func NewServer(edges persistence.EdgesRepo, fills persistence.FillsRepo, positions persistence.PositionsRepo, log zerolog.Logger) *Server {
	s := &Server{edges: edges, fills: fills, positions: positions, log: log, router: mux.NewRouter()}
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/edges", s.handleEdges).Methods(http.MethodGet)
	s.router.HandleFunc("/fills", s.handleFills).Methods(http.MethodGet)
	s.router.HandleFunc("/exposure", s.handleExposure).Methods(http.MethodGet)
	return s
}

// Handler returns the root http.Handler, for use with http.Server.
func (s *Server) Handler() http.Handler { return s.router }

// NewHTTPServer wraps Handler in an http.Server with the given address
// and read/write timeouts, matching the teacher's explicit-timeout
// convention over relying on http.ListenAndServe defaults.
func NewHTTPServer(addr string, s *Server, requestTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  requestTimeout,
		WriteTimeout: requestTimeout,
		IdleTimeout:  2 * requestTimeout,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func limitFromQuery(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func (s *Server) handleEdges(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := limitFromQuery(r, 50)

	pairID := r.URL.Query().Get("pair_id")
	var (
		out []interface{}
		err error
	)
	if pairID != "" {
		edges, e := s.edges.ListByPair(ctx, pairID, limit)
		err = e
		for _, edge := range edges {
			out = append(out, edge)
		}
	} else {
		edges, e := s.edges.ListRecent(ctx, limit)
		err = e
		for _, edge := range edges {
			out = append(out, edge)
		}
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFills(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := limitFromQuery(r, 50)

	orderID := r.URL.Query().Get("order_id")
	var (
		out []interface{}
		err error
	)
	if orderID != "" {
		fills, e := s.fills.ListByOrder(ctx, orderID)
		err = e
		for _, f := range fills {
			out = append(out, f)
		}
	} else {
		fills, e := s.fills.ListRecent(ctx, limit)
		err = e
		for _, f := range fills {
			out = append(out, f)
		}
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleExposure(w http.ResponseWriter, r *http.Request) {
	positions, err := s.positions.ListAll(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, positions)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.log.Error().Err(err).Msg("api request failed")
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Shutdown performs a graceful shutdown against the given server with
// a bounded deadline.
func Shutdown(ctx context.Context, srv *http.Server, timeout time.Duration) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
