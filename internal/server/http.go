package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"LaunchCore/internal/observability"
	"LaunchCore/internal/projection"
	"LaunchCore/internal/query"
)

// HTTPServer exposes the read side over JSON/HTTP. All endpoints serve
// projection reads: responses carry as_of_sequence so callers can judge
// freshness against the published event stream.
type HTTPServer struct {
	addr    string
	query   *query.QueryService
	prices  *projection.PriceHistoryProjection
	health  *observability.HealthChecker
	metrics *observability.Metrics
	log     zerolog.Logger

	srv *http.Server
}

func NewHTTPServer(
	addr string,
	qs *query.QueryService,
	prices *projection.PriceHistoryProjection,
	health *observability.HealthChecker,
	metrics *observability.Metrics,
	log zerolog.Logger,
) *HTTPServer {
	return &HTTPServer{
		addr:    addr,
		query:   qs,
		prices:  prices,
		health:  health,
		metrics: metrics,
		log:     log,
	}
}

// Start runs the HTTP server until ctx is cancelled.
func (s *HTTPServer) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.health.LivenessHandler)
	mux.HandleFunc("GET /readyz", s.health.ReadinessHandler)

	mux.HandleFunc("GET /v1/tokens", s.instrument("list_tokens", s.handleListTokens))
	mux.HandleFunc("GET /v1/tokens/{token}/pool", s.instrument("get_pool", s.handleGetPool))
	mux.HandleFunc("GET /v1/tokens/{token}/trades", s.instrument("get_trades", s.handleGetTrades))
	mux.HandleFunc("GET /v1/tokens/{token}/prices", s.instrument("get_prices", s.handleGetPrices))
	mux.HandleFunc("GET /v1/competitions", s.instrument("list_competitions", s.handleListCompetitions))
	mux.HandleFunc("GET /v1/competitions/{id}", s.instrument("get_competition", s.handleGetCompetition))
	mux.HandleFunc("GET /v1/integrity", s.instrument("verify_integrity", s.handleVerifyIntegrity))

	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutCtx)
	}()

	s.log.Info().Str("addr", s.addr).Msg("http query server listening")
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// instrument wraps a handler with request/latency metrics.
func (s *HTTPServer) instrument(endpoint string, h func(w http.ResponseWriter, r *http.Request) int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		status := h(w, r)
		if s.metrics != nil {
			s.metrics.QueryRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
			s.metrics.QueryDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		}
	}
}

func (s *HTTPServer) handleListTokens(w http.ResponseWriter, r *http.Request) int {
	limit := queryLimit(r, 100)
	after := queryInt64Ptr(r, "after_sequence")

	tokens, err := s.query.ListTokens(r.Context(), limit, after)
	if err != nil {
		return s.writeError(w, err)
	}
	return writeJSON(w, http.StatusOK, map[string]interface{}{"tokens": tokens})
}

func (s *HTTPServer) handleGetPool(w http.ResponseWriter, r *http.Request) int {
	pool, err := s.query.GetPoolState(r.Context(), r.PathValue("token"))
	if err != nil {
		return s.writeError(w, err)
	}
	if pool == nil {
		return writeJSON(w, http.StatusNotFound, map[string]string{"error": "token not found"})
	}
	return writeJSON(w, http.StatusOK, pool)
}

func (s *HTTPServer) handleGetTrades(w http.ResponseWriter, r *http.Request) int {
	limit := queryLimit(r, 100)
	after := queryInt64Ptr(r, "after_sequence")

	trades, err := s.query.GetTrades(r.Context(), r.PathValue("token"), limit, after)
	if err != nil {
		return s.writeError(w, err)
	}
	return writeJSON(w, http.StatusOK, map[string]interface{}{"trades": trades})
}

func (s *HTTPServer) handleGetPrices(w http.ResponseWriter, r *http.Request) int {
	limit := queryLimit(r, 200)
	points := s.prices.QueryByToken(r.PathValue("token"), limit)
	return writeJSON(w, http.StatusOK, map[string]interface{}{"prices": points})
}

func (s *HTTPServer) handleListCompetitions(w http.ResponseWriter, r *http.Request) int {
	limit := queryLimit(r, 50)
	var status *string
	if v := r.URL.Query().Get("status"); v != "" {
		status = &v
	}

	competitions, err := s.query.ListCompetitions(r.Context(), status, limit)
	if err != nil {
		return s.writeError(w, err)
	}
	return writeJSON(w, http.StatusOK, map[string]interface{}{"competitions": competitions})
}

func (s *HTTPServer) handleGetCompetition(w http.ResponseWriter, r *http.Request) int {
	comp, err := s.query.GetCompetition(r.Context(), r.PathValue("id"))
	if err != nil {
		return s.writeError(w, err)
	}
	if comp == nil {
		return writeJSON(w, http.StatusNotFound, map[string]string{"error": "competition not found"})
	}
	return writeJSON(w, http.StatusOK, comp)
}

func (s *HTTPServer) handleVerifyIntegrity(w http.ResponseWriter, r *http.Request) int {
	report, err := s.query.VerifyIntegrity(r.Context())
	if err != nil {
		return s.writeError(w, err)
	}
	return writeJSON(w, http.StatusOK, report)
}

func (s *HTTPServer) writeError(w http.ResponseWriter, err error) int {
	s.log.Error().Err(err).Msg("query failed")
	return writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) int {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
	return status
}

func queryLimit(r *http.Request, def int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 || n > 1000 {
		return def
	}
	return n
}

func queryInt64Ptr(r *http.Request, key string) *int64 {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
