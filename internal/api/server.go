package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"attack-tracker/internal/config"
	"attack-tracker/internal/query"
	"attack-tracker/internal/service"
	"attack-tracker/internal/storage"
)

// Querier is the read side consumed by the API handlers.
type Querier interface {
	Attacks(ctx context.Context, filter storage.AttackFilter) ([]storage.AttackRecord, int, error)
	Summary(ctx context.Context) (query.SummaryStats, error)
	Timeline(ctx context.Context, granularity string, start, end *time.Time) ([]query.TimelinePoint, error)
	ByProtocol(ctx context.Context) ([]query.ProtocolBreakdown, error)
	ByType(ctx context.Context) ([]query.TypeBreakdown, error)
	Top(ctx context.Context, n int) ([]storage.AttackRecord, error)
}

// RefreshRunner triggers refresh jobs and reports their status.
type RefreshRunner interface {
	Run(ctx context.Context) (service.Result, error)
	LastStatus(ctx context.Context) (service.Status, error)
}

// Server is the REST API server.
type Server struct {
	cfg       config.ServerConfig
	querier   Querier
	refresher RefreshRunner
	logger    zerolog.Logger
	router    *mux.Router
}

// NewServer constructs the API server and registers its routes.
func NewServer(cfg config.ServerConfig, querier Querier, refresher RefreshRunner, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		querier:   querier,
		refresher: refresher,
		logger:    logger.With().Str("component", "api").Logger(),
		router:    mux.NewRouter(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/health", s.health).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/attacks", s.listAttacks).Methods(http.MethodGet)
	v1.HandleFunc("/attacks/summary", s.summary).Methods(http.MethodGet)
	v1.HandleFunc("/attacks/timeline", s.timeline).Methods(http.MethodGet)
	v1.HandleFunc("/attacks/by-protocol", s.byProtocol).Methods(http.MethodGet)
	v1.HandleFunc("/attacks/by-type", s.byType).Methods(http.MethodGet)
	v1.HandleFunc("/attacks/top", s.topAttacks).Methods(http.MethodGet)
	v1.HandleFunc("/attacks/export", s.exportAttacks).Methods(http.MethodGet)
	v1.HandleFunc("/attacks/refresh", s.triggerRefresh).Methods(http.MethodPost)
	v1.HandleFunc("/attacks/refresh/status", s.refreshStatus).Methods(http.MethodGet)
}

// Handler returns the HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.loggingMiddleware(s.corsMiddleware(s.router))
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.ListenAddr).Msg("api server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	allowed := "*"
	if len(s.cfg.CORSOrigins) == 1 {
		allowed = s.cfg.CORSOrigins[0]
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := allowed
		if origin == "*" && len(s.cfg.CORSOrigins) > 0 {
			reqOrigin := r.Header.Get("Origin")
			for _, o := range s.cfg.CORSOrigins {
				if o == reqOrigin {
					origin = reqOrigin
					break
				}
			}
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Service-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request handled")
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, ErrorResponse{Error: message})
}
