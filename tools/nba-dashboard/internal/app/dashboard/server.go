// Package dashboard serves the JSON API behind the stats dashboard.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tyler180/nba-stats-backends/internal/league"
	"github.com/tyler180/nba-stats-backends/internal/metrics"
)

type Config struct {
	Logger   *slog.Logger
	Datasets *league.Datasets
	// AllowedOrigins for CORS; localhost only when empty.
	AllowedOrigins []string
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Datasets == nil {
		return errors.New("datasets are required")
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	return nil
}

type Server struct {
	log    *slog.Logger
	d      *league.Datasets
	router *chi.Mux
}

func NewServer(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("dashboard: invalid config: %w", err)
	}
	s := &Server{log: cfg.Logger, d: cfg.Datasets, router: chi.NewRouter()}
	s.setupRoutes(cfg.AllowedOrigins)
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRoutes(origins []string) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.countRequests)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/teams", s.handleTeams)
		r.Get("/teams/{id}/seasons/{season}", s.handleTeamSeason)
		r.Get("/teams/{id}/last/{n}", s.handleLastGames)
		r.Get("/teams/{id}/roster", s.handleRoster)
		r.Get("/players", s.handlePlayers)
		r.Get("/players/{name}/career", s.handleCareer)
		r.Get("/games/{id}/boxscore/{kind}", s.handleBoxScore)
	})
}

// countRequests labels requests with the matched route pattern.
func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.DashboardHTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	})
}

// ListenAndServe serves on addr until ctx is done, then drains for up to
// ten seconds.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      2 * time.Minute,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("dashboard: listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("dashboard: shutdown: %w", err)
	}
	return nil
}
