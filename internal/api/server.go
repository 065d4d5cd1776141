// Package api provides the REST API for roster analysis.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"roster_parser/internal/classifier"
	"roster_parser/internal/logger"
	"roster_parser/internal/storage"
)

// MaxBodyBytes limits request bodies.
const MaxBodyBytes = 2 << 20

// Server serves analysis requests and, when an archive is configured, the
// archived runs.
type Server struct {
	store       storage.Store
	facts       storage.FactSink
	thresholds  classifier.CommuteThresholds
	port        int
	authEnabled bool
	apiKeys     map[string]bool
}

// Config holds configuration for the API server.
type Config struct {
	Port        int
	AuthEnabled bool
	APIKeys     []string // List of valid API keys.

	// Thresholds are used when a request does not set front/back.
	Thresholds classifier.CommuteThresholds

	// Facts, when set, receives trip facts for every archived run.
	Facts storage.FactSink
}

// NewServer creates an API server. store may be nil, in which case
// analyses are not archived and the runs endpoints are not mounted.
func NewServer(store storage.Store, cfg Config) *Server {
	keys := make(map[string]bool)
	for _, k := range cfg.APIKeys {
		if k != "" {
			keys[k] = true
		}
	}
	if cfg.Thresholds == (classifier.CommuteThresholds{}) {
		cfg.Thresholds = classifier.DefaultThresholds()
	}

	return &Server{
		store:       store,
		facts:       cfg.Facts,
		thresholds:  cfg.Thresholds,
		port:        cfg.Port,
		authEnabled: cfg.AuthEnabled,
		apiKeys:     keys,
	}
}

// Handler returns the full HTTP handler with standard middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	}))

	r.Mount("/api/v1", s.Router())
	return r
}

// Router returns the API routes without the outer middleware, for
// embedding in other servers.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	// Health check needs no key.
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.authEnabled {
			r.Use(s.authMiddleware)
		}
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/analyze/batch", s.handleBatch)
		r.Post("/calendar", s.handleCalendar)
		r.Post("/coverage", s.handleCoverage)

		if s.store != nil {
			r.Get("/runs", s.handleListRuns)
			r.Get("/runs/{id}", s.handleGetRun)
		}
	})

	return r
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("roster API starting", "addr", "http://localhost"+srv.Addr)
	if s.authEnabled {
		logger.Info("authentication enabled", "keys", len(s.apiKeys))
	} else {
		logger.Info("authentication disabled (open access)")
	}
	logger.Info("run archive", "enabled", s.store != nil, "trip_facts", s.facts != nil)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// authMiddleware validates API key authentication.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get("X-API-Key")

		if apiKey == "" {
			auth := r.Header.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				apiKey = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		// Query parameter, for simple testing.
		if apiKey == "" {
			apiKey = r.URL.Query().Get("api_key")
		}

		if apiKey == "" {
			writeError(w, http.StatusUnauthorized, "API key required")
			return
		}

		if !s.apiKeys[apiKey] {
			writeError(w, http.StatusForbidden, "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}
