// Package worker provides the HTTP service for braindump.
package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/thebtf/braindump/internal/activity"
	"github.com/thebtf/braindump/internal/config"
	"github.com/thebtf/braindump/internal/notes"
	"github.com/thebtf/braindump/internal/search"
	"github.com/thebtf/braindump/internal/worker/sse"
)

// Pinger reports database liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options wires the service to its collaborators.
type Options struct {
	Config   *config.Config
	DB       Pinger
	Notes    *notes.Service
	Related  *search.Retriever
	Activity *activity.Tracker
	Events   *sse.Broadcaster
	Version  string
}

// Service is the HTTP front of the note pipeline.
type Service struct {
	startTime   time.Time
	config      *config.Config
	db          Pinger
	notes       *notes.Service
	related     *search.Retriever
	activity    *activity.Tracker
	events      *sse.Broadcaster
	validate    *validator.Validate
	registry    *prometheus.Registry
	metrics     *httpMetrics
	router      chi.Router
	server      *http.Server
	version     string
	ready       atomic.Bool
}

// NewService builds the router. Events may be nil, in which case /events is not served.
func NewService(opts Options) *Service {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Service{
		startTime: time.Now(),
		config:    cfg,
		db:        opts.DB,
		notes:     opts.Notes,
		related:   opts.Related,
		activity:  opts.Activity,
		events:    opts.Events,
		validate:  newValidator(),
		registry:  registry,
		metrics:   newHTTPMetrics(registry),
		version:   opts.Version,
	}
	s.setupRoutes()
	s.ready.Store(true)
	return s
}

// Handler returns the root HTTP handler.
func (s *Service) Handler() http.Handler {
	return s.router
}

func (s *Service) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	if s.events != nil {
		r.Get("/events", s.events.HandleSSE)
	}

	r.Route("/notes", func(r chi.Router) {
		r.Get("/", s.handleListNotes)
		r.Post("/", s.handleCreateNote)
		r.Post("/cluster", s.handleClusterNotes)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetNote)
			r.Put("/", s.handleUpdateNote)
			r.Delete("/", s.handleDeleteNote)
			r.Post("/complete", s.handleCompleteNote)
			r.Post("/uncomplete", s.handleUncompleteNote)
			r.Get("/related", s.handleRelatedNotes)
		})
	})

	r.Route("/user", func(r chi.Router) {
		r.Get("/stats/{id}", s.handleUserStats)
		r.Get("/activity/{id}", s.handleUserActivity)
		r.Get("/achievements/{id}", s.handleUserAchievements)
	})

	r.Post("/advice", s.handleAdvice)

	s.router = r
}

// Start serves HTTP on the configured port until Shutdown is called.
func (s *Service) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	if s.events != nil {
		s.server.RegisterOnShutdown(s.events.Close)
	}

	log.Info().Int("port", s.config.Port).Str("version", s.version).Msg("HTTP server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Service) Shutdown(ctx context.Context) error {
	s.ready.Store(false)
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
