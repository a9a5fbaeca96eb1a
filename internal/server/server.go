// Package server provides the HTTP API for mulefind.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/mulefind/internal/config"
	"github.com/hyperjump/mulefind/internal/metrics"
	"github.com/hyperjump/mulefind/internal/search"
	"github.com/hyperjump/mulefind/internal/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// LibraryService manages the shared directories at runtime. Optional; when nil the library
// endpoints answer 501.
type LibraryService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the mulefind API.
type Server struct {
	engine     *search.Engine
	store      storage.KnownStore
	config     *config.Config
	configPath string
	configMu   sync.Mutex
	library    LibraryService
	logger     *zap.Logger
	server     *http.Server
}

// NewServer creates a server with the given dependencies. configPath, when set, is where
// shared directory changes are persisted.
func NewServer(
	engine *search.Engine,
	store storage.KnownStore,
	cfg *config.Config,
	logger *zap.Logger,
	library LibraryService,
	configPath string,
) *Server {
	return &Server{
		engine:     engine,
		store:      store,
		config:     cfg,
		configPath: configPath,
		library:    library,
		logger:     logger,
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())
	if s.config.Debug {
		r.Use(middleware.Logger)
	}

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Daemon searches can take as long as the daemon timeout.
		r.Use(middleware.Timeout(s.config.Daemon.Timeout + 30*time.Second))
		r.Use(middleware.Compress(5))

		r.Post("/search", s.handleSearch)
		r.Post("/match", s.handleMatch)
		r.Post("/parse", s.handleParse)
		r.Get("/known", s.handleKnown)
		r.Get("/status", s.handleStatus)
		r.Get("/library/directories", s.handleLibraryDirectoriesList)
		r.Post("/library/directories", s.handleLibraryDirectoriesAdd)
		r.Delete("/library/directories", s.handleLibraryDirectoriesRemove)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
