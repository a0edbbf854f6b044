// Package server exposes search, info and convert over HTTP.
//
//	GET /s?q=keyword           search results keyed by series link
//	GET /f?s=seriesURL         series info
//	GET /c?s=series&f=1&l=3    convert chapters f..l and return the link
//	GET /healthz
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/brogergvhs/mangapdf/internal/pipeline"
	"github.com/brogergvhs/mangapdf/internal/providers"
	"github.com/brogergvhs/mangapdf/internal/ui"
)

// Converter runs one convert invocation.
type Converter interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

type Server struct {
	router     chi.Router
	httpServer *http.Server
	catalog    providers.Catalog
	converter  Converter
	log        *ui.Logger
	addr       string
}

func New(addr string, catalog providers.Catalog, conv Converter, log *ui.Logger) *Server {
	if log == nil {
		log = ui.NopLogger()
	}

	s := &Server{
		router:    chi.NewRouter(),
		catalog:   catalog,
		converter: conv,
		log:       log,
		addr:      addr,
	}

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(requestLogger(log))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	s.router.Get("/s", s.handleSearch)
	s.router.Get("/f", s.handleInfo)
	s.router.Get("/c", s.handleConvert)
	s.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	// no WriteTimeout: a convert request lasts as long as its downloads
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.log.Infof("listening on %s\n", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	s.log.Infof("shutting down\n")
	return s.httpServer.Shutdown(ctx)
}
