// Package api serves the catalogue, object and night queries over HTTP.
package api

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/yetanothergithubaccount/ObsPi/internal/auth"
	"github.com/yetanothergithubaccount/ObsPi/internal/cache"
	"github.com/yetanothergithubaccount/ObsPi/internal/catalogue"
	"github.com/yetanothergithubaccount/ObsPi/internal/health"
	"github.com/yetanothergithubaccount/ObsPi/internal/metrics"
	"github.com/yetanothergithubaccount/ObsPi/internal/resolver"
	"github.com/yetanothergithubaccount/ObsPi/internal/stream"
	"github.com/yetanothergithubaccount/ObsPi/internal/twilight"
	"github.com/yetanothergithubaccount/ObsPi/internal/visibility"
)

// Catalogues gives access to dated catalogues.
type Catalogues interface {
	Get(date time.Time) (*catalogue.Catalogue, error)
	Compute(ctx context.Context, date time.Time) (*catalogue.Catalogue, catalogue.Report, error)
	Today() time.Time
	Stats() cache.Stats
}

// Objects scores single objects.
type Objects interface {
	EvaluateObject(ctx context.Context, name string, date time.Time) (catalogue.Record, visibility.Result, error)
}

// Describer looks up object metadata.
type Describer interface {
	Info(ctx context.Context, name string) (resolver.ObjectInfo, error)
}

// Nights computes sun and moon times for a date.
type Nights interface {
	Night(date time.Time) (twilight.NightInfo, error)
}

// Deps are the services behind the routes. Describer, Stream and Static
// may be nil; their routes are then not registered.
type Deps struct {
	Catalogues Catalogues
	Objects    Objects
	Describer  Describer
	Nights     Nights
	Stream     *stream.Handler
	Static     fs.FS
	Ready      []health.Check

	// RunStarted, when set, is called before a POST request answers 202 for
	// a new catalogue run.
	RunStarted func(date string)

	// BaseContext bounds catalogue runs started by POST requests. Defaults
	// to context.Background().
	BaseContext context.Context
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	deps       Deps
	logger     *slog.Logger

	running sync.Map // date string -> struct{}
	wg      sync.WaitGroup
}

// NewServer creates a configured HTTP server.
func NewServer(addr string, logger *slog.Logger, authCfg auth.Config, deps Deps) *Server {
	if deps.BaseContext == nil {
		deps.BaseContext = context.Background()
	}
	s := &Server{deps: deps, logger: logger}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(deps.Ready...))
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/v1/catalogue/{date}", s.handleCatalogue)
	mux.HandleFunc("POST /api/v1/catalogue/{date}", s.handleTrigger)
	mux.HandleFunc("GET /api/v1/catalogue/{date}/best/{direction}/{min_altitude}", s.handleBest)
	mux.HandleFunc("GET /api/v1/tonight/best/{direction}/{min_altitude}", s.handleTonight)
	mux.HandleFunc("GET /api/v1/objects/{name}", s.handleObject)
	mux.HandleFunc("GET /api/v1/night/{date}", s.handleNight)
	mux.HandleFunc("GET /api/v1/cache/stats", s.handleCacheStats)
	if deps.Stream != nil {
		mux.HandleFunc("GET /api/v1/catalogue/{date}/events", deps.Stream.HandleRun)
	}
	mux.HandleFunc("GET /api/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "no such route")
	})
	if deps.Static != nil {
		mux.Handle("GET /", http.FileServerFS(deps.Static))
	}

	// Outermost first: metrics, access log, auth.
	handler := metrics.Middleware(accessLog(logger, auth.Middleware(authCfg)(mux)))

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Handler returns the root handler including middleware.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting requests, then waits for catalogue runs started
// by POST requests.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.Wait()
	return err
}

// Wait blocks until catalogue runs started by POST requests have finished.
func (s *Server) Wait() {
	s.wg.Wait()
}
