// Package web serves the launchpad and launch tables to browsers. Each table
// page opens a websocket that drives its own data source: the browser sends
// page, sort and filter changes and receives one message per emission.
package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/tfkr-ae/gantry"
)

const shutdownTimeout = 5 * time.Second

// Server is the dashboard HTTP handler.
type Server struct {
	app      *gantry.App
	logger   *slog.Logger
	router   *chi.Mux
	upgrader websocket.Upgrader
	pages    *template.Template
}

// New creates a dashboard for app.
func New(app *gantry.App, options ...func(*Server) error) (*Server, error) {
	if app == nil {
		return nil, errors.New("web server needs an app")
	}
	s := &Server{
		app:    app,
		logger: app.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		pages: pages,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	for _, option := range options {
		if err := option(s); err != nil {
			return nil, fmt.Errorf("applying web option : %w", err)
		}
	}
	s.router = s.routes()
	return s, nil
}

// WithLogger sets the request and session logger. A nil logger is ignored.
func WithLogger(logger *slog.Logger) func(*Server) error {
	return func(s *Server) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// WithCheckOrigin replaces the websocket origin check. The default only
// accepts same-host origins.
func WithCheckOrigin(check func(r *http.Request) bool) func(*Server) error {
	return func(s *Server) error {
		if check == nil {
			return errors.New("origin check cannot be nil")
		}
		s.upgrader.CheckOrigin = check
		return nil
	}
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/", s.handleHome)
	r.Get("/launchpads", s.handleLaunchpadsPage)
	r.Get("/launches", s.handleLaunchesPage)
	r.Get("/images", s.handleImages)
	r.Get("/stats", s.handleStats)
	r.Get("/healthz", s.handleHealth)

	r.Route("/ws", func(r chi.Router) {
		r.Get("/launchpads", s.handleLaunchpadSocket)
		r.Get("/launches", s.handleLaunchSocket)
	})
	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// logRequests logs one line per request once it completes.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// Serve answers requests on l until ctx is done, then shuts down gracefully.
// Open websocket sessions end with ctx.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		shutdownErr <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("dashboard listening", "addr", l.Addr().String())
	if err := srv.Serve(l); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving dashboard : %w", err)
	}
	if err := <-shutdownErr; err != nil {
		return fmt.Errorf("shutting down dashboard : %w", err)
	}
	return nil
}
