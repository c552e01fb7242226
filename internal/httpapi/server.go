// Package httpapi exposes the mirror's query surface over HTTP: point
// lookups, predicate queries, and status, all read-only. Resolution
// depth is a per-request parameter.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/spacecache/spacecache/internal/space"
)

// Read/write timeouts for the HTTP server.
const (
	readTimeout  = 15 * time.Second
	writeTimeout = 15 * time.Second
	idleTimeout  = 60 * time.Second
)

// maxResolveDepth caps per-request resolution so a crafted query cannot
// turn one request into an unbounded number of store lookups.
const maxResolveDepth = 10

// Server serves the read-only query API over an Engine.
type Server struct {
	engine *space.Engine
	logger *slog.Logger
}

// NewServer creates a Server.
func NewServer(engine *space.Engine, logger *slog.Logger) *Server {
	return &Server{engine: engine, logger: logger}
}

// Routes assembles the chi router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/documents", s.handleListDocuments)
		r.Get("/documents/{id}", s.handleGetDocument)
	})

	return r
}

// ListenAndServe runs the server until the context is canceled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Routes(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	errc := make(chan error, 1)

	go func() {
		errc <- srv.ListenAndServe()
	}()

	s.logger.Info("http api listening", slog.String("addr", addr))

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	}
}
