package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sloppy/tychostore/internal/db"
)

// Server wires the web handlers and dependencies.
type Server struct {
	DB     *db.DB
	Logger *log.Logger
	Router chi.Router
}

// NewServer constructs the router and registers routes.
func NewServer(database *db.DB, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	server := &Server{DB: database, Logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(server.requestLogger)

	r.Get("/", server.handleRoot)
	r.Get("/chains", server.handleChainsPage)
	r.Get("/chains/{chain}", server.handleContractsPage)
	r.Get("/chains/{chain}/contracts/{address}", server.handleContractPage)

	r.Route("/api", func(r chi.Router) {
		r.Get("/chains", server.apiListChains)
		r.Route("/chains/{chain}", func(r chi.Router) {
			r.Get("/contracts", server.apiListContracts)
			r.Get("/contracts/{address}", server.apiGetContract)
			r.Get("/contracts/{address}/slots/{slot}", server.apiSlotHistory)
			r.Get("/blocks/{ref}", server.apiGetBlock)
			r.Get("/delta", server.apiGetDelta)
			r.Get("/tokens", server.apiListTokens)
			r.Get("/components", server.apiListComponents)
			r.Get("/components/{id}/state", server.apiGetComponentState)
		})
		r.Get("/runs", server.apiListRuns)
	})

	server.Router = r
	return server
}

// Handler exposes the configured router.
func (s *Server) Handler() http.Handler {
	return s.Router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		keyvals := []any{"method", r.Method, "path", r.URL.Path, "status", status, "duration", time.Since(start)}
		if status >= http.StatusInternalServerError {
			s.Logger.Error("request", keyvals...)
			return
		}
		s.Logger.Debug("request", keyvals...)
	})
}
