// Package web provides the HTTP surface for running report scripts on
// uploaded downloads.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/JonMunkholm/ibreport/internal/config"
	"github.com/JonMunkholm/ibreport/internal/report"
	"github.com/JonMunkholm/ibreport/internal/runlog"
	ibmiddleware "github.com/JonMunkholm/ibreport/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP server for report runs.
type Server struct {
	cfg      config.ServerConfig
	runner   *report.Runner
	recorder runlog.Recorder
	limiter  *report.Limiter
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a Server. The runner must record to recorder so that
// result files can be looked up by run ID.
func NewServer(cfg config.ServerConfig, runner *report.Runner, recorder runlog.Recorder, limiter *report.Limiter) *Server {
	s := &Server{
		cfg:      cfg,
		runner:   runner,
		recorder: recorder,
		limiter:  limiter,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(ibmiddleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(securityHeaders)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(ibmiddleware.APIKeyAuth(s.cfg.APIKeys))
		r.Get("/scripts", s.handleListScripts)
		r.Post("/run/{script}", s.handleRun)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Get("/runs/{id}/files/{name}", s.handleRunFile)
	})
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	slog.Info("starting server", "addr", ln.Addr().String())
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for running scripts. A
// Serve call that starts afterwards returns immediately.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.server.Shutdown(ctx)
	if s.limiter != nil {
		if drainErr := s.limiter.WaitForDrain(ctx); drainErr != nil && err == nil {
			err = drainErr
		}
	}
	return err
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// healthResponse reports liveness and run slot usage.
type healthResponse struct {
	Status string               `json:"status"`
	Time   time.Time            `json:"time"`
	Runs   *report.LimiterStatus `json:"runs,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Time: time.Now().UTC()}
	if s.limiter != nil {
		st := s.limiter.Status()
		resp.Runs = &st
	}
	writeJSON(w, http.StatusOK, resp)
}
