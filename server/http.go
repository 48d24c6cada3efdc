// Package server exposes the gateway over HTTP: a form-post execute
// endpoint plus config, history and health, the surface the web client of
// the original deployment talks to.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mcp-noble/shellgate/pkg/gate"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 5 * time.Second

// executeResponse mirrors the JSON shape the original API served.
type executeResponse struct {
	Success  bool   `json:"success"`
	Command  string `json:"command"`
	Output   string `json:"output"`
	Error    string `json:"error"`
	ExitCode int    `json:"exit_code"`
	TimedOut bool   `json:"timed_out,omitempty"`
}

// HTTPServer adapts the gateway pipeline to HTTP.
type HTTPServer struct {
	gateway *gate.Gateway
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New builds the HTTP adapter. ratePerMinute caps execute requests; <= 0
// disables limiting.
func New(gateway *gate.Gateway, ratePerMinute int, logger *slog.Logger) *HTTPServer {
	s := &HTTPServer{gateway: gateway, logger: logger}
	if ratePerMinute > 0 {
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(ratePerMinute)), ratePerMinute)
	}
	return s
}

// Handler returns the route table wrapped with panic recovery.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/execute", s.handleExecute)
	mux.HandleFunc("GET /api/config", s.handleConfig)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/system", s.handleSystem)
	mux.HandleFunc("GET /health", s.handleHealth)
	return s.recoverer(mux)
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *HTTPServer) Start(ctx context.Context, addr string) error {
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
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *HTTPServer) handleExecute(w http.ResponseWriter, r *http.Request) {
	if s.limiter != nil && !s.limiter.Allow() {
		s.writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		return
	}

	if err := r.ParseForm(); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid form body"})
		return
	}
	command := r.PostFormValue("command")

	resp := s.gateway.RunShellCommand(r.Context(), command)
	switch {
	case resp.Denied:
		status := http.StatusForbidden
		if strings.TrimSpace(command) == "" {
			status = http.StatusBadRequest
		}
		s.writeJSON(w, status, executeResponse{
			Success:  false,
			Command:  command,
			Error:    resp.Text,
			ExitCode: -1,
		})
	case resp.Err:
		s.writeJSON(w, http.StatusInternalServerError, executeResponse{
			Success:  false,
			Command:  resp.Command,
			Error:    resp.Text,
			ExitCode: -1,
		})
	default:
		s.writeJSON(w, http.StatusOK, executeResponse{
			Success:  true,
			Command:  resp.Command,
			Output:   resp.Result.Stdout,
			Error:    resp.Result.Stderr,
			ExitCode: resp.Result.ExitCode,
			TimedOut: resp.Result.TimedOut,
		})
	}
}

func (s *HTTPServer) handleConfig(w http.ResponseWriter, _ *http.Request) {
	registry := s.gateway.Registry()
	cfg := s.gateway.Config()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"allowed_commands":        registry.Commands(),
		"count":                   registry.Len(),
		"unrestricted":            registry.Unrestricted(),
		"command_timeout_seconds": cfg.CommandTimeoutSeconds,
	})
}

func (s *HTTPServer) handleHistory(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.gateway.History().Entries())
}

func (s *HTTPServer) handleSystem(w http.ResponseWriter, r *http.Request) {
	resp := s.gateway.SystemInfo(r.Context())
	s.writeJSON(w, http.StatusOK, map[string]string{"report": resp.Text})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "server": "shellgate"})
}

// recoverer converts a handler panic into a 500 so one bad request cannot
// kill the serving process.
func (s *HTTPServer) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if s.logger != nil {
					s.logger.Error("request_panic", "path", r.URL.Path, "panic", fmt.Sprint(rec))
				}
				s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil && s.logger != nil {
		s.logger.Error("write_response_failed", "error", err)
	}
}
