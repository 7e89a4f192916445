// Package hostserver exposes the app over HTTP so that a native shell, a test
// harness or the CLI can deliver intents, lifecycle events and bridge calls.
package hostserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/illmade-knight/share-receiver/app"
	"github.com/illmade-knight/share-receiver/pkg/activity"
	"github.com/illmade-knight/share-receiver/pkg/bridge"
	"github.com/illmade-knight/share-receiver/pkg/looper"
	"github.com/illmade-knight/share-receiver/pkg/sharing"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// Shell is the part of app.App served over HTTP.
type Shell interface {
	DeliverToPrimary(ctx context.Context, intent sharing.Intent) (app.PrimaryStatus, error)
	Capture(ctx context.Context, variant activity.Variant, intent sharing.Intent) (app.CaptureResult, error)
	Resume(ctx context.Context) (app.PrimaryStatus, error)
	Status(ctx context.Context) (app.PrimaryStatus, error)
	Invoke(ctx context.Context, channel string, call bridge.MethodCall) (any, error)
}

// RequestRecorder observes served requests.
type RequestRecorder interface {
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
}

// Options configures optional server features.
type Options struct {
	MetricsHandler http.Handler
	Recorder       RequestRecorder
}

// MethodResult wraps a bridge call's return value.
type MethodResult struct {
	Result any `json:"result"`
}

// ErrorResponse is written for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server routes HTTP requests to a Shell.
type Server struct {
	shell  Shell
	opts   Options
	router *mux.Router
	logger zerolog.Logger
}

// New creates a server and registers its routes.
func New(shell Shell, opts Options, logger zerolog.Logger) *Server {
	s := &Server{
		shell:  shell,
		opts:   opts,
		router: mux.NewRouter(),
		logger: logger.With().Str("component", "host-server").Logger(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(s.logging)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/intents/primary", s.handleDeliverToPrimary).Methods(http.MethodPost)
	s.router.HandleFunc("/intents/capture", s.handleCapture).Methods(http.MethodPost)
	s.router.HandleFunc("/lifecycle/resume", s.handleResume).Methods(http.MethodPost)
	s.router.HandleFunc("/channels/{channel:.+}/methods/{method}", s.handleInvoke).Methods(http.MethodPost)
	if s.opts.MetricsHandler != nil {
		s.router.Handle("/metrics", s.opts.MetricsHandler).Methods(http.MethodGet)
	}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("Host server listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("host server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info().Msg("Shutting down host server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down host server: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.shell.Status(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleDeliverToPrimary(w http.ResponseWriter, r *http.Request) {
	intent, ok := s.decodeIntent(w, r)
	if !ok {
		return
	}
	status, err := s.shell.DeliverToPrimary(r.Context(), intent)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	intent, ok := s.decodeIntent(w, r)
	if !ok {
		return
	}
	variant := activity.Variant(r.URL.Query().Get("variant"))
	result, err := s.shell.Capture(r.Context(), variant, intent)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	status, err := s.shell.Resume(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	args, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "failed to read arguments"})
		return
	}
	call := bridge.MethodCall{Method: vars["method"]}
	if len(args) > 0 {
		if !json.Valid(args) {
			s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "arguments must be JSON"})
			return
		}
		call.Arguments = args
	}

	result, err := s.shell.Invoke(r.Context(), vars["channel"], call)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, MethodResult{Result: result})
}

func (s *Server) decodeIntent(w http.ResponseWriter, r *http.Request) (sharing.Intent, bool) {
	var intent sharing.Intent
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&intent); err != nil {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid intent: %v", err)})
		return sharing.Intent{}, false
	}
	return intent, true
}

// statusFor maps app and bridge errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, bridge.ErrNotImplemented):
		return http.StatusNotImplemented
	case errors.Is(err, app.ErrUnknownChannel):
		return http.StatusNotFound
	case errors.Is(err, app.ErrNoPrimary):
		return http.StatusConflict
	case errors.Is(err, app.ErrUnknownVariant):
		return http.StatusBadRequest
	case errors.Is(err, looper.ErrQuit):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Int("status", status).Msg("Request failed")
	} else {
		s.logger.Debug().Err(err).Int("status", status).Msg("Request rejected")
	}
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		elapsed := time.Since(start)
		s.logger.Debug().Str("method", r.Method).Str("route", route).Int("status", sw.status).Dur("elapsed", elapsed).Msg("Request served")
		if s.opts.Recorder != nil {
			s.opts.Recorder.RecordHTTPRequest(r.Method, route, sw.status, elapsed)
		}
	})
}
