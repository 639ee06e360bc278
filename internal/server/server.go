// Package server exposes the contract QA service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	apperrors "contract-qa/internal/common/errors"
	"contract-qa/internal/common/logger"
	"contract-qa/internal/contractqa"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxUploadBytes bounds a whole multipart ingest request.
const maxUploadBytes = 256 << 20

type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	config  Config
	service *contractqa.Service
	logger  logger.Logger
	http    *http.Server
}

func New(cfg Config, service *contractqa.Service, log logger.Logger) *Server {
	s := &Server{
		config:  cfg,
		service: service,
		logger:  log.With(map[string]interface{}{"component": "http"}),
	}
	s.http = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/sessions/{id}/turns", s.handleTurn)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("GET /api/sessions/{id}/export", s.handleExport)
	mux.HandleFunc("POST /api/ingest", s.handleIngest)
	mux.HandleFunc("POST /api/rebuild", s.handleRebuild)
	mux.HandleFunc("POST /api/quick-actions/{action}", s.handleQuickAction)
	mux.HandleFunc("POST /api/summarize-all", s.handleSummarizeAll)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/prompts", s.handlePrompts)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s.logRequests(mux)
}

// ListenAndServe blocks until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", map[string]interface{}{"address": s.config.Address})
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down http server", nil)
	return s.http.Shutdown(shutdownCtx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			return
		}
		s.logger.Info("request", map[string]interface{}{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error *apperrors.StandardError `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	stdErr, ok := apperrors.AsStandard(err)
	if !ok {
		stdErr = &apperrors.StandardError{
			Code:    apperrors.ErrCodeInternal,
			Message: "Internal error",
			Details: err.Error(),
		}
	}
	status := statusFor(stdErr.Code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", map[string]interface{}{
			"code":  string(stdErr.Code),
			"error": err.Error(),
		})
	}
	writeJSON(w, status, errorBody{Error: stdErr})
}

func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeInvalidRequest, apperrors.ErrCodeUnsupportedFormat:
		return http.StatusBadRequest
	case apperrors.ErrCodeSessionNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case apperrors.ErrCodeStoreNotReady:
		return http.StatusConflict
	case apperrors.ErrCodeSearchTimeout, apperrors.ErrCodeLLMTimeout:
		return http.StatusGatewayTimeout
	case apperrors.ErrCodeSessionStoreFailed, apperrors.ErrCodeArchiveFailed:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
