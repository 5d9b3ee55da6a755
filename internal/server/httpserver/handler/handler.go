package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/yndnr/securestore-go/internal/core/domain"
	"github.com/yndnr/securestore-go/internal/core/service"
	"github.com/yndnr/securestore-go/internal/telemetry/logger"
)

// Engine is the subset of the storage engine the API exposes.
// *service.StorageService satisfies it.
type Engine interface {
	Store(ctx context.Context, key string, value any, c domain.Classification, opts service.StoreOptions) error
	Retrieve(ctx context.Context, key string, c domain.Classification, target any) (bool, error)
	Delete(ctx context.Context, key string, c domain.Classification) error
	Exists(ctx context.Context, key string, c domain.Classification) (bool, error)
	CleanupExpired(ctx context.Context) (int, error)
	Stats(ctx context.Context) (service.Stats, error)
	RecentAudit(n int) []domain.AuditRecord

	// Reject audits a request refused before any engine operation ran.
	Reject(kind domain.Operation, key string, c domain.Classification, err error) error
}

// ReadyFunc reports whether the server can take traffic.
type ReadyFunc func(ctx context.Context) error

// Handler serves the SecureStore HTTP API.
type Handler struct {
	engine Engine
	ready  ReadyFunc
	logger *slog.Logger
	mux    *http.ServeMux
}

// New creates a Handler for engine. ready may be nil.
func New(engine Engine, ready ReadyFunc, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	h := &Handler{
		engine: engine,
		ready:  ready,
		logger: log,
		mux:    http.NewServeMux(),
	}

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// Routes lists the patterns the handler serves, grouped by access class.
var (
	HealthRoutes = []string{
		"GET /health",
		"GET /ready",
	}

	EntryRoutes = []string{
		"PUT /v1/entries/{classification}/{key}",
		"GET /v1/entries/{classification}/{key}",
		"DELETE /v1/entries/{classification}/{key}",
		"GET /v1/entries/{classification}/{key}/exists",
	}

	AdminRoutes = []string{
		"GET /admin/v1/stats",
		"POST /admin/v1/cleanup",
		"GET /admin/v1/audit",
	}
)

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)

	h.mux.HandleFunc("PUT /v1/entries/{classification}/{key}", h.handlePutEntry)
	h.mux.HandleFunc("GET /v1/entries/{classification}/{key}", h.handleGetEntry)
	h.mux.HandleFunc("DELETE /v1/entries/{classification}/{key}", h.handleDeleteEntry)
	h.mux.HandleFunc("GET /v1/entries/{classification}/{key}/exists", h.handleEntryExists)

	h.mux.HandleFunc("GET /admin/v1/stats", h.handleStats)
	h.mux.HandleFunc("POST /admin/v1/cleanup", h.handleCleanup)
	h.mux.HandleFunc("GET /admin/v1/audit", h.handleAudit)
}

// writeJSON writes a JSON response with the standard envelope.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := logger.RequestIDFromContext(r.Context())
	response := NewResponse(requestID, data)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response with the standard envelope.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	WriteError(w, logger.RequestIDFromContext(r.Context()), status, code, message, details)
}

// WriteError writes an error envelope. Middleware uses it for responses
// produced before a handler runs.
func WriteError(w http.ResponseWriter, requestID string, status int, code, message string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(NewErrorResponse(requestID, code, message, details))
}

// handleServiceError converts engine errors to HTTP responses. Causes are
// logged, never returned to the client.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var details map[string]string
	var se *domain.StorageError
	if errors.As(err, &se) {
		details = map[string]string{
			"operation": string(se.Op),
			"stage":     string(se.Stage),
		}
	}

	var de *domain.DomainError
	if !errors.As(err, &de) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			h.writeError(w, r, http.StatusServiceUnavailable, domain.ErrInternal.Code, "request cancelled", details)
			return
		}
		h.logger.ErrorContext(r.Context(), "internal error", "error", err)
		h.writeError(w, r, http.StatusInternalServerError, domain.ErrInternal.Code, "internal server error", details)
		return
	}

	status := ErrorStatus(de.Code)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed", "error", err)
	}
	message := de.Message
	if de.Details != "" {
		message += ": " + de.Details
	}
	h.writeError(w, r, status, de.Code, message, details)
}

// ErrorStatus maps a domain error code to an HTTP status.
func ErrorStatus(code string) int {
	switch code {
	case domain.ErrValidation.Code,
		domain.ErrKeyFormat.Code,
		domain.ErrSerialization.Code,
		domain.ErrInvalidClassification.Code,
		domain.ErrBadRequest.Code:
		return http.StatusBadRequest
	case domain.ErrUnauthorized.Code:
		return http.StatusUnauthorized
	case domain.ErrEntryNotFound.Code:
		return http.StatusNotFound
	case domain.ErrEnvelopeMalformed.Code, domain.ErrIntegrity.Code:
		return http.StatusUnprocessableEntity
	case domain.ErrRateLimited.Code:
		return http.StatusTooManyRequests
	case domain.ErrStorageBackend.Code:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
