package handler

import (
	"encoding/json"
	"time"

	"github.com/yndnr/securestore-go/internal/core/domain"
)

// Response is the standard API response envelope.
// All JSON responses use this format (except /metrics which uses Prometheus format).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// PutEntryRequest is the request body for PUT /v1/entries/{classification}/{key}.
type PutEntryRequest struct {
	Value             json.RawMessage `json:"value"`
	ExpirationSeconds int64           `json:"expiration_seconds,omitempty"`
	RequireStrongAuth bool            `json:"require_strong_auth,omitempty"`
}

// EntryResponse is returned by entry reads and writes.
type EntryResponse struct {
	Key            string                `json:"key"`
	Classification domain.Classification `json:"classification"`
	Value          json.RawMessage       `json:"value,omitempty"`
}

// ExistsResponse is the response body for the exists probe.
type ExistsResponse struct {
	Key            string                `json:"key"`
	Classification domain.Classification `json:"classification"`
	Exists         bool                  `json:"exists"`
}

// CleanupResponse is the response body for POST /admin/v1/cleanup.
type CleanupResponse struct {
	Removed     int   `json:"removed"`
	TriggeredAt int64 `json:"triggered_at"`
}

// AuditResponse is the response body for GET /admin/v1/audit.
type AuditResponse struct {
	Records []domain.AuditRecord `json:"records"`
	Count   int                  `json:"count"`
}

// HealthResponse is the response body for /health and /ready.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
	Error  string `json:"error,omitempty"`
}
