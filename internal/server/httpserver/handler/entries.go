package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/yndnr/securestore-go/internal/core/domain"
	"github.com/yndnr/securestore-go/internal/core/service"
)

// entryPath extracts the classification and key path values. Key format
// and the remaining input checks are left to the engine, which audits
// them; an unknown classification is audited through Reject.
func (h *Handler) entryPath(w http.ResponseWriter, r *http.Request, kind domain.Operation) (domain.Classification, string, bool) {
	key := r.PathValue("key")
	c, err := domain.ParseClassification(r.PathValue("classification"))
	if err != nil {
		h.handleServiceError(w, r, h.engine.Reject(kind, key, domain.Unclassified, err))
		return c, key, false
	}
	return c, key, true
}

// handlePutEntry handles PUT /v1/entries/{classification}/{key}.
func (h *Handler) handlePutEntry(w http.ResponseWriter, r *http.Request) {
	c, key, ok := h.entryPath(w, r, domain.OpStore)
	if !ok {
		return
	}

	var req PutEntryRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			_ = h.engine.Reject(domain.OpStore, key, c, domain.ErrBadRequest.WithDetails("request body too large"))
			h.writeError(w, r, http.StatusRequestEntityTooLarge, domain.ErrBadRequest.Code, "request body too large", nil)
			return
		}
		if errors.Is(err, io.EOF) {
			h.handleServiceError(w, r, h.engine.Reject(domain.OpStore, key, c, domain.ErrBadRequest.WithDetails("request body is required")))
			return
		}
		h.handleServiceError(w, r, h.engine.Reject(domain.OpStore, key, c, domain.ErrBadRequest.WithDetails("invalid request body")))
		return
	}
	if len(req.Value) == 0 {
		h.handleServiceError(w, r, h.engine.Reject(domain.OpStore, key, c, domain.ErrValidation.WithDetails("value is required")))
		return
	}

	opts := service.StoreOptions{
		Expiration:        time.Duration(req.ExpirationSeconds) * time.Second,
		RequireStrongAuth: req.RequireStrongAuth,
	}
	if err := h.engine.Store(r.Context(), key, req.Value, c, opts); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, EntryResponse{Key: key, Classification: c})
}

// handleGetEntry handles GET /v1/entries/{classification}/{key}.
func (h *Handler) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	c, key, ok := h.entryPath(w, r, domain.OpRetrieve)
	if !ok {
		return
	}

	var value json.RawMessage
	found, err := h.engine.Retrieve(r.Context(), key, c, &value)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if !found {
		h.handleServiceError(w, r, domain.ErrEntryNotFound)
		return
	}

	h.writeJSON(w, r, http.StatusOK, EntryResponse{Key: key, Classification: c, Value: value})
}

// handleDeleteEntry handles DELETE /v1/entries/{classification}/{key}.
func (h *Handler) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	c, key, ok := h.entryPath(w, r, domain.OpDelete)
	if !ok {
		return
	}

	if err := h.engine.Delete(r.Context(), key, c); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, EntryResponse{Key: key, Classification: c})
}

// handleEntryExists handles GET /v1/entries/{classification}/{key}/exists.
func (h *Handler) handleEntryExists(w http.ResponseWriter, r *http.Request) {
	c, key, ok := h.entryPath(w, r, domain.OpExists)
	if !ok {
		return
	}

	ok, err := h.engine.Exists(r.Context(), key, c)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, ExistsResponse{Key: key, Classification: c, Exists: ok})
}
