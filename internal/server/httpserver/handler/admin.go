package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/yndnr/securestore-go/internal/core/domain"
)

// DefaultAuditLimit is the number of audit records returned when the
// request does not set limit.
const DefaultAuditLimit = 100

// handleStats handles GET /admin/v1/stats.
func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.engine.Stats(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, st)
}

// handleCleanup handles POST /admin/v1/cleanup.
func (h *Handler) handleCleanup(w http.ResponseWriter, r *http.Request) {
	n, err := h.engine.CleanupExpired(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "cleanup triggered via API", "removed", n)
	h.writeJSON(w, r, http.StatusOK, CleanupResponse{
		Removed:     n,
		TriggeredAt: time.Now().UnixMilli(),
	})
}

// handleAudit handles GET /admin/v1/audit?limit=N.
func (h *Handler) handleAudit(w http.ResponseWriter, r *http.Request) {
	limit := DefaultAuditLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.writeError(w, r, http.StatusBadRequest, domain.ErrValidation.Code, "limit must be a positive integer", nil)
			return
		}
		limit = n
	}

	records := h.engine.RecentAudit(limit)
	if records == nil {
		records = []domain.AuditRecord{}
	}
	h.writeJSON(w, r, http.StatusOK, AuditResponse{Records: records, Count: len(records)})
}
