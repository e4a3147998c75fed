package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/candleworks/candela/internal/service"
)

// DeletionHandler exposes reference-safe candle deletion endpoints.
type DeletionHandler struct {
	deletionService *service.DeletionService
	logger          zerolog.Logger
}

// NewDeletionHandler creates a new DeletionHandler.
func NewDeletionHandler(deletionService *service.DeletionService, logger zerolog.Logger) *DeletionHandler {
	return &DeletionHandler{
		deletionService: deletionService,
		logger:          logger.With().Str("handler", "deletion").Logger(),
	}
}

// DeleteCandle handles DELETE /candles/{id}. The cascade query
// parameter extends the delete to cart items, wishlist entries and
// reviews; order history always blocks with 409.
func (h *DeletionHandler) DeleteCandle(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid candle id")
		return
	}

	opts := service.DeleteOptions{CascadeDisposable: boolParam(r, "cascade")}
	if err := h.deletionService.Delete(r.Context(), id, opts); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// BatchDeleteCandles handles POST /candles/batch-delete. The response
// is always 200 with a per-id breakdown; blocked ids appear in failed
// rather than failing the whole request.
func (h *DeletionHandler) BatchDeleteCandles(w http.ResponseWriter, r *http.Request) {
	var req batchDeleteRequest
	if !readJSON(w, r, &req) {
		return
	}

	opts := service.DeleteOptions{CascadeDisposable: boolParam(r, "cascade")}
	output, err := h.deletionService.DeleteBatch(r.Context(), req.IDs, opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, output)
}

// GetReferences handles GET /candles/{id}/references. It reports every
// dependent row without changing anything.
func (h *DeletionHandler) GetReferences(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid candle id")
		return
	}

	audit, err := h.deletionService.Audit(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"candle_id":      audit.CandleID,
		"relations":      audit.Relations,
		"blocking":       audit.Blocking(),
		"has_references": audit.HasReferences(),
	})
}
