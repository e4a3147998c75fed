package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/candleworks/candela/internal/domain"
	"github.com/candleworks/candela/internal/service"
)

// maxImageSize limits uploaded image content.
const maxImageSize = 10 << 20 // 10MB

// CatalogHandler exposes candle, category and image endpoints.
type CatalogHandler struct {
	catalogService *service.CatalogService
	logger         zerolog.Logger
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalogService *service.CatalogService, logger zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		logger:         logger.With().Str("handler", "catalog").Logger(),
	}
}

// =============================================================================
// Request/Response Types
// =============================================================================

type createCandleRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	Price         string `json:"price"`
	StockQuantity int    `json:"stock_quantity"`
	WeightGrams   int    `json:"weight_grams,omitempty"`
	BurnTimeHours int    `json:"burn_time_hours,omitempty"`
	Color         string `json:"color,omitempty"`
	Scent         string `json:"scent,omitempty"`
	Material      string `json:"material,omitempty"`
	CategoryID    int64  `json:"category_id,omitempty"`
}

type updateCandleRequest struct {
	Name          *string `json:"name,omitempty"`
	Description   *string `json:"description,omitempty"`
	Price         *string `json:"price,omitempty"`
	StockQuantity *int    `json:"stock_quantity,omitempty"`
	WeightGrams   *int    `json:"weight_grams,omitempty"`
	BurnTimeHours *int    `json:"burn_time_hours,omitempty"`
	Color         *string `json:"color,omitempty"`
	Scent         *string `json:"scent,omitempty"`
	Material      *string `json:"material,omitempty"`
	CategoryID    *int64  `json:"category_id,omitempty"`
}

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type batchDeleteRequest struct {
	IDs []int64 `json:"ids"`
}

// =============================================================================
// Candles
// =============================================================================

// CreateCandle handles POST /candles.
func (h *CatalogHandler) CreateCandle(w http.ResponseWriter, r *http.Request) {
	var req createCandleRequest
	if !readJSON(w, r, &req) {
		return
	}

	candle, err := h.catalogService.CreateCandle(r.Context(), service.CreateCandleInput{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
		WeightGrams:   req.WeightGrams,
		BurnTimeHours: req.BurnTimeHours,
		Color:         req.Color,
		Scent:         req.Scent,
		Material:      req.Material,
		CategoryID:    req.CategoryID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, candle)
}

// GetCandle handles GET /candles/{id}.
func (h *CatalogHandler) GetCandle(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid candle id")
		return
	}

	candle, err := h.catalogService.GetCandle(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, candle)
}

// ListCandles handles GET /candles.
func (h *CatalogHandler) ListCandles(w http.ResponseWriter, r *http.Request) {
	offset, limit := paginationParams(r)

	output, err := h.catalogService.ListCandles(r.Context(), service.ListCandlesInput{
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	candles := output.Candles
	if candles == nil {
		candles = []*domain.Candle{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"candles": candles,
		"total":   output.Total,
	})
}

// UpdateCandle handles PUT /candles/{id}.
func (h *CatalogHandler) UpdateCandle(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid candle id")
		return
	}

	var req updateCandleRequest
	if !readJSON(w, r, &req) {
		return
	}

	candle, err := h.catalogService.UpdateCandle(r.Context(), service.UpdateCandleInput{
		ID:            id,
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
		WeightGrams:   req.WeightGrams,
		BurnTimeHours: req.BurnTimeHours,
		Color:         req.Color,
		Scent:         req.Scent,
		Material:      req.Material,
		CategoryID:    req.CategoryID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, candle)
}

// =============================================================================
// Categories
// =============================================================================

// CreateCategory handles POST /categories.
func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !readJSON(w, r, &req) {
		return
	}

	category, err := h.catalogService.CreateCategory(r.Context(), req.Name, req.Description)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, category)
}

// GetCategory handles GET /categories/{id}.
func (h *CatalogHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	category, err := h.catalogService.GetCategory(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, category)
}

// ListCategories handles GET /categories.
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalogService.ListCategories(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if categories == nil {
		categories = []*domain.Category{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

// ListTags handles GET /tags.
func (h *CatalogHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.catalogService.ListTags(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if tags == nil {
		tags = []*domain.Tag{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

// UpdateCategory handles PUT /categories/{id}.
func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	var req categoryRequest
	if !readJSON(w, r, &req) {
		return
	}

	category, err := h.catalogService.UpdateCategory(r.Context(), id, req.Name, req.Description)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, category)
}

// DeleteCategory handles DELETE /categories/{id}. Candles in the
// category survive and become uncategorized.
func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	if err := h.catalogService.DeleteCategory(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Images
// =============================================================================

// UploadImage handles POST /candles/{id}/images. The body is the raw
// image content; metadata comes from headers and query parameters.
func (h *CatalogHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid candle id")
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		writeError(w, http.StatusBadRequest, "Content-Type is required")
		return
	}
	if r.ContentLength <= 0 {
		writeError(w, http.StatusBadRequest, "Content-Length is required")
		return
	}
	if r.ContentLength > maxImageSize {
		writeError(w, http.StatusRequestEntityTooLarge, "image too large")
		return
	}

	img, err := h.catalogService.UploadImage(r.Context(), service.UploadImageInput{
		CandleID:    id,
		Content:     http.MaxBytesReader(w, r.Body, maxImageSize),
		Size:        r.ContentLength,
		ContentType: contentType,
		AltText:     r.URL.Query().Get("alt"),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, img)
}

// ListImages handles GET /candles/{id}/images.
func (h *CatalogHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid candle id")
		return
	}

	images, err := h.catalogService.ListImages(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if images == nil {
		images = []*domain.CandleImage{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"images": images})
}
