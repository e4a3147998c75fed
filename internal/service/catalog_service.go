package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/candleworks/candela/internal/domain"
	"github.com/candleworks/candela/internal/repository"
	"github.com/candleworks/candela/internal/storage"
)

// priceRE matches a non-negative decimal amount with at most two
// fractional digits, e.g. "24.90".
var priceRE = regexp.MustCompile(`^\d{1,8}(\.\d{1,2})?$`)

// CatalogService handles candles, categories and candle media.
type CatalogService struct {
	candleRepo   repository.CandleRepository
	categoryRepo repository.CategoryRepository
	media        storage.Backend
	logger       zerolog.Logger
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(
	candleRepo repository.CandleRepository,
	categoryRepo repository.CategoryRepository,
	media storage.Backend,
	logger zerolog.Logger,
) *CatalogService {
	return &CatalogService{
		candleRepo:   candleRepo,
		categoryRepo: categoryRepo,
		media:        media,
		logger:       logger.With().Str("service", "catalog").Logger(),
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// CreateCandleInput contains the data needed to create a candle.
type CreateCandleInput struct {
	Name          string
	Description   string
	Price         string
	StockQuantity int
	WeightGrams   int
	BurnTimeHours int
	Color         string
	Scent         string
	Material      string
	CategoryID    int64
}

// UpdateCandleInput contains the candle fields that may change.
// Nil fields are left untouched.
type UpdateCandleInput struct {
	ID            int64
	Name          *string
	Description   *string
	Price         *string
	StockQuantity *int
	WeightGrams   *int
	BurnTimeHours *int
	Color         *string
	Scent         *string
	Material      *string
	CategoryID    *int64
}

// ListCandlesInput contains pagination for listing candles.
type ListCandlesInput struct {
	Offset int
	Limit  int
}

// ListCandlesOutput contains one page of candles.
type ListCandlesOutput struct {
	Candles []*domain.Candle
	Total   int64
}

// UploadImageInput contains the data needed to attach an image.
type UploadImageInput struct {
	CandleID    int64
	Content     io.Reader
	Size        int64
	ContentType string
	AltText     string
}

// =============================================================================
// Candles
// =============================================================================

// CreateCandle creates a new candle.
func (s *CatalogService) CreateCandle(ctx context.Context, input CreateCandleInput) (*domain.Candle, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !priceRE.MatchString(input.Price) {
		return nil, fmt.Errorf("%w: price must be a decimal amount", ErrInvalidInput)
	}
	if input.StockQuantity < 0 {
		return nil, fmt.Errorf("%w: stock_quantity must not be negative", ErrInvalidInput)
	}

	if input.CategoryID != 0 {
		if _, err := s.categoryRepo.GetByID(ctx, input.CategoryID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, domain.ErrCategoryNotFound
			}
			s.logger.Error().Err(err).Int64("category_id", input.CategoryID).Msg("failed to check category")
			return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
		}
	}

	candle := domain.NewCandle(input.Name, input.Description, input.Price, input.StockQuantity)
	candle.WeightGrams = input.WeightGrams
	candle.BurnTimeHours = input.BurnTimeHours
	candle.Color = input.Color
	candle.Scent = input.Scent
	candle.Material = input.Material
	candle.CategoryID = input.CategoryID

	if err := s.candleRepo.Create(ctx, candle); err != nil {
		s.logger.Error().Err(err).Str("name", input.Name).Msg("failed to create candle")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("candle_id", candle.ID).Str("name", candle.Name).Msg("candle created")
	return candle, nil
}

// GetCandle returns a candle by ID.
func (s *CatalogService) GetCandle(ctx context.Context, id int64) (*domain.Candle, error) {
	candle, err := s.candleRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrCandleNotFound
		}
		s.logger.Error().Err(err).Int64("candle_id", id).Msg("failed to get candle")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return candle, nil
}

// ListCandles returns a page of candles.
func (s *CatalogService) ListCandles(ctx context.Context, input ListCandlesInput) (*ListCandlesOutput, error) {
	limit := input.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	result, err := s.candleRepo.List(ctx, repository.ListOptions{
		Offset: input.Offset,
		Limit:  limit,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list candles")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return &ListCandlesOutput{
		Candles: result.Items,
		Total:   result.Total,
	}, nil
}

// UpdateCandle applies the non-nil fields of input to a candle.
func (s *CatalogService) UpdateCandle(ctx context.Context, input UpdateCandleInput) (*domain.Candle, error) {
	candle, err := s.GetCandle(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
		}
		candle.Name = *input.Name
	}
	if input.Description != nil {
		candle.Description = *input.Description
	}
	if input.Price != nil {
		if !priceRE.MatchString(*input.Price) {
			return nil, fmt.Errorf("%w: price must be a decimal amount", ErrInvalidInput)
		}
		candle.Price = *input.Price
	}
	if input.StockQuantity != nil {
		if *input.StockQuantity < 0 {
			return nil, fmt.Errorf("%w: stock_quantity must not be negative", ErrInvalidInput)
		}
		candle.StockQuantity = *input.StockQuantity
	}
	if input.WeightGrams != nil {
		candle.WeightGrams = *input.WeightGrams
	}
	if input.BurnTimeHours != nil {
		candle.BurnTimeHours = *input.BurnTimeHours
	}
	if input.Color != nil {
		candle.Color = *input.Color
	}
	if input.Scent != nil {
		candle.Scent = *input.Scent
	}
	if input.Material != nil {
		candle.Material = *input.Material
	}
	if input.CategoryID != nil {
		if *input.CategoryID != 0 {
			if _, err := s.categoryRepo.GetByID(ctx, *input.CategoryID); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return nil, domain.ErrCategoryNotFound
				}
				return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
			}
		}
		candle.CategoryID = *input.CategoryID
	}

	if err := s.candleRepo.Update(ctx, candle); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrCandleNotFound
		}
		s.logger.Error().Err(err).Int64("candle_id", candle.ID).Msg("failed to update candle")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("candle_id", candle.ID).Msg("candle updated")
	return candle, nil
}

// =============================================================================
// Categories
// =============================================================================

// CreateCategory creates a new category.
func (s *CatalogService) CreateCategory(ctx context.Context, name, description string) (*domain.Category, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	category := domain.NewCategory(name, description)

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		if errors.Is(err, domain.ErrCategoryAlreadyExists) {
			return nil, domain.ErrCategoryAlreadyExists
		}
		s.logger.Error().Err(err).Str("name", name).Msg("failed to create category")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("category_id", category.ID).Str("name", category.Name).Msg("category created")
	return category, nil
}

// GetCategory returns a category by ID.
func (s *CatalogService) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrCategoryNotFound
		}
		s.logger.Error().Err(err).Int64("category_id", id).Msg("failed to get category")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return category, nil
}

// ListCategories returns all categories.
func (s *CatalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list categories")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return categories, nil
}

// ListTags returns all tags.
func (s *CatalogService) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	tags, err := s.candleRepo.ListTags(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list tags")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return tags, nil
}

// UpdateCategory renames or redescribes a category.
func (s *CatalogService) UpdateCategory(ctx context.Context, id int64, name, description string) (*domain.Category, error) {
	category, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(name) != "" {
		category.Name = name
	}
	category.Description = description

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		switch {
		case errors.Is(err, domain.ErrCategoryAlreadyExists):
			return nil, domain.ErrCategoryAlreadyExists
		case errors.Is(err, repository.ErrNotFound):
			return nil, domain.ErrCategoryNotFound
		}
		s.logger.Error().Err(err).Int64("category_id", id).Msg("failed to update category")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return category, nil
}

// DeleteCategory deletes a category. Candles in it become uncategorized.
func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrCategoryNotFound
		}
		s.logger.Error().Err(err).Int64("category_id", id).Msg("failed to delete category")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("category_id", id).Msg("category deleted")
	return nil
}

// =============================================================================
// Media
// =============================================================================

// UploadImage stores image content in the media backend and records its
// metadata row. The content is stored first; if the metadata insert then
// fails, the orphaned object is left for the GC sweep.
func (s *CatalogService) UploadImage(ctx context.Context, input UploadImageInput) (*domain.CandleImage, error) {
	if _, err := s.GetCandle(ctx, input.CandleID); err != nil {
		return nil, err
	}

	key := newMediaKey(input.ContentType)

	if err := s.media.Store(ctx, key, input.Content, input.Size); err != nil {
		s.logger.Error().Err(err).Int64("candle_id", input.CandleID).Msg("failed to store image")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	img := &domain.CandleImage{
		CandleID:    input.CandleID,
		StorageKey:  key,
		AltText:     input.AltText,
		ContentType: input.ContentType,
		Size:        input.Size,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.candleRepo.AddImage(ctx, img); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrCandleNotFound
		}
		s.logger.Error().Err(err).Int64("candle_id", input.CandleID).Msg("failed to record image")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("candle_id", input.CandleID).
		Str("storage_key", key).
		Int64("size", input.Size).
		Msg("image uploaded")

	return img, nil
}

// ListImages returns the image metadata rows for a candle.
func (s *CatalogService) ListImages(ctx context.Context, candleID int64) ([]*domain.CandleImage, error) {
	if _, err := s.GetCandle(ctx, candleID); err != nil {
		return nil, err
	}

	images, err := s.candleRepo.ListImages(ctx, candleID)
	if err != nil {
		s.logger.Error().Err(err).Int64("candle_id", candleID).Msg("failed to list images")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return images, nil
}

// newMediaKey generates a storage key for uploaded media. The extension
// comes from the MIME type so keys stay readable in the backend.
func newMediaKey(contentType string) string {
	key := strings.ReplaceAll(uuid.NewString(), "-", "")
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		key += exts[0]
	}
	return key
}
