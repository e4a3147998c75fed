package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/candleworks/candela/internal/domain"
)

func newCatalogService(
	candleRepo *MockCandleRepository,
	categoryRepo *MockCategoryRepository,
	media *MockStorageBackend,
) *CatalogService {
	return NewCatalogService(candleRepo, categoryRepo, media, zerolog.Nop())
}

func TestCatalogService_CreateCandle(t *testing.T) {
	tests := []struct {
		name      string
		input     CreateCandleInput
		setupRepo func(*testing.T, *MockCategoryRepository)
		wantErr   error
	}{
		{
			name:  "success",
			input: CreateCandleInput{Name: "Lavender Pillar", Price: "24.90", StockQuantity: 12},
		},
		{
			name: "success with category",
			input: CreateCandleInput{
				Name: "Vanilla Votive", Price: "9.99", StockQuantity: 3, CategoryID: 1,
			},
			setupRepo: func(t *testing.T, repo *MockCategoryRepository) {
				if err := repo.Create(context.Background(), domain.NewCategory("Votives", "")); err != nil {
					t.Fatalf("failed to seed category: %v", err)
				}
			},
		},
		{
			name:    "empty name",
			input:   CreateCandleInput{Name: "   ", Price: "9.99"},
			wantErr: ErrInvalidInput,
		},
		{
			name:    "price not a decimal",
			input:   CreateCandleInput{Name: "Lavender Pillar", Price: "cheap"},
			wantErr: ErrInvalidInput,
		},
		{
			name:    "price with too many decimals",
			input:   CreateCandleInput{Name: "Lavender Pillar", Price: "9.999"},
			wantErr: ErrInvalidInput,
		},
		{
			name:    "negative price",
			input:   CreateCandleInput{Name: "Lavender Pillar", Price: "-1.00"},
			wantErr: ErrInvalidInput,
		},
		{
			name:    "negative stock",
			input:   CreateCandleInput{Name: "Lavender Pillar", Price: "9.99", StockQuantity: -1},
			wantErr: ErrInvalidInput,
		},
		{
			name:    "unknown category",
			input:   CreateCandleInput{Name: "Lavender Pillar", Price: "9.99", CategoryID: 42},
			wantErr: domain.ErrCategoryNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			categoryRepo := NewMockCategoryRepository()
			if tt.setupRepo != nil {
				tt.setupRepo(t, categoryRepo)
			}
			svc := newCatalogService(NewMockCandleRepository(), categoryRepo, NewMockStorageBackend())

			candle, err := svc.CreateCandle(context.Background(), tt.input)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if candle.ID == 0 {
				t.Error("expected an assigned id")
			}
			if candle.Price != tt.input.Price {
				t.Errorf("expected price %q, got %q", tt.input.Price, candle.Price)
			}
		})
	}
}

func TestCatalogService_UpdateCandle(t *testing.T) {
	strPtr := func(s string) *string { return &s }
	intPtr := func(i int) *int { return &i }
	int64Ptr := func(i int64) *int64 { return &i }

	tests := []struct {
		name    string
		input   UpdateCandleInput
		wantErr error
		check   func(*testing.T, *domain.Candle)
	}{
		{
			name:  "rename and reprice",
			input: UpdateCandleInput{Name: strPtr("Midnight Jar"), Price: strPtr("31.50")},
			check: func(t *testing.T, c *domain.Candle) {
				if c.Name != "Midnight Jar" || c.Price != "31.50" {
					t.Errorf("update not applied: %+v", c)
				}
			},
		},
		{
			name:  "untouched fields survive",
			input: UpdateCandleInput{StockQuantity: intPtr(5)},
			check: func(t *testing.T, c *domain.Candle) {
				if c.Name != "Lavender Pillar" {
					t.Errorf("name should be untouched, got %q", c.Name)
				}
				if c.StockQuantity != 5 {
					t.Errorf("expected stock 5, got %d", c.StockQuantity)
				}
			},
		},
		{
			name:  "detach category",
			input: UpdateCandleInput{CategoryID: int64Ptr(0)},
			check: func(t *testing.T, c *domain.Candle) {
				if c.CategoryID != 0 {
					t.Errorf("expected detached category, got %d", c.CategoryID)
				}
			},
		},
		{
			name:    "empty name rejected",
			input:   UpdateCandleInput{Name: strPtr("  ")},
			wantErr: ErrInvalidInput,
		},
		{
			name:    "bad price rejected",
			input:   UpdateCandleInput{Price: strPtr("9,99")},
			wantErr: ErrInvalidInput,
		},
		{
			name:    "unknown category rejected",
			input:   UpdateCandleInput{CategoryID: int64Ptr(42)},
			wantErr: domain.ErrCategoryNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candleRepo := NewMockCandleRepository()
			candle := seedCandle(t, candleRepo, "Lavender Pillar")
			svc := newCatalogService(candleRepo, NewMockCategoryRepository(), NewMockStorageBackend())

			tt.input.ID = candle.ID
			updated, err := svc.UpdateCandle(context.Background(), tt.input)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, updated)
		})
	}
}

func TestCatalogService_UpdateCandle_NotFound(t *testing.T) {
	svc := newCatalogService(NewMockCandleRepository(), NewMockCategoryRepository(), NewMockStorageBackend())

	_, err := svc.UpdateCandle(context.Background(), UpdateCandleInput{ID: 404})
	if !errors.Is(err, domain.ErrCandleNotFound) {
		t.Errorf("expected ErrCandleNotFound, got %v", err)
	}
}

func TestCatalogService_ListCandles_LimitClamped(t *testing.T) {
	candleRepo := NewMockCandleRepository()
	for i := 0; i < 3; i++ {
		seedCandle(t, candleRepo, "Candle")
	}
	svc := newCatalogService(candleRepo, NewMockCategoryRepository(), NewMockStorageBackend())

	out, err := svc.ListCandles(context.Background(), ListCandlesInput{Limit: 1000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Total != 3 {
		t.Errorf("expected total 3, got %d", out.Total)
	}
	if len(out.Candles) != 3 {
		t.Errorf("expected 3 candles, got %d", len(out.Candles))
	}
}

func TestCatalogService_Categories(t *testing.T) {
	svc := newCatalogService(NewMockCandleRepository(), NewMockCategoryRepository(), NewMockStorageBackend())
	ctx := context.Background()

	category, err := svc.CreateCategory(ctx, "Pillars", "Freestanding candles")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if category.ID == 0 {
		t.Error("expected an assigned id")
	}

	if _, err := svc.CreateCategory(ctx, "Pillars", "dup"); !errors.Is(err, domain.ErrCategoryAlreadyExists) {
		t.Errorf("expected ErrCategoryAlreadyExists, got %v", err)
	}

	if _, err := svc.CreateCategory(ctx, "  ", ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for blank name, got %v", err)
	}

	updated, err := svc.UpdateCategory(ctx, category.ID, "Pillar Candles", "renamed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Name != "Pillar Candles" {
		t.Errorf("expected renamed category, got %q", updated.Name)
	}

	if err := svc.DeleteCategory(ctx, category.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.GetCategory(ctx, category.ID); !errors.Is(err, domain.ErrCategoryNotFound) {
		t.Errorf("expected ErrCategoryNotFound after delete, got %v", err)
	}
	if err := svc.DeleteCategory(ctx, category.ID); !errors.Is(err, domain.ErrCategoryNotFound) {
		t.Errorf("expected ErrCategoryNotFound for second delete, got %v", err)
	}
}

func TestCatalogService_ListTags(t *testing.T) {
	candleRepo := NewMockCandleRepository()
	candleRepo.tags = []*domain.Tag{
		{ID: 1, Name: "floral"},
		{ID: 2, Name: "gift"},
	}
	svc := newCatalogService(candleRepo, NewMockCategoryRepository(), NewMockStorageBackend())

	tags, err := svc.ListTags(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tags) != 2 || tags[0].Name != "floral" {
		t.Errorf("unexpected tags: %+v", tags)
	}
}

func TestCatalogService_UploadImage(t *testing.T) {
	candleRepo := NewMockCandleRepository()
	media := NewMockStorageBackend()
	candle := seedCandle(t, candleRepo, "Lavender Pillar")
	svc := newCatalogService(candleRepo, NewMockCategoryRepository(), media)

	content := "fake png bytes"
	img, err := svc.UploadImage(context.Background(), UploadImageInput{
		CandleID:    candle.ID,
		Content:     strings.NewReader(content),
		Size:        int64(len(content)),
		ContentType: "image/png",
		AltText:     "a purple candle",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if img.StorageKey == "" {
		t.Fatal("expected a storage key")
	}
	if !strings.HasSuffix(img.StorageKey, ".png") {
		t.Errorf("expected a .png key, got %q", img.StorageKey)
	}
	if ok, _ := media.Exists(context.Background(), img.StorageKey); !ok {
		t.Error("content not stored in the media backend")
	}

	images, err := svc.ListImages(context.Background(), candle.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(images) != 1 || images[0].StorageKey != img.StorageKey {
		t.Errorf("expected the uploaded image recorded, got %+v", images)
	}
}

func TestCatalogService_UploadImage_UnknownCandle(t *testing.T) {
	svc := newCatalogService(NewMockCandleRepository(), NewMockCategoryRepository(), NewMockStorageBackend())

	_, err := svc.UploadImage(context.Background(), UploadImageInput{
		CandleID:    404,
		Content:     strings.NewReader("x"),
		Size:        1,
		ContentType: "image/png",
	})
	if !errors.Is(err, domain.ErrCandleNotFound) {
		t.Errorf("expected ErrCandleNotFound, got %v", err)
	}
}

func TestCatalogService_UploadImage_StoreFailure(t *testing.T) {
	candleRepo := NewMockCandleRepository()
	media := NewMockStorageBackend()
	media.storeErr = errors.New("backend offline")
	candle := seedCandle(t, candleRepo, "Lavender Pillar")
	svc := newCatalogService(candleRepo, NewMockCategoryRepository(), media)

	_, err := svc.UploadImage(context.Background(), UploadImageInput{
		CandleID:    candle.ID,
		Content:     strings.NewReader("x"),
		Size:        1,
		ContentType: "image/png",
	})
	if !errors.Is(err, ErrInternalError) {
		t.Errorf("expected ErrInternalError, got %v", err)
	}

	images, _ := candleRepo.ListImages(context.Background(), candle.ID)
	if len(images) != 0 {
		t.Error("no metadata row may be recorded when storage fails")
	}
}
