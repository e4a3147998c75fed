package domain

import (
	"time"
)

// Candle represents a product in the catalog.
type Candle struct {
	// ID is the unique identifier for the candle (auto-generated).
	ID int64 `json:"id"`

	// Name is the product name shown in listings.
	Name string `json:"name"`

	// Description is the free-form product description.
	Description string `json:"description,omitempty"`

	// Price is the unit price in the shop currency, as a decimal string
	// (e.g. "24.90"). Stored as NUMERIC in the database; never a float.
	Price string `json:"price"`

	// StockQuantity is the number of units available.
	StockQuantity int `json:"stock_quantity"`

	// WeightGrams is the candle weight in grams.
	WeightGrams int `json:"weight_grams,omitempty"`

	// BurnTimeHours is the approximate burn time.
	BurnTimeHours int `json:"burn_time_hours,omitempty"`

	// Color, Scent and Material describe the physical product.
	Color    string `json:"color,omitempty"`
	Scent    string `json:"scent,omitempty"`
	Material string `json:"material,omitempty"`

	// CategoryID links the candle to a category. Zero means uncategorized;
	// deleting a category detaches its candles rather than deleting them.
	CategoryID int64 `json:"category_id,omitempty"`

	// CreatedAt is the timestamp when the candle was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp when the candle was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCandle creates a new Candle with timestamps set.
func NewCandle(name, description, price string, stock int) *Candle {
	now := time.Now().UTC()
	return &Candle{
		Name:          name,
		Description:   description,
		Price:         price,
		StockQuantity: stock,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Category groups candles in the catalog.
type Category struct {
	// ID is the unique identifier for the category (auto-generated).
	ID int64 `json:"id"`

	// Name is the unique category name.
	Name string `json:"name"`

	// Description is the optional category description.
	Description string `json:"description,omitempty"`

	// CreatedAt is the timestamp when the category was created.
	CreatedAt time.Time `json:"created_at"`
}

// NewCategory creates a new Category with its timestamp set.
func NewCategory(name, description string) *Category {
	return &Category{
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
}

// Tag is a free-form label attached to candles via a join relation.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CandleImage is a media attachment for a candle. The binary content lives
// in the media storage backend under StorageKey; the row is metadata only.
// Image rows are disposable and cascade with their candle.
type CandleImage struct {
	// ID is the unique identifier for the image (auto-generated).
	ID int64 `json:"id"`

	// CandleID is the owning candle.
	CandleID int64 `json:"candle_id"`

	// StorageKey locates the image content in the media backend.
	StorageKey string `json:"storage_key"`

	// AltText is the accessibility description.
	AltText string `json:"alt_text,omitempty"`

	// ContentType is the MIME type of the stored content.
	ContentType string `json:"content_type,omitempty"`

	// Size is the content size in bytes.
	Size int64 `json:"size"`

	// CreatedAt is the timestamp when the image was uploaded.
	CreatedAt time.Time `json:"created_at"`
}
