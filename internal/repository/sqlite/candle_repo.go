package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/candleworks/candela/internal/domain"
	"github.com/candleworks/candela/internal/repository"
)

// candleRepository implements repository.CandleRepository for SQLite.
type candleRepository struct {
	db *DB
}

// NewCandleRepository creates a new SQLite candle repository.
func NewCandleRepository(db *DB) repository.CandleRepository {
	return &candleRepository{db: db}
}

const candleColumns = `id, name, description, price, stock_quantity, weight_grams,
	burn_time_hours, color, scent, material, COALESCE(category_id, 0), created_at, updated_at`

// Create creates a new candle.
func (r *candleRepository) Create(ctx context.Context, candle *domain.Candle) error {
	query := `
		INSERT INTO candles (name, description, price, stock_quantity, weight_grams,
			burn_time_hours, color, scent, material, category_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		candle.Name,
		candle.Description,
		candle.Price,
		candle.StockQuantity,
		candle.WeightGrams,
		candle.BurnTimeHours,
		candle.Color,
		candle.Scent,
		candle.Material,
		nullableID(candle.CategoryID),
		candle.CreatedAt.Format(time.RFC3339),
		candle.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create candle: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	candle.ID = id

	return nil
}

// GetByID retrieves a candle by ID.
func (r *candleRepository) GetByID(ctx context.Context, id int64) (*domain.Candle, error) {
	query := `SELECT ` + candleColumns + ` FROM candles WHERE id = ?`
	return r.scanCandle(r.db.QueryRowContext(ctx, query, id))
}

func (r *candleRepository) scanCandle(row rowScanner) (*domain.Candle, error) {
	candle := &domain.Candle{}
	var createdAt, updatedAt string

	err := row.Scan(
		&candle.ID,
		&candle.Name,
		&candle.Description,
		&candle.Price,
		&candle.StockQuantity,
		&candle.WeightGrams,
		&candle.BurnTimeHours,
		&candle.Color,
		&candle.Scent,
		&candle.Material,
		&candle.CategoryID,
		&createdAt,
		&updatedAt,
	)

	if err != nil {
		if isNoRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan candle: %w", err)
	}

	candle.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	candle.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return candle, nil
}

// List returns candles with pagination.
func (r *candleRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Candle], error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM candles`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count candles: %w", err)
	}

	query := `SELECT ` + candleColumns + ` FROM candles ORDER BY id LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list candles: %w", err)
	}
	defer rows.Close()

	var candles []*domain.Candle
	for rows.Next() {
		candle, err := r.scanCandle(rows)
		if err != nil {
			return nil, err
		}
		candles = append(candles, candle)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate candles: %w", err)
	}

	return &repository.ListResult[domain.Candle]{
		Items:  candles,
		Total:  total,
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

// Update updates an existing candle.
func (r *candleRepository) Update(ctx context.Context, candle *domain.Candle) error {
	candle.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE candles
		SET name = ?, description = ?, price = ?, stock_quantity = ?, weight_grams = ?,
			burn_time_hours = ?, color = ?, scent = ?, material = ?, category_id = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		candle.Name,
		candle.Description,
		candle.Price,
		candle.StockQuantity,
		candle.WeightGrams,
		candle.BurnTimeHours,
		candle.Color,
		candle.Scent,
		candle.Material,
		nullableID(candle.CategoryID),
		candle.UpdatedAt.Format(time.RFC3339),
		candle.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update candle: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Disposable relations the schema does not cascade on its own. These are
// purged inside the delete transaction when the caller asked for cascade.
// order_items is deliberately absent: sales history is never purged.
var purgeOnCascade = []string{"cart_items", "wishlists", "reviews"}

// Delete deletes a candle, optionally purging explicitly-cascadable
// disposable relations first. The whole operation is one transaction:
// if the candle row cannot be deleted (a blocking relation still holds a
// reference), the purge rolls back too and no rows are lost.
func (r *candleRepository) Delete(ctx context.Context, id int64, cascadeDisposable bool) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if cascadeDisposable {
			for _, relation := range purgeOnCascade {
				query := fmt.Sprintf(`DELETE FROM %s WHERE candle_id = ?`, relation)
				if _, err := tx.ExecContext(ctx, query, id); err != nil {
					return fmt.Errorf("failed to purge %s: %w", relation, err)
				}
			}
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM candles WHERE id = ?`, id)
		if err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: candle %d", repository.ErrConstraintViolation, id)
			}
			return fmt.Errorf("failed to delete candle: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return repository.ErrNotFound
		}

		return nil
	})
}

// AddImage records image metadata for a candle.
func (r *candleRepository) AddImage(ctx context.Context, img *domain.CandleImage) error {
	query := `
		INSERT INTO candle_images (candle_id, storage_key, alt_text, content_type, size, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		img.CandleID,
		img.StorageKey,
		img.AltText,
		img.ContentType,
		img.Size,
		img.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("failed to add candle image: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	img.ID = id

	return nil
}

// ListImages returns all image rows for a candle.
func (r *candleRepository) ListImages(ctx context.Context, candleID int64) ([]*domain.CandleImage, error) {
	query := `
		SELECT id, candle_id, storage_key, alt_text, content_type, size, created_at
		FROM candle_images
		WHERE candle_id = ?
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, candleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list candle images: %w", err)
	}
	defer rows.Close()

	var images []*domain.CandleImage
	for rows.Next() {
		img := &domain.CandleImage{}
		var createdAt string
		if err := rows.Scan(&img.ID, &img.CandleID, &img.StorageKey, &img.AltText,
			&img.ContentType, &img.Size, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan candle image: %w", err)
		}
		img.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate candle images: %w", err)
	}

	return images, nil
}

// ListImageStorageKeys returns the storage keys of every image row.
func (r *candleRepository) ListImageStorageKeys(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT storage_key FROM candle_images`)
	if err != nil {
		return nil, fmt.Errorf("failed to list image storage keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan storage key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate storage keys: %w", err)
	}

	return keys, nil
}

// ListTags returns all tags, ordered by name.
func (r *candleRepository) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	var tags []*domain.Tag
	for rows.Next() {
		tag := &domain.Tag{}
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tags: %w", err)
	}

	return tags, nil
}

// nullableID converts a zero id into SQL NULL.
func nullableID(id int64) interface{} {
	if id == 0 {
		return nil
	}
	return id
}
