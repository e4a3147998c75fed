package sqlite

import (
	"context"
	"fmt"

	"github.com/candleworks/candela/internal/domain"
	"github.com/candleworks/candela/internal/repository"
)

// referenceRepository implements repository.ReferenceRepository for SQLite.
type referenceRepository struct {
	db *DB
}

// NewReferenceRepository creates a new SQLite reference repository.
func NewReferenceRepository(db *DB) repository.ReferenceRepository {
	return &referenceRepository{db: db}
}

// relationQuery holds the per-relation SQL used by the audit. The rows
// query must select (id, detail) for up to maxRows dependent rows.
type relationQuery struct {
	count string
	rows  string
}

var relationQueries = map[domain.Relation]relationQuery{
	domain.RelationOrderItems: {
		count: `SELECT COUNT(*) FROM order_items WHERE candle_id = ?`,
		rows: `SELECT id, 'order ' || order_id || ', qty ' || quantity
			FROM order_items WHERE candle_id = ? ORDER BY id LIMIT ?`,
	},
	domain.RelationCartItems: {
		count: `SELECT COUNT(*) FROM cart_items WHERE candle_id = ?`,
		rows: `SELECT id, 'user ' || user_id || ', qty ' || quantity
			FROM cart_items WHERE candle_id = ? ORDER BY id LIMIT ?`,
	},
	domain.RelationWishlists: {
		count: `SELECT COUNT(*) FROM wishlists WHERE candle_id = ?`,
		rows: `SELECT 0, 'user ' || user_id
			FROM wishlists WHERE candle_id = ? ORDER BY user_id LIMIT ?`,
	},
	domain.RelationReviews: {
		count: `SELECT COUNT(*) FROM reviews WHERE candle_id = ?`,
		rows: `SELECT id, 'user ' || user_id || ', rating ' || rating
			FROM reviews WHERE candle_id = ? ORDER BY id LIMIT ?`,
	},
	domain.RelationImages: {
		count: `SELECT COUNT(*) FROM candle_images WHERE candle_id = ?`,
		rows: `SELECT id, storage_key
			FROM candle_images WHERE candle_id = ? ORDER BY id LIMIT ?`,
	},
	domain.RelationTags: {
		count: `SELECT COUNT(*) FROM candle_tags WHERE candle_id = ?`,
		rows: `SELECT 0, 'tag ' || tag_id
			FROM candle_tags WHERE candle_id = ? ORDER BY tag_id LIMIT ?`,
	},
}

// Audit enumerates every dependent row referencing a candle, one relation
// at a time, without mutating anything. At most maxRows identifying rows
// are collected per relation; the count is always exact.
func (r *referenceRepository) Audit(ctx context.Context, candleID int64, maxRows int) (*domain.ReferenceAudit, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM candles WHERE id = ?`, candleID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check candle existence: %w", err)
	}
	if exists == 0 {
		return nil, repository.ErrNotFound
	}

	audit := &domain.ReferenceAudit{CandleID: candleID}

	for _, rc := range domain.CandleRelations {
		queries, ok := relationQueries[rc.Relation]
		if !ok {
			return nil, fmt.Errorf("no audit query for relation %q", rc.Relation)
		}

		rel := domain.RelationAudit{
			Relation:   rc.Relation,
			Disposable: rc.Disposable,
		}

		if err := r.db.QueryRowContext(ctx, queries.count, candleID).Scan(&rel.Count); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", rc.Relation, err)
		}

		if rel.Count > 0 && maxRows > 0 {
			rows, err := r.db.QueryContext(ctx, queries.rows, candleID, maxRows)
			if err != nil {
				return nil, fmt.Errorf("failed to enumerate %s: %w", rc.Relation, err)
			}

			for rows.Next() {
				var row domain.ReferenceRow
				if err := rows.Scan(&row.ID, &row.Detail); err != nil {
					rows.Close()
					return nil, fmt.Errorf("failed to scan %s row: %w", rc.Relation, err)
				}
				rel.Rows = append(rel.Rows, row)
			}
			if err := rows.Err(); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to iterate %s rows: %w", rc.Relation, err)
			}
			rows.Close()
		}

		audit.Relations = append(audit.Relations, rel)
	}

	return audit, nil
}
