package domain

// Relation identifies a dependent relation that can reference a candle.
type Relation string

// Dependent relations of the candles table.
const (
	RelationOrderItems Relation = "order_items"
	RelationCartItems  Relation = "cart_items"
	RelationWishlists  Relation = "wishlists"
	RelationReviews    Relation = "reviews"
	RelationImages     Relation = "candle_images"
	RelationTags       Relation = "candle_tags"
)

// RelationClass describes how a dependent relation behaves when its parent
// candle is deleted. This single table replaces per-relation cleanup code:
// the deletion coordinator and the reference audit are both driven by it.
type RelationClass struct {
	// Relation is the dependent relation name.
	Relation Relation

	// Disposable relations hold metadata that may be removed together with
	// the candle. Non-disposable relations are historical facts (completed
	// order lines) and must never be cascaded.
	Disposable bool

	// SchemaCascade relations are cascaded by the database itself
	// (ON DELETE CASCADE); the coordinator never deletes these rows.
	// Disposable relations without SchemaCascade are only purged on an
	// explicit cascade request.
	SchemaCascade bool
}

// CandleRelations is the classification of every relation that can hold a
// foreign key to a candle. Order matters only for presentation.
var CandleRelations = []RelationClass{
	{Relation: RelationOrderItems, Disposable: false, SchemaCascade: false},
	{Relation: RelationCartItems, Disposable: true, SchemaCascade: false},
	{Relation: RelationWishlists, Disposable: true, SchemaCascade: false},
	{Relation: RelationReviews, Disposable: true, SchemaCascade: false},
	{Relation: RelationImages, Disposable: true, SchemaCascade: true},
	{Relation: RelationTags, Disposable: true, SchemaCascade: true},
}

// RelationFor returns the classification for a relation name.
func RelationFor(rel Relation) (RelationClass, bool) {
	for _, rc := range CandleRelations {
		if rc.Relation == rel {
			return rc, true
		}
	}
	return RelationClass{}, false
}

// ReferenceRow identifies one dependent row in a reference audit.
type ReferenceRow struct {
	// ID is the primary key of the dependent row. Zero for relations
	// without a surrogate key (wishlists, candle_tags).
	ID int64 `json:"id,omitempty"`

	// Detail is a short human-readable description of the row, e.g.
	// "order 12, qty 3" or "user 7, rating 5".
	Detail string `json:"detail"`
}

// RelationAudit is the audit result for a single dependent relation.
type RelationAudit struct {
	Relation   Relation       `json:"relation"`
	Disposable bool           `json:"disposable"`
	Count      int64          `json:"count"`
	Rows       []ReferenceRow `json:"rows,omitempty"`
}

// ReferenceAudit enumerates every dependent row referencing a candle.
// It is read-only: producing one mutates nothing.
type ReferenceAudit struct {
	CandleID  int64           `json:"candle_id"`
	Relations []RelationAudit `json:"relations"`
}

// Blocking reports whether any non-disposable relation references the
// candle, i.e. whether a delete would fail even with cascade enabled.
func (a *ReferenceAudit) Blocking() bool {
	for _, rel := range a.Relations {
		if !rel.Disposable && rel.Count > 0 {
			return true
		}
	}
	return false
}

// HasReferences reports whether any relation at all references the candle.
func (a *ReferenceAudit) HasReferences() bool {
	for _, rel := range a.Relations {
		if rel.Count > 0 {
			return true
		}
	}
	return false
}
