package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/candleworks/candela/internal/domain"
	"github.com/candleworks/candela/internal/repository"
)

// auditMaxRows caps the identifying rows returned per relation in a
// reference audit. Counts are always exact.
const auditMaxRows = 50

// DeletionMetrics records deletion outcomes. Satisfied by
// metrics.Metrics; nil disables recording.
type DeletionMetrics interface {
	RecordCandleDelete(outcome string)
	RecordReferenceAudit()
}

// DeletionService coordinates reference-safe candle deletion.
//
// Dependent relations fall into two classes (domain.CandleRelations):
// disposable rows may go with the candle, historical rows (order lines)
// never do and block deletion instead. The actual delete is one
// repository-level transaction, so a blocked delete leaves every
// disposable row in place too.
type DeletionService struct {
	candleRepo    repository.CandleRepository
	referenceRepo repository.ReferenceRepository
	metrics       DeletionMetrics
	logger        zerolog.Logger
}

// NewDeletionService creates a new DeletionService.
func NewDeletionService(
	candleRepo repository.CandleRepository,
	referenceRepo repository.ReferenceRepository,
	metrics DeletionMetrics,
	logger zerolog.Logger,
) *DeletionService {
	return &DeletionService{
		candleRepo:    candleRepo,
		referenceRepo: referenceRepo,
		metrics:       metrics,
		logger:        logger.With().Str("service", "deletion").Logger(),
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// DeleteOptions controls how far a delete may cascade.
type DeleteOptions struct {
	// CascadeDisposable purges cart items, wishlist entries and reviews
	// referencing the candle before deleting it. Order lines are never
	// purged regardless of this flag.
	CascadeDisposable bool
}

// DeleteBatchOutput summarizes a batch delete. Each id is its own unit
// of work: one blocked id never aborts the others.
type DeleteBatchOutput struct {
	// DeletedCount is the number of candles actually deleted.
	DeletedCount int `json:"deleted_count"`

	// Failed lists ids whose deletion was blocked by references.
	Failed []int64 `json:"failed,omitempty"`

	// NotFound lists ids that didn't exist.
	NotFound []int64 `json:"not_found,omitempty"`

	// Partial is true when some but not all requested ids were deleted.
	Partial bool `json:"partial"`
}

// =============================================================================
// Service Methods
// =============================================================================

// Delete deletes one candle. A candle referenced by order lines cannot
// be deleted; the returned error wraps domain.ErrCandleReferenced and
// the database is left exactly as it was.
func (s *DeletionService) Delete(ctx context.Context, id int64, opts DeleteOptions) error {
	err := s.candleRepo.Delete(ctx, id, opts.CascadeDisposable)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			s.record("not_found")
			return domain.ErrCandleNotFound
		case errors.Is(err, repository.ErrConstraintViolation):
			s.record("blocked")
			s.logger.Info().
				Int64("candle_id", id).
				Bool("cascade", opts.CascadeDisposable).
				Msg("delete blocked by references")
			return fmt.Errorf("%w: candle %d is referenced by order history", domain.ErrCandleReferenced, id)
		}
		s.logger.Error().Err(err).Int64("candle_id", id).Msg("failed to delete candle")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.record("deleted")
	s.logger.Info().
		Int64("candle_id", id).
		Bool("cascade", opts.CascadeDisposable).
		Msg("candle deleted")
	return nil
}

// DeleteBatch deletes each candle independently and reports the
// aggregate. Ids are processed in the order given.
func (s *DeletionService) DeleteBatch(ctx context.Context, ids []int64, opts DeleteOptions) (*DeleteBatchOutput, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no ids given", ErrInvalidInput)
	}

	out := &DeleteBatchOutput{}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		err := s.Delete(ctx, id, opts)
		switch {
		case err == nil:
			out.DeletedCount++
		case errors.Is(err, domain.ErrCandleNotFound):
			out.NotFound = append(out.NotFound, id)
		case errors.Is(err, domain.ErrCandleReferenced):
			out.Failed = append(out.Failed, id)
		default:
			return nil, err
		}
	}

	out.Partial = out.DeletedCount > 0 && out.DeletedCount < len(ids)

	s.logger.Info().
		Int("requested", len(ids)).
		Int("deleted", out.DeletedCount).
		Int("failed", len(out.Failed)).
		Int("not_found", len(out.NotFound)).
		Msg("batch delete finished")

	return out, nil
}

// Audit reports every dependent row referencing a candle, without
// changing anything. Use it to see what a delete would purge and what
// would block it.
func (s *DeletionService) Audit(ctx context.Context, id int64) (*domain.ReferenceAudit, error) {
	audit, err := s.referenceRepo.Audit(ctx, id, auditMaxRows)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrCandleNotFound
		}
		s.logger.Error().Err(err).Int64("candle_id", id).Msg("failed to audit references")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if s.metrics != nil {
		s.metrics.RecordReferenceAudit()
	}

	return audit, nil
}

func (s *DeletionService) record(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordCandleDelete(outcome)
	}
}
