package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/candleworks/candela/internal/domain"
	"github.com/candleworks/candela/internal/lock"
	"github.com/candleworks/candela/internal/repository"
	"github.com/candleworks/candela/internal/storage"
)

// GCMetrics records garbage collection sweeps. Satisfied by
// metrics.Metrics; nil disables recording.
type GCMetrics interface {
	RecordGCSweep(collected int)
}

// MediaGC sweeps the media backend for objects no candle_images row
// references anymore and deletes them. Image uploads store content
// before the metadata row commits, so a grace period keeps in-flight
// uploads safe; the distributed lock keeps concurrent instances from
// sweeping at once.
type MediaGC struct {
	candleRepo repository.CandleRepository
	media      storage.Backend
	locker     lock.Locker
	metrics    GCMetrics
	logger     zerolog.Logger
	config     GCConfig

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
}

// GCConfig contains garbage collection configuration.
type GCConfig struct {
	// Enabled determines if GC runs automatically.
	Enabled bool

	// Interval is how often to run garbage collection.
	Interval time.Duration

	// GracePeriod is how long an object must be unreferenced before
	// deletion. Covers uploads whose metadata row hasn't committed yet.
	GracePeriod time.Duration

	// BatchSize is the maximum number of objects deleted per run.
	BatchSize int

	// DryRun logs what would be deleted without actually deleting.
	DryRun bool
}

// DefaultGCConfig returns sensible defaults.
func DefaultGCConfig() GCConfig {
	return GCConfig{
		Enabled:     true,
		Interval:    1 * time.Hour,
		GracePeriod: 24 * time.Hour,
		BatchSize:   1000,
		DryRun:      false,
	}
}

// NewMediaGC creates a new media garbage collector.
func NewMediaGC(
	candleRepo repository.CandleRepository,
	media storage.Backend,
	locker lock.Locker,
	m GCMetrics,
	logger zerolog.Logger,
	config GCConfig,
) *MediaGC {
	return &MediaGC{
		candleRepo: candleRepo,
		media:      media,
		locker:     locker,
		metrics:    m,
		logger:     logger.With().Str("service", "media_gc").Logger(),
		config:     config,
		stopChan:   make(chan struct{}),
		doneChan:   make(chan struct{}),
	}
}

// Start begins the sweep scheduler.
func (gc *MediaGC) Start() {
	gc.mu.Lock()
	if gc.running {
		gc.mu.Unlock()
		return
	}
	gc.running = true
	gc.mu.Unlock()

	gc.logger.Info().
		Dur("interval", gc.config.Interval).
		Dur("grace_period", gc.config.GracePeriod).
		Int("batch_size", gc.config.BatchSize).
		Bool("dry_run", gc.config.DryRun).
		Msg("starting media garbage collector")

	go gc.runLoop()
}

// Stop stops the sweep scheduler and waits for a running sweep.
func (gc *MediaGC) Stop() {
	gc.mu.Lock()
	if !gc.running {
		gc.mu.Unlock()
		return
	}
	gc.running = false
	gc.mu.Unlock()

	close(gc.stopChan)
	<-gc.doneChan

	gc.logger.Info().Msg("media garbage collector stopped")
}

func (gc *MediaGC) runLoop() {
	defer close(gc.doneChan)

	gc.runOnce()

	ticker := time.NewTicker(gc.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			gc.runOnce()
		case <-gc.stopChan:
			return
		}
	}
}

func (gc *MediaGC) runOnce() {
	gc.RunOnce(context.Background())
}

// GCResult contains the result of one sweep.
type GCResult struct {
	// ObjectsDeleted is the number of orphaned objects removed.
	ObjectsDeleted int `json:"objects_deleted"`

	// BytesFreed is the total size of removed objects.
	BytesFreed int64 `json:"bytes_freed"`

	// Skipped is the number of orphans left alone (grace period or
	// batch limit).
	Skipped int `json:"skipped"`

	// Errors is the number of errors encountered.
	Errors int `json:"errors"`

	// Duration is how long the sweep took.
	Duration time.Duration `json:"duration"`
}

// RunOnce executes a single sweep. Safe to call manually; the lock
// still guards against a concurrent scheduled sweep.
func (gc *MediaGC) RunOnce(ctx context.Context) GCResult {
	start := time.Now()
	result := GCResult{}

	lockTTL := gc.config.Interval / 2
	if lockTTL < 5*time.Minute {
		lockTTL = 5 * time.Minute
	}

	lockKey := lock.Keys.MediaGC()
	acquired, err := gc.locker.Acquire(ctx, lockKey, lockTTL)
	if err != nil {
		gc.logger.Error().Err(err).Msg("failed to acquire GC lock")
		result.Errors++
		result.Duration = time.Since(start)
		return result
	}
	if !acquired {
		gc.logger.Debug().Msg("GC lock held by another instance, skipping sweep")
		result.Duration = time.Since(start)
		return result
	}
	defer func() {
		if _, err := gc.locker.Release(ctx, lockKey); err != nil {
			gc.logger.Error().Err(err).Msg("failed to release GC lock")
		}
	}()

	orphans, err := gc.findOrphans(ctx)
	if err != nil {
		gc.logger.Error().Err(err).Msg("failed to find orphaned media")
		result.Errors++
		result.Duration = time.Since(start)
		return result
	}

	if len(orphans) == 0 {
		gc.logger.Debug().Msg("no orphaned media found")
		gc.finish(&result, start)
		return result
	}

	gc.logger.Info().Int("count", len(orphans)).Msg("found orphaned media")

	for _, obj := range orphans {
		if result.ObjectsDeleted >= gc.config.BatchSize {
			result.Skipped += len(orphans) - result.ObjectsDeleted - result.Skipped
			break
		}

		if gc.config.DryRun {
			gc.logger.Info().
				Str("key", obj.Key).
				Int64("size", obj.Size).
				Msg("dry run: would delete orphaned media")
			result.ObjectsDeleted++
			result.BytesFreed += obj.Size
			continue
		}

		if err := gc.media.Delete(ctx, obj.Key); err != nil {
			if errors.Is(err, domain.ErrMediaNotFound) {
				continue
			}
			gc.logger.Error().Err(err).Str("key", obj.Key).Msg("failed to delete orphaned media")
			result.Errors++
			continue
		}

		result.ObjectsDeleted++
		result.BytesFreed += obj.Size
	}

	gc.finish(&result, start)

	gc.logger.Info().
		Int("deleted", result.ObjectsDeleted).
		Int64("bytes_freed", result.BytesFreed).
		Int("skipped", result.Skipped).
		Int("errors", result.Errors).
		Dur("duration", result.Duration).
		Msg("media GC sweep finished")

	return result
}

// findOrphans lists stored objects that have no metadata row and are
// past the grace period.
func (gc *MediaGC) findOrphans(ctx context.Context) ([]storage.ObjectInfo, error) {
	keys, err := gc.candleRepo.ListImageStorageKeys(ctx)
	if err != nil {
		return nil, err
	}

	referenced := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		referenced[key] = struct{}{}
	}

	objects, err := gc.media.List(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-gc.config.GracePeriod)

	var orphans []storage.ObjectInfo
	for _, obj := range objects {
		if _, ok := referenced[obj.Key]; ok {
			continue
		}
		if obj.ModTime.After(cutoff) {
			continue
		}
		orphans = append(orphans, obj)
	}

	return orphans, nil
}

func (gc *MediaGC) finish(result *GCResult, start time.Time) {
	result.Duration = time.Since(start)
	if gc.metrics != nil && !gc.config.DryRun {
		gc.metrics.RecordGCSweep(result.ObjectsDeleted)
	}
}
