package janitor

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/groupcart-backend/pkg/logger"
	"github.com/angelmondragon/groupcart-backend/pkg/metrics"
)

const (
	defaultGuestRetention = 30 * 24 * time.Hour
	defaultBatchSize      = 500
	// maxBatchesPerRun bounds one run; leftovers are picked up next cycle.
	maxBatchesPerRun = 100
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type idleCartStore interface {
	DeleteIdleGuestCarts(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) ([]string, error)
}

type cartEvicter interface {
	Delete(ctx context.Context, cartIDs ...string)
}

type GuestCartRetentionJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Store     idleCartStore
	Cache     cartEvicter
	Metrics   *metrics.JanitorMetrics
	Retention time.Duration
	BatchSize int
}

// NewGuestCartRetentionJob purges guest carts nobody has touched for the
// retention window. Purged carts are evicted from the cache as well.
func NewGuestCartRetentionJob(params GuestCartRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultGuestRetention
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &guestCartRetentionJob{
		logg:      params.Logger,
		db:        params.DB,
		store:     params.Store,
		cache:     params.Cache,
		metrics:   params.Metrics,
		retention: retention,
		batch:     batch,
		now:       time.Now,
	}, nil
}

type guestCartRetentionJob struct {
	logg      *logger.Logger
	db        txRunner
	store     idleCartStore
	cache     cartEvicter
	metrics   *metrics.JanitorMetrics
	retention time.Duration
	batch     int
	now       func() time.Time
}

func (j *guestCartRetentionJob) Name() string { return "guest-cart-retention" }

func (j *guestCartRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	total := 0
	for i := 0; i < maxBatchesPerRun; i++ {
		var purged []string
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			ids, err := j.store.DeleteIdleGuestCarts(ctx, tx, cutoff, j.batch)
			if err != nil {
				return err
			}
			purged = ids
			return nil
		})
		if err != nil {
			return fmt.Errorf("guest cart retention after %d carts: %w", total, err)
		}
		if len(purged) > 0 && j.cache != nil {
			j.cache.Delete(ctx, purged...)
		}
		total += len(purged)
		j.metrics.GuestCartsPurged(len(purged))
		if len(purged) < j.batch {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"carts_purged": total,
	})
	j.logg.Info(logCtx, "guest cart retention complete")
	return nil
}
