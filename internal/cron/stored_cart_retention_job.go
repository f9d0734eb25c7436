package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/shoppingcart/pkg/logger"
	"github.com/angelmondragon/shoppingcart/pkg/metrics"
)

const (
	storedCartRetentionJobName = "stored-cart-retention"
	defaultStoredCartRetention = 30 * 24 * time.Hour
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type storedCartPurger interface {
	PurgeUpdatedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type StoredCartRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository storedCartPurger
	Metrics    *metrics.CronJobMetrics
	Retention  time.Duration
}

// NewStoredCartRetentionJob removes stored carts nobody restored within the retention window.
func NewStoredCartRetentionJob(params StoredCartRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("stored cart repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultStoredCartRetention
	}
	return &storedCartRetentionJob{
		logg:      params.Logger,
		db:        params.DB,
		repo:      params.Repository,
		metrics:   params.Metrics,
		retention: retention,
		now:       time.Now,
	}, nil
}

type storedCartRetentionJob struct {
	logg      *logger.Logger
	db        txRunner
	repo      storedCartPurger
	metrics   *metrics.CronJobMetrics
	retention time.Duration
	now       func() time.Time
}

func (j *storedCartRetentionJob) Name() string { return storedCartRetentionJobName }

func (j *storedCartRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repo.PurgeUpdatedBefore(ctx, tx, cutoff)
		if err != nil {
			return err
		}
		deleted = rows
		return nil
	})
	if err != nil {
		return fmt.Errorf("stored cart retention: %w", err)
	}
	j.metrics.AddPurged(j.Name(), deleted)

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"retention":    j.retention.String(),
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "stored cart retention cleanup complete")
	return nil
}
