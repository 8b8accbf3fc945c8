package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"gorm.io/gorm"
)

const (
	dlqRetentionDays    = 90
	dlqRetentionJobName = "dlq-retention"
)

type DLQRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository dlqRetentionRepo
	Metrics    *metrics.CronJobMetrics
	Retention  int
}

type dlqRetentionRepo interface {
	DeleteFailedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
	CountByReason(ctx context.Context, tx *gorm.DB) (map[enums.OutboxDLQErrorReason]int64, error)
}

// NewDLQRetentionJob purges dead-lettered outbox rows once operators have had
// the retention window to replay them, then republishes the remaining backlog
// as a gauge.
func NewDLQRetentionJob(params DLQRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("dlq repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = dlqRetentionDays
	}
	return &dlqRetentionJob{
		logg:      params.Logger,
		db:        params.DB,
		repo:      params.Repository,
		metrics:   params.Metrics,
		retention: retention,
		now:       time.Now,
	}, nil
}

type dlqRetentionJob struct {
	logg      *logger.Logger
	db        txRunner
	repo      dlqRetentionRepo
	metrics   *metrics.CronJobMetrics
	retention int
	now       func() time.Time
}

func (j *dlqRetentionJob) Name() string { return dlqRetentionJobName }

func (j *dlqRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	var (
		deleted int64
		backlog map[enums.OutboxDLQErrorReason]int64
	)
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		if deleted, err = j.repo.DeleteFailedBefore(ctx, tx, cutoff); err != nil {
			return err
		}
		backlog, err = j.repo.CountByReason(ctx, tx)
		return err
	})
	if err != nil {
		return fmt.Errorf("dlq retention: %w", err)
	}

	remaining := make(map[string]int64, len(backlog))
	var total int64
	for reason, n := range backlog {
		remaining[string(reason)] = n
		total += n
	}
	j.metrics.AddRowsDeleted(j.Name(), deleted)
	j.metrics.SetDLQBacklog(remaining)

	fields := map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
		"backlog":        total,
	}
	if total > 0 {
		j.logg.Warn(j.logg.WithFields(ctx, fields), "cron.dlq_backlog_present")
		return nil
	}
	j.logg.Info(j.logg.WithFields(ctx, fields), "cron.dlq_retention_complete")
	return nil
}
