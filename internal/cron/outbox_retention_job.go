package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"gorm.io/gorm"
)

const (
	outboxRetentionDays    = 30
	outboxTerminalAttempts = 10
	outboxRetentionJobName = "outbox-retention"
	outboxRetentionBatch   = 1000
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository outboxRetentionRepo
	Metrics    *metrics.CronJobMetrics
	// Retention is expressed in days.
	Retention int
	// TerminalAttempts matches the publisher's max attempts so dead-lettered
	// rows are purged along with published ones.
	TerminalAttempts int
	// BatchSize caps rows per delete transaction. Defaults to 1000.
	BatchSize int
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, terminalAttempts, limit int) (int64, error)
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = outboxRetentionDays
	}
	terminal := params.TerminalAttempts
	if terminal <= 0 {
		terminal = outboxTerminalAttempts
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = outboxRetentionBatch
	}
	return &outboxRetentionJob{
		logg:      params.Logger,
		db:        params.DB,
		repo:      params.Repository,
		metrics:   params.Metrics,
		retention: retention,
		terminal:  terminal,
		batch:     batch,
		now:       time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg      *logger.Logger
	db        txRunner
	repo      outboxRetentionRepo
	metrics   *metrics.CronJobMetrics
	retention int
	terminal  int
	batch     int
	now       func() time.Time
}

func (j *outboxRetentionJob) Name() string { return outboxRetentionJobName }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	var deleted int64
	batches := 0
	for {
		var rows int64
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			rows, err = j.repo.DeletePublishedBefore(ctx, tx, cutoff, j.terminal, j.batch)
			return err
		})
		if err != nil {
			j.metrics.AddRowsDeleted(j.Name(), deleted)
			return fmt.Errorf("outbox retention batch %d: %w", batches+1, err)
		}
		batches++
		deleted += rows
		if rows < int64(j.batch) || ctx.Err() != nil {
			break
		}
	}
	j.metrics.AddRowsDeleted(j.Name(), deleted)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":            cutoff,
		"retention_days":    j.retention,
		"terminal_attempts": j.terminal,
		"batches":           batches,
		"rows_deleted":      deleted,
	})
	j.logg.Info(logCtx, "cron.outbox_retention_complete")
	return nil
}
