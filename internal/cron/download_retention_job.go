package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/ledgerdesk/portal-backend/pkg/logger"
	"github.com/ledgerdesk/portal-backend/pkg/metrics"
)

const (
	DownloadRetentionJobName = "download_retention"
	downloadRetentionDays    = 365
)

type downloadEventPruner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type DownloadRetentionJobParams struct {
	Logger     *logger.Logger
	Repository downloadEventPruner
	Metrics    *metrics.CronJobMetrics
	Retention  int
}

func NewDownloadRetentionJob(params DownloadRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("download repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = downloadRetentionDays
	}
	return &downloadRetentionJob{
		logg:      params.Logger,
		repo:      params.Repository,
		metrics:   params.Metrics,
		retention: retention,
		now:       time.Now,
	}, nil
}

type downloadRetentionJob struct {
	logg      *logger.Logger
	repo      downloadEventPruner
	metrics   *metrics.CronJobMetrics
	retention int
	now       func() time.Time
}

func (j *downloadRetentionJob) Name() string { return DownloadRetentionJobName }

func (j *downloadRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	deleted, err := j.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("download retention: %w", err)
	}
	j.metrics.AddAffected(j.Name(), deleted)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "download retention cleanup complete")
	return nil
}
