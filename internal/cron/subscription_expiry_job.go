package cron

import (
	"context"
	"fmt"

	"github.com/ledgerdesk/portal-backend/pkg/logger"
	"github.com/ledgerdesk/portal-backend/pkg/metrics"
)

const SubscriptionExpiryJobName = "subscription_expiry"

type lapsedExpirer interface {
	ExpireLapsed(ctx context.Context) (int64, error)
}

type SubscriptionExpiryJobParams struct {
	Logger   *logger.Logger
	Licenses lapsedExpirer
	Metrics  *metrics.CronJobMetrics
}

// NewSubscriptionExpiryJob marks premium subscriptions whose term has ended
// as expired, so reports and admin views agree with what validation returns.
func NewSubscriptionExpiryJob(params SubscriptionExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Licenses == nil {
		return nil, fmt.Errorf("license service required")
	}
	return &subscriptionExpiryJob{
		logg:     params.Logger,
		licenses: params.Licenses,
		metrics:  params.Metrics,
	}, nil
}

type subscriptionExpiryJob struct {
	logg     *logger.Logger
	licenses lapsedExpirer
	metrics  *metrics.CronJobMetrics
}

func (j *subscriptionExpiryJob) Name() string { return SubscriptionExpiryJobName }

func (j *subscriptionExpiryJob) Run(ctx context.Context) error {
	expired, err := j.licenses.ExpireLapsed(ctx)
	if err != nil {
		return fmt.Errorf("expire lapsed subscriptions: %w", err)
	}
	j.metrics.AddAffected(j.Name(), expired)
	j.logg.Info(j.logg.WithField(ctx, "rows_expired", expired), "subscription expiry sweep complete")
	return nil
}
