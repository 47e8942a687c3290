package cron

import (
	"context"
	"fmt"

	"github.com/avelarlabs/solpay-backend/internal/payments"
	"github.com/avelarlabs/solpay-backend/pkg/logger"
)

// sweeper is the slice of the payments service this job uses.
type sweeper interface {
	SweepExpiredAndOld(ctx context.Context) (payments.SweepStats, error)
}

// IntentSweepJobParams configure the intent sweep job.
type IntentSweepJobParams struct {
	Logger   *logger.Logger
	Payments sweeper
}

// NewIntentSweepJob builds the job that expires overdue intents and removes
// terminal intents past the retention window.
func NewIntentSweepJob(params IntentSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments service required")
	}
	return &intentSweepJob{
		logg:     params.Logger,
		payments: params.Payments,
	}, nil
}

type intentSweepJob struct {
	logg     *logger.Logger
	payments sweeper
}

func (j *intentSweepJob) Name() string { return "intent-sweep" }

func (j *intentSweepJob) Run(ctx context.Context) error {
	stats, err := j.payments.SweepExpiredAndOld(ctx)
	if err != nil {
		return fmt.Errorf("sweep intents: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"expired": stats.Expired,
		"removed": stats.Removed,
	})
	j.logg.Info(logCtx, "intent sweep complete")
	return nil
}
