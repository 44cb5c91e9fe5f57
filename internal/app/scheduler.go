package app

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/fantasy-hoops/internal/config"
	"github.com/riskibarqy/fantasy-hoops/internal/platform/logging"
	"github.com/riskibarqy/fantasy-hoops/internal/usecase"
	"github.com/robfig/cron/v3"
)

const sweepJobTimeout = 10 * time.Minute

type sweepRunner interface {
	Run(ctx context.Context) (usecase.SyncSweepResult, error)
}

// cronLogger routes robfig/cron's own logging through the service logger.
type cronLogger struct {
	logger *logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}

// newSweepScheduler returns nil when the sweep schedule is disabled.
func newSweepScheduler(cfg config.Config, sweep sweepRunner, logger *logging.Logger) (*cron.Cron, error) {
	if cfg.SyncSweepCron == "" {
		logger.Info("scheduled sync sweep disabled")
		return nil, nil
	}

	clog := cronLogger{logger: logger.Named("cron")}
	c := cron.New(
		cron.WithLogger(clog),
		cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
	)

	if _, err := c.AddFunc(cfg.SyncSweepCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepJobTimeout)
		defer cancel()

		result, err := sweep.Run(ctx)
		if err != nil {
			logger.Warn("scheduled sync sweep failed", "error", err)
			return
		}
		logger.Info("scheduled sync sweep finished",
			"considered", result.Considered,
			"synced", result.Synced,
			"failed", result.Failed,
			"duration_ms", result.DurationMs,
		)
	}); err != nil {
		return nil, fmt.Errorf("schedule sync sweep %q: %w", cfg.SyncSweepCron, err)
	}
	return c, nil
}
