package workers

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DailyJob runs once a day at Hour:00 UTC.
type DailyJob struct {
	Name string
	Hour int
	Run  func(ctx context.Context) error
}

// NextRun is the first Hour:00 UTC strictly after now.
func NextRun(now time.Time, hour int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// RunDaily blocks until ctx is done, running job at every scheduled hour.
func RunDaily(ctx context.Context, job DailyJob, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	for {
		next := NextRun(time.Now(), job.Hour)
		timer := time.NewTimer(time.Until(next))
		log.Debug("job scheduled", zap.String("job", job.Name), zap.Time("at", next))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		start := time.Now()
		if err := job.Run(ctx); err != nil {
			log.Error("job failed", zap.String("job", job.Name), zap.Error(err))
			continue
		}
		log.Info("job done", zap.String("job", job.Name), zap.Duration("took", time.Since(start)))
	}
}
