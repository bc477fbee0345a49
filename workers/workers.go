// Package workers holds the background loops started by the API server.
package workers

import (
	"context"

	"oposiciones/queries"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Group is the set of running workers.
type Group struct {
	g errgroup.Group
}

// Start launches the verification processor and the daily reminder and BOE
// sync jobs. They stop when ctx is done.
func Start(ctx context.Context, env queries.Env) *Group {
	log := env.Log
	if log == nil {
		log = zap.NewNop()
	}
	w := &Group{}

	processor := NewVerificationProcessor(env)
	w.g.Go(func() error {
		processor.Run(ctx)
		return nil
	})

	jobs := []DailyJob{
		{Name: "reminders", Hour: env.Conf.Workers.ReminderHourUTC, Run: RemindersJob(env)},
		{Name: "boe-sync", Hour: env.Conf.Workers.BOESyncHourUTC, Run: BOESyncJob(env)},
	}
	for _, job := range jobs {
		w.g.Go(func() error {
			RunDaily(ctx, job, log)
			return nil
		})
	}
	log.Info("workers started", zap.Int("daily_jobs", len(jobs)))
	return w
}

// Wait blocks until every worker has returned.
func (w *Group) Wait() {
	_ = w.g.Wait()
}

func RemindersJob(env queries.Env) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sent, failed, err := queries.SendReminders(ctx, env)
		if env.Log != nil {
			env.Log.Info("reminders", zap.Int("sent", sent), zap.Int("failed", failed))
		}
		return err
	}
}

func BOESyncJob(env queries.Env) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		laws, err := queries.SyncableLaws(env.DB)
		if err != nil {
			return err
		}
		reports, err := queries.SyncLaws(ctx, env, laws)
		if env.Log != nil {
			for _, r := range reports {
				env.Log.Info("boe sync",
					zap.String("law", r.LawSlug),
					zap.Int("new", len(r.New)),
					zap.Int("modified", len(r.Modified)),
					zap.Int("removed", len(r.Removed)),
				)
			}
		}
		return err
	}
}
