package workers

import (
	"context"
	"sync"
	"time"

	"oposiciones/models"
	"oposiciones/queries"

	"go.uber.org/zap"
)

// VerificationProcessor claims due article verifications every tick and
// runs each one in its own goroutine.
type VerificationProcessor struct {
	Env   queries.Env
	Tick  time.Duration
	Batch int

	inflight sync.WaitGroup
}

func NewVerificationProcessor(env queries.Env) *VerificationProcessor {
	return &VerificationProcessor{
		Env:   env,
		Tick:  time.Duration(env.Conf.Workers.TickSeconds) * time.Second,
		Batch: env.Conf.Workers.VerificationBatch,
	}
}

// Run loops until ctx is done, then waits for the verifications in flight.
func (p *VerificationProcessor) Run(ctx context.Context) {
	tick := p.Tick
	if tick <= 0 {
		tick = 5 * time.Second
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	defer p.inflight.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.processDue(ctx)
		}
	}
}

func (p *VerificationProcessor) now() time.Time {
	if p.Env.Now != nil {
		return p.Env.Now().UTC()
	}
	return time.Now().UTC()
}

func (p *VerificationProcessor) log() *zap.Logger {
	if p.Env.Log == nil {
		return zap.NewNop()
	}
	return p.Env.Log
}

// processDue returns how many verifications were started.
func (p *VerificationProcessor) processDue(ctx context.Context) int {
	now := p.now()
	db := p.Env.DB

	// rows left in processing by a crashed run go back to the queue
	if n, err := queries.ReleaseStaleVerifications(db, now); err != nil {
		p.log().Error("verification worker: release stale", zap.Error(err))
	} else if n > 0 {
		p.log().Warn("verification worker: released stale rows", zap.Int64("rows", n))
	}

	batch := p.Batch
	if batch <= 0 {
		batch = 20
	}
	claimed, err := queries.ClaimDueVerifications(db, batch, now)
	if err != nil {
		p.log().Error("verification worker: claim", zap.Error(err))
		return 0
	}

	for _, v := range claimed {
		p.inflight.Add(1)
		go func() {
			defer p.inflight.Done()
			p.handle(ctx, v)
		}()
	}
	return len(claimed)
}

func (p *VerificationProcessor) handle(ctx context.Context, v models.ArticleVerification) {
	// shutdown lets a started verification finish; the timeout still applies
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), queries.VerificationTimeout)
	defer cancel()

	if err := queries.ProcessVerification(ctx, p.Env, v); err != nil {
		p.log().Error("verification worker: process",
			zap.Int64("verification_id", v.ID),
			zap.Error(err),
		)
	}
}
