package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Spok95/acadify-records/internal/observability"
)

type Job func(ctx context.Context) error

// Runner runs background jobs until its context ends. Interval jobs use a
// ticker; calendar jobs use a cron schedule.
type Runner struct {
	ctx  context.Context
	log  *zap.Logger
	cron *cron.Cron
	once sync.Once
}

func New(ctx context.Context, loc *time.Location, log *zap.Logger) *Runner {
	if loc == nil {
		loc = time.Local
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	return &Runner{ctx: ctx, log: log, cron: c}
}

func (r *Runner) Every(interval time.Duration, name string, fn Job) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-r.ctx.Done():
				return
			case <-t.C:
				r.run(name, fn)
			}
		}
	}()
}

// Cron registers fn under a standard five-field spec and starts the scheduler.
func (r *Runner) Cron(spec, name string, fn Job) error {
	if _, err := r.cron.AddFunc(spec, func() { r.run(name, fn) }); err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	r.once.Do(func() {
		r.cron.Start()
		go func() {
			<-r.ctx.Done()
			<-r.cron.Stop().Done()
		}()
	})
	return nil
}

func (r *Runner) run(name string, fn Job) {
	if r.ctx.Err() != nil {
		return
	}
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			jobErrors.WithLabelValues(name).Inc()
			observability.CaptureErr(fmt.Errorf("panic in job %s: %v", name, p))
			r.log.Error("job panicked", zap.String("job", name), zap.Any("panic", p))
		}
		jobRuns.WithLabelValues(name).Inc()
		jobDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()
	if err := fn(r.ctx); err != nil {
		jobErrors.WithLabelValues(name).Inc()
		observability.CaptureErr(err)
		r.log.Warn("job failed", zap.String("job", name), zap.Error(err))
		return
	}
	jobLastSuccess.WithLabelValues(name).SetToCurrentTime()
}
