package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Runner owns the background jobs: the settlement drain and the periodic
// snapshot flush. Jobs run off the request path on fixed intervals and share
// a context that is cancelled on shutdown.
type Runner struct {
	scheduler gocron.Scheduler
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewRunner creates a stopped scheduler in UTC.
func NewRunner() (*Runner, error) {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{scheduler: scheduler, ctx: ctx, cancel: cancel}, nil
}

// AddInterval registers a job to run every interval.
func (r *Runner) AddInterval(name string, every time.Duration, fn func(ctx context.Context)) error {
	_, err := r.scheduler.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() {
			start := time.Now()
			fn(r.ctx)
			log.Printf("⏰ [JOBS] %s completed in %v", name, time.Since(start))
		}),
		gocron.WithName(name),
	)
	if err != nil {
		return fmt.Errorf("failed to register job %s: %w", name, err)
	}
	log.Printf("✅ [JOBS] Registered job %q every %v", name, every)
	return nil
}

// Start begins running registered jobs.
func (r *Runner) Start() {
	r.scheduler.Start()
	log.Println("🚀 [JOBS] Background jobs started")
}

// Stop cancels running jobs and shuts the scheduler down.
func (r *Runner) Stop() error {
	r.cancel()
	return r.scheduler.Shutdown()
}
