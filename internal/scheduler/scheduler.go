package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"brokerage-conductor/internal/logger"
)

// Job is one recurring sync task.
type Job interface {
	Run(ctx context.Context) error
	Name() string
}

// Scheduler runs sync jobs on cron schedules. Overlapping runs of the same
// job are skipped rather than queued; a broker that is slow to respond must
// not pile up resyncs behind itself.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
}

func New(ctx context.Context) *Scheduler {
	return &Scheduler{cron: cron.New(), ctx: ctx}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info(s.ctx, "Scheduler started")
}

// Stop stops scheduling and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logger.Info(s.ctx, "Scheduler stopped")
}

// AddJob registers a job. Schedule accepts standard five-field cron specs and
// the @every / @hourly descriptors.
func (s *Scheduler) AddJob(schedule string, job Job) error {
	spec, err := cron.ParseStandard(schedule)
	if err != nil {
		return fmt.Errorf("parse schedule %q for job %s: %w", schedule, job.Name(), err)
	}
	wrapped := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(func() {
		s.run(job)
	}))
	s.cron.Schedule(spec, wrapped)
	logger.Info(s.ctx, "Job registered", "job", job.Name(), "schedule", schedule)
	return nil
}

func (s *Scheduler) run(job Job) {
	logger.Debug(s.ctx, "Running job", "job", job.Name())
	if err := job.Run(s.ctx); err != nil {
		logger.ErrorWithErr(s.ctx, "Job failed", err, "job", job.Name())
		return
	}
	logger.Debug(s.ctx, "Job completed", "job", job.Name())
}

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(job Job) error {
	logger.Info(s.ctx, "Running job immediately", "job", job.Name())
	return job.Run(s.ctx)
}
