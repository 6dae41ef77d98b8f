package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jwalitptl/church-api/pkg/logger"
)

// Job is a named unit of scheduled work.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

// Scheduler runs jobs on cron specs evaluated in the church timezone.
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
	logger  *logger.Logger
	baseCtx context.Context
	cancel  context.CancelFunc
}

func NewScheduler(loc *time.Location, timeout time.Duration, log *logger.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		timeout: timeout,
		logger:  log,
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Add registers job. An unparsable spec is returned as an error.
func (s *Scheduler) Add(job Job) error {
	if job.Run == nil {
		return fmt.Errorf("job %s has no run function", job.Name)
	}
	if _, err := s.cron.AddFunc(job.Spec, func() { s.runOnce(job) }); err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", job.Spec, job.Name, err)
	}
	s.logger.Info("Job scheduled", "job", job.Name, "spec", job.Spec)
	return nil
}

func (s *Scheduler) runOnce(job Job) {
	ctx := s.baseCtx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	log := s.logger.WithFields(map[string]interface{}{"job": job.Name})
	if err := job.Run(ctx); err != nil {
		log.Error(err, "Job failed", "duration", time.Since(start).String())
		return
	}
	log.Info("Job finished", "duration", time.Since(start).String())
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs, cancels in-flight ones and waits for them or ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
