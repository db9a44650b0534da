package scheduler

import (
	"context"
	"fmt"
	"time"

	"anoa.com/innoliber/pkg/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is background work. An empty Schedule registers the job for
// on-demand runs only.
type Job interface {
	Name() string
	Schedule() string
	Run(ctx context.Context) error
}

type Scheduler struct {
	cron   *cron.Cron
	jobs   []Job
	ctx    context.Context
	cancel context.CancelFunc
}

// New builds a scheduler whose scheduled runs never overlap themselves.
func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{}))),
		jobs:   make([]Job, 0),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Register adds job and schedules it when it carries a cron spec.
func (s *Scheduler) Register(job Job) error {
	log := logger.Get().With(zap.String("job", job.Name()))

	if spec := job.Schedule(); spec != "" {
		if _, err := s.cron.AddFunc(spec, func() { s.run(s.ctx, job) }); err != nil {
			return fmt.Errorf("schedule %s: %w", job.Name(), err)
		}
		log.Info("job scheduled", zap.String("cron", spec))
	} else {
		log.Info("job registered for on-demand runs")
	}

	s.jobs = append(s.jobs, job)
	return nil
}

func (s *Scheduler) run(ctx context.Context, job Job) error {
	log := logger.Get().With(zap.String("job", job.Name()))
	start := time.Now()

	if err := job.Run(ctx); err != nil {
		log.Error("job failed", zap.Duration("took", time.Since(start)), zap.Error(err))
		return err
	}
	log.Info("job completed", zap.Duration("took", time.Since(start)))
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Get().Info("scheduler started", zap.Int("jobs", len(s.jobs)))
}

// Stop prevents new runs and waits for running ones until ctx is done.
// Running jobs see their context cancelled once ctx expires.
func (s *Scheduler) Stop(ctx context.Context) {
	defer s.cancel()

	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// RunByName runs a registered job immediately.
func (s *Scheduler) RunByName(ctx context.Context, name string) error {
	for _, job := range s.jobs {
		if job.Name() == name {
			return s.run(ctx, job)
		}
	}
	return fmt.Errorf("job %q is not registered", name)
}

func (s *Scheduler) Jobs() []string {
	names := make([]string, len(s.jobs))
	for i, job := range s.jobs {
		names[i] = job.Name()
	}
	return names
}

// cronLogger routes cron's own messages, such as skipped runs, to zap.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Get().Sugar().Infow(msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Get().Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
