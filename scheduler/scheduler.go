// Package scheduler runs Moodle's maintenance cron in-process.
// Containerized deployments have no system crond, so the job that a
// bare-metal install would register in a crontab runs here instead.
package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a cancellable unit of scheduled work.
type Job func(ctx context.Context) error

// Scheduler wraps a cron runner. Overlapping runs of the same job are
// skipped rather than queued: a slow Moodle cron pass must not pile
// up behind itself.
type Scheduler struct {
	c   *cron.Cron
	log *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func New(log *zap.Logger) *Scheduler {
	cl := cronLogger{log: log}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		c: cron.New(
			cron.WithChain(cron.SkipIfStillRunning(cl), cron.Recover(cl)),
		),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Register adds a job under the given cron spec (standard five-field
// syntax or descriptors like "@every 5m").
func (s *Scheduler) Register(spec, name string, job Job) error {
	_, err := s.c.AddFunc(spec, func() {
		if err := job(s.ctx); err != nil && s.ctx.Err() == nil {
			s.log.Error("scheduled job failed", zap.String("job", name), zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	s.log.Info("registered job", zap.String("job", name), zap.String("spec", spec))
	return nil
}

// Start begins running registered jobs in their own goroutines.
func (s *Scheduler) Start() {
	s.c.Start()
}

// Stop cancels in-flight jobs and blocks until they have returned.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.c.Stop().Done()
}

// cronLogger adapts the cron library's logging callbacks to zap.
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
