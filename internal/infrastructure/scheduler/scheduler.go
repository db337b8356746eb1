// Package scheduler runs periodic jobs on every instance. Jobs take their own
// distributed locks, so overlapping instances do not duplicate work.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/iho/goescrow/internal/infrastructure/metrics"
)

// Job is a periodic task.
type Job struct {
	Name     string
	Interval time.Duration
	// Timeout bounds a single run. Zero means the interval.
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Scheduler wraps a cron instance with logging and metrics.
type Scheduler struct {
	cron    *cron.Cron
	logger  zerolog.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Scheduler. m may be nil.
func New(logger zerolog.Logger, m *metrics.Metrics) *Scheduler {
	logger = logger.With().Str("component", "scheduler").Logger()
	cl := cronLogger{logger: logger}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)), cron.WithLogger(cl)),
		logger:  logger,
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Add registers job to run every job.Interval.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("job needs a name and a run function")
	}
	if job.Interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", job.Name)
	}

	_, err := s.cron.AddFunc("@every "+job.Interval.String(), func() { s.run(job) })
	if err != nil {
		return fmt.Errorf("schedule job %s: %w", job.Name, err)
	}

	s.logger.Info().Str("job", job.Name).Dur("interval", job.Interval).Msg("job scheduled")
	return nil
}

// Start runs the scheduler in the background. Runs are cancelled when ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()

	select {
	case <-s.cron.Stop().Done():
		s.logger.Info().Msg("scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn().Msg("scheduler stop timed out with jobs still running")
	}
}

func (s *Scheduler) run(job Job) {
	s.mu.Lock()
	parent := s.ctx
	s.mu.Unlock()

	timeout := job.Timeout
	if timeout <= 0 {
		timeout = job.Interval
	}

	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	logger := s.logger.With().Str("job", job.Name).Logger()
	ctx = logger.WithContext(ctx)

	start := time.Now()
	err := job.Run(ctx)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("job failed")
	} else {
		logger.Debug().Dur("duration", time.Since(start)).Msg("job finished")
	}

	if s.metrics != nil {
		s.metrics.JobRuns.WithLabelValues(job.Name, outcome).Inc()
	}
}

type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
