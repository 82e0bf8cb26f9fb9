// Package scheduler triggers radar cycles on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/STRATINT/radar/internal/models"
	"github.com/STRATINT/radar/internal/radar"
)

// DefaultSchedule runs a cycle every six hours.
const DefaultSchedule = "0 */6 * * *"

// Runner executes a monitoring cycle. *radar.Engine implements it.
type Runner interface {
	RunCycle(ctx context.Context, req radar.CycleRequest) (models.CycleResult, error)
}

// CycleScheduler runs cycles on a cron expression. A tick that fires while
// the previous scheduled cycle is still running is skipped.
type CycleScheduler struct {
	runner   Runner
	request  radar.CycleRequest
	expr     string
	cron     *cron.Cron
	logger   *slog.Logger
	running  atomic.Bool
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewCycleScheduler validates expr (standard five-field cron, or descriptors
// like "@hourly") and builds a scheduler issuing request on every tick.
func NewCycleScheduler(runner Runner, expr string, request radar.CycleRequest, logger *slog.Logger) (*CycleScheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(expr); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", expr, err)
	}

	request.Trigger = radar.TriggerSchedule
	cronLogger := &slogCronLogger{logger: logger}

	return &CycleScheduler{
		runner:   runner,
		request:  request,
		expr:     expr,
		cron:     cron.New(cron.WithParser(parser), cron.WithLogger(cronLogger), cron.WithChain(cron.Recover(cronLogger))),
		logger:   logger,
		stopChan: make(chan struct{}),
	}, nil
}

// Start runs one cycle immediately, then blocks running cycles on schedule
// until Stop is called or ctx is cancelled.
func (s *CycleScheduler) Start(ctx context.Context) {
	s.logger.Info("Starting cycle scheduler", "schedule", s.expr)

	if _, err := s.cron.AddFunc(s.expr, func() { s.RunOnce(ctx) }); err != nil {
		s.logger.Error("Failed to register schedule", "schedule", s.expr, "error", err)
		return
	}

	s.RunOnce(ctx)
	s.cron.Start()
	s.logger.Info("Next scheduled cycle", "at", s.Next())

	select {
	case <-s.stopChan:
		s.logger.Info("Cycle scheduler stopped")
	case <-ctx.Done():
		s.logger.Info("Cycle scheduler stopping due to context cancellation")
	}

	<-s.cron.Stop().Done()
}

// Stop stops the scheduler. It is safe to call more than once.
func (s *CycleScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// RunOnce runs a scheduled cycle unless one is already in flight. It reports
// whether a cycle ran.
func (s *CycleScheduler) RunOnce(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("Previous scheduled cycle still running, skipping tick")
		return false
	}
	defer s.running.Store(false)

	result, err := s.runner.RunCycle(ctx, s.request)
	if err != nil {
		s.logger.Error("Scheduled cycle failed", "error", err)
		return true
	}

	counts := result.CountBySeverity()
	s.logger.Info("Scheduled cycle complete",
		"cycle_id", result.ID,
		"monitored", len(result.SourcesMonitored),
		"alerts", result.AlertsCount,
		"critical", counts[models.SeverityCritical],
		"high", counts[models.SeverityHigh])
	return true
}

// Next returns the next activation time, or the zero time before Start.
func (s *CycleScheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// slogCronLogger adapts slog to cron.Logger.
type slogCronLogger struct {
	logger *slog.Logger
}

func (l *slogCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l *slogCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
