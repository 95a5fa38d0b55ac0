package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/vaidarjogo/go-confirmation-service/internal/domain"
	"github.com/vaidarjogo/go-confirmation-service/internal/metrics"
	"github.com/vaidarjogo/go-confirmation-service/internal/shared/errors"
	"github.com/vaidarjogo/go-confirmation-service/internal/shared/logger"
)

// Engine is the confirmation engine as the scheduler sees it
type Engine interface {
	ProcessAll(ctx context.Context) *domain.RunSummary
}

// State is a snapshot of the scheduler, returned from status queries
type State struct {
	Running         bool               `json:"running"`
	IntervalMinutes int                `json:"interval_minutes"`
	LastRun         *domain.RunSummary `json:"last_run,omitempty"`
	LastRunAt       *time.Time         `json:"last_run_at,omitempty"`
}

// ConfirmationScheduler fires the confirmation engine on a fixed cadence.
// Ticks are single-flight: if a run is still in progress when the next tick
// fires, the tick is skipped and the engine runs again at the next interval.
// Stopping never interrupts an in-flight run; it only prevents new ticks.
type ConfirmationScheduler struct {
	engine Engine
	log    *logger.Logger

	mu       sync.Mutex
	cron     *cron.Cron
	running  bool
	interval int

	inFlight  atomic.Bool
	lastMu    sync.RWMutex
	lastRun   *domain.RunSummary
	lastRunAt *time.Time
}

// NewConfirmationScheduler creates a new confirmation scheduler
func NewConfirmationScheduler(engine Engine, intervalMinutes int, log *logger.Logger) *ConfirmationScheduler {
	if intervalMinutes < 1 || intervalMinutes > 60 {
		intervalMinutes = 5
	}

	return &ConfirmationScheduler{
		engine:   engine,
		interval: intervalMinutes,
		log:      log,
	}
}

// Start starts the periodic tick
func (s *ConfirmationScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.log.Warn("Scheduler already running")
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %dm", s.interval), s.tick); err != nil {
		return err
	}
	c.Start()

	s.cron = c
	s.running = true
	s.log.Info("Scheduler started", "interval_minutes", s.interval)
	return nil
}

// Stop stops scheduling new ticks; an in-flight run completes on its own
func (s *ConfirmationScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		s.log.Warn("Scheduler not running")
		return
	}

	s.cron.Stop()
	s.cron = nil
	s.running = false
	s.log.Info("Scheduler stopped")
}

// SetInterval changes the tick interval and restarts the cadence if running
func (s *ConfirmationScheduler) SetInterval(minutes int) error {
	if minutes < 1 || minutes > 60 {
		return errors.NewValidationError("interval must be between 1 and 60 minutes", nil)
	}

	s.mu.Lock()
	wasRunning := s.running
	s.mu.Unlock()

	if wasRunning {
		s.Stop()
	}

	s.mu.Lock()
	s.interval = minutes
	s.mu.Unlock()

	s.log.Info("Scheduler interval changed", "interval_minutes", minutes)

	if wasRunning {
		return s.Start()
	}
	return nil
}

// RunNow triggers the engine outside the cadence, e.g. from the admin
// surface. It may overlap a periodic tick; the dispatch ledger's conditional
// writes keep sends at-most-once across both.
func (s *ConfirmationScheduler) RunNow(ctx context.Context) *domain.RunSummary {
	s.log.Info("Manual engine run triggered")
	summary := s.engine.ProcessAll(ctx)
	s.recordRun(summary)
	return summary
}

// Status returns a snapshot of the scheduler state
func (s *ConfirmationScheduler) Status() State {
	s.mu.Lock()
	running := s.running
	interval := s.interval
	s.mu.Unlock()

	s.lastMu.RLock()
	defer s.lastMu.RUnlock()

	return State{
		Running:         running,
		IntervalMinutes: interval,
		LastRun:         s.lastRun,
		LastRunAt:       s.lastRunAt,
	}
}

func (s *ConfirmationScheduler) tick() {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.log.Warn("Previous run still in progress, skipping tick")
		metrics.SchedulerTicks.WithLabelValues("skipped").Inc()
		return
	}
	defer s.inFlight.Store(false)

	metrics.SchedulerTicks.WithLabelValues("run").Inc()

	summary := s.engine.ProcessAll(context.Background())
	s.recordRun(summary)
}

func (s *ConfirmationScheduler) recordRun(summary *domain.RunSummary) {
	now := time.Now()

	s.lastMu.Lock()
	s.lastRun = summary
	s.lastRunAt = &now
	s.lastMu.Unlock()
}
