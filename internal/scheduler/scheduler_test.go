package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vaidarjogo/go-confirmation-service/internal/domain"
	"github.com/vaidarjogo/go-confirmation-service/internal/shared/logger"
)

type stubEngine struct {
	runs    atomic.Int32
	block   chan struct{}
	summary domain.RunSummary
}

func (e *stubEngine) ProcessAll(_ context.Context) *domain.RunSummary {
	e.runs.Add(1)
	if e.block != nil {
		<-e.block
	}
	summary := e.summary
	return &summary
}

func TestNewSchedulerClampsInterval(t *testing.T) {
	log := logger.NewLogger()

	for _, minutes := range []int{0, -5, 61, 1000} {
		s := NewConfirmationScheduler(&stubEngine{}, minutes, log)
		assert.Equal(t, 5, s.Status().IntervalMinutes, "interval %d should fall back to default", minutes)
	}

	s := NewConfirmationScheduler(&stubEngine{}, 15, log)
	assert.Equal(t, 15, s.Status().IntervalMinutes)
}

func TestStartStop(t *testing.T) {
	s := NewConfirmationScheduler(&stubEngine{}, 5, logger.NewLogger())

	require.NoError(t, s.Start())
	assert.True(t, s.Status().Running)

	// Starting twice is a no-op, not an error
	require.NoError(t, s.Start())
	assert.True(t, s.Status().Running)

	s.Stop()
	assert.False(t, s.Status().Running)

	// Stopping twice is likewise harmless
	s.Stop()
	assert.False(t, s.Status().Running)
}

func TestSetIntervalValidation(t *testing.T) {
	s := NewConfirmationScheduler(&stubEngine{}, 5, logger.NewLogger())

	assert.Error(t, s.SetInterval(0))
	assert.Error(t, s.SetInterval(61))
	assert.Error(t, s.SetInterval(-1))
	assert.Equal(t, 5, s.Status().IntervalMinutes, "invalid interval must leave the cadence unchanged")

	require.NoError(t, s.SetInterval(10))
	assert.Equal(t, 10, s.Status().IntervalMinutes)
}

func TestSetIntervalRestartsRunningScheduler(t *testing.T) {
	s := NewConfirmationScheduler(&stubEngine{}, 5, logger.NewLogger())
	require.NoError(t, s.Start())
	defer s.Stop()

	require.NoError(t, s.SetInterval(1))

	state := s.Status()
	assert.True(t, state.Running)
	assert.Equal(t, 1, state.IntervalMinutes)
}

func TestTickIsSingleFlight(t *testing.T) {
	engine := &stubEngine{block: make(chan struct{})}
	s := NewConfirmationScheduler(engine, 5, logger.NewLogger())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.tick()
	}()

	// Wait until the first tick is inside the engine
	require.Eventually(t, func() bool { return engine.runs.Load() == 1 }, time.Second, time.Millisecond)

	// Overlapping ticks must be dropped, not queued
	s.tick()
	s.tick()
	assert.EqualValues(t, 1, engine.runs.Load())

	close(engine.block)
	wg.Wait()

	// With the run finished the next tick goes through
	s.tick()
	assert.EqualValues(t, 2, engine.runs.Load())
}

func TestRunNowRecordsLastRun(t *testing.T) {
	engine := &stubEngine{summary: domain.RunSummary{Processed: 7, Sent: 3}}
	s := NewConfirmationScheduler(engine, 5, logger.NewLogger())

	summary := s.RunNow(context.Background())
	require.NotNil(t, summary)
	assert.Equal(t, 3, summary.Sent)

	state := s.Status()
	require.NotNil(t, state.LastRun)
	assert.Equal(t, 7, state.LastRun.Processed)
	require.NotNil(t, state.LastRunAt)
	assert.WithinDuration(t, time.Now(), *state.LastRunAt, time.Minute)
}
