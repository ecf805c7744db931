package safety

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/snipebot/internal/config"
	"github.com/alanyoungcy/snipebot/internal/domain"
)

type stubStop struct {
	mu      sync.Mutex
	present bool
}

func (s *stubStop) Present() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.present
}

func (s *stubStop) set(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.present = v
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingNotifier) Notify(_ context.Context, event, _, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func safetyCfg() config.SafetyConfig {
	return config.Defaults().Safety
}

func newTestMonitor(cfg config.SafetyConfig, paper bool, stop domain.ManualStop, n Notifier) *Monitor {
	return NewMonitor(cfg, paper, stop, n, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestConsecutiveLossesTripAndLatch(t *testing.T) {
	ctx := context.Background()
	n := &recordingNotifier{}
	m := newTestMonitor(safetyCfg(), true, nil, n) // limit 5

	for i := 0; i < 5; i++ {
		assert.True(t, m.IsSafeToTrade(), "loss %d", i)
		m.RecordOutcome(ctx, false)
	}

	assert.False(t, m.IsSafeToTrade())
	assert.Equal(t, domain.TripReasonConsecutiveLosses, m.State().TripReason)
	assert.Equal(t, 1, n.count())

	// A subsequent win must not clear the trip.
	m.RecordOutcome(ctx, true)
	assert.False(t, m.IsSafeToTrade())

	require.NoError(t, m.Reset(ctx))
	assert.True(t, m.IsSafeToTrade())
	assert.Equal(t, 0, m.State().ConsecutiveLosses)
}

func TestGuardReportsHaltCause(t *testing.T) {
	ctx := context.Background()
	stop := &stubStop{}
	m := newTestMonitor(safetyCfg(), true, stop, nil)

	require.NoError(t, m.Guard())

	stop.set(true)
	m.CheckManualStop(ctx)

	err := m.Guard()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTradingHalted)
	assert.Contains(t, err.Error(), "breaker tripped")
}

func TestWinResetsStreak(t *testing.T) {
	ctx := context.Background()
	m := newTestMonitor(safetyCfg(), true, nil, nil)

	for i := 0; i < 4; i++ {
		m.RecordOutcome(ctx, false)
	}
	m.RecordOutcome(ctx, true)
	for i := 0; i < 4; i++ {
		m.RecordOutcome(ctx, false)
	}

	assert.True(t, m.IsSafeToTrade())
	assert.Equal(t, 4, m.State().ConsecutiveLosses)
}

func TestDrawdownTrip(t *testing.T) {
	ctx := context.Background()
	cfg := safetyCfg() // 20% max drawdown
	m := newTestMonitor(cfg, true, nil, nil)

	m.UpdatePortfolioMetrics(ctx, 10.0, 8.0, 2.0, 10.0)
	assert.True(t, m.IsSafeToTrade())

	// 15% down: still safe.
	m.UpdatePortfolioMetrics(ctx, 8.5, 7.0, 1.5, 10.0)
	assert.True(t, m.IsSafeToTrade())

	// 25% down from the peak of 10: trip.
	m.UpdatePortfolioMetrics(ctx, 7.5, 6.0, 1.5, 10.0)
	assert.False(t, m.IsSafeToTrade())
	assert.Equal(t, domain.TripReasonDrawdown, m.State().TripReason)
}

func TestExternalFailureWindow(t *testing.T) {
	ctx := context.Background()
	cfg := safetyCfg()
	cfg.MaxExternalFailures = 3
	m := newTestMonitor(cfg, true, nil, nil)

	m.RecordExternalFailure(ctx)
	m.RecordExternalFailure(ctx)
	assert.True(t, m.IsSafeToTrade())

	m.RecordExternalFailure(ctx)
	assert.False(t, m.IsSafeToTrade())
	assert.Equal(t, domain.TripReasonExternalFailures, m.State().TripReason)
}

func TestReserveFloorSkippedInPaperMode(t *testing.T) {
	ctx := context.Background()
	cfg := safetyCfg() // MinReserve 0.1

	paper := newTestMonitor(cfg, true, nil, nil)
	paper.UpdatePortfolioMetrics(ctx, 10.0, 0.01, 1.0, 10.0)
	assert.True(t, paper.IsSafeToTrade())

	live := newTestMonitor(cfg, false, nil, nil)
	live.UpdatePortfolioMetrics(ctx, 10.0, 0.01, 1.0, 10.0)
	assert.False(t, live.IsSafeToTrade())
	assert.Equal(t, domain.TripReasonLowBalance, live.State().TripReason)
}

func TestHeatIsWarningOnly(t *testing.T) {
	ctx := context.Background()
	cfg := safetyCfg() // HeatWarningPct 0.60
	m := newTestMonitor(cfg, true, nil, nil)

	m.UpdatePortfolioMetrics(ctx, 10.0, 2.0, 8.0, 10.0)

	assert.True(t, m.IsSafeToTrade())
	st := m.State()
	assert.True(t, st.HeatWarning)
	assert.InDelta(t, 0.8, st.PortfolioHeatPct, 1e-9)
}

func TestManualStopTripsAndClearsSignalOnly(t *testing.T) {
	ctx := context.Background()
	stop := &stubStop{}
	m := newTestMonitor(safetyCfg(), true, stop, nil)

	stop.set(true)
	m.CheckManualStop(ctx)
	assert.False(t, m.IsSafeToTrade())
	assert.True(t, m.State().ManualStopActive)

	// Removing the signal clears the flag but the trip stays latched.
	stop.set(false)
	m.CheckManualStop(ctx)
	st := m.State()
	assert.False(t, st.ManualStopActive)
	assert.True(t, st.Tripped)
	assert.False(t, m.IsSafeToTrade())
}

func TestResetRefusedWhileManualStopPresent(t *testing.T) {
	ctx := context.Background()
	stop := &stubStop{}
	m := newTestMonitor(safetyCfg(), true, stop, nil)

	stop.set(true)
	m.CheckManualStop(ctx)
	require.False(t, m.IsSafeToTrade())

	assert.Error(t, m.Reset(ctx))

	stop.set(false)
	require.NoError(t, m.Reset(ctx))
	assert.True(t, m.IsSafeToTrade())
}

func TestTripReasonKeepsFirstCause(t *testing.T) {
	ctx := context.Background()
	cfg := safetyCfg()
	cfg.MaxConsecutiveLosses = 1
	m := newTestMonitor(cfg, true, nil, nil)

	m.RecordOutcome(ctx, false)
	require.False(t, m.IsSafeToTrade())

	// A later breach must not rewrite the original reason.
	m.UpdatePortfolioMetrics(ctx, 10.0, 8.0, 2.0, 10.0)
	m.UpdatePortfolioMetrics(ctx, 1.0, 0.5, 0.5, 10.0)
	assert.Equal(t, domain.TripReasonConsecutiveLosses, m.State().TripReason)
}

func TestFileSentinel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "STOP")
	s := NewFileSentinel(path)

	assert.False(t, s.Present())

	require.NoError(t, os.WriteFile(path, nil, 0o600))
	assert.True(t, s.Present())

	require.NoError(t, os.Remove(path))
	assert.False(t, s.Present())

	assert.False(t, NewFileSentinel("").Present())
}

func TestRunStopsOnContextCancel(t *testing.T) {
	cfg := safetyCfg()
	cfg.CheckInterval.Duration = 10 * time.Millisecond
	m := newTestMonitor(cfg, true, &stubStop{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
