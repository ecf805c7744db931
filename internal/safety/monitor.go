// Package safety implements the circuit breaker that supervises all trading.
// The monitor aggregates portfolio health (drawdown, loss streaks, external
// failure rate, reserve floor, manual stop) and latches into a tripped state
// that only an explicit operator reset can clear.
package safety

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/snipebot/internal/config"
	"github.com/alanyoungcy/snipebot/internal/domain"
)

// Notifier receives trip alerts. *notify.Notifier satisfies it.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Monitor is the process-wide circuit breaker. All state lives behind one
// mutex; every check that finds a breach trips immediately rather than
// waiting for the remaining checks.
type Monitor struct {
	mu sync.Mutex

	tripped           bool
	tripReason        domain.TripReason
	trippedAt         time.Time
	manualStopActive  bool
	peakValue         float64
	currentValue      float64
	totalCapital      float64
	heatPct           float64
	consecutiveLosses int
	failureTimes      []time.Time
	lastKnownBalance  float64
	balanceKnown      bool

	cfg        config.SafetyConfig
	paperMode  bool
	manualStop domain.ManualStop
	notifier   Notifier
	logger     *slog.Logger
}

// NewMonitor creates an armed Monitor. In paper mode the minimum-reserve
// check is skipped; that is a deliberate override for simulated balances, not
// a silent bypass, and it is logged once at construction.
func NewMonitor(cfg config.SafetyConfig, paperMode bool, stop domain.ManualStop, notifier Notifier, logger *slog.Logger) *Monitor {
	m := &Monitor{
		cfg:        cfg,
		paperMode:  paperMode,
		manualStop: stop,
		notifier:   notifier,
		logger:     logger.With(slog.String("component", "safety_monitor")),
	}
	if paperMode {
		m.logger.Info("paper mode: minimum-reserve check disabled")
	}
	return m
}

// IsSafeToTrade reports whether new entries are permitted: the breaker must
// not be tripped and no manual-stop signal may be active.
func (m *Monitor) IsSafeToTrade() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.tripped && !m.manualStopActive
}

// Guard returns domain.ErrTradingHalted, wrapped with the cause, when new
// entries are not permitted. The entry path uses it so rejections carry the
// halt reason.
func (m *Monitor) Guard() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tripped {
		return fmt.Errorf("safety: breaker tripped (%s): %w", m.tripReason, domain.ErrTradingHalted)
	}
	if m.manualStopActive {
		return fmt.Errorf("safety: manual stop active: %w", domain.ErrTradingHalted)
	}
	return nil
}

// RecordOutcome feeds a trade result into the loss-streak check. A win
// resets the streak; a loss extends it and may trip the breaker.
func (m *Monitor) RecordOutcome(ctx context.Context, isWin bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if isWin {
		m.consecutiveLosses = 0
		return
	}
	m.consecutiveLosses++
	if m.consecutiveLosses >= m.cfg.MaxConsecutiveLosses {
		m.tripLocked(ctx, domain.TripReasonConsecutiveLosses,
			fmt.Sprintf("%d consecutive losses (limit %d)", m.consecutiveLosses, m.cfg.MaxConsecutiveLosses))
	}
}

// RecordExternalFailure appends a failure timestamp to the sliding window and
// trips when the window count reaches the configured maximum.
func (m *Monitor) RecordExternalFailure(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.failureTimes = append(m.failureTimes, now)
	m.pruneFailuresLocked(now)

	if len(m.failureTimes) >= m.cfg.MaxExternalFailures {
		m.tripLocked(ctx, domain.TripReasonExternalFailures,
			fmt.Sprintf("%d external failures within %s (limit %d)",
				len(m.failureTimes), m.cfg.FailureWindow.Duration, m.cfg.MaxExternalFailures))
	}
}

// UpdatePortfolioMetrics records the latest portfolio value, uncommitted
// balance, and committed exposure, then runs the drawdown, reserve, and heat
// checks. Total capital is the configured input, never an inferred balance.
func (m *Monitor) UpdatePortfolioMetrics(ctx context.Context, portfolioValue, availableBalance, committed, totalCapital float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.currentValue = portfolioValue
	if portfolioValue > m.peakValue {
		m.peakValue = portfolioValue
	}
	m.lastKnownBalance = availableBalance
	m.balanceKnown = true
	m.totalCapital = totalCapital
	if totalCapital > 0 {
		m.heatPct = committed / totalCapital
	}

	if m.peakValue > 0 {
		drawdown := (m.peakValue - portfolioValue) / m.peakValue
		if drawdown > m.cfg.MaxDrawdownPct {
			m.tripLocked(ctx, domain.TripReasonDrawdown,
				fmt.Sprintf("drawdown %.1f%% exceeds %.1f%% (peak %.6g, current %.6g)",
					drawdown*100, m.cfg.MaxDrawdownPct*100, m.peakValue, portfolioValue))
		}
	}

	if !m.paperMode && availableBalance < m.cfg.MinReserve {
		m.tripLocked(ctx, domain.TripReasonLowBalance,
			fmt.Sprintf("balance %.6g below reserve floor %.6g", availableBalance, m.cfg.MinReserve))
	}

	// Heat is a warning, never a trip: elevated but survivable.
	if m.heatPct > m.cfg.HeatWarningPct {
		m.logger.WarnContext(ctx, "portfolio heat above threshold",
			slog.Float64("heat_pct", m.heatPct),
			slog.Float64("threshold", m.cfg.HeatWarningPct),
		)
	}
}

// CheckManualStop polls the manual-stop signal. Its presence trips the
// breaker; its later absence clears only the signal-present flag, never the
// trip itself.
func (m *Monitor) CheckManualStop(ctx context.Context) {
	present := m.manualStop != nil && m.manualStop.Present()

	m.mu.Lock()
	defer m.mu.Unlock()

	if present && !m.manualStopActive {
		m.manualStopActive = true
		m.tripLocked(ctx, domain.TripReasonManualStop, "manual stop signal present")
		return
	}
	if !present && m.manualStopActive {
		m.manualStopActive = false
		m.logger.InfoContext(ctx, "manual stop signal removed; trip remains latched until reset")
	}
}

// Reset re-arms a tripped breaker. Operator-invoked only; trips never
// self-heal. Resetting while the manual-stop signal is still present is
// refused, since the next check cycle would trip again immediately.
func (m *Monitor) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.tripped {
		return nil
	}
	if m.manualStop != nil && m.manualStop.Present() {
		return fmt.Errorf("safety: cannot reset while manual stop signal is present")
	}

	m.logger.InfoContext(ctx, "circuit breaker reset",
		slog.String("previous_reason", string(m.tripReason)),
		slog.Duration("tripped_for", time.Since(m.trippedAt)),
	)
	m.tripped = false
	m.tripReason = ""
	m.trippedAt = time.Time{}
	m.consecutiveLosses = 0
	m.failureTimes = nil
	m.manualStopActive = false
	return nil
}

// State returns a snapshot of the breaker for the operator API.
func (m *Monitor) State() domain.SafetyState {
	m.mu.Lock()
	defer m.mu.Unlock()

	drawdown := 0.0
	if m.peakValue > 0 {
		drawdown = (m.peakValue - m.currentValue) / m.peakValue
	}
	m.pruneFailuresLocked(time.Now())

	return domain.SafetyState{
		Tripped:            m.tripped,
		TripReason:         m.tripReason,
		TrippedAt:          m.trippedAt,
		ManualStopActive:   m.manualStopActive,
		PeakPortfolioValue: m.peakValue,
		CurrentDrawdownPct: drawdown,
		ConsecutiveLosses:  m.consecutiveLosses,
		RecentFailures:     len(m.failureTimes),
		PortfolioHeatPct:   m.heatPct,
		HeatWarning:        m.heatPct > m.cfg.HeatWarningPct,
		LastKnownBalance:   m.lastKnownBalance,
	}
}

// Run polls the manual-stop signal on the configured interval until the
// context is cancelled. Metric-driven checks run inline with updates; only
// the external sentinel needs a timer.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.CheckInterval.Duration)
	defer ticker.Stop()

	m.logger.InfoContext(ctx, "safety monitor started",
		slog.Duration("check_interval", m.cfg.CheckInterval.Duration),
	)

	for {
		select {
		case <-ctx.Done():
			m.logger.InfoContext(ctx, "safety monitor stopped")
			return ctx.Err()
		case <-ticker.C:
			m.CheckManualStop(ctx)
		}
	}
}

// tripLocked latches the breaker with a reason. Callers must hold m.mu. A
// breaker that is already tripped stays on its original reason.
func (m *Monitor) tripLocked(ctx context.Context, reason domain.TripReason, detail string) {
	if m.tripped {
		return
	}
	m.tripped = true
	m.tripReason = reason
	m.trippedAt = time.Now().UTC()

	m.logger.ErrorContext(ctx, "circuit breaker tripped",
		slog.String("reason", string(reason)),
		slog.String("detail", detail),
	)
	if m.notifier != nil {
		if err := m.notifier.Notify(ctx, "safety_tripped", "Trading halted",
			fmt.Sprintf("Circuit breaker tripped: %s. %s. Manual reset required.", reason, detail)); err != nil {
			m.logger.ErrorContext(ctx, "trip notification failed",
				slog.String("error", err.Error()),
			)
		}
	}
}

// pruneFailuresLocked drops failure timestamps outside the trailing window.
// Callers must hold m.mu.
func (m *Monitor) pruneFailuresLocked(now time.Time) {
	cutoff := now.Add(-m.cfg.FailureWindow.Duration)
	kept := m.failureTimes[:0]
	for _, t := range m.failureTimes {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	m.failureTimes = kept
}
