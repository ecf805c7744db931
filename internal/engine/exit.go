package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/snipebot/internal/config"
	"github.com/alanyoungcy/snipebot/internal/domain"
)

// ExitEvaluator computes per-position, per-tick exit decisions. It is pure:
// the caller supplies the position snapshot (with the peak already updated for
// this tick) and the current price, and receives a decision.
//
// Trigger priority is fixed: max hold, then stop-loss, then take-profit tiers,
// then the trailing stop. The first trigger that matches wins; a price that
// satisfies both stop-loss and take-profit therefore always reports stop-loss.
type ExitEvaluator struct {
	cfg    config.ExitConfig
	logger *slog.Logger
}

// NewExitEvaluator creates an ExitEvaluator.
func NewExitEvaluator(cfg config.ExitConfig, logger *slog.Logger) *ExitEvaluator {
	return &ExitEvaluator{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "exit_evaluator")),
	}
}

// Evaluate returns the exit decision for one position at the given price and
// time. Tier fractions apply to the quantity remaining at trigger time, not
// the original position size.
func (e *ExitEvaluator) Evaluate(p domain.Position, currentPrice float64, now time.Time) domain.ExitDecision {
	// 1. Max hold time.
	if held := p.HoldDuration(now); held >= e.cfg.MaxHold.Duration {
		return exitAll(domain.ExitTypeMaxHold,
			fmt.Sprintf("held %s, ceiling %s", held.Round(time.Second), e.cfg.MaxHold.Duration))
	}

	gain := (currentPrice - p.EntryPrice) / p.EntryPrice

	// 2. Stop-loss.
	if gain <= -e.cfg.StopLossPct {
		return exitAll(domain.ExitTypeStopLoss,
			fmt.Sprintf("down %.1f%%, stop at %.1f%%", -gain*100, e.cfg.StopLossPct*100))
	}

	// 3. Take-profit: tiered or single-target.
	if e.cfg.TieredEnabled {
		if d, ok := e.tierDecision(p, gain); ok {
			return d
		}
	} else if e.cfg.TakeProfitPct > 0 && gain >= e.cfg.TakeProfitPct {
		return exitAll(domain.ExitTypeTakeProfit,
			fmt.Sprintf("up %.1f%%, target %.1f%%", gain*100, e.cfg.TakeProfitPct*100))
	}

	// 4. Trailing stop. Inert until the peak has ever gained ActivationPct
	// over entry, so early noise cannot read as a reversal.
	if e.cfg.TrailingEnabled {
		activation := p.EntryPrice * (1 + e.cfg.ActivationPct)
		if p.PeakPrice >= activation {
			floor := p.PeakPrice * (1 - e.cfg.TrailingDistancePct)
			if currentPrice <= floor {
				return exitAll(domain.ExitTypeTrailingStop,
					fmt.Sprintf("fell to %.8g from peak %.8g (floor %.8g)", currentPrice, p.PeakPrice, floor))
			}
		}
	}

	return domain.ExitDecision{ShouldExit: false}
}

// tierDecision checks the take-profit tiers in order. A tier with a
// non-positive target can never fire, and a realized tier stays skipped even
// if the price oscillates back above its target.
func (e *ExitEvaluator) tierDecision(p domain.Position, gain float64) (domain.ExitDecision, bool) {
	if !p.Tier1Realized && e.cfg.Tier1TargetPct > 0 && gain >= e.cfg.Tier1TargetPct {
		return domain.ExitDecision{
			ShouldExit:  true,
			ExitType:    domain.ExitTypeTier1,
			ExitPercent: clampFraction(e.cfg.Tier1Fraction),
			Reason:      fmt.Sprintf("up %.1f%%, tier 1 at %.1f%%", gain*100, e.cfg.Tier1TargetPct*100),
		}, true
	}
	if !p.Tier2Realized && e.cfg.Tier2TargetPct > 0 && gain >= e.cfg.Tier2TargetPct {
		return domain.ExitDecision{
			ShouldExit:  true,
			ExitType:    domain.ExitTypeTier2,
			ExitPercent: clampFraction(e.cfg.Tier2Fraction),
			Reason:      fmt.Sprintf("up %.1f%%, tier 2 at %.1f%%", gain*100, e.cfg.Tier2TargetPct*100),
		}, true
	}
	return domain.ExitDecision{}, false
}

func exitAll(t domain.ExitType, reason string) domain.ExitDecision {
	return domain.ExitDecision{
		ShouldExit:  true,
		ExitType:    t,
		ExitPercent: 1.0,
		Reason:      reason,
	}
}

// clampFraction forces a configured exit fraction into (0, 1]. A zero or
// negative fraction falls back to a full exit rather than a no-op trade.
func clampFraction(f float64) float64 {
	if f <= 0 || f > 1 {
		return 1.0
	}
	return f
}
