package domain

// ExitType is the trigger category reported by the exit evaluator. Exactly
// one type is reported per tick even when several conditions hold; see the
// evaluator's priority order.
type ExitType string

const (
	ExitTypeMaxHold      ExitType = "max_hold"
	ExitTypeStopLoss     ExitType = "stop_loss"
	ExitTypeTier1        ExitType = "tier_1"
	ExitTypeTier2        ExitType = "tier_2"
	ExitTypeTakeProfit   ExitType = "take_profit"
	ExitTypeTrailingStop ExitType = "trailing_stop"
)

// ExitDecision says whether and how much of a position to exit on this tick.
// ExitPercent is a fraction of the remaining position in (0, 1].
type ExitDecision struct {
	ShouldExit  bool
	ExitType    ExitType
	ExitPercent float64
	Reason      string
}

// ExitReasonFor maps an exit type to the trade-history reason.
func ExitReasonFor(t ExitType) ExitReason {
	switch t {
	case ExitTypeMaxHold:
		return ExitReasonMaxHold
	case ExitTypeStopLoss:
		return ExitReasonStopLoss
	case ExitTypeTier1:
		return ExitReasonTier1
	case ExitTypeTier2:
		return ExitReasonTier2
	case ExitTypeTakeProfit:
		return ExitReasonTakeProfit
	case ExitTypeTrailingStop:
		return ExitReasonTrailingStop
	default:
		return ExitReasonManual
	}
}
