package domain

import "time"

// TripReason identifies which check tripped the circuit breaker.
type TripReason string

const (
	TripReasonDrawdown          TripReason = "max_drawdown"
	TripReasonConsecutiveLosses TripReason = "consecutive_losses"
	TripReasonExternalFailures  TripReason = "external_failures"
	TripReasonLowBalance        TripReason = "low_balance"
	TripReasonManualStop        TripReason = "manual_stop"
)

// SafetyState is a read-only snapshot of the circuit breaker. Tripped latches
// until an operator reset; it never self-clears on a healthy check.
type SafetyState struct {
	Tripped            bool       `json:"tripped"`
	TripReason         TripReason `json:"trip_reason,omitempty"`
	TrippedAt          time.Time  `json:"tripped_at,omitempty"`
	ManualStopActive   bool       `json:"manual_stop_active"`
	PeakPortfolioValue float64    `json:"peak_portfolio_value"`
	CurrentDrawdownPct float64    `json:"current_drawdown_pct"` // 0-1
	ConsecutiveLosses  int        `json:"consecutive_losses"`
	RecentFailures     int        `json:"recent_failures"`    // inside the trailing window
	PortfolioHeatPct   float64    `json:"portfolio_heat_pct"` // 0-1, committed / total capital
	HeatWarning        bool       `json:"heat_warning"`
	LastKnownBalance   float64    `json:"last_known_balance"`
}
