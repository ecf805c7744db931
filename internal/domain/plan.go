package domain

import "time"

// PlanState is the lifecycle state of an entry or exit plan. A plan is
// consumed exactly once; a plan still Pending past its expiry must move to
// Expired and never execute.
type PlanState string

const (
	PlanPending   PlanState = "pending"
	PlanExecuting PlanState = "executing"
	PlanCompleted PlanState = "completed"
	PlanFailed    PlanState = "failed"
	PlanExpired   PlanState = "expired"
	PlanCancelled PlanState = "cancelled"
)

// EntryPlan is a short-lived intent to open a position.
type EntryPlan struct {
	ID          string    `json:"id"`
	Mint        string    `json:"mint"`
	Symbol      string    `json:"symbol"`
	QuoteAmount float64   `json:"quote_amount"`
	State       PlanState `json:"state"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ExitPlan is a short-lived intent to exit a fraction of a position.
type ExitPlan struct {
	ID          string    `json:"id"`
	PositionID  string    `json:"position_id"`
	Mint        string    `json:"mint"`
	UnitsToSell float64   `json:"units_to_sell"`
	Fraction    float64   `json:"fraction"` // of the remaining position, in (0, 1]
	Type        ExitType  `json:"type"`
	Reason      string    `json:"reason"`
	State       PlanState `json:"state"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the plan's expiry has passed as of now.
func (p EntryPlan) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && now.After(p.ExpiresAt)
}

// Expired reports whether the plan's expiry has passed as of now.
func (p ExitPlan) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && now.After(p.ExpiresAt)
}
