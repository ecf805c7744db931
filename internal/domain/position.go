package domain

import "time"

// PositionStatus tracks whether a position is open or closed. A position that
// has taken one or more partial exits but still holds units remains open.
type PositionStatus string

const (
	PositionStatusOpen   PositionStatus = "open"
	PositionStatusClosed PositionStatus = "closed"
)

// Position represents one open (possibly partially exited) holding of a base
// asset, funded by a committed amount of the quote currency.
type Position struct {
	ID     string `json:"id"`
	Mint   string `json:"mint"` // base-asset identifier
	Symbol string `json:"symbol"`

	EntryPrice     float64 `json:"entry_price"`     // quote per unit at entry
	QuoteCommitted float64 `json:"quote_committed"` // quote currency still committed to this position
	UnitsHeld      float64 `json:"units_held"`      // base-asset units still held
	CurrentPrice   float64 `json:"current_price"`
	PeakPrice      float64 `json:"peak_price"` // highest price observed since entry; never decreases

	// Tier flags prevent a take-profit tier from firing twice.
	Tier1Realized bool `json:"tier1_realized"`
	Tier2Realized bool `json:"tier2_realized"`

	Status    PositionStatus `json:"status"`
	OpenedAt  time.Time      `json:"opened_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// UnrealizedPnL returns the mark-to-market profit in quote currency:
// current value of held units minus the quote still committed.
func (p Position) UnrealizedPnL() float64 {
	return p.UnitsHeld*p.CurrentPrice - p.QuoteCommitted
}

// UnrealizedPnLPercent returns the unrealized P&L as a fraction of the
// committed quote amount. Zero when nothing is committed.
func (p Position) UnrealizedPnLPercent() float64 {
	if p.QuoteCommitted <= 0 {
		return 0
	}
	return p.UnrealizedPnL() / p.QuoteCommitted
}

// GainPercent returns the price move since entry as a fraction of the entry
// price, e.g. 0.5 for +50%.
func (p Position) GainPercent() float64 {
	if p.EntryPrice <= 0 {
		return 0
	}
	return (p.CurrentPrice - p.EntryPrice) / p.EntryPrice
}

// HoldDuration returns how long the position has been open as of now.
func (p Position) HoldDuration(now time.Time) time.Duration {
	return now.Sub(p.OpenedAt)
}
