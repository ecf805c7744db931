package domain

import "time"

// ExitReason identifies which trigger produced an exit. The values double as
// the reason column in the trade history.
type ExitReason string

const (
	ExitReasonStopLoss     ExitReason = "stop_loss"
	ExitReasonTakeProfit   ExitReason = "take_profit"
	ExitReasonTier1        ExitReason = "tier_1"
	ExitReasonTier2        ExitReason = "tier_2"
	ExitReasonTrailingStop ExitReason = "trailing_stop"
	ExitReasonMaxHold      ExitReason = "max_hold"
	ExitReasonManual       ExitReason = "manual"
)

// ClosedTrade is the immutable record appended on every full or partial exit.
// It is created by the lifecycle coordinator after a confirmed fill and never
// mutated afterward.
type ClosedTrade struct {
	ID         string `json:"id"`
	PositionID string `json:"position_id"`
	Mint       string `json:"mint"`
	Symbol     string `json:"symbol"`

	EntryPrice    float64 `json:"entry_price"`
	ExitPrice     float64 `json:"exit_price"`
	QuantityUnits float64 `json:"quantity_units"` // base-asset units sold
	QuoteReleased float64 `json:"quote_released"` // committed quote attributed to this exit
	Proceeds      float64 `json:"proceeds"`       // quote received from the fill

	ProfitLoss        float64 `json:"profit_loss"`
	ProfitLossPercent float64 `json:"profit_loss_percent"`

	Reason        ExitReason `json:"reason"`
	IsPartialExit bool       `json:"is_partial_exit"`
	PercentExited float64    `json:"percent_exited"` // 0-100 of the then-remaining position

	OpenedAt time.Time `json:"opened_at"`
	ClosedAt time.Time `json:"closed_at"`
}

// PerformanceSummary aggregates the closed-trade history.
type PerformanceSummary struct {
	TotalTrades  int     `json:"total_trades"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	WinRate      float64 `json:"win_rate"` // 0-1
	NetPnL       float64 `json:"net_pnl"`
	GrossProfit  float64 `json:"gross_profit"`
	GrossLoss    float64 `json:"gross_loss"` // reported as a positive number
	ProfitFactor float64 `json:"profit_factor"`
	LargestWin   float64 `json:"largest_win"`
	LargestLoss  float64 `json:"largest_loss"`
}
