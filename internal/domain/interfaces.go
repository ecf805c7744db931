package domain

import (
	"context"
	"io"
	"time"
)

// PriceSource returns the current price for an asset. Implementations must
// honour the context deadline; a timeout is reported as an error (and feeds
// the safety monitor's failure window). A missing quote is ErrPriceUnavailable.
type PriceSource interface {
	GetPrice(ctx context.Context, mint string) (float64, error)
}

// EntryFill is the confirmed result of an entry execution.
type EntryFill struct {
	FillPrice     float64
	UnitsReceived float64
}

// ExitFill is the confirmed result of an exit execution.
type ExitFill struct {
	FillPrice float64
	Proceeds  float64 // quote currency received
}

// SwapExecutor is the order-execution collaborator. The engine treats it as a
// black box: it either returns a confirmed fill or an error, and no
// cancellation of a dispatched call is supported.
type SwapExecutor interface {
	ExecuteEntry(ctx context.Context, mint string, quoteAmount float64) (EntryFill, error)
	ExecuteExit(ctx context.Context, mint string, unitsToSell float64) (ExitFill, error)
}

// RiskScorer supplies per-asset safety and holder-health scores. Fields the
// scorer cannot produce are returned with their Present flag unset, which the
// entry evaluator treats as worst-case.
type RiskScorer interface {
	ScoreRisk(ctx context.Context, mint string) (RiskSignals, error)
}

// ManualStop reports whether an externally-authored stop signal is present.
// Checked every safety cycle.
type ManualStop interface {
	Present() bool
}

// TradeStore persists the immutable closed-trade history.
type TradeStore interface {
	Append(ctx context.Context, trade ClosedTrade) error
	ListRecent(ctx context.Context, limit int) ([]ClosedTrade, error)
	ListBefore(ctx context.Context, before time.Time) ([]ClosedTrade, error)
	Summary(ctx context.Context) (PerformanceSummary, error)
}

// PriceCache stores the last known price per asset so restarts and read-only
// modes can serve marks without a live feed.
type PriceCache interface {
	SetPrice(ctx context.Context, mint string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, mint string) (float64, time.Time, error)
}

// BlobWriter uploads an object to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}
