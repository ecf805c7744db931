// Package exec provides the order-execution collaborators: a paper executor
// that fills against the simulated market and an HTTP client for a
// swap-aggregator REST API.
package exec

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/snipebot/internal/config"
	"github.com/alanyoungcy/snipebot/internal/domain"
)

var _ domain.SwapExecutor = (*PaperExecutor)(nil)

// PaperExecutor fills orders against a price source instead of a real venue.
// Fills land at the quoted price shifted by a fixed slippage, against the
// buyer on entry and the seller on exit.
type PaperExecutor struct {
	prices      domain.PriceSource
	slippageBps float64
	logger      *slog.Logger
}

// NewPaperExecutor creates a PaperExecutor quoting from prices.
func NewPaperExecutor(prices domain.PriceSource, cfg config.PricingConfig, logger *slog.Logger) *PaperExecutor {
	return &PaperExecutor{
		prices:      prices,
		slippageBps: cfg.SimSlippageBps,
		logger:      logger.With(slog.String("component", "paper_executor")),
	}
}

// ExecuteEntry simulates a buy of quoteAmount at the current quote plus
// slippage.
func (e *PaperExecutor) ExecuteEntry(ctx context.Context, mint string, quoteAmount float64) (domain.EntryFill, error) {
	price, err := e.prices.GetPrice(ctx, mint)
	if err != nil {
		return domain.EntryFill{}, fmt.Errorf("exec: paper entry %s: %w", mint, err)
	}

	fillPrice := price * (1 + e.slippageBps/10000)
	fill := domain.EntryFill{
		FillPrice:     fillPrice,
		UnitsReceived: quoteAmount / fillPrice,
	}

	e.logger.DebugContext(ctx, "paper entry filled",
		slog.String("mint", mint),
		slog.Float64("quote_amount", quoteAmount),
		slog.Float64("fill_price", fillPrice),
		slog.Float64("units", fill.UnitsReceived),
	)
	return fill, nil
}

// ExecuteExit simulates a sell of unitsToSell at the current quote minus
// slippage.
func (e *PaperExecutor) ExecuteExit(ctx context.Context, mint string, unitsToSell float64) (domain.ExitFill, error) {
	price, err := e.prices.GetPrice(ctx, mint)
	if err != nil {
		return domain.ExitFill{}, fmt.Errorf("exec: paper exit %s: %w", mint, err)
	}

	fillPrice := price * (1 - e.slippageBps/10000)
	fill := domain.ExitFill{
		FillPrice: fillPrice,
		Proceeds:  unitsToSell * fillPrice,
	}

	e.logger.DebugContext(ctx, "paper exit filled",
		slog.String("mint", mint),
		slog.Float64("units", unitsToSell),
		slog.Float64("fill_price", fillPrice),
		slog.Float64("proceeds", fill.Proceeds),
	)
	return fill, nil
}
