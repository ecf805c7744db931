// Package position implements the authoritative store of open positions:
// balance accounting, exposure and concurrency ceilings, proportional partial
// close, and peak-price maintenance. All mutation goes through the Book; no
// caller ever holds a mutable Position.
package position

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/snipebot/internal/config"
	"github.com/alanyoungcy/snipebot/internal/domain"
)

// proportionTolerance bounds floating-point drift allowed between the
// quote-committed and units-held shrink factors on a partial close.
const proportionTolerance = 1e-9

// Book owns the live position set. A single mutex serializes every mutation
// so no position can be closed or partially closed by two evaluations at
// once, and the aggregate counters (exposure, available balance) always agree
// with the position state they summarize.
type Book struct {
	mu        sync.Mutex
	positions map[string]*domain.Position // keyed by position id
	byMint    map[string]string           // mint -> position id
	available float64                     // uncommitted quote balance

	cfg    config.TradingConfig
	logger *slog.Logger
}

// OpenParams describes a confirmed entry fill to record.
type OpenParams struct {
	Mint        string
	Symbol      string
	EntryPrice  float64
	QuoteAmount float64
	// Units is the base-asset quantity received. Zero means derive it as
	// QuoteAmount / EntryPrice (paper fills).
	Units float64
}

// NewBook creates a Book with the full configured capital uncommitted.
func NewBook(cfg config.TradingConfig, logger *slog.Logger) *Book {
	return &Book{
		positions: make(map[string]*domain.Position),
		byMint:    make(map[string]string),
		available: cfg.TotalCapital,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "position_book")),
	}
}

// CanOpen reports whether a position of quoteAmount in mint would pass the
// duplicate, concurrency, balance, and exposure checks right now. The entry
// path calls it before dispatching an order so a fill is never bought for a
// position the book would refuse.
func (b *Book) CanOpen(mint string, quoteAmount float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, dup := b.byMint[mint]; dup {
		return domain.ErrDuplicatePosition
	}
	if len(b.positions) >= b.cfg.MaxPositions {
		return domain.ErrPositionLimit
	}
	if quoteAmount > b.available {
		return domain.ErrInsufficientFunds
	}
	if b.exposureLocked()+quoteAmount > b.cfg.MaxExposure {
		return domain.ErrExposureLimit
	}
	return nil
}

// Open records a new position. It rejects with a sentinel error when the
// uncommitted balance is insufficient, a position for the same asset is
// already open, or the concurrency/exposure ceiling would be breached.
func (b *Book) Open(p OpenParams) (domain.Position, error) {
	if p.EntryPrice <= 0 {
		return domain.Position{}, fmt.Errorf("position: open %s: entry price must be > 0, got %g", p.Mint, p.EntryPrice)
	}
	if p.QuoteAmount <= 0 {
		return domain.Position{}, fmt.Errorf("position: open %s: quote amount must be > 0, got %g", p.Mint, p.QuoteAmount)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, dup := b.byMint[p.Mint]; dup {
		return domain.Position{}, domain.ErrDuplicatePosition
	}
	if len(b.positions) >= b.cfg.MaxPositions {
		return domain.Position{}, domain.ErrPositionLimit
	}
	if p.QuoteAmount > b.available {
		return domain.Position{}, domain.ErrInsufficientFunds
	}
	if b.exposureLocked()+p.QuoteAmount > b.cfg.MaxExposure {
		return domain.Position{}, domain.ErrExposureLimit
	}

	units := p.Units
	if units == 0 {
		units = p.QuoteAmount / p.EntryPrice
	}

	now := time.Now().UTC()
	pos := &domain.Position{
		ID:             uuid.NewString(),
		Mint:           p.Mint,
		Symbol:         p.Symbol,
		EntryPrice:     p.EntryPrice,
		QuoteCommitted: p.QuoteAmount,
		UnitsHeld:      units,
		CurrentPrice:   p.EntryPrice,
		PeakPrice:      p.EntryPrice,
		Status:         domain.PositionStatusOpen,
		OpenedAt:       now,
		UpdatedAt:      now,
	}

	b.available -= p.QuoteAmount
	b.positions[pos.ID] = pos
	b.byMint[p.Mint] = pos.ID

	b.logger.Info("position opened",
		slog.String("position_id", pos.ID),
		slog.String("mint", p.Mint),
		slog.String("symbol", p.Symbol),
		slog.Float64("entry_price", p.EntryPrice),
		slog.Float64("quote_committed", p.QuoteAmount),
		slog.Float64("units", units),
		slog.Int("open_positions", len(b.positions)),
	)
	return *pos, nil
}

// PartialClose shrinks a position by fraction (exclusive 0..1) at exitPrice,
// credits the proceeds back to the uncommitted balance, sets the matching
// tier flag, and returns the immutable trade record. The position stays open.
func (b *Book) PartialClose(id string, exitPrice, fraction float64, reason domain.ExitReason) (domain.ClosedTrade, error) {
	if fraction <= 0 || fraction >= 1 {
		return domain.ClosedTrade{}, fmt.Errorf("position: partial close %s: fraction must be in (0, 1), got %g", id, fraction)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	pos, ok := b.positions[id]
	if !ok {
		return domain.ClosedTrade{}, domain.ErrNotFound
	}

	quoteBefore, unitsBefore := pos.QuoteCommitted, pos.UnitsHeld

	unitsSold := pos.UnitsHeld * fraction
	quoteReleased := pos.QuoteCommitted * fraction
	proceeds := unitsSold * exitPrice

	pos.UnitsHeld -= unitsSold
	pos.QuoteCommitted -= quoteReleased
	pos.CurrentPrice = exitPrice
	pos.UpdatedAt = time.Now().UTC()
	switch reason {
	case domain.ExitReasonTier1:
		pos.Tier1Realized = true
	case domain.ExitReasonTier2:
		pos.Tier2Realized = true
	}

	// Both legs must shrink by the same proportion. Violation means the
	// book's arithmetic is corrupt, and trading on a corrupt book is worse
	// than crashing.
	quoteRatio := pos.QuoteCommitted / quoteBefore
	unitsRatio := pos.UnitsHeld / unitsBefore
	if math.Abs(quoteRatio-unitsRatio) > proportionTolerance {
		panic(fmt.Sprintf("position: partial close %s broke proportionality: quote ratio %.12f, units ratio %.12f", id, quoteRatio, unitsRatio))
	}

	b.available += proceeds

	trade := b.tradeLocked(pos, exitPrice, unitsSold, quoteReleased, proceeds, reason, true, fraction*100)

	b.logger.Info("position partially closed",
		slog.String("position_id", id),
		slog.String("mint", pos.Mint),
		slog.Float64("fraction", fraction),
		slog.Float64("exit_price", exitPrice),
		slog.Float64("pnl", trade.ProfitLoss),
		slog.String("reason", string(reason)),
	)
	return trade, nil
}

// FullClose removes a position from the live set at exitPrice, credits the
// proceeds, and returns the trade record.
func (b *Book) FullClose(id string, exitPrice float64, reason domain.ExitReason) (domain.ClosedTrade, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pos, ok := b.positions[id]
	if !ok {
		return domain.ClosedTrade{}, domain.ErrNotFound
	}

	unitsSold := pos.UnitsHeld
	quoteReleased := pos.QuoteCommitted
	proceeds := unitsSold * exitPrice

	pos.UnitsHeld = 0
	pos.QuoteCommitted = 0
	pos.CurrentPrice = exitPrice
	pos.Status = domain.PositionStatusClosed
	pos.UpdatedAt = time.Now().UTC()

	b.available += proceeds
	delete(b.positions, id)
	delete(b.byMint, pos.Mint)

	trade := b.tradeLocked(pos, exitPrice, unitsSold, quoteReleased, proceeds, reason, false, 100)

	b.logger.Info("position closed",
		slog.String("position_id", id),
		slog.String("mint", pos.Mint),
		slog.Float64("exit_price", exitPrice),
		slog.Float64("pnl", trade.ProfitLoss),
		slog.Float64("pnl_pct", trade.ProfitLossPercent),
		slog.String("reason", string(reason)),
		slog.Int("open_positions", len(b.positions)),
	)
	return trade, nil
}

// UpdatePrice records a new mark for a position. The peak only ratchets up.
func (b *Book) UpdatePrice(id string, price float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	pos, ok := b.positions[id]
	if !ok {
		return domain.ErrNotFound
	}
	pos.CurrentPrice = price
	if price > pos.PeakPrice {
		pos.PeakPrice = price
	}
	pos.UpdatedAt = time.Now().UTC()
	return nil
}

// Get returns a snapshot of one open position.
func (b *Book) Get(id string) (domain.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pos, ok := b.positions[id]
	if !ok {
		return domain.Position{}, domain.ErrNotFound
	}
	return *pos, nil
}

// Active returns value snapshots of every open position, ordered oldest
// first so tick processing is deterministic.
func (b *Book) Active() []domain.Position {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]domain.Position, 0, len(b.positions))
	for _, pos := range b.positions {
		out = append(out, *pos)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].OpenedAt.Before(out[j].OpenedAt)
	})
	return out
}

// Exposure returns the quote currently committed across open positions.
func (b *Book) Exposure() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exposureLocked()
}

// Available returns the uncommitted quote balance.
func (b *Book) Available() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.available
}

// PortfolioValue returns uncommitted balance plus the marked value of all
// open positions.
func (b *Book) PortfolioValue() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	v := b.available
	for _, pos := range b.positions {
		v += pos.UnitsHeld * pos.CurrentPrice
	}
	return v
}

// Count returns the number of open positions.
func (b *Book) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.positions)
}

// exposureLocked sums committed quote. Callers must hold b.mu.
func (b *Book) exposureLocked() float64 {
	var total float64
	for _, pos := range b.positions {
		total += pos.QuoteCommitted
	}
	return total
}

// tradeLocked builds the immutable ClosedTrade record for an exit. Callers
// must hold b.mu.
func (b *Book) tradeLocked(pos *domain.Position, exitPrice, unitsSold, quoteReleased, proceeds float64, reason domain.ExitReason, partial bool, percentExited float64) domain.ClosedTrade {
	pnl := proceeds - quoteReleased
	pnlPct := 0.0
	if quoteReleased > 0 {
		pnlPct = pnl / quoteReleased
	}
	return domain.ClosedTrade{
		ID:                uuid.NewString(),
		PositionID:        pos.ID,
		Mint:              pos.Mint,
		Symbol:            pos.Symbol,
		EntryPrice:        pos.EntryPrice,
		ExitPrice:         exitPrice,
		QuantityUnits:     unitsSold,
		QuoteReleased:     quoteReleased,
		Proceeds:          proceeds,
		ProfitLoss:        pnl,
		ProfitLossPercent: pnlPct,
		Reason:            reason,
		IsPartialExit:     partial,
		PercentExited:     percentExited,
		OpenedAt:          pos.OpenedAt,
		ClosedAt:          time.Now().UTC(),
	}
}
