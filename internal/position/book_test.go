package position

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/snipebot/internal/config"
	"github.com/alanyoungcy/snipebot/internal/domain"
)

func testBook(t *testing.T) *Book {
	t.Helper()
	cfg := config.TradingConfig{
		TotalCapital:     10,
		QuotePerPosition: 0.5,
		MaxPositions:     3,
		MaxExposure:      2.0,
	}
	return NewBook(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestOpenDerivesUnits(t *testing.T) {
	b := testBook(t)

	pos, err := b.Open(OpenParams{Mint: "mintA", Symbol: "AAA", EntryPrice: 0.00001, QuoteAmount: 0.5})
	require.NoError(t, err)

	assert.InDelta(t, 50000.0, pos.UnitsHeld, 1e-6)
	assert.Equal(t, 0.5, pos.QuoteCommitted)
	assert.Equal(t, pos.EntryPrice, pos.PeakPrice)
	assert.Equal(t, domain.PositionStatusOpen, pos.Status)
	assert.InDelta(t, 9.5, b.Available(), 1e-9)
}

func TestOpenRejectsDuplicate(t *testing.T) {
	b := testBook(t)

	_, err := b.Open(OpenParams{Mint: "mintA", EntryPrice: 1, QuoteAmount: 0.5})
	require.NoError(t, err)

	_, err = b.Open(OpenParams{Mint: "mintA", EntryPrice: 1, QuoteAmount: 0.5})
	assert.ErrorIs(t, err, domain.ErrDuplicatePosition)
	assert.Equal(t, 1, b.Count())
}

func TestOpenRejectsPositionLimit(t *testing.T) {
	b := testBook(t)

	for _, mint := range []string{"m1", "m2", "m3"} {
		_, err := b.Open(OpenParams{Mint: mint, EntryPrice: 1, QuoteAmount: 0.5})
		require.NoError(t, err)
	}

	_, err := b.Open(OpenParams{Mint: "m4", EntryPrice: 1, QuoteAmount: 0.1})
	assert.ErrorIs(t, err, domain.ErrPositionLimit)
}

func TestOpenRejectsExposureLimit(t *testing.T) {
	b := testBook(t) // MaxExposure 2.0

	_, err := b.Open(OpenParams{Mint: "m1", EntryPrice: 1, QuoteAmount: 1.5})
	require.NoError(t, err)

	_, err = b.Open(OpenParams{Mint: "m2", EntryPrice: 1, QuoteAmount: 0.6})
	assert.ErrorIs(t, err, domain.ErrExposureLimit)
}

func TestOpenRejectsInsufficientFunds(t *testing.T) {
	cfg := config.TradingConfig{TotalCapital: 1, MaxPositions: 5, MaxExposure: 100}
	b := NewBook(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := b.Open(OpenParams{Mint: "m1", EntryPrice: 1, QuoteAmount: 2})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
}

func TestPartialCloseProportional(t *testing.T) {
	b := testBook(t)
	pos, err := b.Open(OpenParams{Mint: "mintA", EntryPrice: 0.00001, QuoteAmount: 0.5})
	require.NoError(t, err)

	trade, err := b.PartialClose(pos.ID, 0.000015, 0.5, domain.ExitReasonTier1)
	require.NoError(t, err)

	after, err := b.Get(pos.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, after.QuoteCommitted, 1e-9)
	assert.InDelta(t, 25000.0, after.UnitsHeld, 1e-6)
	assert.True(t, after.Tier1Realized)
	assert.Equal(t, domain.PositionStatusOpen, after.Status)

	assert.True(t, trade.IsPartialExit)
	assert.Equal(t, 50.0, trade.PercentExited)
	assert.Equal(t, domain.ExitReasonTier1, trade.Reason)
	// Sold 25000 units at 0.000015 = 0.375 proceeds against 0.25 released.
	assert.InDelta(t, 0.375, trade.Proceeds, 1e-9)
	assert.InDelta(t, 0.125, trade.ProfitLoss, 1e-9)
	assert.InDelta(t, 0.5, trade.ProfitLossPercent, 1e-9)

	// Proceeds credited back: 10 - 0.5 + 0.375.
	assert.InDelta(t, 9.875, b.Available(), 1e-9)
}

func TestPartialCloseRejectsBadFraction(t *testing.T) {
	b := testBook(t)
	pos, err := b.Open(OpenParams{Mint: "mintA", EntryPrice: 1, QuoteAmount: 0.5})
	require.NoError(t, err)

	for _, f := range []float64{0, 1, -0.5, 1.5} {
		_, err := b.PartialClose(pos.ID, 1.2, f, domain.ExitReasonTier1)
		assert.Error(t, err, "fraction %g", f)
	}
}

func TestFullCloseRemovesPosition(t *testing.T) {
	b := testBook(t)
	pos, err := b.Open(OpenParams{Mint: "mintA", EntryPrice: 1.0, QuoteAmount: 1.0})
	require.NoError(t, err)

	trade, err := b.FullClose(pos.ID, 0.74, domain.ExitReasonStopLoss)
	require.NoError(t, err)

	assert.Equal(t, 0, b.Count())
	assert.False(t, trade.IsPartialExit)
	assert.Equal(t, 100.0, trade.PercentExited)
	assert.InDelta(t, -0.26, trade.ProfitLossPercent, 1e-9)

	_, err = b.Get(pos.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// The asset can be re-entered after a full close.
	_, err = b.Open(OpenParams{Mint: "mintA", EntryPrice: 1, QuoteAmount: 0.5})
	assert.NoError(t, err)
}

func TestUpdatePricePeakRatchets(t *testing.T) {
	b := testBook(t)
	pos, err := b.Open(OpenParams{Mint: "mintA", EntryPrice: 1.0, QuoteAmount: 0.5})
	require.NoError(t, err)

	for _, price := range []float64{1.2, 1.5, 1.1, 0.9, 1.49} {
		require.NoError(t, b.UpdatePrice(pos.ID, price))
	}

	after, err := b.Get(pos.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.49, after.CurrentPrice)
	assert.Equal(t, 1.5, after.PeakPrice)
}

func TestActiveReturnsSnapshots(t *testing.T) {
	b := testBook(t)
	pos, err := b.Open(OpenParams{Mint: "mintA", EntryPrice: 1.0, QuoteAmount: 0.5})
	require.NoError(t, err)

	snaps := b.Active()
	require.Len(t, snaps, 1)

	// Mutating the snapshot must not touch the book.
	snaps[0].QuoteCommitted = 999

	after, err := b.Get(pos.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.5, after.QuoteCommitted)
}

func TestExposureAndPortfolioValue(t *testing.T) {
	b := testBook(t)
	p1, err := b.Open(OpenParams{Mint: "m1", EntryPrice: 1.0, QuoteAmount: 0.5})
	require.NoError(t, err)
	_, err = b.Open(OpenParams{Mint: "m2", EntryPrice: 2.0, QuoteAmount: 1.0})
	require.NoError(t, err)

	assert.InDelta(t, 1.5, b.Exposure(), 1e-9)
	assert.InDelta(t, 10.0, b.PortfolioValue(), 1e-9)

	// Mark m1 up 40%: value rises by 0.5*0.4.
	require.NoError(t, b.UpdatePrice(p1.ID, 1.4))
	assert.InDelta(t, 10.2, b.PortfolioValue(), 1e-9)
}
