package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/snipebot/internal/domain"
)

var _ domain.TradeStore = (*TradeStore)(nil)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeSelectCols = `id, position_id, mint, symbol, entry_price, exit_price,
	quantity_units, quote_released, proceeds, profit_loss, profit_loss_percent,
	reason, is_partial_exit, percent_exited, opened_at, closed_at`

func scanTradeRows(rows pgx.Rows) ([]domain.ClosedTrade, error) {
	var trades []domain.ClosedTrade
	for rows.Next() {
		var t domain.ClosedTrade
		if err := rows.Scan(
			&t.ID, &t.PositionID, &t.Mint, &t.Symbol,
			&t.EntryPrice, &t.ExitPrice, &t.QuantityUnits,
			&t.QuoteReleased, &t.Proceeds,
			&t.ProfitLoss, &t.ProfitLossPercent,
			&t.Reason, &t.IsPartialExit, &t.PercentExited,
			&t.OpenedAt, &t.ClosedAt,
		); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Append inserts one closed trade. The history is append-only; a duplicate
// id (retried append after a lost ack) is silently skipped.
func (s *TradeStore) Append(ctx context.Context, t domain.ClosedTrade) error {
	const query = `
		INSERT INTO closed_trades (
			id, position_id, mint, symbol,
			entry_price, exit_price, quantity_units,
			quote_released, proceeds,
			profit_loss, profit_loss_percent,
			reason, is_partial_exit, percent_exited,
			opened_at, closed_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9,
			$10, $11,
			$12, $13, $14,
			$15, $16
		) ON CONFLICT (id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		t.ID, t.PositionID, t.Mint, t.Symbol,
		t.EntryPrice, t.ExitPrice, t.QuantityUnits,
		t.QuoteReleased, t.Proceeds,
		t.ProfitLoss, t.ProfitLossPercent,
		string(t.Reason), t.IsPartialExit, t.PercentExited,
		t.OpenedAt, t.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: append trade %s: %w", t.ID, err)
	}
	return nil
}

// ListRecent returns the most recently closed trades, newest first.
func (s *TradeStore) ListRecent(ctx context.Context, limit int) ([]domain.ClosedTrade, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(
		`SELECT %s FROM closed_trades ORDER BY closed_at DESC LIMIT $1`,
		tradeSelectCols,
	)

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent trades: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan recent trades: %w", err)
	}
	return trades, nil
}

// ListBefore returns every trade closed strictly before the cutoff, oldest
// first. The archiver uses it to page old history out to blob storage.
func (s *TradeStore) ListBefore(ctx context.Context, before time.Time) ([]domain.ClosedTrade, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM closed_trades WHERE closed_at < $1 ORDER BY closed_at ASC`,
		tradeSelectCols,
	)

	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades before %s: %w", before.Format(time.RFC3339), err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades: %w", err)
	}
	return trades, nil
}

// DeleteBefore removes trades closed strictly before the cutoff. Called by
// the archiver only after a successful upload.
func (s *TradeStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM closed_trades WHERE closed_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete trades before %s: %w", before.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}

// Summary computes the aggregate performance of the whole history in one
// query.
func (s *TradeStore) Summary(ctx context.Context) (domain.PerformanceSummary, error) {
	const query = `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE profit_loss > 0),
			COUNT(*) FILTER (WHERE profit_loss <= 0),
			COALESCE(SUM(profit_loss), 0),
			COALESCE(SUM(profit_loss) FILTER (WHERE profit_loss > 0), 0),
			COALESCE(ABS(SUM(profit_loss) FILTER (WHERE profit_loss <= 0)), 0),
			COALESCE(MAX(profit_loss), 0),
			COALESCE(MIN(profit_loss), 0)
		FROM closed_trades`

	var sum domain.PerformanceSummary
	err := s.pool.QueryRow(ctx, query).Scan(
		&sum.TotalTrades, &sum.Wins, &sum.Losses,
		&sum.NetPnL, &sum.GrossProfit, &sum.GrossLoss,
		&sum.LargestWin, &sum.LargestLoss,
	)
	if err != nil {
		return domain.PerformanceSummary{}, fmt.Errorf("postgres: performance summary: %w", err)
	}

	if sum.TotalTrades > 0 {
		sum.WinRate = float64(sum.Wins) / float64(sum.TotalTrades)
	}
	if sum.GrossLoss > 0 {
		sum.ProfitFactor = sum.GrossProfit / sum.GrossLoss
	}
	return sum, nil
}
