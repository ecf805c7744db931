// Package coordinator implements the lifecycle control loop: on a fixed
// interval it refreshes prices for every open position, runs the exit
// evaluator, executes the resulting exits, records trade outcomes with the
// safety monitor, and admits new candidates through the entry path.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/snipebot/internal/config"
	"github.com/alanyoungcy/snipebot/internal/domain"
	"github.com/alanyoungcy/snipebot/internal/engine"
	"github.com/alanyoungcy/snipebot/internal/position"
	"github.com/alanyoungcy/snipebot/internal/retry"
	"github.com/alanyoungcy/snipebot/internal/safety"
)

// maxEntriesPerTick bounds how many queued candidates one tick will admit,
// so a discovery burst cannot starve exit processing.
const maxEntriesPerTick = 3

// cachedPriceMaxAge bounds how old a cached mark may be before skipping the
// tick is safer than acting on it.
const cachedPriceMaxAge = 15 * time.Minute

// Seeder lets the coordinator re-anchor the fallback price walk after every
// successful live fetch. *pricing.Simulator satisfies it.
type Seeder interface {
	Seed(mint string, price float64)
}

// Notifier receives position lifecycle alerts. *notify.Notifier satisfies it.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Deps carries the coordinator's collaborators.
type Deps struct {
	Book      *position.Book
	EntryEval *engine.EntryEvaluator
	ExitEval  *engine.ExitEvaluator
	Safety    *safety.Monitor
	Prices    domain.PriceSource
	// Fallback serves a simulated price when Prices fails mid-tick.
	Fallback domain.PriceSource
	Seeder   Seeder
	Executor domain.SwapExecutor
	Scorer   domain.RiskScorer
	Trades   domain.TradeStore
	// PriceCache records the latest mark per asset and supplies the
	// last-resort mark when neither Prices nor Fallback can. Nil disables
	// both (a position without any price skips the tick).
	PriceCache domain.PriceCache
	Notifier   Notifier
	Candidates <-chan domain.Candidate
}

// Coordinator is the single writer for all position state. One goroutine
// runs the tick loop; price fetches fan out per tick but every mutation
// happens back on the loop goroutine.
type Coordinator struct {
	cfg      config.TradingConfig
	entryCfg config.EntryConfig
	deps     Deps
	policy   retry.Policy
	logger   *slog.Logger

	plans *planLog
}

// New creates a Coordinator.
func New(cfg config.TradingConfig, entryCfg config.EntryConfig, deps Deps, policy retry.Policy, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		entryCfg: entryCfg,
		deps:     deps,
		policy:   policy,
		logger:   logger.With(slog.String("component", "coordinator")),
		plans:    newPlanLog(64),
	}
}

// Run executes the tick loop until the context is cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.TickInterval.Duration)
	defer ticker.Stop()

	c.logger.InfoContext(ctx, "coordinator started",
		slog.Duration("tick_interval", c.cfg.TickInterval.Duration),
	)

	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "coordinator stopped")
			return ctx.Err()
		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}

// Tick runs one full cycle: price refresh, exit evaluation and execution,
// safety metric update, then candidate intake. Exported so tests can drive
// the loop without timers.
func (c *Coordinator) Tick(ctx context.Context) {
	open := c.deps.Book.Active()

	prices := c.fetchPrices(ctx, open)

	for _, pos := range open {
		price, ok := prices[pos.ID]
		if !ok {
			continue // no live or simulated price this tick
		}
		c.processPosition(ctx, pos.ID, price)
	}

	c.deps.Safety.UpdatePortfolioMetrics(ctx,
		c.deps.Book.PortfolioValue(),
		c.deps.Book.Available(),
		c.deps.Book.Exposure(),
		c.cfg.TotalCapital,
	)

	c.admitCandidates(ctx)
}

// fetchPrices retrieves a current price for every open position concurrently,
// bounded by the per-call timeout. A live failure counts against the safety
// failure window and falls back to the simulated source so paper operation
// keeps moving without live data.
func (c *Coordinator) fetchPrices(ctx context.Context, open []domain.Position) map[string]float64 {
	type quote struct {
		id    string
		price float64
	}

	results := make(chan quote, len(open))
	g, gctx := errgroup.WithContext(ctx)

	for _, pos := range open {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, c.cfg.CallTimeout.Duration)
			defer cancel()

			price, err := c.deps.Prices.GetPrice(callCtx, pos.Mint)
			if err != nil {
				c.logger.WarnContext(ctx, "price fetch failed",
					slog.String("mint", pos.Mint),
					slog.String("error", err.Error()),
				)
				c.deps.Safety.RecordExternalFailure(ctx)

				price, err = c.fallbackPrice(ctx, pos.Mint)
				if err != nil {
					return nil // skip this position for the tick
				}

				results <- quote{id: pos.ID, price: price}
				return nil
			}

			if c.deps.Seeder != nil {
				c.deps.Seeder.Seed(pos.Mint, price)
			}
			// Only genuine marks are cached; a fallback mark must not
			// refresh the cache's idea of when the price was last real.
			if c.deps.PriceCache != nil {
				if err := c.deps.PriceCache.SetPrice(ctx, pos.Mint, price, time.Now().UTC()); err != nil {
					c.logger.DebugContext(ctx, "price cache write failed",
						slog.String("mint", pos.Mint),
						slog.String("error", err.Error()),
					)
				}
			}

			results <- quote{id: pos.ID, price: price}
			return nil
		})
	}

	_ = g.Wait()
	close(results)

	prices := make(map[string]float64, len(open))
	for q := range results {
		prices[q.id] = q.price
	}
	return prices
}

// fallbackPrice serves a mark when the live fetch fails. The simulated walk
// continues from its last anchor; a walk with no anchor yet (fresh process)
// is re-seeded from the cached mark of a previous run, so restarts keep
// marking positions before the first successful live fetch.
func (c *Coordinator) fallbackPrice(ctx context.Context, mint string) (float64, error) {
	if c.deps.Fallback != nil {
		if price, err := c.deps.Fallback.GetPrice(ctx, mint); err == nil {
			return price, nil
		}
	}
	if c.deps.PriceCache != nil {
		price, ts, err := c.deps.PriceCache.GetPrice(ctx, mint)
		if err == nil && time.Since(ts) <= cachedPriceMaxAge {
			if c.deps.Seeder != nil {
				c.deps.Seeder.Seed(mint, price)
			}
			return price, nil
		}
	}
	return 0, domain.ErrPriceUnavailable
}

// processPosition updates the mark, evaluates exit triggers, and executes
// any resulting exit. The peak is always updated before trigger evaluation.
func (c *Coordinator) processPosition(ctx context.Context, id string, price float64) {
	if err := c.deps.Book.UpdatePrice(id, price); err != nil {
		return // closed since the snapshot was taken
	}
	pos, err := c.deps.Book.Get(id)
	if err != nil {
		return
	}

	decision := c.deps.ExitEval.Evaluate(pos, price, time.Now().UTC())
	if !decision.ShouldExit {
		return
	}
	c.executeExit(ctx, pos, decision)
}

// executeExit dispatches the sell and applies the book mutation on a
// confirmed fill. A failed fill leaves the position open; the next tick
// re-evaluates it.
func (c *Coordinator) executeExit(ctx context.Context, pos domain.Position, decision domain.ExitDecision) {
	unitsToSell := pos.UnitsHeld * decision.ExitPercent

	plan := domain.ExitPlan{
		ID:          uuid.NewString(),
		PositionID:  pos.ID,
		Mint:        pos.Mint,
		UnitsToSell: unitsToSell,
		Fraction:    decision.ExitPercent,
		Type:        decision.ExitType,
		Reason:      decision.Reason,
		State:       domain.PlanPending,
		CreatedAt:   time.Now().UTC(),
		ExpiresAt:   time.Now().UTC().Add(c.cfg.TickInterval.Duration),
	}
	defer func() { c.plans.recordExit(plan) }()

	c.logger.InfoContext(ctx, "exit triggered",
		slog.String("position_id", pos.ID),
		slog.String("mint", pos.Mint),
		slog.String("exit_type", string(decision.ExitType)),
		slog.Float64("exit_percent", decision.ExitPercent),
		slog.String("reason", decision.Reason),
	)

	plan.State = domain.PlanExecuting
	var fill domain.ExitFill
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout.Duration)
		defer cancel()

		var err error
		fill, err = c.deps.Executor.ExecuteExit(callCtx, pos.Mint, unitsToSell)
		return err
	})
	if err != nil {
		plan.State = domain.PlanFailed
		c.deps.Safety.RecordExternalFailure(ctx)
		c.logger.ErrorContext(ctx, "exit execution failed, position stays open",
			slog.String("position_id", pos.ID),
			slog.String("mint", pos.Mint),
			slog.String("error", err.Error()),
		)
		return
	}

	reason := domain.ExitReasonFor(decision.ExitType)
	var trade domain.ClosedTrade
	if decision.ExitPercent >= 1 {
		trade, err = c.deps.Book.FullClose(pos.ID, fill.FillPrice, reason)
	} else {
		trade, err = c.deps.Book.PartialClose(pos.ID, fill.FillPrice, decision.ExitPercent, reason)
	}
	if err != nil {
		plan.State = domain.PlanFailed
		c.logger.ErrorContext(ctx, "book close failed after confirmed fill",
			slog.String("position_id", pos.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	plan.State = domain.PlanCompleted

	c.recordTrade(ctx, trade)
}

// recordTrade persists the closed trade, feeds the outcome to the safety
// monitor, and notifies operators.
func (c *Coordinator) recordTrade(ctx context.Context, trade domain.ClosedTrade) {
	if c.deps.Trades != nil {
		if err := c.deps.Trades.Append(ctx, trade); err != nil {
			c.logger.ErrorContext(ctx, "trade history append failed",
				slog.String("trade_id", trade.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	c.deps.Safety.RecordOutcome(ctx, trade.ProfitLoss > 0)

	if c.deps.Notifier != nil {
		title := fmt.Sprintf("Closed %s (%s)", trade.Symbol, trade.Reason)
		msg := fmt.Sprintf("PnL %+.6f (%.1f%%), exited %.0f%% at %.8g",
			trade.ProfitLoss, trade.ProfitLossPercent*100, trade.PercentExited, trade.ExitPrice)
		if err := c.deps.Notifier.Notify(ctx, "position_closed", title, msg); err != nil {
			c.logger.DebugContext(ctx, "close notification failed",
				slog.String("error", err.Error()),
			)
		}
	}
}

// admitCandidates drains up to maxEntriesPerTick queued candidates through
// the entry path.
func (c *Coordinator) admitCandidates(ctx context.Context) {
	if c.deps.Candidates == nil {
		return
	}
	for i := 0; i < maxEntriesPerTick; i++ {
		select {
		case cand, ok := <-c.deps.Candidates:
			if !ok {
				return
			}
			c.tryEnter(ctx, cand)
		default:
			return
		}
	}
}

// tryEnter runs one candidate through the full entry path: safety gate,
// liquidity pre-filter, risk scoring, weighted evaluation, book pre-check,
// execution, and finally the book open.
func (c *Coordinator) tryEnter(ctx context.Context, cand domain.Candidate) {
	if err := c.deps.Safety.Guard(); err != nil {
		c.logger.WarnContext(ctx, "entry aborted",
			slog.String("mint", cand.Mint),
			slog.String("error", err.Error()),
		)
		return
	}

	if cand.LiquidityEstimate < c.entryCfg.MinLiquidity {
		c.logger.DebugContext(ctx, "candidate below liquidity floor",
			slog.String("mint", cand.Mint),
			slog.Float64("liquidity", cand.LiquidityEstimate),
		)
		return
	}

	signals, err := c.deps.Scorer.ScoreRisk(ctx, cand.Mint)
	if err != nil {
		// Worst-case signals: evaluation proceeds and rejects on merit.
		c.deps.Safety.RecordExternalFailure(ctx)
		c.logger.WarnContext(ctx, "risk scoring failed, using worst-case signals",
			slog.String("mint", cand.Mint),
			slog.String("error", err.Error()),
		)
		signals = domain.RiskSignals{}
	}

	decision := c.deps.EntryEval.Evaluate(cand, signals)
	if !decision.ShouldEnter {
		return
	}

	quote := c.cfg.QuotePerPosition
	if err := c.deps.Book.CanOpen(cand.Mint, quote); err != nil {
		c.logger.InfoContext(ctx, "entry skipped by book limits",
			slog.String("mint", cand.Mint),
			slog.String("error", err.Error()),
		)
		return
	}

	plan := domain.EntryPlan{
		ID:          uuid.NewString(),
		Mint:        cand.Mint,
		Symbol:      cand.Symbol,
		QuoteAmount: quote,
		State:       domain.PlanPending,
		CreatedAt:   time.Now().UTC(),
		ExpiresAt:   time.Now().UTC().Add(c.entryCfg.PlanTTL.Duration),
	}
	defer func() { c.plans.recordEntry(plan) }()

	if plan.Expired(time.Now().UTC()) {
		plan.State = domain.PlanExpired
		return
	}
	plan.State = domain.PlanExecuting

	var fill domain.EntryFill
	err = c.policy.Do(ctx, func(ctx context.Context) error {
		if plan.Expired(time.Now().UTC()) {
			return retry.Permanent(domain.ErrPlanExpired)
		}
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout.Duration)
		defer cancel()

		var err error
		fill, err = c.deps.Executor.ExecuteEntry(callCtx, cand.Mint, quote)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrPlanExpired) {
			plan.State = domain.PlanExpired
		} else {
			plan.State = domain.PlanFailed
			c.deps.Safety.RecordExternalFailure(ctx)
		}
		c.logger.ErrorContext(ctx, "entry execution failed",
			slog.String("mint", cand.Mint),
			slog.String("error", err.Error()),
		)
		return
	}

	pos, err := c.deps.Book.Open(position.OpenParams{
		Mint:        cand.Mint,
		Symbol:      cand.Symbol,
		EntryPrice:  fill.FillPrice,
		QuoteAmount: quote,
		Units:       fill.UnitsReceived,
	})
	if err != nil {
		// The fill is already held; unwind it rather than carrying an
		// untracked balance.
		plan.State = domain.PlanFailed
		c.logger.ErrorContext(ctx, "book refused position after fill, unwinding",
			slog.String("mint", cand.Mint),
			slog.String("error", err.Error()),
		)
		if _, uerr := c.deps.Executor.ExecuteExit(ctx, cand.Mint, fill.UnitsReceived); uerr != nil {
			c.logger.ErrorContext(ctx, "entry unwind failed",
				slog.String("mint", cand.Mint),
				slog.String("error", uerr.Error()),
			)
		}
		return
	}
	plan.State = domain.PlanCompleted

	if c.deps.Seeder != nil {
		c.deps.Seeder.Seed(cand.Mint, fill.FillPrice)
	}

	c.logger.InfoContext(ctx, "entered position",
		slog.String("position_id", pos.ID),
		slog.String("mint", cand.Mint),
		slog.Float64("score", decision.Score),
		slog.String("recommendation", string(decision.Recommendation)),
		slog.Float64("fill_price", fill.FillPrice),
	)
	if c.deps.Notifier != nil {
		title := fmt.Sprintf("Opened %s (%s)", cand.Symbol, decision.Recommendation)
		msg := fmt.Sprintf("Committed %.4f at %.8g, score %.0f", quote, fill.FillPrice, decision.Score)
		if err := c.deps.Notifier.Notify(ctx, "position_opened", title, msg); err != nil {
			c.logger.DebugContext(ctx, "open notification failed",
				slog.String("error", err.Error()),
			)
		}
	}
}
