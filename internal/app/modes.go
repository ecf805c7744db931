package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/snipebot/internal/coordinator"
	"github.com/alanyoungcy/snipebot/internal/domain"
	"github.com/alanyoungcy/snipebot/internal/engine"
	"github.com/alanyoungcy/snipebot/internal/exec"
	"github.com/alanyoungcy/snipebot/internal/feed"
	"github.com/alanyoungcy/snipebot/internal/position"
	"github.com/alanyoungcy/snipebot/internal/pricing"
	"github.com/alanyoungcy/snipebot/internal/retry"
	"github.com/alanyoungcy/snipebot/internal/safety"
	"github.com/alanyoungcy/snipebot/internal/scoring"
	"github.com/alanyoungcy/snipebot/internal/server"
)

// shutdownGrace bounds how long in-flight HTTP requests may run after the
// context is cancelled.
const shutdownGrace = 10 * time.Second

// tradeMode runs the full trading loop. Paper mode swaps in the price
// simulator and simulated fills; live mode talks to the real endpoints with
// the simulator kept as price fallback.
func (a *App) tradeMode(ctx context.Context, deps *Dependencies, live bool) error {
	a.logger.InfoContext(ctx, "starting trade mode", slog.Bool("live", live))

	g, ctx := errgroup.WithContext(ctx)

	book := position.NewBook(a.cfg.Trading, a.logger)
	stop := safety.NewFileSentinel(a.cfg.Safety.ManualStopFile)
	monitor := safety.NewMonitor(a.cfg.Safety, !live, stop, deps.Notifier, a.logger)

	sim := pricing.NewSimulator(a.cfg.Pricing)
	policy := retry.DefaultPolicy()

	var (
		prices   domain.PriceSource
		fallback domain.PriceSource
		executor domain.SwapExecutor
		scorer   domain.RiskScorer
	)
	if live {
		prices = pricing.NewHTTPSource(a.cfg.Pricing)
		fallback = sim
		executor = exec.NewHTTPExecutor(a.cfg.Exec)
		scorer = scoring.NewHTTPScorer(a.cfg.Scorer, a.logger)
	} else {
		prices = sim
		executor = exec.NewPaperExecutor(sim, a.cfg.Pricing, a.logger)
		if a.cfg.Scorer.BaseURL != "" {
			scorer = scoring.NewHTTPScorer(a.cfg.Scorer, a.logger)
		} else {
			scorer = scoring.NewPermissiveStatic()
		}
	}

	// Discovery feed. Optional in paper mode; validation requires it live.
	var queue *feed.Queue
	if a.cfg.Discovery.WsURL != "" {
		queue = feed.NewQueue(a.cfg.Discovery.QueueSize, a.logger)
		ws := feed.NewWSClient(a.cfg.Discovery.WsURL, queue, a.logger)
		ws.Start(ctx)
		g.Go(func() error {
			<-ctx.Done()
			return ws.Close()
		})
	}

	var candidates <-chan domain.Candidate
	if queue != nil {
		candidates = queue.C()
	}

	coord := coordinator.New(a.cfg.Trading, a.cfg.Entry, coordinator.Deps{
		Book:       book,
		EntryEval:  engine.NewEntryEvaluator(a.cfg.Entry, a.logger),
		ExitEval:   engine.NewExitEvaluator(a.cfg.Exit, a.logger),
		Safety:     monitor,
		Prices:     prices,
		Fallback:   fallback,
		Seeder:     sim,
		Executor:   executor,
		Scorer:     scorer,
		Trades:     deps.TradeStore,
		PriceCache: deps.PriceCache,
		Notifier:   deps.Notifier,
		Candidates: candidates,
	}, policy, a.logger)

	g.Go(func() error {
		return coord.Run(ctx)
	})
	g.Go(func() error {
		return monitor.Run(ctx)
	})

	if deps.Archiver != nil {
		g.Go(func() error {
			return deps.Archiver.Run(ctx)
		})
	}

	if a.cfg.Server.Enabled {
		var feedStats server.FeedStats
		if queue != nil {
			feedStats = queue
		}
		handler := server.NewHandler(a.cfg.Mode, book, monitor, deps.TradeStore, coord, feedStats, deps.PriceCache, a.logger)
		a.startServer(ctx, g, handler)
	}

	return g.Wait()
}

// monitorMode serves the read-only API over trade history, safety state, and
// cached marks without running the trading loop.
func (a *App) monitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)

	book := position.NewBook(a.cfg.Trading, a.logger)
	stop := safety.NewFileSentinel(a.cfg.Safety.ManualStopFile)
	monitor := safety.NewMonitor(a.cfg.Safety, true, stop, deps.Notifier, a.logger)

	g.Go(func() error {
		return monitor.Run(ctx)
	})

	if a.cfg.Server.Enabled {
		handler := server.NewHandler(a.cfg.Mode, book, monitor, deps.TradeStore, nil, nil, deps.PriceCache, a.logger)
		a.startServer(ctx, g, handler)
	}

	return g.Wait()
}

// startServer launches the HTTP server on the group and shuts it down when
// the context is cancelled.
func (a *App) startServer(ctx context.Context, g *errgroup.Group, handler *server.Handler) {
	srv := server.New(a.cfg.Server, handler, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
