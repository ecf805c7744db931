package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alanyoungcy/snipebot/internal/domain"
)

// PositionBook is the slice of the position store the API reads from.
type PositionBook interface {
	Active() []domain.Position
	Exposure() float64
	Available() float64
	PortfolioValue() float64
	Count() int
}

// SafetyMonitor exposes circuit-breaker state and the manual reset.
type SafetyMonitor interface {
	State() domain.SafetyState
	Reset(ctx context.Context) error
	IsSafeToTrade() bool
}

// TradeReader serves closed-trade history and aggregates.
type TradeReader interface {
	ListRecent(ctx context.Context, limit int) ([]domain.ClosedTrade, error)
	Summary(ctx context.Context) (domain.PerformanceSummary, error)
}

// PlanLog exposes the coordinator's recent entry and exit plans.
type PlanLog interface {
	RecentEntryPlans() []domain.EntryPlan
	RecentExitPlans() []domain.ExitPlan
}

// FeedStats reports discovery-feed queue health.
type FeedStats interface {
	Dropped() int64
}

// PriceReader serves the last cached mark per asset. domain.PriceCache
// satisfies it.
type PriceReader interface {
	GetPrice(ctx context.Context, mint string) (float64, time.Time, error)
}

// Handler serves all API endpoints. Trades, Plans, Feed, and Prices may be
// nil when the running mode does not wire them; the affected endpoints then
// return 503 or omit the field.
type Handler struct {
	mode      string
	startedAt time.Time
	book      PositionBook
	safety    SafetyMonitor
	trades    TradeReader
	plans     PlanLog
	feed      FeedStats
	prices    PriceReader
	logger    *slog.Logger
}

// NewHandler creates a Handler for the given dependencies.
func NewHandler(mode string, book PositionBook, safety SafetyMonitor, trades TradeReader, plans PlanLog, feed FeedStats, prices PriceReader, logger *slog.Logger) *Handler {
	return &Handler{
		mode:      mode,
		startedAt: time.Now().UTC(),
		book:      book,
		safety:    safety,
		trades:    trades,
		plans:     plans,
		feed:      feed,
		prices:    prices,
		logger:    logger.With(slog.String("component", "api")),
	}
}

// Health responds with a simple liveness status.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// statusResponse is the runtime snapshot served by Status.
type statusResponse struct {
	Mode           string  `json:"mode"`
	UptimeSeconds  int64   `json:"uptime_seconds"`
	SafeToTrade    bool    `json:"safe_to_trade"`
	OpenPositions  int     `json:"open_positions"`
	Exposure       float64 `json:"exposure"`
	Available      float64 `json:"available"`
	PortfolioValue float64 `json:"portfolio_value"`
	FeedDropped    *int64  `json:"feed_dropped,omitempty"`
}

// Status returns a runtime snapshot of the bot.
// GET /api/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Mode:           h.mode,
		UptimeSeconds:  int64(time.Since(h.startedAt).Seconds()),
		SafeToTrade:    h.safety.IsSafeToTrade(),
		OpenPositions:  h.book.Count(),
		Exposure:       h.book.Exposure(),
		Available:      h.book.Available(),
		PortfolioValue: h.book.PortfolioValue(),
	}
	if h.feed != nil {
		dropped := h.feed.Dropped()
		resp.FeedDropped = &dropped
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListPositions returns all open positions, oldest first.
// GET /api/positions
func (h *Handler) ListPositions(w http.ResponseWriter, r *http.Request) {
	positions := h.book.Active()
	if positions == nil {
		positions = []domain.Position{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"positions": positions})
}

// SafetyState returns the circuit breaker snapshot.
// GET /api/safety
func (h *Handler) SafetyState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.safety.State())
}

// ResetSafety clears a tripped circuit breaker. It fails with 409 when the
// monitor refuses, e.g. while the manual stop file is still present.
// POST /api/safety/reset
func (h *Handler) ResetSafety(w http.ResponseWriter, r *http.Request) {
	if err := h.safety.Reset(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "safety reset refused",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.safety.State())
}

// ListTrades returns the most recent closed trades.
// GET /api/trades?limit=50
func (h *Handler) ListTrades(w http.ResponseWriter, r *http.Request) {
	if h.trades == nil {
		writeError(w, http.StatusServiceUnavailable, "trade history not configured")
		return
	}

	trades, err := h.trades.ListRecent(r.Context(), parseLimit(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list trades failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}
	if trades == nil {
		trades = []domain.ClosedTrade{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"trades": trades})
}

// Performance returns aggregate trade statistics.
// GET /api/performance
func (h *Handler) Performance(w http.ResponseWriter, r *http.Request) {
	if h.trades == nil {
		writeError(w, http.StatusServiceUnavailable, "trade history not configured")
		return
	}

	summary, err := h.trades.Summary(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "performance summary failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to compute summary")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ListEntryPlans returns recent entry plans, newest first.
// GET /api/plans/entries
func (h *Handler) ListEntryPlans(w http.ResponseWriter, r *http.Request) {
	if h.plans == nil {
		writeError(w, http.StatusServiceUnavailable, "coordinator not running")
		return
	}
	plans := h.plans.RecentEntryPlans()
	if plans == nil {
		plans = []domain.EntryPlan{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": plans})
}

// ListExitPlans returns recent exit plans, newest first.
// GET /api/plans/exits
func (h *Handler) ListExitPlans(w http.ResponseWriter, r *http.Request) {
	if h.plans == nil {
		writeError(w, http.StatusServiceUnavailable, "coordinator not running")
		return
	}
	plans := h.plans.RecentExitPlans()
	if plans == nil {
		plans = []domain.ExitPlan{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": plans})
}

// LastPrice returns the last cached mark for one asset. This is how monitor
// mode (and a freshly restarted process) sees prices without a live feed.
// GET /api/prices/{mint}
func (h *Handler) LastPrice(w http.ResponseWriter, r *http.Request) {
	if h.prices == nil {
		writeError(w, http.StatusServiceUnavailable, "price cache not configured")
		return
	}

	mint := r.PathValue("mint")
	price, ts, err := h.prices.GetPrice(r.Context(), mint)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no cached price for "+mint)
			return
		}
		h.logger.ErrorContext(r.Context(), "price cache read failed",
			slog.String("mint", mint),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read price cache")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"mint":       mint,
		"price":      price,
		"updated_at": ts.UTC().Format(time.RFC3339),
	})
}

// writeJSON marshals v and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseLimit extracts the limit query parameter. Defaults to 50, capped at
// 500.
func parseLimit(r *http.Request) int {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}
	return limit
}
