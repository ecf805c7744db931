// Package engine holds the pure decision logic of the bot: entry scoring and
// exit-trigger evaluation. Both evaluators are side-effect free; the lifecycle
// coordinator owns all resulting state mutation.
package engine

import (
	"log/slog"

	"github.com/alanyoungcy/snipebot/internal/config"
	"github.com/alanyoungcy/snipebot/internal/domain"
)

// Criterion weights. They sum to 1.0 so the aggregate stays on the 0-100
// scale of its inputs.
const (
	weightSafety    = 0.40
	weightHolders   = 0.20
	weightLiquidity = 0.20
	weightSentiment = 0.20
)

// Recommendation tier boundaries on the aggregate score.
const (
	strongBuyScore = 85.0
	marginalLeeway = 15.0
)

// EntryEvaluator scores discovery candidates against weighted risk criteria.
type EntryEvaluator struct {
	cfg    config.EntryConfig
	logger *slog.Logger
}

// NewEntryEvaluator creates an EntryEvaluator.
func NewEntryEvaluator(cfg config.EntryConfig, logger *slog.Logger) *EntryEvaluator {
	return &EntryEvaluator{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "entry_evaluator")),
	}
}

// Evaluate scores a candidate. The aggregate is a weighted sum of safety,
// holder health, a liquidity pass/fail gate, and sentiment. Safety and holder
// health are critical: falling below their minimum rejects the candidate no
// matter how strong the aggregate is, since one dominant dimension must not
// mask a fatal one.
//
// Signals whose Present flag is unset score zero for their criterion, so
// partial data biases toward rejection.
func (e *EntryEvaluator) Evaluate(c domain.Candidate, signals domain.RiskSignals) domain.EntryDecision {
	safety := 0.0
	if signals.SafetyPresent {
		safety = clampScore(signals.SafetyScore)
	}
	holders := 0.0
	if signals.HolderPresent {
		holders = clampScore(signals.HolderHealth)
	}
	sentiment := 0.0
	if signals.SentimentPresent {
		sentiment = clampScore(signals.SentimentScore)
	}
	if sentiment < e.cfg.MinSentiment {
		// Sentiment below the floor contributes nothing, but is not critical.
		sentiment = 0
	}

	liquidity := 0.0
	if c.LiquidityEstimate >= e.cfg.MinLiquidity {
		liquidity = 100
	}

	score := safety*weightSafety +
		holders*weightHolders +
		liquidity*weightLiquidity +
		sentiment*weightSentiment

	var critical []domain.CriterionName
	if safety < e.cfg.MinSafety {
		critical = append(critical, domain.CriterionSafety)
	}
	if holders < e.cfg.MinHolders {
		critical = append(critical, domain.CriterionHolders)
	}

	decision := domain.EntryDecision{
		Score:            score,
		CriticalFailures: critical,
	}
	decision.ShouldEnter = score >= e.cfg.MinScore && len(critical) == 0
	decision.Recommendation = e.recommend(score, len(critical) > 0)

	e.logger.Debug("candidate evaluated",
		slog.String("mint", c.Mint),
		slog.String("symbol", c.Symbol),
		slog.Float64("score", score),
		slog.Bool("should_enter", decision.ShouldEnter),
		slog.String("recommendation", string(decision.Recommendation)),
		slog.Int("critical_failures", len(critical)),
	)
	return decision
}

// recommend maps an aggregate score to a recommendation tier. Any critical
// failure forces a reject.
func (e *EntryEvaluator) recommend(score float64, criticalFailed bool) domain.Recommendation {
	if criticalFailed {
		return domain.RecommendationReject
	}
	switch {
	case score >= strongBuyScore:
		return domain.RecommendationStrongBuy
	case score >= e.cfg.MinScore:
		return domain.RecommendationBuy
	case score >= e.cfg.MinScore-marginalLeeway:
		return domain.RecommendationMarginal
	default:
		return domain.RecommendationReject
	}
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
