package engine

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/snipebot/internal/config"
	"github.com/alanyoungcy/snipebot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func entryCfg() config.EntryConfig {
	cfg := config.Defaults().Entry
	return cfg
}

func allPresent(safety, holders, sentiment float64) domain.RiskSignals {
	return domain.RiskSignals{
		SafetyScore:      safety,
		SafetyPresent:    true,
		HolderHealth:     holders,
		HolderPresent:    true,
		SentimentScore:   sentiment,
		SentimentPresent: true,
	}
}

func TestEvaluateAcceptsStrongCandidate(t *testing.T) {
	e := NewEntryEvaluator(entryCfg(), testLogger())
	c := domain.Candidate{Mint: "mintA", Symbol: "AAA", LiquidityEstimate: 50}

	d := e.Evaluate(c, allPresent(90, 80, 70))

	// 90*0.4 + 80*0.2 + 100*0.2 + 70*0.2 = 86
	assert.InDelta(t, 86.0, d.Score, 1e-9)
	assert.True(t, d.ShouldEnter)
	assert.Empty(t, d.CriticalFailures)
	assert.Equal(t, domain.RecommendationStrongBuy, d.Recommendation)
}

func TestEvaluateCriticalOverride(t *testing.T) {
	// A failing safety score must reject even when everything else is maxed.
	e := NewEntryEvaluator(entryCfg(), testLogger())
	c := domain.Candidate{Mint: "mintB", LiquidityEstimate: 1000}

	d := e.Evaluate(c, allPresent(10, 100, 100))

	assert.False(t, d.ShouldEnter)
	assert.Equal(t, domain.RecommendationReject, d.Recommendation)
	assert.Contains(t, d.CriticalFailures, domain.CriterionSafety)
}

func TestEvaluateMissingSignalsWorstCase(t *testing.T) {
	// Absent signals score zero, which also fails the critical minimums.
	e := NewEntryEvaluator(entryCfg(), testLogger())
	c := domain.Candidate{Mint: "mintC", LiquidityEstimate: 1000}

	d := e.Evaluate(c, domain.RiskSignals{})

	assert.False(t, d.ShouldEnter)
	// Only the liquidity gate passes: 100*0.2 = 20.
	assert.InDelta(t, 20.0, d.Score, 1e-9)
	assert.ElementsMatch(t,
		[]domain.CriterionName{domain.CriterionSafety, domain.CriterionHolders},
		d.CriticalFailures)
}

func TestEvaluateLiquidityGate(t *testing.T) {
	cfg := entryCfg()
	cfg.MinLiquidity = 10
	e := NewEntryEvaluator(cfg, testLogger())

	thin := e.Evaluate(domain.Candidate{Mint: "m", LiquidityEstimate: 9.99}, allPresent(90, 80, 70))
	deep := e.Evaluate(domain.Candidate{Mint: "m", LiquidityEstimate: 10.0}, allPresent(90, 80, 70))

	// The gate is pass/fail worth 20 points.
	assert.InDelta(t, 20.0, deep.Score-thin.Score, 1e-9)
}

func TestEvaluateSentimentFloor(t *testing.T) {
	cfg := entryCfg()
	cfg.MinSentiment = 30
	e := NewEntryEvaluator(cfg, testLogger())
	c := domain.Candidate{Mint: "m", LiquidityEstimate: 1000}

	below := e.Evaluate(c, allPresent(90, 80, 29))
	above := e.Evaluate(c, allPresent(90, 80, 30))

	// Below the floor sentiment contributes nothing but does not reject.
	assert.True(t, below.ShouldEnter)
	assert.InDelta(t, 6.0, above.Score-below.Score, 1e-9)
}

func TestRecommendationTiers(t *testing.T) {
	cfg := entryCfg() // MinScore 60
	e := NewEntryEvaluator(cfg, testLogger())

	tests := []struct {
		score    float64
		critical bool
		want     domain.Recommendation
	}{
		{90, false, domain.RecommendationStrongBuy},
		{70, false, domain.RecommendationBuy},
		{50, false, domain.RecommendationMarginal},
		{40, false, domain.RecommendationReject},
		{95, true, domain.RecommendationReject},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, e.recommend(tt.score, tt.critical), "score %.0f", tt.score)
	}
}
