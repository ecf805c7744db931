package domain

import "time"

// Candidate is a newly discovered asset pushed by the discovery feed.
type Candidate struct {
	Mint              string
	Symbol            string
	LiquidityEstimate float64 // quote-currency depth reported by the feed
	DiscoveredAt      time.Time
}

// RiskSignals holds the per-asset scores supplied by the external risk
// scorer. Present flags distinguish "scored zero" from "no data"; evaluation
// treats absent data as worst-case.
type RiskSignals struct {
	SafetyScore      float64 // 0-100
	SafetyPresent    bool
	HolderHealth     float64 // 0-100
	HolderPresent    bool
	SentimentScore   float64 // 0-100
	SentimentPresent bool
}

// Recommendation is the tier attached to an entry decision.
type Recommendation string

const (
	RecommendationStrongBuy Recommendation = "strong_buy"
	RecommendationBuy       Recommendation = "buy"
	RecommendationMarginal  Recommendation = "marginal"
	RecommendationReject    Recommendation = "reject"
)

// CriterionName identifies one weighted entry criterion.
type CriterionName string

const (
	CriterionSafety    CriterionName = "safety"
	CriterionHolders   CriterionName = "holders"
	CriterionLiquidity CriterionName = "liquidity"
	CriterionSentiment CriterionName = "sentiment"
)

// EntryDecision is the result of scoring a candidate. ShouldEnter requires
// both the aggregate score minimum and an empty CriticalFailures list.
type EntryDecision struct {
	ShouldEnter      bool
	Score            float64 // 0-100 weighted aggregate
	Recommendation   Recommendation
	CriticalFailures []CriterionName
}
