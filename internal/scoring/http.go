// Package scoring provides the client for the external risk-scoring service.
package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/alanyoungcy/snipebot/internal/config"
	"github.com/alanyoungcy/snipebot/internal/domain"
)

var _ domain.RiskScorer = (*HTTPScorer)(nil)

// HTTPScorer fetches per-asset risk signals over REST. Fields the service
// omits come back with their Present flag unset, which entry evaluation
// treats as worst-case, so partial scorer data biases toward rejection.
type HTTPScorer struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPScorer creates an HTTPScorer for the configured scoring service.
func NewHTTPScorer(cfg config.ScorerConfig, logger *slog.Logger) *HTTPScorer {
	return &HTTPScorer{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout.Duration,
		},
		logger: logger.With(slog.String("component", "risk_scorer")),
	}
}

// riskResponse uses pointers so an absent field is distinguishable from an
// explicit zero score.
type riskResponse struct {
	SafetyScore    *float64 `json:"safety_score"`
	HolderHealth   *float64 `json:"holder_health"`
	SentimentScore *float64 `json:"sentiment_score"`
}

// ScoreRisk returns the risk signals for mint.
func (s *HTTPScorer) ScoreRisk(ctx context.Context, mint string) (domain.RiskSignals, error) {
	path := fmt.Sprintf("/v1/risk/%s", url.PathEscape(mint))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return domain.RiskSignals{}, fmt.Errorf("scoring: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return domain.RiskSignals{}, fmt.Errorf("scoring: fetch %s: %w", mint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.RiskSignals{}, fmt.Errorf("scoring: fetch %s: unexpected status %d: %s", mint, resp.StatusCode, string(body))
	}

	var rr riskResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return domain.RiskSignals{}, fmt.Errorf("scoring: decode response for %s: %w", mint, err)
	}

	var signals domain.RiskSignals
	if rr.SafetyScore != nil {
		signals.SafetyScore = *rr.SafetyScore
		signals.SafetyPresent = true
	}
	if rr.HolderHealth != nil {
		signals.HolderHealth = *rr.HolderHealth
		signals.HolderPresent = true
	}
	if rr.SentimentScore != nil {
		signals.SentimentScore = *rr.SentimentScore
		signals.SentimentPresent = true
	}

	if !signals.SafetyPresent || !signals.HolderPresent {
		s.logger.WarnContext(ctx, "scorer returned partial signals",
			slog.String("mint", mint),
			slog.Bool("safety_present", signals.SafetyPresent),
			slog.Bool("holders_present", signals.HolderPresent),
		)
	}
	return signals, nil
}
