package scoring

import (
	"context"

	"github.com/alanyoungcy/snipebot/internal/domain"
)

var _ domain.RiskScorer = (*Static)(nil)

// Static returns the same risk signals for every asset. It stands in for
// the scoring service in paper mode when no endpoint is configured, so dry
// runs can exercise the entry path end to end.
type Static struct {
	signals domain.RiskSignals
}

// NewStatic creates a Static scorer returning the given signals.
func NewStatic(signals domain.RiskSignals) *Static {
	return &Static{signals: signals}
}

// NewPermissiveStatic returns a Static scorer whose signals clear the
// default entry thresholds comfortably.
func NewPermissiveStatic() *Static {
	return NewStatic(domain.RiskSignals{
		SafetyScore:      80,
		SafetyPresent:    true,
		HolderHealth:     75,
		HolderPresent:    true,
		SentimentScore:   65,
		SentimentPresent: true,
	})
}

// ScoreRisk returns the fixed signals.
func (s *Static) ScoreRisk(_ context.Context, _ string) (domain.RiskSignals, error) {
	return s.signals, nil
}
