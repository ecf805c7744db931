package scoring

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/snipebot/internal/config"
)

func newTestScorer(t *testing.T, handler http.HandlerFunc) *HTTPScorer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := config.ScorerConfig{BaseURL: srv.URL}
	return NewHTTPScorer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestScoreRiskAllFields(t *testing.T) {
	s := newTestScorer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/risk/mintA", r.URL.Path)
		w.Write([]byte(`{"safety_score": 82.5, "holder_health": 70, "sentiment_score": 55}`))
	})

	signals, err := s.ScoreRisk(context.Background(), "mintA")
	require.NoError(t, err)

	assert.Equal(t, 82.5, signals.SafetyScore)
	assert.True(t, signals.SafetyPresent)
	assert.Equal(t, 70.0, signals.HolderHealth)
	assert.True(t, signals.HolderPresent)
	assert.Equal(t, 55.0, signals.SentimentScore)
	assert.True(t, signals.SentimentPresent)
}

func TestScoreRiskPartialFields(t *testing.T) {
	s := newTestScorer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"safety_score": 90}`))
	})

	signals, err := s.ScoreRisk(context.Background(), "mintA")
	require.NoError(t, err)

	assert.True(t, signals.SafetyPresent)
	assert.False(t, signals.HolderPresent)
	assert.False(t, signals.SentimentPresent)
}

func TestScoreRiskZeroIsPresent(t *testing.T) {
	// An explicit zero score is data, not absence.
	s := newTestScorer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"safety_score": 0, "holder_health": 0, "sentiment_score": 0}`))
	})

	signals, err := s.ScoreRisk(context.Background(), "mintA")
	require.NoError(t, err)

	assert.True(t, signals.SafetyPresent)
	assert.Equal(t, 0.0, signals.SafetyScore)
}

func TestScoreRiskServerError(t *testing.T) {
	s := newTestScorer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	_, err := s.ScoreRisk(context.Background(), "mintA")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
