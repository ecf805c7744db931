package exec

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/snipebot/internal/config"
	"github.com/alanyoungcy/snipebot/internal/domain"
	"github.com/alanyoungcy/snipebot/internal/retry"
)

type fixedPrice struct {
	price float64
	err   error
}

func (f fixedPrice) GetPrice(context.Context, string) (float64, error) {
	return f.price, f.err
}

func TestPaperExecutorEntrySlippage(t *testing.T) {
	cfg := config.PricingConfig{SimSlippageBps: 100} // 1%
	e := NewPaperExecutor(fixedPrice{price: 1.0}, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	fill, err := e.ExecuteEntry(context.Background(), "mintA", 0.5)
	require.NoError(t, err)

	assert.InDelta(t, 1.01, fill.FillPrice, 1e-9)
	assert.InDelta(t, 0.5/1.01, fill.UnitsReceived, 1e-9)
}

func TestPaperExecutorExitSlippage(t *testing.T) {
	cfg := config.PricingConfig{SimSlippageBps: 100}
	e := NewPaperExecutor(fixedPrice{price: 2.0}, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	fill, err := e.ExecuteExit(context.Background(), "mintA", 10)
	require.NoError(t, err)

	assert.InDelta(t, 1.98, fill.FillPrice, 1e-9)
	assert.InDelta(t, 19.8, fill.Proceeds, 1e-9)
}

func TestPaperExecutorPropagatesPriceError(t *testing.T) {
	e := NewPaperExecutor(fixedPrice{err: domain.ErrPriceUnavailable}, config.PricingConfig{},
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := e.ExecuteEntry(context.Background(), "mintA", 0.5)
	assert.ErrorIs(t, err, domain.ErrPriceUnavailable)
}

func testHTTPExecutor(baseURL string) *HTTPExecutor {
	cfg := config.ExecConfig{BaseURL: baseURL}
	cfg.Timeout.Duration = time.Second
	return NewHTTPExecutor(cfg)
}

func TestHTTPExecutorEntry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/swap", r.URL.Path)
		var req swapRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "buy", req.Side)
		json.NewEncoder(w).Encode(swapResponse{FillPrice: 0.00001, Units: 50000})
	}))
	defer srv.Close()

	fill, err := testHTTPExecutor(srv.URL).ExecuteEntry(context.Background(), "mintA", 0.5)
	require.NoError(t, err)
	assert.Equal(t, 0.00001, fill.FillPrice)
	assert.Equal(t, 50000.0, fill.UnitsReceived)
}

func TestHTTPExecutorMakesOneRequestPerCall(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testHTTPExecutor(srv.URL).ExecuteExit(context.Background(), "mintA", 10)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Contains(t, err.Error(), "502")
}

func TestHTTPExecutorServerErrorsRetriedByCallerPolicy(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(swapResponse{FillPrice: 1.0, Proceeds: 9.9})
	}))
	defer srv.Close()

	e := testHTTPExecutor(srv.URL)
	policy := retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	var fill domain.ExitFill
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		var err error
		fill, err = e.ExecuteExit(ctx, "mintA", 10)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 9.9, fill.Proceeds)
}

func TestHTTPExecutorRejectionStopsCallerPolicy(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "bad order", http.StatusBadRequest)
	}))
	defer srv.Close()

	e := testHTTPExecutor(srv.URL)
	policy := retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	err := policy.Do(context.Background(), func(ctx context.Context) error {
		_, err := e.ExecuteEntry(ctx, "mintA", 0.5)
		return err
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Contains(t, err.Error(), "400")
}

func TestHTTPExecutorRejectsBadFillPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(swapResponse{FillPrice: 0})
	}))
	defer srv.Close()

	_, err := testHTTPExecutor(srv.URL).ExecuteEntry(context.Background(), "mintA", 0.5)
	require.Error(t, err)
	assert.False(t, errors.Is(err, context.DeadlineExceeded))
	assert.Contains(t, err.Error(), "non-positive price")
}
