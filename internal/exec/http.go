package exec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/alanyoungcy/snipebot/internal/config"
	"github.com/alanyoungcy/snipebot/internal/domain"
	"github.com/alanyoungcy/snipebot/internal/retry"
)

var _ domain.SwapExecutor = (*HTTPExecutor)(nil)

// HTTPExecutor submits swaps to an aggregator REST API. Each call makes
// exactly one request; the coordinator's retry policy owns all retries.
// 4xx responses are wrapped as permanent (retrying an invalid order cannot
// help), transport errors and 5xx responses are returned plain so the
// caller's policy retries them.
type HTTPExecutor struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPExecutor creates an HTTPExecutor for the configured aggregator.
func NewHTTPExecutor(cfg config.ExecConfig) *HTTPExecutor {
	return &HTTPExecutor{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout.Duration},
	}
}

type swapRequest struct {
	Mint        string  `json:"mint"`
	Side        string  `json:"side"` // "buy" or "sell"
	QuoteAmount float64 `json:"quote_amount,omitempty"`
	Units       float64 `json:"units,omitempty"`
}

type swapResponse struct {
	FillPrice float64 `json:"fill_price"`
	Units     float64 `json:"units"`
	Proceeds  float64 `json:"proceeds"`
}

// ExecuteEntry buys quoteAmount worth of mint and returns the confirmed fill.
func (e *HTTPExecutor) ExecuteEntry(ctx context.Context, mint string, quoteAmount float64) (domain.EntryFill, error) {
	resp, err := e.submit(ctx, swapRequest{Mint: mint, Side: "buy", QuoteAmount: quoteAmount})
	if err != nil {
		return domain.EntryFill{}, fmt.Errorf("exec: entry %s: %w", mint, err)
	}
	return domain.EntryFill{FillPrice: resp.FillPrice, UnitsReceived: resp.Units}, nil
}

// ExecuteExit sells unitsToSell of mint and returns the confirmed fill.
func (e *HTTPExecutor) ExecuteExit(ctx context.Context, mint string, unitsToSell float64) (domain.ExitFill, error) {
	resp, err := e.submit(ctx, swapRequest{Mint: mint, Side: "sell", Units: unitsToSell})
	if err != nil {
		return domain.ExitFill{}, fmt.Errorf("exec: exit %s: %w", mint, err)
	}
	return domain.ExitFill{FillPrice: resp.FillPrice, Proceeds: resp.Proceeds}, nil
}

// submit posts one swap order. One attempt only.
func (e *HTTPExecutor) submit(ctx context.Context, order swapRequest) (swapResponse, error) {
	payload, err := json.Marshal(order)
	if err != nil {
		return swapResponse{}, retry.Permanent(fmt.Errorf("marshal order: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/swap", bytes.NewReader(payload))
	if err != nil {
		return swapResponse{}, retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return swapResponse{}, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return swapResponse{}, retry.Permanent(fmt.Errorf("rejected with status %d: %s", resp.StatusCode, string(body)))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return swapResponse{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out swapResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return swapResponse{}, fmt.Errorf("decode fill: %w", err)
	}
	if out.FillPrice <= 0 {
		return swapResponse{}, retry.Permanent(fmt.Errorf("fill confirmed with non-positive price %g", out.FillPrice))
	}
	return out, nil
}
