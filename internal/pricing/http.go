// Package pricing provides the price sources consumed by the lifecycle
// coordinator: an HTTP quote client for live operation and a seedable
// random-walk simulator for paper mode and live-fetch fallback.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/alanyoungcy/snipebot/internal/config"
	"github.com/alanyoungcy/snipebot/internal/domain"
)

var _ domain.PriceSource = (*HTTPSource)(nil)

// HTTPSource fetches current prices from a quote REST API.
type HTTPSource struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPSource creates an HTTPSource for the configured quote endpoint.
func NewHTTPSource(cfg config.PricingConfig) *HTTPSource {
	return &HTTPSource{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout.Duration,
		},
	}
}

// priceResponse is the quote API payload for a single asset.
type priceResponse struct {
	Mint  string  `json:"mint"`
	Price float64 `json:"price"`
}

// GetPrice returns the current quote-currency price for mint. A 404 maps to
// domain.ErrPriceUnavailable so callers can distinguish "no quote" from
// transport failures.
func (s *HTTPSource) GetPrice(ctx context.Context, mint string) (float64, error) {
	path := fmt.Sprintf("/v1/price/%s", url.PathEscape(mint))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("pricing: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("pricing: fetch %s: %w", mint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, fmt.Errorf("pricing: %s: %w", mint, domain.ErrPriceUnavailable)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("pricing: fetch %s: unexpected status %d: %s", mint, resp.StatusCode, string(body))
	}

	var pr priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return 0, fmt.Errorf("pricing: decode quote for %s: %w", mint, err)
	}
	if pr.Price <= 0 {
		return 0, fmt.Errorf("pricing: %s: non-positive quote %g: %w", mint, pr.Price, domain.ErrPriceUnavailable)
	}
	return pr.Price, nil
}
