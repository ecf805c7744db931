package pricing

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/alanyoungcy/snipebot/internal/config"
	"github.com/alanyoungcy/snipebot/internal/domain"
)

var _ domain.PriceSource = (*Simulator)(nil)

// Simulator is a per-asset geometric random walk. It backs paper mode and is
// the fallback when a live price fetch fails mid-tick, so dry runs keep
// moving without external data. Each asset walks from its last seeded or
// generated price; a fixed seed makes the whole sequence reproducible.
type Simulator struct {
	mu    sync.Mutex
	rng   *rand.Rand
	last  map[string]float64
	vol   float64
	drift float64
}

// NewSimulator creates a Simulator. Seed zero falls back to the clock.
func NewSimulator(cfg config.PricingConfig) *Simulator {
	seed := cfg.SimSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulator{
		rng:   rand.New(rand.NewSource(seed)),
		last:  make(map[string]float64),
		vol:   cfg.SimVolatility,
		drift: cfg.SimDrift,
	}
}

// Seed sets the walk origin for an asset. The coordinator seeds on position
// open and after every successful live fetch so fallback steps continue from
// the latest real price.
func (s *Simulator) Seed(mint string, price float64) {
	if price <= 0 {
		return
	}
	s.mu.Lock()
	s.last[mint] = price
	s.mu.Unlock()
}

// GetPrice advances the walk for mint one step and returns the new price. An
// asset that was never seeded has no origin to walk from and reports
// domain.ErrPriceUnavailable.
func (s *Simulator) GetPrice(_ context.Context, mint string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, ok := s.last[mint]
	if !ok {
		return 0, fmt.Errorf("pricing: simulator has no seed for %s: %w", mint, domain.ErrPriceUnavailable)
	}

	step := 1 + s.drift + s.rng.NormFloat64()*s.vol
	if step < 0.01 {
		// Floor a pathological step instead of letting the price go negative.
		step = 0.01
	}
	next := last * step
	s.last[mint] = next
	return next, nil
}
