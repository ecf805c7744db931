package pricing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/snipebot/internal/config"
	"github.com/alanyoungcy/snipebot/internal/domain"
)

func simCfg(seed int64) config.PricingConfig {
	return config.PricingConfig{SimSeed: seed, SimVolatility: 0.02}
}

func TestSimulatorUnseededAsset(t *testing.T) {
	s := NewSimulator(simCfg(1))

	_, err := s.GetPrice(context.Background(), "unknown")
	assert.ErrorIs(t, err, domain.ErrPriceUnavailable)
}

func TestSimulatorWalksFromSeed(t *testing.T) {
	s := NewSimulator(simCfg(1))
	s.Seed("mintA", 0.00001)

	prev := 0.00001
	for i := 0; i < 100; i++ {
		p, err := s.GetPrice(context.Background(), "mintA")
		require.NoError(t, err)
		assert.Greater(t, p, 0.0)
		// 2% volatility keeps single steps small.
		assert.InEpsilon(t, prev, p, 0.25)
		prev = p
	}
}

func TestSimulatorDeterministicWithFixedSeed(t *testing.T) {
	a := NewSimulator(simCfg(42))
	b := NewSimulator(simCfg(42))
	a.Seed("m", 1.0)
	b.Seed("m", 1.0)

	for i := 0; i < 20; i++ {
		pa, err := a.GetPrice(context.Background(), "m")
		require.NoError(t, err)
		pb, err := b.GetPrice(context.Background(), "m")
		require.NoError(t, err)
		assert.Equal(t, pa, pb)
	}
}

func TestSimulatorReseedOverridesWalk(t *testing.T) {
	s := NewSimulator(simCfg(7))
	s.Seed("m", 1.0)

	_, err := s.GetPrice(context.Background(), "m")
	require.NoError(t, err)

	// A live fetch landed: the next step must walk from the new price.
	s.Seed("m", 5.0)
	p, err := s.GetPrice(context.Background(), "m")
	require.NoError(t, err)
	assert.InEpsilon(t, 5.0, p, 0.25)
}

func TestSimulatorIgnoresNonPositiveSeed(t *testing.T) {
	s := NewSimulator(simCfg(7))
	s.Seed("m", -1)

	_, err := s.GetPrice(context.Background(), "m")
	assert.ErrorIs(t, err, domain.ErrPriceUnavailable)
}
