package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromYAMLDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte(``))
	require.NoError(t, err)
	assert.Equal(t, 0.15, cfg.Portfolio.MaxPositionSize)
	assert.Equal(t, 0.001, cfg.Trading.CommissionRate)
	assert.Equal(t, 1.5, cfg.Short.MarginRequirement)
	assert.Equal(t, 70.0, cfg.Scoring.BuyThreshold)
}

func TestFromYAMLOverridesDefaults(t *testing.T) {
	doc := []byte(`
portfolio:
  max_position_size: 0.20
trading:
  commission_rate: 0.002
optimizer:
  parallelism: 4
  walk_forward:
    train_window: 120
    test_window: 30
`)
	cfg, err := FromYAML(doc)
	require.NoError(t, err)
	assert.Equal(t, 0.20, cfg.Portfolio.MaxPositionSize)
	assert.Equal(t, 0.002, cfg.Trading.CommissionRate)
	assert.Equal(t, 4, cfg.Optimizer.Parallelism)
	assert.Equal(t, 120, cfg.Optimizer.WalkForward.TrainWindow)
	// Fields not touched by the document keep their spec §6 defaults.
	assert.Equal(t, 0.30, cfg.Portfolio.MaxSectorAllocation)
}

func TestFromYAMLInvalidDocument(t *testing.T) {
	_, err := FromYAML([]byte("not: [valid: yaml"))
	assert.Error(t, err)
}
