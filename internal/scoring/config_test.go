package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_WeightsSumTo100(t *testing.T) {
	cfg := DefaultConfig()
	assert.InDelta(t, 100, WeightSum(cfg), 0.001)
	require.NoError(t, ValidateConfig(cfg))
}

func TestValidateConfig(t *testing.T) {
	t.Run("negative weight rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.BedsWeight = -5
		assert.Error(t, ValidateConfig(cfg))
	})

	t.Run("weights must sum near 100", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.LocationWeight = 10
		assert.Error(t, ValidateConfig(cfg))
	})

	t.Run("zero decay radius rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.LocationDecayMiles = 0
		assert.Error(t, ValidateConfig(cfg))
	})

	t.Run("penalty above one rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.BathStepPenalty = 1.5
		assert.Error(t, ValidateConfig(cfg))
	})
}
