package llmvalidate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateCostKnownModel(t *testing.T) {
	cost := CalculateCost("gpt-4o-mini", 1_000_000, 1_000_000)
	assert.InDelta(t, 0.150+0.600, cost, 0.0001)
}

func TestCalculateCostUnknownModelFallsBackToReferencePrice(t *testing.T) {
	known := CalculateCost(referenceModel, 2_000_000, 500_000)
	unknown := CalculateCost("some-model-nobody-has-heard-of", 2_000_000, 500_000)
	assert.Equal(t, known, unknown)
}

func TestCalculateCostZeroTokensIsZero(t *testing.T) {
	assert.Equal(t, 0.0, CalculateCost("claude-opus-4-20250514", 0, 0))
}
