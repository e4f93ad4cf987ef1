package llmvalidate

// modelPricing is the static per-million-token cost table. Unknown
// models fall back to the Sonnet-class reference price; the engine must
// never throw on an unrecognized model.
type modelPricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

const referenceModel = "claude-sonnet-4-5-20250929"

var pricingTable = map[string]modelPricing{
	"claude-sonnet-4-5-20250929": {3.00, 15.00},
	"claude-opus-4-20250514":     {15.00, 75.00},
	"claude-haiku-3-5-20241022":  {0.80, 4.00},
	"gpt-4o":                     {2.50, 10.00},
	"gpt-4o-mini":                {0.150, 0.600},
}

// CalculateCost returns the USD cost of a call to model with the given
// token counts, falling back to the Sonnet-class price for unknown models.
func CalculateCost(model string, inputTokens, outputTokens int) float64 {
	pricing, ok := pricingTable[model]
	if !ok {
		pricing = pricingTable[referenceModel]
	}
	inputCost := float64(inputTokens) / 1_000_000 * pricing.InputPerMillion
	outputCost := float64(outputTokens) / 1_000_000 * pricing.OutputPerMillion
	return inputCost + outputCost
}
