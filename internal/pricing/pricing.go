package pricing

import (
	"math"
	"sort"
	"strings"
)

// NormalizeModel resolves a short-form model alias to the canonical
// priced name. Unaliased names pass through unchanged.
func NormalizeModel(model string) string {
	if canonical, ok := modelAliases[model]; ok {
		return canonical
	}
	return model
}

// CostCents prices a request in integer cents. It is a pure function of
// its inputs plus the static table.
//
// The second return value is false when no price is known for the
// provider/model pair; the cost is then 0 and the caller is expected to
// log the condition rather than fail the request.
//
// A model absent from the table is matched fuzzily: the provider's
// known model keys are scanned in sorted order and the first key that
// is a substring of the requested model (or vice versa) wins. This is a
// deliberate best-effort fallback for unlisted snapshot dates; the
// match is approximate and first-wins ties are not disambiguated.
func CostCents(provider, model string, inputTokens, outputTokens int) (int, bool) {
	normalized := NormalizeModel(model)

	providerTable, ok := priceTable[provider]
	if !ok {
		return 0, false
	}

	price, ok := providerTable[normalized]
	if !ok {
		price, ok = fuzzyMatch(providerTable, normalized)
		if !ok {
			return 0, false
		}
	}

	return centsFor(price, inputTokens, outputTokens), true
}

// KnownModels returns the priced model names for a provider, sorted.
func KnownModels(provider string) []string {
	providerTable, ok := priceTable[provider]
	if !ok {
		return nil
	}
	models := make([]string, 0, len(providerTable))
	for m := range providerTable {
		models = append(models, m)
	}
	sort.Strings(models)
	return models
}

func fuzzyMatch(providerTable map[string]ModelPrice, model string) (ModelPrice, bool) {
	// Sorted scan keeps the first-match rule deterministic; Go map
	// iteration order is randomized.
	keys := make([]string, 0, len(providerTable))
	for k := range providerTable {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if strings.Contains(model, k) || strings.Contains(k, model) {
			return providerTable[k], true
		}
	}
	return ModelPrice{}, false
}

func centsFor(price ModelPrice, inputTokens, outputTokens int) int {
	inputCost := float64(inputTokens) / 1_000_000 * price.Input
	outputCost := float64(outputTokens) / 1_000_000 * price.Output
	return int(math.Round((inputCost + outputCost) * 100))
}
