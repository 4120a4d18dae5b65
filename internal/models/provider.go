package models

// Provider identifiers for every upstream API the gateway can meter.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderGrok      = "grok"
	ProviderMistral   = "mistral"
	ProviderGroq      = "groq"
)

// ProviderIDs lists all supported providers in display order.
var ProviderIDs = []string{
	ProviderOpenAI,
	ProviderAnthropic,
	ProviderGemini,
	ProviderGrok,
	ProviderMistral,
	ProviderGroq,
}

// KnownProvider reports whether id names a supported provider.
func KnownProvider(id string) bool {
	for _, p := range ProviderIDs {
		if p == id {
			return true
		}
	}
	return false
}
