package pricing

// Suggestion recommends a cheaper substitute for an expensive model.
// Purely advisory; never consulted during cost computation.
type Suggestion struct {
	Model          string `json:"model"`
	SavingsPercent int    `json:"savings_percent"`
}

var cheaperAlternatives = map[string]Suggestion{
	// OpenAI
	"gpt-4o":      {Model: "gpt-4o-mini", SavingsPercent: 94},
	"gpt-4-turbo": {Model: "gpt-4o-mini", SavingsPercent: 98},
	"gpt-4":       {Model: "gpt-4o", SavingsPercent: 83},
	"o1":          {Model: "o1-mini", SavingsPercent: 80},

	// Anthropic
	"claude-3-opus-20240229":     {Model: "claude-3-5-sonnet-20241022", SavingsPercent: 80},
	"claude-3-5-sonnet-20241022": {Model: "claude-3-5-haiku-20241022", SavingsPercent: 73},
	"claude-3-sonnet-20240229":   {Model: "claude-3-5-haiku-20241022", SavingsPercent: 73},

	// Gemini
	"gemini-1.5-pro":        {Model: "gemini-1.5-flash", SavingsPercent: 94},
	"gemini-1.5-pro-latest": {Model: "gemini-1.5-flash", SavingsPercent: 94},
	"gemini-1.5-flash":      {Model: "gemini-1.5-flash-8b", SavingsPercent: 50},

	// Grok; grok-2 is the cheaper generation here
	"grok-2":    {Model: "grok-beta", SavingsPercent: 0},
	"grok-beta": {Model: "grok-2", SavingsPercent: 60},

	// Mistral
	"mistral-large-latest": {Model: "mistral-small-latest", SavingsPercent: 90},
	"codestral-latest":     {Model: "mistral-small-latest", SavingsPercent: 0},

	// Groq
	"llama-3.3-70b-versatile": {Model: "llama-3.1-8b-instant", SavingsPercent: 91},
	"llama-3.1-70b-versatile": {Model: "llama-3.1-8b-instant", SavingsPercent: 91},
	"llama3-70b-8192":         {Model: "llama3-8b-8192", SavingsPercent: 91},
}

// SuggestCheaperModel returns a cheaper alternative for the given model,
// if one is known. The provider argument is accepted for interface
// symmetry; suggestions are keyed by normalized model name alone.
func SuggestCheaperModel(provider, model string) (Suggestion, bool) {
	s, ok := cheaperAlternatives[NormalizeModel(model)]
	return s, ok
}
