package pricing

// ModelPrice holds USD prices per 1 million tokens.
type ModelPrice struct {
	Input  float64
	Output float64
}

// priceTable is the static per-provider price table, keyed by provider
// then exact model string. Loaded once; treated as process-wide
// read-only configuration. Prices last reviewed January 2026.
var priceTable = map[string]map[string]ModelPrice{
	"openai": {
		// GPT-4o family
		"gpt-4o":                 {Input: 2.50, Output: 10.00},
		"gpt-4o-2024-11-20":      {Input: 2.50, Output: 10.00},
		"gpt-4o-2024-08-06":      {Input: 2.50, Output: 10.00},
		"gpt-4o-mini":            {Input: 0.15, Output: 0.60},
		"gpt-4o-mini-2024-07-18": {Input: 0.15, Output: 0.60},

		// GPT-4 Turbo
		"gpt-4-turbo":            {Input: 10.00, Output: 30.00},
		"gpt-4-turbo-preview":    {Input: 10.00, Output: 30.00},
		"gpt-4-turbo-2024-04-09": {Input: 10.00, Output: 30.00},

		// GPT-4
		"gpt-4":      {Input: 30.00, Output: 60.00},
		"gpt-4-0613": {Input: 30.00, Output: 60.00},

		// GPT-3.5 Turbo
		"gpt-3.5-turbo":          {Input: 0.50, Output: 1.50},
		"gpt-3.5-turbo-0125":     {Input: 0.50, Output: 1.50},
		"gpt-3.5-turbo-instruct": {Input: 1.50, Output: 2.00},

		// o1 reasoning models
		"o1":         {Input: 15.00, Output: 60.00},
		"o1-preview": {Input: 15.00, Output: 60.00},
		"o1-mini":    {Input: 3.00, Output: 12.00},

		// Embeddings
		"text-embedding-3-small": {Input: 0.02, Output: 0},
		"text-embedding-3-large": {Input: 0.13, Output: 0},
		"text-embedding-ada-002": {Input: 0.10, Output: 0},
	},

	"anthropic": {
		// Claude 3.5 family
		"claude-3-5-sonnet-20241022": {Input: 3.00, Output: 15.00},
		"claude-3-5-sonnet-latest":   {Input: 3.00, Output: 15.00},
		"claude-3-5-haiku-20241022":  {Input: 0.80, Output: 4.00},
		"claude-3-5-haiku-latest":    {Input: 0.80, Output: 4.00},

		// Claude 3 family
		"claude-3-opus-20240229":   {Input: 15.00, Output: 75.00},
		"claude-3-opus-latest":     {Input: 15.00, Output: 75.00},
		"claude-3-sonnet-20240229": {Input: 3.00, Output: 15.00},
		"claude-3-haiku-20240307":  {Input: 0.25, Output: 1.25},

		// Claude 4
		"claude-sonnet-4-20250514": {Input: 3.00, Output: 15.00},
		"claude-4-sonnet":          {Input: 3.00, Output: 15.00},
	},

	"gemini": {
		// Gemini 2.0
		"gemini-2.0-flash":              {Input: 0.10, Output: 0.40},
		"gemini-2.0-flash-exp":          {Input: 0.10, Output: 0.40},
		"gemini-2.0-flash-thinking-exp": {Input: 0.10, Output: 0.40},

		// Gemini 1.5
		"gemini-1.5-pro":          {Input: 1.25, Output: 5.00},
		"gemini-1.5-pro-latest":   {Input: 1.25, Output: 5.00},
		"gemini-1.5-flash":        {Input: 0.075, Output: 0.30},
		"gemini-1.5-flash-latest": {Input: 0.075, Output: 0.30},
		"gemini-1.5-flash-8b":     {Input: 0.0375, Output: 0.15},

		// Gemini 1.0
		"gemini-1.0-pro": {Input: 0.50, Output: 1.50},
		"gemini-pro":     {Input: 0.50, Output: 1.50},

		// Embeddings
		"text-embedding-004": {Input: 0.00, Output: 0},
	},

	"grok": {
		// Grok 2
		"grok-2":        {Input: 2.00, Output: 10.00},
		"grok-2-latest": {Input: 2.00, Output: 10.00},
		"grok-2-1212":   {Input: 2.00, Output: 10.00},

		// Grok 2 (vision capable)
		"grok-2-vision":      {Input: 2.00, Output: 10.00},
		"grok-2-vision-1212": {Input: 2.00, Output: 10.00},

		// Grok Beta
		"grok-beta":        {Input: 5.00, Output: 15.00},
		"grok-vision-beta": {Input: 5.00, Output: 15.00},
	},

	"mistral": {
		// Premier models
		"mistral-large-latest": {Input: 2.00, Output: 6.00},
		"mistral-large-2411":   {Input: 2.00, Output: 6.00},
		"pixtral-large-latest": {Input: 2.00, Output: 6.00},

		// Coding
		"codestral-latest": {Input: 0.20, Output: 0.60},
		"codestral-2405":   {Input: 0.20, Output: 0.60},

		// Free tier
		"mistral-small-latest": {Input: 0.20, Output: 0.60},
		"mistral-small-2409":   {Input: 0.20, Output: 0.60},
		"pixtral-12b-2409":     {Input: 0.15, Output: 0.15},

		// Open source
		"open-mistral-7b":    {Input: 0.25, Output: 0.25},
		"open-mixtral-8x7b":  {Input: 0.70, Output: 0.70},
		"open-mixtral-8x22b": {Input: 2.00, Output: 6.00},

		// Embeddings
		"mistral-embed": {Input: 0.10, Output: 0},
	},

	"groq": {
		// Llama 3.3
		"llama-3.3-70b-versatile": {Input: 0.59, Output: 0.79},
		"llama-3.3-70b-specdec":   {Input: 0.59, Output: 0.99},

		// Llama 3.2 (vision)
		"llama-3.2-90b-vision-preview": {Input: 0.90, Output: 0.90},
		"llama-3.2-11b-vision-preview": {Input: 0.18, Output: 0.18},

		// Llama 3.1
		"llama-3.1-70b-versatile": {Input: 0.59, Output: 0.79},
		"llama-3.1-8b-instant":    {Input: 0.05, Output: 0.08},

		// Llama 3
		"llama3-70b-8192": {Input: 0.59, Output: 0.79},
		"llama3-8b-8192":  {Input: 0.05, Output: 0.08},

		// Mixtral
		"mixtral-8x7b-32768": {Input: 0.24, Output: 0.24},

		// Gemma
		"gemma2-9b-it": {Input: 0.20, Output: 0.20},
		"gemma-7b-it":  {Input: 0.07, Output: 0.07},
	},
}

// modelAliases maps short-form model names to the dated canonical names
// actually priced. Applied once before lookup.
var modelAliases = map[string]string{
	"claude-3-5-sonnet": "claude-3-5-sonnet-20241022",
	"claude-3-5-haiku":  "claude-3-5-haiku-20241022",
	"claude-3-opus":     "claude-3-opus-20240229",
	"claude-3-sonnet":   "claude-3-sonnet-20240229",
	"claude-3-haiku":    "claude-3-haiku-20240307",
}
