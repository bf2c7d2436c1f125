package executor

// ModelDescriptor describes one configured execution model. The catalog
// mapping name to descriptor is owned by configuration; the executor
// treats it as read-only input.
type ModelDescriptor struct {
	// Name is the model identifier passed to the aider CLI (e.g. "gpt-4o",
	// "deepseek", "claude-3-5-sonnet").
	Name string `yaml:"name"`

	// Provider names the API provider ("openai", "anthropic", "deepseek").
	Provider string `yaml:"provider"`

	// CostPerKiloTokens is the approximate price in USD per 1K tokens,
	// used for post-hoc cost accounting.
	CostPerKiloTokens float64 `yaml:"cost_per_kilo_tokens"`

	// MaxTokens is the model's context capacity.
	MaxTokens int `yaml:"max_tokens"`

	// Affinity is the complexity tier this model is best suited for.
	Affinity Complexity `yaml:"affinity"`
}

// Catalog maps model name to descriptor.
type Catalog map[string]*ModelDescriptor

// DefaultCatalog returns the built-in model catalog used when the config
// file does not define one.
func DefaultCatalog() Catalog {
	return Catalog{
		"gpt-4o-mini": {
			Name:              "gpt-4o-mini",
			Provider:          "openai",
			CostPerKiloTokens: 0.0006,
			MaxTokens:         128000,
			Affinity:          ComplexitySimple,
		},
		"deepseek": {
			Name:              "deepseek",
			Provider:          "deepseek",
			CostPerKiloTokens: 0.0011,
			MaxTokens:         64000,
			Affinity:          ComplexityMedium,
		},
		"gpt-4o": {
			Name:              "gpt-4o",
			Provider:          "openai",
			CostPerKiloTokens: 0.01,
			MaxTokens:         128000,
			Affinity:          ComplexityMedium,
		},
		"claude-3-5-sonnet": {
			Name:              "claude-3-5-sonnet",
			Provider:          "anthropic",
			CostPerKiloTokens: 0.015,
			MaxTokens:         200000,
			Affinity:          ComplexityComplex,
		},
	}
}
