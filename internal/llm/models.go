package llm

// ModelInfo describes the limits and pricing of a model.
type ModelInfo struct {
	Name            string  `yaml:"name" json:"name"`
	ContextWindow   int     `yaml:"context_window" json:"context_window"`
	MaxOutputTokens int     `yaml:"max_output_tokens" json:"max_output_tokens"`
	CostPer1KInput  float64 `yaml:"cost_per_1k_input,omitempty" json:"cost_per_1k_input,omitempty"`
	CostPer1KOutput float64 `yaml:"cost_per_1k_output,omitempty" json:"cost_per_1k_output,omitempty"`
}

// Defaults for models missing from the catalog.
const (
	DefaultContextWindow   = 32768
	DefaultMaxOutputTokens = 4096
)

// KnownModels is the built-in catalog.
var KnownModels = map[string]ModelInfo{
	"Qwen/Qwen2.5-7B-Instruct":   {Name: "Qwen/Qwen2.5-7B-Instruct", ContextWindow: 32768, MaxOutputTokens: 4096, CostPer1KInput: 0.0007, CostPer1KOutput: 0.0007},
	"Qwen/Qwen2.5-72B-Instruct":  {Name: "Qwen/Qwen2.5-72B-Instruct", ContextWindow: 131072, MaxOutputTokens: 8192, CostPer1KInput: 0.0035, CostPer1KOutput: 0.0035},
	"gpt-4o":                     {Name: "gpt-4o", ContextWindow: 128000, MaxOutputTokens: 16384, CostPer1KInput: 0.0025, CostPer1KOutput: 0.01},
	"gpt-4o-mini":                {Name: "gpt-4o-mini", ContextWindow: 128000, MaxOutputTokens: 16384, CostPer1KInput: 0.00015, CostPer1KOutput: 0.0006},
	"gpt-4-turbo":                {Name: "gpt-4-turbo", ContextWindow: 128000, MaxOutputTokens: 4096, CostPer1KInput: 0.01, CostPer1KOutput: 0.03},
	"gpt-3.5-turbo":              {Name: "gpt-3.5-turbo", ContextWindow: 16385, MaxOutputTokens: 4096, CostPer1KInput: 0.0005, CostPer1KOutput: 0.0015},
	"claude-3-5-sonnet-20241022": {Name: "claude-3-5-sonnet-20241022", ContextWindow: 200000, MaxOutputTokens: 8192, CostPer1KInput: 0.003, CostPer1KOutput: 0.015},
	"claude-3-opus-20240229":     {Name: "claude-3-opus-20240229", ContextWindow: 200000, MaxOutputTokens: 4096, CostPer1KInput: 0.015, CostPer1KOutput: 0.075},
	"claude-3-sonnet-20240229":   {Name: "claude-3-sonnet-20240229", ContextWindow: 200000, MaxOutputTokens: 4096, CostPer1KInput: 0.003, CostPer1KOutput: 0.015},
	"claude-3-haiku-20240307":    {Name: "claude-3-haiku-20240307", ContextWindow: 200000, MaxOutputTokens: 4096, CostPer1KInput: 0.00025, CostPer1KOutput: 0.00125},
	"claude-sonnet-4-5-20250929": {Name: "claude-sonnet-4-5-20250929", ContextWindow: 200000, MaxOutputTokens: 64000, CostPer1KInput: 0.003, CostPer1KOutput: 0.015},
	"deepseek-chat":              {Name: "deepseek-chat", ContextWindow: 131072, MaxOutputTokens: 8192, CostPer1KInput: 0.00014, CostPer1KOutput: 0.00028},
	"deepseek-reasoner":          {Name: "deepseek-reasoner", ContextWindow: 131072, MaxOutputTokens: 8192, CostPer1KInput: 0.00055, CostPer1KOutput: 0.0022},
}

// Catalog resolves model names to ModelInfo. Overrides take precedence over
// KnownModels.
type Catalog struct {
	overrides map[string]ModelInfo
}

// NewCatalog returns a catalog with the given overrides. Entries with an
// empty Name take the map key.
func NewCatalog(overrides map[string]ModelInfo) *Catalog {
	c := &Catalog{overrides: make(map[string]ModelInfo, len(overrides))}
	for name, info := range overrides {
		if info.Name == "" {
			info.Name = name
		}
		c.overrides[name] = info
	}
	return c
}

// Lookup returns the model's info. ok is false when the model is unknown, in
// which case conservative defaults are returned.
func (c *Catalog) Lookup(name string) (info ModelInfo, ok bool) {
	if c != nil {
		if info, ok := c.overrides[name]; ok {
			return fillDefaults(info), true
		}
	}
	if info, ok := KnownModels[name]; ok {
		return info, true
	}
	return ModelInfo{
		Name:            name,
		ContextWindow:   DefaultContextWindow,
		MaxOutputTokens: DefaultMaxOutputTokens,
	}, false
}

func fillDefaults(info ModelInfo) ModelInfo {
	if info.ContextWindow <= 0 {
		info.ContextWindow = DefaultContextWindow
	}
	if info.MaxOutputTokens <= 0 {
		info.MaxOutputTokens = DefaultMaxOutputTokens
	}
	return info
}

// Cost estimates the dollar cost of a call.
func (m ModelInfo) Cost(u Usage) float64 {
	return float64(u.PromptTokens)/1000*m.CostPer1KInput + float64(u.CompletionTokens)/1000*m.CostPer1KOutput
}
