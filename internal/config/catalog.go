package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ydzat/literature-review-mcp/internal/llm"
)

// catalogFile is the on-disk shape of a model catalog:
//
//	models:
//	  my-local-model:
//	    context_window: 65536
//	    max_output_tokens: 8192
type catalogFile struct {
	Models map[string]llm.ModelInfo `yaml:"models"`
}

// LoadCatalog reads model overrides from path. An empty path yields the
// built-in catalog.
func LoadCatalog(path string) (*llm.Catalog, error) {
	if path == "" {
		return llm.NewCatalog(nil), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML model catalog.
func ParseCatalog(data []byte) (*llm.Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse model catalog: %w", err)
	}
	for name, m := range f.Models {
		if m.ContextWindow < 0 || m.MaxOutputTokens < 0 {
			return nil, fmt.Errorf("model %q: negative token limits", name)
		}
		if m.ContextWindow > 0 && m.MaxOutputTokens >= m.ContextWindow {
			return nil, fmt.Errorf("model %q: max_output_tokens must be below context_window", name)
		}
	}
	return llm.NewCatalog(f.Models), nil
}
