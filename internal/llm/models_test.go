package llm

import "testing"

func TestCatalogLookup(t *testing.T) {
	c := NewCatalog(map[string]ModelInfo{
		"local-llama": {ContextWindow: 8192, MaxOutputTokens: 1024},
		"gpt-4o":      {ContextWindow: 64000, MaxOutputTokens: 2048},
		"partial":     {ContextWindow: 100000},
	})

	tests := []struct {
		model      string
		wantWindow int
		wantOutput int
		wantKnown  bool
	}{
		{"local-llama", 8192, 1024, true},
		{"gpt-4o", 64000, 2048, true},
		{"partial", 100000, DefaultMaxOutputTokens, true},
		{"deepseek-chat", 131072, 8192, true},
		{"mystery-model", DefaultContextWindow, DefaultMaxOutputTokens, false},
	}
	for _, tc := range tests {
		t.Run(tc.model, func(t *testing.T) {
			info, known := c.Lookup(tc.model)
			if known != tc.wantKnown {
				t.Errorf("known = %v, want %v", known, tc.wantKnown)
			}
			if info.Name != tc.model {
				t.Errorf("name = %q, want %q", info.Name, tc.model)
			}
			if info.ContextWindow != tc.wantWindow || info.MaxOutputTokens != tc.wantOutput {
				t.Errorf("limits = %d/%d, want %d/%d", info.ContextWindow, info.MaxOutputTokens, tc.wantWindow, tc.wantOutput)
			}
		})
	}
}

func TestNilCatalogUsesBuiltins(t *testing.T) {
	var c *Catalog
	info, known := c.Lookup("gpt-3.5-turbo")
	if !known || info.ContextWindow != 16385 {
		t.Fatalf("expected builtin gpt-3.5-turbo, got %+v known=%v", info, known)
	}
}

func TestModelCost(t *testing.T) {
	info := KnownModels["gpt-4o"]
	got := info.Cost(Usage{PromptTokens: 2000, CompletionTokens: 1000})
	want := 2*0.0025 + 1*0.01
	if got < want-1e-9 || got > want+1e-9 {
		t.Errorf("cost = %v, want %v", got, want)
	}
}
