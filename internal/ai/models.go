package ai

import (
	"encoding/json"
	"os"
	"sort"
)

// Model metadata and simple pricing helpers for UX warnings.
// Prices are illustrative and should be verified against provider docs.

type ModelInfo struct {
	Name          string
	Provider      string
	ContextTokens int     // approximate context window
	InputPerK     float64 // USD per 1K input tokens
	OutputPerK    float64 // USD per 1K output tokens
}

// DefaultContextTokens is assumed for models missing from the catalog.
const DefaultContextTokens = 8192

var models = map[string]ModelInfo{
	"llama-3.3-70b-versatile": {
		Name:          "llama-3.3-70b-versatile",
		Provider:      ProviderGroq,
		ContextTokens: 131072,
		InputPerK:     0.00059,
		OutputPerK:    0.00079,
	},
	"llama-3.1-8b-instant": {
		Name:          "llama-3.1-8b-instant",
		Provider:      ProviderGroq,
		ContextTokens: 131072,
		InputPerK:     0.00005,
		OutputPerK:    0.00008,
	},
	"gemma2-9b-it": {
		Name:          "gemma2-9b-it",
		Provider:      ProviderGroq,
		ContextTokens: 8192,
		InputPerK:     0.0002,
		OutputPerK:    0.0002,
	},
	"meta-llama/llama-3.3-70b-instruct": {
		Name:          "meta-llama/llama-3.3-70b-instruct",
		Provider:      ProviderOpenRouter,
		ContextTokens: 131072,
		InputPerK:     0.00012,
		OutputPerK:    0.0003,
	},
	"openai/gpt-4o-mini": {
		Name:          "openai/gpt-4o-mini",
		Provider:      ProviderOpenRouter,
		ContextTokens: 128000,
		InputPerK:     0.00015,
		OutputPerK:    0.0006,
	},
	"anthropic/claude-3.5-sonnet": {
		Name:          "anthropic/claude-3.5-sonnet",
		Provider:      ProviderOpenRouter,
		ContextTokens: 200000,
		InputPerK:     0.003,
		OutputPerK:    0.015,
	},
	// Common local (Ollama) tags
	"llama3.1:8b": {
		Name:          "llama3.1:8b",
		Provider:      ProviderOllama,
		ContextTokens: 8192,
	},
	"llama3.3:70b": {
		Name:          "llama3.3:70b",
		Provider:      ProviderOllama,
		ContextTokens: 8192,
	},
	"qwen2.5-coder:7b": {
		Name:          "qwen2.5-coder:7b",
		Provider:      ProviderOllama,
		ContextTokens: 32768,
	},
}

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	mi, ok := models[name]
	return mi, ok
}

// ContextTokens returns the model's context window, or DefaultContextTokens.
func ContextTokens(name string) int {
	if mi, ok := models[name]; ok && mi.ContextTokens > 0 {
		return mi.ContextTokens
	}
	return DefaultContextTokens
}

// EstimateCostUSD estimates total cost in USD for given tokens using model pricing.
// If the model is unknown, returns 0 and ok=false.
func EstimateCostUSD(model string, promptTokens, completionTokens int) (float64, bool) {
	mi, ok := LookupModel(model)
	if !ok {
		return 0, false
	}
	inCost := (float64(promptTokens) / 1000.0) * mi.InputPerK
	outCost := (float64(completionTokens) / 1000.0) * mi.OutputPerK
	return inCost + outCost, true
}

// LoadCatalogFromJSON loads a JSON object map[string]ModelInfo from a file path.
// Example JSON entry:
// { "llama-3.3-70b-versatile": {"Name":"llama-3.3-70b-versatile","Provider":"groq","ContextTokens":131072} }
func LoadCatalogFromJSON(path string) (map[string]ModelInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var m map[string]ModelInfo
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

// MergeCatalog merges/overrides entries in the in-memory catalog.
func MergeCatalog(m map[string]ModelInfo) {
	for k, v := range m {
		models[k] = v
	}
}

// Catalog returns the current catalog sorted by provider then name.
func Catalog() []ModelInfo {
	out := make([]ModelInfo, 0, len(models))
	for _, v := range models {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider == out[j].Provider {
			return out[i].Name < out[j].Name
		}
		return out[i].Provider < out[j].Provider
	})
	return out
}
