package ai

// DefaultModel returns the model used when none is configured for provider.
func DefaultModel(provider string) string {
	switch provider {
	case ProviderOpenRouter:
		return "meta-llama/llama-3.3-70b-instruct"
	case ProviderOllama:
		return "llama3.1:8b"
	default:
		return "llama-3.3-70b-versatile"
	}
}

// PresetCatalog returns the built-in catalog entries for a known provider.
func PresetCatalog(provider string) (map[string]ModelInfo, bool) {
	out := map[string]ModelInfo{}
	for k, v := range models {
		if v.Provider == provider {
			out[k] = v
		}
	}
	return out, len(out) > 0
}

// RecommendModel returns a recommended model name for a given tier and provider.
// If provider is empty, defaults to groq. Tiers: fast|balanced.
func RecommendModel(provider, tier string) (string, bool) {
	if provider == "" {
		provider = ProviderGroq
	}
	switch tier {
	case "balanced":
		return DefaultModel(provider), provider == ProviderGroq || provider == ProviderOpenRouter || provider == ProviderOllama
	case "fast":
		switch provider {
		case ProviderGroq:
			return "llama-3.1-8b-instant", true
		case ProviderOpenRouter:
			return "openai/gpt-4o-mini", true
		case ProviderOllama:
			return "llama3.1:8b", true
		}
	}
	return "", false
}
