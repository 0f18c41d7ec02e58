package ai

import "testing"

func TestPresetCatalogGroq(t *testing.T) {
	m, ok := PresetCatalog(ProviderGroq)
	if !ok || len(m) == 0 {
		t.Fatalf("expected groq preset to be available")
	}
	if _, exists := m["llama-3.3-70b-versatile"]; !exists {
		t.Fatalf("expected llama-3.3-70b-versatile in groq preset")
	}
	if _, exists := m["openai/gpt-4o-mini"]; exists {
		t.Fatalf("openrouter model leaked into groq preset")
	}
	if _, ok := PresetCatalog("nope"); ok {
		t.Fatalf("unknown provider should have no preset")
	}
}

func TestRecommendModel(t *testing.T) {
	if name, ok := RecommendModel("", "balanced"); !ok || name != "llama-3.3-70b-versatile" {
		t.Fatalf("unexpected recommendation for default/balanced: %s", name)
	}
	if name, ok := RecommendModel(ProviderGroq, "fast"); !ok || name != "llama-3.1-8b-instant" {
		t.Fatalf("unexpected recommendation for groq/fast: %s", name)
	}
	if name, ok := RecommendModel(ProviderOllama, "balanced"); !ok || name != "llama3.1:8b" {
		t.Fatalf("unexpected recommendation for ollama/balanced: %s", name)
	}
	if _, ok := RecommendModel(ProviderGroq, "unknown"); ok {
		t.Fatalf("expected unknown tier to be false")
	}
}

func TestContextTokens(t *testing.T) {
	if got := ContextTokens("llama-3.3-70b-versatile"); got != 131072 {
		t.Fatalf("context = %d", got)
	}
	if got := ContextTokens("unknown-model"); got != DefaultContextTokens {
		t.Fatalf("fallback context = %d", got)
	}
	cat := Catalog()
	for i := 1; i < len(cat); i++ {
		if cat[i-1].Provider > cat[i].Provider {
			t.Fatalf("catalog not sorted by provider")
		}
	}
}
