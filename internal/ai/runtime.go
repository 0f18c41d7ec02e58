package ai

import "context"

// Runtime is a minimal interface implemented by chat backends such as Groq,
// OpenRouter and a local Ollama.
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Provider identifiers used across the CLI for selection.
const (
	ProviderGroq       = "groq"
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
)

// Providers lists the registered provider names in display order.
func Providers() []string {
	return []string{ProviderGroq, ProviderOpenRouter, ProviderOllama}
}
