package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/KaramelBytes/auto-analyst/internal/agent"
	"github.com/KaramelBytes/auto-analyst/internal/ai"
	"github.com/KaramelBytes/auto-analyst/internal/analysis"
	cfgpkg "github.com/KaramelBytes/auto-analyst/internal/config"
	"github.com/KaramelBytes/auto-analyst/internal/session"
)

type runtimeOptions struct {
	ProviderFlag string
	ModelFlag    string
	OllamaHost   string
}

func flagRuntimeOptions() runtimeOptions {
	return runtimeOptions{ProviderFlag: flagProvider, ModelFlag: flagModel}
}

// selectProvider resolves the provider name: flag, then config, then groq.
func selectProvider(cfg *cfgpkg.Global, flag string) string {
	name := strings.ToLower(strings.TrimSpace(flag))
	if name == "" && cfg != nil && cfg.Provider != "" {
		name = strings.ToLower(strings.TrimSpace(cfg.Provider))
	}
	switch name {
	case "":
		return ai.ProviderGroq
	case "local":
		return ai.ProviderOllama
	case "openai", "anthropic", "google", "gemini", "meta":
		return ai.ProviderOpenRouter
	}
	return name
}

// selectModel picks the flag, then the configured model. The built-in Groq
// default is swapped for the provider's own default on other providers.
func selectModel(cfg *cfgpkg.Global, provider, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if cfg != nil && cfg.Model != "" {
		if provider == ai.ProviderGroq || cfg.Model != ai.DefaultModel(ai.ProviderGroq) {
			return cfg.Model
		}
	}
	return ai.DefaultModel(provider)
}

// apiKey reads the provider's key from its environment variable, falling
// back to api_key in config. Ollama needs none.
func apiKey(cfg *cfgpkg.Global, provider string) string {
	var env string
	switch provider {
	case ai.ProviderGroq:
		env = ai.GroqEndpoint.KeyEnv
	case ai.ProviderOpenRouter:
		env = ai.OpenRouterEndpoint.KeyEnv
	default:
		return ""
	}
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		return v
	}
	if cfg != nil {
		return strings.TrimSpace(cfg.APIKey)
	}
	return ""
}

func buildRuntime(cfg *cfgpkg.Global, opts runtimeOptions) (ai.Runtime, string, error) {
	httpTimeout := 60 * time.Second
	retryMax := 3
	baseDelay := 500 * time.Millisecond
	maxDelay := 4 * time.Second
	if cfg != nil {
		if cfg.HTTPTimeoutSec > 0 {
			httpTimeout = time.Duration(cfg.HTTPTimeoutSec) * time.Second
		}
		if cfg.RetryMaxAttempts > 0 {
			retryMax = cfg.RetryMaxAttempts
		}
		if cfg.RetryBaseDelayMs > 0 {
			baseDelay = time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond
		}
		if cfg.RetryMaxDelayMs > 0 {
			maxDelay = time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond
		}
	}

	providerName := selectProvider(cfg, opts.ProviderFlag)
	rc := ai.RuntimeConfig{
		HTTPTimeout: httpTimeout,
		RetryMax:    retryMax,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		APIKey:      apiKey(cfg, providerName),
	}

	if providerName == ai.ProviderOllama {
		host := strings.TrimSpace(opts.OllamaHost)
		if host == "" {
			if v := os.Getenv("ANALYST_OLLAMA_HOST"); v != "" {
				host = v
			}
		}
		if host == "" && cfg != nil && cfg.OllamaHost != "" {
			host = cfg.OllamaHost
		}
		if host == "" {
			host = "http://127.0.0.1:11434"
		}
		rc.Host = host
		if v := os.Getenv("ANALYST_OLLAMA_TIMEOUT_SEC"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				rc.HTTPTimeout = time.Duration(n) * time.Second
			}
		}
		if cfg != nil && cfg.OllamaTimeoutSec > 0 {
			rc.HTTPTimeout = time.Duration(cfg.OllamaTimeoutSec) * time.Second
		}
	}

	client, err := ai.NewRuntime(providerName, rc)
	if err != nil {
		return nil, providerName, err
	}
	return client, providerName, nil
}

// agentConfig maps config onto the agent settings.
func agentConfig(cfg *cfgpkg.Global, model string) agent.Config {
	ac := agent.DefaultConfig()
	ac.Model = model
	if cfg != nil {
		ac.Temperature = cfg.Temperature
		if cfg.MaxIterations > 0 {
			ac.MaxIterations = cfg.MaxIterations
		}
		ac.AllowDangerousCode = cfg.AllowDangerousCode
		ac.HandleParsingErrors = cfg.HandleParsingErrors
		ac.RowLimit = cfg.ContextRowLimit
	}
	return ac
}

// newAgentFactory builds table agents on the configured runtime. A hosted
// provider without an API key yields session.ErrNoCredential.
func newAgentFactory(cfg *cfgpkg.Global, opts runtimeOptions, log *zap.Logger) session.AgentFactory {
	return func(t *analysis.Table) (agent.Agent, error) {
		provider := selectProvider(cfg, opts.ProviderFlag)
		if provider != ai.ProviderOllama && apiKey(cfg, provider) == "" {
			return nil, session.ErrNoCredential
		}
		rt, provider, err := buildRuntime(cfg, opts)
		if err != nil {
			return nil, err
		}
		model := selectModel(cfg, provider, opts.ModelFlag)
		log.Info("agent ready", zap.String("provider", provider), zap.String("model", model))
		return agent.NewTableAgent(rt, t, agentConfig(cfg, model), log)
	}
}

func sessionOptions(cfg *cfgpkg.Global, opts runtimeOptions, log *zap.Logger) session.Options {
	so := session.Options{
		Factory: newAgentFactory(cfg, opts, log),
		Log:     log,
	}
	if cfg != nil {
		so.AcceptRatio = cfg.AcceptRatio
	}
	return so
}

// credentialHint explains how to configure the key for provider.
func credentialHint(provider string) string {
	env := ai.GroqEndpoint.KeyEnv
	if provider == ai.ProviderOpenRouter {
		env = ai.OpenRouterEndpoint.KeyEnv
	}
	return fmt.Sprintf("set %s or add api_key in config (~/%s/config.yaml)", env, cfgpkg.DirName)
}

// providerHint turns a provider failure into an actionable line, or "" when
// err is not a provider error. The provider recorded on err wins over the
// configured one.
func providerHint(err error, provider, model string) string {
	if p := ai.ProviderOf(err); p != "" {
		provider = p
	}
	var (
		unreach *ai.UnreachableError
		authErr *ai.AuthError
		rlErr   *ai.RateLimitError
		nfErr   *ai.ModelNotFoundError
		brErr   *ai.BadRequestError
		qErr    *ai.QuotaExceededError
		sErr    *ai.ServerError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &unreach):
		if provider == ai.ProviderOllama {
			return fmt.Sprintf("Ollama not reachable at %s. Ensure Ollama is running and the host is correct (ANALYST_OLLAMA_HOST or config 'ollama_host').", unreach.Host)
		}
		return "Endpoint unreachable. Check your network and provider settings."
	case errors.As(err, &authErr):
		return "Authentication failed: " + credentialHint(provider) + "."
	case errors.As(err, &rlErr):
		if rlErr.RetryAfter > 0 {
			return fmt.Sprintf("Rate limited, try again in ~%ds.", int(rlErr.RetryAfter.Seconds()))
		}
		return "Rate limited by provider, please retry."
	case errors.As(err, &nfErr):
		if provider == ai.ProviderOllama {
			return fmt.Sprintf("Local model not available (%s). Install it with 'ollama pull %s' or choose another model.", model, model)
		}
		return fmt.Sprintf("Model not found (%s). Check the name with 'analyst models show'.", model)
	case errors.As(err, &brErr):
		return "Request rejected. Lower context_row_limit or try a model with a larger context window."
	case errors.As(err, &qErr):
		return "Quota/billing issue. Check your provider account."
	case errors.As(err, &sErr):
		return "Provider appears unavailable (server error). Please retry later."
	}
	return ""
}
