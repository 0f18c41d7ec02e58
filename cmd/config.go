package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/auto-analyst/internal/ai"
	cfgpkg "github.com/KaramelBytes/auto-analyst/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set Auto Analyst configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		c, err := currentConfig()
		if err != nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		provider := selectProvider(c, "")
		fmt.Fprintf(out, "api_key: %s\n", mask(apiKey(c, provider)))
		fmt.Fprintf(out, "provider: %s\n", provider)
		fmt.Fprintf(out, "model: %s\n", selectModel(c, provider, ""))
		fmt.Fprintf(out, "temperature: %.3f\n", c.Temperature)
		fmt.Fprintf(out, "max_iterations: %d\n", c.MaxIterations)
		fmt.Fprintf(out, "allow_dangerous_code: %t\n", c.AllowDangerousCode)
		fmt.Fprintf(out, "handle_parsing_errors: %t\n", c.HandleParsingErrors)
		fmt.Fprintf(out, "accept_ratio: %.2f\n", c.AcceptRatio)
		if c.ContextRowLimit > 0 {
			fmt.Fprintf(out, "context_row_limit: %d\n", c.ContextRowLimit)
		}
		fmt.Fprintf(out, "http_timeout_sec: %d\n", c.HTTPTimeoutSec)
		fmt.Fprintf(out, "retry_max_attempts: %d\n", c.RetryMaxAttempts)
		if provider == ai.ProviderOllama {
			fmt.Fprintf(out, "ollama_host: %s\n", c.OllamaHost)
			fmt.Fprintf(out, "ollama_timeout_sec: %d\n", c.OllamaTimeoutSec)
		}
		fmt.Fprintf(out, "log_file: %s\n", c.LogFile)
		fmt.Fprintf(out, "log_level: %s\n", c.LogLevel)
		fmt.Fprintf(out, "serve_addr: %s\n", c.ServeAddr)
		fmt.Fprintf(out, "session_ttl_min: %d\n", c.SessionTTLMin)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := currentConfig()
		if err != nil {
			return err
		}
		if err := setConfigValue(c, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	switch key {
	case "api_key":
		c.APIKey = val
	case "provider":
		p := selectProvider(nil, val)
		if _, ok := ai.GetRuntime(p, ai.RuntimeConfig{}); !ok {
			return fmt.Errorf("invalid provider: %s (use %s)", val, strings.Join(ai.Providers(), ", "))
		}
		c.Provider = p
	case "model":
		c.Model = val
	case "temperature":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 || f > 2 {
			return fmt.Errorf("invalid float for temperature: %v (0..2)", val)
		}
		c.Temperature = f
	case "max_iterations":
		return setPositiveInt(&c.MaxIterations, key, val)
	case "allow_dangerous_code":
		return setBool(&c.AllowDangerousCode, key, val)
	case "handle_parsing_errors":
		return setBool(&c.HandleParsingErrors, key, val)
	case "accept_ratio":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f <= 0 || f > 1 {
			return fmt.Errorf("invalid float for accept_ratio: %v (0..1]", val)
		}
		c.AcceptRatio = f
	case "context_row_limit":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for context_row_limit: %v", val)
		}
		c.ContextRowLimit = i
	case "http_timeout_sec":
		return setPositiveInt(&c.HTTPTimeoutSec, key, val)
	case "retry_max_attempts":
		return setPositiveInt(&c.RetryMaxAttempts, key, val)
	case "retry_base_delay_ms":
		return setPositiveInt(&c.RetryBaseDelayMs, key, val)
	case "retry_max_delay_ms":
		return setPositiveInt(&c.RetryMaxDelayMs, key, val)
	case "ollama_host":
		c.OllamaHost = val
	case "ollama_timeout_sec":
		return setPositiveInt(&c.OllamaTimeoutSec, key, val)
	case "log_file":
		c.LogFile = val
	case "log_level":
		switch strings.ToLower(val) {
		case "debug", "info", "warn", "error":
			c.LogLevel = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_level: %s (use debug, info, warn or error)", val)
		}
	case "serve_addr":
		c.ServeAddr = val
	case "session_ttl_min":
		return setPositiveInt(&c.SessionTTLMin, key, val)
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func setPositiveInt(dst *int, key, val string) error {
	i, err := strconv.Atoi(val)
	if err != nil || i <= 0 {
		return fmt.Errorf("invalid int for %s: %v", key, val)
	}
	*dst = i
	return nil
}

func setBool(dst *bool, key, val string) error {
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fmt.Errorf("invalid bool for %s: %v", key, val)
	}
	*dst = b
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
