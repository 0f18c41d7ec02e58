package cmd

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/auto-analyst/internal/ai"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect the model catalog",
	Example: `  analyst models show
  analyst models show --provider groq
  analyst models sync --file ./models.json
  analyst models recommend --provider ollama --tier fast`,
}

var modelsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current model catalog (filtered by --provider when set)",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := ai.Catalog()
		if flagProvider != "" {
			provider := selectProvider(nil, flagProvider)
			preset, ok := ai.PresetCatalog(provider)
			if !ok {
				return fmt.Errorf("no models known for provider %s", provider)
			}
			out = out[:0]
			for _, m := range preset {
				out = append(out, m)
			}
			sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

var syncPath string

var modelsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Merge model context sizes and pricing from a JSON file",
	Long: `Merge model context sizes and pricing from a JSON file into the in-memory catalog
and print the result. Use --catalog on any command to apply the same file for that run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if syncPath == "" {
			return fmt.Errorf("--file is required")
		}
		m, err := ai.LoadCatalogFromJSON(syncPath)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		ai.MergeCatalog(m)
		fmt.Fprintf(cmd.OutOrStdout(), "Merged %d models from %s\n", len(m), syncPath)
		return nil
	},
}

var recommendTier string

var modelsRecommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Print the recommended model for the provider and tier",
	RunE: func(cmd *cobra.Command, args []string) error {
		provider := selectProvider(cfg, flagProvider)
		name, ok := ai.RecommendModel(provider, recommendTier)
		if !ok {
			return fmt.Errorf("no %s recommendation for provider %s (tiers: fast, balanced)", recommendTier, provider)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (set with: analyst config set model %s)\n", name, name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsShowCmd)
	modelsCmd.AddCommand(modelsSyncCmd)
	modelsCmd.AddCommand(modelsRecommendCmd)

	modelsSyncCmd.Flags().StringVar(&syncPath, "file", "", "path to JSON catalog file")
	modelsRecommendCmd.Flags().StringVar(&recommendTier, "tier", "balanced", "fast or balanced")
}
