package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/auto-analyst/internal/analyst"
	"github.com/KaramelBytes/auto-analyst/internal/query"
)

var normAcceptRatio float64

var normalizeCmd = &cobra.Command{
	Use:   "normalize <question>",
	Short: "Show how a question is rewritten before it reaches the model",
	Example: `  analyst normalize "top 5 by salary"
  analyst normalize "avg salary by dept" --accept-ratio 0.5`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		question := strings.Join(args, " ")
		ratio := normAcceptRatio
		if !cmd.Flags().Changed("accept-ratio") {
			if c, err := currentConfig(); err == nil && c.AcceptRatio > 0 {
				ratio = c.AcceptRatio
			}
		}
		normalized, fired := query.Explain(question)
		sent, _, accepted := analyst.PrepareQuestion(question, ratio)

		rules := "none"
		if len(fired) > 0 {
			rules = strings.Join(fired, ", ")
		}
		decision := "rejected, original kept"
		if accepted {
			decision = "accepted"
		} else if normalized == strings.TrimSpace(question) {
			decision = "unchanged"
		}
		fmt.Fprintf(out, "Original:   %s\n", question)
		fmt.Fprintf(out, "Normalized: %s\n", normalized)
		fmt.Fprintf(out, "Rules:      %s\n", rules)
		fmt.Fprintf(out, "Decision:   %s (ratio %.2f)\n", decision, ratio)
		fmt.Fprintf(out, "Sent:       %s\n", sent)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
	normalizeCmd.Flags().Float64Var(&normAcceptRatio, "accept-ratio", query.DefaultAcceptRatio, "minimum kept length ratio for a rewrite to be used")
}
