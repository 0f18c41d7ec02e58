package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/auto-analyst/internal/analyst"
	"github.com/KaramelBytes/auto-analyst/internal/render"
	"github.com/KaramelBytes/auto-analyst/internal/utils"
)

var (
	askTable tableFlags
	askJSON  bool
)

var askCmd = &cobra.Command{
	Use:   "ask <file.csv> <question>",
	Short: "Ask one question about a CSV",
	Example: `  analyst ask employees.csv "what is the average salary"
  analyst ask employees.csv "top 5 by salary" --json
  analyst ask sales.csv "count rows per region" --provider ollama --model llama3.1:8b`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		question := strings.TrimSpace(strings.Join(args[1:], " "))
		if question == "" {
			return fmt.Errorf("question is required")
		}
		s, _, err := openSession(out, args[0], askTable)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
		defer stop()
		res := s.Ask(ctx, question)
		if askJSON {
			b, err := utils.PrettyJSON(res)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		printResult(out, res, s.Table().ColumnNames())
		return nil
	},
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// printResult renders res and, for provider failures, a configuration hint.
func printResult(w io.Writer, res analyst.Result, columns []string) {
	render.Result(w, res, columns, render.Options{Debug: debug})
	if res.Success {
		return
	}
	provider := selectProvider(cfg, flagProvider)
	if hint := providerHint(res.Err, provider, selectModel(cfg, provider, flagModel)); hint != "" {
		fmt.Fprintln(w, "⚠ "+hint)
	}
}

func init() {
	rootCmd.AddCommand(askCmd)
	askTable.bind(askCmd)
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the result as JSON")
}
