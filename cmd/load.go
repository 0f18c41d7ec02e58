package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/auto-analyst/internal/analysis"
	"github.com/KaramelBytes/auto-analyst/internal/render"
	"github.com/KaramelBytes/auto-analyst/internal/session"
	"github.com/KaramelBytes/auto-analyst/internal/utils"
)

// tableFlags are the parsing flags shared by commands that open a CSV.
type tableFlags struct {
	Delimiter string
	MaxRows   int
}

func (f *tableFlags) bind(c *cobra.Command) {
	c.Flags().StringVar(&f.Delimiter, "delimiter", "", "field delimiter: ',', ';', 'tab' or '|' (default: sniffed)")
	c.Flags().IntVar(&f.MaxRows, "max-rows", 0, "keep at most this many rows (0 = all)")
}

func (f tableFlags) options() (analysis.LoadOptions, error) {
	opt := analysis.LoadOptions{MaxRows: f.MaxRows}
	switch strings.ToLower(f.Delimiter) {
	case "":
	case ",":
		opt.Delimiter = ','
	case ";":
		opt.Delimiter = ';'
	case "\t", "tab":
		opt.Delimiter = '\t'
	case "|", "pipe":
		opt.Delimiter = '|'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", f.Delimiter)
	}
	if f.MaxRows < 0 {
		return opt, fmt.Errorf("--max-rows must be >= 0")
	}
	return opt, nil
}

// openSession reads path into a new session. Load and validation failures
// are returned with the user-facing wording; a missing API key only warns.
func openSession(w io.Writer, path string, tf tableFlags) (*session.Session, analysis.Summary, error) {
	c, err := currentConfig()
	if err != nil {
		return nil, analysis.Summary{}, err
	}
	lo, err := tf.options()
	if err != nil {
		return nil, analysis.Summary{}, err
	}
	full, err := utils.ExpandHome(path)
	if err != nil {
		return nil, analysis.Summary{}, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, analysis.Summary{}, fmt.Errorf("read file: %w", err)
	}

	opts := sessionOptions(c, flagRuntimeOptions(), logger)
	opts.Load = lo
	s := session.New(opts)
	sum, err := s.Load(data, filepath.Base(full))
	var (
		le *analysis.LoadError
		ve *analysis.ValidationError
	)
	switch {
	case errors.As(err, &le):
		logger.Debug("load attempts", zap.Error(err))
		return nil, sum, errors.New("Failed to load CSV. Check file encoding.")
	case errors.As(err, &ve):
		return nil, sum, fmt.Errorf("Invalid dataframe: %s", ve.Reason)
	case err != nil:
		fmt.Fprintf(w, "⚠ Warning: %v\n", err)
	}
	if !s.Ready() && err == nil {
		provider := selectProvider(c, flagProvider)
		fmt.Fprintf(w, "⚠ No API key for %s: %s. Questions will fail until one is configured.\n", provider, credentialHint(provider))
	}
	return s, sum, nil
}

var (
	loadTable   tableFlags
	loadPreview int
)

var loadCmd = &cobra.Command{
	Use:   "load <file.csv>",
	Short: "Load and validate a CSV, then print its summary and first rows",
	Long: "Load and validate a CSV, then print its summary and first rows.\n\n" +
		"Encodings are tried in order: " + strings.Join(analysis.Encodings(), ", ") + ".",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		s, sum, err := openSession(out, args[0], loadTable)
		if err != nil {
			return err
		}
		defer s.Close()
		render.Summary(out, sum)
		if loadPreview > 0 {
			fmt.Fprintln(out)
			render.Preview(out, s.Table(), loadPreview)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
	loadTable.bind(loadCmd)
	loadCmd.Flags().IntVar(&loadPreview, "preview", 5, "number of rows to preview (0 to hide)")
}
