package cmd

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/auto-analyst/internal/analyst"
	"github.com/KaramelBytes/auto-analyst/internal/render"
	"github.com/KaramelBytes/auto-analyst/internal/session"
	"github.com/KaramelBytes/auto-analyst/internal/tracker"
	"github.com/KaramelBytes/auto-analyst/internal/utils"
)

var replTable tableFlags

const replHelp = `Commands:
  :stats                    total queries and success rate
  :history [n]              last n queries (default 5), newest first
  :failures                 failed queries
  :clear                    clear the query history
  :export json|yaml <path>  save the full history
  :examples                 questions that work well
  :help                     this help
  :quit                     end the session
Anything else is sent as a question.`

var replCmd = &cobra.Command{
	Use:   "repl <file.csv>",
	Short: "Load a CSV and ask questions interactively",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		s, sum, err := openSession(out, args[0], replTable)
		if err != nil {
			return err
		}
		defer s.Close()
		render.Summary(out, sum)
		fmt.Fprintln(out)
		render.Preview(out, s.Table(), 5)
		fmt.Fprintln(out, "Type a question, or :help for commands.")
		return runREPL(cmd, s, cmd.InOrStdin(), out)
	},
}

func runREPL(cmd *cobra.Command, s *session.Session, in io.Reader, out io.Writer) error {
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)
	return replLoop(commandContext(cmd), s, in, out, interrupts)
}

// replLoop reads lines until :quit, EOF or an interrupt at the prompt. An
// interrupt while a question runs cancels only that question.
func replLoop(ctx context.Context, s *session.Session, in io.Reader, out io.Writer, interrupts <-chan os.Signal) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
		scanErr <- sc.Err()
		close(lines)
	}()

	for {
		fmt.Fprint(out, "> ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return ctx.Err()
		case <-interrupts:
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Bye.")
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				return <-scanErr
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ":") {
			quit, err := replCommand(s, line, out)
			if err != nil {
				fmt.Fprintln(out, "✗ Error:", err)
			}
			if quit {
				return nil
			}
			continue
		}
		fmt.Fprintln(out, "🤔 Analyzing...")
		res := askInterruptible(ctx, s, line, interrupts)
		if errors.Is(res.Err, context.Canceled) && ctx.Err() == nil {
			fmt.Fprintln(out, "⚠ Query cancelled")
			continue
		}
		printResult(out, res, s.Table().ColumnNames())
	}
}

func askInterruptible(ctx context.Context, s *session.Session, q string, interrupts <-chan os.Signal) analyst.Result {
	qctx, cancel := context.WithCancel(ctx)
	defer cancel()
	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-interrupts:
			cancel()
		case <-finished:
		}
	}()
	return s.Ask(qctx, q)
}

func replCommand(s *session.Session, line string, out io.Writer) (quit bool, err error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":quit", ":q", ":exit":
		fmt.Fprintln(out, "Bye.")
		return true, nil
	case ":help", ":h":
		fmt.Fprintln(out, replHelp)
	case ":examples":
		render.Examples(out)
	case ":stats":
		render.Stats(out, s.Stats())
	case ":history":
		n := 5
		if len(fields) > 1 {
			v, err := strconv.Atoi(fields[1])
			if err != nil || v < 0 {
				return false, fmt.Errorf("invalid count for :history: %s", fields[1])
			}
			n = v
		}
		render.History(out, s.History(n))
	case ":failures":
		render.History(out, s.Failures())
	case ":clear":
		s.ClearHistory()
		fmt.Fprintln(out, "✓ History cleared")
	case ":export":
		if len(fields) != 3 {
			return false, fmt.Errorf("usage: :export json|yaml <path>")
		}
		f := tracker.Format(strings.ToLower(fields[1]))
		var buf bytes.Buffer
		if err := s.Export(&buf, f); err != nil {
			return false, err
		}
		path, err := utils.ExpandHome(fields[2])
		if err != nil {
			return false, err
		}
		if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
			return false, err
		}
		fmt.Fprintf(out, "✓ History saved to %s\n", path)
	default:
		return false, fmt.Errorf("unknown command %s (try :help)", fields[0])
	}
	return false, nil
}

func init() {
	rootCmd.AddCommand(replCmd)
	replTable.bind(replCmd)
}
