// Package render prints sessions, tables and answers to a terminal.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/KaramelBytes/auto-analyst/internal/analysis"
	"github.com/KaramelBytes/auto-analyst/internal/analyst"
	"github.com/KaramelBytes/auto-analyst/internal/session"
	"github.com/KaramelBytes/auto-analyst/internal/tracker"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Italic(true)
	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// MaxTableRows bounds how many answer rows are drawn.
const MaxTableRows = 50

// Options controls Result output.
type Options struct {
	// Debug prints the answer kind and raw value before the answer.
	Debug bool
}

// Result prints a query outcome: the accepted rewrite if any, then the
// answer on success or the error and a suggestion otherwise.
func Result(w io.Writer, res analyst.Result, columns []string, opt Options) {
	if res.Normalized {
		fmt.Fprintln(w, dimStyle.Render("🔄 Interpreted as: "+strings.TrimPrefix(res.Sent, "Show me: ")))
	}
	if !res.Success {
		fmt.Fprintln(w, errStyle.Render("❌ Error: "+res.Error))
		fmt.Fprintln(w, hintStyle.Render("💡 "+Hint(res.Error, columns)))
		return
	}
	fmt.Fprintln(w, okStyle.Render("✓ Analysis complete!"))
	if res.Answer == nil {
		Answer(w, analyst.Classify(nil), opt)
		return
	}
	Answer(w, *res.Answer, opt)
}

// Answer prints a classified answer.
func Answer(w io.Writer, qr analyst.QueryResult, opt Options) {
	if opt.Debug {
		debug(w, qr)
	}
	switch qr.Kind {
	case analyst.KindTable:
		drawTable(w, qr.Table.Columns, qr.Table.Rows)
	case analyst.KindNumber:
		fmt.Fprintln(w, labelStyle.Render("Answer")+"  "+valueStyle.Render(FormatValue(*qr.Number)))
	case analyst.KindSequence:
		for _, v := range qr.Sequence {
			fmt.Fprintln(w, "  • "+FormatValue(v))
		}
	case analyst.KindMapping:
		b, err := json.MarshalIndent(qr.Mapping, "", "  ")
		if err != nil {
			fmt.Fprintln(w, fmt.Sprint(qr.Mapping))
			return
		}
		fmt.Fprintln(w, string(b))
	case analyst.KindText:
		text := strings.TrimSpace(qr.Text)
		switch qr.Hint {
		case analyst.HintStringifiedTable:
			fmt.Fprintln(w, warnStyle.Render("⚠ Result is showing as text. The data is correct but formatting failed."))
			fmt.Fprintln(w, text)
			fmt.Fprintln(w, hintStyle.Render("💡 The query worked! Try --debug to see the raw data type."))
		case analyst.HintStringifiedSeries:
			fmt.Fprintln(w, text)
			fmt.Fprintln(w, hintStyle.Render("💡 Tip: For better formatting, try rephrasing as 'show as a table'."))
		default:
			fmt.Fprintln(w, text)
		}
	case analyst.KindEmpty:
		fmt.Fprintln(w, warnStyle.Render("⚠ The query completed but returned no visible output. Try rephrasing your question."))
	default:
		fmt.Fprintln(w, warnStyle.Render("⚠ Unknown result kind "+string(qr.Kind)))
	}
}

func debug(w io.Writer, qr analyst.QueryResult) {
	fmt.Fprintln(w, titleStyle.Render("Debug Info"))
	fmt.Fprintf(w, "  %s %s (%T)\n", labelStyle.Render("Result Type:"), qr.Kind, qr.Raw)
	fmt.Fprintf(w, "  %s %#v\n", labelStyle.Render("Result Value:"), qr.Raw)
	if n, ok := length(qr); ok {
		fmt.Fprintf(w, "  %s %d\n", labelStyle.Render("Length:"), n)
	}
}

func length(qr analyst.QueryResult) (int, bool) {
	switch qr.Kind {
	case analyst.KindTable:
		return len(qr.Table.Rows), true
	case analyst.KindSequence:
		return len(qr.Sequence), true
	case analyst.KindMapping:
		return len(qr.Mapping), true
	case analyst.KindText:
		return len([]rune(qr.Text)), true
	}
	return 0, false
}

// Hint suggests a next step for a failed query.
func Hint(errMsg string, columns []string) string {
	lower := strings.ToLower(errMsg)
	switch {
	case strings.Contains(lower, "parse") || strings.Contains(lower, "format"):
		return "Try these working queries instead: 'show all rows', 'calculate average salary', 'show first 10 rows'"
	case strings.Contains(lower, "column"):
		return "Available columns: " + strings.Join(columns, ", ")
	}
	return "Try rephrasing with 'show', 'calculate', or 'display' at the start"
}

// Examples lists questions that work well.
func Examples(w io.Writer) {
	groups := []struct {
		title string
		items []string
	}{
		{"Beginner", []string{"show all rows", "show first 5 rows", "calculate the average salary", "count total number of rows"}},
		{"Filtering & Sorting", []string{"show rows where salary > 80000", "sort by salary descending and show first 5 rows", "show rows where department equals Engineering"}},
		{"Analysis", []string{"calculate average salary by department", "show the row where salary is maximum", "count employees in each department"}},
	}
	for _, g := range groups {
		fmt.Fprintln(w, titleStyle.Render(g.title))
		for _, it := range g.items {
			fmt.Fprintln(w, "  • "+it)
		}
	}
	fmt.Fprintln(w, dimStyle.Render("Start with \"show\" or \"calculate\" and use exact column names from the preview."))
}

// Stats prints the query counters.
func Stats(w io.Writer, st session.Stats) {
	fmt.Fprintln(w, titleStyle.Render("Query Statistics"))
	fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("Total Queries:"), valueStyle.Render(strconv.Itoa(st.Total)))
	fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("Success Rate: "), valueStyle.Render(fmt.Sprintf("%.1f%%", st.SuccessRate)))
}

// History prints entries newest first.
func History(w io.Writer, entries []tracker.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No queries yet."))
		return
	}
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		mark := okStyle.Render("✅")
		if !e.Success {
			mark = errStyle.Render("❌")
		}
		fmt.Fprintf(w, "%s %s %s\n", mark, dimStyle.Render(e.Timestamp.Format("15:04:05")), e.Query)
		if e.Error != nil {
			fmt.Fprintln(w, "     "+errStyle.Render(*e.Error))
		}
	}
}

// Preview prints the first n rows of t.
func Preview(w io.Writer, t *analysis.Table, n int) {
	if t == nil {
		return
	}
	h := t.Head(n)
	rows := make([][]any, 0, h.NumRows())
	for _, r := range h.Strings() {
		row := make([]any, len(r))
		for i, v := range r {
			row[i] = v
		}
		rows = append(rows, row)
	}
	drawTable(w, h.ColumnNames(), rows)
}

// Summary prints the loaded-table overview.
func Summary(w io.Writer, s analysis.Summary) {
	fmt.Fprintln(w, okStyle.Render(fmt.Sprintf("✓ Loaded %d rows and %d columns", s.Rows, s.Columns)))
	fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("Memory (MB):"), valueStyle.Render(fmt.Sprintf("%.2f", s.MemoryMB)))
	rows := make([][]any, len(s.Names))
	for i, name := range s.Names {
		rows[i] = []any{name, string(s.Types[name]), s.Missing[name]}
	}
	drawTable(w, []string{"Column", "Type", "Missing"}, rows)
}

func drawTable(w io.Writer, columns []string, rows [][]any) {
	shown := rows
	if len(shown) > MaxTableRows {
		shown = shown[:MaxTableRows]
	}
	tb := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(columns...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, r := range shown {
		cells := make([]string, len(r))
		for i, v := range r {
			cells[i] = FormatValue(v)
		}
		tb.Row(cells...)
	}
	fmt.Fprintln(w, tb.Render())
	if extra := len(rows) - len(shown); extra > 0 {
		fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("… %d more rows", extra)))
	}
}

// FormatValue renders a scalar without exponent noise; nil prints as empty.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case json.Number:
		return x.String()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		b, err := json.Marshal(v)
		if err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(v)
}
