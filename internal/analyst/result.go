package analyst

import (
	"encoding/json"
	"reflect"
	"sort"
	"strings"
	"unicode"

	"github.com/KaramelBytes/auto-analyst/internal/agent"
)

// NoOutput replaces an absent or blank answer.
const NoOutput = "Query executed successfully but returned no output."

// Kind names the shape of an answer.
type Kind string

const (
	KindTable    Kind = "table"
	KindNumber   Kind = "number"
	KindSequence Kind = "sequence"
	KindMapping  Kind = "mapping"
	KindText     Kind = "text"
	KindEmpty    Kind = "empty"
)

// TextHint flags text answers that look like a table or series printed as text.
type TextHint string

const (
	HintNone              TextHint = ""
	HintStringifiedTable  TextHint = "stringified_table"
	HintStringifiedSeries TextHint = "stringified_series"
)

// ResultTable is a tabular answer.
type ResultTable struct {
	Columns []string `json:"columns" yaml:"columns"`
	Rows    [][]any  `json:"rows" yaml:"rows"`
}

// QueryResult is the classified answer. Only the field matching Kind is set;
// Empty answers carry NoOutput in Text.
type QueryResult struct {
	Kind     Kind           `json:"kind" yaml:"kind"`
	Table    *ResultTable   `json:"table,omitempty" yaml:"table,omitempty"`
	Number   *float64       `json:"number,omitempty" yaml:"number,omitempty"`
	Sequence []any          `json:"sequence,omitempty" yaml:"sequence,omitempty"`
	Mapping  map[string]any `json:"mapping,omitempty" yaml:"mapping,omitempty"`
	Text     string         `json:"text,omitempty" yaml:"text,omitempty"`
	Hint     TextHint       `json:"hint,omitempty" yaml:"hint,omitempty"`

	// Raw is the unclassified value, kept for debug output.
	Raw any `json:"-" yaml:"-"`
}

// Unwrap extracts the primary value from an agent result container: the
// "output" key, else the "result" key, else the whole map.
func Unwrap(raw any) any {
	m, ok := raw.(map[string]any)
	if !ok {
		return raw
	}
	if v, ok := m["output"]; ok {
		return v
	}
	if v, ok := m["result"]; ok {
		return v
	}
	return m
}

// Classify determines the shape of v. columns, when given, are used to
// recognize tables that were returned as text.
func Classify(v any, columns ...string) QueryResult {
	qr := classify(v, columns)
	qr.Raw = v
	return qr
}

func classify(v any, columns []string) QueryResult {
	switch x := v.(type) {
	case nil:
		return empty()
	case *ResultTable:
		if x == nil {
			return empty()
		}
		return QueryResult{Kind: KindTable, Table: x}
	case *agent.Frame:
		if x == nil {
			return empty()
		}
		return QueryResult{Kind: KindTable, Table: &ResultTable{Columns: x.Columns, Rows: x.Rows}}
	case string:
		if strings.TrimSpace(x) == "" {
			return empty()
		}
		return QueryResult{Kind: KindText, Text: x, Hint: textHint(x, columns)}
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return QueryResult{Kind: KindNumber, Number: &f}
		}
		return QueryResult{Kind: KindText, Text: x.String()}
	case bool:
		return QueryResult{Kind: KindText, Text: jsonText(x)}
	case []map[string]any:
		return QueryResult{Kind: KindTable, Table: fromRecords(x)}
	case []any:
		if recs, ok := records(x); ok {
			return QueryResult{Kind: KindTable, Table: fromRecords(recs)}
		}
		return QueryResult{Kind: KindSequence, Sequence: x}
	case map[string]any:
		if t, ok := columnsRows(x); ok {
			return QueryResult{Kind: KindTable, Table: t}
		}
		return QueryResult{Kind: KindMapping, Mapping: x}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return QueryResult{Kind: KindNumber, Number: ptr(float64(rv.Int()))}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return QueryResult{Kind: KindNumber, Number: ptr(float64(rv.Uint()))}
	case reflect.Float32, reflect.Float64:
		return QueryResult{Kind: KindNumber, Number: ptr(rv.Float())}
	case reflect.Slice, reflect.Array:
		seq := make([]any, rv.Len())
		for i := range seq {
			seq[i] = rv.Index(i).Interface()
		}
		return QueryResult{Kind: KindSequence, Sequence: seq}
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			m := make(map[string]any, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				m[iter.Key().String()] = iter.Value().Interface()
			}
			return QueryResult{Kind: KindMapping, Mapping: m}
		}
	case reflect.Pointer:
		if rv.IsNil() {
			return empty()
		}
	}
	return QueryResult{Kind: KindText, Text: jsonText(v)}
}

func ptr(f float64) *float64 { return &f }

func empty() QueryResult { return QueryResult{Kind: KindEmpty, Text: NoOutput} }

func jsonText(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// textHint flags multi-line text whose first line names a table column, and
// text that ends like a printed series.
func textHint(s string, columns []string) TextHint {
	s = strings.TrimSpace(s)
	lines := strings.Split(s, "\n")
	if len(lines) > 2 {
		header := map[string]bool{}
		for _, tok := range wordTokens(lines[0]) {
			header[tok] = true
		}
		for _, c := range columns {
			if hasAllTokens(header, wordTokens(c)) {
				return HintStringifiedTable
			}
		}
	}
	if strings.Contains(s, "dtype:") && strings.Contains(s, "\n") {
		return HintStringifiedSeries
	}
	return HintNone
}

func wordTokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

// hasAllTokens reports whether every token of a column name is a whole
// word of the header line.
func hasAllTokens(header map[string]bool, toks []string) bool {
	if len(toks) == 0 {
		return false
	}
	for _, t := range toks {
		if !header[t] {
			return false
		}
	}
	return true
}

func records(xs []any) ([]map[string]any, bool) {
	if len(xs) == 0 {
		return nil, false
	}
	out := make([]map[string]any, len(xs))
	for i, x := range xs {
		m, ok := x.(map[string]any)
		if !ok {
			return nil, false
		}
		out[i] = m
	}
	return out, true
}

// fromRecords orders columns alphabetically; records carry no key order.
func fromRecords(recs []map[string]any) *ResultTable {
	seen := map[string]bool{}
	var cols []string
	for _, r := range recs {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	t := &ResultTable{Columns: cols, Rows: make([][]any, len(recs))}
	for i, r := range recs {
		row := make([]any, len(cols))
		for j, c := range cols {
			row[j] = r[c]
		}
		t.Rows[i] = row
	}
	return t
}

// columnsRows recognizes a {"columns": [...], "rows": [[...]]} object.
func columnsRows(m map[string]any) (*ResultTable, bool) {
	if len(m) != 2 {
		return nil, false
	}
	rawCols, ok := m["columns"].([]any)
	if !ok {
		return nil, false
	}
	rawRows, ok := m["rows"].([]any)
	if !ok {
		return nil, false
	}
	t := &ResultTable{Columns: make([]string, len(rawCols)), Rows: make([][]any, len(rawRows))}
	for i, c := range rawCols {
		s, ok := c.(string)
		if !ok {
			return nil, false
		}
		t.Columns[i] = s
	}
	for i, r := range rawRows {
		row, ok := r.([]any)
		if !ok || len(row) != len(t.Columns) {
			return nil, false
		}
		t.Rows[i] = row
	}
	return t, true
}
