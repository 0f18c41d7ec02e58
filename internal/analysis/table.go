package analysis

import (
	"bytes"
	"encoding/csv"
	"strings"
)

// Kind is the inferred scalar type of a column.
type Kind string

const (
	KindInteger  Kind = "integer"
	KindFloat    Kind = "float"
	KindBoolean  Kind = "boolean"
	KindDatetime Kind = "datetime"
	KindString   Kind = "string"
	KindEmpty    Kind = "empty"
)

// Numeric reports whether values of this kind parse as numbers.
func (k Kind) Numeric() bool { return k == KindInteger || k == KindFloat }

// Column is a named, typed column. Name is already normalized.
type Column struct {
	Name string `json:"name" yaml:"name"`
	Kind Kind   `json:"kind" yaml:"kind"`
}

// Cell holds the raw text of one value. Valid is false for null/missing.
type Cell struct {
	Text  string
	Valid bool
}

// Null is the missing-value cell.
var Null = Cell{}

// Table is an in-memory dataset loaded from CSV.
type Table struct {
	Name     string
	Encoding string
	Columns  []Column
	Rows     [][]Cell
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// NumCols returns the number of columns.
func (t *Table) NumCols() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// ColumnIndex returns the index of the first column called name, or -1.
func (t *Table) ColumnIndex(name string) int {
	if t == nil {
		return -1
	}
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Head returns a table sharing the first n rows.
func (t *Table) Head(n int) *Table {
	if t == nil {
		return nil
	}
	if n < 0 {
		n = 0
	}
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	return &Table{Name: t.Name, Encoding: t.Encoding, Columns: t.Columns, Rows: t.Rows[:n]}
}

// Strings returns row values as text with nulls rendered as "".
func (t *Table) Strings() [][]string {
	if t == nil {
		return nil
	}
	out := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		rec := make([]string, len(row))
		for j, c := range row {
			if c.Valid {
				rec[j] = c.Text
			}
		}
		out[i] = rec
	}
	return out
}

// CSV serializes the header and up to limit rows (0 = all) as comma-separated text.
func (t *Table) CSV(limit int) string {
	if t == nil {
		return ""
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(t.ColumnNames())
	rows := t.Strings()
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	_ = w.WriteAll(rows)
	return buf.String()
}

// NormalizeColumnName trims, lower-cases and replaces spaces with underscores.
func NormalizeColumnName(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}

// Summary is the at-a-glance description shown after upload.
type Summary struct {
	Rows     int             `json:"num_rows" yaml:"num_rows"`
	Columns  int             `json:"num_columns" yaml:"num_columns"`
	Names    []string        `json:"columns" yaml:"columns"`
	Types    map[string]Kind `json:"dtypes" yaml:"dtypes"`
	Missing  map[string]int  `json:"missing_values" yaml:"missing_values"`
	MemoryMB float64         `json:"memory_usage_mb" yaml:"memory_usage_mb"`
}

// Summarize computes row/column counts, per-column kinds and missing counts,
// and an approximate in-memory footprint.
func Summarize(t *Table) Summary {
	s := Summary{Types: map[string]Kind{}, Missing: map[string]int{}}
	if t == nil {
		return s
	}
	s.Rows = t.NumRows()
	s.Columns = t.NumCols()
	s.Names = t.ColumnNames()
	bytesUsed := 128 // index
	for j, c := range t.Columns {
		s.Types[c.Name] = c.Kind
		miss := 0
		for _, row := range t.Rows {
			cell := row[j]
			if !cell.Valid {
				miss++
			}
			bytesUsed += cellBytes(c.Kind, cell)
		}
		s.Missing[c.Name] = miss
	}
	s.MemoryMB = float64(bytesUsed) / (1024 * 1024)
	return s
}

// cellBytes approximates a columnar engine's deep memory usage: fixed-width
// numeric slots and boxed strings for everything else.
func cellBytes(k Kind, c Cell) int {
	switch k {
	case KindInteger, KindFloat, KindDatetime:
		return 8
	case KindBoolean:
		return 1
	}
	if !c.Valid {
		return 8 + 24
	}
	return 8 + 49 + len(c.Text)
}
