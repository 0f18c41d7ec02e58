package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/auto-analyst/internal/analysis"
)

// DefaultPrefix is the instruction block placed at the top of the system prompt.
const DefaultPrefix = `You are working with a table of data loaded from a CSV file.

CRITICAL INSTRUCTIONS:
1. When asked to SHOW, DISPLAY, GET, or FIND data you MUST return the actual rows or values.
2. NEVER describe what you would do. Work the answer out from the data and return it.
3. Your final answer MUST be the actual data (table, number, list), NOT a sentence describing it.
4. Compute aggregates (mean, sum, count, min, max) over every row of the table.
5. Refer to columns exactly by the names listed in the schema.`

// responseContract describes the only reply shape the agent accepts.
const responseContract = `Reply with a single JSON object and nothing else:
{"type": "table", "columns": ["a", "b"], "rows": [[1, "x"], [2, "y"]]}  for rows of the table
{"type": "number", "value": 81266.67}                                   for a single number
{"type": "list", "value": [1, 2, 3]}                                     for a list of values
{"type": "dict", "value": {"eng": 5, "ops": 3}}                          for values keyed by a label
{"type": "text", "value": "..."}                                         only when no data answer exists
{"type": "error", "value": "column 'x' not found"}                       when the question cannot be answered

Examples:
"show first 5 rows" -> {"type": "table", "columns": [...], "rows": [the first five rows]}
"calculate average salary" -> {"type": "number", "value": 81266.67}`

const (
	kindTable  = "table"
	kindNumber = "number"
	kindList   = "list"
	kindDict   = "dict"
	kindText   = "text"
	kindError  = "error"
)

// Frame is a tabular answer.
type Frame struct {
	Columns []string `json:"columns" yaml:"columns"`
	Rows    [][]any  `json:"rows" yaml:"rows"`
}

type envelope struct {
	Type    string   `json:"type"`
	Value   any      `json:"value"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// parseEnvelope extracts the JSON object from a model reply, tolerating code
// fences and surrounding prose.
func parseEnvelope(out string) (*envelope, error) {
	raw := strings.TrimSpace(out)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("empty reply")
	}
	if !strings.HasPrefix(raw, "{") {
		i, j := strings.IndexByte(raw, '{'), strings.LastIndexByte(raw, '}')
		if i < 0 || j < i {
			return nil, errors.New("no JSON object in reply")
		}
		raw = raw[i : j+1]
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var env envelope
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	env.Type = strings.ToLower(strings.TrimSpace(env.Type))
	if env.Type == "" {
		return nil, errors.New(`missing "type"`)
	}
	return &env, nil
}

// answer converts the envelope into the value handed back to callers.
// Numbers come back as int64 or float64.
func (e *envelope) answer(t *analysis.Table) (any, error) {
	switch e.Type {
	case kindTable:
		if len(e.Columns) > 0 {
			rows := make([][]any, len(e.Rows))
			for i, r := range e.Rows {
				if len(r) != len(e.Columns) {
					return nil, fmt.Errorf("row %d has %d values for %d columns", i, len(r), len(e.Columns))
				}
				rows[i] = numbers(r).([]any)
			}
			return &Frame{Columns: e.Columns, Rows: rows}, nil
		}
		recs, ok := e.Value.([]any)
		if !ok {
			return nil, errors.New(`table reply needs "columns" and "rows"`)
		}
		return frameFromRecords(recs, t)
	case kindNumber:
		switch v := e.Value.(type) {
		case json.Number:
			return number(v), nil
		case string:
			n := json.Number(strings.TrimSpace(v))
			if _, err := n.Float64(); err != nil {
				return nil, fmt.Errorf("number reply has non-numeric value %q", v)
			}
			return number(n), nil
		}
		return nil, fmt.Errorf("number reply has value of type %T", e.Value)
	case kindList:
		v, ok := e.Value.([]any)
		if !ok {
			return nil, fmt.Errorf("list reply has value of type %T", e.Value)
		}
		return numbers(v), nil
	case kindDict:
		v, ok := e.Value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("dict reply has value of type %T", e.Value)
		}
		return numbers(v), nil
	case kindText:
		if e.Value == nil {
			return "", nil
		}
		if s, ok := e.Value.(string); ok {
			return s, nil
		}
		return fmt.Sprint(numbers(e.Value)), nil
	}
	return nil, fmt.Errorf("unknown reply type %q", e.Type)
}

// frameFromRecords builds a Frame from a list of objects, ordering columns as
// they appear in t and unknown keys alphabetically after them.
func frameFromRecords(recs []any, t *analysis.Table) (*Frame, error) {
	seen := map[string]bool{}
	var keys []string
	for i, r := range recs {
		m, ok := r.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("record %d is %T, not an object", i, r)
		}
		for k := range m {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	pos := func(k string) int {
		if i := t.ColumnIndex(k); i >= 0 {
			return i
		}
		return len(keys) + t.NumCols()
	}
	sort.Slice(keys, func(i, j int) bool {
		pi, pj := pos(keys[i]), pos(keys[j])
		if pi != pj {
			return pi < pj
		}
		return keys[i] < keys[j]
	})
	f := &Frame{Columns: keys, Rows: make([][]any, len(recs))}
	for i, r := range recs {
		m := r.(map[string]any)
		row := make([]any, len(keys))
		for j, k := range keys {
			row[j] = numbers(m[k])
		}
		f.Rows[i] = row
	}
	return f, nil
}

func number(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// numbers replaces json.Number values recursively.
func numbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		return number(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = numbers(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = numbers(e)
		}
		return out
	}
	return v
}
