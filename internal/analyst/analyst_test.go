package analyst

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/auto-analyst/internal/agent"
)

type fakeAgent struct {
	out   any
	err   error
	panic any
	got   []string
}

func (f *fakeAgent) Invoke(_ context.Context, instruction string) (any, error) {
	f.got = append(f.got, instruction)
	if f.panic != nil {
		panic(f.panic)
	}
	return f.out, f.err
}

var cols = []string{"employee_name", "salary", "department"}

func TestQuery_AgentNotInitialized(t *testing.T) {
	res := New(nil, cols, 0, nil).Query(context.Background(), "show first 5 rows")
	assert.False(t, res.Success)
	assert.Nil(t, res.Answer)
	assert.Equal(t, "Agent not initialized. Please upload a CSV first.", res.Error)
	assert.ErrorIs(t, res.Err, ErrAgentNotInitialized)
}

func TestQuery_Success(t *testing.T) {
	fa := &fakeAgent{out: map[string]any{"output": 81266.67}}
	res := New(fa, cols, 0, nil).Query(context.Background(), "What is the average salary")

	require.True(t, res.Success)
	require.Len(t, fa.got, 1)
	assert.Equal(t, "calculate the average of salary", fa.got[0])
	assert.Equal(t, fa.got[0], res.Sent)
	assert.True(t, res.Normalized)
	require.NotNil(t, res.Answer)
	assert.Equal(t, KindNumber, res.Answer.Kind)
	assert.Equal(t, 81266.67, *res.Answer.Number)
	assert.Empty(t, res.Error)
}

func TestQuery_EmptyOutputIsSuccess(t *testing.T) {
	fa := &fakeAgent{out: map[string]any{"output": "   "}}
	res := New(fa, cols, 0, nil).Query(context.Background(), "show nothing")
	require.True(t, res.Success)
	assert.Equal(t, KindEmpty, res.Answer.Kind)
	assert.Equal(t, NoOutput, res.Answer.Text)
}

func TestQuery_ErrorsAreSimplified(t *testing.T) {
	fa := &fakeAgent{err: errors.New("Could not parse LLM output: `blah`")}
	res := New(fa, cols, 0, nil).Query(context.Background(), "blah")
	assert.False(t, res.Success)
	assert.Nil(t, res.Answer)
	assert.Contains(t, res.Error, "The AI is having trouble understanding this query.")
	assert.EqualError(t, res.Err, "Could not parse LLM output: `blah`")
	assert.Equal(t, []string{"Show me: blah"}, fa.got)
}

func TestQuery_PanicIsCaught(t *testing.T) {
	fa := &fakeAgent{panic: "index out of range"}
	res := New(fa, cols, 0, nil).Query(context.Background(), "show rows")
	assert.False(t, res.Success)
	assert.Equal(t, "agent panic: index out of range", res.Error)
}

func TestQuery_AgentFrame(t *testing.T) {
	fa := &fakeAgent{out: map[string]any{"output": &agent.Frame{Columns: []string{"a"}, Rows: [][]any{{int64(1)}}}}}
	res := New(fa, cols, 0, nil).Query(context.Background(), "show first 1 rows")
	require.True(t, res.Success)
	assert.Equal(t, KindTable, res.Answer.Kind)
	assert.Equal(t, []string{"a"}, res.Answer.Table.Columns)
}

func TestPrepareQuestion(t *testing.T) {
	cases := []struct {
		in       string
		sent     string
		accepted bool
	}{
		{"What is the average salary", "calculate the average of salary", true},
		{"show first 5 rows", "show first 5 rows", false},
		{"employees", "Show me: employees", false},
		{"who has the highest score", "show the row where score is maximum", true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			sent, _, accepted := PrepareQuestion(tc.in, 0.7)
			assert.Equal(t, tc.sent, sent)
			assert.Equal(t, tc.accepted, accepted)
		})
	}
}

func TestPrepareQuestion_RatioRejectsShortRewrite(t *testing.T) {
	// a ratio above 1 requires the rewrite to be longer than the input
	sent, normalized, accepted := PrepareQuestion("What is the maximum salary", 5)
	assert.False(t, accepted)
	assert.Equal(t, "show the row where salary is maximum", normalized)
	assert.Equal(t, "Show me: What is the maximum salary", sent)
}

func TestWithVerbCue(t *testing.T) {
	assert.Equal(t, "Show me: count employee in each department", WithVerbCue("count employee in each department"))
	assert.Equal(t, "SORT by age", WithVerbCue("SORT by age"))
	assert.Equal(t, "total budget", WithVerbCue("total budget"))
	assert.Equal(t, "Show me: ", WithVerbCue(""))
}

func TestUnwrap(t *testing.T) {
	assert.Equal(t, 1, Unwrap(map[string]any{"output": 1, "result": 2}))
	assert.Equal(t, 2, Unwrap(map[string]any{"result": 2}))
	m := map[string]any{"other": 3}
	assert.Equal(t, m, Unwrap(m))
	assert.Equal(t, "x", Unwrap("x"))
	assert.Nil(t, Unwrap(nil))
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		in   any
		kind Kind
	}{
		{"nil", nil, KindEmpty},
		{"blank", " \n", KindEmpty},
		{"nil frame", (*agent.Frame)(nil), KindEmpty},
		{"int", 3, KindNumber},
		{"int64", int64(3), KindNumber},
		{"float32", float32(1.5), KindNumber},
		{"json number", json.Number("2.5"), KindNumber},
		{"records", []any{map[string]any{"a": 1}}, KindTable},
		{"typed records", []map[string]any{{"a": 1}}, KindTable},
		{"columns rows", map[string]any{"columns": []any{"a"}, "rows": []any{[]any{1}}}, KindTable},
		{"result table", &ResultTable{Columns: []string{"a"}}, KindTable},
		{"sequence", []any{1, "b"}, KindSequence},
		{"empty sequence", []any{}, KindSequence},
		{"typed sequence", []string{"a", "b"}, KindSequence},
		{"mapping", map[string]any{"eng": 2}, KindMapping},
		{"typed mapping", map[string]int{"eng": 2}, KindMapping},
		{"text", "hello", KindText},
		{"bool", true, KindText},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.in)
			assert.Equal(t, tc.kind, got.Kind)
		})
	}
}

func TestClassify_Payloads(t *testing.T) {
	qr := Classify([]any{map[string]any{"b": 2, "a": 1}, map[string]any{"a": 3}})
	require.NotNil(t, qr.Table)
	assert.Equal(t, []string{"a", "b"}, qr.Table.Columns)
	assert.Equal(t, [][]any{{1, 2}, {3, nil}}, qr.Table.Rows)

	qr = Classify(map[string]int{"eng": 2})
	assert.Equal(t, map[string]any{"eng": 2}, qr.Mapping)

	qr = Classify(true)
	assert.Equal(t, "true", qr.Text)
	assert.Equal(t, true, qr.Raw)
}

func TestClassify_TextHints(t *testing.T) {
	table := "   employee_name  salary\n0  Ana  90000\n1  Bo  72800"
	assert.Equal(t, HintStringifiedTable, Classify(table, cols...).Hint)
	assert.Equal(t, HintNone, Classify(table).Hint)

	series := "eng    5\nops    3\nName: department, dtype: int64"
	assert.Equal(t, HintStringifiedSeries, Classify(series, cols...).Hint)

	assert.Equal(t, HintNone, Classify("just a sentence", cols...).Hint)

	// one-letter columns only match as whole header words
	prose := "Salaries are highest in engineering.\nOps follows.\nHR is last."
	assert.Equal(t, HintNone, Classify(prose, "a", "b").Hint)
	grid := "   a   b\n0  1  2\n1  3  4"
	assert.Equal(t, HintStringifiedTable, Classify(grid, "a", "b").Hint)
	assert.Equal(t, HintNone, Classify("   salary_band  x\n0 1\n1 2", "salary").Hint)
}

func TestSimplifyError(t *testing.T) {
	long := strings.Repeat("é", 250)
	cases := []struct {
		name string
		msg  string
		want string
	}{
		{"parse", "Could not parse LLM output: `x`", "The AI is having trouble understanding this query. Try using simpler phrasing like 'show first 5 rows' or 'calculate average salary'."},
		{"column", "KeyError: Column 'bonus' NOT FOUND", "Column not found. Available columns are: employee_name, salary, department"},
		{"parsing", "error while Parsing the reply", "Query format issue. Try rephrasing more simply, like 'show rows where salary > 80000'."},
		{"long", long, strings.Repeat("é", 200) + "... (Try a simpler query)"},
		{"verbatim", "rate limited", "rate limited"},
		{"exactly 200", strings.Repeat("a", 200), strings.Repeat("a", 200)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SimplifyError(tc.msg, cols))
		})
	}
}
