package analysis

import (
	"reflect"
	"strings"
	"testing"
)

var scoreRows = []string{
	"dept,score,note",
	"eng,10,first",
	"eng,11,second",
	"ops,9.5,third",
	"eng,10.5,fourth",
	"ops,9.8,fifth",
	"eng,10.2,sixth",
	"ops,8.8,seventh",
	"eng,9.7,eighth",
	"hr,50,ninth",
}

func TestDescribeAndMarkdown(t *testing.T) {
	tbl := mustLoad(t, strings.Join(scoreRows, "\n"), "scores.csv")
	opt := DefaultReportOptions()
	opt.SampleRows = 3
	rep := Describe(tbl, opt)

	if rep.Rows != 9 || len(rep.Cols) != 3 || len(rep.Samples) != 3 {
		t.Fatalf("unexpected shape: rows=%d cols=%d samples=%d", rep.Rows, len(rep.Cols), len(rep.Samples))
	}
	score := rep.Cols[1]
	if score.Kind != KindFloat || score.Min != 8.8 || score.Max != 50 {
		t.Fatalf("score summary = %+v", score)
	}
	if score.OutliersCount != 1 {
		t.Fatalf("outliers = %d", score.OutliersCount)
	}
	dept := rep.Cols[0]
	if dept.Unique != 3 || dept.TopValues[0].Value != "eng" || dept.TopValues[0].Count != 5 {
		t.Fatalf("dept summary = %+v", dept)
	}

	md := rep.Markdown()
	for _, want := range []string{
		"[DATASET SUMMARY]",
		"File: scores.csv",
		"Rows: 9",
		"Columns: 3",
		"- score: float (non-null 9, missing 0.0%); min 8.8, max 50",
		"outliers: 1 above |z|>3.5",
		"- dept: string (non-null 9, missing 0.0%); top: eng(5), ops(3), hr(1)",
		"[HEAD AND SAMPLE ROWS]",
		"| dept | score | note |",
		"| eng | 10 | first |",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestDescribe_IntegerStats(t *testing.T) {
	tbl := mustLoad(t, "age\n20\n30\n40\n", "a.csv")
	md := Describe(tbl, DefaultReportOptions()).Markdown()
	if !strings.Contains(md, "- age: integer (non-null 3, missing 0.0%); min 20, max 40, mean 30, std 10") {
		t.Fatalf("markdown:\n%s", md)
	}
}

func TestMarkdown_SanitizesCells(t *testing.T) {
	tbl := mustLoad(t, "v\n\"a|b\nc\"\n", "s.csv")
	md := Describe(tbl, DefaultReportOptions()).Markdown()
	if !strings.Contains(md, "| a/b c |") {
		t.Fatalf("markdown:\n%s", md)
	}
}

func TestDescribe_Notes(t *testing.T) {
	tbl := mustLoad(t, "name,bonus,note\nJos\xe9,,\nAna,5,\nBo,,\n", "b.csv")
	rep := Describe(tbl, DefaultReportOptions())
	want := []string{
		"file was decoded as latin-1; accented text may not match the source exactly",
		"column bonus is mostly missing (2 of 3 rows)",
		"column note has no values",
	}
	if !reflect.DeepEqual(rep.Warnings, want) {
		t.Fatalf("warnings = %q", rep.Warnings)
	}
	md := rep.Markdown()
	if !strings.Contains(md, "[NOTES]\n- file was decoded as latin-1") {
		t.Fatalf("markdown:\n%s", md)
	}

	clean := Describe(mustLoad(t, strings.Join(scoreRows, "\n"), "scores.csv"), DefaultReportOptions())
	if len(clean.Warnings) != 0 || strings.Contains(clean.Markdown(), "[NOTES]") {
		t.Fatalf("unexpected notes: %q", clean.Warnings)
	}
}

func TestDescribe_Nil(t *testing.T) {
	if rep := Describe(nil, DefaultReportOptions()); rep.Rows != 0 || len(rep.Cols) != 0 {
		t.Fatalf("unexpected %+v", rep)
	}
}
