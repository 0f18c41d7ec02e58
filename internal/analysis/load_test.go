package analysis

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func mustLoad(t *testing.T, data, name string) *Table {
	t.Helper()
	tbl, err := Load([]byte(data), name, LoadOptions{})
	if err != nil {
		t.Fatalf("Load(%s): %v", name, err)
	}
	return tbl
}

func TestLoad_NormalizesColumnNames(t *testing.T) {
	tbl := mustLoad(t, " Employee Name ,Age,Annual Salary\nAlice,30,100\n", "people.csv")
	want := []string{"employee_name", "age", "annual_salary"}
	if got := tbl.ColumnNames(); !reflect.DeepEqual(got, want) {
		t.Fatalf("columns = %v, want %v", got, want)
	}
	for _, name := range tbl.ColumnNames() {
		if name != strings.TrimSpace(name) || name != strings.ToLower(name) || strings.Contains(name, " ") {
			t.Fatalf("column %q not normalized", name)
		}
	}
	if tbl.Name != "people.csv" || tbl.Encoding != "utf-8" {
		t.Fatalf("name/encoding = %q/%q", tbl.Name, tbl.Encoding)
	}
}

func TestLoad_EncodingOrder(t *testing.T) {
	want := []string{"utf-8", "latin-1", "iso-8859-1", "cp1252"}
	if got := Encodings(); !reflect.DeepEqual(got, want) {
		t.Fatalf("encodings = %v, want %v", got, want)
	}
}

func TestLoad_FallsBackToLatin1(t *testing.T) {
	data := []byte("name,city\nJos\xe9,M\xfcnchen\n")
	tbl, err := Load(data, "cities.csv", LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tbl.Encoding != "latin-1" {
		t.Fatalf("encoding = %q, want latin-1", tbl.Encoding)
	}
	if got := tbl.Rows[0][0].Text; got != "José" {
		t.Fatalf("cell = %q", got)
	}
	if got := tbl.Rows[0][1].Text; got != "München" {
		t.Fatalf("cell = %q", got)
	}
}

func TestLoad_WarnsOncePerFailedEncoding(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	log := zap.New(core)

	if _, err := Load([]byte("name\nJos\xe9\n"), "cities.csv", LoadOptions{Log: log}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	entries := logs.TakeAll()
	if len(entries) != 1 {
		t.Fatalf("warnings = %d, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["encoding"]; got != "utf-8" {
		t.Fatalf("encoding field = %v", got)
	}

	if _, err := Load([]byte("a,b\n1,2,3\n"), "bad.csv", LoadOptions{Log: log}); err == nil {
		t.Fatalf("expected error")
	}
	entries = logs.TakeAll()
	if len(entries) != len(Encodings()) {
		t.Fatalf("warnings = %d, want %d", len(entries), len(Encodings()))
	}
	for i, e := range entries {
		if e.Message != "error reading csv" || e.ContextMap()["encoding"] != Encodings()[i] {
			t.Fatalf("entry %d: %s %v", i, e.Message, e.ContextMap())
		}
	}

	if _, err := Load([]byte("name\ncafé\n"), "x.csv", LoadOptions{Log: log}); err != nil || logs.Len() != 0 {
		t.Fatalf("clean utf-8 load should not warn: %v %d", err, logs.Len())
	}
}

func TestLoad_UTF8Preferred(t *testing.T) {
	tbl := mustLoad(t, "name\ncafé\n", "x.csv")
	if tbl.Encoding != "utf-8" || tbl.Rows[0][0].Text != "café" {
		t.Fatalf("got %q / %q", tbl.Encoding, tbl.Rows[0][0].Text)
	}
}

func TestLoad_AllEncodingsFail(t *testing.T) {
	cases := map[string]string{
		"empty":     "",
		"long row":  "a,b\n1,2,3\n",
		"blank doc": "\n\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			tbl, err := Load([]byte(data), "bad.csv", LoadOptions{})
			if tbl != nil {
				t.Fatalf("expected no table")
			}
			var le *LoadError
			if !errors.As(err, &le) {
				t.Fatalf("expected *LoadError, got %T %v", err, err)
			}
			if len(le.Attempts) != len(Encodings()) {
				t.Fatalf("attempts = %d", len(le.Attempts))
			}
			if le.Attempts[0].Encoding != "utf-8" || le.Attempts[3].Encoding != "cp1252" {
				t.Fatalf("attempt order: %+v", le.Attempts)
			}
		})
	}
}

func TestLoad_ShortRowsPaddedWithNulls(t *testing.T) {
	tbl := mustLoad(t, "a,b,c\n1\n2,3,4\n", "x.csv")
	if tbl.NumRows() != 2 {
		t.Fatalf("rows = %d", tbl.NumRows())
	}
	if tbl.Rows[0][1].Valid || tbl.Rows[0][2].Valid {
		t.Fatalf("expected padded nulls: %+v", tbl.Rows[0])
	}
}

func TestLoad_NullTokensAndKinds(t *testing.T) {
	data := "i,f,b,d,s,m,e\n" +
		"1,1.5,true,2024-01-02,x,1,NA\n" +
		"2,2,False,2024-02-03,y,,null\n"
	tbl := mustLoad(t, data, "k.csv")
	want := map[string]Kind{
		"i": KindInteger, "f": KindFloat, "b": KindBoolean, "d": KindDatetime,
		"s": KindString, "m": KindFloat, "e": KindEmpty,
	}
	for _, c := range tbl.Columns {
		if c.Kind != want[c.Name] {
			t.Fatalf("kind(%s) = %s, want %s", c.Name, c.Kind, want[c.Name])
		}
	}
	if tbl.Rows[1][5].Valid {
		t.Fatalf("empty field should be null")
	}
}

func TestLoad_HeaderRules(t *testing.T) {
	tbl := mustLoad(t, "a,a,,A \n1,2,3,4\n", "h.csv")
	want := []string{"a", "a.1", "unnamed:_2", "a"}
	if got := tbl.ColumnNames(); !reflect.DeepEqual(got, want) {
		t.Fatalf("columns = %v, want %v", got, want)
	}
}

func TestLoad_Delimiters(t *testing.T) {
	cases := []struct {
		name, file, data string
	}{
		{"semicolon", "x.csv", "x;y\n1;2\n"},
		{"tsv", "x.tsv", "x\ty\n1\t2\n"},
		{"pipe", "x.csv", "x|y\n1|2\n"},
		{"quoted comma", "x.csv", "\"x;1\",y\n1,2\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tbl := mustLoad(t, tc.data, tc.file)
			if tbl.NumCols() != 2 {
				t.Fatalf("cols = %v", tbl.ColumnNames())
			}
		})
	}
}

func TestLoad_StripsBOMAndHonorsMaxRows(t *testing.T) {
	tbl, err := Load([]byte("\xef\xbb\xbfname\nbob\nann\ncid\n"), "b.csv", LoadOptions{MaxRows: 2})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tbl.ColumnNames()[0] != "name" {
		t.Fatalf("bom kept: %q", tbl.ColumnNames()[0])
	}
	if tbl.NumRows() != 2 {
		t.Fatalf("rows = %d", tbl.NumRows())
	}
}

func TestTable_CSVAndHead(t *testing.T) {
	tbl := mustLoad(t, "name,age\nbob,30\nann,\n", "p.csv")
	if got := tbl.CSV(1); got != "name,age\nbob,30\n" {
		t.Fatalf("CSV(1) = %q", got)
	}
	if got := tbl.CSV(0); got != "name,age\nbob,30\nann,\n" {
		t.Fatalf("CSV(0) = %q", got)
	}
	if tbl.Head(1).NumRows() != 1 || tbl.Head(10).NumRows() != 2 {
		t.Fatalf("head sizes wrong")
	}
	if tbl.ColumnIndex("age") != 1 || tbl.ColumnIndex("nope") != -1 {
		t.Fatalf("ColumnIndex wrong")
	}
}

func TestSummarize(t *testing.T) {
	tbl := mustLoad(t, "name,age\nbob,30\nann,\n", "p.csv")
	s := Summarize(tbl)
	if s.Rows != 2 || s.Columns != 2 {
		t.Fatalf("shape = %dx%d", s.Rows, s.Columns)
	}
	if s.Types["name"] != KindString || s.Types["age"] != KindFloat {
		t.Fatalf("types = %v", s.Types)
	}
	if s.Missing["age"] != 1 || s.Missing["name"] != 0 {
		t.Fatalf("missing = %v", s.Missing)
	}
	if s.MemoryMB <= 0 {
		t.Fatalf("memory = %v", s.MemoryMB)
	}
}
