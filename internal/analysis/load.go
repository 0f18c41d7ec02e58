package analysis

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
)

// LoadOptions controls CSV parsing.
type LoadOptions struct {
	// Delimiter for CSV. If 0, uses tab for .tsv names and otherwise sniffs
	// the header line among ',', ';', '\t' and '|'.
	Delimiter rune
	// MaxRows limits rows kept; 0 means unlimited.
	MaxRows int
	// Log receives one warning per abandoned encoding. Nil discards them.
	Log *zap.Logger
}

// Attempt records why one encoding was abandoned.
type Attempt struct {
	Encoding string
	Err      error
}

// LoadError is returned when no encoding produced a table.
type LoadError struct {
	Name     string
	Attempts []Attempt
}

func (e *LoadError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Encoding, a.Err))
	}
	name := e.Name
	if name == "" {
		name = "csv"
	}
	return fmt.Sprintf("failed to load %s (%s)", name, strings.Join(parts, "; "))
}

type encoding struct {
	name   string
	decode func([]byte) ([]byte, error)
}

func fromCharmap(cm *charmap.Charmap) func([]byte) ([]byte, error) {
	return func(b []byte) ([]byte, error) { return cm.NewDecoder().Bytes(b) }
}

func strictUTF8(b []byte) ([]byte, error) {
	if utf8.Valid(b) {
		return b, nil
	}
	off := 0
	for off < len(b) {
		r, size := utf8.DecodeRune(b[off:])
		if r == utf8.RuneError && size == 1 {
			break
		}
		off += size
	}
	return nil, fmt.Errorf("invalid byte 0x%02x at offset %d", b[off], off)
}

// Latin-1 and ISO-8859-1 are the same codec under two names.
var encodings = []encoding{
	{"utf-8", strictUTF8},
	{"latin-1", fromCharmap(charmap.ISO8859_1)},
	{"iso-8859-1", fromCharmap(charmap.ISO8859_1)},
	{"cp1252", fromCharmap(charmap.Windows1252)},
}

// Encodings lists the encodings Load tries, in order.
func Encodings() []string {
	out := make([]string, len(encodings))
	for i, e := range encodings {
		out[i] = e.name
	}
	return out
}

// Load parses CSV bytes into a Table, trying each supported encoding in
// order. The first encoding that decodes and parses wins. A failure with any
// encoding moves on to the next; if all fail a *LoadError is returned.
func Load(data []byte, name string, opt LoadOptions) (*Table, error) {
	log := opt.Log
	if log == nil {
		log = zap.NewNop()
	}
	lerr := &LoadError{Name: name}
	fail := func(enc string, err error) {
		lerr.Attempts = append(lerr.Attempts, Attempt{Encoding: enc, Err: err})
		log.Warn("error reading csv", zap.String("file", name), zap.String("encoding", enc), zap.Error(err))
	}
	for _, enc := range encodings {
		text, err := enc.decode(data)
		if err != nil {
			fail(enc.name, err)
			continue
		}
		t, err := parse(text, name, opt)
		if err != nil {
			fail(enc.name, err)
			continue
		}
		t.Encoding = enc.name
		return t, nil
	}
	return nil, lerr
}

var errNoColumns = errors.New("no columns to parse from file")

func parse(text []byte, name string, opt LoadOptions) (*Table, error) {
	text = bytes.TrimPrefix(text, []byte("\xef\xbb\xbf"))
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(name, text)
	}
	r := csv.NewReader(bytes.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errNoColumns
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := headerColumns(header)
	ncol := len(cols)

	t := &Table{Name: filepath.Base(name), Columns: cols}
	line := 1
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", line+1, err)
		}
		line++
		if len(rec) > ncol {
			return nil, fmt.Errorf("expected %d fields in line %d, saw %d", ncol, line, len(rec))
		}
		if opt.MaxRows > 0 && len(t.Rows) >= opt.MaxRows {
			continue
		}
		row := make([]Cell, ncol)
		for j, v := range rec {
			if isNA(v) {
				continue
			}
			row[j] = Cell{Text: v, Valid: true}
		}
		t.Rows = append(t.Rows, row)
	}
	for j := range t.Columns {
		t.Columns[j].Kind = inferKind(t.Rows, j)
	}
	return t, nil
}

// headerColumns applies dataframe-style header rules: blank names become
// "Unnamed: i", repeats get ".1", ".2" suffixes, then every name is normalized.
func headerColumns(header []string) []Column {
	seen := map[string]int{}
	cols := make([]Column, len(header))
	for i, h := range header {
		if strings.TrimSpace(h) == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := seen[h]; dup {
			for {
				n++
				cand := fmt.Sprintf("%s.%d", h, n)
				if _, taken := seen[cand]; !taken {
					seen[h] = n
					h = cand
					break
				}
			}
		}
		seen[h] = 0
		cols[i] = Column{Name: NormalizeColumnName(h)}
	}
	return cols
}

var naValues = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

func isNA(s string) bool {
	_, ok := naValues[s]
	return ok
}

func sniffDelimiter(path string, text []byte) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	first := text
	if i := bytes.IndexByte(text, '\n'); i >= 0 {
		first = text[:i]
	}
	best, bestN := ',', 0
	for _, d := range []rune{',', ';', '\t', '|'} {
		if n := countOutsideQuotes(first, byte(d)); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}

func countOutsideQuotes(line []byte, d byte) int {
	n, quoted := 0, false
	for _, c := range line {
		switch {
		case c == '"':
			quoted = !quoted
		case c == d && !quoted:
			n++
		}
	}
	return n
}

func inferKind(rows [][]Cell, j int) Kind {
	var nonNull, ints, floats, bools, times int
	nulls := false
	for _, row := range rows {
		c := row[j]
		if !c.Valid {
			nulls = true
			continue
		}
		nonNull++
		v := strings.TrimSpace(c.Text)
		if _, err := strconv.ParseInt(v, 10, 64); err == nil {
			ints++
			floats++
			continue
		}
		if _, err := strconv.ParseFloat(v, 64); err == nil {
			floats++
			continue
		}
		if isBool(v) {
			bools++
			continue
		}
		if _, ok := parseTimeMaybe(v); ok {
			times++
		}
	}
	switch {
	case nonNull == 0:
		return KindEmpty
	case ints == nonNull && !nulls:
		return KindInteger
	case floats == nonNull:
		return KindFloat
	case bools == nonNull && !nulls:
		return KindBoolean
	case times == nonNull:
		return KindDatetime
	}
	return KindString
}

func isBool(s string) bool {
	switch s {
	case "True", "False", "TRUE", "FALSE", "true", "false":
		return true
	}
	return false
}

func parseTimeMaybe(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
