package analysis

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ReportOptions controls what Describe includes.
type ReportOptions struct {
	// SampleRows determines how many head rows to include in the report.
	SampleRows int
	// TopValues caps the categorical top-value list per column.
	TopValues int
	// Outlier detection via robust Z-score (MAD). If Outliers is true, counts |z|>threshold.
	Outliers         bool
	OutlierThreshold float64
}

// DefaultReportOptions returns reasonable defaults for prompt context.
func DefaultReportOptions() ReportOptions {
	return ReportOptions{SampleRows: 5, TopValues: 8, Outliers: true, OutlierThreshold: 3.5}
}

// Report is a markdown-friendly description of a loaded table.
type Report struct {
	Name     string
	Encoding string
	Rows     int
	Cols     []ColumnSummary
	Samples  [][]string
	Warnings []string
}

// ColumnSummary captures kind and statistics per column.
type ColumnSummary struct {
	Name    string
	Kind    Kind
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Min  float64
	Max  float64
	Mean float64
	Std  float64
	// Outliers (robust Z via MAD)
	OutliersCount    int
	OutliersMaxAbsZ  float64
	OutlierThreshold float64
	// Categorical top values
	TopValues []CategoryCount
}

type CategoryCount struct {
	Value string
	Count int
}

// Describe computes per-column statistics for t.
func Describe(t *Table, opt ReportOptions) *Report {
	if t == nil {
		return &Report{}
	}
	sampleRows := opt.SampleRows
	if sampleRows <= 0 {
		sampleRows = 5
	}
	topN := opt.TopValues
	if topN <= 0 {
		topN = 8
	}
	rep := &Report{Name: t.Name, Encoding: t.Encoding, Rows: len(t.Rows)}
	rep.Samples = t.Head(sampleRows).Strings()

	for j, col := range t.Columns {
		s := ColumnSummary{Name: col.Name, Kind: col.Kind}
		// Welford
		var n int
		var mean, m2 float64
		lo, hi := math.Inf(1), math.Inf(-1)
		var vals []float64
		cats := map[string]int{}
		for _, row := range t.Rows {
			c := row[j]
			if !c.Valid {
				s.Missing++
				continue
			}
			s.NonNull++
			if col.Kind.Numeric() {
				x, err := strconv.ParseFloat(strings.TrimSpace(c.Text), 64)
				if err != nil {
					continue
				}
				n++
				lo = math.Min(lo, x)
				hi = math.Max(hi, x)
				delta := x - mean
				mean += delta / float64(n)
				m2 += delta * (x - mean)
				vals = append(vals, x)
				continue
			}
			if len(cats) <= 10000 && len(c.Text) <= 64 {
				cats[c.Text]++
			}
		}
		if n > 0 {
			s.Min, s.Max, s.Mean = lo, hi, mean
			if n > 1 {
				s.Std = math.Sqrt(m2 / float64(n-1))
			}
			if opt.Outliers && len(vals) >= 8 {
				s.OutlierThreshold = opt.OutlierThreshold
				if s.OutlierThreshold <= 0 {
					s.OutlierThreshold = 3.5
				}
				s.OutliersCount, s.OutliersMaxAbsZ = outliers(vals, s.OutlierThreshold)
			}
		}
		if len(cats) > 0 {
			s.Unique = len(cats)
			s.TopValues = topValues(cats, topN)
		}
		rep.Cols = append(rep.Cols, s)
	}
	rep.Warnings = notes(rep)
	return rep
}

// notes flags what the model should not take at face value.
func notes(r *Report) []string {
	var out []string
	if r.Encoding != "" && r.Encoding != "utf-8" {
		out = append(out, fmt.Sprintf("file was decoded as %s; accented text may not match the source exactly", r.Encoding))
	}
	for _, c := range r.Cols {
		switch {
		case r.Rows > 0 && c.NonNull == 0:
			out = append(out, fmt.Sprintf("column %s has no values", safeName(c.Name)))
		case c.Missing*2 > r.Rows:
			out = append(out, fmt.Sprintf("column %s is mostly missing (%d of %d rows)", safeName(c.Name), c.Missing, r.Rows))
		}
	}
	return out
}

func topValues(cats map[string]int, n int) []CategoryCount {
	tops := make([]CategoryCount, 0, len(cats))
	for k, v := range cats {
		tops = append(tops, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > n {
		tops = tops[:n]
	}
	return tops
}

func outliers(vals []float64, thr float64) (int, float64) {
	median, mad := medianMAD(vals)
	if mad == 0 {
		return 0, 0
	}
	var cnt int
	maxAbsZ := 0.0
	for _, v := range vals {
		az := math.Abs(0.6745 * (v - median) / mad)
		if az > thr {
			cnt++
		}
		if az > maxAbsZ {
			maxAbsZ = az
		}
	}
	return cnt, maxAbsZ
}

// Markdown renders a compact report suitable for prompts.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(r.Cols)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", safeName(c.Name), c.Kind, c.NonNull, missPct))
		switch {
		case c.Kind.Numeric() && c.NonNull > 0:
			b.WriteString(fmt.Sprintf("; min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std))
			if c.OutlierThreshold > 0 && c.OutliersCount > 0 {
				b.WriteString(fmt.Sprintf("; outliers: %d above |z|>%.1f (max |z|≈%.2f)", c.OutliersCount, c.OutlierThreshold, c.OutliersMaxAbsZ))
			}
		case len(c.TopValues) > 0:
			b.WriteString("; top: ")
			for i, kv := range c.TopValues {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
			}
			if c.Unique > len(c.TopValues) {
				b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
			}
		}
		b.WriteString("\n")
	}
	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
		b.WriteString("| ")
		for i, c := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c.Name))
		}
		b.WriteString(" |\n| ")
		for i := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for _, row := range r.Samples {
			b.WriteString("| ")
			for i := range r.Cols {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := ""
				if i < len(row) {
					val = row[i]
				}
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
