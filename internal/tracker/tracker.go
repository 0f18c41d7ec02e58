// Package tracker keeps the per-session log of asked questions.
package tracker

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Entry is one recorded query attempt. Entries are never modified after Log.
type Entry struct {
	ID        string    `json:"id" yaml:"id"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Query     string    `json:"query" yaml:"query"`
	Success   bool      `json:"success" yaml:"success"`
	Error     *string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// Tracker is an append-only query log owned by a single session.
// It is not safe for concurrent use.
type Tracker struct {
	entries []Entry
	now     func() time.Time
}

// New returns an empty Tracker.
func New() *Tracker { return &Tracker{now: time.Now} }

// WithClock overrides the timestamp source.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// Log appends an entry. An empty errMsg records no error.
func (t *Tracker) Log(query string, success bool, errMsg string) Entry {
	e := Entry{
		ID:        uuid.NewString(),
		Timestamp: t.now(),
		Query:     query,
		Success:   success,
	}
	if errMsg != "" {
		msg := errMsg
		e.Error = &msg
	}
	t.entries = append(t.entries, e)
	return e
}

// SuccessRate returns the percentage of successful entries, 0 when empty.
func (t *Tracker) SuccessRate() float64 {
	if len(t.entries) == 0 {
		return 0
	}
	ok := 0
	for _, e := range t.entries {
		if e.Success {
			ok++
		}
	}
	return 100 * float64(ok) / float64(len(t.entries))
}

// TotalCount returns the number of logged entries.
func (t *Tracker) TotalCount() int { return len(t.entries) }

// Recent returns the last n entries, oldest first.
func (t *Tracker) Recent(n int) []Entry {
	if n <= 0 {
		return nil
	}
	if n > len(t.entries) {
		n = len(t.entries)
	}
	return clone(t.entries[len(t.entries)-n:])
}

// All returns every entry in insertion order.
func (t *Tracker) All() []Entry { return clone(t.entries) }

// Failures returns all unsuccessful entries in insertion order.
func (t *Tracker) Failures() []Entry {
	var out []Entry
	for _, e := range t.entries {
		if !e.Success {
			out = append(out, e)
		}
	}
	return out
}

// Clear discards the history.
func (t *Tracker) Clear() { t.entries = nil }

// Format selects an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Export writes the full history to w.
func (t *Tracker) Export(w io.Writer, f Format) error {
	entries := t.All()
	if entries == nil {
		entries = []Entry{}
	}
	switch f {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("encode history: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("encode history: %w", err)
		}
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
	return nil
}

func clone(in []Entry) []Entry {
	out := make([]Entry, len(in))
	copy(out, in)
	return out
}
