// Package session holds one user's table, agent and query history.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KaramelBytes/auto-analyst/internal/agent"
	"github.com/KaramelBytes/auto-analyst/internal/analysis"
	"github.com/KaramelBytes/auto-analyst/internal/analyst"
	"github.com/KaramelBytes/auto-analyst/internal/tracker"
)

// ErrNoCredential may be returned by an AgentFactory to leave the session
// without an agent instead of failing the load.
var ErrNoCredential = errors.New("no API credential configured")

// ErrClosed is returned by Load after Close.
var ErrClosed = errors.New("session closed")

// AgentFactory builds the agent for a freshly loaded table.
type AgentFactory func(t *analysis.Table) (agent.Agent, error)

// Options configures new sessions.
type Options struct {
	Factory     AgentFactory
	AcceptRatio float64
	Load        analysis.LoadOptions
	Log         *zap.Logger
	Now         func() time.Time
}

// Stats summarizes the query history.
type Stats struct {
	Total       int     `json:"total_queries" yaml:"total_queries"`
	SuccessRate float64 `json:"success_rate" yaml:"success_rate"`
}

// Session owns a table, the agent bound to it and the query log. Methods
// are serialized so one question runs at a time.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu      sync.Mutex
	table   *analysis.Table
	tracker *tracker.Tracker
	analyst *analyst.Analyst
	opts    Options
	log     *zap.Logger
	closed  bool
}

// New starts an empty session.
func New(opts Options) *Session {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	id := uuid.NewString()
	s := &Session{
		ID:        id,
		CreatedAt: opts.Now(),
		tracker:   tracker.New().WithClock(opts.Now),
		opts:      opts,
		log:       opts.Log.With(zap.String("session", id)),
	}
	s.analyst = analyst.New(nil, nil, opts.AcceptRatio, s.log)
	return s
}

// Load parses and validates data, replaces the table and rebuilds the agent.
// On a load or validation error the previous table is kept. When the agent
// cannot be built the table is still replaced and the session has no agent.
func (s *Session) Load(data []byte, name string) (analysis.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return analysis.Summary{}, ErrClosed
	}

	lo := s.opts.Load
	if lo.Log == nil {
		lo.Log = s.log
	}
	t, err := analysis.Load(data, name, lo)
	if err != nil {
		s.log.Warn("load failed", zap.String("file", name), zap.Error(err))
		return analysis.Summary{}, err
	}
	if err := analysis.Check(t); err != nil {
		s.log.Warn("validation failed", zap.String("file", name), zap.Error(err))
		return analysis.Summary{}, err
	}
	s.table = t
	sum := analysis.Summarize(t)
	s.log.Info("table loaded", zap.String("file", name), zap.String("encoding", t.Encoding),
		zap.Int("rows", sum.Rows), zap.Int("columns", sum.Columns))

	var a agent.Agent
	if s.opts.Factory != nil {
		a, err = s.opts.Factory(t)
		switch {
		case errors.Is(err, ErrNoCredential):
			s.log.Info("agent not initialized", zap.Error(err))
			a, err = nil, nil
		case err != nil:
			a = nil
			err = fmt.Errorf("initialize agent: %w", err)
		}
	}
	s.analyst = analyst.New(a, t.ColumnNames(), s.opts.AcceptRatio, s.log)
	return sum, err
}

// Ask answers q and logs exactly one history entry for it.
func (s *Session) Ask(ctx context.Context, q string) analyst.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := s.analyst.Query(ctx, q)
	s.tracker.Log(q, res.Success, res.Error)
	return res
}

// Ready reports whether questions can be answered.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analyst.Ready()
}

// Table returns the loaded table, or nil.
func (s *Session) Table() *analysis.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table
}

// Stats returns the total query count and success percentage.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Total: s.tracker.TotalCount(), SuccessRate: s.tracker.SuccessRate()}
}

// History returns the last n entries, oldest first.
func (s *Session) History(n int) []tracker.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Recent(n)
}

// Failures returns every failed entry.
func (s *Session) Failures() []tracker.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Failures()
}

// Export writes the full history to w.
func (s *Session) Export(w io.Writer, f tracker.Format) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Export(w, f)
}

// ClearHistory discards the query log.
func (s *Session) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracker.Clear()
}

// Close ends the session, dropping the table, agent and history.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.table = nil
	s.tracker.Clear()
	s.analyst = analyst.New(nil, nil, s.opts.AcceptRatio, s.log)
	s.log.Info("session closed")
}
