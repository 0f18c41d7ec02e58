// Package analyst runs a question through normalization and the table agent,
// then classifies the answer or turns the failure into a readable message.
package analyst

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/KaramelBytes/auto-analyst/internal/agent"
	"github.com/KaramelBytes/auto-analyst/internal/query"
)

// ErrAgentNotInitialized is reported when a question arrives before a table
// and agent exist.
var ErrAgentNotInitialized = errors.New("Agent not initialized. Please upload a CSV first.")

// Result is the outcome of one question. Answer is set only on success.
type Result struct {
	Success    bool         `json:"success" yaml:"success"`
	Question   string       `json:"question" yaml:"question"`
	Sent       string       `json:"sent,omitempty" yaml:"sent,omitempty"`
	Normalized bool         `json:"normalized" yaml:"normalized"`
	Answer     *QueryResult `json:"result" yaml:"result"`
	Error      string       `json:"error,omitempty" yaml:"error,omitempty"`

	// Err is the unsimplified failure.
	Err error `json:"-" yaml:"-"`
}

// Analyst answers questions about one table.
type Analyst struct {
	agent       agent.Agent
	columns     []string
	acceptRatio float64
	log         *zap.Logger
}

// New returns an Analyst. A nil agent is allowed; every Query then fails with
// ErrAgentNotInitialized. A non-positive acceptRatio selects the default.
func New(a agent.Agent, columns []string, acceptRatio float64, log *zap.Logger) *Analyst {
	if acceptRatio <= 0 {
		acceptRatio = query.DefaultAcceptRatio
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Analyst{agent: a, columns: columns, acceptRatio: acceptRatio, log: log}
}

// Ready reports whether an agent is attached.
func (a *Analyst) Ready() bool { return a != nil && a.agent != nil }

// Query answers question. Failures, including agent panics, are returned in
// the Result and never as a Go error.
func (a *Analyst) Query(ctx context.Context, question string) (res Result) {
	res.Question = question
	if !a.Ready() {
		res.Err = ErrAgentNotInitialized
		res.Error = ErrAgentNotInitialized.Error()
		return res
	}

	sent, _, accepted := PrepareQuestion(question, a.acceptRatio)
	res.Sent, res.Normalized = sent, accepted

	raw, err := a.invoke(ctx, sent)
	if err != nil {
		a.log.Info("query failed", zap.String("sent", sent), zap.Error(err))
		res.Err = err
		res.Error = SimplifyError(err.Error(), a.columns)
		return res
	}
	qr := Classify(Unwrap(raw), a.columns...)
	a.log.Debug("query answered", zap.String("sent", sent), zap.String("kind", string(qr.Kind)))
	res.Success = true
	res.Answer = &qr
	return res
}

func (a *Analyst) invoke(ctx context.Context, instruction string) (raw any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent panic: %v", r)
		}
	}()
	return a.agent.Invoke(ctx, instruction)
}

// PrepareQuestion returns the text sent to the agent. The normalized form is
// used only when query.Accept approves it.
func PrepareQuestion(question string, ratio float64) (sent, normalized string, accepted bool) {
	normalized = query.Normalize(question)
	text := question
	if query.Accept(question, normalized, ratio) {
		text, accepted = normalized, true
	}
	return WithVerbCue(text), normalized, accepted
}

var verbCues = []string{"show", "display", "get", "find", "sort", "filter", "calculate"}

// WithVerbCue prefixes "Show me: " unless q already contains an action word.
// Matching is by substring, so "budget" counts as containing "get".
func WithVerbCue(q string) string {
	lower := strings.ToLower(q)
	for _, w := range verbCues {
		if strings.Contains(lower, w) {
			return q
		}
	}
	return "Show me: " + q
}

const maxErrorRunes = 200

// SimplifyError maps agent error text to a message a user can act on.
func SimplifyError(msg string, columns []string) string {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "Could not parse LLM output"):
		return "The AI is having trouble understanding this query. Try using simpler phrasing like 'show first 5 rows' or 'calculate average salary'."
	case strings.Contains(lower, "column") && strings.Contains(lower, "not found"):
		return "Column not found. Available columns are: " + strings.Join(columns, ", ")
	case strings.Contains(lower, "parsing"):
		return "Query format issue. Try rephrasing more simply, like 'show rows where salary > 80000'."
	}
	if r := []rune(msg); len(r) > maxErrorRunes {
		return string(r[:maxErrorRunes]) + "... (Try a simpler query)"
	}
	return msg
}
