// Package agent turns a natural-language instruction about a table into a
// structured answer by asking a chat model that has the table in its context.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/KaramelBytes/auto-analyst/internal/ai"
	"github.com/KaramelBytes/auto-analyst/internal/analysis"
	"github.com/KaramelBytes/auto-analyst/internal/utils"
)

// Agent answers an instruction. The result is a container map whose "output"
// key carries the answer value.
type Agent interface {
	Invoke(ctx context.Context, instruction string) (any, error)
}

// Config controls how a TableAgent talks to the model.
type Config struct {
	Model               string  `json:"model" yaml:"model"`
	Temperature         float64 `json:"temperature" yaml:"temperature"`
	MaxIterations       int     `json:"max_iterations" yaml:"max_iterations"`
	AllowDangerousCode  bool    `json:"allow_dangerous_code" yaml:"allow_dangerous_code"`
	HandleParsingErrors bool    `json:"handle_parsing_errors" yaml:"handle_parsing_errors"`
	Prefix              string  `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	// RowLimit caps the rows placed in the prompt; 0 means the token budget decides.
	RowLimit int `json:"row_limit,omitempty" yaml:"row_limit,omitempty"`
}

// DefaultConfig mirrors the settings the hosted agent is created with.
func DefaultConfig() Config {
	return Config{
		Model:               ai.DefaultModel(ai.ProviderGroq),
		Temperature:         0,
		MaxIterations:       10,
		AllowDangerousCode:  true,
		HandleParsingErrors: true,
		Prefix:              DefaultPrefix,
	}
}

var (
	// ErrDangerousCodeNotAllowed is returned by NewTableAgent when the
	// configuration does not opt in to model-driven data access.
	ErrDangerousCodeNotAllowed = errors.New("table agent requires allow_dangerous_code to be enabled")
	// ErrIterationLimit is returned when no usable reply arrives in time.
	ErrIterationLimit = errors.New("Agent stopped due to iteration limit or time limit.")
	errNilTable       = errors.New("table agent requires a table")
)

// ParseError reports a model reply that is not a valid answer envelope.
type ParseError struct {
	Output string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("Could not parse LLM output: `%s`", e.Output)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ExecutionError is a failure the model reported while answering, such as a
// reference to a column that does not exist.
type ExecutionError struct {
	Message string
}

func (e *ExecutionError) Error() string { return e.Message }

// TableAgent answers questions about a single table.
type TableAgent struct {
	rt     ai.Runtime
	table  *analysis.Table
	cfg    Config
	log    *zap.Logger
	system string
}

// NewTableAgent binds rt to t. A nil logger disables logging.
func NewTableAgent(rt ai.Runtime, t *analysis.Table, cfg Config, log *zap.Logger) (*TableAgent, error) {
	if !cfg.AllowDangerousCode {
		return nil, ErrDangerousCodeNotAllowed
	}
	if t == nil {
		return nil, errNilTable
	}
	if rt == nil {
		return nil, errors.New("table agent requires a runtime")
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultConfig().MaxIterations
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if log == nil {
		log = zap.NewNop()
	}
	a := &TableAgent{rt: rt, table: t, cfg: cfg, log: log}
	a.system = a.systemPrompt()
	return a, nil
}

// Config returns the effective configuration.
func (a *TableAgent) Config() Config { return a.cfg }

// SystemPrompt returns the prompt sent ahead of every instruction.
func (a *TableAgent) SystemPrompt() string { return a.system }

// Invoke sends instruction to the model and decodes its reply. Unparseable
// replies are retried with a correction request while HandleParsingErrors is
// set, up to MaxIterations model calls in total.
func (a *TableAgent) Invoke(ctx context.Context, instruction string) (any, error) {
	msgs := []ai.Message{
		{Role: "system", Content: a.system},
		{Role: "user", Content: instruction},
	}
	for i := 0; i < a.cfg.MaxIterations; i++ {
		resp, err := a.rt.Generate(ctx, ai.GenerateRequest{
			Model:          a.cfg.Model,
			Messages:       msgs,
			Temperature:    ai.Temp(a.cfg.Temperature),
			ResponseFormat: &ai.ResponseFormat{Type: "json_object"},
		})
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, ErrIterationLimit
			}
			return nil, fmt.Errorf("generate: %w", err)
		}
		out := resp.Content()
		val, err := a.decode(out)
		if err == nil {
			fields := []zap.Field{
				zap.Int("iteration", i+1),
				zap.String("model", a.cfg.Model),
				zap.Int("prompt_tokens", resp.Usage.PromptTokens),
				zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			}
			if cost, ok := ai.EstimateCostUSD(a.cfg.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens); ok {
				fields = append(fields, zap.Float64("cost_usd", cost))
			}
			a.log.Debug("agent answered", fields...)
			return map[string]any{"output": val}, nil
		}
		var pe *ParseError
		if !errors.As(err, &pe) {
			return nil, err
		}
		if !a.cfg.HandleParsingErrors {
			return nil, pe
		}
		a.log.Warn("unparseable agent reply", zap.Int("iteration", i+1), zap.Error(pe.Err))
		msgs = append(msgs,
			ai.Message{Role: "assistant", Content: out},
			ai.Message{Role: "user", Content: correction(pe.Err)},
		)
	}
	return nil, ErrIterationLimit
}

func (a *TableAgent) decode(out string) (any, error) {
	env, err := parseEnvelope(out)
	if err != nil {
		return nil, &ParseError{Output: out, Err: err}
	}
	if env.Type == kindError {
		msg := strings.TrimSpace(fmt.Sprint(env.Value))
		if env.Value == nil || msg == "" {
			msg = "the model reported an error without a message"
		}
		return nil, &ExecutionError{Message: msg}
	}
	v, err := env.answer(a.table)
	if err != nil {
		return nil, &ParseError{Output: out, Err: err}
	}
	return v, nil
}

func correction(err error) string {
	return "Your previous reply could not be used (" + err.Error() + "). " +
		"Reply again with only the JSON object described in the instructions."
}

// Table rows may fill up to 1/promptShare of the model context window and
// the column report up to 1/reportShare.
const (
	promptShare = 2
	reportShare = 4
)

func (a *TableAgent) systemPrompt() string {
	window := ai.ContextTokens(a.cfg.Model)
	report := analysis.Describe(a.table, analysis.DefaultReportOptions()).Markdown()
	report = utils.TruncateToTokenLimit(report, window/reportShare)

	var b strings.Builder
	b.WriteString(a.cfg.Prefix)
	b.WriteString("\n\n")
	b.WriteString(responseContract)
	b.WriteString("\n\n")
	b.WriteString(report)

	budget := window/promptShare - utils.CountTokens(b.String())
	rows := a.table.Strings()
	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = strings.Join(r, ",")
	}
	n := utils.FitLines(lines, budget)
	if a.cfg.RowLimit > 0 && n > a.cfg.RowLimit {
		n = a.cfg.RowLimit
	}

	data := a.table.Head(n).CSV(0)
	b.WriteString("\n[DATA]\n")
	fmt.Fprintf(&b, "Showing %d of %d rows as CSV.\n", n, len(rows))
	b.WriteString(data)

	a.log.Debug("agent prompt built",
		zap.Int("rows", n),
		zap.Any("tokens", utils.TokenBreakdown(map[string]string{
			"instructions": a.cfg.Prefix + responseContract,
			"report":       report,
			"data":         data,
		})))
	return b.String()
}
