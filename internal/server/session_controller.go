package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/KaramelBytes/auto-analyst/internal/analysis"
	"github.com/KaramelBytes/auto-analyst/internal/session"
	"github.com/KaramelBytes/auto-analyst/internal/tracker"
)

var csvMIMETypes = map[string]bool{
	"text/csv":                 true,
	"application/csv":          true,
	"text/x-csv":               true,
	"application/vnd.ms-excel": true,
}

type sessionController struct {
	sessions *session.Manager
	log      *zap.Logger
	timeout  time.Duration
}

func newSessionController(m *session.Manager, log *zap.Logger, timeout time.Duration) *sessionController {
	return &sessionController{sessions: m, log: log, timeout: timeout}
}

func (sc *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/sessions")
	h.Post("", sc.Create)
	h.Put("/:id/file", sc.Upload)
	h.Post("/:id/query", sc.Query)
	h.Get("/:id/stats", sc.Stats)
	h.Get("/:id/history", sc.History)
	h.Get("/:id/failures", sc.Failures)
	h.Get("/:id/export", sc.Export)
	h.Delete("/:id/history", sc.ClearHistory)
	h.Delete("/:id", sc.Delete)
}

type loadResponse struct {
	ID      string            `json:"id"`
	Ready   bool              `json:"ready"`
	Summary analysis.Summary  `json:"summary"`
	Preview [][]string        `json:"preview"`
	Warning string            `json:"warning,omitempty"`
	Columns []analysis.Column `json:"schema"`
}

type queryRequest struct {
	Question string `json:"question"`
}

// Create starts a session from an uploaded CSV.
func (sc *sessionController) Create(ctx *fiber.Ctx) error {
	data, name, err := readUpload(ctx)
	if err != nil {
		return err
	}
	s := sc.sessions.Create()
	res, err := load(s, data, name)
	if err != nil {
		sc.sessions.Delete(s.ID)
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(success("Session created", res))
}

// Upload replaces the table of an existing session.
func (sc *sessionController) Upload(ctx *fiber.Ctx) error {
	s, err := sc.session(ctx)
	if err != nil {
		return err
	}
	data, name, err := readUpload(ctx)
	if err != nil {
		return err
	}
	res, err := load(s, data, name)
	if err != nil {
		return err
	}
	return ctx.JSON(success("Table replaced", res))
}

func (sc *sessionController) Query(ctx *fiber.Ctx) error {
	s, err := sc.session(ctx)
	if err != nil {
		return err
	}
	var req queryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Question) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "question is required")
	}
	qctx := ctx.UserContext()
	if sc.timeout > 0 {
		var cancel context.CancelFunc
		qctx, cancel = context.WithTimeout(qctx, sc.timeout)
		defer cancel()
	}
	res := s.Ask(qctx, req.Question)
	msg := "Analysis complete"
	if !res.Success {
		msg = res.Error
	}
	return ctx.JSON(success(msg, res))
}

func (sc *sessionController) Stats(ctx *fiber.Ctx) error {
	s, err := sc.session(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(success("Query statistics", s.Stats()))
}

func (sc *sessionController) History(ctx *fiber.Ctx) error {
	s, err := sc.session(ctx)
	if err != nil {
		return err
	}
	n := 5
	if q := ctx.Query("n"); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil || v < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "n must be a non-negative integer")
		}
		n = v
	}
	return ctx.JSON(success("Recent queries", nonNil(s.History(n))))
}

func (sc *sessionController) Failures(ctx *fiber.Ctx) error {
	s, err := sc.session(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(success("Failed queries", nonNil(s.Failures())))
}

func (sc *sessionController) Export(ctx *fiber.Ctx) error {
	s, err := sc.session(ctx)
	if err != nil {
		return err
	}
	f := tracker.Format(ctx.Query("format", string(tracker.FormatJSON)))
	var buf bytes.Buffer
	if err := s.Export(&buf, f); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if f == tracker.FormatYAML {
		ctx.Set(fiber.HeaderContentType, "application/yaml")
	} else {
		ctx.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	return ctx.Send(buf.Bytes())
}

func (sc *sessionController) ClearHistory(ctx *fiber.Ctx) error {
	s, err := sc.session(ctx)
	if err != nil {
		return err
	}
	s.ClearHistory()
	return ctx.JSON(success("History cleared", nil))
}

func (sc *sessionController) Delete(ctx *fiber.Ctx) error {
	if !sc.sessions.Delete(ctx.Params("id")) {
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	return ctx.JSON(success("Session ended", nil))
}

func (sc *sessionController) session(ctx *fiber.Ctx) (*session.Session, error) {
	s, ok := sc.sessions.Get(ctx.Params("id"))
	if !ok {
		return nil, fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	return s, nil
}

func readUpload(ctx *fiber.Ctx) ([]byte, string, error) {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return nil, "", fiber.NewError(fiber.StatusBadRequest, "file is required")
	}
	if !isCSV(fh.Filename, fh.Header.Get(fiber.HeaderContentType)) {
		return nil, "", fiber.NewError(fiber.StatusBadRequest, "only CSV files are accepted")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", err
	}
	return data, fh.Filename, nil
}

func isCSV(name, contentType string) bool {
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && csvMIMETypes[mt]
}

func load(s *session.Session, data []byte, name string) (*loadResponse, error) {
	sum, err := s.Load(data, name)
	var le *analysis.LoadError
	var ve *analysis.ValidationError
	switch {
	case errors.As(err, &le):
		return nil, fiber.NewError(fiber.StatusUnprocessableEntity, "Failed to load CSV. Check file encoding.")
	case errors.As(err, &ve):
		return nil, fiber.NewError(fiber.StatusUnprocessableEntity, "Invalid dataframe: "+ve.Reason)
	case errors.Is(err, session.ErrClosed):
		return nil, fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	t := s.Table()
	res := &loadResponse{
		ID:      s.ID,
		Ready:   s.Ready(),
		Summary: sum,
		Preview: t.Head(5).Strings(),
		Columns: t.Columns,
	}
	if err != nil {
		res.Warning = err.Error()
	}
	return res, nil
}

func nonNil(e []tracker.Entry) []tracker.Entry {
	if e == nil {
		return []tracker.Entry{}
	}
	return e
}
