// Package server exposes sessions over HTTP.
package server

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/KaramelBytes/auto-analyst/internal/session"
)

// Options configures the HTTP surface.
type Options struct {
	Addr string
	// BodyLimit is the maximum upload size in bytes.
	BodyLimit int
	// QueryTimeout bounds a single question; 0 leaves it to the model client.
	QueryTimeout time.Duration
}

// Server wraps the fiber app and the session store it serves.
type Server struct {
	app      *fiber.App
	sessions *session.Manager
	log      *zap.Logger
	opts     Options
}

// Response is the envelope for successful replies.
type Response struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func success(msg string, data any) Response { return Response{Message: msg, Data: data} }

// New builds the app and registers routes under /api.
func New(m *session.Manager, log *zap.Logger, opts Options) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.BodyLimit <= 0 {
		opts.BodyLimit = 10 * 1024 * 1024
	}
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	s := &Server{sessions: m, log: log, opts: opts}
	s.app = fiber.New(fiber.Config{
		AppName:               "auto-analyst",
		BodyLimit:             opts.BodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	api := s.app.Group("/api")
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(success("ok", fiber.Map{"sessions": m.Count()}))
	})
	newSessionController(m, log, opts.QueryTimeout).RegisterRoutes(api)
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App { return s.app }

// Run listens until Shutdown.
func (s *Server) Run() error {
	s.log.Info("server listening", zap.String("addr", s.opts.Addr))
	return s.app.Listen(s.opts.Addr)
}

// Shutdown stops the listener and ends every session.
func (s *Server) Shutdown() error {
	err := s.app.Shutdown()
	s.sessions.Close()
	return err
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(code).JSON(fiber.Map{"message": err.Error()})
}
