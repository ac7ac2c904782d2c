package fiberserver

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	"taskquest/internal/logger"
	"taskquest/internal/taskapi"
)

const requestIDHeader = "X-Request-ID"

// Server is the Fiber front end of the task API. Fiber's CORS middleware covers
// non-OPTIONS requests; OPTIONS, preflights included, is answered by the dispatcher.
type Server struct {
	app    *fiber.App
	api    *taskapi.Handler
	logger *slog.Logger
}

func New(api *taskapi.Handler, l *slog.Logger) *Server {
	if l == nil {
		l = slog.Default()
	}

	s := &Server{api: api, logger: l}
	s.app = fiber.New(fiber.Config{
		AppName:               "taskquest",
		DisableStartupMessage: true,
		BodyLimit:             1 << 20,
		ErrorHandler:          s.handleError,
	})

	s.app.Use(recover.New())
	s.app.Use(cors.New(cors.Config{
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		AllowOrigins: taskapi.AllowOrigin,
		AllowMethods: strings.ReplaceAll(taskapi.AllowMethods, " ", ""),
		AllowHeaders: strings.ReplaceAll(taskapi.AllowHeaders, " ", ""),
	}))
	s.app.Use(s.requestID)
	s.app.Use(s.accessLog)
	s.app.Use(s.dispatch)
	return s
}

// App exposes the underlying Fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks serving addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) requestID(c *fiber.Ctx) error {
	id := c.Get(requestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Set(requestIDHeader, id)
	c.SetUserContext(logger.ContextWithRequestID(c.UserContext(), id))
	return c.Next()
}

func (s *Server) accessLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}
	logger.WithRequest(c.UserContext(), s.logger).LogAttrs(c.UserContext(), level, "request completed",
		slog.String("method", c.Method()),
		slog.String("path", c.Path()),
		slog.Int("status", status),
		slog.Duration("latency", time.Since(start)),
		slog.Int("bytes", len(c.Response().Body())),
	)
	return err
}

// dispatch translates the Fiber context for the shared handler. It is the last
// middleware, so every path reaches it.
func (s *Server) dispatch(c *fiber.Ctx) error {
	query, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid query string")
	}

	resp := s.api.Serve(c.UserContext(), taskapi.Request{
		Method: c.Method(),
		Path:   c.Path(),
		Query:  query,
		Body:   c.Body(),
	})

	for key, values := range resp.Header {
		for i, v := range values {
			if i == 0 {
				c.Set(key, v)
			} else {
				c.Append(key, v)
			}
		}
	}
	if resp.Body == nil {
		// SendStatus would fill the empty body with the status text.
		c.Status(resp.Status)
		return nil
	}
	return c.Status(resp.Status).JSON(resp.Body)
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}
	s.logger.Error("request failed", slog.String("path", c.Path()), slog.String("error", err.Error()))
	return c.Status(status).JSON(taskapi.ErrorBody{Error: err.Error()})
}
