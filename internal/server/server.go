package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskquest/internal/taskapi"
)

// Server is the standalone Gin front end of the task API.
type Server struct {
	engine *gin.Engine
	api    *taskapi.Handler
	logger *slog.Logger
}

// New constructs the HTTP server with routes and middleware configured.
func New(api *taskapi.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.RedirectTrailingSlash = false
	router.Use(requestID())
	router.Use(cors())
	router.Use(accessLog(logger))
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered", slog.Any("panic", recovered), slog.String("path", c.Request.URL.Path))
		c.AbortWithStatusJSON(http.StatusInternalServerError, taskapi.ErrorBody{Error: "internal server error"})
	}))

	srv := &Server{
		engine: router,
		api:    api,
		logger: logger,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API handlers together.
func (s *Server) registerRoutes() {
	s.engine.GET(taskapi.PathRoot, s.handleTasks)
	s.engine.OPTIONS(taskapi.PathRoot, s.handleTasks)

	api := s.engine.Group(taskapi.PathAPI)
	{
		api.GET("", s.handleTasks)
		api.OPTIONS("", s.handleTasks)
		api.GET("/healthz", s.handleHealth)
		api.Any("/tasks", s.handleTasks)
	}

	// Unknown paths still get the JSON 404 and CORS headers from the dispatcher.
	s.engine.NoRoute(s.handleTasks)
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	store := "configured"
	if !s.api.Configured() {
		store = "not configured"
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "store": store})
}

// respondError logs the error and returns a JSON payload.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	s.logger.Error("request failed", slog.String("path", c.Request.URL.Path), slog.String("error", err.Error()))
	c.JSON(status, taskapi.ErrorBody{Error: err.Error()})
}

// respond copies a dispatcher response onto the Gin writer.
func respond(c *gin.Context, resp taskapi.Response) {
	header := c.Writer.Header()
	for key, values := range resp.Header {
		header.Del(key)
		for _, v := range values {
			header.Add(key, v)
		}
	}
	if resp.Body == nil {
		c.Status(resp.Status)
		return
	}
	c.JSON(resp.Status, resp.Body)
}
