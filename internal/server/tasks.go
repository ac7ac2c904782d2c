package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskquest/internal/taskapi"
)

// maxBodyBytes bounds the JSON bodies accepted on the task routes.
const maxBodyBytes = 1 << 20

// handleTasks hands the request to the shared dispatcher.
func (s *Server) handleTasks(c *gin.Context) {
	var body []byte
	if c.Request.Body != nil {
		var err error
		body, err = io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
		if err != nil {
			s.respondError(c, http.StatusBadRequest, fmt.Errorf("read body: %w", err))
			return
		}
	}

	resp := s.api.Serve(c.Request.Context(), taskapi.Request{
		Method: c.Request.Method,
		Path:   c.Request.URL.Path,
		Query:  c.Request.URL.Query(),
		Body:   body,
	})
	respond(c, resp)
}
