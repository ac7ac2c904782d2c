// Package serverless adapts the task API to a bare func(http.ResponseWriter,
// *http.Request) as expected by function-as-a-service runtimes.
package serverless

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"taskquest/internal/logger"
	"taskquest/internal/taskapi"
)

const (
	requestIDHeader = "X-Request-ID"
	maxBodyBytes    = 1 << 20
)

// Handler is an http.Handler with no router of its own: all routing happens in the
// dispatcher.
type Handler struct {
	api    *taskapi.Handler
	logger *slog.Logger
}

func New(api *taskapi.Handler, l *slog.Logger) *Handler {
	if l == nil {
		l = slog.Default()
	}
	return &Handler{api: api, logger: l}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(requestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	ctx := logger.ContextWithRequestID(r.Context(), id)
	w.Header().Set(requestIDHeader, id)

	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			h.write(w, taskapi.Response{
				Status: http.StatusBadRequest,
				Header: taskapi.CORSHeaders(),
				Body:   taskapi.ErrorBody{Error: "read body: " + err.Error()},
			})
			return
		}
	}

	h.write(w, h.api.Serve(ctx, taskapi.Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Body:   body,
	}))
}

func (h *Handler) write(w http.ResponseWriter, resp taskapi.Response) {
	header := w.Header()
	for key, values := range resp.Header {
		header[key] = append([]string(nil), values...)
	}
	if resp.Body == nil {
		w.WriteHeader(resp.Status)
		return
	}

	data, err := json.Marshal(resp.Body)
	if err != nil {
		h.logger.Error("encode response", slog.String("error", err.Error()))
		header.Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to encode response"}`))
		return
	}
	header.Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(resp.Status)
	_, _ = w.Write(data)
}
