package taskapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"taskquest/internal/logger"
	"taskquest/internal/models"
)

// Routes served by the handler.
const (
	PathRoot  = "/"
	PathAPI   = "/api"
	PathTasks = "/api/tasks"
)

// CORS policy applied to every response.
const (
	AllowOrigin  = "*"
	AllowMethods = "GET, POST, PUT, DELETE, OPTIONS"
	AllowHeaders = "Content-Type, Authorization"
)

const (
	infoMessage = "Task Manager API"
	infoStatus  = "running"
)

// Request is a hosting-neutral view of an inbound HTTP request.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
}

// Response is what the adapters write back. A nil Body means an empty body; any other
// value is encoded as JSON.
type Response struct {
	Status int
	Header http.Header
	Body   any
}

// ErrorBody is the JSON envelope of every failed request.
type ErrorBody struct {
	Error string `json:"error"`
}

// InfoBody is returned by the root endpoints.
type InfoBody struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

type createRequest struct {
	Title *string `json:"title"`
}

type updateRequest struct {
	ID        models.TaskID `json:"id"`
	Title     *string       `json:"title"`
	Completed *bool         `json:"completed"`
}

type deleteRequest struct {
	ID models.TaskID `json:"id"`
}

var errBadBody = errors.New("invalid JSON body")

// CORSHeaders returns a fresh copy of the CORS headers.
func CORSHeaders() http.Header {
	h := http.Header{}
	h.Set("Access-Control-Allow-Origin", AllowOrigin)
	h.Set("Access-Control-Allow-Methods", AllowMethods)
	h.Set("Access-Control-Allow-Headers", AllowHeaders)
	return h
}

// Handler maps requests onto Service calls. It holds no per-request state.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

func NewHandler(svc *Service, l *slog.Logger) *Handler {
	if l == nil {
		l = slog.Default()
	}
	return &Handler{svc: svc, logger: l}
}

// Configured reports whether task operations can reach a store.
func (h *Handler) Configured() bool {
	return h.svc.Configured()
}

// Serve routes req and returns the response to write.
func (h *Handler) Serve(ctx context.Context, req Request) Response {
	method := strings.ToUpper(req.Method)

	switch cleanPath(req.Path) {
	case PathTasks:
		return h.serveTasks(ctx, method, req)
	case PathRoot, PathAPI:
		return h.serveInfo(ctx, method)
	default:
		return h.fail(ctx, http.StatusNotFound, errors.New("endpoint not found"))
	}
}

func cleanPath(p string) string {
	if p == "" {
		return PathRoot
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			return PathRoot
		}
	}
	return p
}

func (h *Handler) serveInfo(ctx context.Context, method string) Response {
	switch method {
	case http.MethodGet, http.MethodHead:
		return respond(http.StatusOK, InfoBody{Message: infoMessage, Status: infoStatus})
	case http.MethodOptions:
		return respond(http.StatusOK, nil)
	default:
		return h.notAllowed(ctx, "GET, HEAD, OPTIONS")
	}
}

func (h *Handler) serveTasks(ctx context.Context, method string, req Request) Response {
	switch method {
	case http.MethodOptions:
		return respond(http.StatusOK, nil)
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return h.notAllowed(ctx, AllowMethods)
	}

	if !h.svc.Configured() {
		return h.fail(ctx, http.StatusInternalServerError, h.svc.Err())
	}

	var (
		status  = http.StatusOK
		payload any
		err     error
	)
	switch method {
	case http.MethodGet:
		payload, err = h.svc.List(ctx)

	case http.MethodPost:
		var body createRequest
		if err = decodeBody(req.Body, &body); err == nil {
			title := ""
			if body.Title != nil {
				title = *body.Title
			}
			payload, err = h.svc.Create(ctx, title)
			status = http.StatusCreated
		}

	case http.MethodPut:
		var body updateRequest
		if err = decodeBody(req.Body, &body); err == nil {
			payload, err = h.svc.Update(ctx, body.ID, models.TaskPatch{
				Title:     body.Title,
				Completed: body.Completed,
			})
		}

	case http.MethodDelete:
		id := models.TaskID(req.Query.Get("id"))
		if id == "" {
			var body deleteRequest
			if err = decodeBody(req.Body, &body); err == nil {
				id = body.ID
			}
		}
		if err == nil {
			payload, err = h.svc.Delete(ctx, id)
		}
	}

	if errors.Is(err, errBadBody) {
		return h.fail(ctx, http.StatusBadRequest, err)
	}
	if err != nil {
		return h.fail(ctx, http.StatusInternalServerError, err)
	}
	return respond(status, payload)
}

// decodeBody fills v from a JSON body. An empty body leaves v untouched.
func decodeBody(data []byte, v any) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return nil
}

func respond(status int, body any) Response {
	return Response{Status: status, Header: CORSHeaders(), Body: body}
}

func (h *Handler) notAllowed(ctx context.Context, allow string) Response {
	resp := h.fail(ctx, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	resp.Header.Set("Allow", allow)
	return resp
}

// fail logs err and wraps it in the error envelope.
func (h *Handler) fail(ctx context.Context, status int, err error) Response {
	l := logger.WithRequest(ctx, h.logger)
	if status >= http.StatusInternalServerError {
		l.ErrorContext(ctx, "request failed", slog.Int("status", status), slog.String("error", err.Error()))
	} else {
		l.WarnContext(ctx, "request rejected", slog.Int("status", status), slog.String("error", err.Error()))
	}
	return respond(status, ErrorBody{Error: err.Error()})
}
