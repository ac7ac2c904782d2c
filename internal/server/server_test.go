package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskquest/internal/logger"
	"taskquest/internal/models"
	"taskquest/internal/storage"
	"taskquest/internal/storage/memory"
	"taskquest/internal/taskapi"
)

type listBody struct {
	Tasks []models.Task `json:"tasks"`
	XP    int           `json:"xp"`
	Level int           `json:"level"`
}

type taskBody struct {
	Task  *models.Task `json:"task"`
	XP    int          `json:"xp"`
	Level int          `json:"level"`
}

func newTestServer(store storage.Store) *Server {
	gin.SetMode(gin.TestMode)
	l := logger.Discard()
	api := taskapi.NewHandler(taskapi.NewService(store, l), l)
	return New(api, l)
}

func do(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func assertCORS(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, taskapi.AllowMethods, w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, taskapi.AllowHeaders, w.Header().Get("Access-Control-Allow-Headers"))
}

func TestTaskLifecycle(t *testing.T) {
	s := newTestServer(memory.New())

	w := do(t, s, http.MethodPost, "/api/tasks", map[string]any{"title": "Read book"})
	require.Equal(t, http.StatusCreated, w.Code)
	assertCORS(t, w)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	var created taskBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotNil(t, created.Task)
	assert.Equal(t, "Read book", created.Task.Title)
	assert.Equal(t, 1, created.Level)

	w = do(t, s, http.MethodPut, "/api/tasks", map[string]any{"id": created.Task.ID, "completed": true})
	require.Equal(t, http.StatusOK, w.Code)
	var updated taskBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	require.NotNil(t, updated.Task)
	assert.True(t, updated.Task.Completed)
	assert.Equal(t, "Read book", updated.Task.Title)
	assert.Equal(t, 10, updated.XP)

	w = do(t, s, http.MethodGet, "/api/tasks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list listBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Tasks, 1)
	assert.Equal(t, 10, list.XP)

	w = do(t, s, http.MethodDelete, "/api/tasks?id="+string(created.Task.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success": true, "xp": 0, "level": 1}`, w.Body.String())
}

func TestEmptyListEncodesArray(t *testing.T) {
	s := newTestServer(memory.New())
	w := do(t, s, http.MethodGet, "/api/tasks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"tasks": [], "xp": 0, "level": 1}`, w.Body.String())
}

func TestOptionsWithoutStore(t *testing.T) {
	s := newTestServer(nil)

	for _, target := range []string{"/api/tasks", "/api/tasks/", "/"} {
		w := do(t, s, http.MethodOptions, target, nil)
		assert.Equal(t, http.StatusOK, w.Code, target)
		assert.Empty(t, w.Body.String())
		assertCORS(t, w)
	}
}

func TestNotConfigured(t *testing.T) {
	s := newTestServer(nil)

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete} {
		w := do(t, s, method, "/api/tasks", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code, method)
		var body taskapi.ErrorBody
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.NotEmpty(t, body.Error)
	}

	w := do(t, s, http.MethodGet, "/api/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok", "store": "not configured"}`, w.Body.String())
	assertCORS(t, w)
}

func TestInfoAndUnknownRoutes(t *testing.T) {
	s := newTestServer(memory.New())

	for _, target := range []string{"/", "/api"} {
		w := do(t, s, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"message": "Task Manager API", "status": "running"}`, w.Body.String())
	}

	w := do(t, s, http.MethodGet, "/api/projects", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assertCORS(t, w)

	w = do(t, s, http.MethodPatch, "/api/tasks", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRequestIDPropagates(t *testing.T) {
	s := newTestServer(memory.New())

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

func TestMalformedJSON(t *testing.T) {
	s := newTestServer(memory.New())

	req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assertCORS(t, w)
}
