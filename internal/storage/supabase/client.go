package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"taskquest/internal/models"
)

// Client talks to the PostgREST endpoint of a Supabase project.
type Client struct {
	baseURL string
	key     string
	table   string
	http    *http.Client
}

// New returns a client for projectURL using the service role key. A nil httpClient
// means http.DefaultClient.
func New(projectURL, key, table string, httpClient *http.Client) (*Client, error) {
	if projectURL == "" || key == "" {
		return nil, fmt.Errorf("supabase url and key are required")
	}
	if _, err := url.ParseRequestURI(projectURL); err != nil {
		return nil, fmt.Errorf("invalid supabase url: %w", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(projectURL, "/") + "/rest/v1/" + url.PathEscape(table),
		key:     key,
		table:   table,
		http:    httpClient,
	}, nil
}

func (c *Client) Close() error { return nil }

// row mirrors a task row as PostgREST renders it. Timestamps written by other clients
// may lack a zone, so created_at is parsed by hand.
type row struct {
	ID        models.TaskID `json:"id"`
	Title     *string       `json:"title"`
	Completed *bool         `json:"completed"`
	CreatedAt string        `json:"created_at"`
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func (r row) task() (models.Task, error) {
	created, err := parseTimestamp(r.CreatedAt)
	if err != nil {
		return models.Task{}, err
	}
	t := models.Task{ID: r.ID, CreatedAt: created}
	if r.Title != nil {
		t.Title = *r.Title
	}
	if r.Completed != nil {
		t.Completed = *r.Completed
	}
	return t, nil
}

func decodeRows(body []byte) ([]models.Task, error) {
	var rows []row
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	tasks := make([]models.Task, 0, len(rows))
	for _, r := range rows {
		t, err := r.task()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// apiError is the PostgREST error body.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (c *Client) do(ctx context.Context, method string, query url.Values, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	target := c.baseURL
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, c.table, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("%s %s: %s (%s)", method, c.table, apiErr.Message, resp.Status)
		}
		return nil, fmt.Errorf("%s %s: unexpected status %s", method, c.table, resp.Status)
	}
	return data, nil
}

func idFilter(id models.TaskID) url.Values {
	return url.Values{"id": {"eq." + string(id)}}
}

func (c *Client) ListTasks(ctx context.Context) ([]models.Task, error) {
	data, err := c.do(ctx, http.MethodGet, url.Values{"select": {"*"}}, nil)
	if err != nil {
		return nil, err
	}
	return decodeRows(data)
}

func (c *Client) InsertTask(ctx context.Context, nt models.NewTask) (models.Task, error) {
	createdAt := nt.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	payload := map[string]any{
		"title":      nt.Title,
		"completed":  nt.Completed,
		"created_at": createdAt.UTC().Format(time.RFC3339Nano),
	}

	data, err := c.do(ctx, http.MethodPost, nil, payload)
	if err != nil {
		return models.Task{}, err
	}
	tasks, err := decodeRows(data)
	if err != nil {
		return models.Task{}, err
	}
	if len(tasks) == 0 {
		return models.Task{}, fmt.Errorf("insert task: no row returned")
	}
	return tasks[0], nil
}

func (c *Client) UpdateTask(ctx context.Context, id models.TaskID, patch models.TaskPatch) (*models.Task, error) {
	var (
		data []byte
		err  error
	)
	if patch.Empty() {
		query := idFilter(id)
		query.Set("select", "*")
		data, err = c.do(ctx, http.MethodGet, query, nil)
	} else {
		payload := map[string]any{}
		if patch.Title != nil {
			payload["title"] = *patch.Title
		}
		if patch.Completed != nil {
			payload["completed"] = *patch.Completed
		}
		data, err = c.do(ctx, http.MethodPatch, idFilter(id), payload)
	}
	if err != nil {
		return nil, err
	}

	tasks, err := decodeRows(data)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, nil
	}
	return &tasks[0], nil
}

func (c *Client) DeleteTask(ctx context.Context, id models.TaskID) error {
	_, err := c.do(ctx, http.MethodDelete, idFilter(id), nil)
	return err
}
