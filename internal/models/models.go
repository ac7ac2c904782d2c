package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// DefaultTitle is stored when a task is created without a title.
const DefaultTitle = "Untitled"

// TaskID identifies a stored task. Stores assign it and clients treat it as opaque.
type TaskID string

// UnmarshalJSON accepts both string and numeric identifiers.
func (id *TaskID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = TaskID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("task id must be a string or number: %w", err)
	}
	*id = TaskID(n.String())
	return nil
}

// Task is a single to-do item.
type Task struct {
	ID        TaskID    `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTask carries the fields of a task about to be inserted.
type NewTask struct {
	Title     string
	Completed bool
	CreatedAt time.Time
}

// TaskPatch lists the fields an update overwrites. Nil fields keep their stored value.
type TaskPatch struct {
	Title     *string
	Completed *bool
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Completed == nil
}

// Apply returns t with the patch fields written over it.
func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	return t
}
