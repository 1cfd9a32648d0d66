package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/lifecycle"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/models"
)

// TaskFilter narrows ListTasks. Zero values are not sent.
type TaskFilter struct {
	Project                  *models.ProjectID
	Status                   models.TaskStatus
	Priority                 models.TaskPriority
	IncludeCompletedProjects bool
	Limit                    int
}

func (f TaskFilter) query() string {
	q := url.Values{}
	if f.Project != nil {
		q.Set("project", f.Project.String())
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Priority != "" {
		q.Set("priority", string(f.Priority))
	}
	if f.IncludeCompletedProjects {
		q.Set("includeCompletedProjects", "true")
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

type taskEnvelope struct {
	Task *models.Task `json:"task"`
}

// ListTasks returns the visible tasks matching f with their references resolved.
func (c *Client) ListTasks(ctx context.Context, f TaskFilter) ([]*models.TaskView, error) {
	var result struct {
		Tasks []*models.TaskView `json:"tasks"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/tasks"+f.query(), nil, &result); err != nil {
		return nil, err
	}
	return result.Tasks, nil
}

func (c *Client) CreateTask(ctx context.Context, in lifecycle.TaskInput) (*models.Task, error) {
	var result taskEnvelope
	if err := c.call(ctx, http.MethodPost, "/api/tasks", in, &result); err != nil {
		return nil, err
	}
	return result.Task, nil
}

func (c *Client) GetTask(ctx context.Context, id models.TaskID) (*models.TaskView, error) {
	var result struct {
		Task *models.TaskView `json:"task"`
	}
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/api/tasks/%s", id), nil, &result); err != nil {
		return nil, err
	}
	return result.Task, nil
}

// UpdateTask sends a partial update. Keys absent from fields are left unchanged.
func (c *Client) UpdateTask(ctx context.Context, id models.TaskID, fields map[string]any) (*models.Task, error) {
	var result taskEnvelope
	if err := c.call(ctx, http.MethodPatch, fmt.Sprintf("/api/tasks/%s", id), fields, &result); err != nil {
		return nil, err
	}
	return result.Task, nil
}

// MoveTask changes the status column of a task.
func (c *Client) MoveTask(ctx context.Context, id models.TaskID, status models.TaskStatus) (*models.Task, error) {
	return c.UpdateTask(ctx, id, map[string]any{"status": status})
}

func (c *Client) DeleteTask(ctx context.Context, id models.TaskID) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/api/tasks/%s", id), nil, nil)
}
