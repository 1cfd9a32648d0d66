package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/lifecycle"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/models"
)

type projectEnvelope struct {
	Project *models.Project `json:"project"`
}

// ListProjects returns the projects the caller belongs to, most recently updated first.
// A limit of 0 uses the server default.
func (c *Client) ListProjects(ctx context.Context, limit int) ([]*models.Project, error) {
	path := "/api/projects"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	var result struct {
		Projects []*models.Project `json:"projects"`
	}
	if err := c.call(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Projects, nil
}

func (c *Client) CreateProject(ctx context.Context, in lifecycle.ProjectInput) (*models.Project, error) {
	var result projectEnvelope
	if err := c.call(ctx, http.MethodPost, "/api/projects", in, &result); err != nil {
		return nil, err
	}
	return result.Project, nil
}

func (c *Client) GetProject(ctx context.Context, id models.ProjectID) (*models.Project, error) {
	var result projectEnvelope
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/api/projects/%s", id), nil, &result); err != nil {
		return nil, err
	}
	return result.Project, nil
}

// UpdateProject sends a partial update. Keys absent from fields are left unchanged.
func (c *Client) UpdateProject(ctx context.Context, id models.ProjectID, fields map[string]any) (*models.Project, error) {
	var result projectEnvelope
	if err := c.call(ctx, http.MethodPatch, fmt.Sprintf("/api/projects/%s", id), fields, &result); err != nil {
		return nil, err
	}
	return result.Project, nil
}

// CompleteProject marks the project completed. Without confirm, a project with open tasks
// fails with an *APIError whose RequiresConfirmation is set.
func (c *Client) CompleteProject(ctx context.Context, id models.ProjectID, confirm bool) (*models.Project, error) {
	fields := map[string]any{"status": models.ProjectCompleted}
	if confirm {
		fields["confirm"] = true
	}
	return c.UpdateProject(ctx, id, fields)
}

func (c *Client) DeleteProject(ctx context.Context, id models.ProjectID) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/api/projects/%s", id), nil, nil)
}

// ReorderTasks sets the order of the tasks of one status column to the sequence of ids.
func (c *Client) ReorderTasks(ctx context.Context, projectID models.ProjectID, status models.TaskStatus, ids []models.TaskID) ([]*models.Task, error) {
	req := struct {
		Status  models.TaskStatus `json:"status"`
		TaskIDs []models.TaskID   `json:"taskIds"`
	}{status, ids}
	var result struct {
		Tasks []*models.Task `json:"tasks"`
	}
	if err := c.call(ctx, http.MethodPut, fmt.Sprintf("/api/projects/%s/tasks/order", projectID), req, &result); err != nil {
		return nil, err
	}
	return result.Tasks, nil
}
