package projecthub

import (
	"net/http"
	"strconv"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/lifecycle"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/models"
)

type taskResponse struct {
	Task any `json:"task"`
}

func (a *App) handleListTasks(w http.ResponseWriter, r *http.Request, userID models.UserID) {
	q := r.URL.Query()
	query := lifecycle.TaskQuery{
		Status:   models.TaskStatus(q.Get("status")),
		Priority: models.TaskPriority(q.Get("priority")),
		Limit:    queryLimit(r),
	}
	query.IncludeCompletedProjects, _ = strconv.ParseBool(q.Get("includeCompletedProjects"))
	if raw := q.Get("project"); raw != "" {
		projectID, err := models.ParseProjectID(raw)
		if err != nil {
			respondJSON(w, http.StatusOK, map[string]any{"tasks": []*models.TaskView{}})
			return
		}
		query.ProjectID = &projectID
	}

	tasks, err := a.managers.Tasks.List(r.Context(), userID, query)
	if err != nil {
		respondErr(w, r, err, "Failed to fetch tasks")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (a *App) handleCreateTask(w http.ResponseWriter, r *http.Request, userID models.UserID) {
	var req lifecycle.TaskInput
	if !decodeJSON(w, r, &req) {
		return
	}

	task, err := a.managers.Tasks.Create(r.Context(), userID, req)
	if err != nil {
		respondErr(w, r, err, "Failed to create task")
		return
	}
	respondJSON(w, http.StatusCreated, taskResponse{Task: task})
}

func (a *App) handleGetTask(w http.ResponseWriter, r *http.Request, userID models.UserID) {
	id, ok := pathID(w, r, models.ParseTaskID, "Task not found")
	if !ok {
		return
	}

	task, err := a.managers.Tasks.Get(r.Context(), userID, id)
	if err != nil {
		respondErr(w, r, err, "Failed to fetch task")
		return
	}
	respondJSON(w, http.StatusOK, taskResponse{Task: task})
}

// handleUpdateTask applies a partial update. Only title, description, project, status,
// priority, assignedTo, tags, dueDate, order and attachments can be set.
func (a *App) handleUpdateTask(w http.ResponseWriter, r *http.Request, userID models.UserID) {
	id, ok := pathID(w, r, models.ParseTaskID, "Task not found")
	if !ok {
		return
	}
	var patch lifecycle.Patch
	if !decodeJSON(w, r, &patch) {
		return
	}

	task, err := a.managers.Tasks.Update(r.Context(), userID, id, patch)
	if err != nil {
		respondErr(w, r, err, "Failed to update task")
		return
	}
	respondJSON(w, http.StatusOK, taskResponse{Task: task})
}

func (a *App) handleDeleteTask(w http.ResponseWriter, r *http.Request, userID models.UserID) {
	id, ok := pathID(w, r, models.ParseTaskID, "Task not found")
	if !ok {
		return
	}

	if err := a.managers.Tasks.Delete(r.Context(), userID, id); err != nil {
		respondErr(w, r, err, "Failed to delete task")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
