package projecthub

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/lifecycle"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/models"
)

// pathID parses the {id} path variable. A malformed id cannot name an existing record,
// so it is answered with the resource's 404.
func pathID[T any](w http.ResponseWriter, r *http.Request, parse func(string) (T, error), notFound string) (T, bool) {
	id, err := parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusNotFound, notFound)
		return id, false
	}
	return id, true
}

func queryLimit(r *http.Request) int {
	n, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return n
}

type projectResponse struct {
	Project *models.Project `json:"project"`
}

type reorderRequest struct {
	Status  models.TaskStatus `json:"status"`
	TaskIDs []models.TaskID   `json:"taskIds"`
}

func (a *App) handleListProjects(w http.ResponseWriter, r *http.Request, userID models.UserID) {
	projects, err := a.managers.Projects.List(r.Context(), userID, queryLimit(r))
	if err != nil {
		respondErr(w, r, err, "Failed to fetch projects")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func (a *App) handleCreateProject(w http.ResponseWriter, r *http.Request, userID models.UserID) {
	var req lifecycle.ProjectInput
	if !decodeJSON(w, r, &req) {
		return
	}

	project, err := a.managers.Projects.Create(r.Context(), userID, req)
	if err != nil {
		respondErr(w, r, err, "Failed to create project")
		return
	}
	respondJSON(w, http.StatusCreated, projectResponse{Project: project})
}

func (a *App) handleGetProject(w http.ResponseWriter, r *http.Request, userID models.UserID) {
	id, ok := pathID(w, r, models.ParseProjectID, "Project not found")
	if !ok {
		return
	}

	project, err := a.managers.Projects.Get(r.Context(), userID, id)
	if err != nil {
		respondErr(w, r, err, "Failed to fetch project")
		return
	}
	respondJSON(w, http.StatusOK, projectResponse{Project: project})
}

// handleUpdateProject applies a partial update. Completing a project that still has open
// tasks answers 409 with requiresConfirmation until the request carries "confirm": true.
func (a *App) handleUpdateProject(w http.ResponseWriter, r *http.Request, userID models.UserID) {
	id, ok := pathID(w, r, models.ParseProjectID, "Project not found")
	if !ok {
		return
	}
	var patch lifecycle.Patch
	if !decodeJSON(w, r, &patch) {
		return
	}

	project, err := a.managers.Projects.Update(r.Context(), userID, id, patch)
	if err != nil {
		respondErr(w, r, err, "Failed to update project")
		return
	}
	respondJSON(w, http.StatusOK, projectResponse{Project: project})
}

func (a *App) handleDeleteProject(w http.ResponseWriter, r *http.Request, userID models.UserID) {
	id, ok := pathID(w, r, models.ParseProjectID, "Project not found")
	if !ok {
		return
	}

	if err := a.managers.Projects.Delete(r.Context(), userID, id); err != nil {
		respondErr(w, r, err, "Failed to delete project")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleReorderTasks sets the order of one kanban column to the sequence in taskIds.
//
//	PUT /api/projects/{id}/tasks/order {"status": "To Do", "taskIds": [...]}
func (a *App) handleReorderTasks(w http.ResponseWriter, r *http.Request, userID models.UserID) {
	id, ok := pathID(w, r, models.ParseProjectID, "Project not found")
	if !ok {
		return
	}
	var req reorderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tasks, err := a.managers.Tasks.Reorder(r.Context(), userID, id, req.Status, req.TaskIDs)
	if err != nil {
		respondErr(w, r, err, "Failed to reorder tasks")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}
