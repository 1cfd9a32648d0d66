package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/store"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/validate"
)

// TaskInput is the payload of a new task.
type TaskInput struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Project     string              `json:"project"`
	Status      models.TaskStatus   `json:"status"`
	Priority    models.TaskPriority `json:"priority"`
	AssignedTo  []models.UserID     `json:"assignedTo"`
	Tags        []string            `json:"tags"`
	DueDate     string              `json:"dueDate"`
	Order       *int                `json:"order"`
	Attachments []models.Attachment `json:"attachments"`
}

// TaskQuery filters TaskManager.List.
type TaskQuery struct {
	ProjectID                *models.ProjectID
	Status                   models.TaskStatus
	Priority                 models.TaskPriority
	IncludeCompletedProjects bool
	Limit                    int
}

// TaskManager runs the task lifecycle.
type TaskManager struct {
	store         store.Store
	log           zerolog.Logger
	now           func() time.Time
	activity      *ActivityRecorder
	notifications *NotificationDispatcher
}

func checkTaskTitle(title string) error {
	if !validate.MinLength(title, 3) {
		return validation("Task title must be at least 3 characters long")
	}
	return nil
}

func checkTaskStatus(s models.TaskStatus) error {
	if !s.Valid() {
		return validation("Invalid task status")
	}
	return nil
}

func checkPriority(p models.TaskPriority) error {
	if !p.Valid() {
		return validation("Invalid task priority")
	}
	return nil
}

func parseDueDate(raw string, now time.Time) (time.Time, error) {
	t, err := validate.ParseFutureDate(raw, now)
	switch {
	case errors.Is(err, validate.ErrDateInPast):
		return t, validation("Due date cannot be in the past")
	case err != nil:
		return t, validation("Invalid due date")
	}
	return t, nil
}

func checkAttachments(as []models.Attachment, now time.Time) ([]models.Attachment, error) {
	out := make([]models.Attachment, 0, len(as))
	for _, a := range as {
		a.Name = strings.TrimSpace(a.Name)
		if a.Name == "" || !validate.HTTPURL(a.URL) {
			return nil, validation("Attachments need a name and an http(s) URL")
		}
		if a.UploadedAt.IsZero() {
			a.UploadedAt = now
		}
		out = append(out, a)
	}
	return out, nil
}

// Create validates in and stores a new task created by userID. Any authenticated user
// may add a task to an existing project; a missing project stores nothing.
func (m *TaskManager) Create(ctx context.Context, userID models.UserID, in TaskInput) (*models.Task, error) {
	if err := checkTaskTitle(in.Title); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Project) == "" {
		return nil, validation("Please select a project")
	}
	now := m.now()
	var due *time.Time
	if strings.TrimSpace(in.DueDate) != "" {
		t, err := parseDueDate(in.DueDate, now)
		if err != nil {
			return nil, err
		}
		due = &t
	}
	if in.Status == "" {
		in.Status = models.TaskToDo
	}
	if err := checkTaskStatus(in.Status); err != nil {
		return nil, err
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if err := checkPriority(in.Priority); err != nil {
		return nil, err
	}
	attachments, err := checkAttachments(in.Attachments, now)
	if err != nil {
		return nil, err
	}
	if in.Order != nil && *in.Order < 0 {
		return nil, validation("Invalid task order")
	}

	projectID, err := models.ParseProjectID(strings.TrimSpace(in.Project))
	if err != nil {
		return nil, notFound(msgProjectNotFound)
	}
	project, err := m.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, internal("failed to load project", err)
	}
	if project == nil {
		return nil, notFound(msgProjectNotFound)
	}

	order := 0
	if in.Order != nil {
		order = *in.Order
	} else {
		top, err := m.store.MaxTaskOrder(ctx, projectID, in.Status)
		if err != nil {
			return nil, internal("failed to compute task order", err)
		}
		order = top + 1
	}

	t := &models.Task{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		ProjectID:   projectID,
		Status:      in.Status,
		Priority:    in.Priority,
		AssignedTo:  dedupe(in.AssignedTo),
		Tags:        cleanList(in.Tags),
		DueDate:     due,
		Order:       order,
		Attachments: attachments,
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.store.CreateTask(ctx, t); err != nil {
		return nil, internal("failed to create task", err)
	}

	tid := t.ID
	m.activity.Record(ctx, userID, projectID, &tid, ActionCreatedTask, models.JSONMap{"taskTitle": t.Title})
	m.notifyAssigned(ctx, userID, project, t, t.AssignedTo)
	return t, nil
}

func (m *TaskManager) notifyAssigned(ctx context.Context, actor models.UserID, project *models.Project, t *models.Task, assignees []models.UserID) {
	recipients := make([]models.UserID, 0, len(assignees))
	for _, id := range assignees {
		if id != actor {
			recipients = append(recipients, id)
		}
	}
	pid, tid := t.ProjectID, t.ID
	msg := fmt.Sprintf("You have been assigned to %q", t.Title)
	if project != nil {
		msg += fmt.Sprintf(" in %s", project.Name)
	}
	m.notifications.Notify(ctx, recipients, NotificationInput{
		Type:           models.NotificationInfo,
		Title:          "New task assigned",
		Message:        msg + ".",
		Link:           "/tasks/" + t.ID.String(),
		RelatedProject: &pid,
		RelatedTask:    &tid,
	})
}

// access loads the task and its project and checks that the user may see the task:
// a member of its project, its creator, or one of its assignees.
func (m *TaskManager) access(ctx context.Context, userID models.UserID, id models.TaskID) (*models.Task, *models.Project, error) {
	t, err := m.store.GetTask(ctx, id)
	if err != nil {
		return nil, nil, internal("failed to load task", err)
	}
	if t == nil {
		return nil, nil, notFound(msgTaskNotFound)
	}
	project, err := m.store.GetProject(ctx, t.ProjectID)
	if err != nil {
		return nil, nil, internal("failed to load project", err)
	}
	if t.CreatedBy == userID || t.IsAssigned(userID) || (project != nil && project.IsMember(userID)) {
		return t, project, nil
	}
	return nil, nil, forbidden(msgAccessDenied)
}

// Get returns one task with its references resolved.
func (m *TaskManager) Get(ctx context.Context, userID models.UserID, id models.TaskID) (*models.TaskView, error) {
	t, _, err := m.access(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	views, err := m.views(ctx, []*models.Task{t})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// List returns the tasks created by or assigned to the user.
func (m *TaskManager) List(ctx context.Context, userID models.UserID, q TaskQuery) ([]*models.TaskView, error) {
	if q.Status != "" {
		if err := checkTaskStatus(q.Status); err != nil {
			return nil, err
		}
	}
	if q.Priority != "" {
		if err := checkPriority(q.Priority); err != nil {
			return nil, err
		}
	}
	tasks, err := m.store.ListTasks(ctx, store.TaskFilter{
		UserID:                   userID,
		ProjectID:                q.ProjectID,
		Status:                   q.Status,
		Priority:                 q.Priority,
		ExcludeCompletedProjects: !q.IncludeCompletedProjects,
		Limit:                    ClampLimit(q.Limit, DefaultTaskLimit, MaxTaskLimit),
	})
	if err != nil {
		return nil, internal("failed to list tasks", err)
	}
	return m.views(ctx, tasks)
}

func (m *TaskManager) views(ctx context.Context, tasks []*models.Task) ([]*models.TaskView, error) {
	var (
		users    []models.UserID
		projects []models.ProjectID
	)
	for _, t := range tasks {
		projects = append(projects, t.ProjectID)
		users = append(users, t.CreatedBy)
		users = append(users, t.AssignedTo...)
	}
	refs, err := loadRefs(ctx, m.store, users, projects, nil)
	if err != nil {
		return nil, internal("failed to resolve task references", err)
	}
	views := make([]*models.TaskView, 0, len(tasks))
	for _, t := range tasks {
		v := &models.TaskView{
			Task:       *t,
			Project:    models.NewProjectRef(refs.projects[t.ProjectID]),
			CreatedBy:  models.NewUserRef(refs.users[t.CreatedBy]),
			AssignedTo: make([]*models.UserRef, 0, len(t.AssignedTo)),
		}
		for _, id := range t.AssignedTo {
			if ref := models.NewUserRef(refs.users[id]); ref != nil {
				v.AssignedTo = append(v.AssignedTo, ref)
			}
		}
		views = append(views, v)
	}
	return views, nil
}

// Update applies patch to a task the user can access. Fields whose new value equals the
// current one are skipped, so applying the same patch twice leaves the task unchanged.
func (m *TaskManager) Update(ctx context.Context, userID models.UserID, id models.TaskID, patch Patch) (*models.Task, error) {
	t, project, err := m.access(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	ops, err := ParseTaskPatch(patch)
	if err != nil {
		return nil, err
	}
	for _, op := range ops {
		if op.target == nil || *op.target == t.ProjectID {
			continue
		}
		if project, err = m.moveTarget(ctx, userID, *op.target); err != nil {
			return nil, err
		}
	}

	now := m.now()
	prevAssignees := t.AssignedTo
	details := models.JSONMap{}
	for _, op := range ops {
		from, to, changed, err := op.apply(t, now)
		if err != nil {
			return nil, err
		}
		if changed {
			details[op.field] = change(from, to)
		}
	}
	if len(details) == 0 {
		return t, nil
	}

	t.UpdatedAt = now
	if err := m.store.UpdateTask(ctx, t); err != nil {
		return nil, updateFailed("failed to update task", msgTaskNotFound, err)
	}

	tid := t.ID
	m.activity.Record(ctx, userID, t.ProjectID, &tid, ActionUpdatedTask, details)

	if _, ok := details["assignedTo"]; ok {
		var added []models.UserID
		for _, id := range t.AssignedTo {
			if !containsUser(prevAssignees, id) {
				added = append(added, id)
			}
		}
		m.notifyAssigned(ctx, userID, project, t, added)
	}
	return t, nil
}

// moveTarget loads the project a task is being moved into. The user must be a member.
func (m *TaskManager) moveTarget(ctx context.Context, userID models.UserID, id models.ProjectID) (*models.Project, error) {
	project, err := m.store.GetProject(ctx, id)
	if err != nil {
		return nil, internal("failed to load project", err)
	}
	if project == nil {
		return nil, notFound(msgProjectNotFound)
	}
	if !project.IsMember(userID) {
		return nil, forbidden(msgAccessDenied)
	}
	return project, nil
}

// Delete removes a task the user can access.
func (m *TaskManager) Delete(ctx context.Context, userID models.UserID, id models.TaskID) error {
	t, _, err := m.access(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := m.store.DeleteTask(ctx, id); err != nil {
		return internal("failed to delete task", err)
	}
	m.activity.Record(ctx, userID, t.ProjectID, nil, ActionDeletedTask, models.JSONMap{"taskTitle": t.Title})
	return nil
}

// Reorder moves the listed tasks into the status column of the project and numbers them
// 0..n-1 in the given sequence. Every task must belong to the project.
func (m *TaskManager) Reorder(ctx context.Context, userID models.UserID, projectID models.ProjectID, status models.TaskStatus, taskIDs []models.TaskID) ([]*models.Task, error) {
	if err := checkTaskStatus(status); err != nil {
		return nil, err
	}
	if len(dedupe(taskIDs)) != len(taskIDs) {
		return nil, validation("Task ids must be unique")
	}
	project, err := m.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, internal("failed to load project", err)
	}
	if project == nil {
		return nil, notFound(msgProjectNotFound)
	}
	if !project.IsMember(userID) {
		return nil, forbidden(msgAccessDenied)
	}
	if len(taskIDs) == 0 {
		return []*models.Task{}, nil
	}

	tasks, err := m.store.GetTasks(ctx, taskIDs)
	if err != nil {
		return nil, internal("failed to load tasks", err)
	}
	if len(tasks) != len(taskIDs) {
		return nil, notFound(msgTaskNotFound)
	}
	for _, t := range tasks {
		if t.ProjectID != projectID {
			return nil, validation("Task does not belong to this project")
		}
	}

	if err := m.store.ReorderTasks(ctx, projectID, status, taskIDs); err != nil {
		return nil, internal("failed to reorder tasks", err)
	}

	reordered, err := m.store.GetTasks(ctx, taskIDs)
	if err != nil {
		return nil, internal("failed to load tasks", err)
	}
	byID := make(map[models.TaskID]*models.Task, len(reordered))
	for _, t := range reordered {
		byID[t.ID] = t
	}
	out := make([]*models.Task, 0, len(taskIDs))
	for _, id := range taskIDs {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func containsUser(ids []models.UserID, id models.UserID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
