package lifecycle

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/store"
)

// Activity labels.
const (
	ActionCreatedProject = "created project"
	ActionUpdatedProject = "updated project"
	ActionDeletedProject = "deleted project"
	ActionCreatedTask    = "created task"
	ActionUpdatedTask    = "updated task"
	ActionDeletedTask    = "deleted task"
)

// ActivityRecorder appends and reads the audit feed.
type ActivityRecorder struct {
	store store.Store
	log   zerolog.Logger
	now   func() time.Time
}

// Record appends an entry. It never fails the caller: the mutation it describes has
// already committed, so a failure is only logged.
func (r *ActivityRecorder) Record(ctx context.Context, actor models.UserID, projectID models.ProjectID, taskID *models.TaskID, action string, details models.JSONMap) {
	a := &models.Activity{
		UserID:    actor,
		ProjectID: projectID,
		TaskID:    taskID,
		Action:    action,
		Details:   details,
		CreatedAt: r.now(),
	}
	if err := r.store.CreateActivity(ctx, a); err != nil {
		r.log.Error().Err(err).
			Str("action", action).
			Stringer("user", actor).
			Stringer("project", projectID).
			Msg("failed to record activity")
	}
}

// List returns the newest entries of the user with actor, project and task resolved.
func (r *ActivityRecorder) List(ctx context.Context, userID models.UserID) ([]*models.ActivityView, error) {
	activities, err := r.store.ListActivities(ctx, userID, FeedLimit)
	if err != nil {
		return nil, internal("failed to list activities", err)
	}

	var (
		users    []models.UserID
		projects []models.ProjectID
		tasks    []models.TaskID
	)
	for _, a := range activities {
		users = append(users, a.UserID)
		if !a.ProjectID.IsZero() {
			projects = append(projects, a.ProjectID)
		}
		if a.TaskID != nil {
			tasks = append(tasks, *a.TaskID)
		}
	}
	refs, err := loadRefs(ctx, r.store, users, projects, tasks)
	if err != nil {
		return nil, internal("failed to resolve activity references", err)
	}

	views := make([]*models.ActivityView, 0, len(activities))
	for _, a := range activities {
		v := &models.ActivityView{
			Activity: *a,
			User:     models.NewUserRef(refs.users[a.UserID]),
			Project:  models.NewProjectRef(refs.projects[a.ProjectID]),
		}
		if a.TaskID != nil {
			v.Task = models.NewTaskRef(refs.tasks[*a.TaskID])
		}
		views = append(views, v)
	}
	return views, nil
}

// Delete removes an entry recorded by the user. Entries of other users are reported as
// not found.
func (r *ActivityRecorder) Delete(ctx context.Context, userID models.UserID, id models.ActivityID) error {
	a, err := r.store.GetActivity(ctx, id)
	if err != nil {
		return internal("failed to load activity", err)
	}
	if a == nil || a.UserID != userID {
		return notFound(msgActivityNotFound)
	}
	if err := r.store.DeleteActivity(ctx, id); err != nil {
		return internal("failed to delete activity", err)
	}
	return nil
}
