package store

import (
	"context"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/models"
)

// ReadOnlyStore wraps a Store and rejects write operations while isReadOnly reports true.
//
// The flag is read on every write, so the application can enter and leave read-only mode
// (for maintenance or a backend switch) without recreating the store. Reads always pass
// through.
type ReadOnlyStore struct {
	Store
	isReadOnly func() bool
}

// NewReadOnlyStore creates a new read-only wrapper for a store
func NewReadOnlyStore(store Store, isReadOnly func() bool) Store {
	return &ReadOnlyStore{
		Store:      store,
		isReadOnly: isReadOnly,
	}
}

// Unwrap returns the underlying store
func (r *ReadOnlyStore) Unwrap() Store {
	return r.Store
}

func (r *ReadOnlyStore) checkReadOnly() error {
	if r.isReadOnly() {
		return ErrReadOnly
	}
	return nil
}

func (r *ReadOnlyStore) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateUser(ctx, user)
}

func (r *ReadOnlyStore) UpdateUser(ctx context.Context, user *models.User) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.UpdateUser(ctx, user)
}

func (r *ReadOnlyStore) DeleteUserCascade(ctx context.Context, id models.UserID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteUserCascade(ctx, id)
}

func (r *ReadOnlyStore) CreateProject(ctx context.Context, project *models.Project) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateProject(ctx, project)
}

func (r *ReadOnlyStore) UpdateProject(ctx context.Context, project *models.Project) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.UpdateProject(ctx, project)
}

func (r *ReadOnlyStore) CompleteProject(ctx context.Context, project *models.Project) (int64, error) {
	if err := r.checkReadOnly(); err != nil {
		return 0, err
	}
	return r.Store.CompleteProject(ctx, project)
}

func (r *ReadOnlyStore) DeleteProjectCascade(ctx context.Context, id models.ProjectID) (int64, error) {
	if err := r.checkReadOnly(); err != nil {
		return 0, err
	}
	return r.Store.DeleteProjectCascade(ctx, id)
}

func (r *ReadOnlyStore) CreateTask(ctx context.Context, task *models.Task) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateTask(ctx, task)
}

func (r *ReadOnlyStore) UpdateTask(ctx context.Context, task *models.Task) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.UpdateTask(ctx, task)
}

func (r *ReadOnlyStore) DeleteTask(ctx context.Context, id models.TaskID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteTask(ctx, id)
}

func (r *ReadOnlyStore) ReorderTasks(ctx context.Context, projectID models.ProjectID, status models.TaskStatus, taskIDs []models.TaskID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.ReorderTasks(ctx, projectID, status, taskIDs)
}

func (r *ReadOnlyStore) CreateActivity(ctx context.Context, activity *models.Activity) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateActivity(ctx, activity)
}

func (r *ReadOnlyStore) DeleteActivity(ctx context.Context, id models.ActivityID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteActivity(ctx, id)
}

func (r *ReadOnlyStore) CreateNotification(ctx context.Context, notification *models.Notification) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateNotification(ctx, notification)
}

func (r *ReadOnlyStore) UpdateNotification(ctx context.Context, notification *models.Notification) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.UpdateNotification(ctx, notification)
}

func (r *ReadOnlyStore) MarkAllNotificationsRead(ctx context.Context, userID models.UserID) (int64, error) {
	if err := r.checkReadOnly(); err != nil {
		return 0, err
	}
	return r.Store.MarkAllNotificationsRead(ctx, userID)
}

func (r *ReadOnlyStore) DeleteNotification(ctx context.Context, id models.NotificationID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteNotification(ctx, id)
}
