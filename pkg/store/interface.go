// Package store provides the persistence abstraction for ProjectHub.
//
// The [Store] interface is the only way the lifecycle managers touch data. Three backends
// implement it:
//
//   - [github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/store/surrealdb.SurrealStore]:
//     native SurrealQL over the SurrealDB Go SDK, with typed IDs marshalled as record ids
//   - [github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/store/gormstore.GormStore]:
//     GORM over PostgreSQL, or over SQLite for local runs and tests
//   - [github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/store/mongostore.MongoStore]:
//     MongoDB documents through the official driver
//
// [ReadOnlyStore] wraps any of them and rejects writes while the application is in
// read-only mode.
//
// # Cascades
//
// Operations that touch more than one collection are single Store methods so that each
// backend can make them atomic: [Store.CompleteProject], [Store.DeleteProjectCascade],
// [Store.DeleteUserCascade] and [Store.ReorderTasks]. GORM wraps them in a transaction,
// SurrealDB runs them as one BEGIN/COMMIT query, and MongoDB uses a session transaction.
//
// # Conventions
//
// Get methods return nil without error for missing records. List methods return an empty
// slice, never nil, for no results. Update methods replace the whole record and set
// UpdatedAt; they never insert, and return [ErrNotFound] when the record is gone. Create methods generate the ID and timestamps when they are zero.
package store

import (
	"context"
	"errors"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/models"
)

var (
	// ErrReadOnly is returned by write operations while the application is read-only.
	ErrReadOnly = errors.New("operation denied: application is in read-only mode")
	// ErrNotFound is returned by Update methods when the record no longer exists.
	ErrNotFound = errors.New("record not found")
)

// TaskFilter selects tasks for [Store.ListTasks].
type TaskFilter struct {
	// UserID restricts the result to tasks created by or assigned to this user.
	UserID models.UserID
	// ProjectID, Status and Priority are optional equality filters.
	ProjectID *models.ProjectID
	Status    models.TaskStatus
	Priority  models.TaskPriority
	// ExcludeCompletedProjects drops tasks whose project has status Completed.
	ExcludeCompletedProjects bool
	// Limit caps the number of tasks returned; zero means no limit.
	Limit int
}

// Store defines the persistence operations of ProjectHub.
//
// Every method takes the request context; cancelling it aborts the database call.
// Sorting is part of the contract so all backends return the same order:
//   - ListProjects: UpdatedAt descending
//   - ListTasks: Order ascending, then CreatedAt descending
//   - ListActivities, ListNotifications: CreatedAt descending
type Store interface {
	// User operations

	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id models.UserID) (*models.User, error)
	// GetUserByEmail matches the normalized (lower-cased) address.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// GetUsers returns the users that exist among ids, in no particular order.
	GetUsers(ctx context.Context, ids []models.UserID) ([]*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	// DeleteUserCascade removes the user together with the projects they own, the tasks of
	// those projects, the tasks they created, their activities and their notifications.
	DeleteUserCascade(ctx context.Context, id models.UserID) error

	// Project operations

	CreateProject(ctx context.Context, project *models.Project) error
	GetProject(ctx context.Context, id models.ProjectID) (*models.Project, error)
	GetProjects(ctx context.Context, ids []models.ProjectID) ([]*models.Project, error)
	UpdateProject(ctx context.Context, project *models.Project) error
	// CompleteProject saves the project and sets every task of it that is not yet
	// Completed to Completed, atomically. It returns the number of tasks changed.
	CompleteProject(ctx context.Context, project *models.Project) (int64, error)
	// DeleteProjectCascade deletes the tasks of the project and then the project,
	// atomically. It returns the number of tasks deleted.
	DeleteProjectCascade(ctx context.Context, id models.ProjectID) (int64, error)
	// ListProjects returns projects the user owns or is a member of.
	ListProjects(ctx context.Context, userID models.UserID, limit int) ([]*models.Project, error)
	CountProjects(ctx context.Context, userID models.UserID) (int64, error)

	// Task operations

	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id models.TaskID) (*models.Task, error)
	GetTasks(ctx context.Context, ids []models.TaskID) ([]*models.Task, error)
	UpdateTask(ctx context.Context, task *models.Task) error
	DeleteTask(ctx context.Context, id models.TaskID) error
	ListTasks(ctx context.Context, filter TaskFilter) ([]*models.Task, error)
	// CountIncompleteTasks counts tasks of the project whose status is not Completed.
	CountIncompleteTasks(ctx context.Context, projectID models.ProjectID) (int64, error)
	// MaxTaskOrder returns the highest Order in the column, or -1 for an empty column.
	MaxTaskOrder(ctx context.Context, projectID models.ProjectID, status models.TaskStatus) (int, error)
	// ReorderTasks moves the tasks into the status column and sets their Order to their
	// index in taskIDs, atomically.
	ReorderTasks(ctx context.Context, projectID models.ProjectID, status models.TaskStatus, taskIDs []models.TaskID) error
	// CountTasks counts tasks created by the user, and how many of them are Completed.
	CountTasks(ctx context.Context, createdBy models.UserID) (total int64, completed int64, err error)

	// Activity operations

	CreateActivity(ctx context.Context, activity *models.Activity) error
	GetActivity(ctx context.Context, id models.ActivityID) (*models.Activity, error)
	ListActivities(ctx context.Context, userID models.UserID, limit int) ([]*models.Activity, error)
	DeleteActivity(ctx context.Context, id models.ActivityID) error

	// Notification operations

	CreateNotification(ctx context.Context, notification *models.Notification) error
	GetNotification(ctx context.Context, id models.NotificationID) (*models.Notification, error)
	ListNotifications(ctx context.Context, userID models.UserID, limit int) ([]*models.Notification, error)
	UpdateNotification(ctx context.Context, notification *models.Notification) error
	// MarkAllNotificationsRead flips every unread notification of the user and returns
	// how many changed.
	MarkAllNotificationsRead(ctx context.Context, userID models.UserID) (int64, error)
	DeleteNotification(ctx context.Context, id models.NotificationID) error

	// Migrate creates or updates tables and indexes. It is idempotent.
	Migrate(ctx context.Context) error
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases the connection. The store is unusable afterwards.
	Close() error
}
