// Package surrealdb implements [github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/store.Store]
// with native SurrealQL.
//
// Records live in the users, projects, tasks, activities and notifications tables. Every
// reference field (a project's owner, a task's project, a member's user) is stored as a
// record id thanks to the CBOR marshalling of the typed ids in
// [github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/models], so queries compare
// record ids directly and can traverse them:
//
//	SELECT * FROM tasks WHERE project.status != 'Completed'
//
// Operations that touch several tables are sent as one BEGIN/COMMIT query, which SurrealDB
// executes atomically.
package surrealdb

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
	"github.com/surrealdb/surrealdb.go/surrealcbor"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/store"
)

// SurrealStore implements store.Store on SurrealDB.
type SurrealStore struct {
	db       *surrealdb.DB
	ns       string
	database string
	now      func() time.Time
}

var _ store.Store = (*SurrealStore)(nil)

// NewSurrealStore connects over WebSocket, signs in when credentials are given, and
// selects the namespace and database.
//
// The connection uses the surrealcbor codec so that time.Time, record ids and NONE values
// survive the round trip.
func NewSurrealStore(ctx context.Context, wsURL, namespace, database, username, password string) (*SurrealStore, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	conf := connection.NewConfig(u)
	codec := surrealcbor.New()
	conf.Marshaler = codec
	conf.Unmarshaler = codec

	conn := gorillaws.New(conf)

	db, err := surrealdb.FromConnection(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if username != "" && password != "" {
		if _, err := db.SignIn(ctx, map[string]any{
			"user": username,
			"pass": password,
		}); err != nil {
			return nil, fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err := db.Use(ctx, namespace, database); err != nil {
		return nil, fmt.Errorf("failed to use namespace/database: %w", err)
	}

	return &SurrealStore{
		db:       db,
		ns:       namespace,
		database: database,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// schema defines the indexes the queries below rely on. Tables stay schemaless.
const schema = `
DEFINE INDEX IF NOT EXISTS users_email ON TABLE users FIELDS email UNIQUE;
DEFINE INDEX IF NOT EXISTS projects_owner ON TABLE projects FIELDS owner;
DEFINE INDEX IF NOT EXISTS projects_updated ON TABLE projects FIELDS updatedAt;
DEFINE INDEX IF NOT EXISTS tasks_project_status ON TABLE tasks FIELDS project, status;
DEFINE INDEX IF NOT EXISTS tasks_created_by ON TABLE tasks FIELDS createdBy;
DEFINE INDEX IF NOT EXISTS activities_user ON TABLE activities FIELDS user;
DEFINE INDEX IF NOT EXISTS notifications_user ON TABLE notifications FIELDS user, read;
`

func (s *SurrealStore) Migrate(ctx context.Context) error {
	if _, err := surrealdb.Query[any](ctx, s.db, schema, nil); err != nil {
		return fmt.Errorf("failed to define indexes: %w", err)
	}
	return nil
}

func (s *SurrealStore) Ping(ctx context.Context) error {
	_, err := surrealdb.Query[any](ctx, s.db, "RETURN true", nil)
	return err
}

// Close closes the database connection
func (s *SurrealStore) Close() error {
	return s.db.Close(context.Background())
}

// handleNotFound maps the errors SurrealDB returns for missing records to nil.
func handleNotFound(err error) error {
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "Expected a single or multiple results but got 0") ||
			strings.Contains(errStr, "cannot unmarshal array into Go value") {
			return nil
		}
	}
	return err
}

// queryList runs a single-statement query and returns its rows as pointers.
func queryList[T any](ctx context.Context, s *SurrealStore, query string, vars map[string]any) ([]*T, error) {
	result, err := surrealdb.Query[[]T](ctx, s.db, query, vars)
	if err != nil {
		return nil, err
	}
	out := []*T{}
	if result == nil || len(*result) == 0 {
		return out, nil
	}
	rows := (*result)[0].Result
	for i := range rows {
		out = append(out, &rows[i])
	}
	return out, nil
}

type countRow struct {
	N int64 `json:"n"`
}

func (s *SurrealStore) count(ctx context.Context, query string, vars map[string]any) (int64, error) {
	rows, err := queryList[countRow](ctx, s, query, vars)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].N, nil
}

func limitClause(limit int) string {
	if limit <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d", limit)
}

// User operations

func (s *SurrealStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = models.NewUserID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}
	if _, err := surrealdb.Create[models.User](ctx, s.db, models.TableUsers, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *SurrealStore) GetUser(ctx context.Context, id models.UserID) (*models.User, error) {
	user, err := surrealdb.Select[models.User](ctx, s.db, id.RecordID())
	if err != nil {
		if handleNotFound(err) == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || user.ID.IsZero() {
		return nil, nil
	}
	return user, nil
}

func (s *SurrealStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	users, err := queryList[models.User](ctx, s, "SELECT * FROM users WHERE email = $email LIMIT 1", map[string]any{
		"email": email,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	if len(users) == 0 {
		return nil, nil
	}
	return users[0], nil
}

func (s *SurrealStore) GetUsers(ctx context.Context, ids []models.UserID) ([]*models.User, error) {
	if len(ids) == 0 {
		return []*models.User{}, nil
	}
	rids := make([]surrealmodels.RecordID, len(ids))
	for i, id := range ids {
		rids[i] = id.RecordID()
	}
	return queryList[models.User](ctx, s, "SELECT * FROM $ids", map[string]any{"ids": rids})
}

func (s *SurrealStore) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = s.now()
	updated, err := surrealdb.Update[models.User](ctx, s.db, user.ID.RecordID(), user)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if updated == nil {
		return store.ErrNotFound
	}
	return nil
}

const deleteUserQuery = `
BEGIN TRANSACTION;
LET $owned = (SELECT VALUE id FROM projects WHERE owner = $user);
DELETE tasks WHERE project IN $owned OR createdBy = $user;
DELETE projects WHERE owner = $user;
DELETE activities WHERE user = $user;
DELETE notifications WHERE user = $user;
DELETE $user;
COMMIT TRANSACTION;
`

func (s *SurrealStore) DeleteUserCascade(ctx context.Context, id models.UserID) error {
	if _, err := surrealdb.Query[any](ctx, s.db, deleteUserQuery, map[string]any{"user": id.RecordID()}); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// Project operations

func (s *SurrealStore) CreateProject(ctx context.Context, project *models.Project) error {
	if project.ID.IsZero() {
		project.ID = models.NewProjectID()
	}
	if project.CreatedAt.IsZero() {
		project.CreatedAt = s.now()
	}
	if project.UpdatedAt.IsZero() {
		project.UpdatedAt = project.CreatedAt
	}
	if _, err := surrealdb.Create[models.Project](ctx, s.db, models.TableProjects, project); err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

func (s *SurrealStore) GetProject(ctx context.Context, id models.ProjectID) (*models.Project, error) {
	project, err := surrealdb.Select[models.Project](ctx, s.db, id.RecordID())
	if err != nil {
		if handleNotFound(err) == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	if project == nil || project.ID.IsZero() {
		return nil, nil
	}
	return project, nil
}

func (s *SurrealStore) GetProjects(ctx context.Context, ids []models.ProjectID) ([]*models.Project, error) {
	if len(ids) == 0 {
		return []*models.Project{}, nil
	}
	rids := make([]surrealmodels.RecordID, len(ids))
	for i, id := range ids {
		rids[i] = id.RecordID()
	}
	return queryList[models.Project](ctx, s, "SELECT * FROM $ids", map[string]any{"ids": rids})
}

func (s *SurrealStore) UpdateProject(ctx context.Context, project *models.Project) error {
	project.UpdatedAt = s.now()
	updated, err := surrealdb.Update[models.Project](ctx, s.db, project.ID.RecordID(), project)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if updated == nil {
		return store.ErrNotFound
	}
	return nil
}

// The last statement returns the ids of the tasks it completed, so the count comes from
// inside the transaction.
const completeProjectQuery = `
BEGIN TRANSACTION;
UPDATE $project CONTENT $data RETURN NONE;
UPDATE tasks SET status = 'Completed', updatedAt = $now WHERE project = $project AND status != 'Completed' RETURN id;
COMMIT TRANSACTION;
`

type taskIDRow struct {
	ID models.TaskID `json:"id"`
}

// lastResultLen returns the number of rows produced by the final statement of a
// multi-statement query.
func lastResultLen[T any](result *[]surrealdb.QueryResult[[]T]) int64 {
	if result == nil || len(*result) == 0 {
		return 0
	}
	return int64(len((*result)[len(*result)-1].Result))
}

// CompleteProject completes project and its open tasks in one transaction and reports how
// many tasks it changed.
func (s *SurrealStore) CompleteProject(ctx context.Context, project *models.Project) (int64, error) {
	project.UpdatedAt = s.now()
	result, err := surrealdb.Query[[]taskIDRow](ctx, s.db, completeProjectQuery, map[string]any{
		"project": project.ID.RecordID(),
		"data":    project,
		"now":     project.UpdatedAt,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to complete project: %w", err)
	}
	return lastResultLen(result), nil
}

const deleteProjectQuery = `
BEGIN TRANSACTION;
DELETE $project;
DELETE tasks WHERE project = $project RETURN BEFORE;
COMMIT TRANSACTION;
`

func (s *SurrealStore) DeleteProjectCascade(ctx context.Context, id models.ProjectID) (int64, error) {
	result, err := surrealdb.Query[[]taskIDRow](ctx, s.db, deleteProjectQuery, map[string]any{"project": id.RecordID()})
	if err != nil {
		return 0, fmt.Errorf("failed to delete project: %w", err)
	}
	return lastResultLen(result), nil
}

const projectMembership = "(owner = $user OR members.user CONTAINS $user)"

func (s *SurrealStore) ListProjects(ctx context.Context, userID models.UserID, limit int) ([]*models.Project, error) {
	query := "SELECT * FROM projects WHERE " + projectMembership + " ORDER BY updatedAt DESC" + limitClause(limit)
	projects, err := queryList[models.Project](ctx, s, query, map[string]any{"user": userID.RecordID()})
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

func (s *SurrealStore) CountProjects(ctx context.Context, userID models.UserID) (int64, error) {
	return s.count(ctx, "SELECT count() AS n FROM projects WHERE "+projectMembership+" GROUP ALL", map[string]any{
		"user": userID.RecordID(),
	})
}

// Task operations

func (s *SurrealStore) CreateTask(ctx context.Context, task *models.Task) error {
	if task.ID.IsZero() {
		task.ID = models.NewTaskID()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = s.now()
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = task.CreatedAt
	}
	if _, err := surrealdb.Create[models.Task](ctx, s.db, models.TableTasks, task); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (s *SurrealStore) GetTask(ctx context.Context, id models.TaskID) (*models.Task, error) {
	task, err := surrealdb.Select[models.Task](ctx, s.db, id.RecordID())
	if err != nil {
		if handleNotFound(err) == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if task == nil || task.ID.IsZero() {
		return nil, nil
	}
	return task, nil
}

func (s *SurrealStore) GetTasks(ctx context.Context, ids []models.TaskID) ([]*models.Task, error) {
	if len(ids) == 0 {
		return []*models.Task{}, nil
	}
	rids := make([]surrealmodels.RecordID, len(ids))
	for i, id := range ids {
		rids[i] = id.RecordID()
	}
	return queryList[models.Task](ctx, s, "SELECT * FROM $ids", map[string]any{"ids": rids})
}

func (s *SurrealStore) UpdateTask(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = s.now()
	updated, err := surrealdb.Update[models.Task](ctx, s.db, task.ID.RecordID(), task)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if updated == nil {
		return store.ErrNotFound
	}
	return nil
}

func (s *SurrealStore) DeleteTask(ctx context.Context, id models.TaskID) error {
	_, err := surrealdb.Delete[models.Task](ctx, s.db, id.RecordID())
	return err
}

func (s *SurrealStore) ListTasks(ctx context.Context, filter store.TaskFilter) ([]*models.Task, error) {
	conds := []string{"(createdBy = $user OR assignedTo CONTAINS $user)"}
	vars := map[string]any{"user": filter.UserID.RecordID()}
	if filter.ProjectID != nil {
		conds = append(conds, "project = $project")
		vars["project"] = filter.ProjectID.RecordID()
	}
	if filter.Status != "" {
		conds = append(conds, "status = $status")
		vars["status"] = string(filter.Status)
	}
	if filter.Priority != "" {
		conds = append(conds, "priority = $priority")
		vars["priority"] = string(filter.Priority)
	}
	if filter.ExcludeCompletedProjects {
		conds = append(conds, "project.status != 'Completed'")
	}

	query := "SELECT * FROM tasks WHERE " + strings.Join(conds, " AND ") +
		" ORDER BY `order` ASC, createdAt DESC" + limitClause(filter.Limit)
	tasks, err := queryList[models.Task](ctx, s, query, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

func (s *SurrealStore) CountIncompleteTasks(ctx context.Context, projectID models.ProjectID) (int64, error) {
	return s.count(ctx, "SELECT count() AS n FROM tasks WHERE project = $project AND status != 'Completed' GROUP ALL", map[string]any{
		"project": projectID.RecordID(),
	})
}

type orderRow struct {
	Order int `json:"order"`
}

func (s *SurrealStore) MaxTaskOrder(ctx context.Context, projectID models.ProjectID, status models.TaskStatus) (int, error) {
	rows, err := queryList[orderRow](ctx, s,
		"SELECT `order` FROM tasks WHERE project = $project AND status = $status ORDER BY `order` DESC LIMIT 1",
		map[string]any{"project": projectID.RecordID(), "status": string(status)})
	if err != nil {
		return 0, fmt.Errorf("failed to read task order: %w", err)
	}
	if len(rows) == 0 {
		return -1, nil
	}
	return rows[0].Order, nil
}

// ReorderTasks writes one guarded UPDATE per task. A task that is missing or belongs to
// another project throws, which cancels the whole transaction.
func (s *SurrealStore) ReorderTasks(ctx context.Context, projectID models.ProjectID, status models.TaskStatus, taskIDs []models.TaskID) error {
	if len(taskIDs) == 0 {
		return nil
	}
	vars := map[string]any{
		"project": projectID.RecordID(),
		"status":  string(status),
		"now":     s.now(),
	}

	var b strings.Builder
	b.WriteString("BEGIN TRANSACTION;\n")
	for i, id := range taskIDs {
		vars[fmt.Sprintf("t%d", i)] = id.RecordID()
		fmt.Fprintf(&b, "LET $r%d = (UPDATE $t%d SET `order` = %d, status = $status, updatedAt = $now WHERE project = $project RETURN id);\n", i, i, i)
		fmt.Fprintf(&b, "IF array::len($r%d) = 0 { THROW \"task not found in project\" };\n", i)
	}
	b.WriteString("COMMIT TRANSACTION;")

	if _, err := surrealdb.Query[any](ctx, s.db, b.String(), vars); err != nil {
		return fmt.Errorf("failed to reorder tasks: %w", err)
	}
	return nil
}

func (s *SurrealStore) CountTasks(ctx context.Context, createdBy models.UserID) (int64, int64, error) {
	result, err := surrealdb.Query[[]countRow](ctx, s.db, `
SELECT count() AS n FROM tasks WHERE createdBy = $user GROUP ALL;
SELECT count() AS n FROM tasks WHERE createdBy = $user AND status = 'Completed' GROUP ALL;
`, map[string]any{"user": createdBy.RecordID()})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	var counts [2]int64
	for i := 0; result != nil && i < len(*result) && i < 2; i++ {
		if rows := (*result)[i].Result; len(rows) > 0 {
			counts[i] = rows[0].N
		}
	}
	return counts[0], counts[1], nil
}

// Activity operations

func (s *SurrealStore) CreateActivity(ctx context.Context, activity *models.Activity) error {
	if activity.ID.IsZero() {
		activity.ID = models.NewActivityID()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = s.now()
	}
	if _, err := surrealdb.Create[models.Activity](ctx, s.db, models.TableActivities, activity); err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}
	return nil
}

func (s *SurrealStore) GetActivity(ctx context.Context, id models.ActivityID) (*models.Activity, error) {
	activity, err := surrealdb.Select[models.Activity](ctx, s.db, id.RecordID())
	if err != nil {
		if handleNotFound(err) == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	if activity == nil || activity.ID.IsZero() {
		return nil, nil
	}
	return activity, nil
}

func (s *SurrealStore) ListActivities(ctx context.Context, userID models.UserID, limit int) ([]*models.Activity, error) {
	query := "SELECT * FROM activities WHERE user = $user ORDER BY createdAt DESC" + limitClause(limit)
	activities, err := queryList[models.Activity](ctx, s, query, map[string]any{"user": userID.RecordID()})
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return activities, nil
}

func (s *SurrealStore) DeleteActivity(ctx context.Context, id models.ActivityID) error {
	_, err := surrealdb.Delete[models.Activity](ctx, s.db, id.RecordID())
	return err
}

// Notification operations

func (s *SurrealStore) CreateNotification(ctx context.Context, notification *models.Notification) error {
	if notification.ID.IsZero() {
		notification.ID = models.NewNotificationID()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = s.now()
	}
	if notification.UpdatedAt.IsZero() {
		notification.UpdatedAt = notification.CreatedAt
	}
	if _, err := surrealdb.Create[models.Notification](ctx, s.db, models.TableNotifications, notification); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (s *SurrealStore) GetNotification(ctx context.Context, id models.NotificationID) (*models.Notification, error) {
	notification, err := surrealdb.Select[models.Notification](ctx, s.db, id.RecordID())
	if err != nil {
		if handleNotFound(err) == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	if notification == nil || notification.ID.IsZero() {
		return nil, nil
	}
	return notification, nil
}

func (s *SurrealStore) ListNotifications(ctx context.Context, userID models.UserID, limit int) ([]*models.Notification, error) {
	query := "SELECT * FROM notifications WHERE user = $user ORDER BY createdAt DESC" + limitClause(limit)
	notifications, err := queryList[models.Notification](ctx, s, query, map[string]any{"user": userID.RecordID()})
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

func (s *SurrealStore) UpdateNotification(ctx context.Context, notification *models.Notification) error {
	notification.UpdatedAt = s.now()
	updated, err := surrealdb.Update[models.Notification](ctx, s.db, notification.ID.RecordID(), notification)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}
	if updated == nil {
		return store.ErrNotFound
	}
	return nil
}

type idRow struct {
	ID models.NotificationID `json:"id"`
}

func (s *SurrealStore) MarkAllNotificationsRead(ctx context.Context, userID models.UserID) (int64, error) {
	rows, err := queryList[idRow](ctx, s,
		"UPDATE notifications SET read = true, updatedAt = $now WHERE user = $user AND read = false RETURN id",
		map[string]any{"user": userID.RecordID(), "now": s.now()})
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return int64(len(rows)), nil
}

func (s *SurrealStore) DeleteNotification(ctx context.Context, id models.NotificationID) error {
	_, err := surrealdb.Delete[models.Notification](ctx, s.db, id.RecordID())
	return err
}
