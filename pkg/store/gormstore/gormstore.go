// Package gormstore implements [github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/store.Store]
// on top of GORM.
//
// The same code serves PostgreSQL in production and SQLite for local runs and tests; only
// the dialector differs. Member and assignee lists are stored as JSON text columns, so
// membership queries match on the serialized form of the user id:
//
//	members LIKE '%"user":"<uuid>"%'
//	assigned_to LIKE '%"<uuid>"%'
//
// Cascading operations run inside [gorm.DB.Transaction].
//
// # Usage
//
//	s, err := gormstore.NewPostgresStore(dsn, gormstore.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
//	if err := s.Migrate(ctx); err != nil {
//		return err
//	}
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/store"
)

// GormStore implements store.Store using GORM.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

var _ store.Store = (*GormStore)(nil)

type options struct {
	logger        *zerolog.Logger
	slowThreshold time.Duration
	now           func() time.Time
}

// Option configures a GormStore.
type Option func(*options)

// WithLogger routes GORM's slow query and error log through a zerolog logger.
// Without it GORM is silent.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = &l }
}

// WithSlowThreshold sets the duration above which queries are logged as slow.
func WithSlowThreshold(d time.Duration) Option {
	return func(o *options) { o.slowThreshold = d }
}

// WithClock overrides the time source used for UpdatedAt on bulk updates.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// NewPostgresStore connects to PostgreSQL.
func NewPostgresStore(dsn string, opts ...Option) (*GormStore, error) {
	return open(postgres.Open(dsn), false, opts...)
}

// NewSQLiteStore opens a SQLite database. Use a "file:<name>?mode=memory&cache=shared"
// path for a throwaway in-memory database.
func NewSQLiteStore(path string, opts ...Option) (*GormStore, error) {
	return open(sqlite.Open(path), true, opts...)
}

func open(dialector gorm.Dialector, singleConn bool, opts ...Option) (*GormStore, error) {
	o := options{slowThreshold: 200 * time.Millisecond, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return o.now().UTC() },
	}
	if o.logger != nil {
		zl := o.logger.With().Str("component", "gorm").Logger()
		cfg.Logger = gormlogger.New(&zl, gormlogger.Config{
			SlowThreshold:             o.slowThreshold,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if singleConn {
		// SQLite serializes writers; one connection avoids "database is locked".
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return &GormStore{db: db, now: o.now}, nil
}

func (s *GormStore) getDB(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// Migrate creates the five tables and their indexes.
func (s *GormStore) Migrate(ctx context.Context) error {
	return s.getDB(ctx).AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Task{},
		&models.Activity{},
		&models.Notification{},
	)
}

// Ping checks the underlying connection.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// first loads one row into dest, mapping ErrRecordNotFound to found=false.
func first(db *gorm.DB, dest any, query string, args ...any) (bool, error) {
	err := db.Where(query, args...).First(dest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// update writes every column of an existing row. Unlike Save it never falls back to an
// insert, so an update racing a delete cannot bring the row back.
func update(db *gorm.DB, value any) error {
	res := db.Model(value).Select("*").Updates(value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func memberPattern(userID models.UserID) string {
	return fmt.Sprintf(`%%"user":"%s"%%`, userID)
}

func assigneePattern(userID models.UserID) string {
	return fmt.Sprintf(`%%"%s"%%`, userID)
}

// orderColumn quotes the "order" column, a reserved word in both dialects.
var orderColumn = clause.Column{Name: "order"}

// User operations

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	return s.getDB(ctx).Create(user).Error
}

func (s *GormStore) GetUser(ctx context.Context, id models.UserID) (*models.User, error) {
	var user models.User
	ok, err := first(s.getDB(ctx), &user, "id = ?", id)
	if !ok {
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	ok, err := first(s.getDB(ctx), &user, "email = ?", email)
	if !ok {
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) GetUsers(ctx context.Context, ids []models.UserID) ([]*models.User, error) {
	users := make([]*models.User, 0, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	err := s.getDB(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, err
}

func (s *GormStore) UpdateUser(ctx context.Context, user *models.User) error {
	return update(s.getDB(ctx), user)
}

func (s *GormStore) DeleteUserCascade(ctx context.Context, id models.UserID) error {
	return s.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		var owned []models.ProjectID
		if err := tx.Model(&models.Project{}).Where("owner_id = ?", id).Pluck("id", &owned).Error; err != nil {
			return err
		}
		if len(owned) > 0 {
			if err := tx.Where("project_id IN ?", owned).Delete(&models.Task{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", owned).Delete(&models.Project{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("created_by = ?", id).Delete(&models.Task{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Activity{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, "id = ?", id).Error
	})
}

// Project operations

func (s *GormStore) CreateProject(ctx context.Context, project *models.Project) error {
	return s.getDB(ctx).Create(project).Error
}

func (s *GormStore) GetProject(ctx context.Context, id models.ProjectID) (*models.Project, error) {
	var project models.Project
	ok, err := first(s.getDB(ctx), &project, "id = ?", id)
	if !ok {
		return nil, err
	}
	return &project, nil
}

func (s *GormStore) GetProjects(ctx context.Context, ids []models.ProjectID) ([]*models.Project, error) {
	projects := make([]*models.Project, 0, len(ids))
	if len(ids) == 0 {
		return projects, nil
	}
	err := s.getDB(ctx).Where("id IN ?", ids).Find(&projects).Error
	return projects, err
}

func (s *GormStore) UpdateProject(ctx context.Context, project *models.Project) error {
	return update(s.getDB(ctx), project)
}

func (s *GormStore) CompleteProject(ctx context.Context, project *models.Project) (int64, error) {
	var changed int64
	err := s.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := update(tx, project); err != nil {
			return err
		}
		res := tx.Model(&models.Task{}).
			Where("project_id = ? AND status <> ?", project.ID, models.TaskCompleted).
			Updates(map[string]any{"status": models.TaskCompleted, "updated_at": s.now().UTC()})
		if res.Error != nil {
			return res.Error
		}
		changed = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}

func (s *GormStore) DeleteProjectCascade(ctx context.Context, id models.ProjectID) (int64, error) {
	var deleted int64
	err := s.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("project_id = ?", id).Delete(&models.Task{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return tx.Delete(&models.Project{}, "id = ?", id).Error
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (s *GormStore) ListProjects(ctx context.Context, userID models.UserID, limit int) ([]*models.Project, error) {
	projects := []*models.Project{}
	q := s.getDB(ctx).
		Where("owner_id = ? OR members LIKE ?", userID, memberPattern(userID)).
		Order("updated_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&projects).Error
	return projects, err
}

func (s *GormStore) CountProjects(ctx context.Context, userID models.UserID) (int64, error) {
	var n int64
	err := s.getDB(ctx).Model(&models.Project{}).
		Where("owner_id = ? OR members LIKE ?", userID, memberPattern(userID)).
		Count(&n).Error
	return n, err
}

// Task operations

func (s *GormStore) CreateTask(ctx context.Context, task *models.Task) error {
	return s.getDB(ctx).Create(task).Error
}

func (s *GormStore) GetTask(ctx context.Context, id models.TaskID) (*models.Task, error) {
	var task models.Task
	ok, err := first(s.getDB(ctx), &task, "id = ?", id)
	if !ok {
		return nil, err
	}
	return &task, nil
}

func (s *GormStore) GetTasks(ctx context.Context, ids []models.TaskID) ([]*models.Task, error) {
	tasks := make([]*models.Task, 0, len(ids))
	if len(ids) == 0 {
		return tasks, nil
	}
	err := s.getDB(ctx).Where("id IN ?", ids).Find(&tasks).Error
	return tasks, err
}

func (s *GormStore) UpdateTask(ctx context.Context, task *models.Task) error {
	return update(s.getDB(ctx), task)
}

func (s *GormStore) DeleteTask(ctx context.Context, id models.TaskID) error {
	return s.getDB(ctx).Delete(&models.Task{}, "id = ?", id).Error
}

func (s *GormStore) ListTasks(ctx context.Context, filter store.TaskFilter) ([]*models.Task, error) {
	db := s.getDB(ctx)
	q := db.Model(&models.Task{}).
		Where("created_by = ? OR assigned_to LIKE ?", filter.UserID, assigneePattern(filter.UserID))
	if filter.ProjectID != nil {
		q = q.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		q = q.Where("priority = ?", filter.Priority)
	}
	if filter.ExcludeCompletedProjects {
		completed := db.Model(&models.Project{}).Select("id").Where("status = ?", models.ProjectCompleted)
		q = q.Where("project_id NOT IN (?)", completed)
	}
	q = q.Order(clause.OrderByColumn{Column: orderColumn}).Order("created_at DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	tasks := []*models.Task{}
	err := q.Find(&tasks).Error
	return tasks, err
}

func (s *GormStore) CountIncompleteTasks(ctx context.Context, projectID models.ProjectID) (int64, error) {
	var n int64
	err := s.getDB(ctx).Model(&models.Task{}).
		Where("project_id = ? AND status <> ?", projectID, models.TaskCompleted).
		Count(&n).Error
	return n, err
}

func (s *GormStore) MaxTaskOrder(ctx context.Context, projectID models.ProjectID, status models.TaskStatus) (int, error) {
	var top int
	err := s.getDB(ctx).Model(&models.Task{}).
		Select(`COALESCE(MAX("order"), -1)`).
		Where("project_id = ? AND status = ?", projectID, status).
		Scan(&top).Error
	return top, err
}

// ReorderTasks follows the same transactional pattern as the other cascades: every
// position is written or none is.
func (s *GormStore) ReorderTasks(ctx context.Context, projectID models.ProjectID, status models.TaskStatus, taskIDs []models.TaskID) error {
	now := s.now().UTC()
	return s.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		for i, id := range taskIDs {
			res := tx.Model(&models.Task{}).
				Where("id = ? AND project_id = ?", id, projectID).
				Updates(map[string]any{"order": i, "status": status, "updated_at": now})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("task %s not found in project %s", id, projectID)
			}
		}
		return nil
	})
}

func (s *GormStore) CountTasks(ctx context.Context, createdBy models.UserID) (int64, int64, error) {
	var total, completed int64
	db := s.getDB(ctx)
	if err := db.Model(&models.Task{}).Where("created_by = ?", createdBy).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	err := db.Model(&models.Task{}).
		Where("created_by = ? AND status = ?", createdBy, models.TaskCompleted).
		Count(&completed).Error
	if err != nil {
		return 0, 0, err
	}
	return total, completed, nil
}

// Activity operations

func (s *GormStore) CreateActivity(ctx context.Context, activity *models.Activity) error {
	return s.getDB(ctx).Create(activity).Error
}

func (s *GormStore) GetActivity(ctx context.Context, id models.ActivityID) (*models.Activity, error) {
	var activity models.Activity
	ok, err := first(s.getDB(ctx), &activity, "id = ?", id)
	if !ok {
		return nil, err
	}
	return &activity, nil
}

func (s *GormStore) ListActivities(ctx context.Context, userID models.UserID, limit int) ([]*models.Activity, error) {
	activities := []*models.Activity{}
	q := s.getDB(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&activities).Error
	return activities, err
}

func (s *GormStore) DeleteActivity(ctx context.Context, id models.ActivityID) error {
	return s.getDB(ctx).Delete(&models.Activity{}, "id = ?", id).Error
}

// Notification operations

func (s *GormStore) CreateNotification(ctx context.Context, notification *models.Notification) error {
	return s.getDB(ctx).Create(notification).Error
}

func (s *GormStore) GetNotification(ctx context.Context, id models.NotificationID) (*models.Notification, error) {
	var notification models.Notification
	ok, err := first(s.getDB(ctx), &notification, "id = ?", id)
	if !ok {
		return nil, err
	}
	return &notification, nil
}

func (s *GormStore) ListNotifications(ctx context.Context, userID models.UserID, limit int) ([]*models.Notification, error) {
	notifications := []*models.Notification{}
	q := s.getDB(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&notifications).Error
	return notifications, err
}

func (s *GormStore) UpdateNotification(ctx context.Context, notification *models.Notification) error {
	return update(s.getDB(ctx), notification)
}

func (s *GormStore) MarkAllNotificationsRead(ctx context.Context, userID models.UserID) (int64, error) {
	res := s.getDB(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Updates(map[string]any{"read": true, "updated_at": s.now().UTC()})
	return res.RowsAffected, res.Error
}

func (s *GormStore) DeleteNotification(ctx context.Context, id models.NotificationID) error {
	return s.getDB(ctx).Delete(&models.Notification{}, "id = ?", id).Error
}
