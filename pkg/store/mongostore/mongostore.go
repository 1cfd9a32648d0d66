// Package mongostore implements [github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/store.Store]
// on MongoDB.
//
// Ids are stored as UUID strings in _id and in every reference field, so documents are
// readable in the shell and filters compare plain strings. The cascading operations use
// session transactions, which require a replica set (a single-node replica set is enough
// for development).
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/store"
)

// MongoStore implements store.Store on a MongoDB database.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time
}

var _ store.Store = (*MongoStore)(nil)

// NewMongoStore connects to uri and uses the database dbName.
func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	return &MongoStore{
		client: client,
		db:     client.Database(dbName),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *MongoStore) users() *mongo.Collection         { return s.db.Collection(models.TableUsers) }
func (s *MongoStore) projects() *mongo.Collection      { return s.db.Collection(models.TableProjects) }
func (s *MongoStore) tasks() *mongo.Collection         { return s.db.Collection(models.TableTasks) }
func (s *MongoStore) activities() *mongo.Collection    { return s.db.Collection(models.TableActivities) }
func (s *MongoStore) notifications() *mongo.Collection { return s.db.Collection(models.TableNotifications) }

// Migrate creates the indexes. Collections are created on first insert.
func (s *MongoStore) Migrate(ctx context.Context) error {
	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.users(): {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		s.projects(): {
			{Keys: bson.D{{Key: "owner", Value: 1}}},
			{Keys: bson.D{{Key: "members.user", Value: 1}}},
			{Keys: bson.D{{Key: "updated_at", Value: -1}}},
		},
		s.tasks(): {
			{Keys: bson.D{{Key: "project", Value: 1}, {Key: "status", Value: 1}, {Key: "order", Value: 1}}},
			{Keys: bson.D{{Key: "created_by", Value: 1}}},
			{Keys: bson.D{{Key: "assigned_to", Value: 1}}},
		},
		s.activities(): {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		s.notifications(): {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "read", Value: 1}}},
		},
	}
	for coll, idx := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client
func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

// findOne decodes the single match into dest; found is false when there is none.
func findOne(ctx context.Context, coll *mongo.Collection, filter any, dest any) (bool, error) {
	err := coll.FindOne(ctx, filter).Decode(dest)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter any, opts ...*options.FindOptions) ([]*T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	out := []*T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func newestFirst(limit int) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return opts
}

// matched turns a replace that found no document into store.ErrNotFound.
func matched(res *mongo.UpdateResult, err error) error {
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// transact runs fn in a session transaction.
func (s *MongoStore) transact(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	return err
}

// User operations

func (s *MongoStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = models.NewUserID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}
	if _, err := s.users().InsertOne(ctx, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *MongoStore) GetUser(ctx context.Context, id models.UserID) (*models.User, error) {
	var user models.User
	ok, err := findOne(ctx, s.users(), bson.M{"_id": id}, &user)
	if !ok {
		return nil, err
	}
	return &user, nil
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	ok, err := findOne(ctx, s.users(), bson.M{"email": email}, &user)
	if !ok {
		return nil, err
	}
	return &user, nil
}

func (s *MongoStore) GetUsers(ctx context.Context, ids []models.UserID) ([]*models.User, error) {
	if len(ids) == 0 {
		return []*models.User{}, nil
	}
	return findAll[models.User](ctx, s.users(), bson.M{"_id": bson.M{"$in": ids}})
}

func (s *MongoStore) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = s.now()
	return matched(s.users().ReplaceOne(ctx, bson.M{"_id": user.ID}, user))
}

func (s *MongoStore) DeleteUserCascade(ctx context.Context, id models.UserID) error {
	return s.transact(ctx, func(sc mongo.SessionContext) error {
		owned, err := s.projects().Distinct(sc, "_id", bson.M{"owner": id})
		if err != nil {
			return err
		}
		taskFilter := bson.M{"$or": bson.A{
			bson.M{"project": bson.M{"$in": owned}},
			bson.M{"created_by": id},
		}}
		if _, err := s.tasks().DeleteMany(sc, taskFilter); err != nil {
			return err
		}
		if _, err := s.projects().DeleteMany(sc, bson.M{"owner": id}); err != nil {
			return err
		}
		if _, err := s.activities().DeleteMany(sc, bson.M{"user": id}); err != nil {
			return err
		}
		if _, err := s.notifications().DeleteMany(sc, bson.M{"user": id}); err != nil {
			return err
		}
		_, err = s.users().DeleteOne(sc, bson.M{"_id": id})
		return err
	})
}

// Project operations

func (s *MongoStore) CreateProject(ctx context.Context, project *models.Project) error {
	if project.ID.IsZero() {
		project.ID = models.NewProjectID()
	}
	if project.CreatedAt.IsZero() {
		project.CreatedAt = s.now()
	}
	if project.UpdatedAt.IsZero() {
		project.UpdatedAt = project.CreatedAt
	}
	if _, err := s.projects().InsertOne(ctx, project); err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

func (s *MongoStore) GetProject(ctx context.Context, id models.ProjectID) (*models.Project, error) {
	var project models.Project
	ok, err := findOne(ctx, s.projects(), bson.M{"_id": id}, &project)
	if !ok {
		return nil, err
	}
	return &project, nil
}

func (s *MongoStore) GetProjects(ctx context.Context, ids []models.ProjectID) ([]*models.Project, error) {
	if len(ids) == 0 {
		return []*models.Project{}, nil
	}
	return findAll[models.Project](ctx, s.projects(), bson.M{"_id": bson.M{"$in": ids}})
}

func (s *MongoStore) UpdateProject(ctx context.Context, project *models.Project) error {
	project.UpdatedAt = s.now()
	return matched(s.projects().ReplaceOne(ctx, bson.M{"_id": project.ID}, project))
}

func (s *MongoStore) CompleteProject(ctx context.Context, project *models.Project) (int64, error) {
	var changed int64
	err := s.transact(ctx, func(sc mongo.SessionContext) error {
		project.UpdatedAt = s.now()
		if err := matched(s.projects().ReplaceOne(sc, bson.M{"_id": project.ID}, project)); err != nil {
			return err
		}
		res, err := s.tasks().UpdateMany(sc,
			bson.M{"project": project.ID, "status": bson.M{"$ne": models.TaskCompleted}},
			bson.M{"$set": bson.M{"status": models.TaskCompleted, "updated_at": project.UpdatedAt}})
		if err != nil {
			return err
		}
		changed = res.ModifiedCount
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to complete project: %w", err)
	}
	return changed, nil
}

func (s *MongoStore) DeleteProjectCascade(ctx context.Context, id models.ProjectID) (int64, error) {
	var deleted int64
	err := s.transact(ctx, func(sc mongo.SessionContext) error {
		res, err := s.tasks().DeleteMany(sc, bson.M{"project": id})
		if err != nil {
			return err
		}
		deleted = res.DeletedCount
		_, err = s.projects().DeleteOne(sc, bson.M{"_id": id})
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete project: %w", err)
	}
	return deleted, nil
}

func membershipFilter(userID models.UserID) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"owner": userID},
		bson.M{"members.user": userID},
	}}
}

func (s *MongoStore) ListProjects(ctx context.Context, userID models.UserID, limit int) ([]*models.Project, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return findAll[models.Project](ctx, s.projects(), membershipFilter(userID), opts)
}

func (s *MongoStore) CountProjects(ctx context.Context, userID models.UserID) (int64, error) {
	return s.projects().CountDocuments(ctx, membershipFilter(userID))
}

// Task operations

func (s *MongoStore) CreateTask(ctx context.Context, task *models.Task) error {
	if task.ID.IsZero() {
		task.ID = models.NewTaskID()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = s.now()
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = task.CreatedAt
	}
	if _, err := s.tasks().InsertOne(ctx, task); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (s *MongoStore) GetTask(ctx context.Context, id models.TaskID) (*models.Task, error) {
	var task models.Task
	ok, err := findOne(ctx, s.tasks(), bson.M{"_id": id}, &task)
	if !ok {
		return nil, err
	}
	return &task, nil
}

func (s *MongoStore) GetTasks(ctx context.Context, ids []models.TaskID) ([]*models.Task, error) {
	if len(ids) == 0 {
		return []*models.Task{}, nil
	}
	return findAll[models.Task](ctx, s.tasks(), bson.M{"_id": bson.M{"$in": ids}})
}

func (s *MongoStore) UpdateTask(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = s.now()
	return matched(s.tasks().ReplaceOne(ctx, bson.M{"_id": task.ID}, task))
}

func (s *MongoStore) DeleteTask(ctx context.Context, id models.TaskID) error {
	_, err := s.tasks().DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// ListTasks resolves the completed projects first; MongoDB cannot filter on a field of
// the referenced project document without an aggregation.
func (s *MongoStore) ListTasks(ctx context.Context, filter store.TaskFilter) ([]*models.Task, error) {
	conds := bson.A{
		bson.M{"$or": bson.A{
			bson.M{"created_by": filter.UserID},
			bson.M{"assigned_to": filter.UserID},
		}},
	}
	if filter.ProjectID != nil {
		conds = append(conds, bson.M{"project": *filter.ProjectID})
	}
	if filter.Status != "" {
		conds = append(conds, bson.M{"status": filter.Status})
	}
	if filter.Priority != "" {
		conds = append(conds, bson.M{"priority": filter.Priority})
	}
	if filter.ExcludeCompletedProjects {
		completed, err := s.projects().Distinct(ctx, "_id", bson.M{"status": models.ProjectCompleted})
		if err != nil {
			return nil, fmt.Errorf("failed to list completed projects: %w", err)
		}
		if len(completed) > 0 {
			conds = append(conds, bson.M{"project": bson.M{"$nin": completed}})
		}
	}

	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "created_at", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	return findAll[models.Task](ctx, s.tasks(), bson.M{"$and": conds}, opts)
}

func (s *MongoStore) CountIncompleteTasks(ctx context.Context, projectID models.ProjectID) (int64, error) {
	return s.tasks().CountDocuments(ctx, bson.M{
		"project": projectID,
		"status":  bson.M{"$ne": models.TaskCompleted},
	})
}

func (s *MongoStore) MaxTaskOrder(ctx context.Context, projectID models.ProjectID, status models.TaskStatus) (int, error) {
	var top struct {
		Order int `bson:"order"`
	}
	err := s.tasks().FindOne(ctx,
		bson.M{"project": projectID, "status": status},
		options.FindOne().SetSort(bson.D{{Key: "order", Value: -1}}).SetProjection(bson.M{"order": 1}),
	).Decode(&top)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return -1, nil
		}
		return 0, err
	}
	return top.Order, nil
}

func (s *MongoStore) ReorderTasks(ctx context.Context, projectID models.ProjectID, status models.TaskStatus, taskIDs []models.TaskID) error {
	now := s.now()
	return s.transact(ctx, func(sc mongo.SessionContext) error {
		for i, id := range taskIDs {
			res, err := s.tasks().UpdateOne(sc,
				bson.M{"_id": id, "project": projectID},
				bson.M{"$set": bson.M{"order": i, "status": status, "updated_at": now}})
			if err != nil {
				return err
			}
			if res.MatchedCount == 0 {
				return fmt.Errorf("task %s not found in project %s", id, projectID)
			}
		}
		return nil
	})
}

func (s *MongoStore) CountTasks(ctx context.Context, createdBy models.UserID) (int64, int64, error) {
	total, err := s.tasks().CountDocuments(ctx, bson.M{"created_by": createdBy})
	if err != nil {
		return 0, 0, err
	}
	completed, err := s.tasks().CountDocuments(ctx, bson.M{"created_by": createdBy, "status": models.TaskCompleted})
	if err != nil {
		return 0, 0, err
	}
	return total, completed, nil
}

// Activity operations

func (s *MongoStore) CreateActivity(ctx context.Context, activity *models.Activity) error {
	if activity.ID.IsZero() {
		activity.ID = models.NewActivityID()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = s.now()
	}
	if _, err := s.activities().InsertOne(ctx, activity); err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}
	return nil
}

func (s *MongoStore) GetActivity(ctx context.Context, id models.ActivityID) (*models.Activity, error) {
	var activity models.Activity
	ok, err := findOne(ctx, s.activities(), bson.M{"_id": id}, &activity)
	if !ok {
		return nil, err
	}
	return &activity, nil
}

func (s *MongoStore) ListActivities(ctx context.Context, userID models.UserID, limit int) ([]*models.Activity, error) {
	return findAll[models.Activity](ctx, s.activities(), bson.M{"user": userID}, newestFirst(limit))
}

func (s *MongoStore) DeleteActivity(ctx context.Context, id models.ActivityID) error {
	_, err := s.activities().DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// Notification operations

func (s *MongoStore) CreateNotification(ctx context.Context, notification *models.Notification) error {
	if notification.ID.IsZero() {
		notification.ID = models.NewNotificationID()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = s.now()
	}
	if notification.UpdatedAt.IsZero() {
		notification.UpdatedAt = notification.CreatedAt
	}
	if _, err := s.notifications().InsertOne(ctx, notification); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (s *MongoStore) GetNotification(ctx context.Context, id models.NotificationID) (*models.Notification, error) {
	var notification models.Notification
	ok, err := findOne(ctx, s.notifications(), bson.M{"_id": id}, &notification)
	if !ok {
		return nil, err
	}
	return &notification, nil
}

func (s *MongoStore) ListNotifications(ctx context.Context, userID models.UserID, limit int) ([]*models.Notification, error) {
	return findAll[models.Notification](ctx, s.notifications(), bson.M{"user": userID}, newestFirst(limit))
}

func (s *MongoStore) UpdateNotification(ctx context.Context, notification *models.Notification) error {
	notification.UpdatedAt = s.now()
	return matched(s.notifications().ReplaceOne(ctx, bson.M{"_id": notification.ID}, notification))
}

func (s *MongoStore) MarkAllNotificationsRead(ctx context.Context, userID models.UserID) (int64, error) {
	res, err := s.notifications().UpdateMany(ctx,
		bson.M{"user": userID, "read": false},
		bson.M{"$set": bson.M{"read": true, "updated_at": s.now()}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *MongoStore) DeleteNotification(ctx context.Context, id models.NotificationID) error {
	_, err := s.notifications().DeleteOne(ctx, bson.M{"_id": id})
	return err
}
