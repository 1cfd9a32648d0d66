package lifecycle

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/store"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/validate"
)

// NotificationInput is the payload of a new notification.
type NotificationInput struct {
	Type           models.NotificationType `json:"type"`
	Title          string                  `json:"title"`
	Message        string                  `json:"message"`
	Link           string                  `json:"link,omitempty"`
	RelatedProject *models.ProjectID       `json:"relatedProject,omitempty"`
	RelatedTask    *models.TaskID          `json:"relatedTask,omitempty"`
}

// NotificationDispatcher stores user notifications and fires the ones raised by
// project and task events.
type NotificationDispatcher struct {
	store store.Store
	log   zerolog.Logger
	now   func() time.Time
}

func (d *NotificationDispatcher) build(userID models.UserID, in NotificationInput) (*models.Notification, error) {
	if !validate.Present(in.Title, in.Message) {
		return nil, validation("Title and message are required")
	}
	if in.Type == "" {
		in.Type = models.NotificationInfo
	}
	if !in.Type.Valid() {
		return nil, validation("Invalid notification type")
	}
	now := d.now()
	return &models.Notification{
		UserID:         userID,
		Type:           in.Type,
		Title:          strings.TrimSpace(in.Title),
		Message:        strings.TrimSpace(in.Message),
		Link:           in.Link,
		RelatedProject: in.RelatedProject,
		RelatedTask:    in.RelatedTask,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Create stores a notification for the user.
func (d *NotificationDispatcher) Create(ctx context.Context, userID models.UserID, in NotificationInput) (*models.Notification, error) {
	n, err := d.build(userID, in)
	if err != nil {
		return nil, err
	}
	if err := d.store.CreateNotification(ctx, n); err != nil {
		return nil, internal("failed to create notification", err)
	}
	return n, nil
}

// Notify sends in to every recipient that has notifications enabled. Failures are
// logged, never returned.
func (d *NotificationDispatcher) Notify(ctx context.Context, recipients []models.UserID, in NotificationInput) {
	if len(recipients) == 0 {
		return
	}
	users, err := d.store.GetUsers(ctx, dedupe(recipients))
	if err != nil {
		d.log.Error().Err(err).Str("title", in.Title).Msg("failed to load notification recipients")
		return
	}
	for _, u := range users {
		if !u.Preferences.Notifications {
			continue
		}
		n, err := d.build(u.ID, in)
		if err == nil {
			err = d.store.CreateNotification(ctx, n)
		}
		if err != nil {
			d.log.Error().Err(err).Stringer("user", u.ID).Str("title", in.Title).Msg("failed to dispatch notification")
		}
	}
}

// List returns the newest notifications of the user, each with its age in words.
func (d *NotificationDispatcher) List(ctx context.Context, userID models.UserID) ([]*models.NotificationView, error) {
	ns, err := d.store.ListNotifications(ctx, userID, FeedLimit)
	if err != nil {
		return nil, internal("failed to list notifications", err)
	}
	now := d.now()
	views := make([]*models.NotificationView, 0, len(ns))
	for _, n := range ns {
		views = append(views, &models.NotificationView{
			Notification: *n,
			Time:         RelativeTime(n.CreatedAt, now),
		})
	}
	return views, nil
}

func (d *NotificationDispatcher) owned(ctx context.Context, userID models.UserID, id models.NotificationID) (*models.Notification, error) {
	n, err := d.store.GetNotification(ctx, id)
	if err != nil {
		return nil, internal("failed to load notification", err)
	}
	if n == nil || n.UserID != userID {
		return nil, notFound(msgNotificationNotFound)
	}
	return n, nil
}

// MarkRead flags one notification of the user as read.
func (d *NotificationDispatcher) MarkRead(ctx context.Context, userID models.UserID, id models.NotificationID) (*models.Notification, error) {
	n, err := d.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if n.Read {
		return n, nil
	}
	n.Read = true
	n.UpdatedAt = d.now()
	if err := d.store.UpdateNotification(ctx, n); err != nil {
		return nil, updateFailed("failed to update notification", msgNotificationNotFound, err)
	}
	return n, nil
}

// MarkAllRead flags every unread notification of the user and returns how many changed.
func (d *NotificationDispatcher) MarkAllRead(ctx context.Context, userID models.UserID) (int64, error) {
	count, err := d.store.MarkAllNotificationsRead(ctx, userID)
	if err != nil {
		return 0, internal("failed to mark notifications read", err)
	}
	return count, nil
}

// Delete removes one notification of the user.
func (d *NotificationDispatcher) Delete(ctx context.Context, userID models.UserID, id models.NotificationID) error {
	if _, err := d.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := d.store.DeleteNotification(ctx, id); err != nil {
		return internal("failed to delete notification", err)
	}
	return nil
}
