package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/lifecycle"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/models"
)

// ListActivity returns the activity feed of the caller's projects, newest first.
func (c *Client) ListActivity(ctx context.Context) ([]*models.ActivityView, error) {
	var result struct {
		Activities []*models.ActivityView `json:"activities"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/activity", nil, &result); err != nil {
		return nil, err
	}
	return result.Activities, nil
}

func (c *Client) DeleteActivity(ctx context.Context, id models.ActivityID) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/api/activity/%s", id), nil, nil)
}

func (c *Client) ListNotifications(ctx context.Context) ([]*models.NotificationView, error) {
	var result struct {
		Notifications []*models.NotificationView `json:"notifications"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/notifications", nil, &result); err != nil {
		return nil, err
	}
	return result.Notifications, nil
}

type notificationEnvelope struct {
	Notification *models.Notification `json:"notification"`
}

func (c *Client) CreateNotification(ctx context.Context, in lifecycle.NotificationInput) (*models.Notification, error) {
	var result notificationEnvelope
	if err := c.call(ctx, http.MethodPost, "/api/notifications", in, &result); err != nil {
		return nil, err
	}
	return result.Notification, nil
}

// MarkAllNotificationsRead returns the number of notifications that changed.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) (int64, error) {
	var result struct {
		Count int64 `json:"count"`
	}
	if err := c.call(ctx, http.MethodPatch, "/api/notifications/mark-all-read", nil, &result); err != nil {
		return 0, err
	}
	return result.Count, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, id models.NotificationID) (*models.Notification, error) {
	var result notificationEnvelope
	if err := c.call(ctx, http.MethodPatch, fmt.Sprintf("/api/notifications/%s", id), nil, &result); err != nil {
		return nil, err
	}
	return result.Notification, nil
}

func (c *Client) DeleteNotification(ctx context.Context, id models.NotificationID) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/api/notifications/%s", id), nil, nil)
}
