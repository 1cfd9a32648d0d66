package projecthub

import (
	"net/http"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/lifecycle"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/models"
)

func (a *App) handleListActivity(w http.ResponseWriter, r *http.Request, userID models.UserID) {
	activities, err := a.managers.Activity.List(r.Context(), userID)
	if err != nil {
		respondErr(w, r, err, "Failed to fetch activities")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"activities": activities})
}

func (a *App) handleDeleteActivity(w http.ResponseWriter, r *http.Request, userID models.UserID) {
	id, ok := pathID(w, r, models.ParseActivityID, "Activity not found")
	if !ok {
		return
	}

	if err := a.managers.Activity.Delete(r.Context(), userID, id); err != nil {
		respondErr(w, r, err, "Failed to delete activity")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Activity deleted successfully"})
}

func (a *App) handleListNotifications(w http.ResponseWriter, r *http.Request, userID models.UserID) {
	notifications, err := a.managers.Notifications.List(r.Context(), userID)
	if err != nil {
		respondErr(w, r, err, "Failed to fetch notifications")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}

func (a *App) handleCreateNotification(w http.ResponseWriter, r *http.Request, userID models.UserID) {
	var req lifecycle.NotificationInput
	if !decodeJSON(w, r, &req) {
		return
	}

	notification, err := a.managers.Notifications.Create(r.Context(), userID, req)
	if err != nil {
		respondErr(w, r, err, "Failed to create notification")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"notification": notification})
}

func (a *App) handleMarkAllRead(w http.ResponseWriter, r *http.Request, userID models.UserID) {
	count, err := a.managers.Notifications.MarkAllRead(r.Context(), userID)
	if err != nil {
		respondErr(w, r, err, "Failed to mark all as read")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "All notifications marked as read",
		"count":   count,
	})
}

func (a *App) handleMarkRead(w http.ResponseWriter, r *http.Request, userID models.UserID) {
	id, ok := pathID(w, r, models.ParseNotificationID, "Notification not found")
	if !ok {
		return
	}

	notification, err := a.managers.Notifications.MarkRead(r.Context(), userID, id)
	if err != nil {
		respondErr(w, r, err, "Failed to update notification")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"notification": notification})
}

func (a *App) handleDeleteNotification(w http.ResponseWriter, r *http.Request, userID models.UserID) {
	id, ok := pathID(w, r, models.ParseNotificationID, "Notification not found")
	if !ok {
		return
	}

	if err := a.managers.Notifications.Delete(r.Context(), userID, id); err != nil {
		respondErr(w, r, err, "Failed to delete notification")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
