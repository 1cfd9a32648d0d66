package projecthub

import (
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/lifecycle"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/models"
)

// avatarFormSize bounds the whole multipart body: the file plus the form overhead.
const avatarFormSize = lifecycle.MaxAvatarSize + 64<<10

type deleteAccountRequest struct {
	Password string `json:"password"`
}

type avatarResponse struct {
	Message string       `json:"message"`
	Avatar  string       `json:"avatar"`
	User    *models.User `json:"user"`
}

func (a *App) handleUpdateSettings(w http.ResponseWriter, r *http.Request, userID models.UserID) {
	var req lifecycle.SettingsInput
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := a.managers.Accounts.UpdateSettings(r.Context(), userID, req)
	if err != nil {
		respondErr(w, r, err, "Failed to update settings")
		return
	}
	respondJSON(w, http.StatusOK, userResponse{Message: "Settings updated successfully", User: user})
}

// handleUploadAvatar accepts a multipart form with either an "avatar" image file, stored
// inline as a data URI, or an "avatarUrl" field pointing at an external image.
func (a *App) handleUploadAvatar(w http.ResponseWriter, r *http.Request, userID models.UserID) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		respondError(w, http.StatusBadRequest, "Invalid content type")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, avatarFormSize)
	if err := r.ParseMultipartForm(avatarFormSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusBadRequest, "File size must be less than 1MB")
			return
		}
		respondError(w, http.StatusBadRequest, "Invalid form data")
		return
	}
	defer r.MultipartForm.RemoveAll()

	var (
		user    *models.User
		message string
	)
	file, header, err := r.FormFile("avatar")
	switch {
	case err == nil:
		defer file.Close()
		data, readErr := io.ReadAll(file)
		if readErr != nil {
			respondError(w, http.StatusBadRequest, "Invalid form data")
			return
		}
		user, err = a.managers.Accounts.UploadAvatar(r.Context(), userID, header.Header.Get("Content-Type"), data)
		message = "Avatar uploaded successfully"
	case errors.Is(err, http.ErrMissingFile):
		user, err = a.managers.Accounts.SetAvatarURL(r.Context(), userID, r.FormValue("avatarUrl"))
		message = "Avatar updated successfully"
	default:
		respondError(w, http.StatusBadRequest, "Invalid form data")
		return
	}
	if err != nil {
		respondErr(w, r, err, "Failed to upload avatar")
		return
	}
	respondJSON(w, http.StatusOK, avatarResponse{Message: message, Avatar: user.Avatar, User: user})
}

// handleDeleteAccount removes the account and everything it owns, then clears the session.
func (a *App) handleDeleteAccount(w http.ResponseWriter, r *http.Request, userID models.UserID) {
	var req deleteAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := a.managers.Accounts.DeleteAccount(r.Context(), userID, req.Password); err != nil {
		respondErr(w, r, err, "Failed to delete account")
		return
	}
	a.gate.ClearSession(w)
	respondJSON(w, http.StatusOK, map[string]string{"message": "Account deleted successfully"})
}

func (a *App) handleDashboardStats(w http.ResponseWriter, r *http.Request, userID models.UserID) {
	stats, err := a.managers.Dashboard.Stats(r.Context(), userID)
	if err != nil {
		respondErr(w, r, err, "Failed to fetch stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
