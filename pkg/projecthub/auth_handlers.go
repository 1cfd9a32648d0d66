package projecthub

import (
	"net/http"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/lifecycle"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/models"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	Success bool         `json:"success,omitempty"`
	Message string       `json:"message,omitempty"`
	User    *models.User `json:"user"`
}

// handleRegister creates the account and logs it in.
//
//	POST /api/auth/register {"name", "email", "password"}
//	201 {"success": true, "user": {...}} with the session cookie
func (a *App) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req lifecycle.RegisterInput
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := a.managers.Accounts.Register(r.Context(), req)
	if err != nil {
		respondErr(w, r, err, "Registration failed")
		return
	}
	if err := a.gate.SetSession(w, user.ID); err != nil {
		respondErr(w, r, err, "Registration failed")
		return
	}
	respondJSON(w, http.StatusCreated, userResponse{Success: true, User: user})
}

func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := a.managers.Accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondErr(w, r, err, "Login failed")
		return
	}
	if err := a.gate.SetSession(w, user.ID); err != nil {
		respondErr(w, r, err, "Login failed")
		return
	}
	respondJSON(w, http.StatusOK, userResponse{Success: true, User: user})
}

// handleLogout only clears the cookie. Tokens are not revoked and stay valid until they
// expire.
func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	a.gate.ClearSession(w)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (a *App) handleMe(w http.ResponseWriter, r *http.Request, userID models.UserID) {
	user, err := a.managers.Accounts.Me(r.Context(), userID)
	if err != nil {
		respondErr(w, r, err, "Failed to fetch user")
		return
	}
	respondJSON(w, http.StatusOK, userResponse{User: user})
}
