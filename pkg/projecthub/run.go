package projecthub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// shutdownTimeout is how long in-flight requests get once the context is cancelled.
const shutdownTimeout = 5 * time.Second

// Router builds the HTTP handler with every route and the middleware chain.
//
//	POST   /api/auth/register                  create an account and start a session
//	POST   /api/auth/login                     start a session
//	POST   /api/auth/logout                    clear the session cookie
//	GET    /api/auth/me                        current account
//	GET    /api/projects                       projects the caller belongs to (?limit=)
//	POST   /api/projects                       create a project
//	GET    /api/projects/{id}                  one project
//	PATCH  /api/projects/{id}                  partial update, completion with {confirm}
//	DELETE /api/projects/{id}                  delete with tasks (owner only)
//	PUT    /api/projects/{id}/tasks/order      reorder one kanban column
//	GET    /api/tasks                          tasks (?project=&status=&priority=&includeCompletedProjects=&limit=)
//	POST   /api/tasks                          create a task
//	GET    /api/tasks/{id}                     one task
//	PATCH  /api/tasks/{id}                     partial update
//	DELETE /api/tasks/{id}                     delete a task
//	GET    /api/activity                       activity feed of the caller
//	DELETE /api/activity/{id}                  delete an own activity entry
//	GET    /api/notifications                  notifications with relative time
//	POST   /api/notifications                  create a notification for the caller
//	PATCH  /api/notifications/mark-all-read    mark every notification read
//	PATCH  /api/notifications/{id}             mark one notification read
//	DELETE /api/notifications/{id}             delete one notification
//	PATCH  /api/user/settings                  name, email and preferences
//	POST   /api/user/avatar                    multipart avatar upload or avatarUrl
//	DELETE /api/user/delete                    delete the account and owned data
//	GET    /api/dashboard/stats                dashboard counters
//	GET    /health, /api/health                liveness and store reachability
//	GET    /metrics                            Prometheus metrics
func (a *App) Router() http.Handler {
	router := mux.NewRouter()
	router.Use(a.metrics.middleware)
	router.Use(a.gate.Middleware)

	router.Handle("/metrics", a.metrics.handler()).Methods(http.MethodGet)
	router.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)

	// Auth routes
	api.HandleFunc("/auth/register", a.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", a.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", a.handleLogout).Methods(http.MethodPost)
	api.HandleFunc("/auth/me", requireUser(a.handleMe)).Methods(http.MethodGet)

	// Project routes
	api.HandleFunc("/projects", requireUser(a.handleListProjects)).Methods(http.MethodGet)
	api.HandleFunc("/projects", requireUser(a.handleCreateProject)).Methods(http.MethodPost)
	api.HandleFunc("/projects/{id}", requireUser(a.handleGetProject)).Methods(http.MethodGet)
	api.HandleFunc("/projects/{id}", requireUser(a.handleUpdateProject)).Methods(http.MethodPatch)
	api.HandleFunc("/projects/{id}", requireUser(a.handleDeleteProject)).Methods(http.MethodDelete)
	api.HandleFunc("/projects/{id}/tasks/order", requireUser(a.handleReorderTasks)).Methods(http.MethodPut)

	// Task routes
	api.HandleFunc("/tasks", requireUser(a.handleListTasks)).Methods(http.MethodGet)
	api.HandleFunc("/tasks", requireUser(a.handleCreateTask)).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{id}", requireUser(a.handleGetTask)).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id}", requireUser(a.handleUpdateTask)).Methods(http.MethodPatch)
	api.HandleFunc("/tasks/{id}", requireUser(a.handleDeleteTask)).Methods(http.MethodDelete)

	// Activity routes
	api.HandleFunc("/activity", requireUser(a.handleListActivity)).Methods(http.MethodGet)
	api.HandleFunc("/activity/{id}", requireUser(a.handleDeleteActivity)).Methods(http.MethodDelete)

	// Notification routes; mark-all-read must be registered before {id}
	api.HandleFunc("/notifications", requireUser(a.handleListNotifications)).Methods(http.MethodGet)
	api.HandleFunc("/notifications", requireUser(a.handleCreateNotification)).Methods(http.MethodPost)
	api.HandleFunc("/notifications/mark-all-read", requireUser(a.handleMarkAllRead)).Methods(http.MethodPatch)
	api.HandleFunc("/notifications/{id}", requireUser(a.handleMarkRead)).Methods(http.MethodPatch)
	api.HandleFunc("/notifications/{id}", requireUser(a.handleDeleteNotification)).Methods(http.MethodDelete)

	// User routes
	api.HandleFunc("/user/settings", requireUser(a.handleUpdateSettings)).Methods(http.MethodPatch)
	api.HandleFunc("/user/avatar", requireUser(a.handleUploadAvatar)).Methods(http.MethodPost)
	api.HandleFunc("/user/delete", requireUser(a.handleDeleteAccount)).Methods(http.MethodDelete)

	api.HandleFunc("/dashboard/stats", requireUser(a.handleDashboardStats)).Methods(http.MethodGet)

	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "Not found")
	})

	var h http.Handler = router
	h = cors(a.config.CORSOrigins, h)
	h = securityHeaders(h)
	h = recoverer(h)
	return logging(a.log, h)
}

// Run serves the API on the configured port until ctx is cancelled, then shuts down
// gracefully.
func (a *App) Run(ctx context.Context, cmd *RunCommand) error {
	addr := fmt.Sprintf(":%s", a.config.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.log.Info().
		Str("addr", addr).
		Str("store", a.config.Store).
		Bool("read_only", a.IsReadOnly()).
		Msg("starting ProjectHub server")

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}
}
