// Package lifecycle holds the business rules of ProjectHub.
//
// Each manager owns one resource: [ProjectManager], [TaskManager], [ActivityRecorder],
// [NotificationDispatcher], [AccountManager] and [Dashboard]. Managers validate input,
// enforce access, call the [store.Store], and fire the side effects of a transition:
// activity entries, notifications and cascades.
//
// # Errors
//
// Failures the caller can act on are returned as *[Error] with a [Kind] and a message
// that is safe to display. Store failures are wrapped as [KindInternal] and keep the
// underlying error, so errors.Is(err, store.ErrReadOnly) still works.
//
// # Side effects
//
// Activity entries and notifications are written after the mutation they describe has
// committed. If writing them fails the failure is logged and the operation still
// succeeds.
package lifecycle

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/auth"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/store"
)

type config struct {
	log    zerolog.Logger
	now    func() time.Time
	hasher auth.Hasher
}

// Option configures the managers built by New.
type Option func(*config)

// WithLogger sets the logger used for side-effect failures.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) { c.log = l }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// WithHasher sets the password hasher used by the AccountManager.
func WithHasher(h auth.Hasher) Option {
	return func(c *config) { c.hasher = h }
}

// Managers bundles every manager wired to one store.
type Managers struct {
	Projects      *ProjectManager
	Tasks         *TaskManager
	Activity      *ActivityRecorder
	Notifications *NotificationDispatcher
	Accounts      *AccountManager
	Dashboard     *Dashboard
}

// New wires the managers together over st.
func New(st store.Store, opts ...Option) *Managers {
	c := config{
		log:    zerolog.Nop(),
		now:    time.Now,
		hasher: auth.NewHasher(auth.DefaultBcryptCost),
	}
	for _, opt := range opts {
		opt(&c)
	}
	now := func() time.Time { return c.now().UTC() }

	activity := &ActivityRecorder{store: st, log: c.log.With().Str("component", "activity").Logger(), now: now}
	notifications := &NotificationDispatcher{store: st, log: c.log.With().Str("component", "notifications").Logger(), now: now}

	return &Managers{
		Projects: &ProjectManager{
			store:         st,
			log:           c.log.With().Str("component", "projects").Logger(),
			now:           now,
			activity:      activity,
			notifications: notifications,
		},
		Tasks: &TaskManager{
			store:         st,
			log:           c.log.With().Str("component", "tasks").Logger(),
			now:           now,
			activity:      activity,
			notifications: notifications,
		},
		Activity:      activity,
		Notifications: notifications,
		Accounts: &AccountManager{
			store:  st,
			log:    c.log.With().Str("component", "accounts").Logger(),
			now:    now,
			hasher: c.hasher,
		},
		Dashboard: &Dashboard{store: st},
	}
}

// List limits.
const (
	DefaultProjectLimit = 20
	MaxProjectLimit     = 100
	DefaultTaskLimit    = 50
	MaxTaskLimit        = 200
	FeedLimit           = 50
)

// ClampLimit returns def for non-positive n and max for n above max.
func ClampLimit(n, def, max int) int {
	switch {
	case n <= 0:
		return def
	case n > max:
		return max
	}
	return n
}

// refs resolves the users, projects and tasks referenced by a list response with one
// batched store call per type.
type refs struct {
	users    map[models.UserID]*models.User
	projects map[models.ProjectID]*models.Project
	tasks    map[models.TaskID]*models.Task
}

func loadRefs(ctx context.Context, st store.Store, userIDs []models.UserID, projectIDs []models.ProjectID, taskIDs []models.TaskID) (*refs, error) {
	r := &refs{
		users:    map[models.UserID]*models.User{},
		projects: map[models.ProjectID]*models.Project{},
		tasks:    map[models.TaskID]*models.Task{},
	}
	if len(userIDs) > 0 {
		users, err := st.GetUsers(ctx, dedupe(userIDs))
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			r.users[u.ID] = u
		}
	}
	if len(projectIDs) > 0 {
		projects, err := st.GetProjects(ctx, dedupe(projectIDs))
		if err != nil {
			return nil, err
		}
		for _, p := range projects {
			r.projects[p.ID] = p
		}
	}
	if len(taskIDs) > 0 {
		tasks, err := st.GetTasks(ctx, dedupe(taskIDs))
		if err != nil {
			return nil, err
		}
		for _, t := range tasks {
			r.tasks[t.ID] = t
		}
	}
	return r, nil
}

func dedupe[T comparable](ids []T) []T {
	seen := make(map[T]struct{}, len(ids))
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
