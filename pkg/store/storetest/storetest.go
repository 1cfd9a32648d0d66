// Package storetest is a conformance suite for store.Store implementations.
//
// Each backend package runs it from its own tests:
//
//	func TestConformance(t *testing.T) {
//		storetest.Run(t, func(t *testing.T) store.Store { return newTestStore(t) })
//	}
//
// The factory must return an empty, migrated store for every call.
package storetest

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/store"
)

// Run executes every conformance case as a subtest against a fresh store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	cases := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"UserRoundTrip", testUserRoundTrip},
		{"ListProjectsIncludesMemberships", testListProjectsIncludesMemberships},
		{"ListTasksFilters", testListTasksFilters},
		{"CompleteProjectCascades", testCompleteProjectCascades},
		{"DeleteProjectCascade", testDeleteProjectCascade},
		{"MaxTaskOrderAndReorder", testMaxTaskOrderAndReorder},
		{"CountTasks", testCountTasks},
		{"Notifications", testNotifications},
		{"Activities", testActivities},
		{"DeleteUserCascade", testDeleteUserCascade},
		{"GetManyIgnoresMissing", testGetManyIgnoresMissing},
		{"UpdateNeverInserts", testUpdateNeverInserts},
		{"FeedsNewestFirstWithLimit", testFeedsNewestFirstWithLimit},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			c.fn(t, newStore(t))
		})
	}
}

func seedUser(t *testing.T, s store.Store, email string) *models.User {
	t.Helper()
	u := &models.User{
		Name:         strings.Split(email, "@")[0],
		Email:        email,
		PasswordHash: "x",
		Preferences:  models.DefaultPreferences(),
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func seedProject(t *testing.T, s store.Store, owner *models.User, name string) *models.Project {
	t.Helper()
	p := &models.Project{
		Name:     name,
		Category: models.CategoryTeam,
		Status:   models.ProjectActive,
		Color:    models.DefaultProjectColor,
		OwnerID:  owner.ID,
		Members:  []models.Member{{User: owner.ID, Name: owner.Name, Role: models.RoleOwner, AddedAt: time.Now().UTC()}},
	}
	require.NoError(t, s.CreateProject(context.Background(), p))
	return p
}

func seedTask(t *testing.T, s store.Store, p *models.Project, by models.UserID, title string, status models.TaskStatus, order int) *models.Task {
	t.Helper()
	task := &models.Task{
		Title:     title,
		ProjectID: p.ID,
		Status:    status,
		Priority:  models.PriorityMedium,
		Order:     order,
		CreatedBy: by,
	}
	require.NoError(t, s.CreateTask(context.Background(), task))
	return task
}

func testUserRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()

	u := seedUser(t, s, "alice@example.com")
	assert.False(t, u.ID.IsZero())

	got, err := s.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, models.ThemeLight, got.Preferences.Theme)
	assert.True(t, got.Preferences.Notifications)

	missing, err := s.GetUser(ctx, models.NewUserID())
	require.NoError(t, err)
	assert.Nil(t, missing)

	dup := &models.User{Name: "a2", Email: "alice@example.com", PasswordHash: "x"}
	assert.Error(t, s.CreateUser(ctx, dup), "email is unique")
}

func testListProjectsIncludesMemberships(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice := seedUser(t, s, "alice@example.com")
	bob := seedUser(t, s, "bob@example.com")
	carol := seedUser(t, s, "carol@example.com")

	own := seedProject(t, s, alice, "Alice's")
	shared := seedProject(t, s, bob, "Bob's")
	shared.Members = append(shared.Members, models.Member{User: alice.ID, Role: models.RoleMember})
	require.NoError(t, s.UpdateProject(ctx, shared))
	seedProject(t, s, carol, "Carol's")

	projects, err := s.ListProjects(ctx, alice.ID, 20)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, shared.ID, projects[0].ID, "most recently updated first")
	assert.Equal(t, own.ID, projects[1].ID)

	n, err := s.CountProjects(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	none, err := s.ListProjects(ctx, models.NewUserID(), 20)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func testListTasksFilters(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice := seedUser(t, s, "alice@example.com")
	bob := seedUser(t, s, "bob@example.com")

	active := seedProject(t, s, alice, "Active")
	done := seedProject(t, s, alice, "Done")

	t1 := seedTask(t, s, active, alice.ID, "first", models.TaskToDo, 1)
	t0 := seedTask(t, s, active, alice.ID, "zeroth", models.TaskToDo, 0)
	assigned := seedTask(t, s, active, bob.ID, "for alice", models.TaskInProgress, 0)
	assigned.AssignedTo = []models.UserID{alice.ID}
	require.NoError(t, s.UpdateTask(ctx, assigned))
	seedTask(t, s, active, bob.ID, "bob only", models.TaskToDo, 2)
	seedTask(t, s, done, alice.ID, "old", models.TaskToDo, 0)

	done.Status = models.ProjectCompleted
	require.NoError(t, s.UpdateProject(ctx, done))

	tasks, err := s.ListTasks(ctx, store.TaskFilter{UserID: alice.ID, ExcludeCompletedProjects: true})
	require.NoError(t, err)
	titles := make([]string, len(tasks))
	for i, task := range tasks {
		titles[i] = task.Title
	}
	assert.ElementsMatch(t, []string{"zeroth", "first", "for alice"}, titles)
	assert.Equal(t, 1, tasks[len(tasks)-1].Order)

	tasks, err = s.ListTasks(ctx, store.TaskFilter{UserID: alice.ID, Status: models.TaskToDo, ProjectID: &active.ID})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, t0.ID, tasks[0].ID)
	assert.Equal(t, t1.ID, tasks[1].ID)

	tasks, err = s.ListTasks(ctx, store.TaskFilter{UserID: alice.ID})
	require.NoError(t, err)
	assert.Len(t, tasks, 4, "completed projects are kept without the flag")

	tasks, err = s.ListTasks(ctx, store.TaskFilter{UserID: alice.ID, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func testCompleteProjectCascades(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice := seedUser(t, s, "alice@example.com")
	p := seedProject(t, s, alice, "Website Redesign")
	seedTask(t, s, p, alice.ID, "a", models.TaskToDo, 0)
	seedTask(t, s, p, alice.ID, "b", models.TaskInProgress, 0)
	seedTask(t, s, p, alice.ID, "c", models.TaskCompleted, 0)

	n, err := s.CountIncompleteTasks(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	p.Status = models.ProjectCompleted
	changed, err := s.CompleteProject(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)

	n, err = s.CountIncompleteTasks(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectCompleted, got.Status)
}

func testDeleteProjectCascade(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice := seedUser(t, s, "alice@example.com")
	p := seedProject(t, s, alice, "Doomed")
	other := seedProject(t, s, alice, "Kept")
	seedTask(t, s, p, alice.ID, "a", models.TaskToDo, 0)
	seedTask(t, s, p, alice.ID, "b", models.TaskToDo, 1)
	kept := seedTask(t, s, other, alice.ID, "c", models.TaskToDo, 0)

	deleted, err := s.DeleteProjectCascade(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	got, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	task, err := s.GetTask(ctx, kept.ID)
	require.NoError(t, err)
	assert.NotNil(t, task)
}

func testMaxTaskOrderAndReorder(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice := seedUser(t, s, "alice@example.com")
	p := seedProject(t, s, alice, "Board")

	top, err := s.MaxTaskOrder(ctx, p.ID, models.TaskToDo)
	require.NoError(t, err)
	assert.Equal(t, -1, top)

	a := seedTask(t, s, p, alice.ID, "a", models.TaskToDo, 0)
	b := seedTask(t, s, p, alice.ID, "b", models.TaskToDo, 1)
	c := seedTask(t, s, p, alice.ID, "c", models.TaskInProgress, 0)

	top, err = s.MaxTaskOrder(ctx, p.ID, models.TaskToDo)
	require.NoError(t, err)
	assert.Equal(t, 1, top)

	require.NoError(t, s.ReorderTasks(ctx, p.ID, models.TaskReview, []models.TaskID{c.ID, a.ID, b.ID}))
	tasks, err := s.ListTasks(ctx, store.TaskFilter{UserID: alice.ID, ProjectID: &p.ID, Status: models.TaskReview})
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, []models.TaskID{c.ID, a.ID, b.ID}, []models.TaskID{tasks[0].ID, tasks[1].ID, tasks[2].ID})

	err = s.ReorderTasks(ctx, p.ID, models.TaskToDo, []models.TaskID{a.ID, models.NewTaskID()})
	assert.Error(t, err)
	got, err := s.GetTask(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskReview, got.Status, "failed reorder rolls back")
}

func testCountTasks(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice := seedUser(t, s, "alice@example.com")
	p := seedProject(t, s, alice, "Stats")
	seedTask(t, s, p, alice.ID, "a", models.TaskToDo, 0)
	seedTask(t, s, p, alice.ID, "b", models.TaskCompleted, 0)
	seedTask(t, s, p, alice.ID, "c", models.TaskCompleted, 1)

	total, completed, err := s.CountTasks(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, int64(2), completed)
}

func testNotifications(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice := seedUser(t, s, "alice@example.com")
	base := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.CreateNotification(ctx, &models.Notification{
			UserID:    alice.ID,
			Type:      models.NotificationInfo,
			Title:     fmt.Sprintf("n%d", i),
			Message:   "m",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	list, err := s.ListNotifications(ctx, alice.ID, 50)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "n2", list[0].Title)

	n, err := s.MarkAllNotificationsRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = s.MarkAllNotificationsRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, s.DeleteNotification(ctx, list[0].ID))
	got, err := s.GetNotification(ctx, list[0].ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testActivities(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice := seedUser(t, s, "alice@example.com")
	p := seedProject(t, s, alice, "Log")

	a := &models.Activity{
		UserID:    alice.ID,
		ProjectID: p.ID,
		Action:    "created project",
		Details:   models.JSONMap{"projectName": "Log"},
	}
	require.NoError(t, s.CreateActivity(ctx, a))

	list, err := s.ListActivities(ctx, alice.ID, 20)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Log", list[0].Details["projectName"])
	assert.Nil(t, list[0].TaskID)

	require.NoError(t, s.DeleteActivity(ctx, a.ID))
	got, err := s.GetActivity(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testDeleteUserCascade(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice := seedUser(t, s, "alice@example.com")
	bob := seedUser(t, s, "bob@example.com")

	owned := seedProject(t, s, alice, "Alice's")
	bobs := seedProject(t, s, bob, "Bob's")
	seedTask(t, s, owned, bob.ID, "in alice project", models.TaskToDo, 0)
	mine := seedTask(t, s, bobs, alice.ID, "alice in bob project", models.TaskToDo, 0)
	bobTask := seedTask(t, s, bobs, bob.ID, "bob's own", models.TaskToDo, 1)
	require.NoError(t, s.CreateActivity(ctx, &models.Activity{UserID: alice.ID, ProjectID: owned.ID, Action: "created project"}))
	require.NoError(t, s.CreateNotification(ctx, &models.Notification{UserID: alice.ID, Type: models.NotificationInfo, Title: "t", Message: "m"}))

	require.NoError(t, s.DeleteUserCascade(ctx, alice.ID))

	u, err := s.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Nil(t, u)
	p, err := s.GetProject(ctx, owned.ID)
	require.NoError(t, err)
	assert.Nil(t, p)
	task, err := s.GetTask(ctx, mine.ID)
	require.NoError(t, err)
	assert.Nil(t, task)

	task, err = s.GetTask(ctx, bobTask.ID)
	require.NoError(t, err)
	assert.NotNil(t, task)
	p, err = s.GetProject(ctx, bobs.ID)
	require.NoError(t, err)
	assert.NotNil(t, p)

	acts, err := s.ListActivities(ctx, alice.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, acts)
	notes, err := s.ListNotifications(ctx, alice.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func testGetManyIgnoresMissing(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice := seedUser(t, s, "alice@example.com")

	users, err := s.GetUsers(ctx, []models.UserID{alice.ID, models.NewUserID()})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, alice.ID, users[0].ID)

	users, err = s.GetUsers(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func testUpdateNeverInserts(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice := seedUser(t, s, "alice@example.com")
	p := seedProject(t, s, alice, "Board")
	task := seedTask(t, s, p, alice.ID, "gone", models.TaskToDo, 0)
	n := &models.Notification{UserID: alice.ID, Type: models.NotificationInfo, Title: "t", Message: "m"}
	require.NoError(t, s.CreateNotification(ctx, n))

	require.NoError(t, s.DeleteTask(ctx, task.ID))
	task.Title = "back from the dead"
	assert.ErrorIs(t, s.UpdateTask(ctx, task), store.ErrNotFound)
	gotTask, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, gotTask)

	require.NoError(t, s.DeleteNotification(ctx, n.ID))
	n.Read = true
	assert.ErrorIs(t, s.UpdateNotification(ctx, n), store.ErrNotFound)
	gotNote, err := s.GetNotification(ctx, n.ID)
	require.NoError(t, err)
	assert.Nil(t, gotNote)

	_, err = s.DeleteProjectCascade(ctx, p.ID)
	require.NoError(t, err)
	p.Name = "Resurrected"
	assert.ErrorIs(t, s.UpdateProject(ctx, p), store.ErrNotFound)
	gotProject, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, gotProject)

	require.NoError(t, s.DeleteUserCascade(ctx, alice.ID))
	alice.Name = "Alice again"
	assert.ErrorIs(t, s.UpdateUser(ctx, alice), store.ErrNotFound)
	gotUser, err := s.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Nil(t, gotUser)

	// An update that changes nothing still finds the row.
	bob := seedUser(t, s, "bob@example.com")
	require.NoError(t, s.UpdateUser(ctx, bob))
}

func testFeedsNewestFirstWithLimit(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice := seedUser(t, s, "alice@example.com")
	p := seedProject(t, s, alice, "Busy")
	base := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	const total, limit = 55, 50
	for i := 0; i < total; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.CreateNotification(ctx, &models.Notification{
			UserID:    alice.ID,
			Type:      models.NotificationInfo,
			Title:     fmt.Sprintf("n%d", i),
			Message:   "m",
			CreatedAt: at,
		}))
		require.NoError(t, s.CreateActivity(ctx, &models.Activity{
			UserID:    alice.ID,
			ProjectID: p.ID,
			Action:    fmt.Sprintf("a%d", i),
			CreatedAt: at,
		}))
	}

	notes, err := s.ListNotifications(ctx, alice.ID, limit)
	require.NoError(t, err)
	require.Len(t, notes, limit)
	assert.Equal(t, "n54", notes[0].Title)
	assert.Equal(t, "n5", notes[limit-1].Title)
	for i := 1; i < len(notes); i++ {
		assert.True(t, notes[i-1].CreatedAt.After(notes[i].CreatedAt), "notifications newest first at %d", i)
	}

	acts, err := s.ListActivities(ctx, alice.ID, limit)
	require.NoError(t, err)
	require.Len(t, acts, limit)
	assert.Equal(t, "a54", acts[0].Action)
	assert.Equal(t, "a5", acts[limit-1].Action)

	n, err := s.MarkAllNotificationsRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(total), n, "mark-all-read is not capped by the feed limit")
}
