// Package projecthubtesting provides simulated users for end-to-end and load tests of ProjectHub.
//
// A [VirtualUser] drives the public API through [github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/client]
// the way a person works a kanban board: it registers, creates projects, adds tasks, moves
// them between columns, reorders columns, completes and deletes projects. It tracks
// everything it created or deleted so [VirtualUser.VerifyAllData] can check the server
// agrees.
//
// Behavior is deterministic per user index. Even-indexed users lean toward creating,
// odd-indexed users delete more, so a run with several users exercises both paths and can be
// replayed exactly:
//
//	vu, err := projecthubtesting.NewVirtualUser(0, srv.URL)
//	if err != nil {
//		t.Fatal(err)
//	}
//	if err := vu.RunScenario(ctx); err != nil {
//		t.Fatalf("virtual user scenario failed: %v", err)
//	}
//
// Virtual users are independent, so many can run concurrently against one server.
package projecthubtesting

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/client"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/lifecycle"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/models"
)

var (
	categories = []models.ProjectCategory{models.CategoryStudent, models.CategoryTeam, models.CategoryBusiness}
	priorities = []models.TaskPriority{models.PriorityLow, models.PriorityMedium, models.PriorityHigh, models.PriorityUrgent}
	columns    = []models.TaskStatus{models.TaskToDo, models.TaskInProgress, models.TaskReview, models.TaskCompleted}
)

// VirtualUser is a simulated user with its own session and a record of what it changed.
type VirtualUser struct {
	Index    int // position in the run, not the account ID
	Name     string
	Email    string
	Password string
	Client   *client.Client
	RNG      *rand.Rand // seeded with Index

	User *models.User

	Projects []*models.Project
	Tasks    map[models.ProjectID][]*models.Task

	DeletedProjects []models.ProjectID
	DeletedTasks    []models.TaskID

	mu sync.RWMutex
}

// NewVirtualUser creates the user with index against the server at baseURL.
func NewVirtualUser(index int, baseURL string) (*VirtualUser, error) {
	c, err := client.NewClient(baseURL)
	if err != nil {
		return nil, err
	}

	// timestamp keeps emails unique across runs against a persistent server
	timestamp := time.Now().UnixNano()

	return &VirtualUser{
		Index:    index,
		Name:     fmt.Sprintf("Virtual User %d", index),
		Email:    fmt.Sprintf("user%d-%d@test.com", index, timestamp),
		Password: fmt.Sprintf("password%d", index),
		Client:   c,
		RNG:      rand.New(rand.NewSource(int64(index))),
		Tasks:    make(map[models.ProjectID][]*models.Task),
	}, nil
}

// Register creates the account and starts a session.
func (vu *VirtualUser) Register(ctx context.Context) error {
	user, err := vu.Client.Register(ctx, vu.Name, vu.Email, vu.Password)
	if err != nil {
		return fmt.Errorf("virtual user %d register failed: %w", vu.Index, err)
	}

	vu.mu.Lock()
	vu.User = user
	vu.mu.Unlock()
	return nil
}

// Login starts a new session for the existing account.
func (vu *VirtualUser) Login(ctx context.Context) error {
	user, err := vu.Client.Login(ctx, vu.Email, vu.Password)
	if err != nil {
		return fmt.Errorf("virtual user %d login failed: %w", vu.Index, err)
	}

	vu.mu.Lock()
	vu.User = user
	vu.mu.Unlock()
	return nil
}

func (vu *VirtualUser) Logout(ctx context.Context) error {
	if err := vu.Client.Logout(ctx); err != nil {
		return fmt.Errorf("virtual user %d logout failed: %w", vu.Index, err)
	}

	vu.mu.Lock()
	vu.User = nil
	vu.mu.Unlock()
	return nil
}

// CreateProject creates a project with a random category.
func (vu *VirtualUser) CreateProject(ctx context.Context, name string) (*models.Project, error) {
	in := lifecycle.ProjectInput{
		Name:        name,
		Description: fmt.Sprintf("Created by virtual user %d", vu.Index),
		Category:    categories[vu.RNG.Intn(len(categories))],
	}
	created, err := vu.Client.CreateProject(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("virtual user %d failed to create project: %w", vu.Index, err)
	}

	vu.mu.Lock()
	vu.Projects = append(vu.Projects, created)
	vu.mu.Unlock()
	return created, nil
}

// RenameProject changes the project name and records the result.
func (vu *VirtualUser) RenameProject(ctx context.Context, project *models.Project, name string) error {
	updated, err := vu.Client.UpdateProject(ctx, project.ID, map[string]any{"name": name})
	if err != nil {
		return fmt.Errorf("virtual user %d failed to rename project: %w", vu.Index, err)
	}
	if updated.Name != name {
		return fmt.Errorf("virtual user %d: project name is %q after rename to %q", vu.Index, updated.Name, name)
	}

	vu.replaceProject(updated)
	return nil
}

// CompleteProject completes the project. When it has open tasks the first attempt must be
// refused with a confirmation request, and the confirmed attempt must close every task.
func (vu *VirtualUser) CompleteProject(ctx context.Context, projectID models.ProjectID) error {
	open := 0
	vu.mu.RLock()
	for _, t := range vu.Tasks[projectID] {
		if t.Status != models.TaskCompleted {
			open++
		}
	}
	vu.mu.RUnlock()

	if open > 0 {
		_, err := vu.Client.CompleteProject(ctx, projectID, false)
		var apiErr *client.APIError
		if !errors.As(err, &apiErr) || !apiErr.RequiresConfirmation || apiErr.IncompleteTasks != int64(open) {
			return fmt.Errorf("virtual user %d: completing project with %d open tasks returned %v", vu.Index, open, err)
		}
	}

	updated, err := vu.Client.CompleteProject(ctx, projectID, true)
	if err != nil {
		return fmt.Errorf("virtual user %d failed to complete project: %w", vu.Index, err)
	}
	vu.replaceProject(updated)
	return vu.refreshTasks(ctx, projectID)
}

func (vu *VirtualUser) DeleteProject(ctx context.Context, projectID models.ProjectID) error {
	if err := vu.Client.DeleteProject(ctx, projectID); err != nil {
		return fmt.Errorf("virtual user %d failed to delete project: %w", vu.Index, err)
	}

	vu.mu.Lock()
	defer vu.mu.Unlock()
	vu.DeletedProjects = append(vu.DeletedProjects, projectID)
	for _, t := range vu.Tasks[projectID] {
		vu.DeletedTasks = append(vu.DeletedTasks, t.ID)
	}
	delete(vu.Tasks, projectID)
	kept := vu.Projects[:0]
	for _, p := range vu.Projects {
		if p.ID != projectID {
			kept = append(kept, p)
		}
	}
	vu.Projects = kept
	return nil
}

// CreateTask adds a task with a random priority to the To Do column of the project.
func (vu *VirtualUser) CreateTask(ctx context.Context, projectID models.ProjectID, title string) (*models.Task, error) {
	in := lifecycle.TaskInput{
		Title:    title,
		Project:  projectID.String(),
		Priority: priorities[vu.RNG.Intn(len(priorities))],
		Tags:     []string{fmt.Sprintf("vu-%d", vu.Index)},
	}
	if vu.RNG.Float32() < 0.5 {
		in.AssignedTo = []models.UserID{vu.User.ID}
	}
	created, err := vu.Client.CreateTask(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("virtual user %d failed to create task: %w", vu.Index, err)
	}

	vu.mu.Lock()
	vu.Tasks[projectID] = append(vu.Tasks[projectID], created)
	vu.mu.Unlock()
	return created, nil
}

// MoveTask puts the task into a random other column.
func (vu *VirtualUser) MoveTask(ctx context.Context, task *models.Task) error {
	status := columns[vu.RNG.Intn(len(columns))]
	if status == task.Status {
		status = columns[(vu.RNG.Intn(len(columns)-1)+1+indexOf(columns, task.Status))%len(columns)]
	}
	updated, err := vu.Client.MoveTask(ctx, task.ID, status)
	if err != nil {
		return fmt.Errorf("virtual user %d failed to move task: %w", vu.Index, err)
	}
	if updated.Status != status {
		return fmt.Errorf("virtual user %d: task status is %q after move to %q", vu.Index, updated.Status, status)
	}

	vu.replaceTask(updated)
	return nil
}

func (vu *VirtualUser) DeleteTask(ctx context.Context, task *models.Task) error {
	if err := vu.Client.DeleteTask(ctx, task.ID); err != nil {
		return fmt.Errorf("virtual user %d failed to delete task: %w", vu.Index, err)
	}

	vu.mu.Lock()
	defer vu.mu.Unlock()
	vu.DeletedTasks = append(vu.DeletedTasks, task.ID)
	tasks := vu.Tasks[task.ProjectID]
	kept := make([]*models.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ID != task.ID {
			kept = append(kept, t)
		}
	}
	vu.Tasks[task.ProjectID] = kept
	return nil
}

// ReorderColumn shuffles the tasks of one status column and checks the server numbers
// them in the new sequence.
func (vu *VirtualUser) ReorderColumn(ctx context.Context, projectID models.ProjectID, status models.TaskStatus) error {
	var ids []models.TaskID
	vu.mu.RLock()
	for _, t := range vu.Tasks[projectID] {
		if t.Status == status {
			ids = append(ids, t.ID)
		}
	}
	vu.mu.RUnlock()

	if len(ids) < 2 {
		return nil
	}
	vu.RNG.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})

	reordered, err := vu.Client.ReorderTasks(ctx, projectID, status, ids)
	if err != nil {
		return fmt.Errorf("virtual user %d failed to reorder tasks: %w", vu.Index, err)
	}
	if len(reordered) != len(ids) {
		return fmt.Errorf("virtual user %d: reorder returned %d tasks, want %d", vu.Index, len(reordered), len(ids))
	}
	for i, t := range reordered {
		if t.ID != ids[i] || t.Order != i {
			return fmt.Errorf("virtual user %d: task %s at position %d has order %d", vu.Index, t.ID, i, t.Order)
		}
		vu.replaceTask(t)
	}
	return nil
}

func (vu *VirtualUser) refreshTasks(ctx context.Context, projectID models.ProjectID) error {
	views, err := vu.Client.ListTasks(ctx, client.TaskFilter{
		Project:                  &projectID,
		IncludeCompletedProjects: true,
		Limit:                    lifecycle.MaxTaskLimit,
	})
	if err != nil {
		return fmt.Errorf("virtual user %d failed to list tasks: %w", vu.Index, err)
	}
	tasks := make([]*models.Task, 0, len(views))
	for _, v := range views {
		t := v.Task
		t.ProjectID = projectID
		tasks = append(tasks, &t)
	}

	vu.mu.Lock()
	vu.Tasks[projectID] = tasks
	vu.mu.Unlock()
	return nil
}

func (vu *VirtualUser) replaceProject(updated *models.Project) {
	vu.mu.Lock()
	defer vu.mu.Unlock()
	for i, p := range vu.Projects {
		if p.ID == updated.ID {
			vu.Projects[i] = updated
		}
	}
}

func (vu *VirtualUser) replaceTask(updated *models.Task) {
	vu.mu.Lock()
	defer vu.mu.Unlock()
	tasks := vu.Tasks[updated.ProjectID]
	for i, t := range tasks {
		if t.ID == updated.ID {
			tasks[i] = updated
		}
	}
}

func indexOf[T comparable](values []T, v T) int {
	for i, x := range values {
		if x == v {
			return i
		}
	}
	return 0
}

// VerifyAllData checks that the server holds exactly the projects and tasks this user
// created and did not delete, with the statuses it last set.
func (vu *VirtualUser) VerifyAllData(ctx context.Context) error {
	me, err := vu.Client.Me(ctx)
	if err != nil {
		return fmt.Errorf("virtual user %d failed to get current user: %w", vu.Index, err)
	}
	if me.ID != vu.User.ID {
		return fmt.Errorf("virtual user %d ID mismatch: expected %s, got %s", vu.Index, vu.User.ID, me.ID)
	}

	vu.mu.RLock()
	defer vu.mu.RUnlock()

	projects, err := vu.Client.ListProjects(ctx, lifecycle.MaxProjectLimit)
	if err != nil {
		return fmt.Errorf("virtual user %d failed to list projects: %w", vu.Index, err)
	}
	if len(projects) != len(vu.Projects) {
		return fmt.Errorf("virtual user %d project count mismatch: expected %d, got %d", vu.Index, len(vu.Projects), len(projects))
	}

	for _, id := range vu.DeletedProjects {
		if _, err := vu.Client.GetProject(ctx, id); client.StatusOf(err) != http.StatusNotFound {
			return fmt.Errorf("virtual user %d: deleted project %s is still readable (%v)", vu.Index, id, err)
		}
	}
	for _, id := range vu.DeletedTasks {
		if _, err := vu.Client.GetTask(ctx, id); client.StatusOf(err) != http.StatusNotFound {
			return fmt.Errorf("virtual user %d: deleted task %s is still readable (%v)", vu.Index, id, err)
		}
	}

	var created int64
	for _, project := range vu.Projects {
		views, err := vu.Client.ListTasks(ctx, client.TaskFilter{
			Project:                  &project.ID,
			IncludeCompletedProjects: true,
			Limit:                    lifecycle.MaxTaskLimit,
		})
		if err != nil {
			return fmt.Errorf("virtual user %d failed to list tasks in project %s: %w", vu.Index, project.ID, err)
		}
		expected := vu.Tasks[project.ID]
		if len(views) != len(expected) {
			return fmt.Errorf("virtual user %d task count mismatch in project %s: expected %d, got %d",
				vu.Index, project.ID, len(expected), len(views))
		}
		status := make(map[models.TaskID]models.TaskStatus, len(views))
		for _, v := range views {
			status[v.ID] = v.Status
		}
		for _, t := range expected {
			if status[t.ID] != t.Status {
				return fmt.Errorf("virtual user %d: task %s has status %q, expected %q", vu.Index, t.ID, status[t.ID], t.Status)
			}
			if project.Status == models.ProjectCompleted && t.Status != models.TaskCompleted {
				return fmt.Errorf("virtual user %d: task %s is open in completed project %s", vu.Index, t.ID, project.ID)
			}
		}
		created += int64(len(expected))
	}

	stats, err := vu.Client.DashboardStats(ctx)
	if err != nil {
		return fmt.Errorf("virtual user %d failed to get dashboard stats: %w", vu.Index, err)
	}
	if stats.Projects != int64(len(vu.Projects)) || stats.Tasks != created {
		return fmt.Errorf("virtual user %d stats mismatch: expected %d projects and %d tasks, got %+v",
			vu.Index, len(vu.Projects), created, stats)
	}
	return nil
}

// RunScenario registers the user and works through a few projects, then verifies.
func (vu *VirtualUser) RunScenario(ctx context.Context) error {
	if err := vu.Register(ctx); err != nil {
		return err
	}

	// even indices create more, odd indices delete more
	createBias := vu.Index%2 == 0

	numProjects := vu.RNG.Intn(3) + 1
	for i := 0; i < numProjects; i++ {
		project, err := vu.CreateProject(ctx, fmt.Sprintf("Project %d-%d", vu.Index, i))
		if err != nil {
			return err
		}

		if vu.RNG.Float32() < 0.3 {
			if err := vu.RenameProject(ctx, project, fmt.Sprintf("Renamed Project %d-%d", vu.Index, i)); err != nil {
				return err
			}
		}

		numTasks := vu.RNG.Intn(8) + 1
		for j := 0; j < numTasks; j++ {
			task, err := vu.CreateTask(ctx, project.ID, fmt.Sprintf("Task %d-%d-%d", vu.Index, i, j))
			if err != nil {
				return err
			}

			if vu.RNG.Float32() < 0.4 {
				if err := vu.MoveTask(ctx, task); err != nil {
					return err
				}
			}

			deleteChance := float32(0.05)
			if !createBias {
				deleteChance = 0.15
			}
			if vu.RNG.Float32() < deleteChance && len(vu.Tasks[project.ID]) > 1 {
				vu.mu.RLock()
				tasks := vu.Tasks[project.ID]
				victim := tasks[len(tasks)-1]
				vu.mu.RUnlock()
				if err := vu.DeleteTask(ctx, victim); err != nil {
					return err
				}
			}
		}

		for _, status := range columns {
			if vu.RNG.Float32() < 0.5 {
				if err := vu.ReorderColumn(ctx, project.ID, status); err != nil {
					return err
				}
			}
		}

		switch roll := vu.RNG.Float32(); {
		case roll < 0.25:
			if err := vu.CompleteProject(ctx, project.ID); err != nil {
				return err
			}
		case !createBias && roll < 0.4 && len(vu.Projects) > 1:
			if err := vu.DeleteProject(ctx, project.ID); err != nil {
				return err
			}
		}
	}

	return vu.VerifyAllData(ctx)
}
