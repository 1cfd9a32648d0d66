package lifecycle

import (
	"context"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/store"
)

// Dashboard computes the per-user counters of the dashboard.
type Dashboard struct {
	store store.Store
}

// Stats counts the projects the user belongs to and the tasks they created.
func (d *Dashboard) Stats(ctx context.Context, userID models.UserID) (*models.DashboardStats, error) {
	projects, err := d.store.CountProjects(ctx, userID)
	if err != nil {
		return nil, internal("failed to count projects", err)
	}
	total, completed, err := d.store.CountTasks(ctx, userID)
	if err != nil {
		return nil, internal("failed to count tasks", err)
	}
	return &models.DashboardStats{
		Projects:  projects,
		Tasks:     total,
		Pending:   total - completed,
		Completed: completed,
	}, nil
}
