package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/store"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/validate"
)

// ProjectInput is the payload of a new project.
type ProjectInput struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Category    models.ProjectCategory `json:"category"`
	Status      models.ProjectStatus   `json:"status"`
	Deadline    string                 `json:"deadline"`
	Color       string                 `json:"color"`
	TeamMembers []string               `json:"teamMembers"`
}

// projectFields are the keys accepted by ProjectManager.Update.
var projectFields = map[string]bool{
	"name":        true,
	"description": true,
	"category":    true,
	"status":      true,
	"deadline":    true,
	"teamMembers": true,
	"color":       true,
	"confirm":     true,
}

// ProjectManager runs the project lifecycle.
type ProjectManager struct {
	store         store.Store
	log           zerolog.Logger
	now           func() time.Time
	activity      *ActivityRecorder
	notifications *NotificationDispatcher
}

func checkProjectName(name string) error {
	if !validate.MinLength(name, 3) {
		return validation("Project name must be at least 3 characters long")
	}
	return nil
}

func checkCategory(c models.ProjectCategory) error {
	if c == "" {
		return validation("Please select a project category")
	}
	if !c.Valid() {
		return validation("Invalid project category")
	}
	return nil
}

func checkProjectStatus(s models.ProjectStatus) error {
	if !s.Valid() {
		return validation("Invalid project status")
	}
	return nil
}

func checkColor(c string) error {
	if !validate.HexColor(c) {
		return validation("Invalid project color")
	}
	return nil
}

func parseDeadline(raw string, now time.Time) (time.Time, error) {
	t, err := validate.ParseFutureDate(raw, now)
	switch {
	case errors.Is(err, validate.ErrDateInPast):
		return t, validation("Deadline cannot be in the past")
	case err != nil:
		return t, validation("Invalid deadline date")
	}
	return t, nil
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Create validates in and stores a new project owned by userID.
func (m *ProjectManager) Create(ctx context.Context, userID models.UserID, in ProjectInput) (*models.Project, error) {
	if err := checkProjectName(in.Name); err != nil {
		return nil, err
	}
	if err := checkCategory(in.Category); err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = models.ProjectActive
	}
	if err := checkProjectStatus(in.Status); err != nil {
		return nil, err
	}
	if in.Color == "" {
		in.Color = models.DefaultProjectColor
	}
	if err := checkColor(in.Color); err != nil {
		return nil, err
	}

	now := m.now()
	var deadline *time.Time
	if strings.TrimSpace(in.Deadline) != "" {
		t, err := parseDeadline(in.Deadline, now)
		if err != nil {
			return nil, err
		}
		deadline = &t
	}

	owner, err := m.store.GetUser(ctx, userID)
	if err != nil {
		return nil, internal("failed to load owner", err)
	}
	member := models.Member{User: userID, Role: models.RoleOwner, AddedAt: now}
	if owner != nil {
		member.Name = owner.Name
	}

	p := &models.Project{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Category:    in.Category,
		Status:      in.Status,
		Color:       in.Color,
		Deadline:    deadline,
		OwnerID:     userID,
		Members:     []models.Member{member},
		TeamMembers: cleanList(in.TeamMembers),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.store.CreateProject(ctx, p); err != nil {
		return nil, internal("failed to create project", err)
	}

	m.activity.Record(ctx, userID, p.ID, nil, ActionCreatedProject, models.JSONMap{"projectName": p.Name})
	m.log.Debug().Stringer("project", p.ID).Stringer("user", userID).Msg("project created")
	return p, nil
}

func (m *ProjectManager) load(ctx context.Context, id models.ProjectID) (*models.Project, error) {
	p, err := m.store.GetProject(ctx, id)
	if err != nil {
		return nil, internal("failed to load project", err)
	}
	if p == nil {
		return nil, notFound(msgProjectNotFound)
	}
	return p, nil
}

// Get returns a project the user is a member of.
func (m *ProjectManager) Get(ctx context.Context, userID models.UserID, id models.ProjectID) (*models.Project, error) {
	p, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsMember(userID) {
		return nil, forbidden(msgAccessDenied)
	}
	return p, nil
}

// List returns the projects the user owns or belongs to, most recently updated first.
func (m *ProjectManager) List(ctx context.Context, userID models.UserID, limit int) ([]*models.Project, error) {
	projects, err := m.store.ListProjects(ctx, userID, ClampLimit(limit, DefaultProjectLimit, MaxProjectLimit))
	if err != nil {
		return nil, internal("failed to list projects", err)
	}
	return projects, nil
}

// Update applies patch to a project the user owns or administers.
//
// Moving the project to Completed while it still has open tasks requires "confirm": true
// in the patch; without it a KindConflict error carrying the open task count is returned
// and nothing is saved. With it, the project and all of its open tasks are completed in
// one store transaction and the project members are notified.
func (m *ProjectManager) Update(ctx context.Context, userID models.UserID, id models.ProjectID, patch Patch) (*models.Project, error) {
	p, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.CanManage(userID) {
		return nil, forbidden(msgAccessDenied)
	}
	if err := patch.checkAllowed(projectFields); err != nil {
		return nil, err
	}

	now := m.now()
	prevStatus := p.Status
	confirm := false
	details := models.JSONMap{}

	for _, key := range patch.keys() {
		raw := patch[key]
		switch key {
		case "confirm":
			if confirm, err = decodeField[bool](key, raw); err != nil {
				return nil, err
			}
		case "name":
			name, err := decodeField[string](key, raw)
			if err != nil {
				return nil, err
			}
			if err := checkProjectName(name); err != nil {
				return nil, err
			}
			if name = strings.TrimSpace(name); name != p.Name {
				details[key] = change(p.Name, name)
				p.Name = name
			}
		case "description":
			var desc string
			if !isNull(raw) {
				if desc, err = decodeField[string](key, raw); err != nil {
					return nil, err
				}
			}
			if desc = strings.TrimSpace(desc); desc != p.Description {
				details[key] = change(p.Description, desc)
				p.Description = desc
			}
		case "category":
			category, err := decodeField[models.ProjectCategory](key, raw)
			if err != nil {
				return nil, err
			}
			if err := checkCategory(category); err != nil {
				return nil, err
			}
			if category != p.Category {
				details[key] = change(string(p.Category), string(category))
				p.Category = category
			}
		case "status":
			status, err := decodeField[models.ProjectStatus](key, raw)
			if err != nil {
				return nil, err
			}
			if err := checkProjectStatus(status); err != nil {
				return nil, err
			}
			if status != p.Status {
				details[key] = change(string(p.Status), string(status))
				p.Status = status
			}
		case "deadline":
			var deadline *time.Time
			if !isNull(raw) {
				s, err := decodeField[string](key, raw)
				if err != nil {
					return nil, err
				}
				if strings.TrimSpace(s) != "" {
					t, _, err := validate.ParseDate(s)
					if err != nil {
						return nil, validation("Invalid deadline date")
					}
					if !sameTime(&t, p.Deadline) {
						if t, err = parseDeadline(s, now); err != nil {
							return nil, err
						}
					}
					deadline = &t
				}
			}
			if !sameTime(deadline, p.Deadline) {
				details[key] = change(timeValue(p.Deadline), timeValue(deadline))
				p.Deadline = deadline
			}
		case "teamMembers":
			var members []string
			if !isNull(raw) {
				if members, err = decodeField[[]string](key, raw); err != nil {
					return nil, err
				}
			}
			members = cleanList(members)
			if !sameStrings(members, p.TeamMembers) {
				details[key] = change(p.TeamMembers, members)
				p.TeamMembers = members
			}
		case "color":
			color, err := decodeField[string](key, raw)
			if err != nil {
				return nil, err
			}
			if err := checkColor(color); err != nil {
				return nil, err
			}
			if color != p.Color {
				details[key] = change(p.Color, color)
				p.Color = color
			}
		}
	}

	p.UpdatedAt = now
	completing := p.Status == models.ProjectCompleted && prevStatus != models.ProjectCompleted

	if completing {
		open, err := m.store.CountIncompleteTasks(ctx, p.ID)
		if err != nil {
			return nil, internal("failed to count open tasks", err)
		}
		if open > 0 && !confirm {
			return nil, &Error{
				Kind:    KindConflict,
				Message: fmt.Sprintf("Project has %d incomplete tasks. Confirm to complete them.", open),
				Fields: map[string]any{
					"requiresConfirmation": true,
					"incompleteTasks":      open,
				},
			}
		}
		completed, err := m.store.CompleteProject(ctx, p)
		if err != nil {
			return nil, updateFailed("failed to complete project", msgProjectNotFound, err)
		}
		details["completedTasks"] = completed
	} else if err := m.store.UpdateProject(ctx, p); err != nil {
		return nil, updateFailed("failed to update project", msgProjectNotFound, err)
	}

	m.activity.Record(ctx, userID, p.ID, nil, ActionUpdatedProject, details)

	if completing {
		recipients := make([]models.UserID, 0, len(p.Members))
		for _, member := range p.Members {
			if member.User != userID {
				recipients = append(recipients, member.User)
			}
		}
		pid := p.ID
		m.notifications.Notify(ctx, recipients, NotificationInput{
			Type:           models.NotificationSuccess,
			Title:          "Project completed",
			Message:        fmt.Sprintf("%q has been marked as completed.", p.Name),
			Link:           "/projects/" + p.ID.String(),
			RelatedProject: &pid,
		})
	}
	return p, nil
}

// Delete removes a project and its tasks. Only the owner may delete.
func (m *ProjectManager) Delete(ctx context.Context, userID models.UserID, id models.ProjectID) error {
	p, err := m.load(ctx, id)
	if err != nil {
		return err
	}
	if p.OwnerID != userID {
		return forbidden(msgOnlyOwnerCanDelete)
	}
	deleted, err := m.store.DeleteProjectCascade(ctx, id)
	if err != nil {
		return internal("failed to delete project", err)
	}
	m.activity.Record(ctx, userID, id, nil, ActionDeletedProject, models.JSONMap{
		"projectName":  p.Name,
		"deletedTasks": deleted,
	})
	return nil
}
