package models

// Read models returned by list endpoints. References are resolved for display; a reference
// to a record that no longer exists stays nil.

// UserRef is the public summary of a user
type UserRef struct {
	ID     UserID `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
}

// NewUserRef summarizes u, or returns nil when u is nil.
func NewUserRef(u *User) *UserRef {
	if u == nil {
		return nil
	}
	return &UserRef{ID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.Avatar}
}

// ProjectRef is the summary of a project shown next to tasks and activities
type ProjectRef struct {
	ID       ProjectID       `json:"id"`
	Name     string          `json:"name"`
	Category ProjectCategory `json:"category"`
	Status   ProjectStatus   `json:"status"`
	Color    string          `json:"color,omitempty"`
}

// NewProjectRef summarizes p, or returns nil when p is nil.
func NewProjectRef(p *Project) *ProjectRef {
	if p == nil {
		return nil
	}
	return &ProjectRef{ID: p.ID, Name: p.Name, Category: p.Category, Status: p.Status, Color: p.Color}
}

// TaskRef is the summary of a task shown in the activity feed
type TaskRef struct {
	ID     TaskID     `json:"id"`
	Title  string     `json:"title"`
	Status TaskStatus `json:"status"`
}

// NewTaskRef summarizes t, or returns nil when t is nil.
func NewTaskRef(t *Task) *TaskRef {
	if t == nil {
		return nil
	}
	return &TaskRef{ID: t.ID, Title: t.Title, Status: t.Status}
}

// TaskView is a task with its project, assignees and creator resolved. The outer fields
// shadow the raw ids of the embedded Task in JSON.
type TaskView struct {
	Task
	Project    *ProjectRef `json:"project"`
	AssignedTo []*UserRef  `json:"assignedTo"`
	CreatedBy  *UserRef    `json:"createdBy"`
}

// ActivityView is an activity entry with actor, project and task resolved
type ActivityView struct {
	Activity
	User    *UserRef    `json:"user"`
	Project *ProjectRef `json:"project"`
	Task    *TaskRef    `json:"task,omitempty"`
}

// NotificationView adds the relative time computed when the list is read
type NotificationView struct {
	Notification
	Time string `json:"time"`
}

// DashboardStats are the counters shown on the dashboard
type DashboardStats struct {
	Projects  int64 `json:"projects"`
	Tasks     int64 `json:"tasks"`
	Pending   int64 `json:"pending"`
	Completed int64 `json:"completed"`
}
