package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// ProjectCategory classifies a project
type ProjectCategory string

const (
	CategoryStudent  ProjectCategory = "Student"
	CategoryTeam     ProjectCategory = "Team"
	CategoryBusiness ProjectCategory = "Business"
)

func (c ProjectCategory) Valid() bool {
	switch c {
	case CategoryStudent, CategoryTeam, CategoryBusiness:
		return true
	}
	return false
}

// ProjectStatus is the lifecycle state of a project
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "Active"
	ProjectOnHold    ProjectStatus = "On Hold"
	ProjectCompleted ProjectStatus = "Completed"
	ProjectArchived  ProjectStatus = "Archived"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectActive, ProjectOnHold, ProjectCompleted, ProjectArchived:
		return true
	}
	return false
}

// MemberRole is the role of a user inside a project
type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
)

func (r MemberRole) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// TaskStatus is the kanban column a task sits in
type TaskStatus string

const (
	TaskToDo       TaskStatus = "To Do"
	TaskInProgress TaskStatus = "In Progress"
	TaskReview     TaskStatus = "Review"
	TaskCompleted  TaskStatus = "Completed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskToDo, TaskInProgress, TaskReview, TaskCompleted:
		return true
	}
	return false
}

// TaskPriority ranks tasks
type TaskPriority string

const (
	PriorityLow    TaskPriority = "Low"
	PriorityMedium TaskPriority = "Medium"
	PriorityHigh   TaskPriority = "High"
	PriorityUrgent TaskPriority = "Urgent"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// NotificationType drives how a notification is rendered
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationInfo    NotificationType = "info"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationSuccess, NotificationInfo, NotificationWarning, NotificationError:
		return true
	}
	return false
}

// Theme is the UI theme preference of a user
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func (t Theme) Valid() bool { return t == ThemeLight || t == ThemeDark }

// DefaultProjectColor is the accent color given to new projects.
const DefaultProjectColor = "#f59e0b"

// JSONMap is a free-form key-value map. Activities use it for their details, which differ
// per action ("created task" carries the title, "updated task" carries a field diff).
// It is stored as JSONB in PostgreSQL, as text in SQLite, and as a nested object in the
// document stores.
type JSONMap map[string]any

// Value implements the driver.Valuer interface for database storage
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface for database retrieval
func (j *JSONMap) Scan(value any) error {
	if value == nil {
		*j = make(map[string]any)
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	}
	return json.Unmarshal(bytes, j)
}

// Preferences holds per-user display settings
type Preferences struct {
	Theme         Theme `json:"theme" bson:"theme"`
	Notifications bool  `json:"notifications" bson:"notifications"`
}

// DefaultPreferences returns the preferences given to new accounts.
func DefaultPreferences() Preferences {
	return Preferences{Theme: ThemeLight, Notifications: true}
}

// User is an account. PasswordHash never leaves the server.
type User struct {
	ID           UserID      `gorm:"type:uuid;primary_key" json:"id" bson:"_id"`
	Name         string      `gorm:"not null" json:"name" bson:"name"`
	Email        string      `gorm:"uniqueIndex;not null" json:"email" bson:"email"`
	PasswordHash string      `gorm:"not null" json:"-" cbor:"passwordHash" bson:"password_hash"`
	Avatar       string      `gorm:"type:text" json:"avatar,omitempty" bson:"avatar,omitempty"`
	Preferences  Preferences `gorm:"embedded;embeddedPrefix:pref_" json:"preferences" bson:"preferences"`
	CreatedAt    time.Time   `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time   `json:"updatedAt" bson:"updated_at"`
}

// BeforeCreate hook to generate ID if not set
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID.IsZero() {
		u.ID = NewUserID()
	}
	return nil
}

// Member is one entry of a project's member list
type Member struct {
	User    UserID     `json:"user" bson:"user"`
	Name    string     `json:"name,omitempty" bson:"name,omitempty"`
	Role    MemberRole `json:"role" bson:"role"`
	AddedAt time.Time  `json:"addedAt" bson:"added_at"`
}

// Project groups tasks. The owner is always present in Members with RoleOwner.
type Project struct {
	ID          ProjectID       `gorm:"type:uuid;primary_key" json:"id" bson:"_id"`
	Name        string          `gorm:"not null" json:"name" bson:"name"`
	Description string          `gorm:"type:text" json:"description" bson:"description"`
	Category    ProjectCategory `gorm:"not null" json:"category" bson:"category"`
	Status      ProjectStatus   `gorm:"not null;index" json:"status" bson:"status"`
	Color       string          `json:"color" bson:"color"`
	Deadline    *time.Time      `json:"deadline,omitempty" bson:"deadline,omitempty"`
	OwnerID     UserID          `gorm:"type:uuid;not null;index" json:"owner" bson:"owner"`
	Members     []Member        `gorm:"serializer:json;type:text" json:"members" bson:"members"`
	TeamMembers []string        `gorm:"serializer:json;type:text" json:"teamMembers" bson:"team_members"`
	CreatedAt   time.Time       `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time       `gorm:"index" json:"updatedAt" bson:"updated_at"`
}

// BeforeCreate hook to generate ID if not set
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID.IsZero() {
		p.ID = NewProjectID()
	}
	return nil
}

// Member returns the membership record of the user, if any.
func (p *Project) Member(userID UserID) (Member, bool) {
	for _, m := range p.Members {
		if m.User == userID {
			return m, true
		}
	}
	return Member{}, false
}

// IsMember reports whether the user owns the project or is listed as a member.
func (p *Project) IsMember(userID UserID) bool {
	if p.OwnerID == userID {
		return true
	}
	_, ok := p.Member(userID)
	return ok
}

// CanManage reports whether the user may change the project: the owner or an admin member.
func (p *Project) CanManage(userID UserID) bool {
	if p.OwnerID == userID {
		return true
	}
	m, ok := p.Member(userID)
	return ok && (m.Role == RoleOwner || m.Role == RoleAdmin)
}

// Attachment is a link attached to a task
type Attachment struct {
	Name       string    `json:"name" bson:"name"`
	URL        string    `json:"url" bson:"url"`
	UploadedAt time.Time `json:"uploadedAt" bson:"uploaded_at"`
}

// Task is a unit of work on a project's kanban board
type Task struct {
	ID          TaskID       `gorm:"type:uuid;primary_key" json:"id" bson:"_id"`
	Title       string       `gorm:"not null" json:"title" bson:"title"`
	Description string       `gorm:"type:text" json:"description" bson:"description"`
	ProjectID   ProjectID    `gorm:"type:uuid;not null;index" json:"project" bson:"project"`
	Status      TaskStatus   `gorm:"not null;index" json:"status" bson:"status"`
	Priority    TaskPriority `gorm:"not null" json:"priority" bson:"priority"`
	AssignedTo  []UserID     `gorm:"serializer:json;type:text" json:"assignedTo" bson:"assigned_to"`
	Tags        []string     `gorm:"serializer:json;type:text" json:"tags" bson:"tags"`
	DueDate     *time.Time   `json:"dueDate,omitempty" bson:"due_date,omitempty"`
	Order       int          `gorm:"not null;default:0" json:"order" bson:"order"`
	Attachments []Attachment `gorm:"serializer:json;type:text" json:"attachments" bson:"attachments"`
	CreatedBy   UserID       `gorm:"type:uuid;not null;index" json:"createdBy" bson:"created_by"`
	CreatedAt   time.Time    `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time    `json:"updatedAt" bson:"updated_at"`
}

// BeforeCreate hook to generate ID if not set
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID.IsZero() {
		t.ID = NewTaskID()
	}
	return nil
}

// IsAssigned reports whether the user is among the assignees.
func (t *Task) IsAssigned(userID UserID) bool {
	for _, id := range t.AssignedTo {
		if id == userID {
			return true
		}
	}
	return false
}

// Activity is an append-only audit entry
type Activity struct {
	ID        ActivityID `gorm:"type:uuid;primary_key" json:"id" bson:"_id"`
	UserID    UserID     `gorm:"type:uuid;not null;index" json:"user" bson:"user"`
	ProjectID ProjectID  `gorm:"type:uuid;index" json:"project" bson:"project"`
	TaskID    *TaskID    `gorm:"type:uuid" json:"task,omitempty" bson:"task,omitempty"`
	Action    string     `gorm:"not null" json:"action" bson:"action"`
	Details   JSONMap    `gorm:"type:jsonb" json:"details,omitempty" bson:"details,omitempty"`
	CreatedAt time.Time  `gorm:"index" json:"createdAt" bson:"created_at"`
}

// BeforeCreate hook to generate ID if not set
func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	if a.ID.IsZero() {
		a.ID = NewActivityID()
	}
	return nil
}

// Notification is a user-scoped message
type Notification struct {
	ID             NotificationID   `gorm:"type:uuid;primary_key" json:"id" bson:"_id"`
	UserID         UserID           `gorm:"type:uuid;not null;index" json:"user" bson:"user"`
	Type           NotificationType `gorm:"not null" json:"type" bson:"type"`
	Title          string           `gorm:"not null" json:"title" bson:"title"`
	Message        string           `gorm:"type:text;not null" json:"message" bson:"message"`
	Read           bool             `gorm:"not null;default:false;index" json:"read" bson:"read"`
	Link           string           `json:"link,omitempty" bson:"link,omitempty"`
	RelatedProject *ProjectID       `gorm:"type:uuid" json:"relatedProject,omitempty" bson:"related_project,omitempty"`
	RelatedTask    *TaskID          `gorm:"type:uuid" json:"relatedTask,omitempty" bson:"related_task,omitempty"`
	CreatedAt      time.Time        `gorm:"index" json:"createdAt" bson:"created_at"`
	UpdatedAt      time.Time        `json:"updatedAt" bson:"updated_at"`
}

// BeforeCreate hook to generate ID if not set
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID.IsZero() {
		n.ID = NewNotificationID()
	}
	return nil
}
