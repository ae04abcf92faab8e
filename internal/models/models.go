package models

import "time"

// Role is a user's global role
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleMember, RoleViewer:
		return true
	}
	return false
}

// TaskStatus is the lifecycle state of a task, and the column it sits in on the board
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusDone       TaskStatus = "done"
	StatusBlocked    TaskStatus = "blocked"
)

// Statuses lists every status in board column order
var Statuses = []TaskStatus{StatusTodo, StatusInProgress, StatusBlocked, StatusDone}

// Valid reports whether s is a known status
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone, StatusBlocked:
		return true
	}
	return false
}

// Label returns the human readable column name
func (s TaskStatus) Label() string {
	switch s {
	case StatusTodo:
		return "To Do"
	case StatusInProgress:
		return "In Progress"
	case StatusDone:
		return "Done"
	case StatusBlocked:
		return "Blocked"
	}
	return string(s)
}

// TaskPriority is the urgency of a task
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// Valid reports whether p is a known priority
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// User is an account that can own projects, be assigned tasks and be mentioned
type User struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	FullName       string    `json:"full_name"`
	AvatarURL      string    `json:"avatar_url,omitempty"`
	Role           Role      `json:"role"`
	Department     string    `json:"department,omitempty"`
	Team           string    `json:"team,omitempty"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

// DisplayName returns the full name, falling back to the username
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserSummary is the compact user shape embedded in other responses
type UserSummary struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Summary returns the compact form of u
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		AvatarURL: u.AvatarURL,
	}
}

// Session is an issued login token
type Session struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ProjectType categorizes projects
type ProjectType struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Project groups tasks, threads and team members
type Project struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Status        string     `json:"status"`
	Color         string     `json:"color"`
	OwnerID       int64      `json:"owner_id"`
	ProjectTypeID *int64     `json:"project_type_id"`
	DueDate       *time.Time `json:"due_date"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
}

// TeamMember is a user's membership in a project
type TeamMember struct {
	ID        int64        `json:"id"`
	ProjectID int64        `json:"project_id"`
	UserID    int64        `json:"user_id"`
	Role      Role         `json:"role"`
	JoinedAt  time.Time    `json:"joined_at"`
	User      *UserSummary `json:"user,omitempty"`
}

// Task is a card on a project's board
type Task struct {
	ID          int64         `json:"id"`
	ProjectID   int64         `json:"project_id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      TaskStatus    `json:"status"`
	Priority    TaskPriority  `json:"priority"`
	Position    int           `json:"position"`
	DueDate     *time.Time    `json:"due_date"`
	Tags        string        `json:"tags"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   *time.Time    `json:"updated_at"`
	Assignees   []UserSummary `json:"assignees"`
	Subtasks    []SubTask     `json:"subtasks,omitempty"`

	TotalSubtasks     int     `json:"total_subtasks"`
	CompletedSubtasks int     `json:"completed_subtasks"`
	ProgressPercent   float64 `json:"progress_percent"`
}

// HasAssignee reports whether userID is assigned to the task
func (t *Task) HasAssignee(userID int64) bool {
	for _, a := range t.Assignees {
		if a.ID == userID {
			return true
		}
	}
	return false
}

// AssigneeIDs returns the ids of the task's assignees
func (t *Task) AssigneeIDs() []int64 {
	ids := make([]int64, 0, len(t.Assignees))
	for _, a := range t.Assignees {
		ids = append(ids, a.ID)
	}
	return ids
}

// SubTask is a checklist item under a task
type SubTask struct {
	ID            int64      `json:"id"`
	TaskID        int64      `json:"task_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	AttachmentURL string     `json:"attachment_url,omitempty"`
	IsDone        bool       `json:"is_done"`
	WorkLogID     *int64     `json:"work_log_id"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
}

// Thread is a message in a project's discussion. Replies reference a top-level message.
type Thread struct {
	ID        int64       `json:"id"`
	ProjectID int64       `json:"project_id"`
	UserID    int64       `json:"user_id"`
	Content   string      `json:"content"`
	ParentID  *int64      `json:"parent_id"`
	Mentions  []int64     `json:"mentions"`
	IsEdited  bool        `json:"is_edited"`
	IsDeleted bool        `json:"is_deleted"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt *time.Time  `json:"updated_at"`
	User      UserSummary `json:"user"`
	Replies   []Thread    `json:"replies"`
}

// Comment is a message attached to a task
type Comment struct {
	ID            int64       `json:"id"`
	TaskID        int64       `json:"task_id"`
	UserID        int64       `json:"user_id"`
	Content       string      `json:"content"`
	AttachmentURL string      `json:"attachment_url,omitempty"`
	Mentions      []int64     `json:"mentions"`
	IsEdited      bool        `json:"is_edited"`
	IsDeleted     bool        `json:"is_deleted"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     *time.Time  `json:"updated_at"`
	User          UserSummary `json:"user"`
}

// Attachment describes an uploaded file linked to a work log
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

// WorkLog is a user's record of work, optionally linked to a project, task or subtask
type WorkLog struct {
	ID          int64        `json:"id"`
	OwnerID     int64        `json:"owner_id"`
	ProjectID   *int64       `json:"project_id"`
	TaskID      *int64       `json:"task_id"`
	SubtaskID   *int64       `json:"subtask_id"`
	Title       string       `json:"title"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   *time.Time   `json:"updated_at"`
}

// Note is a free-form private note
type Note struct {
	ID        int64      `json:"id"`
	OwnerID   int64      `json:"owner_id"`
	WorkLogID *int64     `json:"work_log_id"`
	ProjectID *int64     `json:"project_id"`
	TaskID    *int64     `json:"task_id"`
	Title     string     `json:"title"`
	NoteDate  *time.Time `json:"note_date"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// Todo is a personal item planned for a specific day
type Todo struct {
	ID          int64      `json:"id"`
	OwnerID     int64      `json:"owner_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	PlannedDate time.Time  `json:"planned_date"`
	IsDone      bool       `json:"is_done"`
	DoneAt      *time.Time `json:"done_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

// Activity types recorded in the project feed
const (
	ActivityTaskCreated       = "task_created"
	ActivityTaskUpdated       = "task_updated"
	ActivityTaskStatusChanged = "task_status_changed"
	ActivityTaskCompleted     = "task_completed"
	ActivityTaskAssigned      = "task_assigned"
	ActivityCommentAdded      = "comment_added"
	ActivitySubtaskCompleted  = "subtask_completed"
)

// Activity is an entry in a project's feed
type Activity struct {
	ID           int64          `json:"id"`
	ProjectID    int64          `json:"project_id"`
	UserID       int64          `json:"user_id"`
	ActivityType string         `json:"activity_type"`
	EntityType   string         `json:"entity_type"`
	EntityID     int64          `json:"entity_id"`
	Description  string         `json:"description"`
	Metadata     map[string]any `json:"metadata"`
	CreatedAt    time.Time      `json:"created_at"`
	User         *UserSummary   `json:"user,omitempty"`
}

// Notification types
const (
	NotificationTaskAssigned     = "task_assigned"
	NotificationTaskUpdated      = "task_updated"
	NotificationMentioned        = "mentioned"
	NotificationDeadlineReminder = "deadline_reminder"
)

// Notification is a fact addressed to a single user
type Notification struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	Type       string     `json:"type"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	IsRead     bool       `json:"is_read"`
	ReadAt     *time.Time `json:"read_at"`
	ProjectID  *int64     `json:"project_id"`
	TaskID     *int64     `json:"task_id"`
	ThreadID   *int64     `json:"thread_id"`
	ActivityID *int64     `json:"activity_id"`
	CreatedAt  time.Time  `json:"created_at"`
}
