package model

import "time"

// Task workflow statuses. Any status may transition to any other and
// Completed tasks can be reopened.
const (
	StatusPending    = "Pending"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
)

// ValidStatus reports whether s is one of the three workflow statuses.
func ValidStatus(s string) bool {
	return s == StatusPending || s == StatusInProgress || s == StatusCompleted
}

type Task struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     time.Time  `json:"due_date"`
	Status      string     `json:"status"`
	AssignedTo  int        `json:"assigned_to"`
	ProjectID   *int       `json:"project_id"`
	CreatedBy   int        `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Resolved relations, populated on reads. A dangling reference
	// yields a nil relation, not an error.
	Assignee *User    `json:"assignee,omitempty"`
	Creator  *User    `json:"creator,omitempty"`
	Project  *Project `json:"project,omitempty"`
}
