package model

import "time"

// TaskLog is one immutable status transition record. The entry written
// at task creation has a nil OldStatus.
type TaskLog struct {
	ID        int       `json:"id"`
	TaskID    int       `json:"task_id"`
	OldStatus *string   `json:"old_status"`
	NewStatus string    `json:"new_status"`
	ChangedAt time.Time `json:"changed_at"`
	ChangedBy int       `json:"changed_by"`

	// Display name of the acting user, resolved on reads.
	ChangedByName string `json:"changed_by_name,omitempty"`
}
