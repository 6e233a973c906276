package model

import "time"

type Project struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	CreatedBy   int        `json:"created_by"`

	// Resolved relations, populated on reads.
	Creator   *User `json:"creator,omitempty"`
	TaskCount int   `json:"task_count"`
}
