package model

import "time"

type Chore struct {
	ID              int64       `json:"id"`
	FamilyID        int64       `json:"family_id"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	AssignedTo      int64       `json:"assigned_to"`
	Status          string      `json:"status"`
	IsOutdoor       bool        `json:"is_outdoor"`
	ScheduledAt     time.Time   `json:"scheduled_at"`
	CompletedAt     *time.Time  `json:"completed_at,omitempty"`
	DurationSeconds *int64      `json:"duration_seconds,omitempty"`
	Points          int         `json:"points"`
	VerifiedBy      *int64      `json:"verified_by,omitempty"`
	VerifiedAt      *time.Time  `json:"verified_at,omitempty"`
	Notes           []ChoreNote `json:"notes,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// ChoreNote is an annotation on a chore. AuthorID is nil for notes attached
// by automated processes such as the weather adjuster.
type ChoreNote struct {
	ID        int64     `json:"id"`
	ChoreID   int64     `json:"chore_id"`
	AuthorID  *int64    `json:"author_id,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// AssigneeStats is the per-assignee aggregation over a family's chores.
type AssigneeStats struct {
	AssignedTo  int64 `json:"assigned_to"`
	Total       int   `json:"total"`
	Completed   int   `json:"completed"`
	Verified    int   `json:"verified"`
	TotalPoints int   `json:"total_points"`
}
