package model

import "time"

type Role string

const (
	RoleParent Role = "parent"
	RoleChild  Role = "child"
)

func (r Role) Valid() bool {
	return r == RoleParent || r == RoleChild
}

type User struct {
	ID               int64     `json:"id"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"`
	Name             string    `json:"name"`
	Role             Role      `json:"role"`
	FamilyID         *int64    `json:"family_id"`
	Points           int       `json:"points"`
	ChoresCompleted  int       `json:"chores_completed"`
	Streak           int       `json:"streak"`
	RemindersEnabled bool      `json:"reminders_enabled"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
