package model

import "time"

type SubscriptionStatus string

const (
	SubscriptionTrial    SubscriptionStatus = "trial"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionInactive SubscriptionStatus = "inactive"
)

// Features maps a feature name to either a boolean flag or a numeric limit,
// mirroring the family's plan descriptor.
type Features map[string]any

// Enabled reports whether a boolean feature is switched on. A numeric value
// counts as enabled when it is greater than zero.
func (f Features) Enabled(name string) bool {
	v, ok := f[name]
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t > 0
	case int:
		return t > 0
	}
	return false
}

// Limit returns the numeric limit for a countable feature. The second return
// is false when the feature is absent or not numeric.
func (f Features) Limit(name string) (int, bool) {
	v, ok := f[name]
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return int(t), true
	case int:
		return t, true
	}
	return 0, false
}

type Family struct {
	ID                 int64              `json:"id"`
	Name               string             `json:"name"`
	InviteCode         *string            `json:"invite_code,omitempty"`
	Plan               string             `json:"plan"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status"`
	TrialEndsAt        *time.Time         `json:"trial_ends_at,omitempty"`
	Features           Features           `json:"features"`
	StripeCustomerID   *string            `json:"-"`
	LastActivityAt     *time.Time         `json:"last_activity_at,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// UsageStat is one calendar month of activity for a family.
type UsageStat struct {
	ID              int64 `json:"id"`
	FamilyID        int64 `json:"family_id"`
	Month           int   `json:"month"`
	Year            int   `json:"year"`
	ChoresCompleted int   `json:"chores_completed"`
	PointsAwarded   int   `json:"points_awarded"`
	ActiveUsers     int   `json:"active_users"`
}
