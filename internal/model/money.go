package model

import "time"

type SavingsGoal struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Name        string    `json:"name"`
	TargetCents int64     `json:"target_cents"`
	SavedCents  int64     `json:"saved_cents"`
	CreatedAt   time.Time `json:"created_at"`
}

type Transaction struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Kind        string    `json:"kind"`
	AmountCents int64     `json:"amount_cents"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type LessonProgress struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	LessonID    string     `json:"lesson_id"`
	Completed   bool       `json:"completed"`
	Score       int        `json:"score"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// MoneyGoal is a user's allocation plan. The three percentages must sum to
// exactly 100.
type MoneyGoal struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	SavingsPct  int       `json:"savings_pct"`
	SpendingPct int       `json:"spending_pct"`
	DonationPct int       `json:"donation_pct"`
	UpdatedAt   time.Time `json:"updated_at"`
}
