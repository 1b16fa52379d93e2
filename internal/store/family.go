package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rburns/chorepoint/internal/model"
)

// Invite codes avoid characters that read ambiguously (0/O, 1/I/L).
const inviteAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const (
	inviteCodeLength      = 8
	inviteCodeMaxAttempts = 5
)

type FamilyStore struct {
	db *sql.DB
}

func NewFamilyStore(db *sql.DB) *FamilyStore {
	return &FamilyStore{db: db}
}

func scanFamily(scanner interface{ Scan(...any) error }) (*model.Family, error) {
	var f model.Family
	var inviteCode sql.NullString
	var trialEndsAt sql.NullTime
	var stripeCustomer sql.NullString
	var lastActivity sql.NullTime
	var features string

	err := scanner.Scan(
		&f.ID, &f.Name, &inviteCode, &f.Plan, &f.SubscriptionStatus,
		&trialEndsAt, &features, &stripeCustomer, &lastActivity, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if inviteCode.Valid {
		f.InviteCode = &inviteCode.String
	}
	if stripeCustomer.Valid {
		f.StripeCustomerID = &stripeCustomer.String
	}
	if trialEndsAt.Valid {
		t := trialEndsAt.Time
		f.TrialEndsAt = &t
	}
	if lastActivity.Valid {
		t := lastActivity.Time
		f.LastActivityAt = &t
	}
	if err := json.Unmarshal([]byte(features), &f.Features); err != nil {
		return nil, fmt.Errorf("decode features: %w", err)
	}
	return &f, nil
}

const familyCols = `id, name, invite_code, plan, subscription_status, trial_ends_at, features, stripe_customer_id, last_activity_at, created_at, updated_at`

func (s *FamilyStore) Create(name, plan string, status model.SubscriptionStatus, trialEndsAt *time.Time, features model.Features) (*model.Family, error) {
	encoded, err := json.Marshal(features)
	if err != nil {
		return nil, fmt.Errorf("encode features: %w", err)
	}

	var trial sql.NullTime
	if trialEndsAt != nil {
		trial = sql.NullTime{Time: trialEndsAt.UTC(), Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO families (name, plan, subscription_status, trial_ends_at, features) VALUES (?, ?, ?, ?, ?)`,
		name, plan, status, trial, string(encoded),
	)
	if err != nil {
		return nil, fmt.Errorf("insert family: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *FamilyStore) GetByID(id int64) (*model.Family, error) {
	row := s.db.QueryRow(`SELECT `+familyCols+` FROM families WHERE id = ?`, id)
	f, err := scanFamily(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family: %w", err)
	}
	return f, nil
}

func (s *FamilyStore) GetByInviteCode(code string) (*model.Family, error) {
	row := s.db.QueryRow(`SELECT `+familyCols+` FROM families WHERE invite_code = ?`, code)
	f, err := scanFamily(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family by invite code: %w", err)
	}
	return f, nil
}

// RegenerateInviteCode replaces the family's invite code with a fresh one,
// retrying on the (unlikely) collision with another family's code. The old
// code stops working as soon as the update lands.
func (s *FamilyStore) RegenerateInviteCode(familyID int64) (string, error) {
	for attempt := 0; attempt < inviteCodeMaxAttempts; attempt++ {
		code, err := generateInviteCode()
		if err != nil {
			return "", err
		}
		_, err = s.db.Exec(
			`UPDATE families SET invite_code = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			code, familyID,
		)
		if err == nil {
			return code, nil
		}
		if !strings.Contains(err.Error(), "UNIQUE") {
			return "", fmt.Errorf("set invite code: %w", err)
		}
	}
	return "", fmt.Errorf("set invite code: exhausted %d attempts", inviteCodeMaxAttempts)
}

func generateInviteCode() (string, error) {
	buf := make([]byte, inviteCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate invite code: %w", err)
	}
	for i, b := range buf {
		buf[i] = inviteAlphabet[int(b)%len(inviteAlphabet)]
	}
	return string(buf), nil
}

func (s *FamilyStore) SetSubscription(familyID int64, plan string, status model.SubscriptionStatus) error {
	_, err := s.db.Exec(
		`UPDATE families SET plan = ?, subscription_status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		plan, status, familyID,
	)
	if err != nil {
		return fmt.Errorf("set subscription: %w", err)
	}
	return nil
}

func (s *FamilyStore) SetStripeCustomerID(familyID int64, customerID string) error {
	_, err := s.db.Exec(
		`UPDATE families SET stripe_customer_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		customerID, familyID,
	)
	if err != nil {
		return fmt.Errorf("set stripe customer id: %w", err)
	}
	return nil
}

func (s *FamilyStore) GetByStripeCustomerID(customerID string) (*model.Family, error) {
	row := s.db.QueryRow(`SELECT `+familyCols+` FROM families WHERE stripe_customer_id = ?`, customerID)
	f, err := scanFamily(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family by stripe customer: %w", err)
	}
	return f, nil
}

func (s *FamilyStore) SetSubscriptionStatus(familyID int64, status model.SubscriptionStatus) error {
	_, err := s.db.Exec(
		`UPDATE families SET subscription_status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, familyID,
	)
	if err != nil {
		return fmt.Errorf("set subscription status: %w", err)
	}
	return nil
}

func (s *FamilyStore) SetFeatures(familyID int64, features model.Features) error {
	encoded, err := json.Marshal(features)
	if err != nil {
		return fmt.Errorf("encode features: %w", err)
	}
	_, err = s.db.Exec(
		`UPDATE families SET features = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		string(encoded), familyID,
	)
	if err != nil {
		return fmt.Errorf("set features: %w", err)
	}
	return nil
}

// TouchActivity records that the member was active now, makes sure the
// current month's usage row exists, and refreshes its distinct active-member
// count.
func (s *FamilyStore) TouchActivity(familyID, userID int64, now time.Time) error {
	ts := now.UTC()
	_, err := s.db.Exec(
		`UPDATE families SET last_activity_at = ? WHERE id = ?`,
		ts, familyID,
	)
	if err != nil {
		return fmt.Errorf("touch activity: %w", err)
	}

	_, err = s.db.Exec(`UPDATE users SET last_active_at = ? WHERE id = ?`, ts, userID)
	if err != nil {
		return fmt.Errorf("touch member activity: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO family_usage (family_id, month, year) VALUES (?, ?, ?)
		 ON CONFLICT (family_id, month, year) DO NOTHING`,
		familyID, int(ts.Month()), ts.Year(),
	)
	if err != nil {
		return fmt.Errorf("upsert usage row: %w", err)
	}

	monthStart := time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, time.UTC)
	_, err = s.db.Exec(
		`UPDATE family_usage SET active_users =
		   (SELECT COUNT(*) FROM users WHERE family_id = ? AND last_active_at >= ?)
		 WHERE family_id = ? AND month = ? AND year = ?`,
		familyID, monthStart, familyID, int(ts.Month()), ts.Year(),
	)
	if err != nil {
		return fmt.Errorf("count active users: %w", err)
	}
	return nil
}

// AddUsage bumps the current month's counters, creating the row if needed.
func (s *FamilyStore) AddUsage(familyID int64, choresCompleted, pointsAwarded int, now time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO family_usage (family_id, month, year, chores_completed, points_awarded)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (family_id, month, year) DO UPDATE SET
		   chores_completed = chores_completed + excluded.chores_completed,
		   points_awarded = points_awarded + excluded.points_awarded`,
		familyID, int(now.Month()), now.Year(), choresCompleted, pointsAwarded,
	)
	if err != nil {
		return fmt.Errorf("add usage: %w", err)
	}
	return nil
}

func (s *FamilyStore) GetUsage(familyID int64, month, year int) (*model.UsageStat, error) {
	row := s.db.QueryRow(
		`SELECT id, family_id, month, year, chores_completed, points_awarded, active_users
		 FROM family_usage WHERE family_id = ? AND month = ? AND year = ?`,
		familyID, month, year,
	)
	var u model.UsageStat
	err := row.Scan(&u.ID, &u.FamilyID, &u.Month, &u.Year, &u.ChoresCompleted, &u.PointsAwarded, &u.ActiveUsers)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get usage: %w", err)
	}
	return &u, nil
}
