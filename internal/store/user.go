package store

import (
	"database/sql"
	"fmt"

	"github.com/rburns/chorepoint/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var familyID sql.NullInt64
	var reminders int

	err := scanner.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &familyID,
		&u.Points, &u.ChoresCompleted, &u.Streak, &reminders,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if familyID.Valid {
		u.FamilyID = &familyID.Int64
	}
	u.RemindersEnabled = reminders != 0
	return &u, nil
}

const userCols = `id, email, password_hash, name, role, family_id, points, chores_completed, streak, reminders_enabled, created_at, updated_at`

func (s *UserStore) Create(email, passwordHash, name string, role model.Role) (*model.User, error) {
	result, err := s.db.Exec(
		`INSERT INTO users (email, password_hash, name, role) VALUES (?, ?, ?, ?)`,
		email, passwordHash, name, role,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(email string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *UserStore) ListByFamily(familyID int64) ([]model.User, error) {
	rows, err := s.db.Query(
		`SELECT `+userCols+` FROM users WHERE family_id = ? ORDER BY role ASC, name ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list users by family: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// ListChildrenByFamily returns the family's children ordered by id, the order
// the rotation heuristic relies on.
func (s *UserStore) ListChildrenByFamily(familyID int64) ([]model.User, error) {
	rows, err := s.db.Query(
		`SELECT `+userCols+` FROM users WHERE family_id = ? AND role = 'child' ORDER BY id ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *UserStore) SetFamily(userID, familyID int64) error {
	_, err := s.db.Exec(
		`UPDATE users SET family_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		familyID, userID,
	)
	if err != nil {
		return fmt.Errorf("set user family: %w", err)
	}
	return nil
}

func (s *UserStore) UpdateProfile(id int64, name string, remindersEnabled bool) (*model.User, error) {
	var reminders int
	if remindersEnabled {
		reminders = 1
	}
	_, err := s.db.Exec(
		`UPDATE users SET name = ?, reminders_enabled = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, reminders, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return s.GetByID(id)
}
