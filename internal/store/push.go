package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/rburns/chorepoint/internal/model"
)

type PushStore struct {
	db *sql.DB
}

func NewPushStore(db *sql.DB) *PushStore {
	return &PushStore{db: db}
}

const pushCols = `id, user_id, endpoint, p256dh_key, auth_key, created_at`

func scanPushSubscription(scanner interface{ Scan(...any) error }) (*model.PushSubscription, error) {
	var p model.PushSubscription
	err := scanner.Scan(&p.ID, &p.UserID, &p.Endpoint, &p.P256dhKey, &p.AuthKey, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Subscribe registers a device endpoint for a user. Re-subscribing the same
// endpoint replaces its keys.
func (s *PushStore) Subscribe(userID int64, endpoint, p256dh, authKey string) (*model.PushSubscription, error) {
	result, err := s.db.Exec(
		`INSERT INTO push_subscriptions (user_id, endpoint, p256dh_key, auth_key) VALUES (?, ?, ?, ?)`,
		userID, endpoint, p256dh, authKey,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			_, err = s.db.Exec(
				`UPDATE push_subscriptions SET user_id = ?, p256dh_key = ?, auth_key = ? WHERE endpoint = ?`,
				userID, p256dh, authKey, endpoint,
			)
			if err != nil {
				return nil, fmt.Errorf("update subscription: %w", err)
			}
			return s.GetByEndpoint(endpoint)
		}
		return nil, fmt.Errorf("insert subscription: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *PushStore) GetByID(id int64) (*model.PushSubscription, error) {
	row := s.db.QueryRow(`SELECT `+pushCols+` FROM push_subscriptions WHERE id = ?`, id)
	p, err := scanPushSubscription(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return p, nil
}

func (s *PushStore) GetByEndpoint(endpoint string) (*model.PushSubscription, error) {
	row := s.db.QueryRow(`SELECT `+pushCols+` FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	p, err := scanPushSubscription(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription by endpoint: %w", err)
	}
	return p, nil
}

func (s *PushStore) ListByUser(userID int64) ([]model.PushSubscription, error) {
	rows, err := s.db.Query(
		`SELECT `+pushCols+` FROM push_subscriptions WHERE user_id = ? ORDER BY id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.PushSubscription
	for rows.Next() {
		p, err := scanPushSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, *p)
	}
	return subs, rows.Err()
}

func (s *PushStore) DeleteByEndpoint(endpoint string) error {
	_, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	if err != nil {
		return fmt.Errorf("delete subscription by endpoint: %w", err)
	}
	return nil
}

func (s *PushStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}
