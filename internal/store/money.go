package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rburns/chorepoint/internal/model"
)

type MoneyStore struct {
	db *sql.DB
}

func NewMoneyStore(db *sql.DB) *MoneyStore {
	return &MoneyStore{db: db}
}

// --- Savings goals ---

const savingsGoalCols = `id, user_id, name, target_cents, saved_cents, created_at`

func scanSavingsGoal(scanner interface{ Scan(...any) error }) (*model.SavingsGoal, error) {
	var g model.SavingsGoal
	err := scanner.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetCents, &g.SavedCents, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *MoneyStore) CreateSavingsGoal(userID int64, name string, targetCents int64) (*model.SavingsGoal, error) {
	result, err := s.db.Exec(
		`INSERT INTO savings_goals (user_id, name, target_cents) VALUES (?, ?, ?)`,
		userID, name, targetCents,
	)
	if err != nil {
		return nil, fmt.Errorf("insert savings goal: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetSavingsGoal(id)
}

func (s *MoneyStore) GetSavingsGoal(id int64) (*model.SavingsGoal, error) {
	row := s.db.QueryRow(`SELECT `+savingsGoalCols+` FROM savings_goals WHERE id = ?`, id)
	g, err := scanSavingsGoal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get savings goal: %w", err)
	}
	return g, nil
}

func (s *MoneyStore) ListSavingsGoals(userID int64) ([]model.SavingsGoal, error) {
	rows, err := s.db.Query(
		`SELECT `+savingsGoalCols+` FROM savings_goals WHERE user_id = ? ORDER BY created_at ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list savings goals: %w", err)
	}
	defer rows.Close()

	var goals []model.SavingsGoal
	for rows.Next() {
		g, err := scanSavingsGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan savings goal: %w", err)
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}

func (s *MoneyStore) AddToSavingsGoal(id, deltaCents int64) (*model.SavingsGoal, error) {
	_, err := s.db.Exec(
		`UPDATE savings_goals SET saved_cents = saved_cents + ? WHERE id = ?`,
		deltaCents, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update savings goal: %w", err)
	}
	return s.GetSavingsGoal(id)
}

// --- Transactions ---

const transactionCols = `id, user_id, kind, amount_cents, description, created_at`

func (s *MoneyStore) CreateTransaction(userID int64, kind string, amountCents int64, description string) (*model.Transaction, error) {
	result, err := s.db.Exec(
		`INSERT INTO transactions (user_id, kind, amount_cents, description) VALUES (?, ?, ?, ?)`,
		userID, kind, amountCents, description,
	)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+transactionCols+` FROM transactions WHERE id = ?`, id)
	var t model.Transaction
	if err := row.Scan(&t.ID, &t.UserID, &t.Kind, &t.AmountCents, &t.Description, &t.CreatedAt); err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return &t, nil
}

func (s *MoneyStore) ListTransactions(userID int64) ([]model.Transaction, error) {
	rows, err := s.db.Query(
		`SELECT `+transactionCols+` FROM transactions WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []model.Transaction
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Kind, &t.AmountCents, &t.Description, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// --- Lesson progress ---

func (s *MoneyStore) UpsertLessonProgress(userID int64, lessonID string, completed bool, score int, completedAt *time.Time) (*model.LessonProgress, error) {
	var done int
	if completed {
		done = 1
	}
	var at sql.NullTime
	if completedAt != nil {
		at = sql.NullTime{Time: completedAt.UTC(), Valid: true}
	}

	_, err := s.db.Exec(
		`INSERT INTO lesson_progress (user_id, lesson_id, completed, score, completed_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, lesson_id) DO UPDATE SET
		   completed = excluded.completed, score = excluded.score, completed_at = excluded.completed_at`,
		userID, lessonID, done, score, at,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert lesson progress: %w", err)
	}

	row := s.db.QueryRow(
		`SELECT id, user_id, lesson_id, completed, score, completed_at FROM lesson_progress
		 WHERE user_id = ? AND lesson_id = ?`,
		userID, lessonID,
	)
	return scanLessonProgress(row)
}

func scanLessonProgress(scanner interface{ Scan(...any) error }) (*model.LessonProgress, error) {
	var p model.LessonProgress
	var done int
	var at sql.NullTime
	err := scanner.Scan(&p.ID, &p.UserID, &p.LessonID, &done, &p.Score, &at)
	if err != nil {
		return nil, err
	}
	p.Completed = done != 0
	if at.Valid {
		t := at.Time
		p.CompletedAt = &t
	}
	return &p, nil
}

func (s *MoneyStore) ListLessonProgress(userID int64) ([]model.LessonProgress, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, lesson_id, completed, score, completed_at FROM lesson_progress
		 WHERE user_id = ? ORDER BY lesson_id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list lesson progress: %w", err)
	}
	defer rows.Close()

	var progress []model.LessonProgress
	for rows.Next() {
		p, err := scanLessonProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lesson progress: %w", err)
		}
		progress = append(progress, *p)
	}
	return progress, rows.Err()
}

// --- Money goals ---

// SetMoneyGoal stores the user's allocation percentages. The caller validates
// that they sum to 100 before this point.
func (s *MoneyStore) SetMoneyGoal(userID int64, savingsPct, spendingPct, donationPct int) (*model.MoneyGoal, error) {
	_, err := s.db.Exec(
		`INSERT INTO money_goals (user_id, savings_pct, spending_pct, donation_pct)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		   savings_pct = excluded.savings_pct,
		   spending_pct = excluded.spending_pct,
		   donation_pct = excluded.donation_pct,
		   updated_at = CURRENT_TIMESTAMP`,
		userID, savingsPct, spendingPct, donationPct,
	)
	if err != nil {
		return nil, fmt.Errorf("set money goal: %w", err)
	}
	return s.GetMoneyGoal(userID)
}

func (s *MoneyStore) GetMoneyGoal(userID int64) (*model.MoneyGoal, error) {
	row := s.db.QueryRow(
		`SELECT id, user_id, savings_pct, spending_pct, donation_pct, updated_at FROM money_goals WHERE user_id = ?`,
		userID,
	)
	var g model.MoneyGoal
	err := row.Scan(&g.ID, &g.UserID, &g.SavingsPct, &g.SpendingPct, &g.DonationPct, &g.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get money goal: %w", err)
	}
	return &g, nil
}
