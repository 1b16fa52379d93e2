package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rburns/chorepoint/internal/model"
)

type ChoreStore struct {
	db *sql.DB
}

func NewChoreStore(db *sql.DB) *ChoreStore {
	return &ChoreStore{db: db}
}

func scanChore(scanner interface{ Scan(...any) error }) (*model.Chore, error) {
	var c model.Chore
	var isOutdoor int
	var completedAt sql.NullTime
	var duration sql.NullInt64
	var verifiedBy sql.NullInt64
	var verifiedAt sql.NullTime

	err := scanner.Scan(
		&c.ID, &c.FamilyID, &c.Title, &c.Description, &c.AssignedTo, &c.Status,
		&isOutdoor, &c.ScheduledAt, &completedAt, &duration, &c.Points,
		&verifiedBy, &verifiedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.IsOutdoor = isOutdoor != 0
	if completedAt.Valid {
		t := completedAt.Time
		c.CompletedAt = &t
	}
	if duration.Valid {
		c.DurationSeconds = &duration.Int64
	}
	if verifiedBy.Valid {
		c.VerifiedBy = &verifiedBy.Int64
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		c.VerifiedAt = &t
	}
	return &c, nil
}

const choreCols = `id, family_id, title, description, assigned_to, status, is_outdoor, scheduled_at, completed_at, duration_seconds, points, verified_by, verified_at, created_at, updated_at`

func (s *ChoreStore) Create(familyID int64, title, description string, assignedTo int64, scheduledAt time.Time, points int, isOutdoor bool) (*model.Chore, error) {
	var outdoor int
	if isOutdoor {
		outdoor = 1
	}

	result, err := s.db.Exec(
		`INSERT INTO chores (family_id, title, description, assigned_to, scheduled_at, points, is_outdoor)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		familyID, title, description, assignedTo, scheduledAt.UTC(), points, outdoor,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) GetByID(id int64) (*model.Chore, error) {
	row := s.db.QueryRow(`SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

func (s *ChoreStore) ListByFamily(familyID int64) ([]model.Chore, error) {
	rows, err := s.db.Query(
		`SELECT `+choreCols+` FROM chores WHERE family_id = ? ORDER BY scheduled_at ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chores by family: %w", err)
	}
	defer rows.Close()
	return collectChores(rows)
}

func (s *ChoreStore) ListByAssignee(userID int64) ([]model.Chore, error) {
	rows, err := s.db.Query(
		`SELECT `+choreCols+` FROM chores WHERE assigned_to = ? ORDER BY scheduled_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chores by assignee: %w", err)
	}
	defer rows.Close()
	return collectChores(rows)
}

// ListPendingByFamily returns pending chores, optionally restricted to
// outdoor ones for the weather adjuster.
func (s *ChoreStore) ListPendingByFamily(familyID int64, outdoorOnly bool) ([]model.Chore, error) {
	query := `SELECT ` + choreCols + ` FROM chores WHERE family_id = ? AND status = 'pending'`
	if outdoorOnly {
		query += ` AND is_outdoor = 1`
	}
	query += ` ORDER BY scheduled_at ASC`

	rows, err := s.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("list pending chores: %w", err)
	}
	defer rows.Close()
	return collectChores(rows)
}

func collectChores(rows *sql.Rows) ([]model.Chore, error) {
	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

// MarkCompleted moves a pending chore to completed. The status predicate in
// the WHERE clause is the optimistic check; false means the chore was not
// pending at write time.
func (s *ChoreStore) MarkCompleted(id int64, completedAt time.Time, durationSeconds *int64) (bool, error) {
	var duration sql.NullInt64
	if durationSeconds != nil {
		duration = sql.NullInt64{Int64: *durationSeconds, Valid: true}
	}

	result, err := s.db.Exec(
		`UPDATE chores SET status = 'completed', completed_at = ?, duration_seconds = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = 'pending'`,
		completedAt.UTC(), duration, id,
	)
	if err != nil {
		return false, fmt.Errorf("mark completed: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Verify moves a completed chore to verified and settles points with the
// assignee inside one transaction, so a verified chore can never fail to
// credit its points. Returns false without side effects when the chore was
// not in the completed state.
func (s *ChoreStore) Verify(id, verifierID int64, verifiedAt time.Time) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE chores SET status = 'verified', verified_by = ?, verified_at = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = 'completed'`,
		verifierID, verifiedAt.UTC(), id,
	)
	if err != nil {
		return false, fmt.Errorf("mark verified: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	var assignedTo int64
	var points int
	if err := tx.QueryRow(`SELECT assigned_to, points FROM chores WHERE id = ?`, id).Scan(&assignedTo, &points); err != nil {
		return false, fmt.Errorf("read settlement fields: %w", err)
	}

	_, err = tx.Exec(
		`UPDATE users SET points = points + ?, chores_completed = chores_completed + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		points, assignedTo,
	)
	if err != nil {
		return false, fmt.Errorf("settle points: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// Reschedule moves a pending chore to rescheduled and attaches a system note
// explaining why. Only the weather adjustment process calls this.
func (s *ChoreStore) Reschedule(id int64, reason string) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE chores SET status = 'rescheduled', updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = 'pending'`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("mark rescheduled: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	_, err = tx.Exec(
		`INSERT INTO chore_notes (chore_id, author_id, content) VALUES (?, NULL, ?)`,
		id, reason,
	)
	if err != nil {
		return false, fmt.Errorf("insert reschedule note: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

func (s *ChoreStore) Reassign(id, assignedTo int64) error {
	_, err := s.db.Exec(
		`UPDATE chores SET assigned_to = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		assignedTo, id,
	)
	if err != nil {
		return fmt.Errorf("reassign chore: %w", err)
	}
	return nil
}

func (s *ChoreStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM chores WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chore: %w", err)
	}
	return nil
}

// --- Note methods ---

func (s *ChoreStore) AddNote(choreID int64, authorID *int64, content string) error {
	var author sql.NullInt64
	if authorID != nil {
		author = sql.NullInt64{Int64: *authorID, Valid: true}
	}
	_, err := s.db.Exec(
		`INSERT INTO chore_notes (chore_id, author_id, content) VALUES (?, ?, ?)`,
		choreID, author, content,
	)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

func (s *ChoreStore) ListNotes(choreID int64) ([]model.ChoreNote, error) {
	rows, err := s.db.Query(
		`SELECT id, chore_id, author_id, content, created_at FROM chore_notes
		 WHERE chore_id = ? ORDER BY created_at ASC, id ASC`,
		choreID,
	)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var notes []model.ChoreNote
	for rows.Next() {
		var n model.ChoreNote
		var author sql.NullInt64
		if err := rows.Scan(&n.ID, &n.ChoreID, &author, &n.Content, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		if author.Valid {
			n.AuthorID = &author.Int64
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// --- Aggregation and gating queries ---

// Stats groups the family's chores by assignee: total count, completed count,
// verified count, and the sum of points across all statuses.
func (s *ChoreStore) Stats(familyID int64) ([]model.AssigneeStats, error) {
	rows, err := s.db.Query(
		`SELECT assigned_to,
		        COUNT(*),
		        SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END),
		        SUM(CASE WHEN status = 'verified' THEN 1 ELSE 0 END),
		        COALESCE(SUM(points), 0)
		 FROM chores WHERE family_id = ?
		 GROUP BY assigned_to ORDER BY assigned_to ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("chore stats: %w", err)
	}
	defer rows.Close()

	var stats []model.AssigneeStats
	for rows.Next() {
		var st model.AssigneeStats
		if err := rows.Scan(&st.AssignedTo, &st.Total, &st.Completed, &st.Verified, &st.TotalPoints); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// CountCreatedSince counts the family's chores created at or after the given
// instant, used for the monthly creation limit.
func (s *ChoreStore) CountCreatedSince(familyID int64, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM chores WHERE family_id = ? AND created_at >= ?`,
		familyID, since.UTC(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count chores since: %w", err)
	}
	return count, nil
}

// --- Reminder queries ---

// DueForReminder returns pending chores scheduled inside (now, until] whose
// assignee has reminders enabled and that have not been reminded yet.
func (s *ChoreStore) DueForReminder(now, until time.Time) ([]model.Chore, error) {
	rows, err := s.db.Query(
		`SELECT `+choreCols+` FROM chores c
		 WHERE c.status = 'pending' AND c.reminder_sent = 0
		   AND c.scheduled_at > ? AND c.scheduled_at <= ?
		   AND EXISTS (SELECT 1 FROM users u WHERE u.id = c.assigned_to AND u.reminders_enabled = 1)
		 ORDER BY c.scheduled_at ASC`,
		now.UTC(), until.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list chores due for reminder: %w", err)
	}
	defer rows.Close()
	return collectChores(rows)
}

func (s *ChoreStore) MarkReminderSent(id int64) error {
	_, err := s.db.Exec(`UPDATE chores SET reminder_sent = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	return nil
}
