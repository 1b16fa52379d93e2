// Package chore implements the chore lifecycle: the status state machine,
// per-transition authorization, and point settlement.
package chore

import (
	"log/slog"
	"strings"
	"time"

	"github.com/rburns/chorepoint/internal/apperr"
	"github.com/rburns/chorepoint/internal/auth"
	"github.com/rburns/chorepoint/internal/model"
	"github.com/rburns/chorepoint/internal/store"
)

type Status string

const (
	StatusPending     Status = "pending"
	StatusCompleted   Status = "completed"
	StatusVerified    Status = "verified"
	StatusRescheduled Status = "rescheduled"
)

// ParseStatus normalizes a requested status string. The boolean is false for
// anything outside the four lifecycle states.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case StatusPending, StatusCompleted, StatusVerified, StatusRescheduled:
		return s, true
	}
	return "", false
}

type Service struct {
	chores   *store.ChoreStore
	users    *store.UserStore
	families *store.FamilyStore
	logger   *slog.Logger
}

func NewService(cs *store.ChoreStore, us *store.UserStore, fs *store.FamilyStore, logger *slog.Logger) *Service {
	return &Service{chores: cs, users: us, families: fs, logger: logger}
}

type CreateInput struct {
	Title       string
	Description string
	AssignedTo  int64
	ScheduledAt time.Time
	Points      int
	IsOutdoor   bool
}

// Create makes a new pending chore. Only a parent may create, and the
// assignee must belong to the creator's family so the chore's family always
// matches both.
func (s *Service) Create(caller auth.AuthContext, in CreateInput) (*model.Chore, error) {
	if caller.Role != model.RoleParent {
		return nil, apperr.New(apperr.KindForbidden, "only a parent can create chores")
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperr.New(apperr.KindValidationFailed, "title is required")
	}
	if in.Points < 0 {
		return nil, apperr.New(apperr.KindValidationFailed, "points must not be negative")
	}
	if in.ScheduledAt.IsZero() {
		return nil, apperr.New(apperr.KindValidationFailed, "scheduled time is required")
	}

	assignee, err := s.users.GetByID(in.AssignedTo)
	if err != nil {
		return nil, err
	}
	if assignee == nil || assignee.FamilyID == nil || *assignee.FamilyID != caller.FamilyID {
		return nil, apperr.New(apperr.KindValidationFailed, "assignee must belong to your family")
	}

	return s.chores.Create(caller.FamilyID, strings.TrimSpace(in.Title), in.Description, in.AssignedTo, in.ScheduledAt, in.Points, in.IsOutdoor)
}

// Get loads a chore in the caller's family, with its notes.
func (s *Service) Get(caller auth.AuthContext, choreID int64) (*model.Chore, error) {
	c, err := s.load(caller, choreID)
	if err != nil {
		return nil, err
	}
	return s.withNotes(c)
}

// Transition applies a caller-requested status change. The transition table:
//
//	pending   -> completed   assignee only
//	completed -> verified    any parent in the family (settles points)
//	pending   -> rescheduled weather process only, never via this path
//
// Anything else is rejected with InvalidTransition and the chore is left
// unchanged. A listed transition attempted by the wrong caller is Forbidden.
func (s *Service) Transition(caller auth.AuthContext, choreID int64, target Status) (*model.Chore, error) {
	c, err := s.load(caller, choreID)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	switch target {
	case StatusCompleted:
		if Status(c.Status) != StatusPending {
			return nil, apperr.New(apperr.KindInvalidTransition, "chore is not pending")
		}
		if caller.UserID != c.AssignedTo {
			return nil, apperr.New(apperr.KindForbidden, "only the assignee can complete this chore")
		}
		var duration *int64
		if now.After(c.ScheduledAt) {
			secs := int64(now.Sub(c.ScheduledAt) / time.Second)
			duration = &secs
		}
		ok, err := s.chores.MarkCompleted(c.ID, now, duration)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Lost the race: another writer changed the status first.
			return nil, apperr.New(apperr.KindInvalidTransition, "chore is not pending")
		}

	case StatusVerified:
		if Status(c.Status) != StatusCompleted {
			return nil, apperr.New(apperr.KindInvalidTransition, "chore is not completed")
		}
		if caller.Role != model.RoleParent {
			return nil, apperr.New(apperr.KindForbidden, "only a parent can verify a chore")
		}
		ok, err := s.chores.Verify(c.ID, caller.UserID, now)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.New(apperr.KindInvalidTransition, "chore is not completed")
		}
		if err := s.families.AddUsage(c.FamilyID, 1, c.Points, now); err != nil {
			s.logger.Error("record usage after verify", "family_id", c.FamilyID, "error", err)
		}

	case StatusRescheduled:
		if Status(c.Status) == StatusPending {
			return nil, apperr.New(apperr.KindForbidden, "rescheduling is reserved for the weather adjuster")
		}
		return nil, apperr.New(apperr.KindInvalidTransition, "chore is not pending")

	default:
		return nil, apperr.New(apperr.KindInvalidTransition, "no such transition")
	}

	updated, err := s.chores.GetByID(c.ID)
	if err != nil {
		return nil, err
	}
	return s.withNotes(updated)
}

// AddNote appends a note to a chore in the caller's family.
func (s *Service) AddNote(caller auth.AuthContext, choreID int64, content string) (*model.Chore, error) {
	c, err := s.load(caller, choreID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, apperr.New(apperr.KindValidationFailed, "note content is required")
	}
	author := caller.UserID
	if err := s.chores.AddNote(c.ID, &author, content); err != nil {
		return nil, err
	}
	return s.withNotes(c)
}

// Delete removes a chore. Parents only; allowed in any state, including
// verified.
func (s *Service) Delete(caller auth.AuthContext, choreID int64) error {
	c, err := s.load(caller, choreID)
	if err != nil {
		return err
	}
	if caller.Role != model.RoleParent {
		return apperr.New(apperr.KindForbidden, "only a parent can delete a chore")
	}
	return s.chores.Delete(c.ID)
}

// RescheduleOutdoor moves the family's pending outdoor chores to rescheduled
// with an explanatory note. This is the only producer of the rescheduled
// state; it runs on behalf of the weather adjustment process.
func (s *Service) RescheduleOutdoor(familyID int64, reason string) ([]model.Chore, error) {
	pending, err := s.chores.ListPendingByFamily(familyID, true)
	if err != nil {
		return nil, err
	}

	var rescheduled []model.Chore
	for _, c := range pending {
		ok, err := s.chores.Reschedule(c.ID, reason)
		if err != nil {
			return rescheduled, err
		}
		if !ok {
			continue
		}
		updated, err := s.chores.GetByID(c.ID)
		if err != nil {
			return rescheduled, err
		}
		rescheduled = append(rescheduled, *updated)
	}
	return rescheduled, nil
}

func (s *Service) load(caller auth.AuthContext, choreID int64) (*model.Chore, error) {
	c, err := s.chores.GetByID(choreID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.New(apperr.KindNotFound, "chore not found")
	}
	if c.FamilyID != caller.FamilyID {
		return nil, apperr.New(apperr.KindForbidden, "chore belongs to another family")
	}
	return c, nil
}

func (s *Service) withNotes(c *model.Chore) (*model.Chore, error) {
	notes, err := s.chores.ListNotes(c.ID)
	if err != nil {
		return nil, err
	}
	c.Notes = notes
	return c, nil
}
