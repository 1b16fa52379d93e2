package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rburns/chorepoint/internal/model"
	"github.com/rburns/chorepoint/internal/store"
)

// Window ahead of a chore's scheduled time in which a reminder goes out.
const reminderWindow = time.Hour

// Sender is the push delivery surface the scheduler uses. The concrete
// Service satisfies it; tests substitute a recorder.
type Sender interface {
	Send(sub *model.PushSubscription, payload Payload) error
}

// Scheduler periodically finds pending chores coming due and notifies their
// assignees. Each chore is reminded about at most once; the sent flag lives
// on the chore row so restarts do not re-notify.
type Scheduler struct {
	mu       sync.RWMutex
	sender   Sender
	push     *store.PushStore
	chores   *store.ChoreStore
	interval time.Duration
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewScheduler(sender Sender, pushStore *store.PushStore, choreStore *store.ChoreStore, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		sender:   sender,
		push:     pushStore,
		chores:   choreStore,
		interval: 60 * time.Second,
		logger:   logger.With("component", "push_scheduler"),
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick() {
	now := time.Now().UTC()
	due, err := s.chores.DueForReminder(now, now.Add(reminderWindow))
	if err != nil {
		s.logger.Error("list due chores", "error", err)
		return
	}

	for _, c := range due {
		s.remind(&c)
	}
}

func (s *Scheduler) remind(c *model.Chore) {
	subs, err := s.push.ListByUser(c.AssignedTo)
	if err != nil {
		s.logger.Error("list subscriptions", "user_id", c.AssignedTo, "error", err)
		return
	}

	payload := Payload{
		Title: "Chore due soon",
		Body:  fmt.Sprintf("%s is due at %s", c.Title, c.ScheduledAt.Local().Format("3:04 PM")),
		URL:   "/chores",
		Tag:   fmt.Sprintf("chore-due-%d", c.ID),
	}

	for _, sub := range subs {
		if err := s.sender.Send(&sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				if err := s.push.DeleteByEndpoint(sub.Endpoint); err != nil {
					s.logger.Error("prune expired subscription", "endpoint", sub.Endpoint, "error", err)
				}
				continue
			}
			s.logger.Error("send reminder", "chore_id", c.ID, "error", err)
		}
	}

	// Mark even when the user has no subscriptions; the reminder moment has
	// passed either way.
	if err := s.chores.MarkReminderSent(c.ID); err != nil {
		s.logger.Error("mark reminder sent", "chore_id", c.ID, "error", err)
	}
}
