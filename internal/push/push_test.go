package push

import (
	"encoding/base64"
	"log/slog"
	"testing"
	"time"

	"github.com/rburns/chorepoint/internal/database"
	"github.com/rburns/chorepoint/internal/model"
	"github.com/rburns/chorepoint/internal/store"
)

func TestGenerateVAPIDKeys(t *testing.T) {
	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate VAPID keys: %v", err)
	}

	// Public key is a base64url-encoded uncompressed P-256 point.
	pubBytes, err := base64.RawURLEncoding.DecodeString(pub)
	if err != nil {
		t.Fatalf("decode public key: %v", err)
	}
	if len(pubBytes) != 65 {
		t.Errorf("public key length = %d, want 65", len(pubBytes))
	}

	privBytes, err := base64.RawURLEncoding.DecodeString(priv)
	if err != nil {
		t.Fatalf("decode private key: %v", err)
	}
	if len(privBytes) != 32 {
		t.Errorf("private key length = %d, want 32", len(privBytes))
	}

	pub2, _, _ := GenerateVAPIDKeys()
	if pub == pub2 {
		t.Error("expected different keys on second generation")
	}
}

type recordingSender struct {
	sent []Payload
	err  error
}

func (r *recordingSender) Send(sub *model.PushSubscription, payload Payload) error {
	r.sent = append(r.sent, payload)
	return r.err
}

func TestSchedulerTick(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	us := store.NewUserStore(db)
	fs := store.NewFamilyStore(db)
	cs := store.NewChoreStore(db)
	ps := store.NewPushStore(db)

	fam, err := fs.Create("Testers", "free", model.SubscriptionActive, nil, model.Features{})
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	child, err := us.Create("c@example.com", "x", "Child", model.RoleChild)
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	if err := us.SetFamily(child.ID, fam.ID); err != nil {
		t.Fatalf("set family: %v", err)
	}
	if _, err := ps.Subscribe(child.ID, "https://push.example/abc", "p256dh", "auth"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	// One chore due in 30 minutes, one due tomorrow.
	soon, err := cs.Create(fam.ID, "Feed the dog", "", child.ID, time.Now().UTC().Add(30*time.Minute), 5, false)
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}
	if _, err := cs.Create(fam.ID, "Clean room", "", child.ID, time.Now().UTC().Add(24*time.Hour), 5, false); err != nil {
		t.Fatalf("create chore: %v", err)
	}

	sender := &recordingSender{}
	sched := NewScheduler(sender, ps, cs, slog.Default())

	sched.tick()
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d reminders, want 1", len(sender.sent))
	}
	if sender.sent[0].Tag == "" || sender.sent[0].Title != "Chore due soon" {
		t.Errorf("payload = %+v", sender.sent[0])
	}

	// Second tick must not remind again.
	sched.tick()
	if len(sender.sent) != 1 {
		t.Errorf("sent %d reminders after second tick, want still 1", len(sender.sent))
	}
	_ = soon
}

func TestSchedulerPrunesExpired(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	us := store.NewUserStore(db)
	fs := store.NewFamilyStore(db)
	cs := store.NewChoreStore(db)
	ps := store.NewPushStore(db)

	fam, _ := fs.Create("Testers", "free", model.SubscriptionActive, nil, model.Features{})
	child, _ := us.Create("c@example.com", "x", "Child", model.RoleChild)
	if err := us.SetFamily(child.ID, fam.ID); err != nil {
		t.Fatalf("set family: %v", err)
	}
	if _, err := ps.Subscribe(child.ID, "https://push.example/gone", "p256dh", "auth"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if _, err := cs.Create(fam.ID, "Feed the dog", "", child.ID, time.Now().UTC().Add(10*time.Minute), 5, false); err != nil {
		t.Fatalf("create chore: %v", err)
	}

	sender := &recordingSender{err: ErrExpired}
	sched := NewScheduler(sender, ps, cs, slog.Default())
	sched.tick()

	subs, err := ps.ListByUser(child.ID)
	if err != nil {
		t.Fatalf("list subscriptions: %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("expected expired subscription pruned, got %d", len(subs))
	}
}
