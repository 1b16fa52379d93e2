package store

import (
	"strings"
	"testing"
	"time"

	"github.com/rburns/chorepoint/internal/model"
)

func TestFamilyCreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	f := seedFamily(t, db)

	got, err := NewFamilyStore(db).GetByID(f.ID)
	if err != nil {
		t.Fatalf("get family: %v", err)
	}
	if got == nil {
		t.Fatal("family not found")
	}
	if got.Name != "Test Family" {
		t.Errorf("name = %q", got.Name)
	}
	if got.SubscriptionStatus != model.SubscriptionTrial {
		t.Errorf("status = %q, want trial", got.SubscriptionStatus)
	}
	if got.TrialEndsAt == nil {
		t.Error("trial end not stored")
	}
	if !got.Features.Enabled("forum") {
		t.Error("features not round-tripped")
	}
	if limit, ok := got.Features.Limit("maxChoresPerMonth"); !ok || limit != 100 {
		t.Errorf("maxChoresPerMonth = %d, %v", limit, ok)
	}
}

func TestFamilyGetMissing(t *testing.T) {
	db := setupTestDB(t)

	got, err := NewFamilyStore(db).GetByID(9999)
	if err != nil {
		t.Fatalf("get missing family: %v", err)
	}
	if got != nil {
		t.Error("expected nil for missing family")
	}
}

func TestRegenerateInviteCode(t *testing.T) {
	db := setupTestDB(t)
	fs := NewFamilyStore(db)
	f := seedFamily(t, db)

	first, err := fs.RegenerateInviteCode(f.ID)
	if err != nil {
		t.Fatalf("first regenerate: %v", err)
	}
	if len(first) != 8 {
		t.Errorf("code length = %d, want 8", len(first))
	}
	for _, r := range first {
		if !strings.ContainsRune(inviteAlphabet, r) {
			t.Errorf("code %q contains %q outside the alphabet", first, r)
		}
	}

	second, err := fs.RegenerateInviteCode(f.ID)
	if err != nil {
		t.Fatalf("second regenerate: %v", err)
	}
	if second == first {
		t.Error("regenerate returned the same code")
	}

	// The old code must stop resolving.
	if got, _ := fs.GetByInviteCode(first); got != nil {
		t.Error("old invite code still resolves")
	}
	got, err := fs.GetByInviteCode(second)
	if err != nil || got == nil {
		t.Fatalf("new code lookup: %v, %v", got, err)
	}
	if got.ID != f.ID {
		t.Errorf("code resolved to family %d, want %d", got.ID, f.ID)
	}
}

func TestInviteCodesAvoidAmbiguousCharacters(t *testing.T) {
	for _, forbidden := range "01OIL" {
		if strings.ContainsRune(inviteAlphabet, forbidden) {
			t.Errorf("alphabet contains ambiguous character %q", forbidden)
		}
	}

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		code, err := generateInviteCode()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if seen[code] {
			t.Fatalf("collision after %d codes: %s", i, code)
		}
		seen[code] = true
	}
}

func TestSetSubscription(t *testing.T) {
	db := setupTestDB(t)
	fs := NewFamilyStore(db)
	f := seedFamily(t, db)

	if err := fs.SetSubscription(f.ID, "premium", model.SubscriptionActive); err != nil {
		t.Fatalf("set subscription: %v", err)
	}
	got, _ := fs.GetByID(f.ID)
	if got.Plan != "premium" || got.SubscriptionStatus != model.SubscriptionActive {
		t.Errorf("plan = %q status = %q", got.Plan, got.SubscriptionStatus)
	}

	if err := fs.SetSubscriptionStatus(f.ID, model.SubscriptionInactive); err != nil {
		t.Fatalf("set status: %v", err)
	}
	got, _ = fs.GetByID(f.ID)
	if got.SubscriptionStatus != model.SubscriptionInactive {
		t.Errorf("status = %q, want inactive", got.SubscriptionStatus)
	}
}

func TestStripeCustomerLookup(t *testing.T) {
	db := setupTestDB(t)
	fs := NewFamilyStore(db)
	f := seedFamily(t, db)

	if err := fs.SetStripeCustomerID(f.ID, "cus_123"); err != nil {
		t.Fatalf("set customer id: %v", err)
	}

	got, err := fs.GetByStripeCustomerID("cus_123")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got == nil || got.ID != f.ID {
		t.Fatalf("lookup returned %v", got)
	}

	missing, err := fs.GetByStripeCustomerID("cus_missing")
	if err != nil || missing != nil {
		t.Errorf("missing customer: %v, %v", missing, err)
	}
}

func TestSetFeatures(t *testing.T) {
	db := setupTestDB(t)
	fs := NewFamilyStore(db)
	f := seedFamily(t, db)

	if err := fs.SetFeatures(f.ID, model.Features{"forum": false, "maxChoresPerMonth": 10}); err != nil {
		t.Fatalf("set features: %v", err)
	}
	got, _ := fs.GetByID(f.ID)
	if got.Features.Enabled("forum") {
		t.Error("forum still enabled")
	}
	if limit, _ := got.Features.Limit("maxChoresPerMonth"); limit != 10 {
		t.Errorf("limit = %d, want 10", limit)
	}
}

func TestUsageAccumulates(t *testing.T) {
	db := setupTestDB(t)
	fs := NewFamilyStore(db)
	f := seedFamily(t, db)
	now := time.Now().UTC()

	if err := fs.AddUsage(f.ID, 1, 10, now); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := fs.AddUsage(f.ID, 2, 5, now); err != nil {
		t.Fatalf("second add: %v", err)
	}

	stat, err := fs.GetUsage(f.ID, int(now.Month()), now.Year())
	if err != nil {
		t.Fatalf("get usage: %v", err)
	}
	if stat == nil {
		t.Fatal("no usage row")
	}
	if stat.ChoresCompleted != 3 {
		t.Errorf("chores_completed = %d, want 3", stat.ChoresCompleted)
	}
	if stat.PointsAwarded != 15 {
		t.Errorf("points_awarded = %d, want 15", stat.PointsAwarded)
	}
}

func TestTouchActivity(t *testing.T) {
	db := setupTestDB(t)
	fs := NewFamilyStore(db)
	f := seedFamily(t, db)
	u := seedUser(t, db, f.ID, model.RoleParent)
	now := time.Now().UTC()

	if err := fs.TouchActivity(f.ID, u.ID, now); err != nil {
		t.Fatalf("touch: %v", err)
	}
	// Idempotent for the same month.
	if err := fs.TouchActivity(f.ID, u.ID, now); err != nil {
		t.Fatalf("second touch: %v", err)
	}

	got, _ := fs.GetByID(f.ID)
	if got.LastActivityAt == nil {
		t.Fatal("last activity not recorded")
	}
	stat, err := fs.GetUsage(f.ID, int(now.Month()), now.Year())
	if err != nil || stat == nil {
		t.Fatalf("usage row after touch: %v, %v", stat, err)
	}
}

func TestTouchActivityCountsDistinctMembers(t *testing.T) {
	db := setupTestDB(t)
	fs := NewFamilyStore(db)
	f := seedFamily(t, db)
	parent := seedUser(t, db, f.ID, model.RoleParent)
	child := seedUser(t, db, f.ID, model.RoleChild)
	seedUser(t, db, f.ID, model.RoleChild) // never active
	now := time.Now().UTC()

	fs.TouchActivity(f.ID, parent.ID, now)
	fs.TouchActivity(f.ID, child.ID, now)
	// A repeat visit must not inflate the count.
	fs.TouchActivity(f.ID, child.ID, now)

	stat, err := fs.GetUsage(f.ID, int(now.Month()), now.Year())
	if err != nil || stat == nil {
		t.Fatalf("usage row: %v, %v", stat, err)
	}
	if stat.ActiveUsers != 2 {
		t.Errorf("active_users = %d, want 2", stat.ActiveUsers)
	}
}
