package store

import (
	"testing"
	"time"

	"github.com/rburns/chorepoint/internal/model"
)

func TestSavingsGoalLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ms := NewMoneyStore(db)
	u := seedUser(t, db, 0, model.RoleChild)

	goal, err := ms.CreateSavingsGoal(u.ID, "New bike", 15000)
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	if goal.SavedCents != 0 {
		t.Errorf("saved_cents = %d, want 0", goal.SavedCents)
	}

	goal, err = ms.AddToSavingsGoal(goal.ID, 2500)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if goal.SavedCents != 2500 {
		t.Errorf("saved_cents = %d, want 2500", goal.SavedCents)
	}

	// Withdrawals are negative deltas.
	goal, err = ms.AddToSavingsGoal(goal.ID, -500)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if goal.SavedCents != 2000 {
		t.Errorf("saved_cents = %d, want 2000", goal.SavedCents)
	}

	goals, err := ms.ListSavingsGoals(u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(goals) != 1 {
		t.Errorf("got %d goals, want 1", len(goals))
	}
}

func TestTransactionsNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	ms := NewMoneyStore(db)
	u := seedUser(t, db, 0, model.RoleChild)

	if _, err := ms.CreateTransaction(u.ID, "earned", 500, "Allowance"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := ms.CreateTransaction(u.ID, "spent", -200, "Candy"); err != nil {
		t.Fatalf("create: %v", err)
	}

	txs, err := ms.ListTransactions(u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txs))
	}
	if txs[0].Description != "Candy" {
		t.Errorf("first transaction = %q, want newest", txs[0].Description)
	}
}

func TestTransactionKindsAccepted(t *testing.T) {
	db := setupTestDB(t)
	ms := NewMoneyStore(db)
	u := seedUser(t, db, 0, model.RoleChild)

	// Every kind the API accepts must also pass the schema's CHECK.
	for _, kind := range []string{"earned", "spent", "saved", "donated", "adjusted"} {
		if _, err := ms.CreateTransaction(u.ID, kind, 100, "test"); err != nil {
			t.Errorf("kind %q: %v", kind, err)
		}
	}
}

func TestLessonProgressUpsert(t *testing.T) {
	db := setupTestDB(t)
	ms := NewMoneyStore(db)
	u := seedUser(t, db, 0, model.RoleChild)

	p, err := ms.UpsertLessonProgress(u.ID, "budgeting-101", false, 40, nil)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if p.Completed || p.CompletedAt != nil {
		t.Error("incomplete lesson carries completion state")
	}

	now := time.Now().UTC()
	p, err = ms.UpsertLessonProgress(u.ID, "budgeting-101", true, 90, &now)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if !p.Completed || p.Score != 90 || p.CompletedAt == nil {
		t.Errorf("progress = %+v", p)
	}

	// The upsert replaced, not duplicated.
	all, err := ms.ListLessonProgress(u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("got %d rows, want 1", len(all))
	}
}

func TestMoneyGoalUpsert(t *testing.T) {
	db := setupTestDB(t)
	ms := NewMoneyStore(db)
	u := seedUser(t, db, 0, model.RoleChild)

	missing, err := ms.GetMoneyGoal(u.ID)
	if err != nil || missing != nil {
		t.Fatalf("unset goal: %v, %v", missing, err)
	}

	g, err := ms.SetMoneyGoal(u.ID, 50, 30, 20)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if g.SavingsPct != 50 || g.SpendingPct != 30 || g.DonationPct != 20 {
		t.Errorf("goal = %+v", g)
	}

	g, err = ms.SetMoneyGoal(u.ID, 70, 20, 10)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if g.SavingsPct != 70 {
		t.Errorf("savings_pct = %d, want 70", g.SavingsPct)
	}
}
