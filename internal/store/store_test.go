package store

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/rburns/chorepoint/internal/database"
	"github.com/rburns/chorepoint/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedFamily(t *testing.T, db *sql.DB) *model.Family {
	t.Helper()
	trialEnds := time.Now().UTC().AddDate(0, 0, 14)
	f, err := NewFamilyStore(db).Create("Test Family", "free", model.SubscriptionTrial, &trialEnds, model.Features{
		"smart": true, "forum": true, "money": true, "maxChoresPerMonth": 100,
	})
	if err != nil {
		t.Fatalf("seed family: %v", err)
	}
	return f
}

var seedCounter int

func seedUser(t *testing.T, db *sql.DB, familyID int64, role model.Role) *model.User {
	t.Helper()
	us := NewUserStore(db)
	seedCounter++
	u, err := us.Create(fmt.Sprintf("user%d@example.com", seedCounter), "hash", fmt.Sprintf("User %d", seedCounter), role)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if familyID != 0 {
		if err := us.SetFamily(u.ID, familyID); err != nil {
			t.Fatalf("set family: %v", err)
		}
		u.FamilyID = &familyID
	}
	return u
}

func seedChore(t *testing.T, db *sql.DB, familyID, assignedTo int64, points int, outdoor bool) *model.Chore {
	t.Helper()
	c, err := NewChoreStore(db).Create(familyID, "Test chore", "", assignedTo, time.Now().Add(time.Hour), points, outdoor)
	if err != nil {
		t.Fatalf("seed chore: %v", err)
	}
	return c
}
