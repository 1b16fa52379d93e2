package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rburns/chorepoint/internal/auth"
	"github.com/rburns/chorepoint/internal/database"
	"github.com/rburns/chorepoint/internal/email"
	"github.com/rburns/chorepoint/internal/store"
)

type authFixture struct {
	h        *AuthHandler
	users    *store.UserStore
	families *store.FamilyStore
	tokens   *auth.Tokens
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	users := store.NewUserStore(db)
	families := store.NewFamilyStore(db)
	tokens := auth.NewTokens("test-secret", time.Hour)
	h := NewAuthHandler(users, families, tokens, email.NewClient("", ""), slog.Default())

	return &authFixture{h: h, users: users, families: families, tokens: tokens}
}

func postJSON(t *testing.T, handlerFunc http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatalf("encode body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	rec := httptest.NewRecorder()
	handlerFunc(rec, req)
	return rec
}

func decodeAuthResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestRegisterParentFoundsFamily(t *testing.T) {
	f := newAuthFixture(t)

	rec := postJSON(t, f.h.Register, map[string]string{
		"name": "Pat", "email": "pat@example.com", "password": "longenough", "role": "parent",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	body := decodeAuthResponse(t, rec)
	user := body["user"].(map[string]any)
	if user["family_id"] == nil {
		t.Fatal("parent registration did not found a family")
	}
	if body["token"] == "" {
		t.Error("no token issued")
	}

	family, err := f.families.GetByID(int64(user["family_id"].(float64)))
	if err != nil || family == nil {
		t.Fatalf("load founded family: %v", err)
	}
	if family.Name != "Pat's Family" {
		t.Errorf("family name = %q", family.Name)
	}
	if family.SubscriptionStatus != "trial" {
		t.Errorf("subscription status = %q, want trial", family.SubscriptionStatus)
	}
	if family.TrialEndsAt == nil || time.Until(*family.TrialEndsAt) < 13*24*time.Hour {
		t.Error("trial end missing or too short")
	}
	if family.InviteCode == nil || *family.InviteCode == "" {
		t.Error("founded family has no invite code")
	}
	for _, feature := range []string{"smart", "forum", "money"} {
		if !family.Features.Enabled(feature) {
			t.Errorf("trial feature %s not enabled", feature)
		}
	}
	if limit, ok := family.Features.Limit("maxChoresPerMonth"); !ok || limit != 100 {
		t.Errorf("maxChoresPerMonth = %d, %v", limit, ok)
	}
}

func TestRegisterValidation(t *testing.T) {
	f := newAuthFixture(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing name", map[string]string{"email": "a@b.com", "password": "longenough", "role": "parent"}},
		{"bad email", map[string]string{"name": "A", "email": "nope", "password": "longenough", "role": "parent"}},
		{"short password", map[string]string{"name": "A", "email": "a@b.com", "password": "short", "role": "parent"}},
		{"bad role", map[string]string{"name": "A", "email": "a@b.com", "password": "longenough", "role": "admin"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, f.h.Register, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)

	body := map[string]string{"name": "Pat", "email": "pat@example.com", "password": "longenough", "role": "parent"}
	if rec := postJSON(t, f.h.Register, body); rec.Code != http.StatusCreated {
		t.Fatalf("first register: status %d", rec.Code)
	}
	rec := postJSON(t, f.h.Register, body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate register: status %d, want 400", rec.Code)
	}
}

func TestRegisterEmailCaseInsensitive(t *testing.T) {
	f := newAuthFixture(t)

	rec := postJSON(t, f.h.Register, map[string]string{
		"name": "Pat", "email": "Pat@Example.COM", "password": "longenough", "role": "parent",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status %d", rec.Code)
	}

	rec = postJSON(t, f.h.Login, map[string]string{"email": "pat@example.com", "password": "longenough"})
	if rec.Code != http.StatusOK {
		t.Errorf("lowercased login: status %d, want 200", rec.Code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	f := newAuthFixture(t)

	postJSON(t, f.h.Register, map[string]string{
		"name": "Pat", "email": "pat@example.com", "password": "longenough", "role": "parent",
	})

	rec := postJSON(t, f.h.Login, map[string]string{"email": "pat@example.com", "password": "wrongwrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: status %d, want 401", rec.Code)
	}

	// Unknown accounts get the same answer as wrong passwords.
	rec = postJSON(t, f.h.Login, map[string]string{"email": "nobody@example.com", "password": "longenough"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown email: status %d, want 401", rec.Code)
	}
}

func TestUpdateMe(t *testing.T) {
	f := newAuthFixture(t)

	rec := postJSON(t, f.h.Register, map[string]string{
		"name": "Pat", "email": "pat@example.com", "password": "longenough", "role": "parent",
	})
	body := decodeAuthResponse(t, rec)
	userID := int64(body["user"].(map[string]any)["id"].(float64))

	var buf bytes.Buffer
	json.NewEncoder(&buf).Encode(map[string]any{"name": "Patricia", "reminders_enabled": false})
	req := httptest.NewRequest(http.MethodPut, "/", &buf)
	req = req.WithContext(auth.WithAuth(req.Context(), auth.AuthContext{UserID: userID, Role: "parent"}))
	rec2 := httptest.NewRecorder()
	f.h.UpdateMe(rec2, req)

	if rec2.Code != http.StatusOK {
		t.Fatalf("update: status %d, body %s", rec2.Code, rec2.Body.String())
	}
	updated, err := f.users.GetByID(userID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if updated.Name != "Patricia" {
		t.Errorf("name = %q", updated.Name)
	}
	if updated.RemindersEnabled {
		t.Error("reminders still enabled")
	}
}
