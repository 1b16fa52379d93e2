package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rburns/chorepoint/internal/auth"
	"github.com/rburns/chorepoint/internal/model"
)

func TestRequireAuth(t *testing.T) {
	f := setupGate(t)
	fam := f.newFamily(t, model.SubscriptionActive, nil, model.Features{})
	u := f.newMember(t, fam.ID, "p@example.com", model.RoleParent)

	token, err := f.tokens.Issue(u.ID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	var gotAC auth.AuthContext
	h := f.gate.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAC, _ = auth.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest("GET", "/api/me", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if gotAC.UserID != u.ID || gotAC.Role != model.RoleParent || gotAC.FamilyID != fam.ID {
		t.Errorf("auth context = %+v", gotAC)
	}
}

func TestRequireAuthRejections(t *testing.T) {
	f := setupGate(t)

	cases := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"wrong scheme", "Basic abc"},
		{"empty token", "Bearer "},
		{"garbage token", "Bearer not-a-jwt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/me", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			f.gate.RequireAuth(okHandler()).ServeHTTP(w, r)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
			if kind := errKind(t, w); kind != "unauthenticated" {
				t.Errorf("kind = %q, want unauthenticated", kind)
			}
		})
	}
}

func TestRequireAuthDeletedUser(t *testing.T) {
	f := setupGate(t)
	fam := f.newFamily(t, model.SubscriptionActive, nil, model.Features{})
	u := f.newMember(t, fam.ID, "gone@example.com", model.RoleParent)

	token, err := f.tokens.Issue(u.ID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := f.db.Exec(`DELETE FROM users WHERE id = ?`, u.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	r := httptest.NewRequest("GET", "/api/me", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	f.gate.RequireAuth(okHandler()).ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRequireParent(t *testing.T) {
	f := setupGate(t)
	fam := f.newFamily(t, model.SubscriptionActive, nil, model.Features{})
	child := f.newMember(t, fam.ID, "c@example.com", model.RoleChild)

	w := f.send(t, child, f.gate.RequireParent(okHandler()))
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}

	parent := f.newMember(t, fam.ID, "p@example.com", model.RoleParent)
	if w := f.send(t, parent, f.gate.RequireParent(okHandler())); w.Code != http.StatusOK {
		t.Errorf("parent status = %d, want 200", w.Code)
	}
}
