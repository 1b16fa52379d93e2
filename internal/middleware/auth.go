// Package middleware implements the request gate chain: authentication,
// family resolution, subscription and feature checks, usage tracking, request
// logging, and rate limiting.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/rburns/chorepoint/internal/apperr"
	"github.com/rburns/chorepoint/internal/auth"
	"github.com/rburns/chorepoint/internal/store"
)

// Gate holds the stores the access-control chain needs. One Gate serves all
// routes; the per-route difference is which of its methods are chained.
type Gate struct {
	tokens   *auth.Tokens
	users    *store.UserStore
	families *store.FamilyStore
	chores   *store.ChoreStore
	logger   *slog.Logger
}

func NewGate(tokens *auth.Tokens, us *store.UserStore, fs *store.FamilyStore, cs *store.ChoreStore, logger *slog.Logger) *Gate {
	return &Gate{
		tokens:   tokens,
		users:    us,
		families: fs,
		chores:   cs,
		logger:   logger.With("component", "gate"),
	}
}

// RequireAuth validates the bearer token and populates AuthContext with the
// caller's identity, role, and family.
func (g *Gate) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, apperr.New(apperr.KindUnauthenticated, "missing bearer token"))
			return
		}

		userID, err := g.tokens.Verify(token)
		if err != nil {
			writeError(w, apperr.New(apperr.KindUnauthenticated, "invalid or expired token"))
			return
		}

		user, err := g.users.GetByID(userID)
		if err != nil {
			g.logger.Error("load user for token", "user_id", userID, "error", err)
			writeError(w, err)
			return
		}
		if user == nil {
			// Token outlived the account.
			writeError(w, apperr.New(apperr.KindUnauthenticated, "invalid or expired token"))
			return
		}

		ac := auth.AuthContext{UserID: user.ID, Role: user.Role}
		if user.FamilyID != nil {
			ac.FamilyID = *user.FamilyID
		}

		ctx := auth.WithAuth(r.Context(), ac)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireParent rejects non-parent callers. Runs after RequireAuth.
func (g *Gate) RequireParent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsParent(r.Context()) {
			writeError(w, apperr.New(apperr.KindForbidden, "parent role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
