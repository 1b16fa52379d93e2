package middleware

import (
	"net/http"
	"time"

	"github.com/rburns/chorepoint/internal/apperr"
	"github.com/rburns/chorepoint/internal/auth"
	"github.com/rburns/chorepoint/internal/model"
)

// RequireFamily resolves the caller's family and stashes the record in the
// request context for the gates downstream. Users who have not joined a
// family yet are turned away here.
func (g *Gate) RequireFamily(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		familyID := auth.FamilyID(r.Context())
		if familyID == 0 {
			writeError(w, apperr.New(apperr.KindForbidden, "join a family first"))
			return
		}

		family, err := g.families.GetByID(familyID)
		if err != nil {
			g.logger.Error("load family", "family_id", familyID, "error", err)
			writeError(w, err)
			return
		}
		if family == nil {
			writeError(w, apperr.New(apperr.KindForbidden, "join a family first"))
			return
		}

		ctx := auth.WithFamily(r.Context(), family)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireActiveSubscription rejects requests from families whose subscription
// has lapsed. A trial past its end date is demoted to inactive here, durably,
// so the expiry survives even if the billing webhook never fires.
func (g *Gate) RequireActiveSubscription(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		family, ok := auth.FamilyFromContext(r.Context())
		if !ok {
			writeError(w, apperr.New(apperr.KindForbidden, "join a family first"))
			return
		}

		switch family.SubscriptionStatus {
		case model.SubscriptionActive:
			next.ServeHTTP(w, r)
			return

		case model.SubscriptionTrial:
			if family.TrialEndsAt == nil || time.Now().Before(*family.TrialEndsAt) {
				next.ServeHTTP(w, r)
				return
			}
			if err := g.families.SetSubscriptionStatus(family.ID, model.SubscriptionInactive); err != nil {
				g.logger.Error("demote expired trial", "family_id", family.ID, "error", err)
			}
			family.SubscriptionStatus = model.SubscriptionInactive
			writeError(w, apperr.New(apperr.KindTrialExpired, "trial period has ended"))
			return

		default:
			writeError(w, apperr.New(apperr.KindSubscriptionInactive, "subscription is not active"))
			return
		}
	})
}

// RequireFeature checks that the named boolean feature is enabled on the
// family's plan. Runs after RequireFamily.
func (g *Gate) RequireFeature(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			family, ok := auth.FamilyFromContext(r.Context())
			if !ok || !family.Features.Enabled(name) {
				writeError(w, apperr.New(apperr.KindFeatureDisabled, "feature not available on your plan"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LimitMonthlyChores enforces the maxChoresPerMonth plan limit on chore
// creation. The count covers chores created since the start of the current
// calendar month; a plan without the limit is unmetered.
func (g *Gate) LimitMonthlyChores(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		family, ok := auth.FamilyFromContext(r.Context())
		if !ok {
			writeError(w, apperr.New(apperr.KindForbidden, "join a family first"))
			return
		}

		limit, metered := family.Features.Limit("maxChoresPerMonth")
		if metered {
			now := time.Now().UTC()
			monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
			count, err := g.chores.CountCreatedSince(family.ID, monthStart)
			if err != nil {
				g.logger.Error("count monthly chores", "family_id", family.ID, "error", err)
				writeError(w, err)
				return
			}
			if count >= limit {
				writeError(w, apperr.New(apperr.KindLimitReached, "monthly chore limit reached"))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// TrackUsage records family activity after a successful response. Tracking
// failures are logged, never surfaced; usage accounting must not break the
// request it is accounting for.
func (g *Gate) TrackUsage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if rec.status >= 400 {
			return
		}
		familyID := auth.FamilyID(r.Context())
		if familyID == 0 {
			return
		}
		if err := g.families.TouchActivity(familyID, auth.UserID(r.Context()), time.Now()); err != nil {
			g.logger.Error("track usage", "family_id", familyID, "error", err)
		}
	})
}
