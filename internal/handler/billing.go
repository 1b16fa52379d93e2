package handler

import (
	"log/slog"
	"net/http"

	"github.com/rburns/chorepoint/internal/apperr"
	"github.com/rburns/chorepoint/internal/auth"
	"github.com/rburns/chorepoint/internal/billing"
	"github.com/rburns/chorepoint/internal/store"
)

type BillingHandler struct {
	billing *billing.Client
	users   *store.UserStore
	logger  *slog.Logger
}

func NewBillingHandler(bc *billing.Client, us *store.UserStore, logger *slog.Logger) *BillingHandler {
	return &BillingHandler{
		billing: bc,
		users:   us,
		logger:  logger.With("component", "billing_handler"),
	}
}

// CreateCheckout starts a premium subscription checkout and returns the hosted
// payment URL. The route gate restricts this to parents.
func (h *BillingHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	if !h.billing.Configured() {
		writeError(w, apperr.New(apperr.KindUpstreamUnavailable, "billing is not configured"))
		return
	}

	user, err := h.users.GetByID(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	if user == nil {
		writeError(w, apperr.New(apperr.KindUnauthenticated, "account no longer exists"))
		return
	}

	url, err := h.billing.CreateCheckoutSession(auth.FamilyID(r.Context()), user.Email)
	if err != nil {
		h.logger.Error("create checkout session", "family_id", auth.FamilyID(r.Context()), "error", err)
		writeError(w, apperr.Wrap(apperr.KindUpstreamUnavailable, "could not start checkout", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
