package billing

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	stripe "github.com/stripe/stripe-go/v82"

	"github.com/rburns/chorepoint/internal/model"
	"github.com/rburns/chorepoint/internal/store"
)

// EventVerifier is the slice of the Stripe client the webhook needs; tests
// substitute a stub that skips signature verification.
type EventVerifier interface {
	ConstructWebhookEvent(payload []byte, sigHeader string) (stripe.Event, error)
}

// WebhookHandler applies Stripe subscription events to families. Event
// handling is deliberately forgiving: a malformed or unmatchable event is
// logged and acknowledged so Stripe does not retry it forever.
type WebhookHandler struct {
	verifier EventVerifier
	families *store.FamilyStore
	logger   *slog.Logger
}

func NewWebhookHandler(verifier EventVerifier, families *store.FamilyStore, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		verifier: verifier,
		families: families,
		logger:   logger.With("component", "billing_webhook"),
	}
}

func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 65536))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	event, err := h.verifier.ConstructWebhookEvent(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		h.handleCheckoutCompleted(event)
	case "invoice.paid":
		h.handleInvoiceEvent(event, model.SubscriptionActive)
	case "invoice.payment_failed":
		h.handleInvoiceEvent(event, model.SubscriptionInactive)
	case "customer.subscription.deleted":
		h.handleSubscriptionDeleted(event)
	}

	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) handleCheckoutCompleted(event stripe.Event) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		h.logger.Error("unmarshal checkout session", "error", err)
		return
	}

	familyID, err := strconv.ParseInt(sess.ClientReferenceID, 10, 64)
	if err != nil {
		h.logger.Error("checkout session missing family reference", "client_reference_id", sess.ClientReferenceID)
		return
	}

	if sess.Customer != nil {
		if err := h.families.SetStripeCustomerID(familyID, sess.Customer.ID); err != nil {
			h.logger.Error("set stripe customer", "family_id", familyID, "error", err)
		}
	}

	if err := h.families.SetSubscription(familyID, "premium", model.SubscriptionActive); err != nil {
		h.logger.Error("activate subscription", "family_id", familyID, "error", err)
		return
	}
	h.logger.Info("checkout completed", "family_id", familyID)
}

func (h *WebhookHandler) handleInvoiceEvent(event stripe.Event, status model.SubscriptionStatus) {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		h.logger.Error("unmarshal invoice", "error", err)
		return
	}
	if invoice.Customer == nil {
		return
	}
	h.setStatusByCustomer(invoice.Customer.ID, status)
}

func (h *WebhookHandler) handleSubscriptionDeleted(event stripe.Event) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		h.logger.Error("unmarshal subscription", "error", err)
		return
	}
	if sub.Customer == nil {
		return
	}
	h.setStatusByCustomer(sub.Customer.ID, model.SubscriptionInactive)
}

func (h *WebhookHandler) setStatusByCustomer(customerID string, status model.SubscriptionStatus) {
	family, err := h.families.GetByStripeCustomerID(customerID)
	if err != nil {
		h.logger.Error("look up family by stripe customer", "customer_id", customerID, "error", err)
		return
	}
	if family == nil {
		h.logger.Warn("stripe event for unknown customer", "customer_id", customerID)
		return
	}
	if err := h.families.SetSubscriptionStatus(family.ID, status); err != nil {
		h.logger.Error("update subscription status", "family_id", family.ID, "error", err)
		return
	}
	h.logger.Info("subscription status updated", "family_id", family.ID, "status", status)
}
