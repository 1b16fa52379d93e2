package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/rburns/chorepoint/internal/apperr"
	"github.com/rburns/chorepoint/internal/auth"
	"github.com/rburns/chorepoint/internal/push"
	"github.com/rburns/chorepoint/internal/store"
)

type PushHandler struct {
	subs   *store.PushStore
	push   *push.Service
	logger *slog.Logger
}

func NewPushHandler(ps *store.PushStore, svc *push.Service, logger *slog.Logger) *PushHandler {
	return &PushHandler{
		subs:   ps,
		push:   svc,
		logger: logger.With("component", "push_handler"),
	}
}

// VAPIDKey returns the public key the browser needs to subscribe.
func (h *PushHandler) VAPIDKey(w http.ResponseWriter, r *http.Request) {
	if !h.push.Configured() {
		writeError(w, apperr.New(apperr.KindUpstreamUnavailable, "push notifications are not configured"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.push.VAPIDPublicKey()})
}

type subscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// Subscribe registers the caller's browser push subscription.
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Endpoint) == "" || req.Keys.P256dh == "" || req.Keys.Auth == "" {
		writeError(w, apperr.New(apperr.KindValidationFailed, "endpoint and keys are required"))
		return
	}

	sub, err := h.subs.Subscribe(auth.UserID(r.Context()), req.Endpoint, req.Keys.P256dh, req.Keys.Auth)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

// Unsubscribe removes one of the caller's subscriptions by endpoint.
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Endpoint) == "" {
		writeError(w, apperr.New(apperr.KindValidationFailed, "endpoint is required"))
		return
	}

	sub, err := h.subs.GetByEndpoint(req.Endpoint)
	if err != nil {
		writeError(w, err)
		return
	}
	if sub == nil {
		writeError(w, apperr.New(apperr.KindNotFound, "subscription not found"))
		return
	}
	if sub.UserID != auth.UserID(r.Context()) {
		writeError(w, apperr.New(apperr.KindForbidden, "subscription belongs to another user"))
		return
	}

	if err := h.subs.Delete(sub.ID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
