package handler

import (
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/rburns/chorepoint/internal/apperr"
	"github.com/rburns/chorepoint/internal/auth"
	"github.com/rburns/chorepoint/internal/email"
	"github.com/rburns/chorepoint/internal/model"
	"github.com/rburns/chorepoint/internal/store"
)

type FamilyHandler struct {
	families *store.FamilyStore
	users    *store.UserStore
	email    *email.Client
	logger   *slog.Logger
}

func NewFamilyHandler(fs *store.FamilyStore, us *store.UserStore, ec *email.Client, logger *slog.Logger) *FamilyHandler {
	return &FamilyHandler{
		families: fs,
		users:    us,
		email:    ec,
		logger:   logger.With("component", "family_handler"),
	}
}

// Get returns the caller's family and its members.
func (h *FamilyHandler) Get(w http.ResponseWriter, r *http.Request) {
	family, ok := auth.FamilyFromContext(r.Context())
	if !ok {
		writeError(w, apperr.New(apperr.KindForbidden, "join a family first"))
		return
	}

	members, err := h.users.ListByFamily(family.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if members == nil {
		members = []model.User{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"family":  family,
		"members": members,
	})
}

// RegenerateInviteCode mints a fresh invite code, invalidating the old one.
// The route gate restricts this to parents.
func (h *FamilyHandler) RegenerateInviteCode(w http.ResponseWriter, r *http.Request) {
	code, err := h.families.RegenerateInviteCode(auth.FamilyID(r.Context()))
	if err != nil {
		h.logger.Error("regenerate invite code", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"invite_code": code})
}

type joinRequest struct {
	Code string `json:"code"`
}

// Join moves the caller into the family matching the invite code. Joining
// overwrites any prior membership.
func (h *FamilyHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		writeError(w, apperr.New(apperr.KindValidationFailed, "invite code is required"))
		return
	}

	family, err := h.families.GetByInviteCode(code)
	if err != nil {
		writeError(w, err)
		return
	}
	if family == nil {
		writeError(w, apperr.New(apperr.KindNotFound, "invite code not recognized"))
		return
	}

	if err := h.users.SetFamily(auth.UserID(r.Context()), family.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, family)
}

type inviteRequest struct {
	Email string `json:"email"`
}

// Invite emails the family's invite code to a prospective member. The route
// gate restricts this to parents; generates a code first if the family has
// none yet.
func (h *FamilyHandler) Invite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, apperr.New(apperr.KindValidationFailed, "a valid email is required"))
		return
	}

	family, ok := auth.FamilyFromContext(r.Context())
	if !ok {
		writeError(w, apperr.New(apperr.KindForbidden, "join a family first"))
		return
	}

	code := ""
	if family.InviteCode != nil {
		code = *family.InviteCode
	}
	if code == "" {
		var err error
		code, err = h.families.RegenerateInviteCode(family.ID)
		if err != nil {
			writeError(w, err)
			return
		}
	}

	if !h.email.Configured() {
		writeError(w, apperr.New(apperr.KindUpstreamUnavailable, "email delivery is not configured"))
		return
	}
	if err := h.email.SendInvite(req.Email, family.Name, code); err != nil {
		h.logger.Warn("send invite email", "email", req.Email, "error", err)
		writeError(w, apperr.Wrap(apperr.KindUpstreamUnavailable, "could not send invite email", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// Usage returns the family's usage stats for the given month, defaulting to
// the current one.
func (h *FamilyHandler) Usage(w http.ResponseWriter, r *http.Request) {
	family, ok := auth.FamilyFromContext(r.Context())
	if !ok {
		writeError(w, apperr.New(apperr.KindForbidden, "join a family first"))
		return
	}

	month, year := currentMonthYear()
	stat, err := h.families.GetUsage(family.ID, month, year)
	if err != nil {
		writeError(w, err)
		return
	}
	if stat == nil {
		stat = &model.UsageStat{FamilyID: family.ID, Month: month, Year: year}
	}
	writeJSON(w, http.StatusOK, stat)
}
