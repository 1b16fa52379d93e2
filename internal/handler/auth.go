package handler

import (
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/rburns/chorepoint/internal/apperr"
	"github.com/rburns/chorepoint/internal/auth"
	"github.com/rburns/chorepoint/internal/email"
	"github.com/rburns/chorepoint/internal/model"
	"github.com/rburns/chorepoint/internal/store"
)

const (
	trialDays       = 14
	minPasswordLen  = 8
	bcryptCost      = bcrypt.DefaultCost
	defaultMaxChore = 100
)

// defaultTrialFeatures is the feature set every new family starts its trial
// with.
func defaultTrialFeatures() model.Features {
	return model.Features{
		"smart":             true,
		"forum":             true,
		"money":             true,
		"maxChoresPerMonth": defaultMaxChore,
	}
}

type AuthHandler struct {
	users    *store.UserStore
	families *store.FamilyStore
	tokens   *auth.Tokens
	email    *email.Client
	logger   *slog.Logger
}

func NewAuthHandler(us *store.UserStore, fs *store.FamilyStore, tokens *auth.Tokens, ec *email.Client, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:    us,
		families: fs,
		tokens:   tokens,
		email:    ec,
		logger:   logger.With("component", "auth_handler"),
	}
}

type registerRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	InviteCode string `json:"invite_code"`
}

type authResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// Register creates an account. A parent registering without an invite code
// founds a new family on a trial plan; an invite code joins its family
// regardless of role.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	role := model.Role(req.Role)

	if req.Name == "" {
		writeError(w, apperr.New(apperr.KindValidationFailed, "name is required"))
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, apperr.New(apperr.KindValidationFailed, "a valid email is required"))
		return
	}
	if len(req.Password) < minPasswordLen {
		writeError(w, apperr.New(apperr.KindValidationFailed, "password must be at least 8 characters"))
		return
	}
	if !role.Valid() {
		writeError(w, apperr.New(apperr.KindValidationFailed, "role must be parent or child"))
		return
	}

	existing, err := h.users.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("check existing email", "error", err)
		writeError(w, err)
		return
	}
	if existing != nil {
		writeError(w, apperr.New(apperr.KindValidationFailed, "email is already registered"))
		return
	}

	// Resolve the family before creating the user so a bad invite code does
	// not leave an orphan account.
	var family *model.Family
	code := strings.ToUpper(strings.TrimSpace(req.InviteCode))
	if code != "" {
		family, err = h.families.GetByInviteCode(code)
		if err != nil {
			writeError(w, err)
			return
		}
		if family == nil {
			writeError(w, apperr.New(apperr.KindNotFound, "invite code not recognized"))
			return
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeError(w, err)
		return
	}

	user, err := h.users.Create(req.Email, string(hash), req.Name, role)
	if err != nil {
		writeError(w, err)
		return
	}

	if family == nil && role == model.RoleParent {
		trialEnds := time.Now().UTC().AddDate(0, 0, trialDays)
		family, err = h.families.Create(req.Name+"'s Family", "free", model.SubscriptionTrial, &trialEnds, defaultTrialFeatures())
		if err != nil {
			writeError(w, err)
			return
		}
		if _, err := h.families.RegenerateInviteCode(family.ID); err != nil {
			h.logger.Error("generate initial invite code", "family_id", family.ID, "error", err)
		}
	}

	if family != nil {
		if err := h.users.SetFamily(user.ID, family.ID); err != nil {
			writeError(w, err)
			return
		}
		user.FamilyID = &family.ID
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.logger.Error("issue token", "user_id", user.ID, "error", err)
		writeError(w, err)
		return
	}

	if h.email.Configured() {
		if err := h.email.SendWelcome(user.Email, user.Name); err != nil {
			h.logger.Warn("send welcome email", "email", user.Email, "error", err)
		}
	}

	writeJSON(w, http.StatusCreated, authResponse{User: user, Token: token})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		writeError(w, err)
		return
	}
	if user == nil {
		writeError(w, apperr.New(apperr.KindUnauthenticated, "invalid email or password"))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, apperr.New(apperr.KindUnauthenticated, "invalid email or password"))
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.logger.Error("issue token", "user_id", user.ID, "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{User: user, Token: token})
}

// Me returns the caller's own record.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	if user == nil {
		writeError(w, apperr.New(apperr.KindUnauthenticated, "account no longer exists"))
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type profileRequest struct {
	Name             string `json:"name"`
	RemindersEnabled *bool  `json:"reminders_enabled"`
}

// UpdateMe changes the caller's display name and reminder preference.
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	current, err := h.users.GetByID(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	if current == nil {
		writeError(w, apperr.New(apperr.KindUnauthenticated, "account no longer exists"))
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = current.Name
	}
	reminders := current.RemindersEnabled
	if req.RemindersEnabled != nil {
		reminders = *req.RemindersEnabled
	}

	updated, err := h.users.UpdateProfile(current.ID, name, reminders)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
