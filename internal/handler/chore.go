package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rburns/chorepoint/internal/apperr"
	"github.com/rburns/chorepoint/internal/auth"
	"github.com/rburns/chorepoint/internal/chore"
	"github.com/rburns/chorepoint/internal/model"
	"github.com/rburns/chorepoint/internal/store"
	"github.com/rburns/chorepoint/internal/websocket"
)

type ChoreHandler struct {
	lifecycle *chore.Service
	chores    *store.ChoreStore
	hub       *websocket.Hub
	logger    *slog.Logger
}

func NewChoreHandler(lifecycle *chore.Service, cs *store.ChoreStore, hub *websocket.Hub, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{
		lifecycle: lifecycle,
		chores:    cs,
		hub:       hub,
		logger:    logger.With("component", "chore_handler"),
	}
}

func (h *ChoreHandler) broadcast(familyID int64, action string, choreID int64) {
	h.hub.Broadcast(familyID, websocket.NewMessage("chore", action, choreID, nil))
}

type createChoreRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	AssignedTo  int64     `json:"assigned_to"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Points      int       `json:"points"`
	IsOutdoor   bool      `json:"is_outdoor"`
}

func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.FromContext(r.Context())

	var req createChoreRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	c, err := h.lifecycle.Create(caller, chore.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
		ScheduledAt: req.ScheduledAt,
		Points:      req.Points,
		IsOutdoor:   req.IsOutdoor,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.broadcast(caller.FamilyID, "created", c.ID)
	writeJSON(w, http.StatusCreated, c)
}

// List returns every chore in the caller's family, soonest first.
func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	chores, err := h.chores.ListByFamily(auth.FamilyID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	if chores == nil {
		chores = []model.Chore{}
	}
	writeJSON(w, http.StatusOK, chores)
}

// Mine returns the chores assigned to the caller.
func (h *ChoreHandler) Mine(w http.ResponseWriter, r *http.Request) {
	chores, err := h.chores.ListByAssignee(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	if chores == nil {
		chores = []model.Chore{}
	}
	writeJSON(w, http.StatusOK, chores)
}

func (h *ChoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.FromContext(r.Context())
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, apperr.New(apperr.KindValidationFailed, "invalid chore id"))
		return
	}

	c, err := h.lifecycle.Get(caller, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus drives the lifecycle state machine for one chore.
func (h *ChoreHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.FromContext(r.Context())
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, apperr.New(apperr.KindValidationFailed, "invalid chore id"))
		return
	}

	var req statusRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	target, ok := chore.ParseStatus(req.Status)
	if !ok {
		writeError(w, apperr.New(apperr.KindValidationFailed, "unknown status"))
		return
	}

	c, err := h.lifecycle.Transition(caller, id, target)
	if err != nil {
		writeError(w, err)
		return
	}

	h.broadcast(caller.FamilyID, string(target), c.ID)
	writeJSON(w, http.StatusOK, c)
}

type noteRequest struct {
	Content string `json:"content"`
}

func (h *ChoreHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.FromContext(r.Context())
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, apperr.New(apperr.KindValidationFailed, "invalid chore id"))
		return
	}

	var req noteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	c, err := h.lifecycle.AddNote(caller, id, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ChoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.FromContext(r.Context())
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, apperr.New(apperr.KindValidationFailed, "invalid chore id"))
		return
	}

	if err := h.lifecycle.Delete(caller, id); err != nil {
		writeError(w, err)
		return
	}

	h.broadcast(caller.FamilyID, "deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

// Stats returns per-assignee chore counts and point totals for the family.
func (h *ChoreHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.chores.Stats(auth.FamilyID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	if stats == nil {
		stats = []model.AssigneeStats{}
	}
	writeJSON(w, http.StatusOK, stats)
}
