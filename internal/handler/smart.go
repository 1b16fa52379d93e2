package handler

import (
	"log/slog"
	"net/http"

	"github.com/rburns/chorepoint/internal/auth"
	"github.com/rburns/chorepoint/internal/model"
	"github.com/rburns/chorepoint/internal/smart"
	"github.com/rburns/chorepoint/internal/websocket"
)

type SmartHandler struct {
	smart  *smart.Service
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewSmartHandler(ss *smart.Service, hub *websocket.Hub, logger *slog.Logger) *SmartHandler {
	return &SmartHandler{
		smart:  ss,
		hub:    hub,
		logger: logger.With("component", "smart_handler"),
	}
}

// Suggest returns chore ideas from the suggestion service.
func (h *SmartHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.FromContext(r.Context())

	suggestions, err := h.smart.Suggest(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"suggestions": suggestions})
}

// Rotate redistributes pending chores round-robin across the children.
func (h *SmartHandler) Rotate(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.FromContext(r.Context())

	rotated, err := h.smart.Rotate(caller)
	if err != nil {
		writeError(w, err)
		return
	}
	if rotated == nil {
		rotated = []model.Chore{}
	}

	if len(rotated) > 0 {
		h.hub.Broadcast(caller.FamilyID, websocket.NewMessage("chore", "rotated", 0, map[string]any{"count": len(rotated)}))
	}
	writeJSON(w, http.StatusOK, rotated)
}

// AdjustForWeather runs the weather adjuster and reports what it did.
func (h *SmartHandler) AdjustForWeather(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.FromContext(r.Context())

	result, err := h.smart.AdjustForWeather(caller)
	if err != nil {
		writeError(w, err)
		return
	}
	if result.Rescheduled == nil {
		result.Rescheduled = []model.Chore{}
	}

	if result.Adjusted {
		h.hub.Broadcast(caller.FamilyID, websocket.NewMessage("chore", "rescheduled", 0, map[string]any{"count": len(result.Rescheduled)}))
	}
	writeJSON(w, http.StatusOK, result)
}

// Forecast exposes the cached forecast without adjusting anything.
func (h *SmartHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	f, err := h.smart.Forecast()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}
