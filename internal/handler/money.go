package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rburns/chorepoint/internal/apperr"
	"github.com/rburns/chorepoint/internal/auth"
	"github.com/rburns/chorepoint/internal/model"
	"github.com/rburns/chorepoint/internal/store"
)

var transactionKinds = map[string]bool{
	"earned":   true,
	"spent":    true,
	"saved":    true,
	"donated":  true,
	"adjusted": true,
}

// MoneyHandler serves the money-management endpoints. All records are
// owner-scoped: a caller only ever reads or writes their own.
type MoneyHandler struct {
	money  *store.MoneyStore
	logger *slog.Logger
}

func NewMoneyHandler(ms *store.MoneyStore, logger *slog.Logger) *MoneyHandler {
	return &MoneyHandler{
		money:  ms,
		logger: logger.With("component", "money_handler"),
	}
}

// loadGoal resolves a savings goal and enforces owner-only access.
func (h *MoneyHandler) loadGoal(r *http.Request, goalID int64) (*model.SavingsGoal, error) {
	goal, err := h.money.GetSavingsGoal(goalID)
	if err != nil {
		return nil, err
	}
	if goal == nil {
		return nil, apperr.New(apperr.KindNotFound, "savings goal not found")
	}
	if goal.UserID != auth.UserID(r.Context()) {
		return nil, apperr.New(apperr.KindForbidden, "savings goal belongs to another user")
	}
	return goal, nil
}

type savingsGoalRequest struct {
	Name        string `json:"name"`
	TargetCents int64  `json:"target_cents"`
}

func (h *MoneyHandler) CreateSavingsGoal(w http.ResponseWriter, r *http.Request) {
	var req savingsGoalRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, apperr.New(apperr.KindValidationFailed, "name is required"))
		return
	}
	if req.TargetCents <= 0 {
		writeError(w, apperr.New(apperr.KindValidationFailed, "target must be positive"))
		return
	}

	goal, err := h.money.CreateSavingsGoal(auth.UserID(r.Context()), name, req.TargetCents)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, goal)
}

func (h *MoneyHandler) ListSavingsGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := h.money.ListSavingsGoals(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	if goals == nil {
		goals = []model.SavingsGoal{}
	}
	writeJSON(w, http.StatusOK, goals)
}

type addToGoalRequest struct {
	AmountCents int64 `json:"amount_cents"`
}

// AddToSavingsGoal deposits into a goal. Withdrawals are negative amounts but
// may not take the balance below zero.
func (h *MoneyHandler) AddToSavingsGoal(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, apperr.New(apperr.KindValidationFailed, "invalid goal id"))
		return
	}

	var req addToGoalRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.AmountCents == 0 {
		writeError(w, apperr.New(apperr.KindValidationFailed, "amount must not be zero"))
		return
	}

	goal, err := h.loadGoal(r, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if goal.SavedCents+req.AmountCents < 0 {
		writeError(w, apperr.New(apperr.KindValidationFailed, "cannot withdraw more than is saved"))
		return
	}

	updated, err := h.money.AddToSavingsGoal(goal.ID, req.AmountCents)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type transactionRequest struct {
	Kind        string `json:"kind"`
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description"`
}

func (h *MoneyHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	kind := strings.ToLower(strings.TrimSpace(req.Kind))
	if !transactionKinds[kind] {
		writeError(w, apperr.New(apperr.KindValidationFailed, "unknown transaction kind"))
		return
	}
	if req.AmountCents == 0 {
		writeError(w, apperr.New(apperr.KindValidationFailed, "amount must not be zero"))
		return
	}

	tx, err := h.money.CreateTransaction(auth.UserID(r.Context()), kind, req.AmountCents, strings.TrimSpace(req.Description))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (h *MoneyHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.money.ListTransactions(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	if txs == nil {
		txs = []model.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

type lessonProgressRequest struct {
	LessonID  string `json:"lesson_id"`
	Completed bool   `json:"completed"`
	Score     int    `json:"score"`
}

// UpsertLessonProgress records the caller's progress on a financial literacy
// lesson. Completing a lesson stamps the completion time.
func (h *MoneyHandler) UpsertLessonProgress(w http.ResponseWriter, r *http.Request) {
	var req lessonProgressRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	lessonID := strings.TrimSpace(req.LessonID)
	if lessonID == "" {
		writeError(w, apperr.New(apperr.KindValidationFailed, "lesson id is required"))
		return
	}
	if req.Score < 0 || req.Score > 100 {
		writeError(w, apperr.New(apperr.KindValidationFailed, "score must be between 0 and 100"))
		return
	}

	var completedAt *time.Time
	if req.Completed {
		now := time.Now().UTC()
		completedAt = &now
	}

	progress, err := h.money.UpsertLessonProgress(auth.UserID(r.Context()), lessonID, req.Completed, req.Score, completedAt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (h *MoneyHandler) ListLessonProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.money.ListLessonProgress(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	if progress == nil {
		progress = []model.LessonProgress{}
	}
	writeJSON(w, http.StatusOK, progress)
}

type moneyGoalRequest struct {
	SavingsPct  int `json:"savings_pct"`
	SpendingPct int `json:"spending_pct"`
	DonationPct int `json:"donation_pct"`
}

// SetMoneyGoal stores the caller's allocation plan. The three percentages
// must sum to exactly 100.
func (h *MoneyHandler) SetMoneyGoal(w http.ResponseWriter, r *http.Request) {
	var req moneyGoalRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if req.SavingsPct < 0 || req.SpendingPct < 0 || req.DonationPct < 0 {
		writeError(w, apperr.New(apperr.KindValidationFailed, "percentages must not be negative"))
		return
	}
	if sum := req.SavingsPct + req.SpendingPct + req.DonationPct; sum != 100 {
		writeError(w, apperr.New(apperr.KindValidationFailed,
			fmt.Sprintf("allocation percentages must sum to 100, got %d", sum)))
		return
	}

	goal, err := h.money.SetMoneyGoal(auth.UserID(r.Context()), req.SavingsPct, req.SpendingPct, req.DonationPct)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

func (h *MoneyHandler) GetMoneyGoal(w http.ResponseWriter, r *http.Request) {
	goal, err := h.money.GetMoneyGoal(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	if goal == nil {
		writeError(w, apperr.New(apperr.KindNotFound, "no money goal set"))
		return
	}
	writeJSON(w, http.StatusOK, goal)
}
