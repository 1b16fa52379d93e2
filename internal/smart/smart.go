package smart

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rburns/chorepoint/internal/apperr"
	"github.com/rburns/chorepoint/internal/auth"
	"github.com/rburns/chorepoint/internal/chore"
	"github.com/rburns/chorepoint/internal/model"
	"github.com/rburns/chorepoint/internal/store"
	"github.com/rburns/chorepoint/internal/weather"
)

// Below these daytime highs outdoor chores move indoors regardless of
// precipitation.
const (
	coldThresholdF = 32.0
	coldThresholdC = 0.0
)

// ForecastProvider is the slice of the weather service the adjuster needs.
type ForecastProvider interface {
	GetForecast() (weather.Forecast, error)
}

type Service struct {
	chores      *store.ChoreStore
	users       *store.UserStore
	lifecycle   *chore.Service
	forecasts   ForecastProvider
	suggestions SuggestionClient
	logger      *slog.Logger
}

func NewService(cs *store.ChoreStore, us *store.UserStore, lc *chore.Service, fp ForecastProvider, sc SuggestionClient, logger *slog.Logger) *Service {
	return &Service{
		chores:      cs,
		users:       us,
		lifecycle:   lc,
		forecasts:   fp,
		suggestions: sc,
		logger:      logger.With("component", "smart"),
	}
}

// Suggest asks the completion API for chore ideas tailored to the family's
// children and what is already on the board. Upstream failures surface as
// upstream_unavailable so the client can retry.
func (s *Service) Suggest(ctx context.Context, caller auth.AuthContext) ([]string, error) {
	children, err := s.users.ListChildrenByFamily(caller.FamilyID)
	if err != nil {
		return nil, err
	}
	if len(children) == 0 {
		return nil, apperr.New(apperr.KindValidationFailed, "family has no children to suggest chores for")
	}

	existing, err := s.chores.ListPendingByFamily(caller.FamilyID, false)
	if err != nil {
		return nil, err
	}

	suggestions, err := s.suggestions.Suggest(ctx, buildPrompt(children, existing))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "suggestion service unavailable", err)
	}
	return suggestions, nil
}

func buildPrompt(children []model.User, existing []model.Chore) string {
	var b strings.Builder
	names := make([]string, len(children))
	for i, c := range children {
		names[i] = c.Name
	}
	fmt.Fprintf(&b, "Suggest 5 chores for a family with children: %s.", strings.Join(names, ", "))
	if len(existing) > 0 {
		titles := make([]string, 0, len(existing))
		for _, c := range existing {
			titles = append(titles, c.Title)
		}
		fmt.Fprintf(&b, " Already planned: %s.", strings.Join(titles, ", "))
	}
	return b.String()
}

// Rotate reassigns the family's pending chores round-robin across its
// children, in chore order. Parents only. The heuristic is deliberately
// simple; it exists so the workload does not pile onto one child.
func (s *Service) Rotate(caller auth.AuthContext) ([]model.Chore, error) {
	if caller.Role != model.RoleParent {
		return nil, apperr.New(apperr.KindForbidden, "only a parent can rotate assignments")
	}

	children, err := s.users.ListChildrenByFamily(caller.FamilyID)
	if err != nil {
		return nil, err
	}
	if len(children) == 0 {
		return nil, apperr.New(apperr.KindValidationFailed, "family has no children to rotate across")
	}

	pending, err := s.chores.ListPendingByFamily(caller.FamilyID, false)
	if err != nil {
		return nil, err
	}

	rotated := make([]model.Chore, 0, len(pending))
	for i, c := range pending {
		next := children[i%len(children)].ID
		if next != c.AssignedTo {
			if err := s.chores.Reassign(c.ID, next); err != nil {
				return rotated, err
			}
		}
		updated, err := s.chores.GetByID(c.ID)
		if err != nil {
			return rotated, err
		}
		rotated = append(rotated, *updated)
	}
	return rotated, nil
}

// Forecast returns the current cached forecast without touching any chores.
func (s *Service) Forecast() (weather.Forecast, error) {
	return s.forecasts.GetForecast()
}

// AdjustResult reports what the weather adjuster did.
type AdjustResult struct {
	Forecast    weather.Forecast `json:"forecast"`
	Adjusted    bool             `json:"adjusted"`
	Rescheduled []model.Chore    `json:"rescheduled"`
}

// AdjustForWeather checks today's forecast and, when it is bad, moves the
// family's pending outdoor chores to rescheduled with an explanatory note.
// Parents only; this endpoint is the weather process the lifecycle reserves
// the rescheduled state for.
func (s *Service) AdjustForWeather(caller auth.AuthContext) (*AdjustResult, error) {
	if caller.Role != model.RoleParent {
		return nil, apperr.New(apperr.KindForbidden, "only a parent can run the weather adjuster")
	}

	f, err := s.forecasts.GetForecast()
	if err != nil {
		return nil, err
	}

	result := &AdjustResult{Forecast: f}
	if !shouldAdjust(f) {
		return result, nil
	}

	reason := fmt.Sprintf("Rescheduled due to weather: %s", strings.ToLower(f.Description))
	moved, err := s.lifecycle.RescheduleOutdoor(caller.FamilyID, reason)
	if err != nil {
		return nil, err
	}
	result.Adjusted = true
	result.Rescheduled = moved
	s.logger.Info("weather adjustment", "family_id", caller.FamilyID, "rescheduled", len(moved), "description", f.Description)
	return result, nil
}

func shouldAdjust(f weather.Forecast) bool {
	if f.Inclement {
		return true
	}
	threshold := coldThresholdF
	if f.Unit == "C" {
		threshold = coldThresholdC
	}
	return f.HighTemp < threshold
}
