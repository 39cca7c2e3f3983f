// Package ledger maintains the per-user, per-metric daily accumulators.
//
// Rollover is lazy: the stored calendar date is compared against "today" on
// the next write. There is no background timer; a user who never logs on a
// given day carries a stale ledger until their next write, at which point
// exactly one rollover occurs.
package ledger

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/vmelnikova/habitbot/internal/models"
	"github.com/vmelnikova/habitbot/internal/store"
)

// Clock supplies the current time. The system clock is used in production;
// tests substitute a fixed clock to exercise rollover.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Service implements the daily-ledger operations on top of a Store.
type Service struct {
	store store.Store
	clock Clock
}

// NewService creates a ledger Service using the system clock.
func NewService(st store.Store) *Service {
	return NewServiceWithClock(st, systemClock{})
}

// NewServiceWithClock creates a ledger Service with an explicit clock.
func NewServiceWithClock(st store.Store, clock Clock) *Service {
	return &Service{store: st, clock: clock}
}

// DefaultGoal returns the metric-specific default goal.
func DefaultGoal(metric models.Metric) float64 {
	switch metric {
	case models.MetricWater:
		return models.DefaultWaterGoalML
	case models.MetricWorkout:
		return models.DefaultWorkoutGoalMin
	case models.MetricCalories:
		return models.DefaultCalorieGoal
	default:
		return 0
	}
}

// RecordEvent appends an event to the (user, metric) ledger, creating it
// with the default goal if absent and rolling it over first if its stored
// date is stale. Returns the updated totals.
func (s *Service) RecordEvent(userID int64, metric models.Metric, amount float64, label string) (models.Totals, error) {
	if !models.IsValidMetric(metric) {
		return models.Totals{}, models.ErrInvalidMetric
	}
	if amount <= 0 {
		return models.Totals{}, models.ErrInvalidAmount
	}

	now := s.clock.Now()
	today := now.Format(models.DateLayout)
	entry := models.LedgerEntry{Amount: amount, Label: label, Time: now}

	l, err := s.store.GetLedger(userID, metric)
	if err != nil {
		return models.Totals{}, fmt.Errorf("ledger record event: %w", err)
	}

	switch {
	case l == nil:
		l = &models.Ledger{
			Today:   amount,
			Goal:    DefaultGoal(metric),
			History: []models.LedgerEntry{entry},
			Date:    today,
		}
		slog.Debug("Ledger created", "userID", userID, "metric", metric, "amount", amount)
	case l.Date != today:
		// New calendar date: reset totals and history, carry the goal forward.
		l.Today = amount
		l.History = []models.LedgerEntry{entry}
		l.Date = today
		slog.Debug("Ledger rolled over", "userID", userID, "metric", metric, "amount", amount)
	default:
		l.Today += amount
		l.History = append(l.History, entry)
	}

	if err := s.store.SaveLedger(userID, metric, *l); err != nil {
		return models.Totals{}, fmt.Errorf("ledger record event: %w", err)
	}

	slog.Info("Ledger event recorded", "userID", userID, "metric", metric, "amount", amount, "today", l.Today, "goal", l.Goal)
	return models.Totals{Today: l.Today, Goal: l.Goal}, nil
}

// Totals returns today's total and goal for (user, metric) without creating
// a ledger. A ledger whose stored date is stale reports a logically
// rolled-over zero total; stored state is not mutated by reads.
func (s *Service) Totals(userID int64, metric models.Metric) (models.Totals, error) {
	if !models.IsValidMetric(metric) {
		return models.Totals{}, models.ErrInvalidMetric
	}

	l, err := s.store.GetLedger(userID, metric)
	if err != nil {
		return models.Totals{}, fmt.Errorf("ledger totals: %w", err)
	}
	if l == nil {
		return models.Totals{Today: 0, Goal: DefaultGoal(metric)}, nil
	}

	if l.Date != s.clock.Now().Format(models.DateLayout) {
		return models.Totals{Today: 0, Goal: l.Goal}, nil
	}
	return models.Totals{Today: l.Today, Goal: l.Goal}, nil
}

// History returns today's event history for (user, metric). A stale ledger
// reports an empty history, consistent with Totals.
func (s *Service) History(userID int64, metric models.Metric) ([]models.LedgerEntry, error) {
	l, err := s.store.GetLedger(userID, metric)
	if err != nil {
		return nil, fmt.Errorf("ledger history: %w", err)
	}
	if l == nil || l.Date != s.clock.Now().Format(models.DateLayout) {
		return nil, nil
	}
	return l.History, nil
}

// SetGoal overwrites the goal for (user, metric) without touching totals or
// history, creating an empty ledger if none exists yet.
func (s *Service) SetGoal(userID int64, metric models.Metric, goal float64) error {
	if !models.IsValidMetric(metric) {
		return models.ErrInvalidMetric
	}

	l, err := s.store.GetLedger(userID, metric)
	if err != nil {
		return fmt.Errorf("ledger set goal: %w", err)
	}
	if l == nil {
		l = &models.Ledger{Date: s.clock.Now().Format(models.DateLayout)}
	}
	l.Goal = goal

	if err := s.store.SaveLedger(userID, metric, *l); err != nil {
		return fmt.Errorf("ledger set goal: %w", err)
	}
	slog.Info("Ledger goal updated", "userID", userID, "metric", metric, "goal", goal)
	return nil
}

// EnsureGoal sets the goal for (user, metric) only when no ledger exists
// yet. Used when a profile-derived calorie goal should seed a fresh ledger
// without overwriting a goal already in effect.
func (s *Service) EnsureGoal(userID int64, metric models.Metric, goal float64) error {
	l, err := s.store.GetLedger(userID, metric)
	if err != nil {
		return fmt.Errorf("ledger ensure goal: %w", err)
	}
	if l != nil {
		return nil
	}
	return s.SetGoal(userID, metric, goal)
}
