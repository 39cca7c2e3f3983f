// Package tracker orchestrates the command-level tracking operations:
// logging water, workouts and food against the daily ledgers, and rendering
// the progress and profile reports.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/vmelnikova/habitbot/internal/charts"
	"github.com/vmelnikova/habitbot/internal/food"
	"github.com/vmelnikova/habitbot/internal/ledger"
	"github.com/vmelnikova/habitbot/internal/models"
	"github.com/vmelnikova/habitbot/internal/store"
)

// FoodLookup resolves a free-text food query to a product.
type FoodLookup interface {
	Search(ctx context.Context, query string) (*food.Product, error)
}

// ChartRenderer renders a cumulative time-series chart and returns the
// written file path.
type ChartRenderer interface {
	RenderCumulative(userID int64, slug, title, yLabel string, points []charts.Point) (string, error)
}

// Reply is the composed result of a tracking command. When PhotoPath is
// set, the transport sends the file with Text as the caption and removes
// the file after delivery.
type Reply struct {
	Text      string
	PhotoPath string
}

// Service implements the tracking commands on top of the ledger service and
// the external food and chart collaborators.
type Service struct {
	store  store.Store
	ledger *ledger.Service
	foods  FoodLookup
	charts ChartRenderer
}

// NewService creates a tracking Service.
func NewService(st store.Store, ledgerSvc *ledger.Service, foods FoodLookup, renderer ChartRenderer) *Service {
	return &Service{store: st, ledger: ledgerSvc, foods: foods, charts: renderer}
}

// LogWater records a water intake event. The argument is the amount in
// milliliters; parse failures return a usage hint without touching the
// ledger.
func (s *Service) LogWater(ctx context.Context, userID int64, args string) (Reply, error) {
	args = strings.TrimSpace(args)
	if args == "" {
		return Reply{Text: waterUsage}, nil
	}
	amount, err := strconv.Atoi(args)
	if err != nil || amount <= 0 {
		return Reply{Text: waterAmountInvalid}, nil
	}

	totals, err := s.ledger.RecordEvent(userID, models.MetricWater, float64(amount), "")
	if err != nil {
		return Reply{}, fmt.Errorf("log water: %w", err)
	}

	var text string
	if totals.GoalReached() {
		text = fmt.Sprintf("Ты выпил уже %d мл воды\nЦель достигнута: %.0f/%.0f мл!", amount, totals.Today, totals.Goal)
	} else {
		text = fmt.Sprintf("Добавлено %d мл воды\n\nСегодня: %.0f/%.0f мл\nОсталось: %.0f%% или %.0f мл",
			amount, totals.Today, totals.Goal, remainingPercent(totals), totals.Remaining())
	}

	return s.withChart(userID, models.MetricWater, text), nil
}

// LogWorkout records a workout event. The argument must be exactly two
// space-separated tokens: a workout name and a duration in minutes.
func (s *Service) LogWorkout(ctx context.Context, userID int64, args string) (Reply, error) {
	args = strings.TrimSpace(args)
	if args == "" {
		return Reply{Text: workoutUsage}, nil
	}
	tokens := strings.Fields(args)
	if len(tokens) != 2 {
		return Reply{Text: workoutFormatInvalid}, nil
	}
	name := tokens[0]
	minutes, err := strconv.Atoi(tokens[1])
	if err != nil || minutes <= 0 {
		return Reply{Text: workoutFormatInvalid}, nil
	}

	totals, err := s.ledger.RecordEvent(userID, models.MetricWorkout, float64(minutes), name)
	if err != nil {
		return Reply{}, fmt.Errorf("log workout: %w", err)
	}

	var text string
	if totals.GoalReached() {
		text = fmt.Sprintf("Ты активничал уже %d мин\nЦель достигнута: %.0f/%.0f мин!", minutes, totals.Today, totals.Goal)
	} else {
		text = fmt.Sprintf("Добавлено %d мин тренировки\n\nСегодня: %.0f/%.0f мин активности\nОсталось: %.0f%% или %.0f мин\nДополнительно: выпейте 200 мл воды",
			minutes, totals.Today, totals.Goal, remainingPercent(totals), totals.Remaining())
	}
	return Reply{Text: text}, nil
}

// LogFood is the first phase of food logging: it resolves the food name to
// a per-100g calorie figure and asks for the consumed weight. The resolved
// product is held as the user's pending food until the weight reply.
func (s *Service) LogFood(ctx context.Context, userID int64, args string) (Reply, error) {
	args = strings.TrimSpace(args)
	if args == "" {
		return Reply{Text: foodUsage}, nil
	}

	product, err := s.foods.Search(ctx, strings.ToLower(args))
	if errors.Is(err, food.ErrProductNotFound) {
		slog.Debug("Food product not found", "userID", userID, "query", args)
		return Reply{Text: foodNotFound}, nil
	}
	if err != nil {
		return Reply{}, fmt.Errorf("log food: %w", err)
	}

	// Seed a fresh calorie ledger from the profile goal, if one exists.
	goal := float64(models.DefaultCalorieGoal)
	profile, err := s.store.GetProfile(userID)
	if err != nil {
		return Reply{}, fmt.Errorf("log food: %w", err)
	}
	if profile != nil {
		goal = profile.CalorieGoal
	}
	if err := s.ledger.EnsureGoal(userID, models.MetricCalories, goal); err != nil {
		return Reply{}, fmt.Errorf("log food: %w", err)
	}

	pending := models.PendingFood{
		UserID:          userID,
		Name:            product.Name,
		CaloriesPer100g: product.CaloriesPer100g,
	}
	if err := s.store.SavePendingFood(pending); err != nil {
		return Reply{}, fmt.Errorf("log food: %w", err)
	}

	return Reply{Text: fmt.Sprintf("%s — %.0f ккал на 100 г.\nСколько грамм ты съел?", product.Name, product.CaloriesPer100g)}, nil
}

// PendingFoodActive reports whether the user is mid-way through the
// two-phase food flow.
func (s *Service) PendingFoodActive(userID int64) (bool, error) {
	pending, err := s.store.GetPendingFood(userID)
	if err != nil {
		return false, fmt.Errorf("pending food: %w", err)
	}
	return pending != nil, nil
}

// CancelPendingFood abandons an in-flight food flow, if any.
func (s *Service) CancelPendingFood(userID int64) error {
	return s.store.DeletePendingFood(userID)
}

// HandleFoodWeight is the second phase of food logging: the consumed weight
// in grams arrives and the calorie event is committed.
func (s *Service) HandleFoodWeight(ctx context.Context, userID int64, text string) (Reply, error) {
	pending, err := s.store.GetPendingFood(userID)
	if err != nil {
		return Reply{}, fmt.Errorf("food weight: %w", err)
	}
	if pending == nil {
		return Reply{}, fmt.Errorf("food weight: no pending food for user %d", userID)
	}

	grams, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || grams <= 0 {
		return Reply{Text: foodWeightInvalid}, nil
	}

	if err := s.store.DeletePendingFood(userID); err != nil {
		return Reply{}, fmt.Errorf("food weight: %w", err)
	}

	calories := pending.CaloriesPer100g * float64(grams) / 100
	if calories <= 0 {
		slog.Debug("Food has no calories, skipping ledger write", "userID", userID, "name", pending.Name)
		return Reply{Text: foodNoCalories}, nil
	}

	totals, err := s.ledger.RecordEvent(userID, models.MetricCalories, calories, pending.Name)
	if err != nil {
		return Reply{}, fmt.Errorf("food weight: %w", err)
	}

	var out string
	if totals.GoalReached() {
		out = fmt.Sprintf("Ты потребил уже %.0f ккал\nЦель достигнута: %.0f/%.0f ккал!", totals.Today, totals.Today, totals.Goal)
	} else {
		out = fmt.Sprintf("Записано %.0f ккал (%s)\n\nСегодня потреблено: %.0f/%.0f ккал\nОсталось: %.0f%% или %.0f ккал",
			calories, pending.Name, totals.Today, totals.Goal, remainingPercent(totals), totals.Remaining())
	}
	return s.withChart(userID, models.MetricCalories, out), nil
}

// Progress composes the daily report across the three ledgers. Reads only:
// no ledger is created as a side effect.
func (s *Service) Progress(userID int64) (Reply, error) {
	water, err := s.ledger.Totals(userID, models.MetricWater)
	if err != nil {
		return Reply{}, fmt.Errorf("progress: %w", err)
	}
	workout, err := s.ledger.Totals(userID, models.MetricWorkout)
	if err != nil {
		return Reply{}, fmt.Errorf("progress: %w", err)
	}
	calories, err := s.ledger.Totals(userID, models.MetricCalories)
	if err != nil {
		return Reply{}, fmt.Errorf("progress: %w", err)
	}

	// Training minutes stand in for burned calories 1:1.
	balance := math.Round(calories.Today - workout.Today)

	text := fmt.Sprintf("📊 Прогресс:\nВода:\n- Выпито: %.0f мл из %.0f мл\n- Осталось: %.0f мл\n\n"+
		"Калории:\n- Потреблено: %.0f ккал из %.0f ккал\n- Сожжено: %.0f ккал\n- Баланс: %.0f ккал",
		water.Today, water.Goal, water.Remaining(),
		calories.Today, calories.Goal, workout.Today, balance)
	return Reply{Text: text}, nil
}

// ProfileSummary is the read-only projection of the committed profile.
func (s *Service) ProfileSummary(userID int64) (Reply, error) {
	profile, err := s.store.GetProfile(userID)
	if err != nil {
		return Reply{}, fmt.Errorf("profile summary: %w", err)
	}
	if profile == nil {
		return Reply{Text: profileMissing}, nil
	}

	sexLabel := "мужской"
	if profile.Sex == models.SexFemale {
		sexLabel = "женский"
	}
	text := fmt.Sprintf("📊 Твой профиль:\n\nВес: %.0f кг\nРост: %.0f см\nВозраст: %d\nПол: %s\n"+
		"Активность: %d мин/день\nГород: %s\nЦель калорий: %.0f ккал",
		profile.WeightKg, profile.HeightCm, profile.Age, sexLabel,
		profile.ActivityMinutes, profile.City, profile.CalorieGoal)
	return Reply{Text: text}, nil
}

// withChart attaches a cumulative chart to the reply when today's history
// has enough entries. Chart failures degrade to a text-only reply.
func (s *Service) withChart(userID int64, metric models.Metric, text string) Reply {
	reply := Reply{Text: text}
	if s.charts == nil {
		return reply
	}

	history, err := s.ledger.History(userID, metric)
	if err != nil || len(history) < charts.MinPoints {
		return reply
	}

	points := make([]charts.Point, 0, len(history))
	for _, e := range history {
		points = append(points, charts.Point{Time: e.Time, Amount: e.Amount})
	}

	title, yLabel := chartLabels(metric)
	path, err := s.charts.RenderCumulative(userID, string(metric), title, yLabel, points)
	if err != nil {
		slog.Error("Chart rendering failed", "error", err, "userID", userID, "metric", metric)
		return reply
	}
	reply.PhotoPath = path
	return reply
}

// remainingPercent is the display-only percentage left until the goal.
func remainingPercent(t models.Totals) float64 {
	return math.Round(100 - t.Today/t.Goal*100)
}

func chartLabels(metric models.Metric) (title, yLabel string) {
	switch metric {
	case models.MetricWater:
		return "Потребление воды за день", "Выпито воды (мл)"
	case models.MetricCalories:
		return "Потребление калорий за день", "Потреблено калорий (ккал)"
	default:
		return "Прогресс за день", ""
	}
}
