package tracker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/vmelnikova/habitbot/internal/charts"
	"github.com/vmelnikova/habitbot/internal/food"
	"github.com/vmelnikova/habitbot/internal/ledger"
	"github.com/vmelnikova/habitbot/internal/models"
	"github.com/vmelnikova/habitbot/internal/store"
)

// fakeFoods serves a canned product or error.
type fakeFoods struct {
	product *food.Product
	err     error
}

func (f *fakeFoods) Search(ctx context.Context, query string) (*food.Product, error) {
	return f.product, f.err
}

// fakeCharts records render calls and returns a fixed path.
type fakeCharts struct {
	calls  int
	points []charts.Point
}

func (f *fakeCharts) RenderCumulative(userID int64, slug, title, yLabel string, points []charts.Point) (string, error) {
	f.calls++
	f.points = points
	return "/tmp/habit-test.png", nil
}

func newTestService(foods FoodLookup) (*Service, store.Store, *ledger.Service, *fakeCharts) {
	st := store.NewInMemoryStore()
	ledgerSvc := ledger.NewService(st)
	renderer := &fakeCharts{}
	return NewService(st, ledgerSvc, foods, renderer), st, ledgerSvc, renderer
}

func TestLogWaterUsageHint(t *testing.T) {
	svc, _, _, _ := newTestService(&fakeFoods{})

	reply, err := svc.LogWater(context.Background(), 1, "")
	if err != nil {
		t.Fatalf("LogWater error: %v", err)
	}
	if !strings.Contains(reply.Text, "/log_water") {
		t.Errorf("expected usage hint, got %q", reply.Text)
	}
}

func TestLogWaterInvalidAmount(t *testing.T) {
	svc, st, _, _ := newTestService(&fakeFoods{})

	for _, args := range []string{"abc", "-100", "0"} {
		reply, err := svc.LogWater(context.Background(), 1, args)
		if err != nil {
			t.Fatalf("LogWater(%q) error: %v", args, err)
		}
		if reply.Text != waterAmountInvalid {
			t.Errorf("LogWater(%q): expected invalid-amount reply, got %q", args, reply.Text)
		}
	}

	l, err := st.GetLedger(1, models.MetricWater)
	if err != nil {
		t.Fatalf("GetLedger error: %v", err)
	}
	if l != nil {
		t.Errorf("expected no ledger after rejected input, found %+v", l)
	}
}

func TestLogWaterInProgress(t *testing.T) {
	svc, _, _, renderer := newTestService(&fakeFoods{})

	reply, err := svc.LogWater(context.Background(), 1, "300")
	if err != nil {
		t.Fatalf("LogWater error: %v", err)
	}
	if !strings.Contains(reply.Text, "Добавлено 300 мл воды") {
		t.Errorf("unexpected reply: %q", reply.Text)
	}
	if !strings.Contains(reply.Text, "300/2000 мл") {
		t.Errorf("expected running total 300/2000, got %q", reply.Text)
	}
	if !strings.Contains(reply.Text, "85% или 1700 мл") {
		t.Errorf("expected remaining 85%%/1700, got %q", reply.Text)
	}
	if reply.PhotoPath != "" || renderer.calls != 0 {
		t.Errorf("expected no chart with a single event")
	}
}

func TestLogWaterAttachesChartFromSecondEvent(t *testing.T) {
	svc, _, _, renderer := newTestService(&fakeFoods{})

	if _, err := svc.LogWater(context.Background(), 1, "300"); err != nil {
		t.Fatalf("first LogWater error: %v", err)
	}
	reply, err := svc.LogWater(context.Background(), 1, "200")
	if err != nil {
		t.Fatalf("second LogWater error: %v", err)
	}
	if reply.PhotoPath != "/tmp/habit-test.png" {
		t.Errorf("expected chart path on second event, got %q", reply.PhotoPath)
	}
	if renderer.calls != 1 || len(renderer.points) != 2 {
		t.Errorf("expected one render with 2 points, got %d calls, %d points", renderer.calls, len(renderer.points))
	}
}

func TestLogWaterGoalReached(t *testing.T) {
	svc, _, ledgerSvc, _ := newTestService(&fakeFoods{})

	if err := ledgerSvc.SetGoal(1, models.MetricWater, 300); err != nil {
		t.Fatalf("SetGoal error: %v", err)
	}
	reply, err := svc.LogWater(context.Background(), 1, "300")
	if err != nil {
		t.Fatalf("LogWater error: %v", err)
	}
	if !strings.Contains(reply.Text, "Цель достигнута: 300/300 мл!") {
		t.Errorf("expected goal-reached reply, got %q", reply.Text)
	}
}

func TestLogWorkout(t *testing.T) {
	svc, _, _, _ := newTestService(&fakeFoods{})

	reply, err := svc.LogWorkout(context.Background(), 1, "бег 40")
	if err != nil {
		t.Fatalf("LogWorkout error: %v", err)
	}
	if !strings.Contains(reply.Text, "Добавлено 40 мин тренировки") {
		t.Errorf("unexpected reply: %q", reply.Text)
	}
	if !strings.Contains(reply.Text, "40/60 мин") {
		t.Errorf("expected running total 40/60, got %q", reply.Text)
	}
	if !strings.Contains(reply.Text, "33% или 20 мин") {
		t.Errorf("expected remaining 33%%/20, got %q", reply.Text)
	}
	if !strings.Contains(reply.Text, "выпейте 200 мл воды") {
		t.Errorf("expected water nudge, got %q", reply.Text)
	}
	if reply.PhotoPath != "" {
		t.Errorf("workouts never carry a chart, got %q", reply.PhotoPath)
	}
}

func TestLogWorkoutFormat(t *testing.T) {
	svc, _, _, _ := newTestService(&fakeFoods{})

	for _, args := range []string{"бег", "бег 40 вчера", "бег сорок", "бег -5"} {
		reply, err := svc.LogWorkout(context.Background(), 1, args)
		if err != nil {
			t.Fatalf("LogWorkout(%q) error: %v", args, err)
		}
		if reply.Text != workoutFormatInvalid {
			t.Errorf("LogWorkout(%q): expected format reply, got %q", args, reply.Text)
		}
	}

	reply, err := svc.LogWorkout(context.Background(), 1, "")
	if err != nil {
		t.Fatalf("LogWorkout error: %v", err)
	}
	if !strings.Contains(reply.Text, "/log_workout") {
		t.Errorf("expected usage hint, got %q", reply.Text)
	}
}

func TestLogFoodNotFound(t *testing.T) {
	svc, _, _, _ := newTestService(&fakeFoods{err: food.ErrProductNotFound})

	reply, err := svc.LogFood(context.Background(), 1, "неведомое")
	if err != nil {
		t.Fatalf("LogFood error: %v", err)
	}
	if reply.Text != foodNotFound {
		t.Errorf("expected not-found reply, got %q", reply.Text)
	}

	active, err := svc.PendingFoodActive(1)
	if err != nil {
		t.Fatalf("PendingFoodActive error: %v", err)
	}
	if active {
		t.Errorf("expected no pending food after a failed lookup")
	}
}

func TestLogFoodLookupErrorPropagates(t *testing.T) {
	lookupErr := errors.New("boom")
	svc, _, _, _ := newTestService(&fakeFoods{err: lookupErr})

	if _, err := svc.LogFood(context.Background(), 1, "банан"); !errors.Is(err, lookupErr) {
		t.Errorf("expected wrapped lookup error, got %v", err)
	}
}

func TestFoodFlowTwoPhases(t *testing.T) {
	svc, _, _, _ := newTestService(&fakeFoods{product: &food.Product{Name: "Банан", CaloriesPer100g: 89}})

	reply, err := svc.LogFood(context.Background(), 1, "банан")
	if err != nil {
		t.Fatalf("LogFood error: %v", err)
	}
	if !strings.Contains(reply.Text, "Банан — 89 ккал на 100 г") {
		t.Errorf("unexpected phase-one reply: %q", reply.Text)
	}
	if !strings.Contains(reply.Text, "Сколько грамм") {
		t.Errorf("expected weight question, got %q", reply.Text)
	}

	active, err := svc.PendingFoodActive(1)
	if err != nil {
		t.Fatalf("PendingFoodActive error: %v", err)
	}
	if !active {
		t.Fatalf("expected pending food between phases")
	}

	reply, err = svc.HandleFoodWeight(context.Background(), 1, "200")
	if err != nil {
		t.Fatalf("HandleFoodWeight error: %v", err)
	}
	// 89 kcal per 100 g at 200 g.
	if !strings.Contains(reply.Text, "Записано 178 ккал (Банан)") {
		t.Errorf("unexpected phase-two reply: %q", reply.Text)
	}
	if !strings.Contains(reply.Text, "178/1400 ккал") {
		t.Errorf("expected default calorie goal 1400, got %q", reply.Text)
	}

	active, err = svc.PendingFoodActive(1)
	if err != nil {
		t.Fatalf("PendingFoodActive error: %v", err)
	}
	if active {
		t.Errorf("expected pending food cleared after weight reply")
	}
}

func TestLogFoodSeedsGoalFromProfile(t *testing.T) {
	svc, st, ledgerSvc, _ := newTestService(&fakeFoods{product: &food.Product{Name: "Сыр", CaloriesPer100g: 350}})

	profile := models.Profile{
		WeightKg: 70, HeightCm: 170, Age: 30, Sex: models.SexFemale,
		ActivityMinutes: 30, City: "Москва", CalorieGoal: 1800,
	}
	if err := st.SaveProfile(1, profile); err != nil {
		t.Fatalf("SaveProfile error: %v", err)
	}

	if _, err := svc.LogFood(context.Background(), 1, "сыр"); err != nil {
		t.Fatalf("LogFood error: %v", err)
	}

	totals, err := ledgerSvc.Totals(1, models.MetricCalories)
	if err != nil {
		t.Fatalf("Totals error: %v", err)
	}
	if totals.Goal != 1800 {
		t.Errorf("expected calorie goal seeded from profile as 1800, got %v", totals.Goal)
	}
}

func TestHandleFoodWeightInvalidKeepsPending(t *testing.T) {
	svc, _, _, _ := newTestService(&fakeFoods{product: &food.Product{Name: "Банан", CaloriesPer100g: 89}})

	if _, err := svc.LogFood(context.Background(), 1, "банан"); err != nil {
		t.Fatalf("LogFood error: %v", err)
	}
	reply, err := svc.HandleFoodWeight(context.Background(), 1, "много")
	if err != nil {
		t.Fatalf("HandleFoodWeight error: %v", err)
	}
	if reply.Text != foodWeightInvalid {
		t.Errorf("expected weight re-prompt, got %q", reply.Text)
	}

	active, err := svc.PendingFoodActive(1)
	if err != nil {
		t.Fatalf("PendingFoodActive error: %v", err)
	}
	if !active {
		t.Errorf("expected pending food kept after invalid weight")
	}
}

func TestHandleFoodWeightZeroCalories(t *testing.T) {
	svc, _, ledgerSvc, _ := newTestService(&fakeFoods{product: &food.Product{Name: "Вода", CaloriesPer100g: 0}})

	if _, err := svc.LogFood(context.Background(), 1, "вода"); err != nil {
		t.Fatalf("LogFood error: %v", err)
	}
	reply, err := svc.HandleFoodWeight(context.Background(), 1, "500")
	if err != nil {
		t.Fatalf("HandleFoodWeight error: %v", err)
	}
	if reply.Text != foodNoCalories {
		t.Errorf("expected no-calories reply, got %q", reply.Text)
	}

	totals, err := ledgerSvc.Totals(1, models.MetricCalories)
	if err != nil {
		t.Fatalf("Totals error: %v", err)
	}
	if totals.Today != 0 {
		t.Errorf("expected no calorie event recorded, got %v", totals.Today)
	}

	active, err := svc.PendingFoodActive(1)
	if err != nil {
		t.Fatalf("PendingFoodActive error: %v", err)
	}
	if active {
		t.Errorf("expected pending food cleared after zero-calorie skip")
	}
}

func TestProgress(t *testing.T) {
	svc, _, _, _ := newTestService(&fakeFoods{product: &food.Product{Name: "Банан", CaloriesPer100g: 89}})

	if _, err := svc.LogWater(context.Background(), 1, "500"); err != nil {
		t.Fatalf("LogWater error: %v", err)
	}
	if _, err := svc.LogWorkout(context.Background(), 1, "бег 30"); err != nil {
		t.Fatalf("LogWorkout error: %v", err)
	}
	if _, err := svc.LogFood(context.Background(), 1, "банан"); err != nil {
		t.Fatalf("LogFood error: %v", err)
	}
	if _, err := svc.HandleFoodWeight(context.Background(), 1, "200"); err != nil {
		t.Fatalf("HandleFoodWeight error: %v", err)
	}

	reply, err := svc.Progress(1)
	if err != nil {
		t.Fatalf("Progress error: %v", err)
	}
	if !strings.Contains(reply.Text, "Выпито: 500 мл из 2000 мл") {
		t.Errorf("unexpected water section: %q", reply.Text)
	}
	if !strings.Contains(reply.Text, "Осталось: 1500 мл") {
		t.Errorf("unexpected water remaining: %q", reply.Text)
	}
	if !strings.Contains(reply.Text, "Потреблено: 178 ккал из 1400 ккал") {
		t.Errorf("unexpected calorie section: %q", reply.Text)
	}
	if !strings.Contains(reply.Text, "Сожжено: 30 ккал") {
		t.Errorf("unexpected burned section: %q", reply.Text)
	}
	if !strings.Contains(reply.Text, "Баланс: 148 ккал") {
		t.Errorf("unexpected balance: %q", reply.Text)
	}
}

func TestProgressDefaultsWithoutData(t *testing.T) {
	svc, st, _, _ := newTestService(&fakeFoods{})

	reply, err := svc.Progress(1)
	if err != nil {
		t.Fatalf("Progress error: %v", err)
	}
	if !strings.Contains(reply.Text, "Выпито: 0 мл из 2000 мл") {
		t.Errorf("unexpected water defaults: %q", reply.Text)
	}
	if !strings.Contains(reply.Text, "Потреблено: 0 ккал из 1400 ккал") {
		t.Errorf("unexpected calorie defaults: %q", reply.Text)
	}

	// Reads only: nothing is created as a side effect.
	for _, metric := range []models.Metric{models.MetricWater, models.MetricWorkout, models.MetricCalories} {
		l, err := st.GetLedger(1, metric)
		if err != nil {
			t.Fatalf("GetLedger(%s) error: %v", metric, err)
		}
		if l != nil {
			t.Errorf("expected no %s ledger after progress read", metric)
		}
	}
}

func TestProfileSummary(t *testing.T) {
	svc, st, _, _ := newTestService(&fakeFoods{})

	reply, err := svc.ProfileSummary(1)
	if err != nil {
		t.Fatalf("ProfileSummary error: %v", err)
	}
	if reply.Text != profileMissing {
		t.Errorf("expected missing-profile reply, got %q", reply.Text)
	}

	profile := models.Profile{
		WeightKg: 70, HeightCm: 170, Age: 30, Sex: models.SexFemale,
		ActivityMinutes: 30, City: "Москва", CalorieGoal: 1800,
	}
	if err := st.SaveProfile(1, profile); err != nil {
		t.Fatalf("SaveProfile error: %v", err)
	}

	reply, err = svc.ProfileSummary(1)
	if err != nil {
		t.Fatalf("ProfileSummary error: %v", err)
	}
	for _, want := range []string{"Вес: 70 кг", "Рост: 170 см", "Возраст: 30", "Пол: женский", "Активность: 30 мин/день", "Город: Москва", "Цель калорий: 1800 ккал"} {
		if !strings.Contains(reply.Text, want) {
			t.Errorf("expected %q in summary, got %q", want, reply.Text)
		}
	}
}
