// Package goals derives daily water and calorie targets from profile data
// and environmental input.
package goals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vmelnikova/habitbot/internal/models"
)

// Calorie norm constants (Mifflin-St Jeor).
const (
	bmrWeightFactor = 10
	bmrHeightFactor = 6.25
	bmrAgeFactor    = 5
	bmrMaleTerm     = 5
	bmrFemaleTerm   = -161

	// minutesPerDay converts BMR to a per-minute burn rate.
	minutesPerDay = 1440
	// activityMET is the fixed metabolic equivalent applied to activity minutes.
	activityMET = 5
)

// Water goal constants.
const (
	waterPerKg          = 30
	waterPerActivity    = 500 // ml per 30 minutes of activity
	activityBlockMin    = 30
	waterPerTemperature = 500 // ml scaled by 20/tempC
	temperaturePivot    = 20
)

// ErrZeroTemperature is returned when the reported temperature is exactly
// zero, which would make the water formula undefined.
var ErrZeroTemperature = errors.New("goals: temperature is zero, water goal undefined")

// TemperatureProvider supplies the current temperature for a city.
type TemperatureProvider interface {
	CurrentTemperature(ctx context.Context, city string) (float64, error)
}

// CalorieNorm computes the daily calorie target: Mifflin-St Jeor basal
// metabolic rate plus a fixed-MET activity adjustment. Pure and
// deterministic; strictly increasing in activity minutes.
func CalorieNorm(sex models.Sex, weightKg, heightCm float64, age, activityMinutes int) float64 {
	bmr := bmrWeightFactor*weightKg + bmrHeightFactor*heightCm - bmrAgeFactor*float64(age)
	if sex == models.SexMale {
		bmr += bmrMaleTerm
	} else {
		bmr += bmrFemaleTerm
	}

	kcalPerMin := bmr / minutesPerDay
	activityCalories := kcalPerMin * activityMET * float64(activityMinutes)

	return bmr + activityCalories
}

// Calculator derives goals that need environmental input.
type Calculator struct {
	temps TemperatureProvider
}

// NewCalculator creates a Calculator backed by the given temperature provider.
func NewCalculator(temps TemperatureProvider) *Calculator {
	return &Calculator{temps: temps}
}

// WaterGoal computes the daily water target in milliliters from weight,
// activity and the current temperature in the user's city. Lookup failures
// propagate as-is; a zero temperature is a domain error, never an infinite
// goal.
func (c *Calculator) WaterGoal(ctx context.Context, weightKg float64, activityMinutes int, city string) (float64, error) {
	temp, err := c.temps.CurrentTemperature(ctx, city)
	if err != nil {
		return 0, fmt.Errorf("water goal for %q: %w", city, err)
	}
	if temp == 0 {
		slog.Warn("Water goal undefined at zero temperature", "city", city)
		return 0, ErrZeroTemperature
	}

	goal := weightKg*waterPerKg +
		waterPerActivity*(float64(activityMinutes)/activityBlockMin) +
		waterPerTemperature*(temperaturePivot/temp)

	slog.Debug("Water goal computed", "city", city, "temp_c", temp, "goal_ml", goal)
	return goal, nil
}
