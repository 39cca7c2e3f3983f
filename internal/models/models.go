// Package models defines the core data structures for habitbot.
//
// It includes types for user profiles, daily ledgers and dialogue sessions,
// which are shared across modules.
package models

import (
	"errors"
	"time"
)

// Sex is the canonical sex value stored in a profile.
type Sex string

const (
	// SexMale is the canonical male value.
	SexMale Sex = "male"
	// SexFemale is the canonical female value.
	SexFemale Sex = "female"
)

// Metric identifies one of the tracked daily accumulators.
type Metric string

const (
	// MetricWater tracks water intake in milliliters.
	MetricWater Metric = "water"
	// MetricWorkout tracks physical activity in minutes.
	MetricWorkout Metric = "workout"
	// MetricCalories tracks consumed food in kilocalories.
	MetricCalories Metric = "calories"
)

// IsValidMetric checks if the given metric is supported.
func IsValidMetric(m Metric) bool {
	switch m {
	case MetricWater, MetricWorkout, MetricCalories:
		return true
	default:
		return false
	}
}

// Validation constants for profile input.
const (
	// MaxWeightKg is the upper bound for profile weight.
	MaxWeightKg = 300
	// MaxHeightCm is the upper bound for profile height.
	MaxHeightCm = 250
	// MaxAge is the upper bound for profile age.
	MaxAge = 120
	// MaxCalorieGoalDeviation is the maximum symmetric relative difference
	// between an explicit calorie goal and the computed norm.
	MaxCalorieGoalDeviation = 0.3
)

// Default goals used when a ledger is created or read without prior data.
const (
	// DefaultWaterGoalML is the default daily water goal in milliliters.
	DefaultWaterGoalML = 2000
	// DefaultWorkoutGoalMin is the default daily activity goal in minutes.
	DefaultWorkoutGoalMin = 60
	// DefaultCalorieGoal is the default daily calorie goal in kilocalories.
	DefaultCalorieGoal = 1400
)

// DateLayout is the calendar-date layout used for ledger rollover comparison.
const DateLayout = "2006-01-02"

// Error variables for better error handling and testability
var (
	ErrWeightOutOfRange   = errors.New("weight must be within (0, 300] kg")
	ErrHeightOutOfRange   = errors.New("height must be within (0, 250] cm")
	ErrAgeOutOfRange      = errors.New("age must be within [1, 120]")
	ErrInvalidSex         = errors.New("invalid sex value")
	ErrNegativeActivity   = errors.New("activity minutes must not be negative")
	ErrEmptyCity          = errors.New("city cannot be empty")
	ErrInvalidCalorieGoal = errors.New("calorie goal must be positive")
	ErrInvalidMetric      = errors.New("invalid metric")
	ErrInvalidAmount      = errors.New("amount must be positive")
)

// IsValidSex checks if the given sex is one of the canonical values.
func IsValidSex(s Sex) bool {
	return s == SexMale || s == SexFemale
}

// Profile holds the data collected by the profile dialogue. It is committed
// atomically when the dialogue reaches its terminal state and stays immutable
// until the next full dialogue run.
type Profile struct {
	WeightKg        float64   `json:"weight_kg"`
	HeightCm        float64   `json:"height_cm"`
	Age             int       `json:"age"`
	Sex             Sex       `json:"sex"`
	ActivityMinutes int       `json:"activity_minutes"` // minutes of physical activity per day
	City            string    `json:"city"`
	CalorieGoal     float64   `json:"calorie_goal"`
	CreatedAt       time.Time `json:"created_at"`
}

// Validate performs comprehensive validation on a committed Profile.
func (p *Profile) Validate() error {
	if p.WeightKg <= 0 || p.WeightKg > MaxWeightKg {
		return ErrWeightOutOfRange
	}
	if p.HeightCm <= 0 || p.HeightCm > MaxHeightCm {
		return ErrHeightOutOfRange
	}
	if p.Age <= 0 || p.Age > MaxAge {
		return ErrAgeOutOfRange
	}
	if !IsValidSex(p.Sex) {
		return ErrInvalidSex
	}
	if p.ActivityMinutes < 0 {
		return ErrNegativeActivity
	}
	if p.City == "" {
		return ErrEmptyCity
	}
	if p.CalorieGoal <= 0 {
		return ErrInvalidCalorieGoal
	}
	return nil
}

// LedgerEntry is a single append-only event within a daily ledger.
type LedgerEntry struct {
	Amount float64   `json:"amount"`
	Label  string    `json:"label,omitempty"` // workout or food name, empty for water
	Time   time.Time `json:"time"`
}

// Ledger is the per-user, per-metric daily accumulator. Date always reflects
// the calendar date of the most recent write; a write on a newer date resets
// Today and History while Goal is carried forward.
type Ledger struct {
	Today   float64       `json:"today"`
	Goal    float64       `json:"goal"`
	History []LedgerEntry `json:"history"`
	Date    string        `json:"date"` // DateLayout calendar date of the last write
}

// Totals is the read-side projection of a ledger.
type Totals struct {
	Today float64 `json:"today"`
	Goal  float64 `json:"goal"`
}

// Remaining returns the amount left until the goal, never negative.
func (t Totals) Remaining() float64 {
	if t.Today >= t.Goal {
		return 0
	}
	return t.Goal - t.Today
}

// GoalReached reports whether today's total meets or exceeds the goal.
func (t Totals) GoalReached() bool {
	return t.Today >= t.Goal
}

// DialogueState identifies a step of the profile-collection dialogue.
type DialogueState string

const (
	StateWeight      DialogueState = "WEIGHT"
	StateHeight      DialogueState = "HEIGHT"
	StateAge         DialogueState = "AGE"
	StateSex         DialogueState = "SEX"
	StateActivity    DialogueState = "ACTIVITY"
	StateCity        DialogueState = "CITY"
	StateCalorieGoal DialogueState = "CALORIE_GOAL"
	StateDone        DialogueState = "DONE"
)

// DialogueSession is the in-progress, per-user state of the profile dialogue.
// Exactly one session exists per user; starting a new dialogue discards any
// prior incomplete session.
type DialogueSession struct {
	UserID    int64         `json:"user_id"`
	State     DialogueState `json:"state"`
	Draft     Profile       `json:"draft"` // fields validated so far
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// PendingFood holds the resolved product between the two phases of food
// logging: the name lookup and the consumed-weight reply.
type PendingFood struct {
	UserID          int64     `json:"user_id"`
	Name            string    `json:"name"`
	CaloriesPer100g float64   `json:"calories_per_100g"`
	CreatedAt       time.Time `json:"created_at"`
}

// Incoming represents an inbound text message from a user.
type Incoming struct {
	UserID int64     `json:"user_id"`
	Text   string    `json:"text"`
	Time   time.Time `json:"time"`
}
