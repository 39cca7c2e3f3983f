// Package dialogue implements the profile-collection conversation as an
// explicit finite-state machine.
//
// States run in strict linear order: weight, height, age, sex, activity,
// city, calorie goal, done. Invalid input re-prompts the same state; valid
// input advances exactly one state. Reaching the terminal state commits the
// accumulated fields as the user's profile and tears the session down.
package dialogue

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/vmelnikova/habitbot/internal/goals"
	"github.com/vmelnikova/habitbot/internal/ledger"
	"github.com/vmelnikova/habitbot/internal/models"
	"github.com/vmelnikova/habitbot/internal/store"
)

// SkipToken lets the user fall back to the computed calorie norm.
const SkipToken = "пропустить"

// sexTokens maps accepted case-insensitive input to canonical sex values.
var sexTokens = map[string]models.Sex{
	"м": models.SexMale, "муж": models.SexMale, "мужчина": models.SexMale,
	"мужской": models.SexMale, "m": models.SexMale, "man": models.SexMale, "male": models.SexMale,
	"ж": models.SexFemale, "жен": models.SexFemale, "женщина": models.SexFemale,
	"женский": models.SexFemale, "f": models.SexFemale, "female": models.SexFemale, "woman": models.SexFemale,
}

// step describes one dialogue state: the prompt shown on entry, the input
// handler, and the state entered after a valid input. apply returns a
// field-specific error message, or "" when the input was accepted.
type step struct {
	prompt string
	apply  func(draft *models.Profile, input string) string
	next   models.DialogueState
}

// steps is the transition table enforcing the contiguous-state contract.
var steps = map[models.DialogueState]step{
	models.StateWeight: {
		prompt: "Введите Ваш вес (в кг):",
		apply: func(draft *models.Profile, input string) string {
			w, err := strconv.ParseFloat(input, 64)
			if err != nil {
				return "Введите число:"
			}
			if w <= 0 || w > models.MaxWeightKg {
				return "Введите корректный вес (0-300 кг):"
			}
			draft.WeightKg = w
			return ""
		},
		next: models.StateHeight,
	},
	models.StateHeight: {
		prompt: "Введите Ваш рост (в см):",
		apply: func(draft *models.Profile, input string) string {
			h, err := strconv.ParseFloat(input, 64)
			if err != nil {
				return "Введите число:"
			}
			if h <= 0 || h > models.MaxHeightCm {
				return "Введите корректный рост (0-250 см):"
			}
			draft.HeightCm = h
			return ""
		},
		next: models.StateAge,
	},
	models.StateAge: {
		prompt: "Введите Ваш возраст:",
		apply: func(draft *models.Profile, input string) string {
			a, err := strconv.Atoi(input)
			if err != nil {
				return "Введите целое число:"
			}
			if a <= 0 || a > models.MaxAge {
				return "Введите корректный возраст (1-120):"
			}
			draft.Age = a
			return ""
		},
		next: models.StateSex,
	},
	models.StateSex: {
		prompt: "Введите Ваш пол (мужчина/женщина):",
		apply: func(draft *models.Profile, input string) string {
			sex, ok := sexTokens[strings.ToLower(input)]
			if !ok {
				return "Введите корректный ответ (мужчина/женщина):"
			}
			draft.Sex = sex
			return ""
		},
		next: models.StateActivity,
	},
	models.StateActivity: {
		prompt: "Введите Ваш уровень активности (минуты физической активности в день):",
		apply: func(draft *models.Profile, input string) string {
			m, err := strconv.Atoi(input)
			if err != nil {
				return "Введите число минут:"
			}
			if m < 0 {
				return "Введите положительное число:"
			}
			draft.ActivityMinutes = m
			return ""
		},
		next: models.StateCity,
	},
	models.StateCity: {
		prompt: "Введите Ваш город:",
		apply: func(draft *models.Profile, input string) string {
			if input == "" {
				return "Введите название города:"
			}
			draft.City = input
			return ""
		},
		next: models.StateCalorieGoal,
	},
	models.StateCalorieGoal: {
		prompt: "Цель калорий (если нет — напиши 'пропустить'):",
		apply:  applyCalorieGoal,
		next:   models.StateDone,
	},
}

// applyCalorieGoal accepts the skip token or a positive integer within the
// allowed band of the computed norm (symmetric relative difference of at
// most 0.3, boundary inclusive).
func applyCalorieGoal(draft *models.Profile, input string) string {
	norm := goals.CalorieNorm(draft.Sex, draft.WeightKg, draft.HeightCm, draft.Age, draft.ActivityMinutes)

	if strings.EqualFold(input, SkipToken) {
		draft.CalorieGoal = norm
		return ""
	}

	value, err := strconv.Atoi(input)
	if err != nil {
		return "Введите число или 'пропустить':"
	}
	if value <= 0 {
		return "Введите положительное число или 'пропустить':"
	}

	diff := 1 - math.Min(norm, float64(value))/math.Max(norm, float64(value))
	if diff > models.MaxCalorieGoalDeviation {
		return fmt.Sprintf("Указанное Вами число калорий отличается от нормы для Ваших параметров более, чем на 30%%. Ваша норма: %.0f. Измените Вашу цель", norm)
	}

	draft.CalorieGoal = float64(value)
	return ""
}

// Service drives dialogue sessions and commits completed profiles.
type Service struct {
	store  store.Store
	ledger *ledger.Service
	calc   *goals.Calculator
}

// NewService creates a dialogue Service. The ledger service and goal
// calculator are used for the water-goal side effect of dialogue completion.
func NewService(st store.Store, ledgerSvc *ledger.Service, calc *goals.Calculator) *Service {
	return &Service{store: st, ledger: ledgerSvc, calc: calc}
}

// Begin starts a fresh dialogue session, discarding any prior incomplete
// one, and returns the first prompt.
func (s *Service) Begin(userID int64) (string, error) {
	now := time.Now()
	sess := models.DialogueSession{
		UserID:    userID,
		State:     models.StateWeight,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.SaveDialogueSession(sess); err != nil {
		return "", fmt.Errorf("dialogue begin: %w", err)
	}
	slog.Info("Dialogue started", "userID", userID)
	return steps[models.StateWeight].prompt, nil
}

// Active reports whether the user has an in-progress dialogue session.
func (s *Service) Active(userID int64) (bool, error) {
	sess, err := s.store.GetDialogueSession(userID)
	if err != nil {
		return false, fmt.Errorf("dialogue active: %w", err)
	}
	return sess != nil, nil
}

// Cancel discards any in-progress dialogue session.
func (s *Service) Cancel(userID int64) error {
	return s.store.DeleteDialogueSession(userID)
}

// HandleInput feeds one user reply into the session's current state.
// Invalid input returns the field-specific error message without advancing;
// valid input advances one state and returns the next prompt. The terminal
// transition commits the profile and returns the completion summary.
func (s *Service) HandleInput(ctx context.Context, userID int64, text string) (string, error) {
	sess, err := s.store.GetDialogueSession(userID)
	if err != nil {
		return "", fmt.Errorf("dialogue input: %w", err)
	}
	if sess == nil {
		return "", fmt.Errorf("dialogue input: no active session for user %d", userID)
	}

	st, ok := steps[sess.State]
	if !ok {
		return "", fmt.Errorf("dialogue input: unknown state %q for user %d", sess.State, userID)
	}

	input := strings.TrimSpace(text)
	if reply := st.apply(&sess.Draft, input); reply != "" {
		slog.Debug("Dialogue input rejected", "userID", userID, "state", sess.State)
		return reply, nil
	}

	sess.State = st.next
	sess.UpdatedAt = time.Now()

	if sess.State == models.StateDone {
		return s.commit(ctx, sess)
	}

	if err := s.store.SaveDialogueSession(*sess); err != nil {
		return "", fmt.Errorf("dialogue input: %w", err)
	}
	slog.Debug("Dialogue advanced", "userID", userID, "state", sess.State)
	return steps[sess.State].prompt, nil
}

// commit stores the completed profile, tears the session down and updates
// the user's water ledger goal from the just-committed profile.
func (s *Service) commit(ctx context.Context, sess *models.DialogueSession) (string, error) {
	profile := sess.Draft
	profile.CreatedAt = time.Now()
	if err := profile.Validate(); err != nil {
		// The transition table validated every field; reaching here is a bug.
		return "", fmt.Errorf("dialogue commit: completed profile invalid: %w", err)
	}

	if err := s.store.SaveProfile(sess.UserID, profile); err != nil {
		return "", fmt.Errorf("dialogue commit: %w", err)
	}
	if err := s.store.DeleteDialogueSession(sess.UserID); err != nil {
		return "", fmt.Errorf("dialogue commit: %w", err)
	}
	slog.Info("Profile committed", "userID", sess.UserID, "city", profile.City, "calorieGoal", profile.CalorieGoal)

	reply := fmt.Sprintf("Профиль сохранён!\nЦель калорий: %.0f ккал в день.", profile.CalorieGoal)

	waterGoal, err := s.calc.WaterGoal(ctx, profile.WeightKg, profile.ActivityMinutes, profile.City)
	if err != nil {
		slog.Error("Water goal computation failed on profile commit", "error", err, "userID", sess.UserID, "city", profile.City)
		return reply + "\nНе удалось рассчитать норму воды: попробуйте записать воду позже.", nil
	}
	if err := s.ledger.SetGoal(sess.UserID, models.MetricWater, waterGoal); err != nil {
		return "", fmt.Errorf("dialogue commit: %w", err)
	}

	return reply + fmt.Sprintf("\nНорма воды: %.0f мл в день.", waterGoal), nil
}
