// Package messaging provides the inbound message router.
//
// The router dispatches commands to the tracking service, routes non-command
// text to the active dialogue session or pending food flow, and converts
// recoverable errors into user-facing messages. Each user's messages feed a
// per-user worker that handles them one at a time in arrival order, so a
// reply queued behind its command can never overtake it; distinct users
// proceed concurrently.
package messaging

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/vmelnikova/habitbot/internal/dialogue"
	"github.com/vmelnikova/habitbot/internal/food"
	"github.com/vmelnikova/habitbot/internal/goals"
	"github.com/vmelnikova/habitbot/internal/models"
	"github.com/vmelnikova/habitbot/internal/tracker"
	"github.com/vmelnikova/habitbot/internal/weather"
)

// User-facing router messages.
const (
	greeting = "Привет! Я трекер твоих новых привычек!\n\n" +
		"Команды:\n/set_profile — настроить профиль\n/log_water 300 — записать воду\n" +
		"/log_workout бег 40 — записать тренировку\n/log_food банан — записать еду\n" +
		"/check_progress — прогресс за день\n/profile — показать профиль"
	unknownCommand = "Неизвестная команда. Отправь /start, чтобы увидеть список команд."
	plainTextHint  = "Я понимаю только команды. Отправь /start, чтобы увидеть список."

	errWeatherAuth   = "Сервис погоды отклонил ключ API. Сообщите администратору бота."
	errWeatherLookup = "Не удалось получить погоду для расчёта нормы воды. Попробуйте позже."
	errZeroTemp      = "Не удалось рассчитать норму воды: температура в городе равна нулю."
	errFoodLookup    = "Сервис продуктов недоступен. Попробуйте позже."
	errGeneric       = "Что-то пошло не так. Попробуйте ещё раз."
)

// userQueueBuffer bounds each user's backlog of unhandled messages.
const userQueueBuffer = 16

// Router dispatches inbound messages to the dialogue and tracking services.
type Router struct {
	svc      Service
	tracker  *tracker.Service
	dialogue *dialogue.Service

	mu         sync.Mutex
	userQueues map[int64]chan models.Incoming
	wg         sync.WaitGroup
}

// NewRouter creates a Router over the given transport and services.
func NewRouter(svc Service, trackerSvc *tracker.Service, dialogueSvc *dialogue.Service) *Router {
	return &Router{
		svc:        svc,
		tracker:    trackerSvc,
		dialogue:   dialogueSvc,
		userQueues: make(map[int64]chan models.Incoming),
	}
}

// Run processes inbound messages until the context is cancelled or the
// transport's incoming channel closes. It blocks the calling goroutine until
// all per-user workers have drained.
func (r *Router) Run(ctx context.Context) {
	slog.Info("Router started")
	defer slog.Info("Router stopped")

	for {
		select {
		case msg, ok := <-r.svc.Incoming():
			if !ok {
				slog.Debug("Router incoming channel closed")
				r.closeQueues()
				r.wg.Wait()
				return
			}
			r.enqueue(ctx, msg)
		case <-ctx.Done():
			slog.Debug("Router stopping due to context cancellation")
			r.wg.Wait()
			return
		}
	}
}

// enqueue hands a message to the user's serial worker, starting one on first
// contact. The queue preserves arrival order for the user.
func (r *Router) enqueue(ctx context.Context, msg models.Incoming) {
	r.mu.Lock()
	q, ok := r.userQueues[msg.UserID]
	if !ok {
		q = make(chan models.Incoming, userQueueBuffer)
		r.userQueues[msg.UserID] = q
		r.wg.Add(1)
		go r.worker(ctx, q)
	}
	r.mu.Unlock()

	select {
	case q <- msg:
	default:
		// A single user flooding faster than their worker drains must not
		// stall dispatch for everyone else.
		slog.Warn("Dropping message, user queue full", "userID", msg.UserID)
	}
}

// worker handles one user's messages strictly in order.
func (r *Router) worker(ctx context.Context, q chan models.Incoming) {
	defer r.wg.Done()
	for {
		select {
		case msg, ok := <-q:
			if !ok {
				return
			}
			r.handle(ctx, msg)
		case <-ctx.Done():
			return
		}
	}
}

// closeQueues shuts down every per-user worker after the transport closed.
func (r *Router) closeQueues() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, q := range r.userQueues {
		close(q)
	}
	r.userQueues = make(map[int64]chan models.Incoming)
}

// handle processes a single inbound message to completion and delivers the
// composed reply.
func (r *Router) handle(ctx context.Context, msg models.Incoming) {
	reply, err := r.dispatch(ctx, msg)
	if err != nil {
		slog.Error("Router command failed", "error", err, "userID", msg.UserID)
		reply = tracker.Reply{Text: userMessageForError(err)}
	}
	if reply.Text == "" && reply.PhotoPath == "" {
		return
	}
	r.deliver(ctx, msg.UserID, reply)
}

// dispatch selects the handler for a message based on its command, or on
// the user's conversation state for non-command text.
func (r *Router) dispatch(ctx context.Context, msg models.Incoming) (tracker.Reply, error) {
	text := strings.TrimSpace(msg.Text)

	if cmd, args, ok := parseCommand(text); ok {
		// Any explicit command abandons an in-progress dialogue; all but
		// /log_food also abandon a pending food weight prompt.
		if err := r.dialogue.Cancel(msg.UserID); err != nil {
			return tracker.Reply{}, err
		}
		if cmd != "log_food" {
			if err := r.tracker.CancelPendingFood(msg.UserID); err != nil {
				return tracker.Reply{}, err
			}
		}

		switch cmd {
		case "start":
			return tracker.Reply{Text: greeting}, nil
		case "set_profile":
			prompt, err := r.dialogue.Begin(msg.UserID)
			return tracker.Reply{Text: prompt}, err
		case "log_water":
			return r.tracker.LogWater(ctx, msg.UserID, args)
		case "log_workout":
			return r.tracker.LogWorkout(ctx, msg.UserID, args)
		case "log_food":
			return r.tracker.LogFood(ctx, msg.UserID, args)
		case "check_progress":
			return r.tracker.Progress(msg.UserID)
		case "profile":
			return r.tracker.ProfileSummary(msg.UserID)
		default:
			return tracker.Reply{Text: unknownCommand}, nil
		}
	}

	// Non-command text belongs to an in-flight conversation, if any.
	active, err := r.dialogue.Active(msg.UserID)
	if err != nil {
		return tracker.Reply{}, err
	}
	if active {
		out, err := r.dialogue.HandleInput(ctx, msg.UserID, text)
		return tracker.Reply{Text: out}, err
	}

	pending, err := r.tracker.PendingFoodActive(msg.UserID)
	if err != nil {
		return tracker.Reply{}, err
	}
	if pending {
		return r.tracker.HandleFoodWeight(ctx, msg.UserID, text)
	}

	return tracker.Reply{Text: plainTextHint}, nil
}

// deliver sends the reply, attaching and then discarding the chart image
// when one was rendered.
func (r *Router) deliver(ctx context.Context, userID int64, reply tracker.Reply) {
	if reply.PhotoPath != "" {
		err := r.svc.SendPhoto(ctx, userID, reply.PhotoPath, reply.Text)
		if rmErr := os.Remove(reply.PhotoPath); rmErr != nil {
			slog.Warn("Failed to remove chart image", "error", rmErr, "path", reply.PhotoPath)
		}
		if err != nil {
			slog.Error("Router photo delivery failed", "error", err, "userID", userID)
		}
		return
	}
	if err := r.svc.SendMessage(ctx, userID, reply.Text); err != nil {
		slog.Error("Router message delivery failed", "error", err, "userID", userID)
	}
}

// parseCommand splits "/log_water 300" into ("log_water", "300"). A trailing
// "@botname" on the command token is stripped.
func parseCommand(text string) (cmd, args string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, tail, _ := strings.Cut(text[1:], " ")
	if head == "" {
		return "", "", false
	}
	if at := strings.Index(head, "@"); at != -1 {
		head = head[:at]
	}
	return strings.ToLower(head), strings.TrimSpace(tail), true
}

// userMessageForError converts recoverable external failures into
// user-facing text. Anything unclassified gets a generic message; the
// original error is already logged at the call site.
func userMessageForError(err error) string {
	switch {
	case errors.Is(err, weather.ErrUnauthorized):
		return errWeatherAuth
	case errors.Is(err, goals.ErrZeroTemperature):
		return errZeroTemp
	case errors.Is(err, weather.ErrLookup):
		return errWeatherLookup
	case errors.Is(err, food.ErrLookup):
		return errFoodLookup
	default:
		return errGeneric
	}
}
