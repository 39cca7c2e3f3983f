// Package messaging provides transports for habitbot.
//
// This file implements the Telegram transport using long polling.
package messaging

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vmelnikova/habitbot/internal/models"
)

// updateTimeoutSec is the long-polling timeout passed to Telegram.
const updateTimeoutSec = 30

// incomingBuffer bounds the inbound channel so a burst of updates does not
// block the polling goroutine.
const incomingBuffer = 64

// TelegramService implements Service over the Telegram Bot API.
type TelegramService struct {
	bot      *tgbotapi.BotAPI
	incoming chan models.Incoming
}

// NewTelegramService creates a TelegramService authenticated with the given
// bot token.
func NewTelegramService(token string) (*TelegramService, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: authenticate bot: %w", err)
	}
	slog.Info("Telegram bot authenticated", "username", bot.Self.UserName)
	return &TelegramService{
		bot:      bot,
		incoming: make(chan models.Incoming, incomingBuffer),
	}, nil
}

// Start begins long polling for updates and forwarding text messages to the
// incoming channel until the context is cancelled or polling stops.
func (s *TelegramService) Start(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = updateTimeoutSec
	updates := s.bot.GetUpdatesChan(cfg)

	go s.pump(ctx, updates)

	slog.Info("Telegram polling started")
	return nil
}

// pump forwards text updates to the incoming channel. Every send is guarded
// by the context so a stopped consumer with a full buffer cannot wedge the
// polling goroutine.
func (s *TelegramService) pump(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	defer close(s.incoming)
	for {
		select {
		case upd, ok := <-updates:
			if !ok {
				slog.Debug("Telegram updates channel closed")
				return
			}
			if upd.Message == nil || upd.Message.Text == "" {
				continue
			}
			slog.Info("Incoming message",
				"userID", upd.Message.From.ID,
				"username", upd.Message.From.UserName,
				"text", upd.Message.Text)
			select {
			case s.incoming <- models.Incoming{
				UserID: upd.Message.From.ID,
				Text:   upd.Message.Text,
				Time:   upd.Message.Time(),
			}:
			case <-ctx.Done():
				slog.Debug("Telegram polling stopping due to context cancellation")
				return
			}
		case <-ctx.Done():
			slog.Debug("Telegram polling stopping due to context cancellation")
			return
		}
	}
}

// Stop stops receiving updates; the polling goroutine then closes the
// incoming channel.
func (s *TelegramService) Stop() {
	s.bot.StopReceivingUpdates()
}

// Incoming returns the channel of inbound user messages.
func (s *TelegramService) Incoming() <-chan models.Incoming {
	return s.incoming
}

// SendMessage sends a text message to a user.
func (s *TelegramService) SendMessage(ctx context.Context, userID int64, text string) error {
	msg := tgbotapi.NewMessage(userID, text)
	if _, err := s.bot.Send(msg); err != nil {
		slog.Error("Telegram send message failed", "error", err, "userID", userID)
		return fmt.Errorf("telegram: send message: %w", err)
	}
	return nil
}

// SendPhoto sends a local image file with a caption to a user.
func (s *TelegramService) SendPhoto(ctx context.Context, userID int64, path, caption string) error {
	photo := tgbotapi.NewPhoto(userID, tgbotapi.FilePath(path))
	photo.Caption = caption
	if _, err := s.bot.Send(photo); err != nil {
		slog.Error("Telegram send photo failed", "error", err, "userID", userID, "path", path)
		return fmt.Errorf("telegram: send photo: %w", err)
	}
	return nil
}
