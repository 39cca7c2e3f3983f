// Package messaging provides the transport abstraction and the inbound
// message router for habitbot.
package messaging

import (
	"context"

	"github.com/vmelnikova/habitbot/internal/models"
)

// Service defines a pluggable message delivery abstraction. It supports
// sending text and photo messages and provides a channel of inbound
// messages.
type Service interface {
	// SendMessage sends a text message to a user.
	SendMessage(ctx context.Context, userID int64, text string) error

	// SendPhoto sends a local image file with a caption to a user.
	SendPhoto(ctx context.Context, userID int64, path, caption string) error

	// Start begins background processing (e.g. long polling for updates).
	Start(ctx context.Context) error

	// Stop stops background processing and closes the incoming channel.
	Stop()

	// Incoming returns a channel of inbound user messages.
	Incoming() <-chan models.Incoming
}
