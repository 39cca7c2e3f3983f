// Package store provides the process-wide state backend for habitbot.
//
// All per-user tracking state (profiles, daily ledgers, dialogue sessions,
// pending food lookups) lives here. State is ephemeral by design: it exists
// for the lifetime of the process only.
package store

import "github.com/vmelnikova/habitbot/internal/models"

// Store defines the storage port consumed by the ledger, dialogue and
// tracking services. Get methods return nil (with a nil error) when the
// requested record does not exist; reads never create records.
type Store interface {
	// GetProfile returns the committed profile for a user, or nil if none.
	GetProfile(userID int64) (*models.Profile, error)

	// SaveProfile stores or overwrites the profile for a user.
	SaveProfile(userID int64, p models.Profile) error

	// GetLedger returns the ledger for (user, metric), or nil if none.
	GetLedger(userID int64, metric models.Metric) (*models.Ledger, error)

	// SaveLedger stores or overwrites the ledger for (user, metric).
	SaveLedger(userID int64, metric models.Metric, l models.Ledger) error

	// GetDialogueSession returns the in-progress dialogue session, or nil.
	GetDialogueSession(userID int64) (*models.DialogueSession, error)

	// SaveDialogueSession stores or overwrites the dialogue session.
	SaveDialogueSession(s models.DialogueSession) error

	// DeleteDialogueSession removes the dialogue session, if any.
	DeleteDialogueSession(userID int64) error

	// GetPendingFood returns the pending food lookup for a user, or nil.
	GetPendingFood(userID int64) (*models.PendingFood, error)

	// SavePendingFood stores or overwrites the pending food lookup.
	SavePendingFood(p models.PendingFood) error

	// DeletePendingFood removes the pending food lookup, if any.
	DeletePendingFood(userID int64) error
}
