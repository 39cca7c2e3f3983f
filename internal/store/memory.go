// Package store provides the state backend for habitbot.
//
// This file implements the in-memory store. It replaces the module-level
// maps of earlier prototypes with an explicit user-keyed store object.
package store

import (
	"sync"

	"github.com/vmelnikova/habitbot/internal/models"
)

// ledgerKey identifies a ledger by user and metric.
type ledgerKey struct {
	userID int64
	metric models.Metric
}

// InMemoryStore keeps all tracking state in process memory, guarded by a
// single RWMutex. Returned records are copies; callers never share memory
// with the store.
type InMemoryStore struct {
	mu          sync.RWMutex
	profiles    map[int64]models.Profile
	ledgers     map[ledgerKey]models.Ledger
	sessions    map[int64]models.DialogueSession
	pendingFood map[int64]models.PendingFood
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		profiles:    make(map[int64]models.Profile),
		ledgers:     make(map[ledgerKey]models.Ledger),
		sessions:    make(map[int64]models.DialogueSession),
		pendingFood: make(map[int64]models.PendingFood),
	}
}

// GetProfile returns the committed profile for a user, or nil if none.
func (s *InMemoryStore) GetProfile(userID int64) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// SaveProfile stores or overwrites the profile for a user.
func (s *InMemoryStore) SaveProfile(userID int64, p models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[userID] = p
	return nil
}

// GetLedger returns a copy of the ledger for (user, metric), or nil if none.
func (s *InMemoryStore) GetLedger(userID int64, metric models.Metric) (*models.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.ledgers[ledgerKey{userID: userID, metric: metric}]
	if !ok {
		return nil, nil
	}
	cp := l
	cp.History = append([]models.LedgerEntry(nil), l.History...)
	return &cp, nil
}

// SaveLedger stores or overwrites the ledger for (user, metric).
func (s *InMemoryStore) SaveLedger(userID int64, metric models.Metric, l models.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.History = append([]models.LedgerEntry(nil), l.History...)
	s.ledgers[ledgerKey{userID: userID, metric: metric}] = l
	return nil
}

// GetDialogueSession returns the in-progress dialogue session, or nil.
func (s *InMemoryStore) GetDialogueSession(userID int64) (*models.DialogueSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

// SaveDialogueSession stores or overwrites the dialogue session.
func (s *InMemoryStore) SaveDialogueSession(sess models.DialogueSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.UserID] = sess
	return nil
}

// DeleteDialogueSession removes the dialogue session, if any.
func (s *InMemoryStore) DeleteDialogueSession(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

// GetPendingFood returns the pending food lookup for a user, or nil.
func (s *InMemoryStore) GetPendingFood(userID int64) (*models.PendingFood, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pendingFood[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// SavePendingFood stores or overwrites the pending food lookup.
func (s *InMemoryStore) SavePendingFood(p models.PendingFood) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingFood[p.UserID] = p
	return nil
}

// DeletePendingFood removes the pending food lookup, if any.
func (s *InMemoryStore) DeletePendingFood(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pendingFood, userID)
	return nil
}
