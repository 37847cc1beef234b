// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/jeranaias/iea-chat/internal/model"
	"github.com/jeranaias/iea-chat/internal/storage"
)

// Persister is the storage backend of a Store. *storage.HistoryFile
// implements it.
type Persister interface {
	Load() ([]model.Turn, error)
	Save(turns []model.Turn) error
}

// =============================================================================
// MESSAGE STORE
// =============================================================================

// Store is the append-only turn log of a session. The only destructive
// operation is a full clear.
type Store struct {
	mu    sync.RWMutex
	turns []model.Turn
	gen   uint64

	persist Persister
	logger  *log.Logger
}

// NewStore returns an empty store. A nil persister keeps history in memory
// only; a nil logger uses the default logger.
func NewStore(p Persister, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{
		turns:   []model.Turn{},
		persist: p,
		logger:  logger,
	}
}

// Load replaces the in-memory turns with the persisted ones. A missing,
// unreadable or invalid file leaves the store empty.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = []model.Turn{}
	s.gen++
	if s.persist == nil {
		return
	}

	turns, err := s.persist.Load()
	if err != nil {
		if errors.Is(err, storage.ErrNoHistory) {
			s.logger.Debug("no saved history, starting empty", "err", err)
		} else {
			s.logger.Warn("history unreadable, starting empty", "err", err)
		}
		return
	}
	s.turns = turns
	s.logger.Debug("history loaded", "turns", len(turns))
}

// Append adds turn to the end and saves the whole log. It returns the
// generation the turn was appended under.
func (s *Store) Append(turn model.Turn) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = append(s.turns, turn.Clone())
	s.save()
	return s.gen
}

// AppendIf appends turn only while the generation is still gen. It reports
// whether the turn was added.
func (s *Store) AppendIf(gen uint64, turn model.Turn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		return false
	}
	s.turns = append(s.turns, turn.Clone())
	s.save()
	return true
}

// Clear empties the log and saves the empty state. Replies to requests sent
// before the clear are dropped by callers that append with AppendIf.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = []model.Turn{}
	s.gen++
	s.save()
}

// Discard empties the in-memory log and detaches it from storage without
// touching the saved history. Used on logout: whatever a late caller appends
// afterwards stays in memory.
func (s *Store) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = []model.Turn{}
	s.gen++
	s.persist = nil
}

// Import puts turns in front of the current history and saves.
func (s *Store) Import(turns []model.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make([]model.Turn, 0, len(turns)+len(s.turns))
	merged = append(merged, model.CloneTurns(turns)...)
	merged = append(merged, s.turns...)
	s.turns = merged
	s.save()
}

// Export writes the current history in the history file format.
func (s *Store) Export(w io.Writer) error {
	return storage.Export(w, s.Turns())
}

// Turns returns a copy of the log.
func (s *Store) Turns() []model.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.CloneTurns(s.turns)
}

// Len returns the number of turns.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// Last returns the newest turn.
func (s *Store) Last() (model.Turn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.turns) == 0 {
		return model.Turn{}, false
	}
	return s.turns[len(s.turns)-1].Clone(), true
}

// Generation changes on every Load, Clear and Discard.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// save must be called with mu held.
func (s *Store) save() {
	if s.persist == nil {
		return
	}
	if err := s.persist.Save(s.turns); err != nil {
		s.logger.Warn("history save failed, keeping in-memory copy", "err", err)
	}
}
