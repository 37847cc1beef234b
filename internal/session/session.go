// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/iea-chat/internal/ratelimit"
)

// =============================================================================
// SESSION
// =============================================================================

// Session is the chat state of one authenticated identity.
type Session struct {
	ID        string
	Identity  string
	StartedAt time.Time

	Store *Store
	Gate  *ratelimit.Gate
}

// New starts a session for identity over store.
func New(identity string, store *Store, minInterval time.Duration) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Identity:  identity,
		StartedAt: time.Now(),
		Store:     store,
		Gate:      ratelimit.NewGate(minInterval),
	}
}

// Duration returns how long the session has been active.
func (s *Session) Duration() time.Duration {
	return time.Since(s.StartedAt)
}

// End discards the in-memory history. The history file is left as is so the
// next login picks it up again.
func (s *Session) End() {
	s.Store.Discard()
	s.Gate.Reset()
}
