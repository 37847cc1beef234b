// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the chat state of one logged-in user.
//
// # Key Types
//
//   - Store: the ordered turn log with best-effort persistence
//   - Session: identity + Store + submission gate, passed explicitly to the
//     chat engine; there is no package-level session state
//
// Store never reports persistence failures to its callers. They are
// logged and the in-memory turns stay authoritative until the process exits.
//
// # Usage
//
//	store := session.NewStore(storage.NewHistoryFile(path), logger)
//	store.Load()
//	sess := session.New("budi", store, 1200*time.Millisecond)
//	defer sess.End()
package session
