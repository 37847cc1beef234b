// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat turns.
//
// # Key Types
//
//   - Turn: one exchanged message (user or assistant) with timestamp and
//     optional attachment metadata
//   - Attachment: derived metadata for an uploaded artifact, never the raw bytes
//   - Role: user, assistant, and system (system only appears in outbound requests)
//   - Message: one role-tagged entry of an outbound model request
//
// Turns serialize to JSON. Decoding also accepts the older history shape
// ({"role":"ai","ai":"...","ts":"..."}) so histories exported by earlier
// web builds can be imported.
package model
