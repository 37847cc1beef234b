// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/iea-chat/internal/attach"
	core "github.com/jeranaias/iea-chat/internal/chat"
	"github.com/jeranaias/iea-chat/internal/membership"
)

// =============================================================================
// LOGIN MESSAGES
// =============================================================================

// LoginResultMsg carries the outcome of a membership lookup.
type LoginResultMsg struct {
	Name   string
	Member membership.Member
	Err    error
}

// =============================================================================
// SUBMISSION MESSAGES
// =============================================================================

// ReplyMsg carries the outcome of core.Engine.Submit.
type ReplyMsg struct {
	// Seq matches the submission that produced it. Replies for an older
	// submission (after logout) are ignored.
	Seq  uint64
	Text string
	// Upload is the attachment sent with the submission, if any.
	Upload *attach.Upload
	Reply  core.Reply
	Err    error
}

// =============================================================================
// HISTORY MESSAGES
// =============================================================================

// HistoryChangedMsg reports that another process rewrote the history file.
// The CLI forwards storage.Watcher events with Program.Send.
type HistoryChangedMsg struct {
	Path string
}

// statusKind selects the style of the status line.
type statusKind int

const (
	statusInfo statusKind = iota
	statusSuccess
	statusWarning
	statusError
)
