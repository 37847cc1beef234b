// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package window builds the bounded prompt sent to the model on each call.
package window

import (
	"errors"
	"fmt"

	"github.com/jeranaias/iea-chat/internal/model"
	"github.com/jeranaias/iea-chat/internal/util"
)

const (
	// DefaultSize is the number of most recent turns kept.
	DefaultSize = 12

	// DefaultMaxChars caps each turn's text, in characters.
	DefaultMaxChars = 1500
)

// ErrInvalidWindow is returned for a non-positive size or character cap.
var ErrInvalidWindow = errors.New("invalid context window")

// =============================================================================
// SYSTEM INSTRUCTION
// =============================================================================

// Instruction describes the fixed persona line sent before every window.
type Instruction struct {
	Persona   string // "AI IEA"
	Community string // "IEA"
	Language  string // "Bahasa Indonesia"
}

// DefaultInstruction is the AI IEA persona answering in Indonesian.
func DefaultInstruction() Instruction {
	return Instruction{
		Persona:   "AI IEA",
		Community: "IEA",
		Language:  "Bahasa Indonesia",
	}
}

// String renders the instruction as the system prompt.
func (i Instruction) String() string {
	return fmt.Sprintf("You are %s — assistant for the %s community. Use %s. Be concise, helpful, structured.",
		i.Persona, i.Community, i.Language)
}

// =============================================================================
// WINDOW
// =============================================================================

// Entry is one turn as it appears in a window.
type Entry struct {
	Role model.Role
	Text string

	// Note is the attachment text of the turn, sent as a system message
	// right after it. Empty when the turn had no attachment.
	Note string
}

// Window is the bounded view of a session for one model call.
type Window struct {
	System  string
	Entries []Entry

	// Total is the number of turns in the session when the window was built.
	Total int
	// Cut reports whether any text was shortened by the character cap.
	Cut bool
}

// Build returns the last n turns with every text and attachment note cut to
// c characters, behind system. The system text is never cut. Build is
// deterministic and does no I/O.
func Build(turns []model.Turn, n, c int, system string) (Window, error) {
	if n <= 0 || c <= 0 {
		return Window{}, fmt.Errorf("%w: size=%d max_chars=%d", ErrInvalidWindow, n, c)
	}

	start := 0
	if len(turns) > n {
		start = len(turns) - n
	}

	w := Window{
		System:  system,
		Entries: make([]Entry, 0, len(turns)-start),
		Total:   len(turns),
	}
	for _, t := range turns[start:] {
		e := Entry{Role: t.Role, Text: Truncate(t.Text, c)}
		if t.Attachment != nil && t.Attachment.Note != "" {
			e.Note = Truncate(t.Attachment.Note, c)
		}
		if e.Text != t.Text || (t.Attachment != nil && e.Note != t.Attachment.Note) {
			w.Cut = true
		}
		w.Entries = append(w.Entries, e)
	}
	return w, nil
}

// Truncate keeps the first c characters of text. Applying it twice with the
// same c gives the same result as applying it once.
func Truncate(text string, c int) string {
	return util.CutRunes(text, c)
}

// Len returns the number of turns in the window.
func (w Window) Len() int {
	return len(w.Entries)
}

// Messages flattens the window into the request message list: the system
// instruction, then each turn followed by its attachment note.
func (w Window) Messages() []model.Message {
	msgs := make([]model.Message, 0, 1+2*len(w.Entries))
	msgs = append(msgs, model.Message{Role: model.RoleSystem, Content: w.System})
	for _, e := range w.Entries {
		msgs = append(msgs, model.Message{Role: e.Role, Content: e.Text})
		if e.Note != "" {
			msgs = append(msgs, model.Message{Role: model.RoleSystem, Content: e.Note})
		}
	}
	return msgs
}

// Chars returns the number of characters the window sends, system included.
func (w Window) Chars() int {
	n := util.RuneLen(w.System)
	for _, e := range w.Entries {
		n += util.RuneLen(e.Text) + util.RuneLen(e.Note)
	}
	return n
}
