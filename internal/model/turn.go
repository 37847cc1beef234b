// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns the label shown next to a turn.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "Kamu"
	case RoleAssistant:
		return "AI"
	case RoleSystem:
		return "Sistem"
	default:
		return string(r)
	}
}

// ParseRole maps a stored role name to a Role. The legacy name "ai" is
// accepted for assistant turns.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return RoleUser, nil
	case "assistant", "ai":
		return RoleAssistant, nil
	default:
		return "", fmt.Errorf("invalid turn role %q", s)
	}
}

// =============================================================================
// ATTACHMENT TYPE
// =============================================================================

// AttachmentKind classifies an uploaded artifact.
type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentPDF   AttachmentKind = "pdf"
	AttachmentFile  AttachmentKind = "file"
)

// Attachment is what remains of an upload after ingestion.
type Attachment struct {
	Kind     AttachmentKind `json:"kind"`
	Filename string         `json:"filename"`
	Size     int64          `json:"size"`

	// Images only.
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	ThumbB64 string `json:"thumb_b64,omitempty"`

	// Note is the derived text (OCR, PDF text, or a receipt note). It is
	// sent to the model as a system note after the owning turn.
	Note string `json:"note,omitempty"`
}

// =============================================================================
// TURN TYPE
// =============================================================================

// Turn is one exchanged message.
type Turn struct {
	ID         string      `json:"id"`
	Role       Role        `json:"role"`
	Text       string      `json:"text"`
	Timestamp  time.Time   `json:"timestamp"`
	Attachment *Attachment `json:"attachment,omitempty"`

	// Notice marks assistant turns written by the app itself, such as a
	// failed model call.
	Notice bool `json:"notice,omitempty"`
}

// NewTurn creates a turn stamped with the current UTC time.
func NewTurn(role Role, text string) Turn {
	return Turn{
		ID:        generateID(),
		Role:      role,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
}

// NewUserTurn creates a user turn.
func NewUserTurn(text string) Turn {
	return NewTurn(RoleUser, text)
}

// NewAssistantTurn creates an assistant turn.
func NewAssistantTurn(text string) Turn {
	return NewTurn(RoleAssistant, text)
}

// NewNoticeTurn creates an assistant turn flagged as an app notice.
func NewNoticeTurn(text string) Turn {
	t := NewTurn(RoleAssistant, text)
	t.Notice = true
	return t
}

// Clone returns a copy that shares no pointers with t.
func (t Turn) Clone() Turn {
	if t.Attachment != nil {
		a := *t.Attachment
		t.Attachment = &a
	}
	return t
}

// CloneTurns copies a turn slice deeply.
func CloneTurns(turns []Turn) []Turn {
	out := make([]Turn, len(turns))
	for i, t := range turns {
		out[i] = t.Clone()
	}
	return out
}

// =============================================================================
// REQUEST MESSAGE
// =============================================================================

// Message is one role-tagged entry of an outbound model request. It is
// never persisted.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// =============================================================================
// JSON DECODING
// =============================================================================

// turnWire accepts both the current and the legacy history shape.
type turnWire struct {
	ID         string      `json:"id"`
	Role       string      `json:"role"`
	Text       *string     `json:"text"`
	Timestamp  string      `json:"timestamp"`
	Attachment *Attachment `json:"attachment"`
	Notice     bool        `json:"notice"`

	User      *string     `json:"user"`
	AI        *string     `json:"ai"`
	TS        string      `json:"ts"`
	ImageMeta *legacyMeta `json:"image_meta"`
}

type legacyMeta struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	ThumbB64 string `json:"thumb_b64"`
}

// legacyTimeLayout is the zone-less ISO format of older history files.
const legacyTimeLayout = "2006-01-02T15:04:05.999999999"

// UnmarshalJSON decodes a turn, ignoring unknown fields.
func (t *Turn) UnmarshalJSON(data []byte) error {
	var w turnWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	role, err := ParseRole(w.Role)
	if err != nil {
		return err
	}

	var text string
	switch {
	case w.Text != nil:
		text = *w.Text
	case role == RoleUser && w.User != nil:
		text = *w.User
	case role == RoleAssistant && w.AI != nil:
		text = *w.AI
	}

	stamp := w.Timestamp
	if stamp == "" {
		stamp = w.TS
	}
	ts, err := parseTimestamp(stamp)
	if err != nil {
		return err
	}

	att := w.Attachment
	if att == nil && w.ImageMeta != nil {
		att = &Attachment{
			Kind:     AttachmentImage,
			Filename: w.ImageMeta.Filename,
			Size:     w.ImageMeta.Size,
			ThumbB64: w.ImageMeta.ThumbB64,
		}
	}

	id := w.ID
	if id == "" {
		id = generateID()
	}

	*t = Turn{
		ID:         id,
		Role:       role,
		Text:       text,
		Timestamp:  ts,
		Attachment: att,
		Notice:     w.Notice,
	}
	return nil
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, nil
	}
	ts, err := time.Parse(legacyTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid turn timestamp %q", s)
	}
	return ts.UTC(), nil
}

// generateID creates a random 16-character hex ID.
func generateID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%016x", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
