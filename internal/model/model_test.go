// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// =============================================================================
// ROLE TESTS
// =============================================================================

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"user", RoleUser, false},
		{"assistant", RoleAssistant, false},
		{"ai", RoleAssistant, false},
		{" AI ", RoleAssistant, false},
		{"system", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

// =============================================================================
// TURN TESTS
// =============================================================================

func TestNewTurn(t *testing.T) {
	turn := NewUserTurn("Halo")

	require.Equal(t, RoleUser, turn.Role)
	require.Equal(t, "Halo", turn.Text)
	require.Len(t, turn.ID, 16)
	require.Equal(t, time.UTC, turn.Timestamp.Location())
	require.False(t, turn.Notice)

	require.True(t, NewNoticeTurn("gagal").Notice)
	require.NotEqual(t, turn.ID, NewUserTurn("Halo").ID)
}

func TestClone_DetachesAttachment(t *testing.T) {
	orig := NewUserTurn("lihat ini")
	orig.Attachment = &Attachment{Kind: AttachmentImage, Filename: "a.png", Note: "x"}

	cp := orig.Clone()
	cp.Attachment.Note = "changed"

	require.Equal(t, "x", orig.Attachment.Note)
}

func TestTurnJSON_RoundTrip(t *testing.T) {
	turn := NewUserTurn("Halo")
	turn.Attachment = &Attachment{
		Kind:     AttachmentPDF,
		Filename: "agenda.pdf",
		Size:     2048,
		Note:     "[Isi PDF]\nRapat bulanan",
	}

	data, err := json.Marshal(turn)
	require.NoError(t, err)

	var got Turn
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, turn, got)
}

func TestTurnJSON_IgnoresUnknownFields(t *testing.T) {
	raw := `{"id":"abc","role":"assistant","text":"Hai!","timestamp":"2025-01-02T03:04:05Z","tts_voice":"id-ID"}`

	var got Turn
	require.NoError(t, json.Unmarshal([]byte(raw), &got))
	require.Equal(t, "abc", got.ID)
	require.Equal(t, RoleAssistant, got.Role)
	require.Equal(t, "Hai!", got.Text)
	require.True(t, got.Timestamp.Equal(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)))
}

func TestTurnJSON_LegacyShape(t *testing.T) {
	raw := `[
	  {"role":"user","user":"Halo","ts":"2024-05-01T10:00:00.123456","image_meta":{"filename":"foto.jpg","size":1200,"thumb_b64":"AAAA"}},
	  {"role":"ai","ai":"Hai!","ts":"2024-05-01T10:00:02.5"}
	]`

	var got []Turn
	require.NoError(t, json.Unmarshal([]byte(raw), &got))
	require.Len(t, got, 2)

	require.Equal(t, RoleUser, got[0].Role)
	require.Equal(t, "Halo", got[0].Text)
	require.NotEmpty(t, got[0].ID)
	require.NotNil(t, got[0].Attachment)
	require.Equal(t, AttachmentImage, got[0].Attachment.Kind)
	require.Equal(t, "foto.jpg", got[0].Attachment.Filename)
	require.Equal(t, int64(1200), got[0].Attachment.Size)

	require.Equal(t, RoleAssistant, got[1].Role)
	require.Equal(t, "Hai!", got[1].Text)
	require.Equal(t, 2024, got[1].Timestamp.Year())
}

func TestTurnJSON_Rejects(t *testing.T) {
	tests := map[string]string{
		"bad role":      `{"role":"robot","text":"x"}`,
		"bad timestamp": `{"role":"user","text":"x","timestamp":"yesterday"}`,
		"not an object": `"hello"`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			var got Turn
			require.Error(t, json.Unmarshal([]byte(raw), &got))
		})
	}
}
