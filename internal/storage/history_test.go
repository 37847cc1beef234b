// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/iea-chat/internal/model"
)

func sampleTurns() []model.Turn {
	user := model.NewUserTurn("Halo")
	user.Attachment = &model.Attachment{
		Kind:     model.AttachmentImage,
		Filename: "poster.png",
		Size:     5120,
		Width:    800,
		Height:   600,
		ThumbB64: "iVBORw0KGgo=",
		Note:     "[Analisis gambar]\nSeminar IEA 2025",
	}
	return []model.Turn{
		user,
		model.NewAssistantTurn("Hai! Ada yang bisa dibantu?"),
		model.NewUserTurn("Jadwal rapat?"),
		model.NewNoticeTurn("Maaf — gagal terhubung ke model AI. Coba lagi nanti."),
	}
}

// =============================================================================
// LOAD / SAVE TESTS
// =============================================================================

func TestHistoryFile_RoundTrip(t *testing.T) {
	hf := NewHistoryFile(filepath.Join(t.TempDir(), "history.json"))
	turns := sampleTurns()

	require.NoError(t, hf.Save(turns))

	got, err := hf.Load()
	require.NoError(t, err)
	require.Equal(t, turns, got)
}

func TestHistoryFile_SaveEmpty(t *testing.T) {
	hf := NewHistoryFile(filepath.Join(t.TempDir(), "history.json"))

	require.NoError(t, hf.Save(nil))

	data, err := os.ReadFile(hf.Path())
	require.NoError(t, err)
	require.Equal(t, "[]\n", string(data))

	got, err := hf.Load()
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestHistoryFile_LoadMissing(t *testing.T) {
	hf := NewHistoryFile(filepath.Join(t.TempDir(), "nope.json"))

	_, err := hf.Load()
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNoHistory))

	var se *StorageError
	require.True(t, errors.As(err, &se))
	require.Equal(t, "load", se.Op)
}

func TestHistoryFile_LoadCorrupt(t *testing.T) {
	cases := map[string]string{
		"garbage":    "this is not json",
		"object":     `{"role":"user"}`,
		"null":       "null",
		"truncated":  `[{"role":"user","text":"Ha`,
		"bad role":   `[{"role":"wizard","text":"x"}]`,
		"empty file": "",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "history.json")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

			_, err := NewHistoryFile(path).Load()
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrCorruptHistory), "got %v", err)
		})
	}
}

func TestHistoryFile_SaveFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	hf := NewHistoryFile(filepath.Join(blocker, "history.json"))
	err := hf.Save(sampleTurns())

	var se *StorageError
	require.True(t, errors.As(err, &se))
	require.Equal(t, "save", se.Op)
}

func TestHistoryFile_WrittenByUs(t *testing.T) {
	hf := NewHistoryFile(filepath.Join(t.TempDir(), "history.json"))
	require.False(t, hf.WrittenByUs([]byte("[]\n")))

	require.NoError(t, hf.Save(nil))
	require.True(t, hf.WrittenByUs([]byte("[]\n")))
	require.False(t, hf.WrittenByUs([]byte("[ ]\n")))
}

// =============================================================================
// EXPORT / IMPORT TESTS
// =============================================================================

func TestExportImport(t *testing.T) {
	turns := sampleTurns()

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, turns))
	require.True(t, strings.HasPrefix(buf.String(), "[\n  {"))

	got, err := Import(&buf)
	require.NoError(t, err)
	require.Equal(t, turns, got)
}

func TestImport_Legacy(t *testing.T) {
	raw := `[{"role":"user","user":"Halo","ts":"2024-05-01T10:00:00"},{"role":"ai","ai":"Hai!","ts":"2024-05-01T10:00:01"}]`

	got, err := Import(strings.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, model.RoleAssistant, got[1].Role)
	require.Equal(t, "Hai!", got[1].Text)
}

func TestImport_Invalid(t *testing.T) {
	_, err := Import(strings.NewReader(`{"not":"a list"}`))
	require.ErrorIs(t, err, ErrCorruptHistory)
}

// =============================================================================
// FORMATTING TESTS
// =============================================================================

func TestFormatTurnList(t *testing.T) {
	require.Equal(t, "Riwayat kosong.", FormatTurnList(nil, 80))

	out := FormatTurnList(sampleTurns(), 80)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2+4)
	require.Contains(t, lines[2], "Kamu")
	require.Contains(t, lines[2], "[poster.png] Halo")
	require.Contains(t, lines[3], "AI")
}

func TestExportMarkdown(t *testing.T) {
	md := ExportMarkdown("IEA AI", sampleTurns())

	require.True(t, strings.HasPrefix(md, "# IEA AI\n"))
	require.Contains(t, md, "**Kamu**")
	require.Contains(t, md, "Hai! Ada yang bisa dibantu?")
	require.Contains(t, md, "> Lampiran: poster.png")
	require.Contains(t, md, "> Seminar IEA 2025")
}
