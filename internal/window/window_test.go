// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package window

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/iea-chat/internal/model"
	"github.com/jeranaias/iea-chat/internal/util"
)

func makeTurns(n int, textLen func(i int) int) []model.Turn {
	turns := make([]model.Turn, n)
	for i := range turns {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		turns[i] = model.NewTurn(role, strings.Repeat(string(rune('a'+i%26)), textLen(i)))
	}
	return turns
}

func TestBuild_CountOrderAndCap(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	system := DefaultInstruction().String()

	for trial := 0; trial < 200; trial++ {
		n := rng.Intn(30)
		size := 1 + rng.Intn(15)
		limit := 1 + rng.Intn(50)
		turns := makeTurns(n, func(int) int { return rng.Intn(120) })

		w, err := Build(turns, size, limit, system)
		require.NoError(t, err)

		want := n
		if size < n {
			want = size
		}
		require.Equal(t, want, w.Len())
		require.Equal(t, n, w.Total)

		offset := n - want
		for i, e := range w.Entries {
			src := turns[offset+i]
			require.Equal(t, src.Role, e.Role)
			require.LessOrEqual(t, util.RuneLen(e.Text), limit)
			require.True(t, strings.HasPrefix(src.Text, e.Text))
		}
	}
}

func TestBuild_SystemNotCapped(t *testing.T) {
	system := strings.Repeat("s", 100)
	w, err := Build(makeTurns(2, func(int) int { return 100 }), 6, 10, system)
	require.NoError(t, err)

	require.Equal(t, system, w.System)
	require.True(t, w.Cut)

	msgs := w.Messages()
	require.Equal(t, model.RoleSystem, msgs[0].Role)
	require.Equal(t, system, msgs[0].Content)
}

func TestBuild_Empty(t *testing.T) {
	w, err := Build(nil, 6, 1500, "sys")
	require.NoError(t, err)
	require.Equal(t, 0, w.Len())
	require.Equal(t, []model.Message{{Role: model.RoleSystem, Content: "sys"}}, w.Messages())
}

func TestBuild_RejectsInvalidSize(t *testing.T) {
	turns := makeTurns(3, func(int) int { return 5 })
	for _, tc := range []struct{ n, c int }{{0, 10}, {-1, 10}, {5, 0}, {5, -3}} {
		_, err := Build(turns, tc.n, tc.c, "sys")
		require.Error(t, err)
		require.True(t, errors.Is(err, ErrInvalidWindow))
	}
}

func TestBuild_HaloScenario(t *testing.T) {
	system := DefaultInstruction().String()
	turns := []model.Turn{model.NewUserTurn("Halo")}

	w, err := Build(turns, 6, 1500, system)
	require.NoError(t, err)

	require.Equal(t, []model.Message{
		{Role: model.RoleSystem, Content: system},
		{Role: model.RoleUser, Content: "Halo"},
	}, w.Messages())
	require.False(t, w.Cut)
}

func TestBuild_AttachmentNote(t *testing.T) {
	user := model.NewUserTurn("apa isi gambar ini?")
	user.Attachment = &model.Attachment{Kind: model.AttachmentImage, Filename: "a.png", Note: "[Analisis gambar]\nSELAMAT DATANG"}
	plain := model.NewUserTurn("tanpa lampiran")
	plain.Attachment = &model.Attachment{Kind: model.AttachmentFile, Filename: "b.bin"}

	w, err := Build([]model.Turn{user, model.NewAssistantTurn("Itu poster."), plain}, 6, 1500, "sys")
	require.NoError(t, err)

	msgs := w.Messages()
	require.Len(t, msgs, 5)
	require.Equal(t, model.Message{Role: model.RoleUser, Content: "apa isi gambar ini?"}, msgs[1])
	require.Equal(t, model.Message{Role: model.RoleSystem, Content: "[Analisis gambar]\nSELAMAT DATANG"}, msgs[2])
	require.Equal(t, model.RoleAssistant, msgs[3].Role)
	require.Equal(t, "tanpa lampiran", msgs[4].Content)
}

func TestBuild_NoteCapped(t *testing.T) {
	user := model.NewUserTurn("x")
	user.Attachment = &model.Attachment{Kind: model.AttachmentPDF, Note: strings.Repeat("p", 50)}

	w, err := Build([]model.Turn{user}, 1, 10, "sys")
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("p", 10), w.Entries[0].Note)
	require.True(t, w.Cut)
}

func TestBuild_Deterministic(t *testing.T) {
	turns := makeTurns(20, func(i int) int { return i * 7 })
	a, err := Build(turns, 8, 30, "sys")
	require.NoError(t, err)
	b, err := Build(turns, 8, 30, "sys")
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestBuild_DoesNotMutateInput(t *testing.T) {
	turns := makeTurns(4, func(int) int { return 40 })
	before := model.CloneTurns(turns)

	_, err := Build(turns, 2, 5, "sys")
	require.NoError(t, err)
	require.Equal(t, before, turns)
}

func TestTruncate_Idempotent(t *testing.T) {
	texts := []string{"", "Halo", "Selamat pagi, semuanya! 👋", strings.Repeat("é", 200)}
	for _, text := range texts {
		for c := 1; c <= 30; c++ {
			once := Truncate(text, c)
			require.Equal(t, once, Truncate(once, c))
		}
	}
}

func TestWindow_Chars(t *testing.T) {
	w, err := Build([]model.Turn{model.NewUserTurn("Halo")}, 6, 1500, "sys")
	require.NoError(t, err)
	require.Equal(t, 7, w.Chars())
}

func TestDefaultInstruction(t *testing.T) {
	require.Equal(t,
		"You are AI IEA — assistant for the IEA community. Use Bahasa Indonesia. Be concise, helpful, structured.",
		DefaultInstruction().String())
}
