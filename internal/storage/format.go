// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/iea-chat/internal/model"
	"github.com/jeranaias/iea-chat/internal/util"
)

// =============================================================================
// HISTORY FORMATTING
// =============================================================================

// FormatTurnList renders turns as a fixed-width table for the terminal.
func FormatTurnList(turns []model.Turn, width int) string {
	if len(turns) == 0 {
		return "Riwayat kosong."
	}
	if width < 40 {
		width = 40
	}

	var sb strings.Builder
	sb.WriteString(util.PadWidth("#", 5) + " " + util.PadWidth("Waktu", 17) + " " + util.PadWidth("Peran", 7) + " Isi\n")
	sb.WriteString(strings.Repeat("-", width) + "\n")

	preview := width - 5 - 17 - 7 - 3
	for i, t := range turns {
		text := strings.Join(strings.Fields(t.Text), " ")
		if t.Attachment != nil {
			text = "[" + t.Attachment.Filename + "] " + text
		}
		sb.WriteString(util.PadWidth(strconv.Itoa(i+1), 5) + " " +
			util.PadWidth(t.Timestamp.Local().Format("2006-01-02 15:04"), 17) + " " +
			util.PadWidth(t.Role.DisplayName(), 7) + " " +
			util.FitWidth(text, preview) + "\n")
	}
	return sb.String()
}

// ExportMarkdown renders turns as a Markdown transcript.
func ExportMarkdown(title string, turns []model.Turn) string {
	var sb strings.Builder
	sb.WriteString("# " + title + "\n\n")
	sb.WriteString("Diekspor: " + time.Now().Format(time.RFC3339) + "\n\n")
	sb.WriteString("---\n\n")

	for _, t := range turns {
		sb.WriteString("**" + t.Role.DisplayName() + "** (" + t.Timestamp.Local().Format("2006-01-02 15:04") + "):\n\n")
		sb.WriteString(t.Text)
		if t.Attachment != nil {
			sb.WriteString("\n\n> Lampiran: " + t.Attachment.Filename)
			if t.Attachment.Note != "" {
				sb.WriteString("\n>\n> " + strings.ReplaceAll(t.Attachment.Note, "\n", "\n> "))
			}
		}
		sb.WriteString("\n\n---\n\n")
	}
	return sb.String()
}
