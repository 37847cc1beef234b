// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// CutRunes returns the first max characters of s. It never appends an
// ellipsis and never splits a multi-byte character, so CutRunes(CutRunes(s, n), n)
// equals CutRunes(s, n). A non-positive max yields "".
func CutRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

// RuneLen is the number of characters in s.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// FitWidth truncates s to at most width terminal columns, marking the cut
// with "…". Wide (CJK) characters count as two columns.
func FitWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

// PadWidth right-pads s with spaces to exactly width columns, truncating
// first when it is too wide.
func PadWidth(s string, width int) string {
	s = FitWidth(s, width)
	return runewidth.FillRight(s, width)
}
