// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/iea-chat/internal/util"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	Preset Preset

	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// HEADER
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style

	// ==========================================================================
	// MESSAGES
	// ==========================================================================

	UserLabel       lipgloss.Style
	UserBubble      lipgloss.Style
	AssistantLabel  lipgloss.Style
	AssistantBubble lipgloss.Style
	NoticeBubble    lipgloss.Style
	Timestamp       lipgloss.Style
	AttachmentTag   lipgloss.Style
	FallbackNote    lipgloss.Style

	// ==========================================================================
	// INPUT AND STATUS
	// ==========================================================================

	InputBox    lipgloss.Style
	InputPrompt lipgloss.Style
	StatusBar   lipgloss.Style
	StatusKey   lipgloss.Style
	StatusValue lipgloss.Style
	Spinner     lipgloss.Style

	// ==========================================================================
	// LOGIN
	// ==========================================================================

	LoginBox   lipgloss.Style
	LoginTitle lipgloss.Style
	LoginHint  lipgloss.Style

	// ==========================================================================
	// STATUS LINES
	// ==========================================================================

	Muted   lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
}

// NewTheme builds the theme of the named preset. Unknown names use
// DefaultPreset.
func NewTheme(name string) *Theme {
	profile := termenv.ColorProfile()
	t := &Theme{
		Preset:       GetPreset(name),
		IsDark:       termenv.HasDarkBackground(),
		HasTrueColor: profile == termenv.TrueColor,
		ColorProfile: profile,
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	p := t.Preset.Palette

	t.Header = lipgloss.NewStyle().
		Background(p.Surface).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.Accent2).
		Padding(0, 2)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Accent)

	t.HeaderSubtitle = lipgloss.NewStyle().
		Foreground(p.Accent2)

	t.UserLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Accent)

	t.UserBubble = lipgloss.NewStyle().
		Foreground(p.UserFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.Muted).
		Padding(0, 1).
		MarginLeft(4)

	t.AssistantLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Accent2)

	t.AssistantBubble = lipgloss.NewStyle().
		Foreground(p.Text).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.Accent).
		Padding(0, 1).
		MarginRight(4)

	t.NoticeBubble = lipgloss.NewStyle().
		Foreground(p.Notice).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(p.Notice).
		BorderLeft(true).
		BorderTop(false).
		BorderRight(false).
		BorderBottom(false).
		PaddingLeft(1)

	t.Timestamp = lipgloss.NewStyle().
		Foreground(p.Muted).
		Faint(true)

	t.AttachmentTag = lipgloss.NewStyle().
		Foreground(p.Accent2).
		Italic(true)

	t.FallbackNote = lipgloss.NewStyle().
		Foreground(p.Muted).
		Italic(true)

	t.InputBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderBottom(true).
		BorderLeft(false).
		BorderRight(false).
		BorderForeground(p.Accent).
		Padding(0, 1)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(p.Accent).
		Bold(true)

	t.StatusBar = lipgloss.NewStyle().
		Background(p.Surface).
		Foreground(p.Muted).
		Padding(0, 1)

	t.StatusKey = lipgloss.NewStyle().
		Foreground(p.Accent).
		Bold(true)

	t.StatusValue = lipgloss.NewStyle().
		Foreground(p.Text)

	t.Spinner = lipgloss.NewStyle().
		Foreground(p.Accent)

	t.LoginBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.Accent2).
		Padding(1, 3)

	t.LoginTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Accent)

	t.LoginHint = lipgloss.NewStyle().
		Foreground(p.Muted).
		Italic(true)

	t.Muted = lipgloss.NewStyle().Foreground(p.Muted)
	t.Success = lipgloss.NewStyle().Foreground(p.Success).Bold(true)
	t.Error = lipgloss.NewStyle().Foreground(p.Danger).Bold(true)
	t.Warning = lipgloss.NewStyle().Foreground(p.Warning).Bold(true)
	t.Info = lipgloss.NewStyle().Foreground(p.Accent)
}

// RenderHeader renders the title banner at width columns. The subtitle is
// dropped when both do not fit.
func (t *Theme) RenderHeader(width int) string {
	title := t.HeaderTitle.Render(t.Preset.Title)
	box := width - t.Header.GetHorizontalBorderSize()
	room := width - t.Header.GetHorizontalFrameSize()
	if room < util.RuneLen(t.Preset.Title) {
		return title
	}

	sub := strings.ToUpper(t.Preset.Subtitle)
	content := title
	if lipgloss.Width(t.Preset.Title+"  "+sub) <= room {
		content += "  " + t.HeaderSubtitle.Render(sub)
	}
	return t.Header.Width(box).Render(content)
}

// GlamourStyle names the glamour style matching the background.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return "dark"
	}
	return "light"
}
