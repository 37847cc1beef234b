// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// PALETTE
// =============================================================================

// Palette is the color set of one preset. Every color adapts to light and
// dark terminals.
type Palette struct {
	Accent  lipgloss.AdaptiveColor // titles, prompt, borders
	Accent2 lipgloss.AdaptiveColor // gradient end, assistant label
	Surface lipgloss.AdaptiveColor // header and status backgrounds
	Panel   lipgloss.AdaptiveColor // bubble backgrounds
	Text    lipgloss.AdaptiveColor
	Muted   lipgloss.AdaptiveColor
	UserFg  lipgloss.AdaptiveColor
	Notice  lipgloss.AdaptiveColor
	Danger  lipgloss.AdaptiveColor
	Warning lipgloss.AdaptiveColor
	Success lipgloss.AdaptiveColor
}

// =============================================================================
// PRESETS
// =============================================================================

// Preset is a named look plus its copy.
type Preset struct {
	Name     string
	Title    string
	Subtitle string

	// Login screen copy.
	LoginTitle  string
	LoginPrompt string
	LoginHint   string

	// InputPlaceholder is shown in the empty chat input.
	InputPlaceholder string

	Palette Palette
	Spinner SpinnerConfig
}

// DefaultPreset is used for unknown names.
const DefaultPreset = "iea-ai"

var presets = map[string]Preset{
	"iea-ai": {
		Name:             "iea-ai",
		Title:            "AI IEA",
		Subtitle:         "Komunitas IEA",
		LoginTitle:       "Masuk ke AI IEA",
		LoginPrompt:      "Nama anggota",
		LoginHint:        "Gunakan nama yang terdaftar di komunitas IEA.",
		InputPlaceholder: "Tulis pertanyaan atau perintahmu...",
		Palette: Palette{
			Accent:  lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#00F6FF"},
			Accent2: lipgloss.AdaptiveColor{Light: "#6D28D9", Dark: "#7C3CFF"},
			Surface: lipgloss.AdaptiveColor{Light: "#F1F5F9", Dark: "#0B0B10"},
			Panel:   lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#111118"},
			Text:    lipgloss.AdaptiveColor{Light: "#0F172A", Dark: "#E6E8EE"},
			Muted:   lipgloss.AdaptiveColor{Light: "#64748B", Dark: "#9AA3B2"},
			UserFg:  lipgloss.AdaptiveColor{Light: "#1E293B", Dark: "#F8FAFC"},
			Notice:  lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"},
			Danger:  lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#EF4444"},
			Warning: lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#F59E0B"},
			Success: lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#22C55E"},
		},
		Spinner: ScanSpinner,
	},
	"cosmos": {
		Name:             "cosmos",
		Title:            "COSMOS",
		Subtitle:         "Asisten antariksa komunitas IEA",
		LoginTitle:       "Gerbang COSMOS",
		LoginPrompt:      "Nama penjelajah",
		LoginHint:        "Hanya anggota IEA yang dapat masuk.",
		InputPlaceholder: "Kirim sinyal ke COSMOS...",
		Palette: Palette{
			Accent:  lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#C4B5FD"},
			Accent2: lipgloss.AdaptiveColor{Light: "#DB2777", Dark: "#F472B6"},
			Surface: lipgloss.AdaptiveColor{Light: "#F5F3FF", Dark: "#0D0B1E"},
			Panel:   lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#17132E"},
			Text:    lipgloss.AdaptiveColor{Light: "#1E1B4B", Dark: "#EDE9FE"},
			Muted:   lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A5A0C8"},
			UserFg:  lipgloss.AdaptiveColor{Light: "#312E81", Dark: "#E0E7FF"},
			Notice:  lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FCD34D"},
			Danger:  lipgloss.AdaptiveColor{Light: "#BE123C", Dark: "#FB7185"},
			Warning: lipgloss.AdaptiveColor{Light: "#C2410C", Dark: "#FDBA74"},
			Success: lipgloss.AdaptiveColor{Light: "#047857", Dark: "#6EE7B7"},
		},
		Spinner: OrbitSpinner,
	},
	"iea-intelligence": {
		Name:             "iea-intelligence",
		Title:            "IEA Intelligence",
		Subtitle:         "Analisis dan riset untuk anggota IEA",
		LoginTitle:       "IEA Intelligence",
		LoginPrompt:      "Nama anggota",
		LoginHint:        "Akses terbatas untuk anggota terdaftar.",
		InputPlaceholder: "Ajukan pertanyaan analisis...",
		Palette: Palette{
			Accent:  lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#F5C542"},
			Accent2: lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#2DD4BF"},
			Surface: lipgloss.AdaptiveColor{Light: "#FAFAF9", Dark: "#0C0A09"},
			Panel:   lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1C1917"},
			Text:    lipgloss.AdaptiveColor{Light: "#1C1917", Dark: "#F5F5F4"},
			Muted:   lipgloss.AdaptiveColor{Light: "#78716C", Dark: "#A8A29E"},
			UserFg:  lipgloss.AdaptiveColor{Light: "#292524", Dark: "#FAFAF9"},
			Notice:  lipgloss.AdaptiveColor{Light: "#C2410C", Dark: "#FB923C"},
			Danger:  lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"},
			Warning: lipgloss.AdaptiveColor{Light: "#A16207", Dark: "#FACC15"},
			Success: lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#4ADE80"},
		},
		Spinner: DotsSpinner,
	},
}

// PresetNames lists the preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LookupPreset returns the named preset.
func LookupPreset(name string) (Preset, bool) {
	p, ok := presets[name]
	return p, ok
}

// GetPreset returns the named preset or the default one.
func GetPreset(name string) Preset {
	if p, ok := presets[name]; ok {
		return p
	}
	return presets[DefaultPreset]
}

// =============================================================================
// STATUS INDICATORS
// =============================================================================

// StatusIndicatorSet contains text indicators for status states so the state
// is readable without color.
type StatusIndicatorSet struct {
	Success string
	Error   string
	Warning string
	Info    string
}

// StatusIndicators are ASCII-only for maximum compatibility.
var StatusIndicators = StatusIndicatorSet{
	Success: "[OK]",
	Error:   "[X]",
	Warning: "[!]",
	Info:    "[i]",
}

// RenderSuccess renders a success line with its indicator.
func (t *Theme) RenderSuccess(message string) string {
	return t.Success.Render(StatusIndicators.Success + " " + message)
}

// RenderError renders an error line with its indicator.
func (t *Theme) RenderError(message string) string {
	return t.Error.Render(StatusIndicators.Error + " " + message)
}

// RenderWarning renders a warning line with its indicator.
func (t *Theme) RenderWarning(message string) string {
	return t.Warning.Render(StatusIndicators.Warning + " " + message)
}

// RenderInfo renders an info line with its indicator.
func (t *Theme) RenderInfo(message string) string {
	return t.Info.Render(StatusIndicators.Info + " " + message)
}

// RenderStatus picks RenderSuccess or RenderError.
func (t *Theme) RenderStatus(success bool, message string) string {
	if success {
		return t.RenderSuccess(message)
	}
	return t.RenderError(message)
}
