// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual presets of the iea terminal UI.
//
// Three presets exist, matching the community's web variants: iea-ai
// (cyan on near-black), cosmos (violet and pink) and iea-intelligence (gold
// and teal). A preset carries its palette, its login and header copy, and
// its loading spinner. All colors use Lip Gloss AdaptiveColor for automatic
// light/dark detection.
//
// # Usage
//
//	theme := styles.NewTheme(cfg.UI.Theme)
//	header := theme.RenderHeader(width)
//	line := theme.RenderWarning("Terlalu cepat — tunggu sebentar.")
package styles
