// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared across iea packages.
//
// Text:
//   - CutRunes: hard character cut used by the context window (no ellipsis)
//   - FitWidth, PadWidth: column-aware fitting for the terminal header and status bar
//
// Files:
//   - WriteFileAtomic: temp file + fsync + rename, used for the history file
//     and the config file
package util
