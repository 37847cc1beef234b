// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// maxFileCompletions bounds path completion in large directories.
const maxFileCompletions = 50

// Complete returns full-line candidates for line: command names while the
// name is being typed, file paths for a file argument. The result is sorted
// and may be empty.
func (r *Registry) Complete(line string) []string {
	if !strings.HasPrefix(line, "/") {
		return nil
	}

	space := strings.IndexByte(line, ' ')
	if space == -1 {
		var out []string
		for _, name := range r.Names() {
			if strings.HasPrefix(name, strings.ToLower(line)) {
				out = append(out, name+" ")
			}
		}
		return out
	}

	cmd := r.Get(line[:space])
	if cmd == nil || len(cmd.Args) == 0 || cmd.Args[0].Type != ArgTypeFile {
		return nil
	}
	head := line[:space+1]
	partial := strings.TrimLeft(line[space+1:], " ")
	if strings.ContainsAny(partial, `"'`) {
		return nil
	}

	var out []string
	for _, p := range completePath(partial) {
		out = append(out, head+p)
	}
	return out
}

func completePath(partial string) []string {
	matches, err := filepath.Glob(ExpandPath(partial) + "*")
	if err != nil {
		return nil
	}
	sort.Strings(matches)
	if len(matches) > maxFileCompletions {
		matches = matches[:maxFileCompletions]
	}

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if strings.HasPrefix(partial, "~") {
			if home, err := os.UserHomeDir(); err == nil {
				m = "~" + strings.TrimPrefix(m, home)
			}
		}
		if info, err := os.Stat(ExpandPath(m)); err == nil && info.IsDir() {
			m += string(filepath.Separator)
		}
		out = append(out, m)
	}
	return out
}
