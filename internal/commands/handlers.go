// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/iea-chat/internal/attach"
	"github.com/jeranaias/iea-chat/internal/session"
	"github.com/jeranaias/iea-chat/internal/storage"
	"github.com/jeranaias/iea-chat/internal/util"
)

// ErrNoSession is returned by commands that need a logged-in session.
var ErrNoSession = errors.New("no active session")

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Env is what commands act on. It is filled in by the surface.
type Env struct {
	Session *session.Session

	// MaxUpload caps /attach. Zero uses attach.DefaultMaxBytes.
	MaxUpload int64

	// Title heads Markdown exports.
	Title string
}

// Action tells the surface what to do after a command.
type Action int

const (
	ActionNone   Action = iota
	ActionAttach        // stage Result.Upload for the next submission
	ActionClear         // history was cleared; reset the view
	ActionReload        // history changed; redraw it
	ActionLogout        // end the session and return to login
	ActionQuit          // leave the program
)

// Result is the outcome of a command.
type Result struct {
	Message string
	Action  Action
	Upload  *attach.Upload
}

func (e *Env) session() (*session.Session, error) {
	if e == nil || e.Session == nil {
		return nil, ErrNoSession
	}
	return e.Session, nil
}

// =============================================================================
// HANDLERS
// =============================================================================

func runAttach(ctx context.Context, env *Env, args []string) (Result, error) {
	limit := int64(attach.DefaultMaxBytes)
	if env != nil && env.MaxUpload > 0 {
		limit = env.MaxUpload
	}
	up, err := attach.ReadFile(ExpandPath(args[0]), limit)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Action:  ActionAttach,
		Upload:  &up,
		Message: fmt.Sprintf("Lampiran siap: %s (%d bytes). Kirim pesan untuk mengirimnya.", up.Filename, len(up.Data)),
	}, nil
}

func runExport(ctx context.Context, env *Env, args []string) (Result, error) {
	s, err := env.session()
	if err != nil {
		return Result{}, err
	}
	path := ExpandPath(args[0])
	turns := s.Store.Turns()

	var data []byte
	if strings.EqualFold(filepath.Ext(path), ".md") {
		title := env.Title
		if title == "" {
			title = "Riwayat percakapan"
		}
		data = []byte(storage.ExportMarkdown(title, turns))
	} else {
		var buf bytes.Buffer
		if err := storage.Export(&buf, turns); err != nil {
			return Result{}, err
		}
		data = buf.Bytes()
	}

	if err := util.WriteFileAtomic(path, data, 0600); err != nil {
		return Result{}, fmt.Errorf("export %s: %w", path, err)
	}
	return Result{Message: fmt.Sprintf("%d pesan diekspor ke %s.", len(turns), path)}, nil
}

func runImport(ctx context.Context, env *Env, args []string) (Result, error) {
	s, err := env.session()
	if err != nil {
		return Result{}, err
	}
	path := ExpandPath(args[0])
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("import: %w", err)
	}
	defer f.Close()

	turns, err := storage.Import(f)
	if err != nil {
		return Result{}, fmt.Errorf("import %s: %w", path, err)
	}
	s.Store.Import(turns)
	return Result{Action: ActionReload, Message: fmt.Sprintf("%d pesan diimpor.", len(turns))}, nil
}

func runClear(ctx context.Context, env *Env, args []string) (Result, error) {
	s, err := env.session()
	if err != nil {
		return Result{}, err
	}
	s.Store.Clear()
	return Result{Action: ActionClear, Message: "Riwayat dihapus."}, nil
}

func runLogout(ctx context.Context, env *Env, args []string) (Result, error) {
	if _, err := env.session(); err != nil {
		return Result{}, err
	}
	return Result{Action: ActionLogout, Message: "Sampai jumpa."}, nil
}

// ExpandPath resolves a leading ~ to the home directory.
func ExpandPath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
