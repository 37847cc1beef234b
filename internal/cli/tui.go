// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/iea-chat/internal/storage"
	chatui "github.com/jeranaias/iea-chat/internal/ui/chat"
)

// watchDebounce coalesces the bursts of events an atomic rename produces.
const watchDebounce = 250 * time.Millisecond

// runTUI runs the full-screen chat until the user quits.
func runTUI(ctx context.Context, app *App) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := chatui.New(chatui.Deps{
		Engine:     app.Engine,
		Members:    app.Members,
		NewSession: app.NewSession,
		Commands:   app.Commands,
		Emitter:    app.Emitter,
		Theme:      app.Theme,
		Logger:     app.Logger,
		Markdown:   app.Config.UI.Markdown,
		MaxUpload:  app.Config.Chat.MaxUploadBytes,
	})

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if app.Config.UI.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	p := tea.NewProgram(m, opts...)

	if app.Config.Storage.Watch {
		w, err := storage.NewWatcher(app.History, watchDebounce, func(path string) {
			p.Send(chatui.HistoryChangedMsg{Path: path})
		})
		if err != nil {
			app.Logger.Warn("history watcher disabled", "path", app.History.Path(), "err", err)
		} else {
			w.Start(ctx)
			defer w.Close()
		}
	}

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
