// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/iea-chat/internal/attach"
	"github.com/jeranaias/iea-chat/internal/audit"
	core "github.com/jeranaias/iea-chat/internal/chat"
	"github.com/jeranaias/iea-chat/internal/commands"
	"github.com/jeranaias/iea-chat/internal/config"
	"github.com/jeranaias/iea-chat/internal/model"
	"github.com/jeranaias/iea-chat/internal/reveal"
	"github.com/jeranaias/iea-chat/internal/router"
	"github.com/jeranaias/iea-chat/internal/session"
	"github.com/jeranaias/iea-chat/internal/storage"
)

// =============================================================================
// LINE INPUT
// =============================================================================

// lineReader reads one line per prompt. io.EOF and liner.ErrPromptAborted
// end the chat.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

// linerReader is a lineReader with line editing, history and tab
// completion of slash commands and file paths.
type linerReader struct {
	*liner.State
	historyFile string
}

func newLinerReader(reg *commands.Registry) *linerReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetCompleter(reg.Complete)

	r := &linerReader{State: line}
	if dir, err := config.Dir(); err == nil {
		r.historyFile = filepath.Join(dir, "prompt_history")
		if f, err := os.Open(r.historyFile); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}
	return r
}

// Close saves the prompt history with owner-only permissions and restores
// the terminal.
func (r *linerReader) Close() error {
	if r.historyFile != "" {
		if err := os.MkdirAll(filepath.Dir(r.historyFile), 0o700); err == nil {
			if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
				r.WriteHistory(f)
				f.Close()
			}
		}
	}
	return r.State.Close()
}

func endOfInput(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted)
}

// =============================================================================
// LINE CHAT
// =============================================================================

// lineChat is the chat without the full-screen UI: a login prompt, then a
// prompt per message with replies revealed in place.
type lineChat struct {
	app    *App
	in     lineReader
	out    io.Writer
	parser *commands.Parser
	width  int

	sess   *session.Session
	staged *attach.Upload
}

func newLineChat(app *App, in lineReader, out io.Writer) *lineChat {
	return &lineChat{
		app:    app,
		in:     in,
		out:    out,
		parser: commands.NewParser(app.Commands),
		width:  TerminalWidth(),
	}
}

// Run loops until end of input or /quit. The session is ended on the way
// out.
func (c *lineChat) Run(ctx context.Context) error {
	defer c.end(context.WithoutCancel(ctx))

	theme := c.app.Theme
	fmt.Fprintln(c.out, theme.RenderHeader(c.width))
	fmt.Fprintln(c.out, theme.LoginTitle.Render(theme.Preset.LoginTitle))
	fmt.Fprintln(c.out, theme.LoginHint.Render(theme.Preset.LoginHint))

	for {
		if c.sess == nil {
			if err := c.login(ctx); err != nil {
				if endOfInput(err) {
					return nil
				}
				return err
			}
			continue
		}

		line, err := c.in.Prompt(c.sess.Identity + " › ")
		if err != nil {
			if endOfInput(err) {
				fmt.Fprintln(c.out)
				return nil
			}
			return err
		}

		text := strings.TrimSpace(line)
		if text == "" && c.staged == nil {
			continue
		}
		c.in.AppendHistory(text)

		if parsed := c.parser.Parse(text); parsed.IsCommand {
			if quit := c.command(ctx, parsed); quit {
				return nil
			}
			continue
		}
		c.submit(ctx, text)
	}
}

// login asks for a name until the membership list admits one. Returns only
// read errors.
func (c *lineChat) login(ctx context.Context) error {
	theme := c.app.Theme
	name, err := c.in.Prompt(theme.Preset.LoginPrompt + ": ")
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		fmt.Fprintln(c.out, theme.RenderError("Nama wajib diisi."))
		return nil
	}

	fmt.Fprintln(c.out, theme.Muted.Render("Memeriksa keanggotaan..."))
	member, err := core.Login(ctx, c.app.Members, name)
	if err != nil {
		c.app.Logger.Warn("login refused", "name", name, "err", err)
		if core.IsValidation(err) {
			fmt.Fprintln(c.out, theme.RenderError("Nama wajib diisi."))
		} else {
			fmt.Fprintln(c.out, theme.RenderError(core.DeniedNotice))
		}
		return nil
	}

	identity := member.Name
	if identity == "" {
		identity = name
	}
	c.sess = c.app.NewSession(identity)
	c.app.Engine.RecordSession(ctx, c.sess, audit.KindLogin)
	c.app.Logger.Info("login", "identity", identity, "session", c.sess.ID, "turns", c.sess.Store.Len())

	if turns := c.sess.Store.Turns(); len(turns) > 0 {
		fmt.Fprintln(c.out, storage.FormatTurnList(turns, c.width))
	}
	if c.app.Engine.Available() {
		fmt.Fprintln(c.out, theme.RenderSuccess(fmt.Sprintf("Selamat datang, %s. Ketik /help untuk daftar perintah.", identity)))
	} else {
		fmt.Fprintln(c.out, theme.RenderWarning(core.SetupNotice))
	}
	return nil
}

// submit sends text with the staged attachment. Ctrl+C does not stop the
// model call; it skips the rest of the reveal.
func (c *lineChat) submit(ctx context.Context, text string) {
	theme := c.app.Theme
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	fmt.Fprintln(c.out, theme.Muted.Render("Menunggu jawaban..."))
	rep, err := c.app.Engine.Submit(ctx, c.sess, core.Submission{Text: text, Upload: c.staged})

	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		if ve.Field == "attachment" {
			c.staged = nil
			fmt.Fprintln(c.out, theme.RenderWarning("Lampiran ditolak: "+ve.Message))
		} else {
			fmt.Fprintln(c.out, theme.RenderWarning(ve.Message))
		}
		return
	case errors.Is(err, core.ErrRateLimited):
		fmt.Fprintln(c.out, theme.RenderWarning(err.Error()))
		return
	case errors.Is(err, core.ErrDiscarded):
		return
	}

	c.staged = nil
	if rep.Turn.ID != "" {
		c.play(ctx, rep.Turn)
	}

	res := rep.Result
	switch {
	case err == nil && res.Degraded:
		fmt.Fprintln(c.out, theme.RenderInfo("Dijawab oleh model cadangan "+res.Model+"."))
	case errors.Is(err, router.ErrServiceUnavailable):
		// The setup notice was the reply.
	case err != nil:
		c.app.Logger.Warn("submission failed", "err", err)
	}
}

// play reveals an assistant turn chunk by chunk. When ctx ends the rest is
// printed at once.
func (c *lineChat) play(ctx context.Context, t model.Turn) {
	theme := c.app.Theme
	fmt.Fprintln(c.out, theme.AssistantLabel.Render(theme.Preset.Title))

	if t.Notice {
		fmt.Fprintln(c.out, theme.RenderWarning(t.Text))
		return
	}

	text, fallback := strings.CutSuffix(t.Text, router.FallbackMarker)
	var shown int
	err := c.app.Emitter.Play(ctx, text, func(f reveal.Frame) {
		fmt.Fprint(c.out, f.Chunk)
		shown = len(f.Text)
	})
	if err != nil {
		fmt.Fprint(c.out, text[shown:])
	}
	fmt.Fprintln(c.out)
	if fallback {
		fmt.Fprintln(c.out, theme.FallbackNote.Render(strings.TrimSpace(router.FallbackMarker)))
	}
}

// command runs a slash command and reports whether the chat should end.
func (c *lineChat) command(ctx context.Context, parsed commands.ParseResult) bool {
	theme := c.app.Theme
	env := &commands.Env{
		Session:   c.sess,
		MaxUpload: c.app.Config.Chat.MaxUploadBytes,
		Title:     theme.Preset.Title,
	}
	res, err := c.app.Commands.Execute(ctx, env, parsed)
	if err != nil {
		c.app.Logger.Debug("command failed", "command", parsed.CommandName, "err", err)
		fmt.Fprintln(c.out, theme.RenderError(commands.ErrorMessage(err)))
		return false
	}

	switch res.Action {
	case commands.ActionAttach:
		c.staged = res.Upload
	case commands.ActionClear:
		c.staged = nil
	case commands.ActionLogout:
		c.end(ctx)
	case commands.ActionQuit:
		return true
	}

	if res.Message == "" {
		return false
	}
	if parsed.Command.Name == "/help" {
		fmt.Fprintln(c.out, res.Message)
	} else {
		fmt.Fprintln(c.out, theme.RenderSuccess(res.Message))
	}
	return false
}

// end logs the session out. Safe to call without a session.
func (c *lineChat) end(ctx context.Context) {
	if c.sess == nil {
		return
	}
	c.app.Engine.RecordSession(ctx, c.sess, audit.KindLogout)
	c.sess.End()
	c.app.Logger.Info("logout", "identity", c.sess.Identity, "session", c.sess.ID)
	c.sess = nil
	c.staged = nil
}
