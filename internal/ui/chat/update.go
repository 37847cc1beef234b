// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/iea-chat/internal/attach"
	"github.com/jeranaias/iea-chat/internal/audit"
	core "github.com/jeranaias/iea-chat/internal/chat"
	"github.com/jeranaias/iea-chat/internal/commands"
	"github.com/jeranaias/iea-chat/internal/model"
	"github.com/jeranaias/iea-chat/internal/reveal"
	"github.com/jeranaias/iea-chat/internal/router"
)

// =============================================================================
// COMMAND CREATORS
// =============================================================================

// loginCmd runs the membership check off the update loop.
func loginCmd(members core.MemberLookup, name string) tea.Cmd {
	return func() tea.Msg {
		m, err := core.Login(context.Background(), members, name)
		return LoginResultMsg{Name: name, Member: m, Err: err}
	}
}

// submitCmd runs one submission off the update loop.
func (m *Model) submitCmd(text string) tea.Cmd {
	m.seq++
	seq := m.seq

	engine, s := m.deps.Engine, m.session
	sub := core.Submission{Text: text, Upload: m.staged}
	m.sent = sub.Upload
	return func() tea.Msg {
		rep, err := engine.Submit(context.Background(), s, sub)
		return ReplyMsg{Seq: seq, Text: text, Upload: sub.Upload, Reply: rep, Err: err}
	}
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case LoginResultMsg:
		return m.handleLogin(msg)

	case ReplyMsg:
		return m.handleReply(msg)

	case reveal.TickMsg:
		if m.playback == nil || msg.ID != m.playback.ID {
			return m, nil
		}
		return m, m.advance()

	case HistoryChangedMsg:
		return m.handleHistoryChanged(msg)

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.endSession()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
		return m, nil
	}

	switch m.state {
	case StateChecking:
		return m, nil
	case StateLogin:
		if key.Matches(msg, m.keys.Submit) {
			return m.submitLogin()
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	case key.Matches(msg, m.keys.Skip):
		if m.state == StateRevealing {
			m.finishReveal()
		} else if m.staged != nil {
			m.setStatus(statusInfo, "Lampiran dibatalkan: "+m.staged.Filename)
			m.staged = nil
		}
		return m, nil
	case key.Matches(msg, m.keys.Complete):
		m.complete()
		return m, nil
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		return m, nil
	case key.Matches(msg, m.keys.Home):
		m.viewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.End):
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// LOGIN
// =============================================================================

func (m Model) submitLogin() (tea.Model, tea.Cmd) {
	name := strings.TrimSpace(m.input.Value())
	if name == "" {
		m.loginErr = "Nama wajib diisi."
		return m, nil
	}
	m.loginErr = ""
	m.state = StateChecking
	return m, tea.Batch(m.spinner.Tick, loginCmd(m.deps.Members, name))
}

func (m Model) handleLogin(msg LoginResultMsg) (tea.Model, tea.Cmd) {
	if m.state != StateChecking {
		return m, nil
	}
	if msg.Err != nil {
		m.state = StateLogin
		m.logger.Warn("login refused", "name", msg.Name, "err", msg.Err)
		if core.IsValidation(msg.Err) {
			m.loginErr = "Nama wajib diisi."
		} else {
			m.loginErr = core.DeniedNotice
		}
		return m, nil
	}

	identity := msg.Member.Name
	if identity == "" {
		identity = msg.Name
	}
	m.session = m.deps.NewSession(identity)
	m.deps.Engine.RecordSession(context.Background(), m.session, audit.KindLogin)
	m.logger.Info("login", "identity", identity, "session", m.session.ID, "turns", m.session.Store.Len())

	m.state = StateReady
	m.loginErr = ""
	m.input.Reset()
	m.input.Placeholder = m.theme.Preset.InputPlaceholder
	if m.deps.Engine.Available() {
		m.setStatus(statusSuccess, fmt.Sprintf("Selamat datang, %s. Ketik /help untuk daftar perintah.", identity))
	} else {
		m.setStatus(statusWarning, core.SetupNotice)
	}
	m.refresh(true)
	return m, nil
}

// =============================================================================
// SUBMISSION
// =============================================================================

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	parsed := m.parser.Parse(text)
	if parsed.IsCommand {
		m.input.Reset()
		return m.runCommand(parsed)
	}
	if m.state == StateWaiting {
		m.setStatus(statusInfo, "Tunggu jawaban sebelumnya selesai.")
		return m, nil
	}
	if m.state == StateRevealing {
		m.finishReveal()
	}

	cmd := m.submitCmd(text)
	m.state = StateWaiting
	m.pending = strings.TrimSpace(text)
	m.input.Reset()
	m.setStatus(statusInfo, "")
	m.refresh(true)
	return m, tea.Batch(m.spinner.Tick, cmd)
}

func (m Model) handleReply(msg ReplyMsg) (tea.Model, tea.Cmd) {
	if msg.Seq != m.seq || m.session == nil {
		return m, nil
	}
	m.state = StateReady
	m.pending = ""
	m.sent = nil

	err := msg.Err
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		m.restoreInput(msg.Text)
		if ve.Field == "attachment" {
			m.unstage(msg.Upload)
			m.setStatus(statusWarning, "Lampiran ditolak: "+ve.Message)
		} else {
			m.setStatus(statusWarning, ve.Message)
		}
		m.refresh(false)
		return m, nil
	case errors.Is(err, core.ErrRateLimited):
		m.restoreInput(msg.Text)
		m.setStatus(statusWarning, err.Error())
		m.refresh(false)
		return m, nil
	case errors.Is(err, core.ErrDiscarded):
		m.refresh(true)
		return m, nil
	}

	m.unstage(msg.Upload)
	res := msg.Reply.Result
	switch {
	case err == nil && res.Degraded:
		m.setStatus(statusInfo, "Dijawab oleh model cadangan "+res.Model+".")
	case errors.Is(err, router.ErrServiceUnavailable):
		m.setStatus(statusWarning, "Model AI belum dikonfigurasi.")
	case err != nil:
		m.logger.Warn("submission failed", "err", err)
		m.setStatus(statusError, "Gagal terhubung ke model AI.")
	}

	if msg.Reply.Turn.ID == "" {
		m.refresh(true)
		return m, nil
	}
	return m, m.startReveal(msg.Reply.Turn)
}

// unstage drops the staged attachment if it is the one that was sent. A file
// attached while the reply was pending stays staged.
func (m *Model) unstage(sent *attach.Upload) {
	if sent != nil && m.staged == sent {
		m.staged = nil
	}
}

func (m *Model) restoreInput(text string) {
	if m.input.Value() == "" {
		m.input.SetValue(text)
		m.input.CursorEnd()
	}
}

// =============================================================================
// REVEAL
// =============================================================================

func (m *Model) startReveal(turn model.Turn) tea.Cmd {
	m.playID++
	m.playback = m.deps.Emitter.Start(m.playID, turn.Text)
	m.revealID = turn.ID
	m.state = StateRevealing
	return m.advance()
}

// advance reveals one frame and schedules the next.
func (m *Model) advance() tea.Cmd {
	if _, ok := m.playback.Next(); !ok || m.playback.Done() {
		m.finishReveal()
		return nil
	}
	m.refresh(true)
	return m.playback.Tick()
}

// finishReveal shows the whole reply. The stored turn is already complete.
func (m *Model) finishReveal() {
	m.playback = nil
	m.revealID = ""
	if m.state == StateRevealing {
		m.state = StateReady
	}
	m.refresh(true)
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

func (m Model) runCommand(parsed commands.ParseResult) (tea.Model, tea.Cmd) {
	env := &commands.Env{
		Session:   m.session,
		MaxUpload: m.deps.MaxUpload,
		Title:     m.theme.Preset.Title,
	}
	res, err := m.deps.Commands.Execute(context.Background(), env, parsed)
	if err != nil {
		m.logger.Debug("command failed", "command", parsed.CommandName, "err", err)
		m.setStatus(statusError, commands.ErrorMessage(err))
		return m, nil
	}

	switch res.Action {
	case commands.ActionAttach:
		m.staged = res.Upload
	case commands.ActionClear:
		m.staged = nil
		m.pending = ""
		m.sent = nil
		m.finishReveal()
	case commands.ActionLogout:
		m.logout()
		m.setStatus(statusInfo, res.Message)
		return m, nil
	case commands.ActionQuit:
		m.endSession()
		return m, tea.Quit
	}

	if res.Message != "" {
		m.setStatus(statusSuccess, res.Message)
	}
	m.refresh(true)
	return m, nil
}

// complete fills the input from the command registry.
func (m *Model) complete() {
	candidates := m.deps.Commands.Complete(m.input.Value())
	switch len(candidates) {
	case 0:
		return
	case 1:
		m.input.SetValue(candidates[0])
	default:
		m.input.SetValue(commonPrefix(candidates))
		m.setStatus(statusInfo, strings.Join(candidates, "  "))
	}
	m.input.CursorEnd()
}

// commonPrefix trims whole runes so the result stays valid UTF-8.
func commonPrefix(items []string) string {
	prefix := items[0]
	for _, s := range items[1:] {
		for !strings.HasPrefix(s, prefix) {
			_, size := utf8.DecodeLastRuneInString(prefix)
			prefix = prefix[:len(prefix)-size]
		}
	}
	return prefix
}

// =============================================================================
// SESSION LIFECYCLE
// =============================================================================

// endSession drops the session. An in-flight reply is discarded by the
// store; the history file keeps everything already saved.
func (m *Model) endSession() {
	m.seq++
	if m.session != nil {
		m.deps.Engine.RecordSession(context.Background(), m.session, audit.KindLogout)
		m.session.End()
		m.logger.Info("logout", "identity", m.session.Identity, "session", m.session.ID)
		m.session = nil
	}
	m.staged = nil
	m.pending = ""
	m.sent = nil
	m.playback = nil
	m.revealID = ""
	m.rendered = make(map[string]string)
}

func (m *Model) logout() {
	m.endSession()
	m.state = StateLogin
	m.input.Reset()
	m.input.Placeholder = m.theme.Preset.LoginPrompt
	m.viewport.SetContent("")
}

func (m Model) handleHistoryChanged(msg HistoryChangedMsg) (tea.Model, tea.Cmd) {
	if m.session == nil {
		return m, nil
	}
	if m.busy() || m.state == StateRevealing {
		m.logger.Debug("history changed during a call, not reloading", "path", msg.Path)
		return m, nil
	}
	m.session.Store.Load()
	m.rendered = make(map[string]string)
	m.setStatus(statusInfo, "Riwayat diperbarui dari berkas.")
	m.refresh(true)
	return m, nil
}
