// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/iea-chat/internal/model"
	"github.com/jeranaias/iea-chat/internal/router"
	"github.com/jeranaias/iea-chat/internal/util"
)

const (
	minWidth  = 30
	minHeight = 10
)

// =============================================================================
// LAYOUT
// =============================================================================

func (m *Model) resize(width, height int) {
	if width < minWidth {
		width = minWidth
	}
	if height < minHeight {
		height = minHeight
	}
	if width != m.width {
		m.rendered = make(map[string]string)
	}
	m.width, m.height = width, height
	m.help.Width = width
	m.input.Width = width - 6
	m.layout()
	m.refresh(true)
}

// layout sizes the viewport to what the other parts leave over.
func (m *Model) layout() {
	used := lipgloss.Height(m.theme.RenderHeader(m.width)) +
		3 + // input box
		1 + // status bar
		lipgloss.Height(m.help.View(m.keys))
	if m.staged != nil {
		used++
	}
	h := m.height - used
	if h < 3 {
		h = 3
	}
	m.viewport.Width = m.width
	m.viewport.Height = h
}

// refresh rebuilds the transcript. toBottom follows the newest turn.
func (m *Model) refresh(toBottom bool) {
	m.layout()
	m.viewport.SetContent(m.renderTranscript())
	if toBottom {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m Model) View() string {
	if m.state == StateLogin || m.state == StateChecking {
		return m.viewLogin()
	}
	return m.viewChat()
}

func (m Model) viewLogin() string {
	header := m.theme.RenderHeader(m.width)

	var body strings.Builder
	body.WriteString(m.theme.LoginTitle.Render(m.theme.Preset.LoginTitle))
	body.WriteString("\n")
	body.WriteString(m.theme.LoginHint.Render(m.theme.Preset.LoginHint))
	body.WriteString("\n\n")
	body.WriteString(m.input.View())
	body.WriteString("\n\n")
	switch {
	case m.state == StateChecking:
		body.WriteString(m.spinner.View() + " " + m.theme.Muted.Render("Memeriksa keanggotaan..."))
	case m.loginErr != "":
		body.WriteString(m.theme.RenderError(m.loginErr))
	default:
		body.WriteString(m.theme.Muted.Render("Enter untuk masuk · Ctrl+C untuk keluar"))
	}

	boxWidth := m.width - 8
	if boxWidth > 64 {
		boxWidth = 64
	}
	box := m.theme.LoginBox.Width(boxWidth).Render(body.String())

	rest := m.height - lipgloss.Height(header)
	if rest < lipgloss.Height(box) {
		return header + "\n" + box
	}
	return header + "\n" + lipgloss.Place(m.width, rest, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) viewChat() string {
	parts := []string{
		m.theme.RenderHeader(m.width),
		m.viewport.View(),
	}
	if m.staged != nil {
		tag := fmt.Sprintf("[lampiran: %s, %d bytes · Esc untuk batal]", m.staged.Filename, len(m.staged.Data))
		parts = append(parts, m.theme.AttachmentTag.Render(util.FitWidth(tag, m.width)))
	}
	parts = append(parts,
		m.theme.InputBox.Width(m.width).Render(m.input.View()),
		m.renderStatusBar(),
		m.help.View(m.keys),
	)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderStatusBar() string {
	var left string
	switch {
	case m.state == StateWaiting:
		left = m.spinner.View() + " Menunggu jawaban..."
	case m.status != "":
		left = m.renderStatus()
	}

	var right string
	if m.session != nil {
		right = m.theme.StatusKey.Render(m.session.Identity) + " " +
			m.theme.StatusValue.Render(m.deps.Engine.Backend().Describe())
	}

	inner := m.width - m.theme.StatusBar.GetHorizontalFrameSize()
	rightW := lipgloss.Width(right)
	if rightW > inner/2 {
		right = m.theme.StatusValue.Render(util.FitWidth(m.deps.Engine.Backend().Describe(), inner/2))
		rightW = lipgloss.Width(right)
	}
	leftW := inner - rightW - 1
	if lipgloss.Width(left) > leftW {
		left = util.FitWidth(m.status, leftW)
	}
	gap := inner - lipgloss.Width(left) - rightW
	if gap < 1 {
		gap = 1
	}
	return m.theme.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) renderStatus() string {
	switch m.statusKind {
	case statusSuccess:
		return m.theme.RenderSuccess(m.status)
	case statusWarning:
		return m.theme.RenderWarning(m.status)
	case statusError:
		return m.theme.RenderError(m.status)
	default:
		return m.theme.RenderInfo(m.status)
	}
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

func (m *Model) renderTranscript() string {
	if m.session == nil {
		return ""
	}
	turns := m.session.Store.Turns()
	if len(turns) == 0 && m.pending == "" {
		return m.theme.Muted.Render("Belum ada percakapan. Tulis pesan untuk mulai.")
	}

	blocks := make([]string, 0, len(turns)+1)
	for _, t := range turns {
		if t.ID == m.revealID && m.playback != nil {
			blocks = append(blocks, m.renderRevealing(t))
			continue
		}
		if cached, ok := m.rendered[t.ID]; ok {
			blocks = append(blocks, cached)
			continue
		}
		out := m.renderTurn(t)
		m.rendered[t.ID] = out
		blocks = append(blocks, out)
	}
	if m.pending != "" {
		blocks = append(blocks, m.renderPending())
	}
	return strings.Join(blocks, "\n\n")
}

func (m *Model) bubbleWidth() int {
	w := m.viewport.Width - 6
	if w < 20 {
		w = 20
	}
	return w
}

func (m *Model) renderTurn(t model.Turn) string {
	if t.Role == model.RoleUser {
		return m.renderUser(t.Text, t.Attachment, t.Timestamp.Local().Format("15:04"))
	}

	head := m.theme.AssistantLabel.Render(m.theme.Preset.Title) + "  " +
		m.theme.Timestamp.Render(t.Timestamp.Local().Format("15:04"))

	if t.Notice {
		return head + "\n" + m.theme.NoticeBubble.Width(m.bubbleWidth()).Render(t.Text)
	}

	text, fallback := strings.CutSuffix(t.Text, router.FallbackMarker)
	body := m.renderMarkdown(text, m.bubbleWidth()-m.theme.AssistantBubble.GetHorizontalFrameSize())
	if fallback {
		body += "\n" + m.theme.FallbackNote.Render(strings.TrimSpace(router.FallbackMarker))
	}
	return head + "\n" + m.theme.AssistantBubble.Render(body)
}

func (m *Model) renderUser(text string, a *model.Attachment, when string) string {
	head := m.theme.UserLabel.Render(m.session.Identity) + "  " + m.theme.Timestamp.Render(when)
	body := text
	if a != nil {
		tag := m.theme.AttachmentTag.Render(fmt.Sprintf("[%s: %s]", a.Kind, a.Filename))
		if body == "" {
			body = tag
		} else {
			body = tag + "\n" + body
		}
	}
	style := m.theme.UserBubble.Width(m.bubbleWidth())
	return lipgloss.NewStyle().MarginLeft(style.GetMarginLeft()).Render(head) + "\n" + style.Render(body)
}

func (m *Model) renderPending() string {
	var a *model.Attachment
	if m.sent != nil {
		a = &model.Attachment{Kind: model.AttachmentFile, Filename: m.sent.Filename}
	}
	return m.renderUser(m.pending, a, "...")
}

// renderRevealing shows the part of the reply revealed so far, without
// Markdown so partial syntax doesn't jump around.
func (m *Model) renderRevealing(t model.Turn) string {
	head := m.theme.AssistantLabel.Render(m.theme.Preset.Title)
	style := m.theme.AssistantBubble
	if t.Notice {
		style = m.theme.NoticeBubble
	}
	return head + "\n" + style.Width(m.bubbleWidth()).Render(m.playback.Text()+"▌")
}

// renderMarkdown renders content with glamour. Returns the content as is
// when Markdown is off or rendering fails.
func (m *Model) renderMarkdown(content string, width int) string {
	if !m.deps.Markdown || content == "" {
		return lipgloss.NewStyle().Width(width).Render(content)
	}
	if m.renderer == nil || m.rendererWidth != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.theme.GlamourStyle()),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			m.logger.Debug("markdown renderer unavailable", "err", err)
			return lipgloss.NewStyle().Width(width).Render(content)
		}
		m.renderer, m.rendererWidth = r, width
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return lipgloss.NewStyle().Width(width).Render(content)
	}
	return strings.Trim(out, "\n")
}
