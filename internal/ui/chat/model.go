// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/log"

	"github.com/jeranaias/iea-chat/internal/attach"
	core "github.com/jeranaias/iea-chat/internal/chat"
	"github.com/jeranaias/iea-chat/internal/commands"
	"github.com/jeranaias/iea-chat/internal/ratelimit"
	"github.com/jeranaias/iea-chat/internal/reveal"
	"github.com/jeranaias/iea-chat/internal/session"
	"github.com/jeranaias/iea-chat/internal/ui/styles"
)

// =============================================================================
// CHAT STATE
// =============================================================================

// State is the current view state.
type State int

const (
	StateLogin     State = iota // Name prompt
	StateChecking               // Membership lookup in flight
	StateReady                  // Chat view, accepting input
	StateWaiting                // Model call in flight
	StateRevealing              // Reply playback
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateLogin:
		return "login"
	case StateChecking:
		return "checking"
	case StateReady:
		return "ready"
	case StateWaiting:
		return "waiting"
	case StateRevealing:
		return "revealing"
	default:
		return "unknown"
	}
}

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Deps are the collaborators of the program. Engine and Members are
// required; the rest have defaults.
type Deps struct {
	Engine  *core.Engine
	Members core.MemberLookup

	// NewSession opens the session of a confirmed member with its saved
	// history loaded. Nil keeps history in memory.
	NewSession func(identity string) *session.Session

	Commands *commands.Registry
	Emitter  *reveal.Emitter
	Theme    *styles.Theme
	Logger   *log.Logger

	// Markdown renders assistant turns with glamour.
	Markdown  bool
	MaxUpload int64
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model of the whole program.
type Model struct {
	state  State
	deps   Deps
	theme  *styles.Theme
	keys   KeyMap
	logger *log.Logger
	parser *commands.Parser

	width  int
	height int

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model

	// Markdown renderer, rebuilt when the width changes.
	renderer      *glamour.TermRenderer
	rendererWidth int
	// Rendered turns keyed by turn ID, valid for rendererWidth.
	rendered map[string]string

	session *session.Session
	staged  *attach.Upload
	pending string         // text of the submission in flight
	sent    *attach.Upload // attachment of the submission in flight
	seq     uint64         // bumped per submission and on logout

	playback *reveal.Playback
	playID   uint64
	revealID string // turn being revealed

	loginErr   string
	status     string
	statusKind statusKind
}

// New builds the model in the login state.
func New(deps Deps) Model {
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	if deps.Theme == nil {
		deps.Theme = styles.NewTheme(styles.DefaultPreset)
	}
	if deps.Commands == nil {
		deps.Commands = commands.NewRegistry()
	}
	if deps.Emitter == nil {
		deps.Emitter = reveal.New(reveal.DefaultChunkSize, reveal.DefaultDelay)
	}
	if deps.NewSession == nil {
		logger := deps.Logger
		deps.NewSession = func(identity string) *session.Session {
			return session.New(identity, session.NewStore(nil, logger), ratelimit.DefaultInterval)
		}
	}

	theme := deps.Theme

	input := textinput.New()
	input.Prompt = "› "
	input.PromptStyle = theme.InputPrompt
	input.Placeholder = theme.Preset.LoginPrompt
	input.CharLimit = 4000
	input.Focus()

	sp := spinner.New(
		spinner.WithSpinner(theme.Preset.Spinner.Bubble()),
		spinner.WithStyle(theme.Spinner),
	)

	return Model{
		state:    StateLogin,
		deps:     deps,
		theme:    theme,
		keys:     DefaultKeyMap(),
		logger:   deps.Logger,
		parser:   commands.NewParser(deps.Commands),
		width:    80,
		height:   24,
		input:    input,
		viewport: viewport.New(80, 16),
		spinner:  sp,
		help:     help.New(),
		rendered: make(map[string]string),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// State returns the current state.
func (m Model) State() State {
	return m.state
}

// Session returns the active session, or nil before login.
func (m Model) Session() *session.Session {
	return m.session
}

// Staged returns the attachment waiting for the next submission.
func (m Model) Staged() *attach.Upload {
	return m.staged
}

// Status returns the status line text.
func (m Model) Status() string {
	return m.status
}

func (m Model) busy() bool {
	return m.state == StateChecking || m.state == StateWaiting
}

func (m *Model) setStatus(kind statusKind, text string) {
	m.statusKind = kind
	m.status = text
}
