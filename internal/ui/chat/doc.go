// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat is the Bubble Tea program of the iea client: a login view
followed by the chat view.

# States

The model moves through a small state machine:

	StateLogin     name prompt
	StateChecking  membership lookup in flight
	StateReady     chat view, accepting input
	StateWaiting   model call in flight; input is held
	StateRevealing reply is being played back

Login asks chat.Login; any failure shows the same access-denied copy. A
confirmed member gets a fresh session.Session from Deps.NewSession with
the saved history loaded.

# Submissions

Enter either runs a slash command (see package commands) or sends the text
and any staged attachment to chat.Engine.Submit in a tea.Cmd. Rejected
submissions (empty input, rate limit, oversized attachment) put the text
back into the input line. A reply is revealed chunk by chunk with
reveal.Playback; the stored turn already holds the full text, so skipping
the reveal with Esc loses nothing.

# Rendering (view.go)

Assistant turns go through glamour when Markdown rendering is enabled.
Colors, spinner and titles come from the styles.Theme preset.
*/
package chat
