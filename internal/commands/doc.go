// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash commands shared by the TUI and the
// line-mode REPL.
//
// A surface parses the input line, runs the matched command against an Env
// and then acts on the returned Result: it shows Message, stages Upload for
// the next submission, or ends the session for ActionLogout and ActionQuit.
// Commands never talk to the model.
//
// # Built-in Commands
//
//   - /attach <path>: stage a file for the next message
//   - /export <path>: write the history as JSON, or Markdown for .md paths
//   - /import <path>: prepend turns from an exported file
//   - /clear: erase the history
//   - /logout: end the session
//   - /help: list commands
//   - /quit: leave the program
//
// # Usage
//
//	reg := commands.NewRegistry()
//	res := commands.NewParser(reg).Parse(line)
//	if res.IsCommand {
//	    out, err := reg.Execute(ctx, env, res)
//	    ...
//	}
package commands
