// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the iea command line on cobra.
//
// Without a subcommand iea opens the full-screen chat when stdin and stdout
// are terminals and line mode otherwise:
//
//	iea                          chat
//	iea chat                     line mode
//	iea history show             print the saved conversation
//	iea history export FILE      write it as JSON, or Markdown for .md
//	iea history import FILE      add the turns of a JSON export
//	iea history clear --yes      delete the saved conversation
//	iea member check NAME        look a name up in the membership list
//	iea audit tail [-n 20]       recent logins and model calls
//	iea config init|show|get|set|keys|path
//
// The full-screen chat logs to ~/.iea/iea.log; everything else logs to
// stderr.
package cli
