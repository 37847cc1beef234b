// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama is a small HTTP client for a local Ollama server, used as
// the offline model backend.
//
// Only non-streaming chat is used: replies are revealed by the terminal after
// they are complete, so token streaming buys nothing here.
//
// # Usage
//
//	c := ollama.NewClient(ollama.Config{})
//	if err := c.CheckRunning(ctx); err != nil { ... }
//	models, err := c.ListModels(ctx)
//	if !ollama.HasModel(models, "llama3.1:8b") { ... }
//	resp, err := c.Chat(ctx, "llama3.1:8b", msgs, &ollama.Options{Temperature: 0.7})
package ollama
