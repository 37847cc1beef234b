// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud talks to OpenAI-compatible chat completion APIs. The default
// endpoint is Groq, which hosts the Llama models used for AI IEA.
//
// # Key Types
//
//   - Client: chat completions over the official openai-go SDK
//   - ChatMessage: role/content pair
//   - APIError: non-2xx response that maps to no sentinel error
//
// The SDK's own retry loop is disabled: retry policy belongs to the caller
// (one fallback model, no retries).
//
// # Usage
//
//	c := cloud.NewClient(cloud.Config{APIKey: os.Getenv("GROQ_API_KEY")})
//	text, err := c.Chat(ctx, cloud.PrimaryModel, []cloud.ChatMessage{
//	    {Role: "system", Content: "..."},
//	    {Role: "user", Content: "Halo"},
//	}, 0.7)
//
// API keys are never logged; use KeyFingerprint for diagnostics.
package cloud
