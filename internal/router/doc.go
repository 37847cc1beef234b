// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package router sends a chat request to the primary model and, when that
// fails, to exactly one fallback model.
//
// # Key Types
//
//   - Completer: the chat completion capability a backend provides
//   - Policy: primary and fallback targets plus timeout and temperature
//   - Result: success or failure value; Invoke never returns an error or panics
//   - ProviderError: both attempts failed, carries both causes
//
// # State Machine
//
//	Idle -> CallingPrimary -> Success
//	                       -> CallingFallback -> Success
//	                                          -> Failed
//
// There are no retries beyond the single fallback and no backoff. A policy
// with no primary client fails with ReasonServiceUnavailable without
// calling anything.
//
// # Usage
//
//	p := &router.Policy{
//	    Primary:  router.Target{Model: "llama-3.3-70b-versatile", Client: groq},
//	    Fallback: router.Target{Model: "llama-3.1-8b-instant", Client: groq},
//	    Timeout:  30 * time.Second,
//	}
//	res := p.Invoke(ctx, win.Messages())
//	if !res.OK() { ... res.Reason, res.Err ... }
package router
