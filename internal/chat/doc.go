// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat runs one submission end to end: validation, the rate gate,
// attachment ingestion, the context window, the model policy and the
// resulting assistant turn.
//
// # Error Taxonomy
//
//   - ValidationError: rejected before any side effect.
//   - RateLimitedError (errors.Is ErrRateLimited): rejected before any side effect.
//   - router.ProviderError: both models failed; a notice turn was stored.
//   - router.ErrServiceUnavailable: no backend; a setup notice turn was stored.
//   - ErrDiscarded: the conversation was cleared while the call was in flight.
//   - ErrInternal: a panic was recovered; a notice turn was stored.
//
// A model call, once started, runs to completion under the policy timeout
// even if the caller's context is cancelled; a stale reply is dropped by the
// store instead.
//
// The surfaces (TUI and line mode) render the returned turn and use the
// error only for styling.
package chat
