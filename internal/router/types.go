// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jeranaias/iea-chat/internal/model"
)

// FallbackMarker is appended once to replies produced by the fallback model.
const FallbackMarker = "\n\n(note: response from fallback model)"

// ============================================================================
// COMPLETER
// ============================================================================

// Request is what a backend receives for one attempt.
type Request struct {
	Model       string
	Messages    []model.Message
	Temperature float64
}

// Completer turns a request into reply text. Any error is an opaque failure
// of that attempt.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Target is one model on one backend.
type Target struct {
	Model  string
	Client Completer
}

// ============================================================================
// STATE
// ============================================================================

// State is a step of the invocation state machine.
type State int

const (
	StateIdle State = iota
	StateCallingPrimary
	StateCallingFallback
	StateSuccess
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateCallingPrimary:
		return "CallingPrimary"
	case StateCallingFallback:
		return "CallingFallback"
	case StateSuccess:
		return "Success"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFailed
}

// Reason classifies a failed result.
type Reason int

const (
	ReasonNone Reason = iota
	// ReasonProviderError means a backend was reached and both attempts failed.
	ReasonProviderError
	// ReasonServiceUnavailable means no backend is configured at all.
	ReasonServiceUnavailable
)

// String returns the reason name.
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonProviderError:
		return "provider_error"
	case ReasonServiceUnavailable:
		return "service_unavailable"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

// ============================================================================
// ERRORS
// ============================================================================

var (
	// ErrServiceUnavailable means no model backend is configured.
	ErrServiceUnavailable = errors.New("no model backend configured")

	// ErrEmptyResponse is the failure recorded for a blank reply.
	ErrEmptyResponse = errors.New("model returned an empty response")

	// ErrNoFallback is the fallback failure when no fallback is configured.
	ErrNoFallback = errors.New("no fallback model configured")
)

// ProviderError carries the failures of both attempts.
type ProviderError struct {
	PrimaryModel  string
	FallbackModel string
	Primary       error
	Fallback      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("model error: %v; fallback error: %v", e.Primary, e.Fallback)
}

// Unwrap exposes both causes to errors.Is and errors.As.
func (e *ProviderError) Unwrap() []error {
	return []error{e.Primary, e.Fallback}
}

// PanicError wraps a panic raised inside a completer.
type PanicError struct {
	Value any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("backend panicked: %v", e.Value)
}

// ============================================================================
// RESULT
// ============================================================================

// Attempt records one call to a backend.
type Attempt struct {
	Model    string
	Fallback bool
	Duration time.Duration
	Err      error
}

// Result is the outcome of Invoke.
type Result struct {
	State    State
	Text     string
	Model    string // model that produced Text
	Degraded bool   // Text came from the fallback and carries FallbackMarker
	Reason   Reason
	Err      error

	Trace    []State
	Attempts []Attempt
}

// OK reports whether the invocation succeeded.
func (r Result) OK() bool {
	return r.State == StateSuccess
}
