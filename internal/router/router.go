// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"context"
	"strings"
	"time"

	"github.com/jeranaias/iea-chat/internal/model"
)

const (
	// DefaultTimeout bounds each attempt.
	DefaultTimeout = 30 * time.Second

	// DefaultTemperature is the sampling temperature sent to both models.
	DefaultTemperature = 0.7
)

// Policy is the primary/fallback invocation policy.
type Policy struct {
	Primary  Target
	Fallback Target

	Temperature float64
	// Timeout applies to each attempt separately. Zero means DefaultTimeout.
	Timeout time.Duration

	// OnAttempt, if set, is called after every backend call.
	OnAttempt func(Attempt)
}

// Available reports whether a backend is configured.
func (p *Policy) Available() bool {
	return p != nil && p.Primary.Client != nil
}

// Invoke runs the state machine for msgs. It always returns a Result.
func (p *Policy) Invoke(ctx context.Context, msgs []model.Message) Result {
	res := Result{State: StateIdle, Trace: []State{StateIdle}}

	if !p.Available() {
		res.transition(StateFailed)
		res.Reason = ReasonServiceUnavailable
		res.Err = ErrServiceUnavailable
		return res
	}

	res.transition(StateCallingPrimary)
	text, err := p.attempt(ctx, &res, p.Primary, msgs, false)
	if err == nil {
		res.transition(StateSuccess)
		res.Text = text
		res.Model = p.Primary.Model
		return res
	}
	primaryErr := err

	res.transition(StateCallingFallback)
	switch {
	case ctx.Err() != nil:
		// Cancelled by the caller: no fallback call.
		err = ctx.Err()
	case p.Fallback.Client == nil:
		err = ErrNoFallback
	default:
		text, err = p.attempt(ctx, &res, p.Fallback, msgs, true)
	}
	if err == nil {
		res.transition(StateSuccess)
		res.Text = strings.TrimSuffix(text, FallbackMarker) + FallbackMarker
		res.Model = p.Fallback.Model
		res.Degraded = true
		return res
	}

	res.transition(StateFailed)
	res.Reason = ReasonProviderError
	res.Err = &ProviderError{
		PrimaryModel:  p.Primary.Model,
		FallbackModel: p.Fallback.Model,
		Primary:       primaryErr,
		Fallback:      err,
	}
	return res
}

// attempt performs one bounded call. Blank replies and panics are failures.
func (p *Policy) attempt(ctx context.Context, res *Result, t Target, msgs []model.Message, fallback bool) (text string, err error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			text, err = "", &PanicError{Value: r}
		}
		a := Attempt{Model: t.Model, Fallback: fallback, Duration: time.Since(start), Err: err}
		res.Attempts = append(res.Attempts, a)
		if p.OnAttempt != nil {
			p.OnAttempt(a)
		}
	}()

	req := Request{
		Model:       t.Model,
		Messages:    msgs,
		Temperature: p.Temperature,
	}
	text, err = t.Client.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (r *Result) transition(s State) {
	r.State = s
	r.Trace = append(r.Trace, s)
}
