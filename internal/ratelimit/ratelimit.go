// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ratelimit gates chat submissions by a minimum interval.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultInterval is the minimum gap between two accepted submissions.
const DefaultInterval = 1200 * time.Millisecond

// Notice is shown to the user when a submission is rejected.
const Notice = "Terlalu cepat — tunggu sebentar."

// Allow reports whether a submission at now may be accepted when the
// previous accepted one happened at last. It has no side effects.
//
// A zero last is always far enough in the past.
func Allow(now, last time.Time, min time.Duration) bool {
	return now.Sub(last) >= min
}

// Gate keeps the last accepted time for one session. Decisions come from a
// one-token bucket refilled once per interval, which accepts exactly when
// Allow would.
type Gate struct {
	mu       sync.Mutex
	interval time.Duration
	lim      *rate.Limiter
	last     time.Time
}

// NewGate returns a gate with the given minimum interval.
func NewGate(interval time.Duration) *Gate {
	if interval < 0 {
		interval = 0
	}
	return &Gate{interval: interval, lim: newLimiter(interval)}
}

func newLimiter(interval time.Duration) *rate.Limiter {
	return rate.NewLimiter(rate.Every(interval), 1)
}

// Try accepts the submission at now if the gate permits it and records now
// as the last accepted time. On rejection nothing changes and retryIn is how
// long until a submission would be accepted.
func (g *Gate) Try(now time.Time) (ok bool, retryIn time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.lim.AllowN(now, 1) {
		return false, g.interval - now.Sub(g.last)
	}
	g.last = now
	return true, 0
}

// Check is Try without recording anything.
func (g *Gate) Check(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.interval == 0 {
		return true
	}
	// Same rounding as the limiter: a wait under a nanosecond is no wait.
	missing := 1 - g.lim.TokensAt(now)
	return missing <= 0 || time.Duration(missing*float64(g.interval)) <= 0
}

// Last returns the last accepted time, zero if none.
func (g *Gate) Last() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

// Interval returns the configured minimum interval.
func (g *Gate) Interval() time.Duration {
	return g.interval
}

// Reset forgets the last accepted time.
func (g *Gate) Reset() {
	g.mu.Lock()
	g.last = time.Time{}
	g.lim = newLimiter(g.interval)
	g.mu.Unlock()
}
