// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package membership decides whether a name belongs to the community list.
//
// The list lives in a public key-value store (Firebase Realtime Database
// style): GET {base}/{group}.json returns {"<key>": {"name": "..."}, ...}.
// Names are compared after normalization. The check is not authentication;
// it only gates the chat screen.
//
// Lookup separates "not on the list" (ErrNotMember) from "could not ask"
// (*LookupError). IsMember collapses both to false.
package membership

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"
)

// Default groups queried in order.
var DefaultGroups = []string{"members", "admins"}

const maxBody = 4 << 20

var (
	// ErrNotMember means every group was read and none holds the name.
	ErrNotMember = errors.New("name not found in membership list")

	// ErrEmptyName means the name is blank after normalization.
	ErrEmptyName = errors.New("name is empty")

	// ErrNotConfigured means no membership endpoint is set.
	ErrNotConfigured = errors.New("membership endpoint not configured")

	// ErrThrottled means the local lookup budget is spent.
	ErrThrottled = errors.New("too many membership lookups")
)

// LookupError reports that a group could not be read. The name may or may
// not be a member.
type LookupError struct {
	Group string
	Err   error
}

// Error implements the error interface.
func (e *LookupError) Error() string {
	if e.Group == "" {
		return fmt.Sprintf("membership lookup: %v", e.Err)
	}
	return fmt.Sprintf("membership lookup %q: %v", e.Group, e.Err)
}

// Unwrap returns the cause.
func (e *LookupError) Unwrap() error {
	return e.Err
}

// Transient reports whether asking again later could give a different
// answer.
func (e *LookupError) Transient() bool {
	return !errors.Is(e.Err, ErrNotConfigured)
}

// Member is a matched list entry.
type Member struct {
	Key   string
	Name  string
	Group string
}

// Normalize prepares a name for comparison: Unicode NFKC, surrounding space
// trimmed, lower case.
func Normalize(name string) string {
	s := norm.NFKC.String(name)
	s = strings.TrimSpace(s)
	return cases.Lower(language.Und).String(s)
}

// =============================================================================
// CHECKER
// =============================================================================

// Config configures a Checker.
type Config struct {
	BaseURL string
	Groups  []string
	// Auth is sent as the "auth" query parameter when set.
	Auth    string
	Timeout time.Duration

	// RequestsPerSecond and Burst bound outgoing lookups. Zero disables the
	// limit.
	RequestsPerSecond float64
	Burst             int
}

// Checker queries the membership store.
type Checker struct {
	base    string
	groups  []string
	auth    string
	http    *http.Client
	limiter *rate.Limiter
	logger  *log.Logger
}

// New returns a Checker. A nil logger uses the default logger.
func New(cfg Config, logger *log.Logger) *Checker {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	groups := cfg.Groups
	if len(groups) == 0 {
		groups = DefaultGroups
	}

	c := &Checker{
		base:   strings.TrimRight(cfg.BaseURL, "/"),
		groups: groups,
		auth:   cfg.Auth,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = len(groups)
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c
}

// Configured reports whether an endpoint is set.
func (c *Checker) Configured() bool {
	return c.base != ""
}

// Lookup finds name in the configured groups. It returns ErrEmptyName for
// a blank name, ErrNotMember when every group was read without a match, and
// a *LookupError when some group could not be read and no match was found.
func (c *Checker) Lookup(ctx context.Context, name string) (Member, error) {
	want := Normalize(name)
	if want == "" {
		return Member{}, ErrEmptyName
	}
	if !c.Configured() {
		return Member{}, &LookupError{Err: ErrNotConfigured}
	}

	var firstErr error
	for _, g := range c.groups {
		entries, err := c.fetch(ctx, g)
		if err != nil {
			c.logger.Warn("membership group unreadable", "group", g, "err", err)
			if firstErr == nil {
				firstErr = &LookupError{Group: g, Err: err}
			}
			continue
		}
		for key, n := range entries {
			if Normalize(n) == want {
				return Member{Key: key, Name: n, Group: g}, nil
			}
		}
	}
	if firstErr != nil {
		return Member{}, firstErr
	}
	return Member{}, ErrNotMember
}

// IsMember is Lookup reduced to a yes/no answer. Every error, including
// lookup failures, is a no.
func (c *Checker) IsMember(ctx context.Context, name string) bool {
	_, err := c.Lookup(ctx, name)
	return err == nil
}

// fetch reads one group as key -> name.
func (c *Checker) fetch(ctx context.Context, group string) (map[string]string, error) {
	if c.limiter != nil && !c.limiter.Allow() {
		return nil, ErrThrottled
	}

	u := c.base + "/" + url.PathEscape(group) + ".json"
	if c.auth != "" {
		u += "?auth=" + url.QueryEscape(c.auth)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode group: %w", err)
	}

	out := make(map[string]string, len(raw))
	for key, v := range raw {
		var entry struct {
			Name string `json:"name"`
		}
		if json.Unmarshal(v, &entry) == nil && entry.Name != "" {
			out[key] = entry.Name
		}
	}
	return out, nil
}
