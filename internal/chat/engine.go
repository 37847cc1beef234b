// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jeranaias/iea-chat/internal/attach"
	"github.com/jeranaias/iea-chat/internal/audit"
	"github.com/jeranaias/iea-chat/internal/model"
	"github.com/jeranaias/iea-chat/internal/router"
	"github.com/jeranaias/iea-chat/internal/session"
	"github.com/jeranaias/iea-chat/internal/util"
	"github.com/jeranaias/iea-chat/internal/window"
)

// =============================================================================
// TYPES
// =============================================================================

// Recorder stores audit entries. *audit.Log implements it.
type Recorder interface {
	Record(ctx context.Context, e audit.Entry) (audit.Entry, error)
}

// Submission is one user input.
type Submission struct {
	Text   string
	Upload *attach.Upload
}

// Reply describes what a submission did to the session.
type Reply struct {
	// User is the stored user turn.
	User model.Turn
	// Turn is the stored assistant turn: the model reply or a notice.
	// Zero when the reply was discarded.
	Turn model.Turn

	Result    router.Result
	Window    window.Window
	Discarded bool
}

// Text is what the surface should play back.
func (r Reply) Text() string {
	return r.Turn.Text
}

// Options are the window settings of an Engine.
type Options struct {
	WindowSize int
	MaxChars   int
	// System is the instruction sent first. Empty uses the default persona.
	System string
}

// DefaultOptions returns a 12-turn, 1500-character window.
func DefaultOptions() Options {
	return Options{
		WindowSize: window.DefaultSize,
		MaxChars:   window.DefaultMaxChars,
		System:     window.DefaultInstruction().String(),
	}
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine processes submissions for any number of sessions. It holds no
// per-session state.
type Engine struct {
	backend  Backend
	opts     Options
	ingester *attach.Ingester
	audit    Recorder
	logger   *log.Logger
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithIngester enables attachments.
func WithIngester(in *attach.Ingester) Option {
	return func(e *Engine) { e.ingester = in }
}

// WithAudit records every model call and login.
func WithAudit(r Recorder) Option {
	return func(e *Engine) { e.audit = r }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock replaces time.Now for the rate gate.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine returns an engine over backend.
func NewEngine(backend Backend, opts Options, options ...Option) *Engine {
	if opts.System == "" {
		opts.System = window.DefaultInstruction().String()
	}
	if backend.Policy == nil {
		backend.Policy = &router.Policy{}
	}
	e := &Engine{
		backend: backend,
		opts:    opts,
		logger:  log.Default(),
		now:     time.Now,
	}
	for _, o := range options {
		o(e)
	}
	if e.ingester == nil {
		e.ingester = attach.NewIngester(nil, e.logger)
	}
	return e
}

// Backend returns the resolved provider.
func (e *Engine) Backend() Backend {
	return e.backend
}

// Available reports whether a model backend is configured.
func (e *Engine) Available() bool {
	return e.backend.Policy.Available()
}

// Submit runs one submission against s. See the package documentation for
// the error taxonomy. When err is a ValidationError or RateLimitedError the
// session is unchanged.
func (e *Engine) Submit(ctx context.Context, s *session.Session, sub Submission) (rep Reply, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("submit panicked", "panic", r, "stack", string(debug.Stack()))
			rep.Turn = model.NewNoticeTurn(FailureNotice)
			if s != nil && s.Store != nil {
				s.Store.Append(rep.Turn)
			}
			err = fmt.Errorf("%w: %v", ErrInternal, r)
		}
	}()

	text := strings.TrimSpace(sub.Text)
	if err := e.validate(text, sub.Upload); err != nil {
		return Reply{}, err
	}

	if ok, retry := s.Gate.Try(e.now()); !ok {
		return Reply{}, &RateLimitedError{RetryIn: retry}
	}

	user := model.NewUserTurn(text)
	if sub.Upload != nil {
		a := e.ingest(ctx, *sub.Upload)
		user.Attachment = &a
	}
	gen := s.Store.Append(user)
	rep.User = user

	w, err := window.Build(s.Store.Turns(), e.opts.WindowSize, e.opts.MaxChars, e.opts.System)
	if err != nil {
		// validate already checked the window settings.
		return rep, &ValidationError{Field: "window", Message: "invalid settings", Err: err}
	}
	rep.Window = w

	// A started call always completes under the policy timeout. Logout,
	// clear and interrupts only discard its result.
	started := time.Now()
	res := e.backend.Policy.Invoke(context.WithoutCancel(ctx), w.Messages())
	rep.Result = res
	e.record(ctx, s, w, res, time.Since(started))

	switch {
	case res.OK():
		rep.Turn = model.NewAssistantTurn(res.Text)
		if res.Degraded {
			e.logger.Warn("reply from fallback model", "model", res.Model, "err", firstAttemptErr(res))
		}
	case res.Reason == router.ReasonServiceUnavailable:
		rep.Turn = model.NewNoticeTurn(SetupNotice)
	default:
		e.logger.Warn("model call failed", "err", res.Err)
		rep.Turn = model.NewNoticeTurn(FailureNotice)
	}
	if !s.Store.AppendIf(gen, rep.Turn) {
		e.logger.Info("reply dropped after clear", "session", s.ID, "state", res.State)
		return Reply{User: user, Result: res, Window: w, Discarded: true}, ErrDiscarded
	}

	return rep, res.Err
}

func (e *Engine) validate(text string, up *attach.Upload) error {
	if text == "" && up == nil {
		return &ValidationError{Field: "text", Message: EmptyNotice}
	}
	if e.opts.WindowSize <= 0 || e.opts.MaxChars <= 0 {
		return &ValidationError{Field: "window", Message: "window size and character cap must be positive", Err: window.ErrInvalidWindow}
	}
	if up != nil {
		if err := e.ingester.Validate(*up); err != nil {
			var se *attach.SizeError
			if errors.As(err, &se) {
				return &ValidationError{Field: "attachment", Message: fmt.Sprintf("berkas terlalu besar (maks %d bytes)", se.Limit), Err: err}
			}
			return &ValidationError{Field: "attachment", Message: "berkas kosong", Err: err}
		}
	}
	return nil
}

// ingest never fails the turn.
func (e *Engine) ingest(ctx context.Context, up attach.Upload) model.Attachment {
	a, err := e.ingester.Ingest(ctx, up)
	if err != nil {
		e.logger.Warn("attachment ingest failed", "file", up.Filename, "err", err)
		return model.Attachment{
			Kind:     model.AttachmentFile,
			Filename: up.Filename,
			Size:     int64(len(up.Data)),
			Note:     attach.ReceiptNote(up.Filename, int64(len(up.Data))),
		}
	}
	return a
}

func (e *Engine) record(ctx context.Context, s *session.Session, w window.Window, res router.Result, took time.Duration) {
	if e.audit == nil {
		return
	}
	entry := audit.Entry{
		Kind:        audit.KindCall,
		SessionID:   s.ID,
		Identity:    s.Identity,
		Provider:    e.backend.Kind,
		Model:       res.Model,
		Outcome:     strings.ToLower(res.State.String()),
		Degraded:    res.Degraded,
		Latency:     took,
		PromptChars: w.Chars(),
		ReplyChars:  util.RuneLen(res.Text),
	}
	if res.Reason != router.ReasonNone {
		entry.Reason = res.Reason.String()
	}
	if res.Err != nil {
		entry.Error = util.CutRunes(res.Err.Error(), 500)
	}
	if _, err := e.audit.Record(context.WithoutCancel(ctx), entry); err != nil {
		e.logger.Warn("audit record failed", "err", err)
	}
}

// RecordSession writes a login or logout audit entry. Failures are logged.
func (e *Engine) RecordSession(ctx context.Context, s *session.Session, kind audit.Kind) {
	if e.audit == nil {
		return
	}
	entry := audit.Entry{Kind: kind, SessionID: s.ID, Identity: s.Identity, Provider: e.backend.Kind}
	if _, err := e.audit.Record(ctx, entry); err != nil {
		e.logger.Warn("audit record failed", "kind", kind, "err", err)
	}
}

func firstAttemptErr(res router.Result) error {
	if len(res.Attempts) == 0 {
		return nil
	}
	return res.Attempts[0].Err
}
