// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/iea-chat/internal/attach"
	"github.com/jeranaias/iea-chat/internal/audit"
	"github.com/jeranaias/iea-chat/internal/config"
	"github.com/jeranaias/iea-chat/internal/model"
	"github.com/jeranaias/iea-chat/internal/reveal"
	"github.com/jeranaias/iea-chat/internal/router"
	"github.com/jeranaias/iea-chat/internal/session"
)

// =============================================================================
// FIXTURES
// =============================================================================

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// scripted answers each call with the next entry of replies/errs and keeps
// the requests it saw.
type scripted struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	calls   []router.Request
	during  func()
}

func (s *scripted) Complete(ctx context.Context, req router.Request) (string, error) {
	s.mu.Lock()
	i := len(s.calls)
	s.calls = append(s.calls, req)
	during := s.during
	s.mu.Unlock()

	if during != nil {
		during()
	}
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(s.replies) {
		return s.replies[i], nil
	}
	return "ok", nil
}

func (s *scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type memRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
	panics  bool
}

func (r *memRecorder) Record(ctx context.Context, e audit.Entry) (audit.Entry, error) {
	if r.panics {
		panic("recorder exploded")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return e, nil
}

func quiet() *log.Logger { return log.New(io.Discard) }

func backendFor(c router.Completer) Backend {
	return Backend{
		Kind: "fake",
		Policy: &router.Policy{
			Primary:     router.Target{Model: "big", Client: c},
			Fallback:    router.Target{Model: "small", Client: c},
			Temperature: 0.7,
			Timeout:     time.Second,
		},
	}
}

func newSession() *session.Session {
	return session.New("budi", session.NewStore(nil, quiet()), 1200*time.Millisecond)
}

func newEngine(b Backend, clock *fakeClock, opts ...Option) *Engine {
	all := append([]Option{WithLogger(quiet()), WithClock(clock.Now)}, opts...)
	return NewEngine(b, DefaultOptions(), all...)
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestSubmit_HaloHai(t *testing.T) {
	fake := &scripted{replies: []string{"Hai!"}}
	eng := newEngine(backendFor(fake), newClock())
	s := newSession()

	rep, err := eng.Submit(context.Background(), s, Submission{Text: "Halo"})
	require.NoError(t, err)
	require.Equal(t, "Hai!", rep.Text())
	require.False(t, rep.Result.Degraded)

	turns := s.Store.Turns()
	require.Len(t, turns, 2)
	require.Equal(t, model.RoleUser, turns[0].Role)
	require.Equal(t, "Halo", turns[0].Text)
	require.Equal(t, model.RoleAssistant, turns[1].Role)
	require.Equal(t, "Hai!", turns[1].Text)

	require.Equal(t, []string{"Ha", "i!"}, reveal.Chunks(rep.Text(), 2))

	require.Equal(t, 1, fake.Calls())
	req := fake.calls[0]
	require.Equal(t, "big", req.Model)
	require.Equal(t, 0.7, req.Temperature)
	require.Len(t, req.Messages, 2)
	require.Equal(t, model.RoleSystem, req.Messages[0].Role)
	require.Equal(t, DefaultOptions().System, req.Messages[0].Content)
	require.Equal(t, model.Message{Role: model.RoleUser, Content: "Halo"}, req.Messages[1])
}

func TestSubmit_RateLimited(t *testing.T) {
	fake := &scripted{}
	clock := newClock()
	eng := newEngine(backendFor(fake), clock)
	s := newSession()

	_, err := eng.Submit(context.Background(), s, Submission{Text: "pertama"})
	require.NoError(t, err)

	clock.Advance(500 * time.Millisecond)
	rep, err := eng.Submit(context.Background(), s, Submission{Text: "kedua"})
	require.ErrorIs(t, err, ErrRateLimited)
	require.Equal(t, "Terlalu cepat — tunggu sebentar.", err.Error())

	var rl *RateLimitedError
	require.True(t, errors.As(err, &rl))
	require.Equal(t, 700*time.Millisecond, rl.RetryIn)

	require.Zero(t, rep)
	require.Equal(t, 2, s.Store.Len(), "rejected submission must not add a turn")
	require.Equal(t, 1, fake.Calls(), "rejected submission must not call the model")

	clock.Advance(700 * time.Millisecond)
	_, err = eng.Submit(context.Background(), s, Submission{Text: "ketiga"})
	require.NoError(t, err)
	require.Equal(t, 4, s.Store.Len())
}

func TestSubmit_ServiceUnavailable(t *testing.T) {
	eng := newEngine(Resolve(config.ProviderConfig{Kind: config.ProviderNone}), newClock())
	s := newSession()

	rep, err := eng.Submit(context.Background(), s, Submission{Text: "Halo"})
	require.ErrorIs(t, err, router.ErrServiceUnavailable)
	require.Equal(t, router.ReasonServiceUnavailable, rep.Result.Reason)
	require.True(t, rep.Turn.Notice)
	require.Equal(t, SetupNotice, rep.Turn.Text)

	turns := s.Store.Turns()
	require.Len(t, turns, 2)
	require.Equal(t, SetupNotice, turns[1].Text)
}

func TestSubmit_BothModelsFail(t *testing.T) {
	fake := &scripted{errs: []error{errors.New("503 upstream"), errors.New("429 slow down")}}
	eng := newEngine(backendFor(fake), newClock())
	s := newSession()

	rep, err := eng.Submit(context.Background(), s, Submission{Text: "Halo"})
	var pe *router.ProviderError
	require.True(t, errors.As(err, &pe))
	require.Contains(t, err.Error(), "503 upstream")
	require.Contains(t, err.Error(), "429 slow down")

	require.Equal(t, router.StateFailed, rep.Result.State)
	require.Equal(t, FailureNotice, rep.Turn.Text)
	require.True(t, rep.Turn.Notice)
	require.Equal(t, 2, s.Store.Len())
	require.Equal(t, 2, fake.Calls())
}

func TestSubmit_FallbackReply(t *testing.T) {
	fake := &scripted{errs: []error{errors.New("timeout")}, replies: []string{"", "Jawaban cadangan"}}
	eng := newEngine(backendFor(fake), newClock())
	s := newSession()

	rep, err := eng.Submit(context.Background(), s, Submission{Text: "Halo"})
	require.NoError(t, err)
	require.True(t, rep.Result.Degraded)
	require.Equal(t, "Jawaban cadangan"+router.FallbackMarker, rep.Text())
	require.Equal(t, 1, strings.Count(rep.Text(), router.FallbackMarker))
	require.Equal(t, "small", fake.calls[1].Model)
	require.Equal(t, fake.calls[0].Messages, fake.calls[1].Messages)
}

func TestSubmit_Validation(t *testing.T) {
	fake := &scripted{}
	eng := newEngine(backendFor(fake), newClock())
	s := newSession()

	_, err := eng.Submit(context.Background(), s, Submission{Text: "  \n "})
	require.True(t, IsValidation(err))
	require.Contains(t, err.Error(), EmptyNotice)
	require.Zero(t, s.Store.Len())
	require.True(t, s.Gate.Last().IsZero(), "validation failure must not consume the rate gate")

	_, err = eng.Submit(context.Background(), s, Submission{Text: "Halo"})
	require.NoError(t, err)
}

func TestSubmit_InvalidWindowSettings(t *testing.T) {
	fake := &scripted{}
	eng := NewEngine(backendFor(fake), Options{WindowSize: 0, MaxChars: 1500}, WithLogger(quiet()))
	s := newSession()

	_, err := eng.Submit(context.Background(), s, Submission{Text: "Halo"})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	require.Equal(t, "window", ve.Field)
	require.Zero(t, s.Store.Len())
	require.Zero(t, fake.Calls())
}

func TestSubmit_AttachmentTooLarge(t *testing.T) {
	in := attach.NewIngester(nil, quiet())
	in.MaxBytes = 4
	fake := &scripted{}
	eng := newEngine(backendFor(fake), newClock(), WithIngester(in))
	s := newSession()

	_, err := eng.Submit(context.Background(), s, Submission{
		Text:   "lihat ini",
		Upload: &attach.Upload{Filename: "besar.bin", Data: []byte("12345")},
	})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	require.Equal(t, "attachment", ve.Field)
	var se *attach.SizeError
	require.True(t, errors.As(err, &se))
	require.Zero(t, s.Store.Len())
	require.Zero(t, fake.Calls())
}

func TestSubmit_AttachmentNoteFollowsTurn(t *testing.T) {
	fake := &scripted{replies: []string{"Sudah kubaca."}}
	eng := newEngine(backendFor(fake), newClock())
	s := newSession()

	data := []byte("tanggal,acara\n2025-05-03,kopdar\n")
	rep, err := eng.Submit(context.Background(), s, Submission{
		Upload: &attach.Upload{Filename: "jadwal.csv", Data: data},
	})
	require.NoError(t, err)

	require.NotNil(t, rep.User.Attachment)
	require.Equal(t, model.AttachmentFile, rep.User.Attachment.Kind)
	require.Equal(t, "", rep.User.Text)

	msgs := fake.calls[0].Messages
	require.Len(t, msgs, 3)
	require.Equal(t, model.RoleUser, msgs[1].Role)
	require.Equal(t, model.Message{Role: model.RoleSystem, Content: attach.ReceiptNote("jadwal.csv", int64(len(data)))}, msgs[2])

	stored := s.Store.Turns()[0]
	require.Equal(t, rep.User.Attachment.Note, stored.Attachment.Note)
}

func TestSubmit_ClearedWhileInFlight(t *testing.T) {
	s := newSession()
	fake := &scripted{replies: []string{"terlambat"}}
	fake.during = func() { s.Store.Clear() }
	rec := &memRecorder{}
	eng := newEngine(backendFor(fake), newClock(), WithAudit(rec))

	rep, err := eng.Submit(context.Background(), s, Submission{Text: "Halo"})
	require.ErrorIs(t, err, ErrDiscarded)
	require.True(t, rep.Discarded)
	require.Zero(t, rep.Turn)
	require.Zero(t, s.Store.Len(), "reply must not land in a cleared conversation")
	require.Len(t, rec.entries, 1, "the call itself is still audited")
}

func TestSubmit_CancelDoesNotAbortCall(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	fake := router.CompleterFunc(func(callCtx context.Context, req router.Request) (string, error) {
		calls++
		cancel()
		select {
		case <-callCtx.Done():
			return "", callCtx.Err()
		case <-time.After(20 * time.Millisecond):
			return "Hai!", nil
		}
	})
	rec := &memRecorder{}
	eng := newEngine(backendFor(fake), newClock(), WithAudit(rec))
	s := newSession()

	rep, err := eng.Submit(ctx, s, Submission{Text: "Halo"})
	require.NoError(t, err)
	require.Equal(t, 1, calls, "no fallback call")
	require.Equal(t, "Hai!", rep.Text())
	require.False(t, rep.Result.Degraded)

	last, ok := s.Store.Last()
	require.True(t, ok)
	require.Equal(t, "Hai!", last.Text)
	require.Len(t, rec.entries, 1)
	require.Equal(t, "success", rec.entries[0].Outcome)
}

func TestSubmit_RecoversPanic(t *testing.T) {
	fake := &scripted{replies: []string{"Hai!"}}
	eng := newEngine(backendFor(fake), newClock(), WithAudit(&memRecorder{panics: true}))
	s := newSession()

	rep, err := eng.Submit(context.Background(), s, Submission{Text: "Halo"})
	require.ErrorIs(t, err, ErrInternal)
	require.True(t, rep.Turn.Notice)

	last, ok := s.Store.Last()
	require.True(t, ok)
	require.Equal(t, FailureNotice, last.Text)
}

func TestSubmit_Audit(t *testing.T) {
	fake := &scripted{errs: []error{errors.New("boom")}, replies: []string{"", "cadangan"}}
	rec := &memRecorder{}
	eng := newEngine(backendFor(fake), newClock(), WithAudit(rec))
	s := newSession()

	_, err := eng.Submit(context.Background(), s, Submission{Text: "Halo"})
	require.NoError(t, err)
	eng.RecordSession(context.Background(), s, audit.KindLogout)

	require.Len(t, rec.entries, 2)
	call := rec.entries[0]
	require.Equal(t, audit.KindCall, call.Kind)
	require.Equal(t, s.ID, call.SessionID)
	require.Equal(t, "budi", call.Identity)
	require.Equal(t, "fake", call.Provider)
	require.Equal(t, "small", call.Model)
	require.Equal(t, "success", call.Outcome)
	require.True(t, call.Degraded)
	require.Positive(t, call.PromptChars)
	require.Equal(t, audit.KindLogout, rec.entries[1].Kind)
}

func TestSubmit_WindowIsBounded(t *testing.T) {
	fake := &scripted{}
	clock := newClock()
	eng := NewEngine(backendFor(fake), Options{WindowSize: 3, MaxChars: 5}, WithLogger(quiet()), WithClock(clock.Now))
	s := newSession()

	for _, text := range []string{"satu satu", "dua dua", "tiga tiga"} {
		_, err := eng.Submit(context.Background(), s, Submission{Text: text})
		require.NoError(t, err)
		clock.Advance(2 * time.Second)
	}

	// Five stored turns before the third call; the window keeps the last three.
	last := fake.calls[len(fake.calls)-1].Messages
	require.Len(t, last, 4)
	require.Equal(t, model.RoleSystem, last[0].Role)
	require.Equal(t, "dua d", last[1].Content)
	require.Equal(t, "ok", last[2].Content)
	require.Equal(t, "tiga ", last[3].Content)
}
