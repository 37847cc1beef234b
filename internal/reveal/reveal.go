// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reveal plays back a finished reply in small chunks so it looks
// typed. Playback is display only: the stored turn always holds the full
// reply, and an abandoned playback writes nothing anywhere.
package reveal

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	// DefaultChunkSize is the number of characters revealed per frame.
	DefaultChunkSize = 40

	// DefaultDelay is the pause between frames.
	DefaultDelay = 30 * time.Millisecond
)

// Frame is one step of a playback.
type Frame struct {
	Index int
	Chunk string // characters added by this frame
	Text  string // everything revealed so far
	Done  bool   // Text is the complete reply
}

// Chunks splits text into pieces of at most size characters. Joining the
// pieces gives text back.
func Chunks(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if text == "" {
		return nil
	}
	out := make([]string, 0, utf8.RuneCountInString(text)/size+1)
	start, n := 0, 0
	for i := range text {
		if n == size {
			out = append(out, text[start:i])
			start, n = i, 0
		}
		n++
	}
	return append(out, text[start:])
}

// =============================================================================
// EMITTER
// =============================================================================

// Emitter holds the playback pacing.
type Emitter struct {
	ChunkSize int
	Delay     time.Duration
}

// New returns an emitter, replacing non-positive values with the defaults.
// A zero delay is kept: it reveals every chunk at once.
func New(chunkSize int, delay time.Duration) *Emitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if delay < 0 {
		delay = DefaultDelay
	}
	return &Emitter{ChunkSize: chunkSize, Delay: delay}
}

// Play calls sink once per chunk, waiting Delay between calls. It returns
// ctx.Err() if ctx ends first; frames already delivered stay delivered.
func (e *Emitter) Play(ctx context.Context, text string, sink func(Frame)) error {
	chunks := Chunks(text, e.ChunkSize)

	var sb strings.Builder
	sb.Grow(len(text))

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for i, c := range chunks {
		if i > 0 && e.Delay > 0 {
			if timer == nil {
				timer = time.NewTimer(e.Delay)
			} else {
				timer.Reset(e.Delay)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		sb.WriteString(c)
		sink(Frame{Index: i, Chunk: c, Text: sb.String(), Done: i == len(chunks)-1})
	}
	return nil
}

// =============================================================================
// BUBBLE TEA PLAYBACK
// =============================================================================

// TickMsg asks the owner of playback ID to advance one frame.
type TickMsg struct {
	ID uint64
}

// Playback is a step-driven playback for Bubble Tea models. The model calls
// Next on every TickMsg carrying its ID and schedules Tick again until Done.
// Starting a new Playback with a different ID abandons the old one: its
// pending ticks no longer match.
type Playback struct {
	ID     uint64
	chunks []string
	delay  time.Duration
	pos    int
	sb     strings.Builder
}

// Start prepares a playback of text.
func (e *Emitter) Start(id uint64, text string) *Playback {
	return &Playback{
		ID:     id,
		chunks: Chunks(text, e.ChunkSize),
		delay:  e.Delay,
	}
}

// Next reveals the next chunk. ok is false when nothing is left.
func (p *Playback) Next() (f Frame, ok bool) {
	if p.pos >= len(p.chunks) {
		return Frame{}, false
	}
	c := p.chunks[p.pos]
	p.sb.WriteString(c)
	f = Frame{Index: p.pos, Chunk: c, Text: p.sb.String(), Done: p.pos == len(p.chunks)-1}
	p.pos++
	return f, true
}

// Text returns what has been revealed so far.
func (p *Playback) Text() string {
	return p.sb.String()
}

// Done reports whether every chunk has been revealed.
func (p *Playback) Done() bool {
	return p.pos >= len(p.chunks)
}

// Tick schedules the next TickMsg for this playback.
func (p *Playback) Tick() tea.Cmd {
	id := p.ID
	return tea.Tick(p.delay, func(time.Time) tea.Msg {
		return TickMsg{ID: id}
	})
}
