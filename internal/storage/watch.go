// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// HISTORY WATCHER
// =============================================================================

// Watcher reports changes to a history file made by other writers. It does
// not merge anything; the next local save still overwrites the file.
type Watcher struct {
	hf       *HistoryFile
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func(path string)

	mu      sync.Mutex
	pending *time.Timer

	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher watches the directory holding hf. onChange runs on its own
// goroutine after a write whose content differs from hf's last save.
func NewWatcher(hf *HistoryFile, debounce time.Duration, onChange func(path string)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(hf.Path())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		fw.Close()
		return nil, err
	}
	// The directory, not the file: atomic saves replace the inode.
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}
	return &Watcher{
		hf:       hf,
		watcher:  fw,
		debounce: debounce,
		onChange: onChange,
		done:     make(chan struct{}),
	}, nil
}

// Start processes events until ctx is done or Close is called.
func (w *Watcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	go w.loop(ctx)
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	if w.cancel != nil {
		w.cancel()
		<-w.done
	}
	w.mu.Lock()
	if w.pending != nil {
		w.pending.Stop()
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	target, _ := filepath.Abs(w.hf.Path())

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			name, _ := filepath.Abs(ev.Name)
			if name != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.schedule()
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// schedule coalesces bursts of events into one check.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(w.debounce, w.check)
}

func (w *Watcher) check() {
	data, err := os.ReadFile(w.hf.Path())
	if err != nil {
		return
	}
	if w.hf.WrittenByUs(data) {
		return
	}
	if w.onChange != nil {
		w.onChange(w.hf.Path())
	}
}
