// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/jeranaias/iea-chat/internal/model"
	"github.com/jeranaias/iea-chat/internal/util"
)

// DefaultHistoryName is the file name used under the config directory.
const DefaultHistoryName = "ai_iea_chat_history.json"

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNoHistory is wrapped when the history file does not exist yet.
	ErrNoHistory = errors.New("history file does not exist")

	// ErrCorruptHistory is wrapped when the file is not a valid turn list.
	ErrCorruptHistory = errors.New("history file is not a valid turn list")
)

// StorageError reports a failed history read or write.
type StorageError struct {
	Op   string // "load", "save", "encode", "decode"
	Path string
	Err  error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("history %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("history %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// =============================================================================
// HISTORY FILE
// =============================================================================

// HistoryFile reads and writes one history file.
type HistoryFile struct {
	path string

	mu       sync.Mutex
	lastHash [sha256.Size]byte
	written  bool
}

// NewHistoryFile returns a HistoryFile for path. Nothing is touched on disk.
func NewHistoryFile(path string) *HistoryFile {
	return &HistoryFile{path: path}
}

// DefaultHistoryPath returns ~/.iea/ai_iea_chat_history.json.
func DefaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultHistoryName
	}
	return filepath.Join(home, ".iea", DefaultHistoryName)
}

// Path returns the file path.
func (h *HistoryFile) Path() string {
	return h.path
}

// Load reads the whole history. A missing file wraps ErrNoHistory, an
// unparseable one wraps ErrCorruptHistory.
func (h *HistoryFile) Load() ([]model.Turn, error) {
	data, err := os.ReadFile(h.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &StorageError{Op: "load", Path: h.path, Err: ErrNoHistory}
		}
		return nil, &StorageError{Op: "load", Path: h.path, Err: err}
	}

	turns, err := decodeTurns(data)
	if err != nil {
		return nil, &StorageError{Op: "load", Path: h.path, Err: err}
	}
	return turns, nil
}

// Save replaces the file with turns.
func (h *HistoryFile) Save(turns []model.Turn) error {
	data, err := encodeTurns(turns)
	if err != nil {
		return &StorageError{Op: "encode", Path: h.path, Err: err}
	}
	if err := util.WriteFileAtomic(h.path, data, 0o600); err != nil {
		return &StorageError{Op: "save", Path: h.path, Err: err}
	}

	h.mu.Lock()
	h.lastHash = sha256.Sum256(data)
	h.written = true
	h.mu.Unlock()
	return nil
}

// WrittenByUs reports whether data is exactly what the last Save wrote.
func (h *HistoryFile) WrittenByUs(data []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.written && sha256.Sum256(data) == h.lastHash
}

// =============================================================================
// EXPORT / IMPORT
// =============================================================================

// Export writes turns to w in the history file format.
func Export(w io.Writer, turns []model.Turn) error {
	data, err := encodeTurns(turns)
	if err != nil {
		return &StorageError{Op: "encode", Err: err}
	}
	if _, err := w.Write(data); err != nil {
		return &StorageError{Op: "encode", Err: err}
	}
	return nil
}

// Import reads a turn list from r. Both the current and the legacy shape
// are accepted.
func Import(r io.Reader) ([]model.Turn, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &StorageError{Op: "decode", Err: err}
	}
	turns, err := decodeTurns(data)
	if err != nil {
		return nil, &StorageError{Op: "decode", Err: err}
	}
	return turns, nil
}

func encodeTurns(turns []model.Turn) ([]byte, error) {
	if turns == nil {
		turns = []model.Turn{}
	}
	data, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func decodeTurns(data []byte) ([]model.Turn, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrCorruptHistory
	}
	var turns []model.Turn
	if err := json.Unmarshal(trimmed, &turns); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptHistory, err)
	}
	if turns == nil {
		turns = []model.Turn{}
	}
	return turns, nil
}
