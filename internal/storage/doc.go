// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists chat history to a flat JSON file.
//
// The file holds a JSON array of model.Turn records, written with two-space
// indentation and replaced wholesale on every save. Decoding ignores unknown
// fields and accepts the legacy history shape, so exports from older builds
// can be loaded or imported.
//
// # Key Types
//
//   - HistoryFile: load/save of one history file
//   - StorageError: typed error for every read/write failure
//   - Watcher: fsnotify watch that reports writes made by another process
//
// # Usage
//
//	hf := storage.NewHistoryFile(path)
//	turns, err := hf.Load() // *StorageError on missing or corrupt file
//	err = hf.Save(turns)
//
// Callers that treat persistence as best effort (session.Store) log these
// errors and continue with the in-memory history.
package storage
