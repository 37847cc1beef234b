// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and validates iea settings.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (GROQ_API_KEY, IEA_*, OLLAMA_HOST)
//   - .env in the working directory (see LoadDotEnv)
//   - ~/.iea/config.toml
//   - Built-in defaults
//
// # Usage
//
//	_ = config.LoadDotEnv()
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	n := cfg.Chat.WindowSize
//
// Durations are written as strings ("1.2s", "30ms") and decode into
// Duration.
package config
