// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// clearEnv unsets every override variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"GROQ_API_KEY", "IEA_PROVIDER", "IEA_MEMBERSHIP_URL", "IEA_MEMBERSHIP_AUTH",
		"IEA_THEME", "IEA_HISTORY_FILE", "IEA_LOG_LEVEL", "OLLAMA_HOST",
	} {
		t.Setenv(k, "")
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 12, cfg.Chat.WindowSize)
	require.Equal(t, 1500, cfg.Chat.MaxChars)
	require.Equal(t, 1200*time.Millisecond, cfg.Chat.MinInterval.Duration)
	require.Equal(t, 30*time.Second, cfg.Provider.Timeout.Duration)
	require.Equal(t, []string{"members", "admins"}, cfg.Membership.Groups)
}

func TestLoadFrom_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadFrom_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[chat]
window_size = 6
min_interval = "2s"

[provider]
kind = "Ollama"
timeout = "15s"

[ui]
theme = "cosmos"
`), 0o644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	require.Equal(t, 6, cfg.Chat.WindowSize)
	require.Equal(t, 1500, cfg.Chat.MaxChars)
	require.Equal(t, 2*time.Second, cfg.Chat.MinInterval.Duration)
	require.Equal(t, ProviderOllama, cfg.Provider.Kind)
	require.Equal(t, 15*time.Second, cfg.Provider.Timeout.Duration)
	require.Equal(t, "cosmos", cfg.UI.Theme)

	info, err := os.Stat(path)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		require.Zero(t, info.Mode().Perm()&0o077, "config permissions not tightened")
	}
}

func TestLoadFrom_Invalid(t *testing.T) {
	clearEnv(t)
	tests := map[string]string{
		"window":   "[chat]\nwindow_size = 0\n",
		"chars":    "[chat]\nmax_chars = -1\n",
		"timeout":  "[provider]\ntimeout = \"500ms\"\n",
		"kind":     "[provider]\nkind = \"openrouter\"\n",
		"theme":    "[ui]\ntheme = \"neon\"\n",
		"duration": "[chat]\nmin_interval = \"soon\"\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
			_, err := LoadFrom(path)
			require.Error(t, err)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Chat.WindowSize = 0
	cfg.UI.Theme = "neon"

	err := cfg.Validate()
	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	require.Len(t, verrs, 2)
	require.Equal(t, "chat.window_size", verrs[0].Field)
	require.Equal(t, "ui.theme", verrs[1].Field)
}

func TestApplyEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GROQ_API_KEY", "gsk_test")
	t.Setenv("IEA_PROVIDER", "GROQ")
	t.Setenv("IEA_MEMBERSHIP_URL", "https://iea.example.firebaseio.com")
	t.Setenv("IEA_THEME", "iea-intelligence")
	t.Setenv("IEA_LOG_LEVEL", "debug")
	t.Setenv("OLLAMA_HOST", "10.0.0.5:11434")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	require.Equal(t, "gsk_test", cfg.Provider.GroqAPIKey)
	require.Equal(t, ProviderGroq, cfg.Provider.Kind)
	require.Equal(t, "https://iea.example.firebaseio.com", cfg.Membership.BaseURL)
	require.Equal(t, "iea-intelligence", cfg.UI.Theme)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, "http://10.0.0.5:11434", cfg.Provider.OllamaURL)
	require.NoError(t, cfg.Validate())
}

func TestLoadDotEnvFrom(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("IEA_THEME=cosmos\n"), 0o600))

	// t.Setenv registers the restore; godotenv skips variables that are
	// already non-empty, so unset first.
	t.Setenv("IEA_THEME", "")
	os.Unsetenv("IEA_THEME")

	require.NoError(t, LoadDotEnvFrom(path))
	require.Equal(t, "cosmos", os.Getenv("IEA_THEME"))
	require.NoError(t, LoadDotEnvFrom(filepath.Join(dir, "missing.env")))
}

func TestSaveAndReload(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Chat.RevealDelay = D(10 * time.Millisecond)
	cfg.Provider.GroqAPIKey = "gsk_secret_value"
	require.NoError(t, SaveTo(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `reveal_delay = "10ms"`)

	info, err := os.Stat(path)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	got, err := LoadFrom(path)
	require.NoError(t, err)
	require.Equal(t, cfg, got)
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	v, err := cfg.Get("chat.window_size")
	require.NoError(t, err)
	require.Equal(t, 12, v)

	require.NoError(t, cfg.Set("chat.window_size", "8"))
	require.Equal(t, 8, cfg.Chat.WindowSize)

	require.NoError(t, cfg.Set("chat.min_interval", "750ms"))
	v, err = cfg.Get("chat.min_interval")
	require.NoError(t, err)
	require.Equal(t, "750ms", v)

	require.NoError(t, cfg.Set("membership.groups", "anggota, pengurus"))
	require.Equal(t, []string{"anggota", "pengurus"}, cfg.Membership.Groups)

	require.NoError(t, cfg.Set("ui.markdown", "false"))
	require.False(t, cfg.UI.Markdown)

	_, err = cfg.Get("chat.nope")
	require.Error(t, err)
	require.Error(t, cfg.Set("chat.window_size.x", "1"))
	require.Error(t, cfg.Set("chat.window_size", "many"))
}

func TestKeys(t *testing.T) {
	keys := Keys()
	require.Contains(t, keys, "chat.window_size")
	require.Contains(t, keys, "chat.min_interval")
	require.Contains(t, keys, "provider.groq_api_key")
	require.Contains(t, keys, "logging.file")
	for _, k := range keys {
		_, err := Default().Get(k)
		require.NoError(t, err, k)
	}
}

func TestStringRedactsSecrets(t *testing.T) {
	cfg := Default()
	cfg.Provider.GroqAPIKey = "gsk_abcdefghijklmnop"
	cfg.Membership.Auth = "short"

	out := cfg.String()
	require.NotContains(t, out, "gsk_abcdefghijklmnop")
	require.Contains(t, out, "gsk_...mnop")
	require.True(t, strings.Contains(out, `auth = "****"`))
	require.Equal(t, "gsk_abcdefghijklmnop", cfg.Provider.GroqAPIKey)
}

func TestPaths(t *testing.T) {
	cfg := Default()
	cfg.Storage.HistoryFile = "/tmp/h.json"
	p, err := cfg.HistoryPath()
	require.NoError(t, err)
	require.Equal(t, "/tmp/h.json", p)

	cfg.Storage.HistoryFile = ""
	p, err = cfg.HistoryPath()
	if err == nil {
		require.Equal(t, "ai_iea_chat_history.json", filepath.Base(p))
		require.Equal(t, ".iea", filepath.Base(filepath.Dir(p)))
	}
}

func TestDecode_IgnoresEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("GROQ_API_KEY", "gsk_from_env")
	t.Setenv("IEA_THEME", "cosmos")

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[chat]\nwindow_size = 4\n"), 0o600))

	cfg, err := Decode(path)
	require.NoError(t, err)
	require.Equal(t, 4, cfg.Chat.WindowSize)
	require.Empty(t, cfg.Provider.GroqAPIKey)
	require.Equal(t, Default().UI.Theme, cfg.UI.Theme)

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	require.Equal(t, "gsk_from_env", loaded.Provider.GroqAPIKey)
	require.Equal(t, "cosmos", loaded.UI.Theme)
}
