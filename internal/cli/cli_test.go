// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/iea-chat/internal/audit"
	core "github.com/jeranaias/iea-chat/internal/chat"
	"github.com/jeranaias/iea-chat/internal/config"
	"github.com/jeranaias/iea-chat/internal/membership"
	"github.com/jeranaias/iea-chat/internal/model"
	"github.com/jeranaias/iea-chat/internal/storage"
)

// =============================================================================
// HELPERS
// =============================================================================

// isolate points HOME at a temp dir and clears every override variable.
// Returns the temp home.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	for _, k := range []string{
		"GROQ_API_KEY", "IEA_PROVIDER", "IEA_MEMBERSHIP_URL", "IEA_MEMBERSHIP_AUTH",
		"IEA_THEME", "IEA_HISTORY_FILE", "IEA_LOG_LEVEL", "OLLAMA_HOST",
	} {
		t.Setenv(k, "")
	}
	return home
}

// run executes the command line and returns what it printed to stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func seedHistory(t *testing.T, path string, texts ...string) {
	t.Helper()
	turns := make([]model.Turn, 0, len(texts))
	for i, text := range texts {
		if i%2 == 0 {
			turns = append(turns, model.NewUserTurn(text))
		} else {
			turns = append(turns, model.NewAssistantTurn(text))
		}
	}
	require.NoError(t, storage.NewHistoryFile(path).Save(turns))
}

func loadHistory(t *testing.T, path string) []model.Turn {
	t.Helper()
	turns, err := storage.NewHistoryFile(path).Load()
	require.NoError(t, err)
	return turns
}

// =============================================================================
// CONFIG
// =============================================================================

func TestConfigInitSetGet(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, ".iea", "config.toml")

	out, err := run(t, "config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, "(not created)")

	out, err = run(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, path)
	require.FileExists(t, path)

	_, err = run(t, "config", "init")
	require.Error(t, err)
	_, err = run(t, "config", "init", "--force")
	require.NoError(t, err)

	_, err = run(t, "config", "set", "ui.theme", "cosmos")
	require.NoError(t, err)
	out, err = run(t, "config", "get", "ui.theme")
	require.NoError(t, err)
	assert.Equal(t, "cosmos\n", out)

	_, err = run(t, "config", "set", "membership.groups", "anggota,pengurus")
	require.NoError(t, err)
	out, err = run(t, "config", "get", "membership.groups")
	require.NoError(t, err)
	assert.Equal(t, "anggota,pengurus\n", out)

	_, err = run(t, "config", "set", "chat.window_size", "0")
	require.Error(t, err)
	assert.Equal(t, ExitConfig, ExitCode(err))

	_, err = run(t, "config", "get", "chat.nope")
	require.Error(t, err)
}

func TestConfigSetDoesNotPersistEnvironment(t *testing.T) {
	home := isolate(t)
	t.Setenv("GROQ_API_KEY", "gsk_0123456789abcdef")

	_, err := run(t, "config", "set", "chat.window_size", "6")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(home, ".iea", "config.toml"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "gsk_")
	assert.Contains(t, string(data), "window_size = 6")

	out, err := run(t, "config", "get", "provider.groq_api_key")
	require.NoError(t, err)
	assert.Equal(t, "gsk_...cdef\n", out)
}

func TestConfigShowMasksSecrets(t *testing.T) {
	isolate(t)
	t.Setenv("GROQ_API_KEY", "gsk_0123456789abcdef")

	out, err := run(t, "config", "show", "--theme", "iea-intelligence")
	require.NoError(t, err)
	assert.Contains(t, out, `theme = "iea-intelligence"`)
	assert.Contains(t, out, "gsk_...cdef")
	assert.NotContains(t, out, "0123456789")
}

func TestInvalidFlagIsConfigError(t *testing.T) {
	isolate(t)
	_, err := run(t, "config", "show", "--theme", "neon")
	require.Error(t, err)
	assert.Equal(t, ExitConfig, ExitCode(err))
}

// =============================================================================
// HISTORY
// =============================================================================

func TestHistoryShowExportClearImport(t *testing.T) {
	home := isolate(t)
	history := filepath.Join(home, "riwayat.json")
	t.Setenv("IEA_HISTORY_FILE", history)

	out, err := run(t, "history", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Belum ada percakapan.")

	seedHistory(t, history, "Halo", "Hai!")

	out, err = run(t, "history", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Halo")
	assert.Contains(t, out, "Hai!")

	backup := filepath.Join(home, "backup.json")
	out, err = run(t, "history", "export", backup)
	require.NoError(t, err)
	assert.Contains(t, out, "2 pesan diekspor")

	md := filepath.Join(home, "riwayat.md")
	_, err = run(t, "history", "export", md)
	require.NoError(t, err)
	data, err := os.ReadFile(md)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Halo")

	_, err = run(t, "history", "clear")
	require.ErrorIs(t, err, ErrConfirmationRequired)
	require.Len(t, loadHistory(t, history), 2)

	out, err = run(t, "history", "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Riwayat dihapus.")
	require.Empty(t, loadHistory(t, history))

	out, err = run(t, "history", "import", backup)
	require.NoError(t, err)
	assert.Contains(t, out, "2 pesan diimpor.")
	turns := loadHistory(t, history)
	require.Len(t, turns, 2)
	assert.Equal(t, "Halo", turns[0].Text)
	assert.Equal(t, "Hai!", turns[1].Text)
}

func TestHistoryImportMissingFile(t *testing.T) {
	home := isolate(t)
	t.Setenv("IEA_HISTORY_FILE", filepath.Join(home, "riwayat.json"))

	_, err := run(t, "history", "import", filepath.Join(home, "nope.json"))
	require.Error(t, err)
	assert.Equal(t, ExitError, ExitCode(err))
}

// =============================================================================
// MEMBER
// =============================================================================

func memberServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/members.json":
			fmt.Fprint(w, `{"-Nabc":{"name":"Ani Lestari"}}`)
		case "/admins.json":
			fmt.Fprint(w, `{}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestMemberCheck(t *testing.T) {
	isolate(t)
	t.Setenv("IEA_MEMBERSHIP_URL", memberServer(t).URL)

	out, err := run(t, "member", "check", "  ANI", "lestari ")
	require.NoError(t, err)
	assert.Contains(t, out, "Terdaftar")
	assert.Contains(t, out, "Ani Lestari")
	assert.Contains(t, out, "members")

	out, err = run(t, "member", "check", "Budi")
	require.ErrorIs(t, err, membership.ErrNotMember)
	assert.Contains(t, out, "Tidak terdaftar: budi")
	assert.Equal(t, ExitDenied, ExitCode(err))
}

func TestMemberCheckUnreachable(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	t.Setenv("IEA_MEMBERSHIP_URL", srv.URL)

	out, err := run(t, "member", "check", "Ani Lestari")
	require.Error(t, err)
	var lerr *membership.LookupError
	require.ErrorAs(t, err, &lerr)
	assert.Contains(t, out, "tidak dapat diperiksa")
	assert.Equal(t, ExitDenied, ExitCode(err))
}

// =============================================================================
// AUDIT
// =============================================================================

func TestAuditTail(t *testing.T) {
	home := isolate(t)

	out, err := run(t, "audit", "tail")
	require.NoError(t, err)
	assert.Contains(t, out, "Belum ada catatan audit.")
	require.NoFileExists(t, filepath.Join(home, ".iea", "audit.db"))

	require.NoError(t, os.MkdirAll(filepath.Join(home, ".iea"), 0o700))
	l, err := audit.Open(filepath.Join(home, ".iea", "audit.db"))
	require.NoError(t, err)
	ctx := context.Background()
	_, err = l.Record(ctx, audit.Entry{Kind: audit.KindLogin, SessionID: "s1", Identity: "Ani Lestari"})
	require.NoError(t, err)
	_, err = l.Record(ctx, audit.Entry{
		Kind: audit.KindCall, SessionID: "s1", Identity: "Ani Lestari",
		Provider: "groq", Model: "llama-3.1-8b-instant", Outcome: "success",
		Degraded: true, Latency: 420 * time.Millisecond,
	})
	require.NoError(t, err)
	_, err = l.Record(ctx, audit.Entry{Kind: audit.KindLogin, SessionID: "s2", Identity: "Budi"})
	require.NoError(t, err)
	require.NoError(t, l.Close())

	out, err = run(t, "audit", "tail")
	require.NoError(t, err)
	assert.Contains(t, out, "Ani Lestari")
	assert.Contains(t, out, "Budi")
	assert.Contains(t, out, "groq/llama-3.1-8b-instant success 420ms (cadangan)")

	out, err = run(t, "audit", "tail", "--session", "s1")
	require.NoError(t, err)
	assert.Contains(t, out, "Ani Lestari")
	assert.NotContains(t, out, "Budi")
	lines := strings.Split(out, "\n")
	assert.Contains(t, lines[1], "login")
	assert.Contains(t, lines[2], "call")
}

// =============================================================================
// EXIT CODES
// =============================================================================

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"denied", fmt.Errorf("%w: %w", core.ErrAccessDenied, membership.ErrNotMember), ExitDenied},
		{"lookup", &membership.LookupError{Group: "members", Err: errors.New("timeout")}, ExitDenied},
		{"config", fmt.Errorf("invalid config: %w", config.ValidateErrors{{Field: "ui.theme", Message: "unknown"}}), ExitConfig},
		{"confirm", ErrConfirmationRequired, ExitError},
		{"other", errors.New("boom"), ExitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
