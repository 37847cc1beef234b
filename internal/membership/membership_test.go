// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package membership

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"
)

func quiet() *log.Logger { return log.New(io.Discard) }

func listServer(t *testing.T, groups map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := groups[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"  Budi Santoso ": "budi santoso",
		"SITI":            "siti",
		"ﾃｽﾄ":             "テスト",
		"Ｂｕｄｉ":            "budi",
		"":                "",
		"   ":             "",
	}
	for in, want := range tests {
		require.Equal(t, want, Normalize(in), "Normalize(%q)", in)
	}
}

func TestLookup_FoundInSecondGroup(t *testing.T) {
	srv := listServer(t, map[string]string{
		"/members.json": `{"-Nabc":{"name":"Budi"},"-Nxyz":{"name":"Siti"}}`,
		"/admins.json":  `{"-Nadm":{"name":"Rina Wijaya"},"junk":42}`,
	})
	c := New(Config{BaseURL: srv.URL}, quiet())

	m, err := c.Lookup(context.Background(), "  rina WIJAYA ")
	require.NoError(t, err)
	require.Equal(t, Member{Key: "-Nadm", Name: "Rina Wijaya", Group: "admins"}, m)
	require.True(t, c.IsMember(context.Background(), "siti"))
}

func TestLookup_NotMember(t *testing.T) {
	srv := listServer(t, map[string]string{
		"/members.json": `{"a":{"name":"Budi"}}`,
		"/admins.json":  `null`,
	})
	c := New(Config{BaseURL: srv.URL}, quiet())

	_, err := c.Lookup(context.Background(), "Andi")
	require.ErrorIs(t, err, ErrNotMember)
	require.False(t, c.IsMember(context.Background(), "Andi"))
}

func TestLookup_ExactMatchOnly(t *testing.T) {
	srv := listServer(t, map[string]string{
		"/members.json": `{"a":{"name":"Budi Santoso"}}`,
		"/admins.json":  `{}`,
	})
	c := New(Config{BaseURL: srv.URL}, quiet())

	require.False(t, c.IsMember(context.Background(), "Budi"))
	require.True(t, c.IsMember(context.Background(), "budi santoso"))
}

func TestLookup_EmptyName(t *testing.T) {
	c := New(Config{BaseURL: "http://unused"}, quiet())
	_, err := c.Lookup(context.Background(), "   ")
	require.ErrorIs(t, err, ErrEmptyName)
}

func TestLookup_NotConfigured(t *testing.T) {
	c := New(Config{}, quiet())
	_, err := c.Lookup(context.Background(), "Budi")

	var le *LookupError
	require.True(t, errors.As(err, &le))
	require.ErrorIs(t, err, ErrNotConfigured)
	require.False(t, le.Transient())
	require.False(t, c.IsMember(context.Background(), "Budi"))
}

func TestLookup_EndpointTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, quiet())

	_, err := c.Lookup(context.Background(), "Budi")
	var le *LookupError
	require.True(t, errors.As(err, &le))
	require.Equal(t, "members", le.Group)
	require.True(t, le.Transient())

	require.False(t, c.IsMember(context.Background(), "Budi"), "lookup failure must deny")
}

func TestLookup_OneGroupFailsOtherMatches(t *testing.T) {
	srv := listServer(t, map[string]string{
		"/admins.json": `{"x":{"name":"Budi"}}`,
	})
	c := New(Config{BaseURL: srv.URL}, quiet())

	m, err := c.Lookup(context.Background(), "budi")
	require.NoError(t, err)
	require.Equal(t, "admins", m.Group)
}

func TestLookup_BadJSON(t *testing.T) {
	srv := listServer(t, map[string]string{
		"/members.json": `<html>maintenance</html>`,
		"/admins.json":  `{}`,
	})
	c := New(Config{BaseURL: srv.URL}, quiet())

	_, err := c.Lookup(context.Background(), "Budi")
	var le *LookupError
	require.True(t, errors.As(err, &le))
}

func TestLookup_AuthParameter(t *testing.T) {
	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.URL.Query().Get("auth"))
		w.Write([]byte(`{"a":{"name":"Budi"}}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Groups: []string{"anggota"}, Auth: "tok en"}, quiet())
	require.True(t, c.IsMember(context.Background(), "Budi"))
	require.Equal(t, "tok en", gotAuth.Load())
}

func TestLookup_Throttled(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Groups: []string{"members"}, RequestsPerSecond: 0.001, Burst: 2}, quiet())

	for i := 0; i < 2; i++ {
		_, err := c.Lookup(context.Background(), "Budi")
		require.ErrorIs(t, err, ErrNotMember)
	}
	_, err := c.Lookup(context.Background(), "Budi")
	require.ErrorIs(t, err, ErrThrottled)
	require.Equal(t, int32(2), hits.Load())
}
