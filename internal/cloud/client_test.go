// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/iea-chat/internal/model"
	"github.com/jeranaias/iea-chat/internal/router"
)

const okBody = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "llama-3.3-70b-versatile",
	"choices": [{
		"index": 0,
		"message": {"role": "assistant", "content": "Hai!"},
		"finish_reason": "stop"
	}],
	"usage": {"prompt_tokens": 10, "completion_tokens": 2, "total_tokens": 12}
}`

type captured struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []ChatMessage `json:"messages"`
}

func newServer(t *testing.T, status int, body string, got *captured, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		if r.URL.Path != "/openai/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if got != nil {
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestChat_Success(t *testing.T) {
	var got captured
	srv := newServer(t, http.StatusOK, okBody, &got, nil)
	c := NewClient(Config{APIKey: "gsk_test", BaseURL: srv.URL + "/openai/v1"})

	text, err := c.Chat(context.Background(), PrimaryModel, []ChatMessage{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "Halo"},
		{Role: "assistant", Content: "Hai"},
	}, 0.7)

	require.NoError(t, err)
	require.Equal(t, "Hai!", text)
	require.Equal(t, PrimaryModel, got.Model)
	require.InDelta(t, 0.7, got.Temperature, 1e-9)
	require.Equal(t, []ChatMessage{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "Halo"},
		{Role: "assistant", Content: "Hai"},
	}, got.Messages)
}

func TestComplete_ImplementsCompleter(t *testing.T) {
	srv := newServer(t, http.StatusOK, okBody, nil, nil)
	var c router.Completer = NewClient(Config{APIKey: "gsk_test", BaseURL: srv.URL + "/openai/v1/"})

	text, err := c.Complete(context.Background(), router.Request{
		Model:    FallbackModel,
		Messages: []model.Message{{Role: model.RoleUser, Content: "Halo"}},
	})
	require.NoError(t, err)
	require.Equal(t, "Hai!", text)
}

func TestChat_NotConfigured(t *testing.T) {
	var calls atomic.Int32
	srv := newServer(t, http.StatusOK, okBody, nil, &calls)
	c := NewClient(Config{BaseURL: srv.URL + "/openai/v1"})

	_, err := c.Chat(context.Background(), PrimaryModel, []ChatMessage{{Role: "user", Content: "x"}}, 0.7)
	require.ErrorIs(t, err, ErrNotConfigured)
	require.Equal(t, int32(0), calls.Load())
	require.False(t, c.IsConfigured())
	require.Equal(t, "none", c.KeyFingerprint())
}

func TestChat_ErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrAuthFailed},
		{http.StatusPaymentRequired, ErrInsufficientCredits},
		{http.StatusNotFound, ErrModelNotFound},
		{http.StatusTooManyRequests, ErrRateLimited},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var calls atomic.Int32
			body := `{"error":{"message":"nope","type":"invalid_request_error","code":"x"}}`
			srv := newServer(t, tt.status, body, nil, &calls)
			c := NewClient(Config{APIKey: "gsk_test", BaseURL: srv.URL + "/openai/v1"})

			_, err := c.Chat(context.Background(), PrimaryModel, []ChatMessage{{Role: "user", Content: "x"}}, 0.7)
			require.ErrorIs(t, err, tt.want)
			require.Equal(t, int32(1), calls.Load(), "SDK retries must be disabled")
		})
	}
}

func TestChat_ServerError(t *testing.T) {
	srv := newServer(t, http.StatusInternalServerError, `{"error":{"message":"overloaded"}}`, nil, nil)
	c := NewClient(Config{APIKey: "gsk_test", BaseURL: srv.URL + "/openai/v1"})

	_, err := c.Chat(context.Background(), PrimaryModel, []ChatMessage{{Role: "user", Content: "x"}}, 0.7)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusInternalServerError, apiErr.Status)
}

func TestChat_NoChoices(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`, nil, nil)
	c := NewClient(Config{APIKey: "gsk_test", BaseURL: srv.URL + "/openai/v1"})

	_, err := c.Chat(context.Background(), PrimaryModel, []ChatMessage{{Role: "user", Content: "x"}}, 0.7)
	require.ErrorIs(t, err, ErrNoChoices)
}

func TestKeyFingerprint(t *testing.T) {
	c := NewClient(Config{APIKey: "gsk_secret_value"})
	fp := c.KeyFingerprint()
	require.Len(t, fp, 8)
	require.NotContains(t, fp, "secret")
	require.Equal(t, DefaultGroqURL+"/", c.BaseURL())
}
