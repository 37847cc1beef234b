// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/jeranaias/iea-chat/internal/model"
	"github.com/jeranaias/iea-chat/internal/router"
)

// Configuration constants for the Groq endpoint.
const (
	// DefaultGroqURL is the OpenAI-compatible base URL of Groq.
	DefaultGroqURL = "https://api.groq.com/openai/v1"

	// PrimaryModel is the large model tried first.
	PrimaryModel = "llama-3.3-70b-versatile"

	// FallbackModel is the small model tried when the primary fails.
	FallbackModel = "llama-3.1-8b-instant"

	// DefaultTimeout is the transport timeout; callers usually set a shorter
	// deadline on the context.
	DefaultTimeout = 60 * time.Second
)

// Error variables for common API failures.
var (
	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("API key not configured")

	// ErrAuthFailed indicates an invalid or revoked API key.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates the account hit its request quota.
	ErrRateLimited = errors.New("rate limited")

	// ErrModelNotFound indicates the requested model does not exist.
	ErrModelNotFound = errors.New("model not found")

	// ErrInsufficientCredits indicates the account cannot pay for the call.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrNoChoices indicates a 200 response without any completion.
	ErrNoChoices = errors.New("response has no choices")
)

// APIError is a non-2xx response that maps to no sentinel error.
type APIError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("chat API error (HTTP %d): %s", e.Status, e.Message)
}

// =============================================================================
// MESSAGES
// =============================================================================

// ChatMessage represents a single message in a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", or "system"
	Content string `json:"content"`
}

// FromModel converts request messages.
func FromModel(msgs []model.Message) []ChatMessage {
	out := make([]ChatMessage, len(msgs))
	for i, m := range msgs {
		out[i] = ChatMessage{Role: string(m.Role), Content: m.Content}
	}
	return out
}

func toParams(msgs []ChatMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// =============================================================================
// CLIENT
// =============================================================================

// Config configures a Client.
type Config struct {
	APIKey  string
	BaseURL string        // default DefaultGroqURL
	Timeout time.Duration // default DefaultTimeout
}

// Client is an OpenAI-compatible chat completion client.
type Client struct {
	api     openai.Client
	apiKey  string
	baseURL string
}

// NewClient creates a client. An empty API key yields a client whose calls
// fail with ErrNotConfigured.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGroqURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	base := strings.TrimRight(cfg.BaseURL, "/") + "/"

	api := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(base),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	)
	return &Client{
		api:     api,
		apiKey:  cfg.APIKey,
		baseURL: base,
	}
}

// IsConfigured returns true if an API key is set.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// BaseURL returns the endpoint the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// KeyFingerprint returns a short hash that identifies the key in logs.
func (c *Client) KeyFingerprint() string {
	if c.apiKey == "" {
		return "none"
	}
	sum := sha256.Sum256([]byte(c.apiKey))
	return hex.EncodeToString(sum[:4])
}

// Chat sends one non-streaming completion request and returns the text of
// the first choice.
func (c *Client) Chat(ctx context.Context, modelName string, messages []ChatMessage, temperature float64) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(modelName),
		Messages:    toParams(messages),
		Temperature: openai.Float(temperature),
	})
	if err != nil {
		return "", mapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

// Complete implements router.Completer.
func (c *Client) Complete(ctx context.Context, req router.Request) (string, error) {
	return c.Chat(ctx, req.Model, FromModel(req.Messages), req.Temperature)
}

// mapError converts SDK errors into the package's error values.
func mapError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	msg := apiErr.Message
	switch apiErr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrAuthFailed, msg)
	case http.StatusPaymentRequired:
		return fmt.Errorf("%w: %s", ErrInsufficientCredits, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrModelNotFound, msg)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, msg)
	default:
		return &APIError{Status: apiErr.StatusCode, Message: msg}
	}
}
