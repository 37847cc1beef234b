// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jeranaias/iea-chat/internal/cloud"
	"github.com/jeranaias/iea-chat/internal/config"
	"github.com/jeranaias/iea-chat/internal/ollama"
	"github.com/jeranaias/iea-chat/internal/router"
	"github.com/jeranaias/iea-chat/internal/window"
)

// Backend is the provider chosen at startup.
type Backend struct {
	// Kind is the resolved provider: groq, ollama or none. Never auto.
	Kind     string
	Endpoint string
	// KeyID is a fingerprint of the API key for logs, empty without a key.
	KeyID  string
	Policy *router.Policy
}

// probeTimeout bounds the startup check of a local server.
const probeTimeout = 3 * time.Second

// Describe returns a one-line summary for status bars.
func (b Backend) Describe() string {
	if b.Policy == nil || !b.Policy.Available() {
		return "tidak ada model"
	}
	s := b.Kind + " · " + b.Policy.Primary.Model
	if b.Policy.Fallback.Client != nil {
		s += " → " + b.Policy.Fallback.Model
	}
	return s
}

// Resolve maps the provider setting to a Policy once at startup. auto picks
// groq when an API key is present and none otherwise. groq without a key
// also resolves to none, so calls fail fast as unavailable.
func Resolve(cfg config.ProviderConfig) Backend {
	kind := strings.ToLower(strings.TrimSpace(cfg.Kind))
	if kind == "" || kind == config.ProviderAuto {
		kind = config.ProviderNone
		if cfg.GroqAPIKey != "" {
			kind = config.ProviderGroq
		}
	}
	if kind == config.ProviderGroq && cfg.GroqAPIKey == "" {
		kind = config.ProviderNone
	}

	policy := &router.Policy{
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout.Duration,
	}

	switch kind {
	case config.ProviderGroq:
		c := cloud.NewClient(cloud.Config{
			APIKey:  cfg.GroqAPIKey,
			BaseURL: cfg.GroqBaseURL,
			Timeout: cfg.Timeout.Duration,
		})
		policy.Primary = router.Target{Model: orDefault(cfg.PrimaryModel, cloud.PrimaryModel), Client: c}
		policy.Fallback = router.Target{Model: orDefault(cfg.FallbackModel, cloud.FallbackModel), Client: c}
		return Backend{Kind: kind, Endpoint: c.BaseURL(), KeyID: c.KeyFingerprint(), Policy: policy}

	case config.ProviderOllama:
		c := ollama.NewClient(ollama.Config{
			BaseURL: cfg.OllamaURL,
			Timeout: cfg.Timeout.Duration,
		})
		policy.Primary = router.Target{Model: orDefault(cfg.OllamaPrimary, ollama.DefaultPrimaryModel), Client: c}
		policy.Fallback = router.Target{Model: orDefault(cfg.OllamaFallback, ollama.DefaultFallbackModel), Client: c}
		return Backend{Kind: kind, Endpoint: c.BaseURL(), Policy: policy}

	default:
		return Backend{Kind: config.ProviderNone, Policy: policy}
	}
}

// Verify probes an Ollama backend once at startup. An unreachable server
// resolves to none, so each turn gets the setup notice rather than a model
// error. Models the server has not pulled are logged. Other backends are
// returned unchanged.
func Verify(ctx context.Context, b Backend, logger *log.Logger) Backend {
	if b.Policy == nil {
		return b
	}
	c, ok := b.Policy.Primary.Client.(*ollama.Client)
	if !ok {
		return b
	}
	if logger == nil {
		logger = log.Default()
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := c.CheckRunning(ctx); err != nil {
		logger.Warn("ollama unreachable, model calls disabled", "url", c.BaseURL(), "err", err)
		return Backend{
			Kind:     config.ProviderNone,
			Endpoint: b.Endpoint,
			Policy:   &router.Policy{Temperature: b.Policy.Temperature, Timeout: b.Policy.Timeout},
		}
	}

	models, err := c.ListModels(ctx)
	if err != nil {
		logger.Warn("ollama model list failed", "url", c.BaseURL(), "err", err)
		return b
	}
	for _, t := range []router.Target{b.Policy.Primary, b.Policy.Fallback} {
		if !ollama.HasModel(models, t.Model) {
			logger.Warn("ollama model not pulled", "model", t.Model, "hint", "ollama pull "+t.Model)
		}
	}
	return b
}

// SystemPrompt builds the system instruction from the persona settings.
func SystemPrompt(p config.PersonaConfig) string {
	if s := strings.TrimSpace(p.SystemPrompt); s != "" {
		return s
	}
	ins := window.DefaultInstruction()
	if p.Language != "" {
		ins.Language = p.Language
	}
	return ins.String()
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
