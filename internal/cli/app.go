// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/jeranaias/iea-chat/internal/attach"
	"github.com/jeranaias/iea-chat/internal/audit"
	core "github.com/jeranaias/iea-chat/internal/chat"
	"github.com/jeranaias/iea-chat/internal/commands"
	"github.com/jeranaias/iea-chat/internal/config"
	"github.com/jeranaias/iea-chat/internal/logging"
	"github.com/jeranaias/iea-chat/internal/membership"
	"github.com/jeranaias/iea-chat/internal/reveal"
	"github.com/jeranaias/iea-chat/internal/session"
	"github.com/jeranaias/iea-chat/internal/storage"
	"github.com/jeranaias/iea-chat/internal/ui/styles"
)

// =============================================================================
// GLOBAL OPTIONS
// =============================================================================

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	theme      string
	provider   string
	logLevel   string
}

// loadConfig reads .env, then the config file, then applies the flags.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}

	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFrom(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if o.theme != "" {
		cfg.UI.Theme = strings.ToLower(o.theme)
	}
	if o.provider != "" {
		cfg.Provider.Kind = strings.ToLower(o.provider)
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configFile returns the path the config commands read and write.
func (o *globalOptions) configFile() (string, error) {
	if o.configPath != "" {
		return o.configPath, nil
	}
	return config.Path()
}

// =============================================================================
// APP
// =============================================================================

// App holds the collaborators of a chat run, built once from the config.
type App struct {
	Config   *config.Config
	Logger   *log.Logger
	Engine   *core.Engine
	Members  core.MemberLookup
	Audit    *audit.Log
	History  *storage.HistoryFile
	Commands *commands.Registry
	Emitter  *reveal.Emitter
	Theme    *styles.Theme

	closers []func() error
}

// newApp wires the chat engine from cfg. Audit failures are logged and
// leave auditing off; everything else is required.
func newApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	historyPath, err := cfg.HistoryPath()
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:   cfg,
		Logger:   logger,
		History:  storage.NewHistoryFile(historyPath),
		Commands: commands.NewRegistry(),
		Emitter:  reveal.New(cfg.Chat.RevealChunk, cfg.Chat.RevealDelay.Duration),
		Theme:    styles.NewTheme(cfg.UI.Theme),
		Members: membership.New(membership.Config{
			BaseURL:           cfg.Membership.BaseURL,
			Groups:            cfg.Membership.Groups,
			Auth:              cfg.Membership.Auth,
			Timeout:           cfg.Membership.Timeout.Duration,
			RequestsPerSecond: cfg.Membership.RequestsPerSecond,
		}, logger),
	}

	ingester := attach.NewIngester(attach.Tesseract{Lang: cfg.Chat.OCRLang}, logger)
	if cfg.Chat.MaxUploadBytes > 0 {
		ingester.MaxBytes = cfg.Chat.MaxUploadBytes
	}

	backend := core.Verify(ctx, core.Resolve(cfg.Provider), logger)
	options := []core.Option{
		core.WithIngester(ingester),
		core.WithLogger(logger),
	}

	if cfg.Storage.Audit {
		if auditPath, err := cfg.AuditPath(); err != nil {
			logger.Warn("audit log disabled", "err", err)
		} else if l, err := audit.Open(auditPath); err != nil {
			logger.Warn("audit log disabled", "path", auditPath, "err", err)
		} else {
			app.Audit = l
			app.closers = append(app.closers, l.Close)
			options = append(options, core.WithAudit(l))
		}
	}

	app.Engine = core.NewEngine(backend, core.Options{
		WindowSize: cfg.Chat.WindowSize,
		MaxChars:   cfg.Chat.MaxChars,
		System:     core.SystemPrompt(cfg.Persona),
	}, options...)

	logger.Info("backend resolved", "provider", backend.Kind, "endpoint", backend.Endpoint, "key", backend.KeyID, "backend", backend.Describe())
	return app, nil
}

// NewSession opens identity's session over the shared history file.
func (a *App) NewSession(identity string) *session.Session {
	store := session.NewStore(a.History, a.Logger)
	store.Load()
	return session.New(identity, store, a.Config.Chat.MinInterval.Duration)
}

// Close releases the audit log and the log file.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// =============================================================================
// LOGGERS
// =============================================================================

// fileLogger logs to the configured file while the TUI owns the terminal.
// Falls back to discarding when the file cannot be opened.
func fileLogger(cfg *config.Config) (*log.Logger, func() error) {
	path, err := cfg.LogPath()
	if err == nil {
		l, closeFn, ferr := logging.File(filepath.Clean(path), cfg.Logging.Level)
		if ferr == nil {
			return l, closeFn
		}
	}
	return logging.Discard(), func() error { return nil }
}
