// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/jeranaias/iea-chat/internal/logging"
)

// Version information, set by main from build flags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// NewRootCmd builds the iea command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "iea",
		Short: "Members-only AI chat for IEA",
		Long: `iea is the terminal client of the IEA assistant.

Log in with your name as it appears in the IEA membership list. On a
terminal iea opens the full-screen chat; with piped input it falls back
to line mode. Settings live in ~/.iea/config.toml and can be overridden
with GROQ_API_KEY, IEA_* variables or a .env file.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if Interactive() {
				return runFullScreen(cmd.Context(), opts)
			}
			return runLineMode(cmd, opts)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file (default ~/.iea/config.toml)")
	pf.StringVar(&opts.theme, "theme", "", "theme preset: iea-ai, cosmos or iea-intelligence")
	pf.StringVar(&opts.provider, "provider", "", "model provider: auto, groq, ollama or none")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		newChatCmd(opts),
		newHistoryCmd(opts),
		newMemberCmd(opts),
		newAuditCmd(opts),
		newConfigCmd(opts),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context) int {
	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error:"), err)
		return ExitCode(err)
	}
	return ExitOK
}

// =============================================================================
// CHAT
// =============================================================================

func newChatCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat in line mode",
		Long: `Chat without the full-screen interface. Replies are printed as they
are revealed. Slash commands work as in the full-screen chat; Tab
completes them and file paths. Ctrl+C cancels a reply, Ctrl+D exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLineMode(cmd, opts)
		},
	}
}

// runFullScreen logs to a file, since the TUI owns the terminal.
func runFullScreen(ctx context.Context, opts *globalOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog := fileLogger(cfg)
	defer closeLog()
	logging.Install(logger)

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()
	return runTUI(ctx, app)
}

// runLineMode logs to stderr, warnings and up unless --log-level says
// otherwise, so info lines don't interleave with the chat.
func runLineMode(cmd *cobra.Command, opts *globalOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	level := cfg.Logging.Level
	if opts.logLevel == "" && logging.ParseLevel(level) < log.WarnLevel {
		level = "warn"
	}
	logger := logging.New(cmd.ErrOrStderr(), level)
	logging.Install(logger)

	app, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	in := newLinerReader(app.Commands)
	defer in.Close()
	return newLineChat(app, in, cmd.OutOrStdout()).Run(cmd.Context())
}
