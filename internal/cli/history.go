// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/jeranaias/iea-chat/internal/commands"
	"github.com/jeranaias/iea-chat/internal/config"
	"github.com/jeranaias/iea-chat/internal/logging"
	"github.com/jeranaias/iea-chat/internal/session"
	"github.com/jeranaias/iea-chat/internal/storage"
	uistyles "github.com/jeranaias/iea-chat/internal/ui/styles"
)

// historyIdentity names the session the history commands work in.
const historyIdentity = "cli"

func newHistoryCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show, export, import or clear the saved conversation",
	}

	var yes bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the saved conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return ErrConfirmationRequired
			}
			return runHistoryCommand(cmd, opts, "/clear")
		},
	}
	clearCmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the saved conversation",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := opts.loadConfig()
				if err != nil {
					return err
				}
				store, err := openHistory(cfg, logging.New(cmd.ErrOrStderr(), cfg.Logging.Level))
				if err != nil {
					return err
				}
				return printHistory(cmd.OutOrStdout(), store)
			},
		},
		&cobra.Command{
			Use:   "export FILE",
			Short: "Write the conversation to FILE (JSON, or Markdown for .md)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runHistoryCommand(cmd, opts, "/export", args[0])
			},
		},
		&cobra.Command{
			Use:   "import FILE",
			Short: "Add the turns of a JSON export in front of the conversation",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runHistoryCommand(cmd, opts, "/import", args[0])
			},
		},
		clearCmd,
	)
	return cmd
}

// openHistory loads the history file into a store that saves back to it.
func openHistory(cfg *config.Config, logger *log.Logger) (*session.Store, error) {
	path, err := cfg.HistoryPath()
	if err != nil {
		return nil, err
	}
	store := session.NewStore(storage.NewHistoryFile(path), logger)
	store.Load()
	return store, nil
}

func printHistory(w io.Writer, store *session.Store) error {
	turns := store.Turns()
	if len(turns) == 0 {
		fmt.Fprintln(w, dimStyle.Render("Belum ada percakapan."))
		return nil
	}
	fmt.Fprintln(w, storage.FormatTurnList(turns, TerminalWidth()))
	return nil
}

// runHistoryCommand runs a slash command against the saved history, the
// same way the chat does.
func runHistoryCommand(cmd *cobra.Command, opts *globalOptions, name string, args ...string) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger := logging.New(cmd.ErrOrStderr(), cfg.Logging.Level)
	store, err := openHistory(cfg, logger)
	if err != nil {
		return err
	}

	reg := commands.NewRegistry()
	parsed := commands.ParseResult{
		IsCommand:   true,
		Command:     reg.Get(name),
		CommandName: name,
		Args:        args,
	}
	env := &commands.Env{
		Session:   session.New(historyIdentity, store, 0),
		MaxUpload: cfg.Chat.MaxUploadBytes,
		Title:     uistyles.GetPreset(cfg.UI.Theme).Title,
	}

	res, err := reg.Execute(cmd.Context(), env, parsed)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(res.Message))
	return nil
}
