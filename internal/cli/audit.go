// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/iea-chat/internal/audit"
	"github.com/jeranaias/iea-chat/internal/util"
)

func newAuditCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the log of logins and model calls",
	}

	var (
		limit     int
		sessionID string
	)
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Print recent audit entries and call totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			path, err := cfg.AuditPath()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			// Reading must not create the database.
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				fmt.Fprintln(out, dimStyle.Render("Belum ada catatan audit."))
				return nil
			}

			l, err := audit.Open(path)
			if err != nil {
				return err
			}
			defer l.Close()

			var entries []audit.Entry
			if sessionID != "" {
				entries, err = l.Session(cmd.Context(), sessionID)
			} else {
				entries, err = l.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}
			stats, err := l.Stats(cmd.Context())
			if err != nil {
				return err
			}
			printAudit(out, entries, stats)
			return nil
		},
	}
	tail.Flags().IntVarP(&limit, "lines", "n", 20, "number of entries")
	tail.Flags().StringVar(&sessionID, "session", "", "show one session, oldest first")

	cmd.AddCommand(tail)
	return cmd
}

func printAudit(w io.Writer, entries []audit.Entry, stats audit.Stats) {
	fmt.Fprintln(w, titleStyle.Render("Audit"))
	if len(entries) == 0 {
		fmt.Fprintln(w, dimStyle.Render("Tidak ada entri."))
	}
	for _, e := range entries {
		fmt.Fprintln(w, formatEntry(e))
	}
	fmt.Fprintln(w)
	printField(w, "Panggilan", stats.Calls)
	printField(w, "Gagal", stats.Failed)
	printField(w, "Model cadangan", stats.Degraded)
}

// formatEntry renders one row: time, kind, identity, then call details.
func formatEntry(e audit.Entry) string {
	parts := []string{
		e.At.Local().Format("2006-01-02 15:04:05"),
		util.PadWidth(string(e.Kind), 6),
		util.PadWidth(util.FitWidth(e.Identity, 20), 20),
	}
	if e.Kind == audit.KindCall {
		call := fmt.Sprintf("%s/%s %s %dms", e.Provider, e.Model, e.Outcome, e.Latency.Milliseconds())
		if e.Degraded {
			call += " (cadangan)"
		}
		parts = append(parts, call)
		if e.Error != "" {
			parts = append(parts, errorStyle.Render(util.FitWidth(e.Error, 60)))
		}
	}
	return strings.TrimRight(strings.Join(parts, "  "), " ")
}
