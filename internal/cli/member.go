// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/iea-chat/internal/logging"
	"github.com/jeranaias/iea-chat/internal/membership"
)

func newMemberCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Query the membership list",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check NAME",
		Short: "Look a name up in the membership list",
		Long: `Look a name up the way login does: Unicode-normalized, trimmed and
case-insensitive. Exits with status 3 when the name is not admitted.`,
		Example: `  iea member check "Ani Lestari"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			checker := membership.New(membership.Config{
				BaseURL:           cfg.Membership.BaseURL,
				Groups:            cfg.Membership.Groups,
				Auth:              cfg.Membership.Auth,
				Timeout:           cfg.Membership.Timeout.Duration,
				RequestsPerSecond: cfg.Membership.RequestsPerSecond,
			}, logging.New(cmd.ErrOrStderr(), cfg.Logging.Level))
			return checkMember(cmd, checker, strings.Join(args, " "))
		},
	})
	return cmd
}

func checkMember(cmd *cobra.Command, members *membership.Checker, name string) error {
	out := cmd.OutOrStdout()
	m, err := members.Lookup(cmd.Context(), name)

	var lerr *membership.LookupError
	switch {
	case err == nil:
		fmt.Fprintln(out, successStyle.Render("Terdaftar"))
		printField(out, "Nama", m.Name)
		printField(out, "Grup", m.Group)
		printField(out, "Kunci", m.Key)
		return nil
	case errors.Is(err, membership.ErrNotMember):
		fmt.Fprintln(out, warningStyle.Render("Tidak terdaftar: "+membership.Normalize(name)))
	case errors.As(err, &lerr):
		fmt.Fprintln(out, errorStyle.Render("Daftar anggota tidak dapat diperiksa"))
		printField(out, "Grup", lerr.Group)
		printField(out, "Coba lagi", lerr.Transient())
	}
	return err
}
