// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"

	core "github.com/jeranaias/iea-chat/internal/chat"
	"github.com/jeranaias/iea-chat/internal/config"
	"github.com/jeranaias/iea-chat/internal/membership"
)

// Exit codes returned by Execute.
const (
	ExitOK     = 0
	ExitError  = 1
	ExitConfig = 2
	ExitDenied = 3
)

// ErrConfirmationRequired is returned by destructive commands run
// without --yes.
var ErrConfirmationRequired = errors.New("confirmation required: pass --yes")

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	var verrs config.ValidateErrors
	var verr config.ValidationError
	var lerr *membership.LookupError
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, core.ErrAccessDenied), errors.Is(err, membership.ErrNotMember), errors.As(err, &lerr):
		return ExitDenied
	case errors.As(err, &verrs), errors.As(err, &verr):
		return ExitConfig
	default:
		return ExitError
	}
}
