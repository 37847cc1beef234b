// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/iea-chat/internal/membership"
)

// MemberLookup is the membership check used at login.
// *membership.Checker implements it.
type MemberLookup interface {
	Lookup(ctx context.Context, name string) (membership.Member, error)
}

// Login admits name only when the membership list confirms it. A blank
// name is a ValidationError. Every other failure, including an unreachable
// list, wraps ErrAccessDenied together with its cause.
func Login(ctx context.Context, members MemberLookup, name string) (membership.Member, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return membership.Member{}, &ValidationError{Field: "name", Message: "nama wajib diisi"}
	}
	if members == nil {
		return membership.Member{}, fmt.Errorf("%w: %w", ErrAccessDenied, membership.ErrNotConfigured)
	}

	m, err := members.Lookup(ctx, name)
	switch {
	case err == nil:
		return m, nil
	case errors.Is(err, membership.ErrEmptyName):
		return membership.Member{}, &ValidationError{Field: "name", Message: "nama wajib diisi", Err: err}
	default:
		return membership.Member{}, fmt.Errorf("%w: %w", ErrAccessDenied, err)
	}
}
