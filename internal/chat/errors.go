// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"time"

	"github.com/jeranaias/iea-chat/internal/ratelimit"
)

// User-facing copy.
const (
	// FailureNotice replaces the reply when both models fail.
	FailureNotice = "Maaf — gagal terhubung ke model AI. Coba lagi nanti."

	// SetupNotice replaces the reply when no backend is configured.
	SetupNotice = "Model AI belum dikonfigurasi. Isi GROQ_API_KEY di .env atau ~/.iea/config.toml, " +
		"atau jalankan Ollama lalu set IEA_PROVIDER=ollama."

	// EmptyNotice is shown for a blank submission.
	EmptyNotice = "Isi pesan atau lampirkan berkas sebelum mengirim."

	// DeniedNotice is shown when login is refused for any reason.
	DeniedNotice = "Akses ditolak — nama tidak terdaftar sebagai anggota IEA."
)

var (
	// ErrRateLimited matches every RateLimitedError.
	ErrRateLimited = errors.New("submission rate limited")

	// ErrDiscarded means the reply arrived after the conversation was
	// cleared and was dropped.
	ErrDiscarded = errors.New("reply discarded: conversation was cleared")

	// ErrInternal wraps a recovered panic.
	ErrInternal = errors.New("internal error")

	// ErrAccessDenied is returned by Login for anything but a confirmed
	// member.
	ErrAccessDenied = errors.New("access denied")
)

// ValidationError rejects a submission before anything happens.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s: %s: %v", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Unwrap returns the cause, if any.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// RateLimitedError rejects a submission that came too soon after the
// previous accepted one.
type RateLimitedError struct {
	RetryIn time.Duration
}

// Error returns the user-facing notice.
func (e *RateLimitedError) Error() string {
	return ratelimit.Notice
}

// Is makes errors.Is(err, ErrRateLimited) true.
func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
