// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package attach

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrOCRUnavailable is returned when no OCR engine is installed.
var ErrOCRUnavailable = errors.New("ocr engine not available")

// OCR extracts text from an encoded image.
type OCR interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// OCRFunc adapts a function to the OCR interface.
type OCRFunc func(ctx context.Context, image []byte) (string, error)

// Recognize calls f.
func (f OCRFunc) Recognize(ctx context.Context, image []byte) (string, error) {
	return f(ctx, image)
}

// Tesseract runs the tesseract command line tool, reading the image from
// stdin and the text from stdout.
type Tesseract struct {
	// Path to the binary. Empty means look up "tesseract" in PATH.
	Path string
	// Lang is passed as -l, e.g. "ind+eng".
	Lang    string
	Timeout time.Duration
}

// Available reports whether the binary can be found.
func (t Tesseract) Available() bool {
	_, err := t.binary()
	return err == nil
}

func (t Tesseract) binary() (string, error) {
	name := t.Path
	if name == "" {
		name = "tesseract"
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", ErrOCRUnavailable
	}
	return path, nil
}

// Recognize implements OCR.
func (t Tesseract) Recognize(ctx context.Context, image []byte) (string, error) {
	bin, err := t.binary()
	if err != nil {
		return "", err
	}

	timeout := t.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{"stdin", "stdout"}
	if t.Lang != "" {
		args = append(args, "-l", t.Lang)
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdin = bytes.NewReader(image)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("tesseract: %w: %s", err, msg)
		}
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return strings.TrimSpace(stdout.String()), nil
}
