// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package attach

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/ledongthuc/pdf"

	"github.com/jeranaias/iea-chat/internal/model"
	"github.com/jeranaias/iea-chat/internal/util"
)

const (
	// DefaultMaxBytes is the upload size limit.
	DefaultMaxBytes int64 = 10 << 20

	// DefaultNoteLimit caps the derived note, in characters.
	DefaultNoteLimit = 4000

	// ThumbSize bounds both thumbnail edges.
	ThumbSize = 640

	imageHeader = "[Analisis gambar]"
	pdfHeader   = "[Isi PDF]"
)

// ErrEmptyUpload is returned for a zero-byte upload.
var ErrEmptyUpload = errors.New("upload is empty")

// SizeError is returned when an upload exceeds the limit.
type SizeError struct {
	Filename string
	Size     int64
	Limit    int64
}

// Error implements the error interface.
func (e *SizeError) Error() string {
	return fmt.Sprintf("%s is %d bytes, limit is %d", e.Filename, e.Size, e.Limit)
}

// Upload is a file handed over by the user.
type Upload struct {
	Filename string
	Data     []byte
}

// ReadFile loads path as an Upload, refusing files over limit without
// reading them. A non-positive limit means DefaultMaxBytes.
func ReadFile(path string, limit int64) (Upload, error) {
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	name := filepath.Base(path)

	info, err := os.Stat(path)
	if err != nil {
		return Upload{}, err
	}
	if info.IsDir() {
		return Upload{}, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > limit {
		return Upload{}, &SizeError{Filename: name, Size: info.Size(), Limit: limit}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Upload{}, err
	}
	return Upload{Filename: name, Data: data}, nil
}

// Ingester converts uploads into attachments.
type Ingester struct {
	OCR       OCR
	MaxBytes  int64
	NoteLimit int
	Logger    *log.Logger
}

// NewIngester returns an Ingester with default limits. A nil ocr skips
// text recognition.
func NewIngester(ocr OCR, logger *log.Logger) *Ingester {
	if logger == nil {
		logger = log.Default()
	}
	return &Ingester{
		OCR:       ocr,
		MaxBytes:  DefaultMaxBytes,
		NoteLimit: DefaultNoteLimit,
		Logger:    logger,
	}
}

// Validate rejects empty and oversized uploads.
func (in *Ingester) Validate(up Upload) error {
	size := int64(len(up.Data))
	limit := in.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	if size == 0 {
		return ErrEmptyUpload
	}
	if size > limit {
		return &SizeError{Filename: up.Filename, Size: size, Limit: limit}
	}
	return nil
}

// Ingest classifies the upload by content and builds its attachment. Only
// uploads that fail Validate are errors; every other problem produces a
// receipt note instead.
func (in *Ingester) Ingest(ctx context.Context, up Upload) (model.Attachment, error) {
	if err := in.Validate(up); err != nil {
		return model.Attachment{}, err
	}
	size := int64(len(up.Data))

	a := model.Attachment{
		Kind:     model.AttachmentFile,
		Filename: up.Filename,
		Size:     size,
	}

	switch ct := http.DetectContentType(up.Data); {
	case strings.HasPrefix(ct, "image/png"), strings.HasPrefix(ct, "image/jpeg"), strings.HasPrefix(ct, "image/gif"):
		if in.image(ctx, up, &a) {
			return a, nil
		}
	case strings.HasPrefix(ct, "application/pdf"):
		a.Kind = model.AttachmentPDF
		in.pdf(up, &a)
		return a, nil
	}

	a.Kind = model.AttachmentFile
	a.Note = ReceiptNote(up.Filename, size)
	return a, nil
}

// image fills a for a decodable image. It reports false when the bytes do
// not decode.
func (in *Ingester) image(ctx context.Context, up Upload, a *model.Attachment) bool {
	img, err := imaging.Decode(bytes.NewReader(up.Data), imaging.AutoOrientation(true))
	if err != nil {
		in.Logger.Warn("image decode failed", "file", up.Filename, "err", err)
		return false
	}

	b := img.Bounds()
	a.Kind = model.AttachmentImage
	a.Width, a.Height = b.Dx(), b.Dy()

	thumb := imaging.Fit(img, ThumbSize, ThumbSize, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.PNG); err != nil {
		in.Logger.Warn("thumbnail encode failed", "file", up.Filename, "err", err)
	} else {
		a.ThumbB64 = base64.StdEncoding.EncodeToString(buf.Bytes())
	}

	line := fmt.Sprintf("Gambar diterima — resolusi %dx%d px.", a.Width, a.Height)
	if in.OCR != nil {
		text, err := in.OCR.Recognize(ctx, up.Data)
		switch {
		case err != nil:
			in.Logger.Debug("ocr failed", "file", up.Filename, "err", err)
		case strings.TrimSpace(text) != "":
			line = "OCR: " + strings.TrimSpace(text)
		}
	}
	a.Note = in.cap(imageHeader + "\n" + line)
	return true
}

func (in *Ingester) pdf(up Upload, a *model.Attachment) {
	text, err := PDFText(up.Data)
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			in.Logger.Warn("pdf text extraction failed", "file", up.Filename, "err", err)
		}
		a.Note = ReceiptNote(up.Filename, a.Size)
		return
	}
	a.Note = in.cap(pdfHeader + "\n" + strings.TrimSpace(text))
}

func (in *Ingester) cap(note string) string {
	limit := in.NoteLimit
	if limit <= 0 {
		limit = DefaultNoteLimit
	}
	return util.CutRunes(note, limit)
}

// ReceiptNote is the note for an artifact whose content was not read.
func ReceiptNote(filename string, size int64) string {
	return fmt.Sprintf("Berkas diterima: %s (%d bytes).", filename, size)
}

// PDFText extracts the plain text of every page.
func PDFText(data []byte) (text string, err error) {
	// The pdf reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
