// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package attach turns an uploaded file into attachment metadata plus a
// short derived note for the model.
//
// Images get a PNG thumbnail and an OCR pass, PDFs get their plain text, and
// everything else gets a receipt line. Ingestion degrades instead of failing:
// the only error it returns is for an upload that is empty or too large.
package attach
