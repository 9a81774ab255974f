// Package report renders the selected rows in the supported output formats.
package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"path/filepath"
	"strings"

	"depict/internal/stats"
)

const (
	FormatPlain    = "plain"
	FormatJson     = "json"
	FormatCsv      = "csv"
	FormatMarkdown = "markdown"
	FormatXlsx     = "xlsx"
)

// FormatOptions lists the supported formats.
var FormatOptions = []string{FormatPlain, FormatJson, FormatCsv, FormatMarkdown, FormatXlsx}

// extensions used to infer the format from an output file path
var formatExtensions = map[string]string{
	".txt":  FormatPlain,
	".json": FormatJson,
	".csv":  FormatCsv,
	".md":   FormatMarkdown,
	".xlsx": FormatXlsx,
}

// column heading of the symbol name
const symbolNameHeading = "symbol name"

// FormatFromPath infers the format from the extension of path. Unknown and
// missing extensions map to plain.
func FormatFromPath(path string) string {
	if format, ok := formatExtensions[strings.ToLower(filepath.Ext(path))]; ok {
		return format
	}
	return FormatPlain
}

// IsBinary reports whether the format can only be written to a file.
func IsBinary(format string) bool {
	return format == FormatXlsx
}

// IsHumanReadable reports whether diagnostics may be written inline with the rows.
func IsHumanReadable(format string) bool {
	return format == FormatPlain || format == FormatMarkdown
}

// Create renders rows in the given format. With breakdown, every counter
// category is rendered, otherwise only the totals. The rows are not modified.
func Create(format string, rows []stats.Entry, breakdown bool) (out []byte, err error) {
	switch format {
	case FormatPlain:
		return createPlainReport(rows, breakdown)
	case FormatJson:
		return createJsonReport(rows, breakdown)
	case FormatCsv:
		return createCsvReport(rows, breakdown)
	case FormatMarkdown:
		return createMarkdownReport(rows, breakdown)
	case FormatXlsx:
		return createXlsxReport(rows, breakdown)
	}
	return nil, fmt.Errorf("unsupported format %q, expected one of %s", format, strings.Join(FormatOptions, ", "))
}

// InlineError renders an error line for the human readable formats, empty for
// the others.
func InlineError(format string, err error) []byte {
	if err == nil || !IsHumanReadable(format) {
		return nil
	}
	return fmt.Appendf(nil, "error: %v\n", err)
}

// columns returns the labels rendered after the symbol name.
func columns(breakdown bool) []string {
	if breakdown {
		return stats.RowLabels
	}
	return stats.RowLabels[:1]
}

// values returns the counter values matching columns.
func values(s stats.Statistics, breakdown bool) []stats.Row {
	rows := s.Rows()
	if breakdown {
		return rows
	}
	return rows[:1]
}
