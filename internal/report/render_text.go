package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"strings"
	"unicode/utf8"

	"depict/internal/stats"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// maxNameWidth is the widest symbol name column, in runes
	maxNameWidth = 100
	ellipsis     = "..."
	// groupSeparator separates groups of three digits in plain output
	groupSeparator = "\u00a0"
)

var countPrinter = message.NewPrinter(language.English)

// FormatCount renders a count with its digits grouped by three, separated by a
// non-breaking space.
func FormatCount(value uint64) string {
	return strings.ReplaceAll(countPrinter.Sprintf("%d", value), ",", groupSeparator)
}

// truncateName cuts names longer than maxNameWidth runes, ending them with an
// ellipsis.
func truncateName(name string) string {
	if utf8.RuneCountInString(name) <= maxNameWidth {
		return name
	}
	runes := []rune(name)
	return string(runes[:maxNameWidth-len(ellipsis)]) + ellipsis
}

func createPlainReport(rows []stats.Entry, breakdown bool) (out []byte, err error) {
	names := make([]string, len(rows))
	width := 0
	for i, row := range rows {
		names[i] = truncateName(row.SymbolName)
		width = max(width, utf8.RuneCountInString(names[i]))
	}
	var sb strings.Builder
	for i, row := range rows {
		sb.WriteString(names[i])
		sb.WriteString(strings.Repeat(" ", width-utf8.RuneCountInString(names[i])))
		for j, value := range values(row.Statistics, breakdown) {
			if j == 0 {
				sb.WriteString(" ")
			} else {
				sb.WriteString(", ")
			}
			sb.WriteString(value.Label)
			sb.WriteString(": ")
			sb.WriteString(FormatCount(value.Value))
		}
		sb.WriteString("\n")
	}
	out = []byte(sb.String())
	return
}
