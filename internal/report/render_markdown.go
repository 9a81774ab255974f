package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"strconv"
	"strings"

	"depict/internal/stats"
)

func createMarkdownReport(rows []stats.Entry, breakdown bool) (out []byte, err error) {
	labels := columns(breakdown)
	var sb strings.Builder
	sb.WriteString("|" + symbolNameHeading + "|")
	for _, label := range labels {
		sb.WriteString(label + "|")
	}
	sb.WriteString("\n|")
	for range len(labels) + 1 {
		sb.WriteString("---|")
	}
	sb.WriteString("\n")
	for _, row := range rows {
		sb.WriteString("|`" + strings.ReplaceAll(row.SymbolName, "|", `\|`) + "`|")
		for _, value := range values(row.Statistics, breakdown) {
			sb.WriteString(strconv.FormatUint(value.Value, 10) + "|")
		}
		sb.WriteString("\n")
	}
	out = []byte(sb.String())
	return
}
