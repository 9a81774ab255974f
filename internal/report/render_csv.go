package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"strconv"
	"strings"

	"depict/internal/stats"
)

// quoteCsv always quotes the field, doubling embedded quotes.
func quoteCsv(field string) string {
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

func createCsvReport(rows []stats.Entry, breakdown bool) (out []byte, err error) {
	var sb strings.Builder
	sb.WriteString(symbolNameHeading)
	for _, label := range columns(breakdown) {
		sb.WriteString(",")
		sb.WriteString(label)
	}
	sb.WriteString("\n")
	for _, row := range rows {
		sb.WriteString(quoteCsv(row.SymbolName))
		for _, value := range values(row.Statistics, breakdown) {
			sb.WriteString(",")
			sb.WriteString(strconv.FormatUint(value.Value, 10))
		}
		sb.WriteString("\n")
	}
	out = []byte(sb.String())
	return
}
