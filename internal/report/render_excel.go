package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bufio"
	"bytes"
	"fmt"

	"depict/internal/stats"

	"github.com/xuri/excelize/v2"
)

const XlsxSheetName = "Symbols"

func cellName(col int, row int) (name string) {
	columnName, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return
	}
	name, err = excelize.JoinCellName(columnName, row)
	if err != nil {
		return
	}
	return
}

func createXlsxReport(rows []stats.Entry, breakdown bool) (out []byte, err error) {
	f := excelize.NewFile()
	defer f.Close()
	sheetName := XlsxSheetName
	_ = f.SetSheetName("Sheet1", sheetName)
	labels := columns(breakdown)
	_ = f.SetColWidth(sheetName, "A", "A", 50)
	if lastColumn, err := excelize.ColumnNumberToName(len(labels) + 1); err == nil {
		_ = f.SetColWidth(sheetName, "B", lastColumn, 15)
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
	})
	row := 1
	_ = f.SetCellValue(sheetName, cellName(1, row), symbolNameHeading)
	for col, label := range labels {
		_ = f.SetCellValue(sheetName, cellName(col+2, row), label)
	}
	_ = f.SetCellStyle(sheetName, cellName(1, row), cellName(len(labels)+1, row), headerStyle)
	for _, entry := range rows {
		row++
		_ = f.SetCellValue(sheetName, cellName(1, row), entry.SymbolName)
		for col, value := range values(entry.Statistics, breakdown) {
			_ = f.SetCellValue(sheetName, cellName(col+2, row), value.Value)
		}
	}
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	_, err = f.WriteTo(w)
	if err != nil {
		err = fmt.Errorf("failed to write xlsx report to buffer: %v", err)
		return
	}
	if err = w.Flush(); err != nil {
		err = fmt.Errorf("failed to flush xlsx report: %v", err)
		return
	}
	out = buf.Bytes()
	return
}
