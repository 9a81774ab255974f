package common

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"depict/internal/aggregate"
	"depict/internal/config"
	"depict/internal/mix"
	"depict/internal/report"
	"depict/internal/selection"
	"depict/internal/stats"
	"depict/internal/symbols"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() stats.Result {
	entries := []stats.Entry{
		{SymbolName: "small", Statistics: stats.Statistics{Total: 10}},
		{SymbolName: "big", Statistics: stats.Statistics{Total: 1000}},
	}
	return stats.Result{Entries: entries, GrandTotal: stats.Sum(entries)}
}

func sortedSettings(format string) Settings {
	return Settings{
		Format:    format,
		Selection: selection.Options{Sort: &selection.Sorting{Field: selection.FieldTotal, Direction: selection.Ascending}},
	}
}

func TestRenderPlain(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, Render(sampleResult(), sortedSettings(report.FormatPlain), &stdout, &stderr))
	assert.Equal(t, "Total total: 1\u00a0010\nbig   total: 1\u00a0000\nsmall total: 10\n", stdout.String())
	assert.Empty(t, stderr.String())
}

func TestRenderUnknownFieldInline(t *testing.T) {
	var stdout, stderr bytes.Buffer
	settings := sortedSettings(report.FormatMarkdown)
	settings.Selection.Sort.Field = "calls"
	require.NoError(t, Render(sampleResult(), settings, &stdout, &stderr))
	lines := strings.Split(stdout.String(), "\n")
	assert.Equal(t, `error: unknown field "calls"`, lines[0])
	// unsorted
	assert.Equal(t, "|`small`|10|", lines[4])
	assert.Empty(t, stderr.String())
}

func TestRenderUnknownFieldMachineReadable(t *testing.T) {
	var stdout, stderr bytes.Buffer
	settings := sortedSettings(report.FormatJson)
	settings.Selection.Sort.Field = "calls"
	require.NoError(t, Render(sampleResult(), settings, &stdout, &stderr))
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &rows))
	assert.Len(t, rows, 3)
	assert.Contains(t, stderr.String(), `Error: unknown field "calls"`)
}

func TestRenderToFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	dir := t.TempDir()
	settings := sortedSettings(report.FormatCsv)
	settings.OutputFile = filepath.Join(dir, "out", "stats.csv")
	settings.Quiet = true
	settings.PrometheusTextfile = filepath.Join(dir, "stats.prom")
	require.NoError(t, Render(sampleResult(), settings, &stdout, &stderr))
	assert.Empty(t, stdout.String())
	content, err := os.ReadFile(settings.OutputFile)
	require.NoError(t, err)
	assert.Equal(t, "symbol name,total\n\"Total\",1010\n\"big\",1000\n\"small\",10\n", string(content))
	assert.FileExists(t, settings.PrometheusTextfile)
}

func TestRenderXlsxOnlyToFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	settings := sortedSettings(report.FormatXlsx)
	settings.OutputFile = filepath.Join(t.TempDir(), "stats.xlsx")
	require.NoError(t, Render(sampleResult(), settings, &stdout, &stderr))
	assert.Empty(t, stdout.String())
	info, err := os.Stat(settings.OutputFile)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}

func TestRenderLimitWithoutSort(t *testing.T) {
	settings := Settings{Format: report.FormatPlain, Selection: selection.Options{Limit: 2}}
	err := Render(sampleResult(), settings, &bytes.Buffer{}, &bytes.Buffer{})
	assert.ErrorIs(t, err, selection.ErrLimitWithoutSort)
}

func TestNewAggregator(t *testing.T) {
	cfg := config.Default()
	agg, err := NewAggregator(cfg, cfg.InternalMarkers.Stream, Settings{Policy: symbols.Merge, Basis: aggregate.PreFilter})
	require.NoError(t, err)
	agg.Record("std::fmt::write", stats.CategoryCall, 2)
	agg.Record("main", "mem_store", 3)
	result := agg.Result()
	require.Len(t, result.Entries, 2)
	assert.Equal(t, symbols.InternalSymbolName, result.Entries[0].SymbolName)
	assert.Equal(t, uint64(3), result.Entries[1].Statistics.MemWrite)
	LogResult(agg, result)

	_, err = NewAggregator(cfg, []symbols.Marker{{Match: "regex", Value: "x"}}, Settings{})
	assert.Error(t, err)
}

// captureLogs sends the default logger to a buffer for the rest of the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(previous) })
	return &buf
}

func TestLogReportCoverage(t *testing.T) {
	logs := captureLogs(t)
	LogReportCoverage(mix.Report{
		Functions: []mix.Section{{Name: "main", Counts: stats.Statistics{Total: 600}}},
		Global:    &stats.Statistics{Total: 1000},
	})
	assert.Contains(t, logs.String(), `"global total"=1000`)
	assert.Contains(t, logs.String(), "unlisted=400")

	logs.Reset()
	LogReportCoverage(mix.Report{})
	assert.Contains(t, logs.String(), "no global dynamic counts")
}
