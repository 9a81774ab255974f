package common

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"depict/internal/aggregate"
	"depict/internal/config"
	"depict/internal/mix"
	"depict/internal/output"
	"depict/internal/report"
	"depict/internal/selection"
	"depict/internal/stats"
	"depict/internal/symbols"
)

// NewAggregator returns an aggregator applying the internals policy with the
// given markers.
func NewAggregator(cfg config.Config, markers []symbols.Marker, settings Settings) (*aggregate.Aggregator, error) {
	classifier, err := symbols.NewClassifier(markers, settings.Policy)
	if err != nil {
		return nil, err
	}
	slog.Debug("aggregating",
		slog.String("internals", settings.Policy.String()),
		slog.String("total basis", settings.Basis.String()),
		slog.Int("markers", len(markers)))
	return aggregate.New(classifier, settings.Basis, cfg.CategoryAliases), nil
}

// LogResult logs a summary of the aggregation.
func LogResult(agg *aggregate.Aggregator, result stats.Result) {
	slog.Info("aggregated instruction counts",
		slog.Int("symbols", len(result.Entries)),
		slog.Uint64("total", result.GrandTotal.Total),
		slog.Uint64("dropped", result.Dropped.Total))
	if unknown := agg.UnknownCategories(); len(unknown) > 0 {
		slog.Info("counted categories without a fixed counter as other", slog.String("categories", strings.Join(unknown, ", ")))
	}
}

// LogReportCoverage logs how much of the mix report's global total the
// function sections leave out.
func LogReportCoverage(r mix.Report) {
	unlisted, ok := r.Unlisted()
	if !ok {
		slog.Debug("mix report has no global dynamic counts")
		return
	}
	slog.Info("mix report coverage",
		slog.Uint64("global total", r.Global.Total),
		slog.Uint64("unlisted", unlisted),
		slog.Int("functions", len(r.Functions)))
}

// Render selects the rows of result, renders them and writes them to the
// destinations of settings. An unknown sort field is reported, inline for the
// human readable formats and on stderr for the others, and the rows are
// rendered unsorted.
func Render(result stats.Result, settings Settings, stdout io.Writer, stderr io.Writer) error {
	rows, err := selection.Select(result, settings.Selection)
	var inline []byte
	if err != nil {
		if !errors.Is(err, selection.ErrUnknownField) {
			return err
		}
		slog.Error("rendering unsorted rows", slog.String("error", err.Error()))
		inline = report.InlineError(settings.Format, err)
		if inline == nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
	}
	out, err := report.Create(settings.Format, rows, settings.Breakdown)
	if err != nil {
		return fmt.Errorf("failed to render %s output: %w", settings.Format, err)
	}
	// binary output only goes to the file
	quiet := settings.Quiet || report.IsBinary(settings.Format)
	sinks, err := output.Open(stdout, settings.OutputFile, quiet)
	if err != nil {
		return err
	}
	_, err = sinks.Write(inline)
	if err == nil {
		_, err = sinks.Write(out)
	}
	closeErr := sinks.Close()
	if err = errors.Join(err, closeErr); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if settings.OutputFile != "" {
		slog.Info("wrote output file", slog.String("path", settings.OutputFile), slog.String("format", settings.Format))
	}
	if settings.PrometheusTextfile != "" {
		if err := report.WritePrometheusTextfile(settings.PrometheusTextfile, rows); err != nil {
			return err
		}
	}
	return nil
}
