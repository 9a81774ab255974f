package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"

	"depict/internal/stats"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	promMetricName      = "depict_instructions"
	promOtherMetricName = "depict_other_instructions"
)

func setGauge(gauge *prometheus.GaugeVec, symbol string, category string, value uint64) error {
	g, err := gauge.GetMetricWithLabelValues(symbol, category)
	if err != nil {
		return fmt.Errorf("failed to export %q: %w", symbol, err)
	}
	g.Set(float64(value))
	return nil
}

// newInstructionsRegistry returns a registry holding one gauge per row and
// counter category, and one per row and category counted as other.
func newInstructionsRegistry(rows []stats.Entry) (*prometheus.Registry, error) {
	gauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: promMetricName,
			Help: "Instructions executed per symbol and category",
		},
		[]string{"symbol", "category"},
	)
	otherGauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: promOtherMetricName,
			Help: "Instructions executed per symbol in categories without a dedicated counter",
		},
		[]string{"symbol", "category"},
	)
	registry := prometheus.NewRegistry()
	for _, collector := range []*prometheus.GaugeVec{gauge, otherGauge} {
		if err := registry.Register(collector); err != nil {
			return nil, fmt.Errorf("failed to register instruction gauges: %w", err)
		}
	}
	for _, row := range rows {
		for _, value := range row.Statistics.Rows() {
			if err := setGauge(gauge, row.SymbolName, value.Label, value.Value); err != nil {
				return nil, err
			}
		}
		for _, label := range row.Statistics.OtherLabels() {
			if err := setGauge(otherGauge, row.SymbolName, label, row.Statistics.Others[label]); err != nil {
				return nil, err
			}
		}
	}
	return registry, nil
}

// WritePrometheusTextfile writes the rows in the Prometheus text exposition
// format, for the node exporter textfile collector.
func WritePrometheusTextfile(path string, rows []stats.Entry) error {
	registry, err := newInstructionsRegistry(rows)
	if err != nil {
		return err
	}
	if err := prometheus.WriteToTextfile(path, registry); err != nil {
		return fmt.Errorf("failed to write prometheus textfile %s: %w", path, err)
	}
	slog.Debug("wrote prometheus textfile", slog.String("path", path), slog.Int("rows", len(rows)))
	return nil
}
