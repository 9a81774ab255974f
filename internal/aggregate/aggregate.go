// Package aggregate collects per-symbol counters from the backend parsers and
// applies the internal-symbol policy.
package aggregate

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"depict/internal/stats"
	"depict/internal/symbols"

	mapset "github.com/deckarep/golang-set/v2"
)

// GrandTotalBasis selects which events contribute to the grand total.
type GrandTotalBasis int

const (
	// PreFilter counts every event, including those the policy drops.
	PreFilter GrandTotalBasis = iota
	// PostFilter counts only events that reach an entry.
	PostFilter
)

var basisNames = []string{"pre", "post"}

// BasisOptions lists the accepted grand total basis names.
func BasisOptions() []string {
	return basisNames
}

func (b GrandTotalBasis) String() string {
	if int(b) < len(basisNames) {
		return basisNames[b]
	}
	return fmt.Sprintf("GrandTotalBasis(%d)", int(b))
}

// ParseBasis converts "pre" or "post" into a GrandTotalBasis.
func ParseBasis(name string) (GrandTotalBasis, error) {
	for i, basisName := range basisNames {
		if strings.EqualFold(name, basisName) {
			return GrandTotalBasis(i), nil
		}
	}
	return PreFilter, fmt.Errorf("unknown grand total basis %q, expected one of %s", name, strings.Join(basisNames, ", "))
}

// Aggregator maps symbol names to entries and keeps a running grand total.
// It is not safe for concurrent use.
type Aggregator struct {
	classifier *symbols.Classifier
	basis      GrandTotalBasis
	aliases    map[string]string

	index   map[string]int
	entries []stats.Entry
	total   stats.Statistics
	dropped stats.Statistics

	unknownCategories mapset.Set[string]
}

// New returns an empty aggregator. Category aliases rename tracer categories
// before they are routed to a counter.
func New(classifier *symbols.Classifier, basis GrandTotalBasis, aliases map[string]string) *Aggregator {
	return &Aggregator{
		classifier:        classifier,
		basis:             basis,
		aliases:           aliases,
		index:             make(map[string]int),
		unknownCategories: mapset.NewThreadUnsafeSet[string](),
	}
}

// Record accounts for count instructions of category executed in symbol.
func (a *Aggregator) Record(symbol string, category string, count uint64) {
	if alias, ok := a.aliases[category]; ok {
		category = alias
	}
	if !stats.IsFixedCategory(category) && a.unknownCategories.Add(category) {
		slog.Debug("category has no dedicated counter, counting it as other", slog.String("category", category))
	}
	var s stats.Statistics
	s.Record(category, count)
	a.add(symbol, s)
}

// Add accounts for counters already summed for symbol, e.g., a report section.
func (a *Aggregator) Add(symbol string, s stats.Statistics) {
	a.add(symbol, s.Clone())
}

func (a *Aggregator) add(symbol string, s stats.Statistics) {
	if a.basis == PreFilter {
		a.total.Merge(s)
	}
	// names end up in every output format, some of which require UTF-8
	name, keep := a.classifier.Route(strings.ToValidUTF8(symbol, "\uFFFD"))
	if !keep {
		a.dropped.Merge(s)
		return
	}
	if a.basis == PostFilter {
		a.total.Merge(s)
	}
	idx, ok := a.index[name]
	if !ok {
		idx = len(a.entries)
		a.index[name] = idx
		a.entries = append(a.entries, stats.Entry{SymbolName: name})
	}
	a.entries[idx].Statistics.Merge(s)
}

// UnknownCategories returns the categories that were counted as other, sorted.
func (a *Aggregator) UnknownCategories() []string {
	categories := a.unknownCategories.ToSlice()
	slices.Sort(categories)
	return categories
}

// Result returns the entries in first-seen order and the grand total. The
// aggregator must not be used afterwards.
func (a *Aggregator) Result() stats.Result {
	result := stats.Result{
		Entries:    a.entries,
		GrandTotal: a.total,
		Dropped:    a.dropped,
	}
	a.entries = nil
	a.index = nil
	return result
}
