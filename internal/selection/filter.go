package selection

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"slices"
	"strings"

	"depict/internal/stats"

	"github.com/casbin/govaluate"
	mapset "github.com/deckarep/golang-set/v2"
)

// NameVariable is the filter variable holding the symbol name.
const NameVariable = "name"

// Filter keeps the entries for which a boolean expression over their counters
// is true, e.g., "total > 1000 && mem_read > 0". Every label of
// stats.RowLabels is a variable, as is name.
type Filter struct {
	expression string
	evaluable  *govaluate.EvaluableExpression
}

// NewFilter parses the expression and checks that it only uses known variables.
func NewFilter(expression string) (*Filter, error) {
	evaluable, err := govaluate.NewEvaluableExpression(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression %q: %w", expression, err)
	}
	known := mapset.NewThreadUnsafeSet(stats.RowLabels...)
	known.Add(NameVariable)
	unknown := mapset.NewThreadUnsafeSet(evaluable.Vars()...).Difference(known).ToSlice()
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return nil, fmt.Errorf("invalid filter expression %q: unknown variable(s) %s, expected %s",
			expression, strings.Join(unknown, ", "), strings.Join(append(slices.Clone(stats.RowLabels), NameVariable), ", "))
	}
	return &Filter{expression: expression, evaluable: evaluable}, nil
}

func (f *Filter) String() string {
	return f.expression
}

// Match evaluates the expression for one entry.
func (f *Filter) Match(entry stats.Entry) (bool, error) {
	parameters := make(map[string]any, len(stats.RowLabels)+1)
	for _, row := range entry.Statistics.Rows() {
		parameters[row.Label] = float64(row.Value)
	}
	parameters[NameVariable] = entry.SymbolName
	value, err := f.evaluable.Evaluate(parameters)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate filter %q for %s: %w", f.expression, entry.SymbolName, err)
	}
	match, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("filter %q must evaluate to true or false, got %v", f.expression, value)
	}
	return match, nil
}

// Apply returns the entries that match, in order.
func (f *Filter) Apply(entries []stats.Entry) ([]stats.Entry, error) {
	var kept []stats.Entry
	for _, entry := range entries {
		match, err := f.Match(entry)
		if err != nil {
			return nil, err
		}
		if match {
			kept = append(kept, entry)
		}
	}
	return kept, nil
}
