// Package selection orders the aggregated entries and selects the window of
// rows that is rendered.
package selection

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"depict/internal/stats"
)

// sort fields
const (
	FieldName  = "name"
	FieldTotal = "total"
)

// FieldOptions lists the supported sort fields.
var FieldOptions = []string{FieldName, FieldTotal}

var (
	// ErrUnknownField is returned, wrapped, when the sort field is not supported.
	// The rows are still selected, in their original order.
	ErrUnknownField = errors.New("unknown field")
	// ErrLimitWithoutSort is returned when a limit is requested without sorting.
	ErrLimitWithoutSort = errors.New("a limit requires sorting")
)

// Direction is the sort direction.
//
// Ascending compares in reverse of the natural order, so an ascending sort by
// total lists the biggest totals first. Descending uses the natural order.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "descending"
	}
	return "ascending"
}

// ParseDirection accepts asc, ascending, desc and descending.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	}
	return Ascending, fmt.Errorf("unknown sort direction %q, expected asc or desc", s)
}

func compare[T cmp.Ordered](d Direction, a, b T) int {
	order := cmp.Compare(a, b)
	if d == Ascending {
		return -order
	}
	return order
}

// Sorting is a sort field and direction.
type Sorting struct {
	Field     string
	Direction Direction
}

// Options configures Select.
type Options struct {
	// Sort is nil when sorting is disabled.
	Sort *Sorting
	// Limit is the maximum number of rows, zero or less for no limit. It
	// requires Sort.
	Limit int
	// Filter, if set, removes entries before sorting.
	Filter *Filter
}

// Validate checks for configuration errors that prevent selection.
func (o Options) Validate() error {
	if o.Limit > 0 && o.Sort == nil {
		return ErrLimitWithoutSort
	}
	return nil
}

// Sort orders entries in place. An unknown field leaves the order unchanged and
// returns an error wrapping ErrUnknownField.
func Sort(entries []stats.Entry, sorting Sorting) error {
	switch sorting.Field {
	case FieldName:
		slices.SortStableFunc(entries, func(a, b stats.Entry) int {
			return compare(sorting.Direction, a.SymbolName, b.SymbolName)
		})
	case FieldTotal:
		slices.SortStableFunc(entries, func(a, b stats.Entry) int {
			return compare(sorting.Direction, a.Statistics.Total, b.Statistics.Total)
		})
	default:
		return fmt.Errorf("%w %q", ErrUnknownField, sorting.Field)
	}
	return nil
}

// Select returns the rows to render: the entries, filtered and sorted, with a
// synthetic Total row inserted first, then cut to the limit. With descending
// sorting the window is the tail of that sequence, otherwise its head. The
// result is not modified.
//
// An error wrapping ErrUnknownField is returned together with the rows, in
// original order. ErrLimitWithoutSort is returned without rows.
func Select(result stats.Result, opts Options) ([]stats.Entry, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	rows := stats.Clone(result.Entries)
	if opts.Filter != nil {
		var err error
		if rows, err = opts.Filter.Apply(rows); err != nil {
			return nil, err
		}
	}
	var sortErr error
	if opts.Sort != nil {
		sortErr = Sort(rows, *opts.Sort)
	}
	rows = slices.Insert(rows, 0, stats.Entry{
		SymbolName: stats.TotalSymbolName,
		Statistics: result.GrandTotal.Clone(),
	})
	if opts.Sort == nil || opts.Limit <= 0 {
		return rows, sortErr
	}
	skip := 0
	if opts.Sort.Direction == Descending {
		skip = max(len(rows)-opts.Limit, 0)
	}
	rows = rows[skip:]
	rows = rows[:min(len(rows), opts.Limit)]
	return rows, sortErr
}
