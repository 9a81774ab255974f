// Package stats defines the per-symbol instruction counters shared by the backends,
// the aggregator and the renderers.
package stats

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"maps"
	"slices"
)

// category names used by the instrumentation backends for the fixed counters
const (
	CategoryTotal      = "total"
	CategoryMemRead    = "mem_read"
	CategoryMemWrite   = "mem_write"
	CategoryStackRead  = "stack_read"
	CategoryStackWrite = "stack_write"
	CategoryCall       = "call"
	CategoryBranch     = "branch"
	CategoryReturn     = "return"
	CategoryCompare    = "compare"
	CategoryLogic      = "logic"
	CategoryArithmetic = "arithmetic"
	CategoryOther      = "other"
)

// TotalSymbolName is the name of the synthetic row carrying the grand total.
const TotalSymbolName = "Total"

// Statistics holds the instruction counters attributed to one symbol.
//
// Total counts every instruction attributed to the symbol, whatever its category.
// Counts stored in Others are therefore already part of Total: AddOther never
// increments Total, and Record increments it exactly once per event.
type Statistics struct {
	Total      uint64
	MemRead    uint64
	MemWrite   uint64
	StackRead  uint64
	StackWrite uint64
	Call       uint64
	Branch     uint64
	Return     uint64
	Compare    uint64
	Logic      uint64
	Arithmetic uint64
	Others     map[string]uint64
}

// Row is a labelled counter value, see Statistics.Rows.
type Row struct {
	Label string
	Value uint64
}

// Entry is one symbol and its counters.
type Entry struct {
	SymbolName string
	Statistics Statistics
}

// Result is the outcome of one parse pass.
type Result struct {
	Entries    []Entry
	GrandTotal Statistics
	// Dropped holds the counters of events discarded by the internal-symbol policy.
	Dropped Statistics
}

// RowLabels lists the labels returned by Statistics.Rows, in order.
var RowLabels = []string{
	CategoryTotal,
	CategoryMemRead,
	CategoryMemWrite,
	CategoryStackRead,
	CategoryStackWrite,
	CategoryCall,
	CategoryBranch,
	CategoryReturn,
	CategoryCompare,
	CategoryLogic,
	CategoryArithmetic,
	CategoryOther,
}

// field returns a pointer to the fixed counter for the category, or nil if the
// category has no fixed counter.
func (s *Statistics) field(category string) *uint64 {
	switch category {
	case CategoryMemRead:
		return &s.MemRead
	case CategoryMemWrite:
		return &s.MemWrite
	case CategoryStackRead:
		return &s.StackRead
	case CategoryStackWrite:
		return &s.StackWrite
	case CategoryCall:
		return &s.Call
	case CategoryBranch:
		return &s.Branch
	case CategoryReturn:
		return &s.Return
	case CategoryCompare:
		return &s.Compare
	case CategoryLogic:
		return &s.Logic
	case CategoryArithmetic:
		return &s.Arithmetic
	}
	return nil
}

// IsFixedCategory reports whether the category maps to a fixed counter.
func IsFixedCategory(category string) bool {
	var s Statistics
	return s.field(category) != nil
}

// AddOther adds value to the named Others bucket. Total is not changed.
func (s *Statistics) AddOther(label string, value uint64) {
	if s.Others == nil {
		s.Others = make(map[string]uint64)
	}
	s.Others[label] += value
}

// Record accounts for value instructions of the given category: Total is
// incremented, then the matching fixed counter or Others bucket.
func (s *Statistics) Record(category string, value uint64) {
	s.Total += value
	if f := s.field(category); f != nil {
		*f += value
		return
	}
	s.AddOther(category, value)
}

// Set overwrites the counter of the category. The "total" category sets Total
// and unknown categories set the matching Others bucket.
func (s *Statistics) Set(category string, value uint64) {
	if category == CategoryTotal {
		s.Total = value
		return
	}
	if f := s.field(category); f != nil {
		*f = value
		return
	}
	if s.Others == nil {
		s.Others = make(map[string]uint64)
	}
	s.Others[category] = value
}

// Merge adds other into s, field by field and key by key over Others.
func (s *Statistics) Merge(other Statistics) {
	s.Total += other.Total
	s.MemRead += other.MemRead
	s.MemWrite += other.MemWrite
	s.StackRead += other.StackRead
	s.StackWrite += other.StackWrite
	s.Call += other.Call
	s.Branch += other.Branch
	s.Return += other.Return
	s.Compare += other.Compare
	s.Logic += other.Logic
	s.Arithmetic += other.Arithmetic
	for label, value := range other.Others {
		s.AddOther(label, value)
	}
}

// OtherTotal returns the sum of the Others buckets.
func (s Statistics) OtherTotal() (sum uint64) {
	for _, value := range s.Others {
		sum += value
	}
	return
}

// OtherLabels returns the Others labels in sorted order.
func (s Statistics) OtherLabels() []string {
	return slices.Sorted(maps.Keys(s.Others))
}

// Rows returns every fixed counter in RowLabels order followed by a single
// "other" row holding the sum of Others.
func (s Statistics) Rows() []Row {
	return []Row{
		{CategoryTotal, s.Total},
		{CategoryMemRead, s.MemRead},
		{CategoryMemWrite, s.MemWrite},
		{CategoryStackRead, s.StackRead},
		{CategoryStackWrite, s.StackWrite},
		{CategoryCall, s.Call},
		{CategoryBranch, s.Branch},
		{CategoryReturn, s.Return},
		{CategoryCompare, s.Compare},
		{CategoryLogic, s.Logic},
		{CategoryArithmetic, s.Arithmetic},
		{CategoryOther, s.OtherTotal()},
	}
}

// Clone returns a deep copy of s.
func (s Statistics) Clone() Statistics {
	c := s
	if s.Others != nil {
		c.Others = maps.Clone(s.Others)
	}
	return c
}

// Sum returns the merged counters of all entries.
func Sum(entries []Entry) (total Statistics) {
	for _, entry := range entries {
		total.Merge(entry.Statistics)
	}
	return
}

// Clone returns a deep copy of the entries.
func Clone(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, entry := range entries {
		out[i] = Entry{SymbolName: entry.SymbolName, Statistics: entry.Statistics.Clone()}
	}
	return out
}
