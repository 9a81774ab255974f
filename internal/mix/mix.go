// Package mix parses the instruction mix report written by the SDE emulator
// (sde -omix).
//
// The relevant part of a report starts at the global function totals header.
// It is divided into sections, each opened by a header line:
//
//	# $global-dynamic-counts
//	# $dynamic-counts-for-function: <name> ...
//
// and filled by counter lines such as "*total 1234" or "*mem-read 56".
package mix

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"depict/internal/stats"
	"depict/internal/symbols"
)

const (
	startMarker          = "#GLOBAL_FUNCTION TOTALS"
	globalSectionHeader  = "# $global-dynamic-counts"
	functionHeaderPrefix = "# $dynamic-counts-for-function: "
)

// counter line keys and the category they are recorded under
var counterKeys = map[string]string{
	"*total":         stats.CategoryTotal,
	"*stack-read":    stats.CategoryStackRead,
	"*stack-write":   stats.CategoryStackWrite,
	"*mem-read":      stats.CategoryMemRead,
	"*mem-write":     stats.CategoryMemWrite,
	"*category-CALL": stats.CategoryCall,
}

// Section holds the counters of one function.
type Section struct {
	Name   string
	Counts stats.Statistics
}

// Report is the parsed content of a mix report.
type Report struct {
	Functions []Section
	// Global holds the counters of the global dynamic counts section, nil if
	// the report has none.
	Global *stats.Statistics
	// Started is false when the report has no global function totals header.
	// Sections found anywhere in the input are used in that case.
	Started bool
	// Malformed counts counter lines that could not be parsed.
	Malformed int
}

// Unlisted returns the instructions of the global section that no function
// section accounts for, e.g., functions beyond the emulator's top blocks limit.
// ok is false when the report has no global section.
func (r Report) Unlisted() (unlisted uint64, ok bool) {
	if r.Global == nil {
		return 0, false
	}
	var listed uint64
	for _, section := range r.Functions {
		listed += section.Counts.Total
	}
	if listed >= r.Global.Total {
		return 0, true
	}
	return r.Global.Total - listed, true
}

type sectionKind int

const (
	noSection sectionKind = iota
	globalSection
	functionSection
)

// parser is the section state machine. Before the start marker it collects
// provisional sections, which are discarded once the marker is seen.
type parser struct {
	started     bool
	kind        sectionKind
	name        string
	counts      stats.Statistics
	functions   []Section
	global      *stats.Statistics
	provisional []Section
	malformed   int
}

// Parse reads a mix report until EOF.
func Parse(r io.Reader) (Report, error) {
	p := &parser{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		p.line(strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return Report{}, fmt.Errorf("failed to read mix report: %w", err)
	}
	p.flush()
	report := Report{
		Functions: p.functions,
		Global:    p.global,
		Started:   p.started,
		Malformed: p.malformed,
	}
	if !p.started {
		report.Functions = p.provisional
	}
	return report, nil
}

func (p *parser) line(line string) {
	if strings.TrimRight(line, " \t") == startMarker {
		if !p.started {
			p.started = true
			p.kind = noSection
			p.name = ""
			p.counts = stats.Statistics{}
			p.provisional = nil
			p.global = nil
		}
		return
	}
	if line == globalSectionHeader {
		p.flush()
		p.kind = globalSection
		p.name = ""
		return
	}
	if rest, ok := strings.CutPrefix(line, functionHeaderPrefix); ok {
		p.flush()
		name, _, _ := strings.Cut(rest, " ")
		p.kind = functionSection
		p.name = symbols.UnescapeAngles(name)
		return
	}
	if p.kind == noSection || !strings.HasPrefix(line, "*") {
		return
	}
	fields := strings.Fields(line)
	category, ok := counterKeys[fields[0]]
	if !ok {
		return
	}
	if len(fields) < 2 {
		slog.Warn("skipping mix counter without a value", slog.String("line", line))
		p.malformed++
		return
	}
	value, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		slog.Warn("skipping mix counter with an invalid value", slog.String("line", line), slog.String("error", err.Error()))
		p.malformed++
		return
	}
	p.counts.Set(category, value)
}

// flush closes the current section.
func (p *parser) flush() {
	defer func() {
		p.kind = noSection
		p.name = ""
		p.counts = stats.Statistics{}
	}()
	switch p.kind {
	case globalSection:
		global := p.counts
		p.global = &global
	case functionSection:
		if p.name == "" {
			return
		}
		section := Section{Name: p.name, Counts: p.counts}
		if p.started {
			p.functions = append(p.functions, section)
		} else {
			p.provisional = append(p.provisional, section)
		}
	}
}
