// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package stream

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"depict/internal/aggregate"
	"depict/internal/stats"
	"depict/internal/symbols"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	symbol   string
	category string
	count    uint64
}

type recorder struct {
	records []record
}

func (r *recorder) Record(symbol string, category string, count uint64) {
	r.records = append(r.records, record{symbol, category, count})
}

func TestParse(t *testing.T) {
	input := strings.NewReader(`hello from the program
bm::my_func/mem_read/10
bm::my_func/call/2
bm::_ZN3foo3barE/branch/4
bm::truncated
bm::no_count/mem_read
bm::bad_count/mem_read/ten
bm::crlf/stack_read/3` + "\r\n" + `goodbye
bm::partial/mem`)
	var out bytes.Buffer
	sink := &recorder{}
	summary, err := Parse(input, &out, sink, Options{Demangle: symbols.Demangle})
	require.NoError(t, err)

	assert.Equal(t, []record{
		{"my_func", "mem_read", 10},
		{"my_func", "call", 2},
		{"foo::bar", "branch", 4},
		{"crlf", "stack_read", 3},
	}, sink.records)
	assert.Equal(t, "hello from the program\ngoodbye\n", out.String())
	assert.Equal(t, Summary{Lines: 9, Records: 4, Forwarded: 2, Incomplete: 2, Malformed: 2}, summary)
}

func TestParseForwardsTrailingProgramOutput(t *testing.T) {
	var out bytes.Buffer
	sink := &recorder{}
	summary, err := Parse(strings.NewReader("bm::f/call/1\nno newline"), &out, sink, Options{})
	require.NoError(t, err)
	assert.Equal(t, "no newline", out.String())
	assert.Equal(t, 1, summary.Records)
	assert.Equal(t, 1, summary.Forwarded)
}

func TestParseCustomTagPrefix(t *testing.T) {
	var out bytes.Buffer
	sink := &recorder{}
	_, err := Parse(strings.NewReader("depict_qbdi::f/call/1\nbm::g/call/1\n"), &out, sink, Options{TagPrefix: "depict_qbdi::"})
	require.NoError(t, err)
	assert.Equal(t, []record{{"f", "call", 1}}, sink.records)
	assert.Equal(t, "bm::g/call/1\n", out.String())
}

func TestParseIntoAggregator(t *testing.T) {
	classifier, err := symbols.NewClassifier([]symbols.Marker{{Match: symbols.MatchPrefix, Value: "std::"}}, symbols.Drop)
	require.NoError(t, err)
	agg := aggregate.New(classifier, aggregate.PreFilter, nil)
	input := "bm::my_func/mem_read/10\nbm::std::fmt/mem_read/5\nbm::my_func/mov/1\n"
	_, err = Parse(strings.NewReader(input), &bytes.Buffer{}, agg, Options{Demangle: symbols.Demangle})
	require.NoError(t, err)

	result := agg.Result()
	require.Len(t, result.Entries, 1)
	assert.Equal(t, "my_func", result.Entries[0].SymbolName)
	assert.Equal(t, uint64(10), result.Entries[0].Statistics.MemRead)
	assert.Equal(t, uint64(11), result.Entries[0].Statistics.Total)
	assert.Equal(t, uint64(16), result.GrandTotal.Total)
}

func TestParseSingleRecord(t *testing.T) {
	classifier, err := symbols.NewClassifier([]symbols.Marker{{Match: symbols.MatchPrefix, Value: "_"}}, symbols.Drop)
	require.NoError(t, err)
	agg := aggregate.New(classifier, aggregate.PreFilter, nil)
	_, err = Parse(strings.NewReader("bm::my_func/mem_read/10\n"), &bytes.Buffer{}, agg, Options{})
	require.NoError(t, err)
	result := agg.Result()
	require.Len(t, result.Entries, 1)
	assert.Equal(t, stats.Statistics{Total: 10, MemRead: 10}, result.Entries[0].Statistics)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("pipe broken")
}

func TestParseReadError(t *testing.T) {
	_, err := Parse(failingReader{}, &bytes.Buffer{}, &recorder{}, Options{})
	assert.ErrorContains(t, err, "pipe broken")
}

func TestParseQbdiTracerPrefix(t *testing.T) {
	input := "depict_qbdi::main/call/2\nbm::main/call/5\n"
	var out bytes.Buffer
	sink := &recorder{}
	_, err := Parse(strings.NewReader(input), &out, sink, Options{TagPrefix: QbdiTracerTagPrefix})
	require.NoError(t, err)
	assert.Equal(t, []record{{"main", "call", 2}}, sink.records)
	assert.Equal(t, "bm::main/call/5\n", out.String())
}
