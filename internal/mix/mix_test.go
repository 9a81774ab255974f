// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package mix

import (
	"strings"
	"testing"

	"depict/internal/aggregate"
	"depict/internal/stats"
	"depict/internal/symbols"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReport = `# EMIT_DYNAMIC_STATS FOR TID 0
# $dynamic-counts-for-function: per_thread_only  IMG: /bin/app
*total 999
#GLOBAL_FUNCTION TOTALS
# $global-dynamic-counts
*total 1000
*mem-read 400
# $dynamic-counts-for-function: app::main  IMG: /bin/app
*total                 600
*mem-read              200
*mem-write             50
*stack-read            30
*stack-write           20
*category-CALL         10   0.5
*category-NOP          3
# $dynamic-counts-for-function: std::io::print$LT$T$GT$  IMG: /bin/app
*total 300
*mem-read abc
# $dynamic-counts-for-function: app::run$LT$Vec$LT$u8$GT$$GT$  IMG: /bin/app
*total 100
*mem-read 20
`

func TestParse(t *testing.T) {
	report, err := Parse(strings.NewReader(sampleReport))
	require.NoError(t, err)
	assert.True(t, report.Started)
	require.NotNil(t, report.Global)
	assert.Equal(t, stats.Statistics{Total: 1000, MemRead: 400}, *report.Global)
	assert.Equal(t, 1, report.Malformed)
	assert.Equal(t, []Section{
		{Name: "app::main", Counts: stats.Statistics{Total: 600, MemRead: 200, MemWrite: 50, StackRead: 30, StackWrite: 20, Call: 10}},
		{Name: "std::io::print<T>", Counts: stats.Statistics{Total: 300}},
		{Name: "app::run<Vec<u8>>", Counts: stats.Statistics{Total: 100, MemRead: 20}},
	}, report.Functions)
}

func TestParseFunctionSection(t *testing.T) {
	input := `# $dynamic-counts-for-function: foo$LT$Bar$GT$ IMG: /bin/app
*total 42
# $dynamic-counts-for-function: next IMG: /bin/app
`
	report, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.False(t, report.Started)
	require.Len(t, report.Functions, 2)
	assert.Equal(t, "foo<Bar>", report.Functions[0].Name)
	assert.Equal(t, uint64(42), report.Functions[0].Counts.Total)
}

func TestParseIgnoresLinesBeforeStart(t *testing.T) {
	report, err := Parse(strings.NewReader(sampleReport))
	require.NoError(t, err)
	for _, section := range report.Functions {
		assert.NotEqual(t, "per_thread_only", section.Name)
	}
}

func TestParseEmptyNameNeverEmitted(t *testing.T) {
	input := "#GLOBAL_FUNCTION TOTALS\n# $dynamic-counts-for-function:  IMG\n*total 5\n"
	report, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Empty(t, report.Functions)
}

func TestParseEmpty(t *testing.T) {
	report, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, report.Functions)
	assert.Nil(t, report.Global)
}

func TestUnlisted(t *testing.T) {
	report, err := Parse(strings.NewReader(sampleReport))
	require.NoError(t, err)
	unlisted, ok := report.Unlisted()
	assert.True(t, ok)
	assert.Equal(t, uint64(0), unlisted)

	report.Functions = report.Functions[:1]
	unlisted, ok = report.Unlisted()
	assert.True(t, ok)
	assert.Equal(t, uint64(400), unlisted)

	_, ok = Report{}.Unlisted()
	assert.False(t, ok)
}

func TestParseIntoAggregatorDropsInternals(t *testing.T) {
	report, err := Parse(strings.NewReader(sampleReport))
	require.NoError(t, err)
	classifier, err := symbols.NewClassifier([]symbols.Marker{
		{Match: symbols.MatchContains, Value: "alloc"},
		{Match: symbols.MatchContains, Value: "std"},
		{Match: symbols.MatchContains, Value: "core"},
	}, symbols.Drop)
	require.NoError(t, err)
	agg := aggregate.New(classifier, aggregate.PostFilter, nil)
	for _, section := range report.Functions {
		agg.Add(section.Name, section.Counts)
	}
	result := agg.Result()
	require.Len(t, result.Entries, 2)
	assert.Equal(t, "app::main", result.Entries[0].SymbolName)
	assert.Equal(t, "app::run<Vec<u8>>", result.Entries[1].SymbolName)
	assert.Equal(t, uint64(700), result.GrandTotal.Total)
}
