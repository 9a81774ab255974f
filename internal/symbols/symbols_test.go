// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var streamMarkers = []Marker{
	{MatchPrefix, "std::"},
	{MatchPrefix, "core::"},
	{MatchPrefix, "alloc::"},
	{MatchPrefix, "_"},
	{MatchPrefix, "*"},
	{MatchPrefix, "OUTLINED_FUNCTION_"},
}

func TestIsInternal(t *testing.T) {
	c, err := NewClassifier(streamMarkers, Drop)
	require.NoError(t, err)
	tests := []struct {
		name     string
		internal bool
	}{
		{"my_func", false},
		{"app::main", false},
		{"std::rt::lang_start", true},
		{"core::fmt::write", true},
		{"alloc::vec::Vec<T>::push", true},
		{"__libc_start_main", true},
		{"*unknown*", true},
		{"OUTLINED_FUNCTION_12", true},
		{"", true},
		{"   ", true},
		{"mystd::thing", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.internal, c.IsInternal(tt.name))
		})
	}
}

func TestContainsMarkers(t *testing.T) {
	c, err := NewClassifier([]Marker{{MatchContains, "std"}, {MatchExact, "main"}}, Drop)
	require.NoError(t, err)
	assert.True(t, c.IsInternal("mystd::thing"))
	assert.True(t, c.IsInternal("main"))
	assert.False(t, c.IsInternal("main2"))
}

func TestRoute(t *testing.T) {
	tests := []struct {
		policy   Policy
		name     string
		expected string
		kept     bool
	}{
		{Keep, "std::io::stdout", "std::io::stdout", true},
		{Merge, "std::io::stdout", InternalSymbolName, true},
		{Merge, "app::run", "app::run", true},
		{Drop, "std::io::stdout", "", false},
		{Drop, "app::run", "app::run", true},
	}
	for _, tt := range tests {
		t.Run(tt.policy.String()+"/"+tt.name, func(t *testing.T) {
			c, err := NewClassifier(streamMarkers, tt.policy)
			require.NoError(t, err)
			name, kept := c.Route(tt.name)
			assert.Equal(t, tt.expected, name)
			assert.Equal(t, tt.kept, kept)
		})
	}
}

func TestNewClassifierRejectsBadMarkers(t *testing.T) {
	_, err := NewClassifier([]Marker{{"suffix", "x"}}, Keep)
	assert.Error(t, err)
	_, err = NewClassifier([]Marker{{MatchPrefix, ""}}, Keep)
	assert.Error(t, err)
}

func TestParsePolicy(t *testing.T) {
	for i, name := range PolicyOptions() {
		p, err := ParsePolicy(name)
		require.NoError(t, err)
		assert.Equal(t, Policy(i), p)
		assert.Equal(t, name, p.String())
	}
	p, err := ParsePolicy("MERGE")
	require.NoError(t, err)
	assert.Equal(t, Merge, p)
	_, err = ParsePolicy("skip")
	assert.Error(t, err)
}

func TestDemangle(t *testing.T) {
	assert.Equal(t, "my_func", Demangle("my_func"))
	assert.Equal(t, "foo::bar", Demangle("_ZN3foo3barE"))
	assert.Equal(t, "depict::main", Demangle("_ZN6depict4main17h0123456789abcdefE"))
}

func TestUnescapeAngles(t *testing.T) {
	assert.Equal(t, "foo<Bar>", UnescapeAngles("foo$LT$Bar$GT$"))
	assert.Equal(t, "plain", UnescapeAngles("plain"))
}
