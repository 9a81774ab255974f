// Package symbols classifies symbol names as application or runtime-internal code
// and turns raw symbol names into display names.
package symbols

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ianlancetaylor/demangle"
)

// InternalSymbolName is the name of the bucket internal symbols are merged into.
const InternalSymbolName = "Internal"

// MatchKind selects how a Marker is compared against a symbol name.
type MatchKind string

const (
	MatchPrefix   MatchKind = "prefix"
	MatchContains MatchKind = "contains"
	MatchExact    MatchKind = "exact"
)

// Marker identifies runtime-internal symbols.
type Marker struct {
	Match MatchKind `yaml:"match"`
	Value string    `yaml:"value"`
}

// Validate checks that the marker can be matched.
func (m Marker) Validate() error {
	switch m.Match {
	case MatchPrefix, MatchContains, MatchExact:
	default:
		return fmt.Errorf("unknown marker match %q, expected one of %s, %s, %s", m.Match, MatchPrefix, MatchContains, MatchExact)
	}
	if m.Value == "" {
		return fmt.Errorf("%s marker has an empty value", m.Match)
	}
	return nil
}

// Matches reports whether name is matched by the marker.
func (m Marker) Matches(name string) bool {
	switch m.Match {
	case MatchPrefix:
		return strings.HasPrefix(name, m.Value)
	case MatchContains:
		return strings.Contains(name, m.Value)
	case MatchExact:
		return name == m.Value
	}
	return false
}

// Policy decides what happens to symbols classified as internal.
type Policy int

const (
	// Keep reports internal symbols like any other symbol.
	Keep Policy = iota
	// Merge sums internal symbols into a single "Internal" entry.
	Merge
	// Drop excludes internal symbols from the entries.
	Drop
)

var policyNames = []string{"keep", "merge", "drop"}

// PolicyOptions lists the accepted policy names.
func PolicyOptions() []string {
	return policyNames
}

func (p Policy) String() string {
	if int(p) < len(policyNames) {
		return policyNames[p]
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy converts a policy name into a Policy.
func ParsePolicy(name string) (Policy, error) {
	for i, policyName := range policyNames {
		if strings.EqualFold(name, policyName) {
			return Policy(i), nil
		}
	}
	return Keep, fmt.Errorf("unknown internals policy %q, expected one of %s", name, strings.Join(policyNames, ", "))
}

// Classifier applies an ordered list of markers and a policy to symbol names.
type Classifier struct {
	markers []Marker
	policy  Policy
}

// NewClassifier returns a classifier for the markers, which are checked in order.
func NewClassifier(markers []Marker, policy Policy) (*Classifier, error) {
	for i, marker := range markers {
		if err := marker.Validate(); err != nil {
			return nil, fmt.Errorf("marker %d: %w", i, err)
		}
	}
	return &Classifier{markers: markers, policy: policy}, nil
}

// Policy returns the classifier's policy.
func (c *Classifier) Policy() Policy {
	return c.policy
}

// IsInternal reports whether name belongs to runtime-internal code. Unnamed
// symbols are always internal.
func (c *Classifier) IsInternal(name string) bool {
	if strings.TrimSpace(name) == "" {
		return true
	}
	for _, marker := range c.markers {
		if marker.Matches(name) {
			return true
		}
	}
	return false
}

// Route returns the entry name counters for name should be attributed to, and
// false if they should be dropped.
func (c *Classifier) Route(name string) (string, bool) {
	if c.policy == Keep || !c.IsInternal(name) {
		return name, true
	}
	if c.policy == Merge {
		return InternalSymbolName, true
	}
	return "", false
}

var rustHashSuffix = regexp.MustCompile(`::h[0-9a-f]{16}$`)

// Demangle returns the display form of a raw symbol name. Names that are not
// mangled are returned unchanged.
func Demangle(name string) string {
	demangled := demangle.Filter(name)
	return rustHashSuffix.ReplaceAllString(demangled, "")
}

var angleEscapes = strings.NewReplacer("$LT$", "<", "$GT$", ">")

// UnescapeAngles reverses the $LT$ and $GT$ escaping used in emulator reports.
func UnescapeAngles(name string) string {
	return angleEscapes.Replace(name)
}
