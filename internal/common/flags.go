package common

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"

	"depict/internal/aggregate"
	"depict/internal/output"
	"depict/internal/report"
	"depict/internal/selection"
	"depict/internal/symbols"

	"github.com/spf13/cobra"
)

const (
	FlagSortName               = "sort"
	FlagDirectionName          = "direction"
	FlagLimitName              = "limit"
	FlagBreakdownName          = "breakdown"
	FlagWhereName              = "where"
	FlagInternalsName          = "internals"
	FlagMergeInternalsName     = "merge-internals"
	FlagSkipInternalsName      = "skip-internals"
	FlagTotalBasisName         = "total-basis"
	FlagFormatName             = "format"
	FlagOutputFileName         = "output-file"
	FlagQuietName              = "quiet"
	FlagPrometheusTextfileName = "prometheus-textfile"
)

const (
	// SortNone disables sorting
	SortNone = "none"
	// LimitAll disables the limit
	LimitAll = "all"
)

// ErrBinaryToStdout is returned when a binary format is requested without an output file.
var ErrBinaryToStdout = errors.New("binary formats require --output-file")

// PipelineFlags holds the flags shared by the commands that aggregate and
// render instruction statistics. Each command owns its instance.
type PipelineFlags struct {
	Sort               string
	Direction          string
	Limit              string
	Breakdown          bool
	Where              string
	Internals          string
	MergeInternals     bool
	SkipInternals      bool
	TotalBasis         string
	Format             string
	OutputFile         string
	Quiet              bool
	PrometheusTextfile string
}

// Settings is the validated form of PipelineFlags.
type Settings struct {
	Policy             symbols.Policy
	Basis              aggregate.GrandTotalBasis
	Selection          selection.Options
	Breakdown          bool
	Format             string
	OutputFile         string
	Quiet              bool
	PrometheusTextfile string
}

// Add registers the flags on cmd.
func (f *PipelineFlags) Add(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Sort, FlagSortName, selection.FieldTotal, "")
	cmd.Flags().StringVar(&f.Direction, FlagDirectionName, "asc", "")
	cmd.Flags().StringVar(&f.Limit, FlagLimitName, LimitAll, "")
	cmd.Flags().BoolVar(&f.Breakdown, FlagBreakdownName, false, "")
	cmd.Flags().StringVar(&f.Where, FlagWhereName, "", "")
	cmd.Flags().StringVar(&f.Internals, FlagInternalsName, symbols.Keep.String(), "")
	cmd.Flags().BoolVar(&f.MergeInternals, FlagMergeInternalsName, false, "")
	cmd.Flags().BoolVar(&f.SkipInternals, FlagSkipInternalsName, false, "")
	cmd.Flags().StringVar(&f.TotalBasis, FlagTotalBasisName, "", "")
	cmd.Flags().StringVar(&f.Format, FlagFormatName, "", "")
	cmd.Flags().StringVar(&f.OutputFile, FlagOutputFileName, "", "")
	cmd.Flags().BoolVar(&f.Quiet, FlagQuietName, false, "")
	cmd.Flags().StringVar(&f.PrometheusTextfile, FlagPrometheusTextfileName, "", "")
	cmd.MarkFlagsMutuallyExclusive(FlagInternalsName, FlagMergeInternalsName, FlagSkipInternalsName)
}

// FlagGroups returns the usage groups of the flags.
func (f *PipelineFlags) FlagGroups(defaultBasis aggregate.GrandTotalBasis) []FlagGroup {
	return []FlagGroup{
		{
			GroupName: "Selection Options",
			Flags: []Flag{
				{Name: FlagSortName, Help: fmt.Sprintf("sort by field, one of: %s, or %s", strings.Join(selection.FieldOptions, ", "), SortNone)},
				{Name: FlagDirectionName, Help: "sort direction, asc lists the largest values first, desc lists them last"},
				{Name: FlagLimitName, Help: fmt.Sprintf("number of rows to show, including the Total row, or %s, requires sorting", LimitAll)},
				{Name: FlagWhereName, Help: "only show symbols matching an expression over the counters, e.g., 'total > 1000 && call > 0'"},
			},
		},
		{
			GroupName: "Internal Symbol Options",
			Flags: []Flag{
				{Name: FlagInternalsName, Help: fmt.Sprintf("what to do with runtime-internal symbols, one of: %s", strings.Join(symbols.PolicyOptions(), ", "))},
				{Name: FlagMergeInternalsName, Help: fmt.Sprintf("same as --%s merge", FlagInternalsName)},
				{Name: FlagSkipInternalsName, Help: fmt.Sprintf("same as --%s drop", FlagInternalsName)},
				{Name: FlagTotalBasisName, Help: fmt.Sprintf("count dropped symbols in the Total row (pre) or not (post), default: %s", defaultBasis)},
			},
		},
		{
			GroupName: "Output Options",
			Flags: []Flag{
				{Name: FlagBreakdownName, Help: "show a column per instruction category"},
				{Name: FlagFormatName, Help: fmt.Sprintf("choose output format from: %s, default: from the output file extension, else %s", strings.Join(report.FormatOptions, ", "), report.FormatPlain)},
				{Name: FlagOutputFileName, Help: "also write the output to this file"},
				{Name: FlagQuietName, Help: fmt.Sprintf("do not write the output to stdout, requires --%s", FlagOutputFileName)},
				{Name: FlagPrometheusTextfileName, Help: "also write the counters to this file in the Prometheus text format"},
			},
		},
	}
}

// Settings validates the flags. The grand total basis defaults to defaultBasis.
// An unknown format falls back to plain with a warning.
func (f *PipelineFlags) Settings(defaultBasis aggregate.GrandTotalBasis) (Settings, error) {
	settings := Settings{
		Basis:              defaultBasis,
		Breakdown:          f.Breakdown,
		OutputFile:         f.OutputFile,
		Quiet:              f.Quiet,
		PrometheusTextfile: f.PrometheusTextfile,
	}
	// internals
	var err error
	switch {
	case f.MergeInternals && f.SkipInternals:
		return Settings{}, fmt.Errorf("--%s and --%s are mutually exclusive", FlagMergeInternalsName, FlagSkipInternalsName)
	case f.MergeInternals:
		settings.Policy = symbols.Merge
	case f.SkipInternals:
		settings.Policy = symbols.Drop
	default:
		if settings.Policy, err = symbols.ParsePolicy(f.Internals); err != nil {
			return Settings{}, err
		}
	}
	if f.TotalBasis != "" {
		if settings.Basis, err = aggregate.ParseBasis(f.TotalBasis); err != nil {
			return Settings{}, err
		}
	}
	// selection
	if f.Sort != "" && f.Sort != SortNone {
		direction, err := selection.ParseDirection(f.Direction)
		if err != nil {
			return Settings{}, err
		}
		// an unknown field is reported when rendering
		settings.Selection.Sort = &selection.Sorting{Field: f.Sort, Direction: direction}
	}
	if f.Limit != "" && f.Limit != LimitAll {
		limit, err := strconv.Atoi(f.Limit)
		if err != nil || limit <= 0 {
			return Settings{}, fmt.Errorf("limit must be a positive number or %s, got %q", LimitAll, f.Limit)
		}
		settings.Selection.Limit = limit
	}
	if err := settings.Selection.Validate(); err != nil {
		return Settings{}, fmt.Errorf("%w, use --%s", err, FlagSortName)
	}
	if f.Where != "" {
		if settings.Selection.Filter, err = selection.NewFilter(f.Where); err != nil {
			return Settings{}, err
		}
	}
	// output
	if f.Quiet && f.OutputFile == "" {
		return Settings{}, output.ErrNoDestination
	}
	switch {
	case f.Format == "":
		settings.Format = report.FormatFromPath(f.OutputFile)
	case slices.Contains(report.FormatOptions, f.Format):
		settings.Format = f.Format
	default:
		msg := fmt.Sprintf("unknown format %q, using %s, format options are: %s", f.Format, report.FormatPlain, strings.Join(report.FormatOptions, ", "))
		slog.Warn(msg)
		fmt.Fprintf(os.Stderr, "Warning: %s\n", msg)
		settings.Format = report.FormatPlain
	}
	if report.IsBinary(settings.Format) && f.OutputFile == "" {
		return Settings{}, fmt.Errorf("%w, %s", ErrBinaryToStdout, settings.Format)
	}
	return settings, nil
}
