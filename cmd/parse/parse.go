// Package parse is a subcommand of the root command. It aggregates previously
// captured instrumentation output without running a program.
package parse

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"depict/internal/aggregate"
	"depict/internal/common"
	"depict/internal/config"
	"depict/internal/mix"
	"depict/internal/stream"
	"depict/internal/symbols"
	"depict/internal/util"

	"github.com/spf13/cobra"
)

const cmdName = "parse"

const (
	backendStream = "stream"
	backendReport = "report"
)

var backendOptions = []string{backendStream, backendReport}

var examples = []string{
	fmt.Sprintf("  Replay a captured tracer stream:  $ %s %s --backend stream trace.txt", common.AppName, cmdName),
	fmt.Sprintf("  Read an existing SDE mix report:  $ %s %s --backend report --format json mix.txt", common.AppName, cmdName),
	fmt.Sprintf("  Read a tracer stream from stdin:  $ ./app | %s %s --backend stream -", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName + " [flags] FILE",
	Short:         "Aggregate a captured tracer stream or an existing SDE mix report",
	Long:          "Reads instrumentation output from FILE, or stdin when FILE is -, and reports it like the qbdi and sde commands.",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.ExactArgs(1),
	SilenceErrors: true,
}

var (
	pipelineFlags  common.PipelineFlags
	flagBackend    string
	flagTagPrefix  string
	flagForwardOut bool
	settings       common.Settings
)

const (
	flagBackendName    = "backend"
	flagTagPrefixName  = "tag-prefix"
	flagForwardOutName = "forward"
)

func init() {
	Cmd.Flags().StringVar(&flagBackend, flagBackendName, backendStream, "")
	Cmd.Flags().StringVar(&flagTagPrefix, flagTagPrefixName, "", "")
	Cmd.Flags().BoolVar(&flagForwardOut, flagForwardOutName, false, "")
	pipelineFlags.Add(Cmd)
	Cmd.SetUsageFunc(common.UsageFunc(getFlagGroups))
}

// defaultBasis matches the basis of the command that produced the input
func defaultBasis() aggregate.GrandTotalBasis {
	if flagBackend == backendReport {
		return aggregate.PostFilter
	}
	return aggregate.PreFilter
}

func getFlagGroups() []common.FlagGroup {
	groups := []common.FlagGroup{
		{
			GroupName: "Input Options",
			Flags: []common.Flag{
				{Name: flagBackendName, Help: fmt.Sprintf("input kind, one of: %s", strings.Join(backendOptions, ", "))},
				{Name: flagTagPrefixName, Help: fmt.Sprintf("prefix of the tracer's output lines, default: from the configuration (%s)", stream.DefaultTagPrefix)},
				{Name: flagForwardOutName, Help: "write the program output found in a tracer stream to stdout"},
			},
		},
	}
	return append(groups, pipelineFlags.FlagGroups(defaultBasis())...)
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if !slices.Contains(backendOptions, flagBackend) {
		return common.FlagValidationError(cmd, fmt.Sprintf("backend options are: %s", strings.Join(backendOptions, ", ")))
	}
	if cmd.Flags().Changed(flagTagPrefixName) && flagTagPrefix == "" {
		return common.FlagValidationError(cmd, "tag prefix must not be empty")
	}
	if flagBackend == backendReport && (cmd.Flags().Changed(flagTagPrefixName) || flagForwardOut) {
		return common.FlagValidationError(cmd, fmt.Sprintf("--%s and --%s only apply to the %s backend", flagTagPrefixName, flagForwardOutName, backendStream))
	}
	if args[0] != "-" {
		exists, err := util.FileExists(args[0])
		if err != nil {
			return common.ReportFlagError(cmd, err)
		}
		if !exists {
			return common.FlagValidationError(cmd, fmt.Sprintf("input file %s does not exist", args[0]))
		}
	}
	var err error
	if settings, err = pipelineFlags.Settings(defaultBasis()); err != nil {
		return common.ReportFlagError(cmd, err)
	}
	return nil
}

func runCmd(cmd *cobra.Command, args []string) error {
	appContext := common.GetAppContext(cmd)
	var input io.Reader = os.Stdin
	if args[0] != "-" {
		file, err := os.Open(args[0])
		if err != nil {
			return common.ReportError(cmd, fmt.Errorf("failed to open input: %w", err))
		}
		defer file.Close()
		input = file
	}
	var agg *aggregate.Aggregator
	var err error
	if flagBackend == backendReport {
		agg, err = aggregateReport(input, appContext.Config)
	} else {
		agg, err = aggregateStream(input, appContext.Config)
	}
	if err != nil {
		return common.ReportError(cmd, err)
	}
	result := agg.Result()
	common.LogResult(agg, result)
	if err := common.Render(result, settings, os.Stdout, os.Stderr); err != nil {
		return common.ReportError(cmd, err)
	}
	return nil
}

func aggregateStream(input io.Reader, cfg config.Config) (*aggregate.Aggregator, error) {
	agg, err := common.NewAggregator(cfg, cfg.InternalMarkers.Stream, settings)
	if err != nil {
		return nil, err
	}
	tagPrefix := cfg.TagPrefix
	if flagTagPrefix != "" {
		tagPrefix = flagTagPrefix
	}
	passthrough := io.Discard
	if flagForwardOut {
		passthrough = os.Stdout
	}
	summary, err := stream.Parse(input, passthrough, agg, stream.Options{TagPrefix: tagPrefix, Demangle: symbols.Demangle})
	if err != nil {
		return nil, err
	}
	slog.Info("parsed instrumentation stream",
		slog.Int("lines", summary.Lines),
		slog.Int("records", summary.Records),
		slog.Int("incomplete", summary.Incomplete),
		slog.Int("malformed", summary.Malformed))
	return agg, nil
}

func aggregateReport(input io.Reader, cfg config.Config) (*aggregate.Aggregator, error) {
	agg, err := common.NewAggregator(cfg, cfg.InternalMarkers.Report, settings)
	if err != nil {
		return nil, err
	}
	report, err := mix.Parse(input)
	if err != nil {
		return nil, err
	}
	if !report.Started {
		slog.Warn("mix report has no global function totals, using every function section found")
	}
	common.LogReportCoverage(report)
	for _, section := range report.Functions {
		agg.Add(section.Name, section.Counts)
	}
	return agg, nil
}
