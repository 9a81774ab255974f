// Package qbdi is a subcommand of the root command. It counts the instructions
// executed per symbol by running a program under the QBDI tracer.
package qbdi

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"depict/internal/aggregate"
	"depict/internal/common"
	"depict/internal/stream"
	"depict/internal/symbols"
	"depict/internal/tool"
	"depict/internal/util"

	"github.com/spf13/cobra"
)

const cmdName = "qbdi"

var examples = []string{
	fmt.Sprintf("  Count instructions per symbol:           $ %s %s -- ./app --iterations 10", common.AppName, cmdName),
	fmt.Sprintf("  Show the 10 biggest symbols last:         $ %s %s --direction desc --limit 10 -- ./app", common.AppName, cmdName),
	fmt.Sprintf("  Merge runtime internals, write markdown:  $ %s %s --merge-internals --output-file stats.md -- ./app", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:   cmdName + " [flags] -- program [arguments]",
	Short: "Count instructions per symbol with the QBDI tracer",
	Long: fmt.Sprintf(`Runs the program with the QBDI tracer library injected and counts the instructions executed per symbol.
The tracer library (libqbdi_tracer.so, .dylib or .dll, and QBDIWinPreloader.exe on Windows) must be in the
directory of %s. The program's own output is passed through. There is no timeout: a program that does not
exit keeps %s waiting.
Records are expected with the %q prefix by default. The stock icount tracer prints %q,
run it with --%s %s.`, common.AppName, common.AppName, stream.DefaultTagPrefix, stream.QbdiTracerTagPrefix, flagTagPrefixName, stream.QbdiTracerTagPrefix),
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.MinimumNArgs(1),
	SilenceErrors: true,
}

var (
	pipelineFlags common.PipelineFlags
	flagTagPrefix string
	settings      common.Settings
)

const (
	flagTagPrefixName = "tag-prefix"
)

// the stream counts every instruction, whatever the internals policy
const defaultBasis = aggregate.PreFilter

func init() {
	pipelineFlags.Add(Cmd)
	Cmd.Flags().StringVar(&flagTagPrefix, flagTagPrefixName, "", "")
	Cmd.SetUsageFunc(common.UsageFunc(getFlagGroups))
}

func getFlagGroups() []common.FlagGroup {
	groups := []common.FlagGroup{
		{
			GroupName: "Tracer Options",
			Flags: []common.Flag{
				{Name: flagTagPrefixName, Help: fmt.Sprintf("prefix of the tracer's output lines, default: from the configuration (%s)", stream.DefaultTagPrefix)},
			},
		},
	}
	return append(groups, pipelineFlags.FlagGroups(defaultBasis)...)
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed(flagTagPrefixName) && flagTagPrefix == "" {
		return common.FlagValidationError(cmd, "tag prefix must not be empty")
	}
	var err error
	if settings, err = pipelineFlags.Settings(defaultBasis); err != nil {
		return common.ReportFlagError(cmd, err)
	}
	return nil
}

func runCmd(cmd *cobra.Command, args []string) error {
	appContext := common.GetAppContext(cmd)
	cfg := appContext.Config
	tagPrefix := cfg.TagPrefix
	if flagTagPrefix != "" {
		tagPrefix = flagTagPrefix
	}
	agg, err := common.NewAggregator(cfg, cfg.InternalMarkers.Stream, settings)
	if err != nil {
		return common.ReportError(cmd, err)
	}
	stopSignals := common.ForwardSignals()
	runner := tool.Qbdi{AppDir: util.GetAppDir(), GOOS: runtime.GOOS}
	req := tool.Request{Program: args[0], Arguments: args[1:]}
	_, err = runner.Run(cmd.Context(), req, agg, os.Stdout, stream.Options{TagPrefix: tagPrefix, Demangle: symbols.Demangle})
	stopSignals()
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
