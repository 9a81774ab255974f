// Package sde is a subcommand of the root command. It counts the instructions
// executed per function by running a program under the Intel SDE emulator.
package sde

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"depict/internal/aggregate"
	"depict/internal/common"
	"depict/internal/mix"
	"depict/internal/progress"
	"depict/internal/tool"
	"depict/internal/util"

	"github.com/spf13/cobra"
)

const cmdName = "sde"

var examples = []string{
	fmt.Sprintf("  Count instructions per function:    $ %s %s -- ./app", common.AppName, cmdName),
	fmt.Sprintf("  Keep the mix report:                 $ %s %s --keep mix.txt -- ./app", common.AppName, cmdName),
	fmt.Sprintf("  Breakdown without runtime internals: $ %s %s --skip-internals --breakdown -- ./app", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:   cmdName + " [flags] -- program [arguments]",
	Short: "Count instructions per function with the Intel SDE emulator",
	Long: fmt.Sprintf(`Runs the program under the Intel Software Development Emulator and reads its instruction mix report.
The emulator is looked up next to %s, then in $%s, then at the configured path.`, common.AppName, tool.SdePathEnv),
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.MinimumNArgs(1),
	SilenceErrors: true,
}

var (
	pipelineFlags common.PipelineFlags
	flagKeep      string
	flagTopBlocks int
	settings      common.Settings
)

const (
	flagKeepName      = "keep"
	flagTopBlocksName = "top-blocks"
)

// the report only covers the functions it lists
const defaultBasis = aggregate.PostFilter

func init() {
	pipelineFlags.Add(Cmd)
	Cmd.Flags().StringVar(&flagKeep, flagKeepName, "", "")
	Cmd.Flags().IntVar(&flagTopBlocks, flagTopBlocksName, 0, "")
	Cmd.SetUsageFunc(common.UsageFunc(getFlagGroups))
}

func getFlagGroups() []common.FlagGroup {
	groups := []common.FlagGroup{
		{
			GroupName: "Emulator Options",
			Flags: []common.Flag{
				{Name: flagKeepName, Help: "keep the emulator's mix report at this path"},
				{Name: flagTopBlocksName, Help: fmt.Sprintf("number of top blocks the emulator reports, default: from the configuration (%d)", tool.DefaultTopBlocks)},
			},
		},
	}
	return append(groups, pipelineFlags.FlagGroups(defaultBasis)...)
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed(flagTopBlocksName) && flagTopBlocks <= 0 {
		return common.FlagValidationError(cmd, "top blocks must be greater than 0")
	}
	if cmd.Flags().Changed(flagKeepName) {
		if flagKeep == "" {
			return common.FlagValidationError(cmd, "keep requires a path")
		}
		exists, err := util.DirectoryExists(flagKeep)
		if err == nil && exists {
			return common.FlagValidationError(cmd, fmt.Sprintf("keep path %s is a directory", flagKeep))
		}
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
	agg, err := common.NewAggregator(cfg, cfg.InternalMarkers.Report, settings)
	if err != nil {
		return common.ReportError(cmd, err)
	}
	runner := tool.Sde{
		Path:       tool.FindSde(util.GetAppDir(), cfg.SDE.Path),
		ReportPath: filepath.Join(appContext.LocalTempDir, tool.SdeReportFilename),
		TopBlocks:  cfg.SDE.TopBlocks,
	}
	if flagKeep != "" {
		if runner.ReportPath, err = util.AbsPath(flagKeep); err != nil {
			return common.ReportError(cmd, err)
		}
		runner.Keep = true
		if err := util.CreateDirectoryIfNotExists(filepath.Dir(runner.ReportPath), 0755); err != nil { // #nosec G301
			return common.ReportError(cmd, err)
		}
	}
	if flagTopBlocks > 0 {
		runner.TopBlocks = flagTopBlocks
	}
	report, err := runEmulator(cmd, runner, tool.Request{Program: args[0], Arguments: args[1:]})
	if err != nil {
		return common.ReportError(cmd, err)
	}
	common.LogReportCoverage(report)
	for _, section := range report.Functions {
		agg.Add(section.Name, section.Counts)
	}
	result := agg.Result()
	common.LogResult(agg, result)
	if err := common.Render(result, settings, os.Stdout, os.Stderr); err != nil {
		return common.ReportError(cmd, err)
	}
	return nil
}

// runEmulator runs the emulator with a spinner on stderr.
func runEmulator(cmd *cobra.Command, runner tool.Sde, req tool.Request) (mix.Report, error) {
	multiSpinner := progress.NewMultiSpinner()
	if err := multiSpinner.AddSpinner(cmdName); err != nil {
		return mix.Report{}, err
	}
	multiSpinner.Start()
	stopSignals := common.ForwardSignals()
	report, err := runner.Run(cmd.Context(), req, multiSpinner.Status)
	stopSignals()
	multiSpinner.Finish()
	return report, err
}
