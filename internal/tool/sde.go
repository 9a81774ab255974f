package tool

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"depict/internal/mix"
	"depict/internal/progress"
	"depict/internal/util"

	"github.com/pkg/errors"
)

const (
	sdeBackend = "sde"
	// SdeReportFilename is the name of the mix report when it is not kept.
	SdeReportFilename = "sde-out.txt"
	// DefaultTopBlocks is the emulator's top blocks limit.
	DefaultTopBlocks = 50
	// SdePathEnv names the directory of the emulator.
	SdePathEnv = "SDE_PATH"
)

// FindSde returns the emulator to run: an sde binary adjacent to this
// application, then sde in $SDE_PATH, then the configured path.
func FindSde(appDir string, configured string) string {
	adjacent := filepath.Join(appDir, "sde")
	if exists, err := util.FileExists(adjacent); err == nil && exists {
		return adjacent
	}
	if dir := os.Getenv(SdePathEnv); dir != "" {
		return filepath.Join(dir, "sde")
	}
	return configured
}

// Sde runs programs under the SDE emulator, which writes an instruction mix
// report when the program exits.
type Sde struct {
	// Path is the emulator binary.
	Path string
	// ReportPath is where the mix report is written.
	ReportPath string
	// Keep retains the report after it is parsed.
	Keep      bool
	TopBlocks int
}

// Args returns the emulator arguments for the request.
func (s Sde) Args(req Request) []string {
	topBlocks := s.TopBlocks
	if topBlocks <= 0 {
		topBlocks = DefaultTopBlocks
	}
	args := []string{
		"-omix", s.ReportPath,
		"-mix_filter_no_shared_libs",
		"-top_blocks", strconv.Itoa(topBlocks),
		"--", req.Program,
	}
	return append(args, req.Arguments...)
}

// Run blocks until the program finishes under the emulator, then parses the
// mix report. The emulator's own output is logged. A non-zero exit status is
// logged, a missing or empty report is an error.
func (s Sde) Run(ctx context.Context, req Request, statusUpdate progress.MultiSpinnerUpdateFunc) (mix.Report, error) {
	status := func(msg string) {
		if statusUpdate != nil {
			_ = statusUpdate(sdeBackend, msg)
		}
	}
	cmd := exec.CommandContext(ctx, s.Path, s.Args(req)...) // #nosec G204
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	slog.Debug("running instrumented program", slog.String("backend", sdeBackend), slog.String("cmd", cmd.String()))
	status("running " + req.Program)
	if err := cmd.Start(); err != nil {
		status("failed to start")
		return mix.Report{}, errors.Wrapf(err, "failed to start %s", s.Path)
	}
	waitErr := logExit(sdeBackend, cmd.Wait())
	slog.Debug("emulator output", slog.String("stdout", stdout.String()), slog.String("stderr", stderr.String()))
	if waitErr != nil {
		status("failed")
		return mix.Report{}, waitErr
	}
	if !s.Keep {
		defer func() {
			if err := os.Remove(s.ReportPath); err != nil && !os.IsNotExist(err) {
				slog.Warn("failed to remove mix report", slog.String("path", s.ReportPath), slog.String("error", err.Error()))
			}
		}()
	}
	status("parsing report")
	report, err := s.parseReport()
	if err != nil {
		status("failed")
		return mix.Report{}, err
	}
	status("done")
	return report, nil
}

func (s Sde) parseReport() (mix.Report, error) {
	info, err := os.Stat(s.ReportPath)
	if err != nil {
		return mix.Report{}, errors.Wrapf(err, "mix report %s was not written", s.ReportPath)
	}
	if info.Size() == 0 {
		return mix.Report{}, errors.Errorf("mix report %s is empty", s.ReportPath)
	}
	file, err := os.Open(s.ReportPath)
	if err != nil {
		return mix.Report{}, errors.Wrap(err, "failed to open mix report")
	}
	defer file.Close()
	report, err := mix.Parse(file)
	if err != nil {
		return mix.Report{}, errors.Wrapf(err, "failed to parse %s", s.ReportPath)
	}
	slog.Info("parsed mix report",
		slog.String("path", s.ReportPath),
		slog.Int("functions", len(report.Functions)),
		slog.Bool("started", report.Started),
		slog.Int("malformed", report.Malformed))
	return report, nil
}
