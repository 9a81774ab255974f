package tool

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"

	"depict/internal/stream"

	"github.com/pkg/errors"
)

const (
	qbdiBackend        = "qbdi"
	qbdiWinPreloader   = "QBDIWinPreloader.exe"
	qbdiLibraryWindows = "libqbdi_tracer.dll"
	qbdiLibraryDarwin  = "libqbdi_tracer.dylib"
	qbdiLibraryLinux   = "libqbdi_tracer.so"
)

// Qbdi runs programs under the QBDI tracer library, which is injected when the
// program is loaded and prints tagged records on the program's stdout.
type Qbdi struct {
	// AppDir is the directory holding the tracer library and, on Windows,
	// the preloader.
	AppDir string
	// GOOS selects how the tracer is injected.
	GOOS string
	// Stdin and Stderr are handed to the program.
	Stdin  io.Reader
	Stderr io.Writer
}

// Command returns the command that runs the request with the tracer injected.
func (q Qbdi) Command(ctx context.Context, req Request) (*exec.Cmd, error) {
	switch q.GOOS {
	case "windows":
		preloader, err := adjacentFile(q.AppDir, qbdiWinPreloader)
		if err != nil {
			return nil, err
		}
		library, err := adjacentFile(q.AppDir, qbdiLibraryWindows)
		if err != nil {
			return nil, err
		}
		args := append([]string{library, req.Program}, req.Arguments...)
		return exec.CommandContext(ctx, preloader, args...), nil // #nosec G204
	case "darwin":
		library, err := adjacentFile(q.AppDir, qbdiLibraryDarwin)
		if err != nil {
			return nil, err
		}
		cmd := exec.CommandContext(ctx, req.Program, req.Arguments...) // #nosec G204
		cmd.Env = environ("DYLD_BIND_AT_LAUNCH=1", "DYLD_INSERT_LIBRARIES="+library)
		return cmd, nil
	case "linux":
		library, err := adjacentFile(q.AppDir, qbdiLibraryLinux)
		if err != nil {
			return nil, err
		}
		cmd := exec.CommandContext(ctx, req.Program, req.Arguments...) // #nosec G204
		cmd.Env = environ("LD_BIND_NOW=1", "LD_PRELOAD="+library)
		return cmd, nil
	}
	return nil, errors.Errorf("the qbdi backend is not supported on %s", q.GOOS)
}

// Run starts the program, streams its stdout through the record parser until
// the program closes it, then waits for the program to exit. Program output
// that is not a record is written to passthrough.
func (q Qbdi) Run(ctx context.Context, req Request, sink stream.RecordSink, passthrough io.Writer, opts stream.Options) (stream.Summary, error) {
	cmd, err := q.Command(ctx, req)
	if err != nil {
		return stream.Summary{}, err
	}
	cmd.Stdin = q.Stdin
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}
	cmd.Stderr = q.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return stream.Summary{}, errors.Wrap(err, "failed to create stdout pipe")
	}
	slog.Debug("running instrumented program", slog.String("backend", qbdiBackend), slog.String("cmd", cmd.String()))
	if err := cmd.Start(); err != nil {
		return stream.Summary{}, errors.Wrapf(err, "failed to start %s", req.Program)
	}
	summary, parseErr := stream.Parse(stdout, passthrough, sink, opts)
	if parseErr != nil {
		// unblock the program before reaping it
		_, _ = io.Copy(io.Discard, stdout)
	}
	waitErr := logExit(qbdiBackend, cmd.Wait())
	slog.Info("parsed instrumentation stream",
		slog.Int("lines", summary.Lines),
		slog.Int("records", summary.Records),
		slog.Int("forwarded", summary.Forwarded),
		slog.Int("incomplete", summary.Incomplete),
		slog.Int("malformed", summary.Malformed))
	if parseErr != nil {
		return summary, parseErr
	}
	return summary, waitErr
}
