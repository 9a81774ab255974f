// Package tool runs the instrumentation backends on a program and hands their
// output to the parsers.
package tool

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"depict/internal/util"

	"github.com/pkg/errors"
)

// Request is the program to instrument and its arguments.
type Request struct {
	Program   string
	Arguments []string
}

func (r Request) String() string {
	return strings.Join(append([]string{r.Program}, r.Arguments...), " ")
}

// adjacentFile returns the path of name in appDir, failing if it is not a file.
func adjacentFile(appDir string, name string) (string, error) {
	path := filepath.Join(appDir, name)
	exists, err := util.FileExists(path)
	if err != nil {
		return "", errors.Wrapf(err, "%s is not usable", path)
	}
	if !exists {
		return "", errors.Errorf("%s not adjacent to %s, %s does not exist", name, appDir, path)
	}
	return path, nil
}

// logExit logs how the instrumented program finished. A non-zero exit status
// is not an error.
func logExit(backend string, err error) error {
	if err == nil {
		slog.Debug("instrumented program exited", slog.String("backend", backend))
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		slog.Warn("instrumented program exited with non-zero status",
			slog.String("backend", backend), slog.Int("exit code", exitErr.ExitCode()))
		return nil
	}
	return errors.Wrapf(err, "failed waiting for %s", backend)
}

// environ returns the current environment with extra variables appended.
func environ(extra ...string) []string {
	return append(os.Environ(), extra...)
}
