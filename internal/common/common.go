// Package common defines data structures and functions that are used by multiple
// application commands, e.g., qbdi, sde, parse.
package common

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"depict/internal/config"
	"depict/internal/util"

	"github.com/spf13/cobra"
)

var AppName = filepath.Base(os.Args[0])

// AppContext represents the application context that can be accessed from all commands.
type AppContext struct {
	Timestamp    string        // Timestamp is the application start time.
	LocalTempDir string        // LocalTempDir is the temp directory on the local host (created by the application).
	LogFilePath  string        // LogFilePath is the path of the log file, empty when not logging to a file.
	Version      string        // Version is the version of the application.
	Debug        bool          // Debug is set when debug logging is enabled and temporary files are retained.
	Config       config.Config // Config is the loaded configuration.
}

// GetAppContext returns the application context stored in the parent command's context.
func GetAppContext(cmd *cobra.Command) AppContext {
	if parent := cmd.Parent(); parent != nil && parent.Context() != nil {
		if appContext, ok := parent.Context().Value(AppContext{}).(AppContext); ok {
			return appContext
		}
	}
	return AppContext{Config: config.Default()}
}

type Flag struct {
	Name string
	Help string
}
type FlagGroup struct {
	GroupName string
	Flags     []Flag
}

// FlagValidationError is used to report an error with a flag
func FlagValidationError(cmd *cobra.Command, msg string) error {
	err := errors.New(msg)
	return ReportFlagError(cmd, err)
}

// ReportFlagError prints a flag error and a pointer to the usage help
func ReportFlagError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	fmt.Fprintf(os.Stderr, "See '%s --help' for usage details.\n", cmd.CommandPath())
	cmd.SilenceUsage = true
	return err
}

// ForwardSignals relays SIGINT and SIGTERM to the child processes, i.e., the
// instrumented program, until the returned function is called. The children
// exit on the signal, which ends the parse normally.
func ForwardSignals() (stop func()) {
	sigChannel := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigChannel, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChannel:
			slog.Info("received signal", slog.String("signal", sig.String()))
			// when depict is run in the background or disowned the shell does not
			// propagate the signal to our children
			if err := util.SignalChildren(sig); err != nil {
				slog.Error("error sending signal to children", slog.String("error", err.Error()))
			}
		case <-done:
		}
	}()
	return func() {
		signal.Stop(sigChannel)
		close(done)
	}
}

// ReportError prints and logs an error that ends a command
func ReportError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	slog.Error(err.Error(), slog.String("command", cmd.Name()))
	cmd.SilenceUsage = true
	return err
}
