// Package output provides the destinations rendered reports are written to.
package output

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"depict/internal/util"
)

// ErrNoDestination is returned when stdout is suppressed and no output file is set.
var ErrNoDestination = errors.New("--quiet requires --output-file")

// Sink is a destination for rendered output.
type Sink interface {
	io.Writer
	Flush() error
	Close() error
}

// writerSink buffers writes to a writer it does not own.
type writerSink struct {
	w *bufio.Writer
}

// NewWriterSink returns a sink writing to w. Close flushes but does not close w.
func NewWriterSink(w io.Writer) Sink {
	return &writerSink{w: bufio.NewWriter(w)}
}

func (s *writerSink) Write(p []byte) (int, error) {
	return s.w.Write(p)
}

func (s *writerSink) Flush() error {
	return s.w.Flush()
}

func (s *writerSink) Close() error {
	return s.w.Flush()
}

// fileSink owns its file.
type fileSink struct {
	path string
	file *os.File
	w    *bufio.Writer
}

// CreateFile creates or truncates the file at path, creating missing parent
// directories.
func CreateFile(path string) (Sink, error) {
	if err := util.CreateDirectoryIfNotExists(filepath.Dir(path), 0755); err != nil { // #nosec G301
		return nil, err
	}
	file, err := os.Create(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	slog.Debug("created output file", slog.String("path", path))
	return &fileSink{path: path, file: file, w: bufio.NewWriter(file)}, nil
}

func (s *fileSink) Write(p []byte) (int, error) {
	return s.w.Write(p)
}

func (s *fileSink) Flush() error {
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	return nil
}

func (s *fileSink) Close() error {
	flushErr := s.Flush()
	if err := s.file.Close(); err != nil {
		return errors.Join(flushErr, fmt.Errorf("failed to close %s: %w", s.path, err))
	}
	return flushErr
}

// Multi fans every write out to all of its sinks.
type Multi []Sink

// Write writes p to every sink and returns the first error.
func (m Multi) Write(p []byte) (int, error) {
	for _, s := range m {
		if _, err := s.Write(p); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

func (m Multi) Flush() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Flush())
	}
	return errors.Join(errs...)
}

// Close closes every sink, even if some fail.
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

// Open returns the destinations for a run: stdout unless quiet, and the output
// file when a path is set.
func Open(stdout io.Writer, outputFile string, quiet bool) (Multi, error) {
	if quiet && outputFile == "" {
		return nil, ErrNoDestination
	}
	var m Multi
	if !quiet {
		m = append(m, NewWriterSink(stdout))
	}
	if outputFile != "" {
		file, err := CreateFile(outputFile)
		if err != nil {
			return nil, err
		}
		m = append(m, file)
	}
	return m, nil
}
