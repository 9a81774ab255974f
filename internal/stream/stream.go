// Package stream parses the tagged instruction-count lines printed by the
// instrumentation tracer while the instrumented program runs.
//
// A data line has the form
//
//	<tag><mangled-symbol>/<category>/<count>
//
// Lines without the tag are ordinary program output and are forwarded
// untouched.
package stream

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

// DefaultTagPrefix is the prefix of the tracer's data lines.
const DefaultTagPrefix = "bm::"

// QbdiTracerTagPrefix is the prefix printed by the stock QBDI icount tracer,
// which differs from DefaultTagPrefix.
const QbdiTracerTagPrefix = "depict_qbdi::"

// RecordSink receives the parsed records.
type RecordSink interface {
	Record(symbol string, category string, count uint64)
}

// Options configures Parse.
type Options struct {
	TagPrefix string
	// Demangle converts raw symbol names into display names. Names are used
	// as-is when nil.
	Demangle func(string) string
}

// Summary counts what Parse saw.
type Summary struct {
	Lines      int // complete lines read
	Records    int // data lines handed to the sink
	Forwarded  int // program output lines written to the passthrough writer
	Incomplete int // data lines without a symbol separator
	Malformed  int // data lines with a missing or invalid count
}

// Parse reads r until EOF, handing every data line to sink and writing every
// other line to passthrough. A trailing data line without a newline is
// incomplete and discarded; trailing program output is forwarded as-is.
func Parse(r io.Reader, passthrough io.Writer, sink RecordSink, opts Options) (summary Summary, err error) {
	if opts.TagPrefix == "" {
		opts.TagPrefix = DefaultTagPrefix
	}
	reader := bufio.NewReader(r)
	for {
		line, readErr := reader.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			err = fmt.Errorf("failed to read instrumentation output: %w", readErr)
			return
		}
		complete := strings.HasSuffix(line, "\n")
		if line != "" {
			if complete {
				summary.Lines++
				line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
				if err = summary.handleLine(line, passthrough, sink, opts); err != nil {
					return
				}
			} else if strings.HasPrefix(line, opts.TagPrefix) {
				slog.Debug("discarding partial instrumentation line at end of stream", slog.String("line", line))
				summary.Incomplete++
			} else {
				if _, err = io.WriteString(passthrough, line); err != nil {
					err = fmt.Errorf("failed to forward program output: %w", err)
					return
				}
				summary.Forwarded++
			}
		}
		if readErr != nil {
			return
		}
	}
}

func (s *Summary) handleLine(line string, passthrough io.Writer, sink RecordSink, opts Options) error {
	rest, ok := strings.CutPrefix(line, opts.TagPrefix)
	if !ok {
		if _, err := io.WriteString(passthrough, line+"\n"); err != nil {
			return fmt.Errorf("failed to forward program output: %w", err)
		}
		s.Forwarded++
		return nil
	}
	symbol, rest, ok := strings.Cut(rest, "/")
	if !ok {
		// the tracer can be cut off mid-line when the program exits
		slog.Debug("skipping incomplete instrumentation line", slog.String("line", line))
		s.Incomplete++
		return nil
	}
	category, countText, ok := strings.Cut(rest, "/")
	if !ok {
		slog.Warn("skipping instrumentation line without a count", slog.String("line", line))
		s.Malformed++
		return nil
	}
	count, err := strconv.ParseUint(strings.TrimSpace(countText), 10, 64)
	if err != nil {
		slog.Warn("skipping instrumentation line with an invalid count", slog.String("line", line), slog.String("error", err.Error()))
		s.Malformed++
		return nil
	}
	if opts.Demangle != nil {
		symbol = opts.Demangle(symbol)
	}
	sink.Record(symbol, category, count)
	s.Records++
	return nil
}
