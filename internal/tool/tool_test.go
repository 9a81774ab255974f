package tool

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"

	"depict/internal/stream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	symbol   string
	category string
	count    uint64
}

type recorder struct {
	records []record
}

func (r *recorder) Record(symbol string, category string, count uint64) {
	r.records = append(r.records, record{symbol, category, count})
}

func skipUnlessLinux(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("requires linux")
	}
}

func writeFile(t *testing.T, path string, content string, perm os.FileMode) {
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
}

func TestQbdiCommand(t *testing.T) {
	appDir := t.TempDir()
	for _, name := range []string{qbdiLibraryLinux, qbdiLibraryDarwin, qbdiLibraryWindows, qbdiWinPreloader} {
		writeFile(t, filepath.Join(appDir, name), "", 0644)
	}
	req := Request{Program: "app", Arguments: []string{"-n", "3"}}

	cmd, err := Qbdi{AppDir: appDir, GOOS: "linux"}.Command(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"app", "-n", "3"}, cmd.Args)
	assert.Contains(t, cmd.Env, "LD_BIND_NOW=1")
	assert.Contains(t, cmd.Env, "LD_PRELOAD="+filepath.Join(appDir, qbdiLibraryLinux))

	cmd, err = Qbdi{AppDir: appDir, GOOS: "darwin"}.Command(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, cmd.Env, "DYLD_BIND_AT_LAUNCH=1")
	assert.Contains(t, cmd.Env, "DYLD_INSERT_LIBRARIES="+filepath.Join(appDir, qbdiLibraryDarwin))

	cmd, err = Qbdi{AppDir: appDir, GOOS: "windows"}.Command(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(appDir, qbdiWinPreloader), cmd.Path)
	assert.Equal(t, []string{filepath.Join(appDir, qbdiLibraryWindows), "app", "-n", "3"}, cmd.Args[1:])

	_, err = Qbdi{AppDir: appDir, GOOS: "plan9"}.Command(context.Background(), req)
	assert.Error(t, err)
}

func TestQbdiCommandMissingLibrary(t *testing.T) {
	appDir := t.TempDir()
	_, err := Qbdi{AppDir: appDir, GOOS: "linux"}.Command(context.Background(), Request{Program: "app"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), qbdiLibraryLinux)

	// a directory is not a library
	require.NoError(t, os.Mkdir(filepath.Join(appDir, qbdiLibraryLinux), 0755))
	_, err = Qbdi{AppDir: appDir, GOOS: "linux"}.Command(context.Background(), Request{Program: "app"})
	assert.Error(t, err)
}

func TestQbdiRun(t *testing.T) {
	skipUnlessLinux(t)
	appDir := t.TempDir()
	// an unloadable preload library is ignored by the dynamic loader
	writeFile(t, filepath.Join(appDir, qbdiLibraryLinux), "", 0644)
	var passthrough, stderr bytes.Buffer
	sink := &recorder{}
	qbdi := Qbdi{AppDir: appDir, GOOS: "linux", Stdin: strings.NewReader(""), Stderr: &stderr}
	req := Request{Program: "/bin/sh", Arguments: []string{"-c", `printf 'hello\nbm::main/call/3\nbm::main/mem_read/x\nbm::main/mem_read/2\n'; exit 4`}}
	summary, err := qbdi.Run(context.Background(), req, sink, &passthrough, stream.Options{})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", passthrough.String())
	assert.Equal(t, []record{{"main", "call", 3}, {"main", "mem_read", 2}}, sink.records)
	assert.Equal(t, 4, summary.Lines)
	assert.Equal(t, 1, summary.Malformed)
}

func TestQbdiRunMissingProgram(t *testing.T) {
	skipUnlessLinux(t)
	appDir := t.TempDir()
	writeFile(t, filepath.Join(appDir, qbdiLibraryLinux), "", 0644)
	qbdi := Qbdi{AppDir: appDir, GOOS: "linux"}
	_, err := qbdi.Run(context.Background(), Request{Program: filepath.Join(appDir, "missing")}, &recorder{}, &bytes.Buffer{}, stream.Options{})
	assert.Error(t, err)
}

const fakeReport = `#GLOBAL_FUNCTION TOTALS
# $global-dynamic-counts
*total 15
# $dynamic-counts-for-function: main  IMG: /bin/app
*total 10
*mem-read 4
# $dynamic-counts-for-function: helper  IMG: /bin/app
*total 5
`

// fakeSde writes a script that behaves like the emulator: the report path is
// its second argument.
func fakeSde(t *testing.T, report string, exitCode int) string {
	path := filepath.Join(t.TempDir(), "sde")
	script := "#!/bin/sh\n"
	if report != "" {
		script += "cat > \"$2\" <<'EOF'\n" + report + "EOF\n"
	}
	script += "exit " + strconv.Itoa(exitCode) + "\n"
	writeFile(t, path, script, 0755)
	return path
}

func TestSdeArgs(t *testing.T) {
	sde := Sde{Path: "sde", ReportPath: "out.txt"}
	assert.Equal(t, []string{"-omix", "out.txt", "-mix_filter_no_shared_libs", "-top_blocks", "50", "--", "app", "a", "b"},
		sde.Args(Request{Program: "app", Arguments: []string{"a", "b"}}))
	sde.TopBlocks = 7
	assert.Equal(t, "7", sde.Args(Request{Program: "app"})[4])
}

func TestSdeRun(t *testing.T) {
	skipUnlessLinux(t)
	reportPath := filepath.Join(t.TempDir(), SdeReportFilename)
	var statuses []string
	sde := Sde{Path: fakeSde(t, fakeReport, 0), ReportPath: reportPath}
	report, err := sde.Run(context.Background(), Request{Program: "app"}, func(label string, status string) error {
		statuses = append(statuses, label+": "+status)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, report.Functions, 2)
	assert.Equal(t, "main", report.Functions[0].Name)
	assert.Equal(t, uint64(4), report.Functions[0].Counts.MemRead)
	require.NotNil(t, report.Global)
	assert.Equal(t, uint64(15), report.Global.Total)
	assert.Equal(t, "sde: done", statuses[len(statuses)-1])
	assert.NoFileExists(t, reportPath)
}

func TestSdeRunKeep(t *testing.T) {
	skipUnlessLinux(t)
	reportPath := filepath.Join(t.TempDir(), "kept.txt")
	sde := Sde{Path: fakeSde(t, fakeReport, 0), ReportPath: reportPath, Keep: true}
	_, err := sde.Run(context.Background(), Request{Program: "app"}, nil)
	require.NoError(t, err)
	assert.FileExists(t, reportPath)
}

func TestSdeRunNonZeroExit(t *testing.T) {
	skipUnlessLinux(t)
	sde := Sde{Path: fakeSde(t, fakeReport, 3), ReportPath: filepath.Join(t.TempDir(), SdeReportFilename)}
	report, err := sde.Run(context.Background(), Request{Program: "app"}, nil)
	require.NoError(t, err)
	assert.Len(t, report.Functions, 2)
}

func TestSdeRunMissingReport(t *testing.T) {
	skipUnlessLinux(t)
	sde := Sde{Path: fakeSde(t, "", 0), ReportPath: filepath.Join(t.TempDir(), SdeReportFilename)}
	_, err := sde.Run(context.Background(), Request{Program: "app"}, nil)
	assert.ErrorContains(t, err, "was not written")
}

func TestSdeRunEmptyReport(t *testing.T) {
	skipUnlessLinux(t)
	reportPath := filepath.Join(t.TempDir(), SdeReportFilename)
	path := filepath.Join(t.TempDir(), "sde")
	writeFile(t, path, "#!/bin/sh\n: > \"$2\"\n", 0755)
	_, err := Sde{Path: path, ReportPath: reportPath}.Run(context.Background(), Request{Program: "app"}, nil)
	assert.ErrorContains(t, err, "is empty")
}

func TestSdeRunMissingEmulator(t *testing.T) {
	sde := Sde{Path: filepath.Join(t.TempDir(), "missing"), ReportPath: "unused"}
	_, err := sde.Run(context.Background(), Request{Program: "app"}, nil)
	assert.Error(t, err)
}

func TestFindSde(t *testing.T) {
	appDir := t.TempDir()
	t.Setenv(SdePathEnv, "")
	assert.Equal(t, "sde", FindSde(appDir, "sde"))

	t.Setenv(SdePathEnv, "/opt/sde")
	assert.Equal(t, filepath.Join("/opt/sde", "sde"), FindSde(appDir, "sde"))

	writeFile(t, filepath.Join(appDir, "sde"), "", 0755)
	assert.Equal(t, filepath.Join(appDir, "sde"), FindSde(appDir, "sde"))
}

func TestRequestString(t *testing.T) {
	assert.Equal(t, "app -v x", Request{Program: "app", Arguments: []string{"-v", "x"}}.String())
}
