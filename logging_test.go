package main

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"trikdash/config"
)

func TestLogFileNameForDate(t *testing.T) {
	when := time.Date(2026, time.January, 22, 12, 0, 0, 0, time.UTC)
	if got := logFileNameForDate(when); got != "22-Jan-2026.log" {
		t.Fatalf("expected log filename to be 22-Jan-2026.log, got %q", got)
	}
}

func TestParseLogFileDate(t *testing.T) {
	parsed, ok := parseLogFileDate("22-Jan-2026.log")
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	if parsed.Year() != 2026 || parsed.Month() != time.January || parsed.Day() != 22 {
		t.Fatalf("unexpected parsed date: %s", parsed.Format(time.RFC3339))
	}
	if _, ok := parseLogFileDate("notes.txt"); ok {
		t.Fatalf("expected non-log file to be rejected")
	}
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		"20-Jan-2026.log",
		"21-Jan-2026.log",
		"22-Jan-2026.log",
		"notes.txt",
	}
	for _, name := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	now := time.Date(2026, time.January, 22, 12, 0, 0, 0, time.UTC)
	if err := cleanupOldLogs(dir, now, 2); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	expectMissing := []string{"20-Jan-2026.log"}
	for _, name := range expectMissing {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			t.Fatalf("expected %s to be removed", name)
		} else if !os.IsNotExist(err) {
			t.Fatalf("stat %s: %v", name, err)
		}
	}
	expectPresent := []string{"21-Jan-2026.log", "22-Jan-2026.log", "notes.txt"}
	for _, name := range expectPresent {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s to remain: %v", name, err)
		}
	}
}

func TestDailyFileSinkRotatesByDate(t *testing.T) {
	dir := t.TempDir()
	sink, err := newDailyFileSink(dir, 3)
	if err != nil {
		t.Fatalf("newDailyFileSink: %v", err)
	}
	defer sink.Close()

	day1 := time.Date(2026, time.January, 22, 12, 0, 0, 0, time.UTC)
	sink.WriteLine("first", day1)
	sink.WriteLine("second", day1.Add(24*time.Hour))

	for name, want := range map[string]string{
		"22-Jan-2026.log": "2026/01/22 12:00:00 first\n",
		"23-Jan-2026.log": "2026/01/23 12:00:00 second\n",
	} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if string(data) != want {
			t.Fatalf("%s: expected %q, got %q", name, want, string(data))
		}
	}
}

type recordingSink struct {
	lines []string
}

func (r *recordingSink) WriteLine(line string, _ time.Time) { r.lines = append(r.lines, line) }
func (r *recordingSink) Close() error                       { return nil }

func TestLogFanoutSplitsLinesAndDetachesConsole(t *testing.T) {
	file := &recordingSink{}
	var console bytes.Buffer
	fanout := newLogFanout(&ioLineSink{w: &console}, file)
	logger := log.New(fanout, "", 0)

	logger.Print("one")
	_, _ = fanout.Write([]byte("two\r\nthree"))
	fanout.SetConsoleSink(nil, false)
	_, _ = fanout.Write([]byte("\nfour\n"))
	fanout.WriteFileOnlyLine("summary", time.Now())

	if got := console.String(); got != "one\ntwo\n" {
		t.Fatalf("unexpected console output %q", got)
	}
	want := []string{"one", "two", "three", "four", "summary"}
	if strings.Join(file.lines, ",") != strings.Join(want, ",") {
		t.Fatalf("expected file lines %v, got %v", want, file.lines)
	}
}

func TestLogFanoutFlushesOversizedPartialLine(t *testing.T) {
	file := &recordingSink{}
	fanout := newLogFanout(nil, file)
	_, _ = fanout.Write(bytes.Repeat([]byte("x"), maxLogBufferBytes+1))
	if len(file.lines) != 1 || len(file.lines[0]) != maxLogBufferBytes+1 {
		t.Fatalf("expected one flushed line, got %d", len(file.lines))
	}
}

func TestSetupLoggingDisabledHasNoFileSink(t *testing.T) {
	fanout, err := setupLogging(config.LoggingConfig{}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("setupLogging: %v", err)
	}
	if fanout.file != nil {
		t.Fatalf("expected no file sink when logging is disabled")
	}

	dir := filepath.Join(t.TempDir(), "logs")
	fanout, err = setupLogging(config.LoggingConfig{Enabled: true, Dir: dir, RetentionDays: 2}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("setupLogging: %v", err)
	}
	defer fanout.Close()
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("expected log dir to exist: %v", err)
	}
}
