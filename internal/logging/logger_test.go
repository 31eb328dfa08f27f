package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eskarasu/merge-videos/internal/logging"
	"github.com/eskarasu/merge-videos/internal/testsupport"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	logger, err := logging.New(logging.Options{FilePath: path, Format: "json"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("file sink check", "component", "logging-test")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "file sink check") {
		t.Fatalf("expected log entry in file, got %q", data)
	}
}

func TestNewFromConfigCreatesLogDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	logger.Info("daemon boot")

	logPath := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("expected log file at %s: %v", logPath, err)
	}
	if !strings.Contains(string(data), "daemon boot") {
		t.Fatalf("expected entry in daemon log, got %q", data)
	}
}

func TestDebugLevelEnablesDebugRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	logger, err := logging.New(logging.Options{FilePath: path, Level: "debug"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Debug("verbose detail")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "verbose detail") {
		t.Fatal("expected debug record at debug level")
	}
}
