package samplerun

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/okian/studyprio/pkg/logger"
)

const logFilePermission = 0o600

// SetupLogging sends log output to stdout and to logFile.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string, verbose bool) (string, error) {
	if logFile == "" {
		logFile = "sample_run_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return "", fmt.Errorf("failed to create log file: %w", err)
	}

	if err := logger.InitWithWriter(io.MultiWriter(os.Stdout, file)); err != nil {
		return "", fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		logger.SetLevel(slog.LevelDebug)
	}
	return logFile, nil
}

// ShowHelp prints usage information for the sample runner.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `studyprio sample runner
=======================

Generates subjects aimed at each priority label, submits them as batches to a
running studyprio service, waits for the batches to finish and checks every
label against a local classifier built from the service's GET /rules.

Usage:
  go run ./cmd/sample-runner [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -subjects int
        Number of subjects to generate (default 1000)
  -batch int
        Subjects per batch (default 25)
  -workers int
        Number of concurrent requests (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 10s)
  -poll duration
        Delay between batch polls (default 200ms)
  -wait duration
        How long to wait for batches to complete (default 1m)
  -rate float
        Maximum requests per second (default 0, unlimited)
  -output string
        Write the generated cases to this JSON file
  -log string
        Log file (default: sample_run_TIMESTAMP.log)
  -verbose
        Log every mismatch and enable debug output
  -help
        Show this help message

Examples:
  go run ./cmd/sample-runner -subjects 5000 -workers 16
  go run ./cmd/sample-runner -url http://localhost:8080 -output cases.json
`)
}
