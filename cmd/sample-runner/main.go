package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/studyprio/internal/samplerun"
	"github.com/okian/studyprio/pkg/logger"
)

const (
	defaultWorkers  = 2 // multiplier for runtime.NumCPU()
	defaultDeadline = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", samplerun.DefaultBaseURL, "Base URL of the service")
		subjects   = flag.Int("subjects", samplerun.DefaultNumSubjects, "Number of subjects to generate")
		batchSize  = flag.Int("batch", samplerun.DefaultBatchSize, "Subjects per batch")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent requests")
		timeout    = flag.Duration("timeout", samplerun.DefaultTimeout, "HTTP request timeout")
		poll       = flag.Duration("poll", samplerun.DefaultPollInterval, "Delay between batch polls")
		wait       = flag.Duration("wait", samplerun.DefaultWaitTimeout, "How long to wait for batches to complete")
		rps        = flag.Float64("rate", 0, "Maximum requests per second (0 is unlimited)")
		outputFile = flag.String("output", "", "Write the generated cases to this JSON file")
		logFile    = flag.String("log", "", "Log file (default: sample_run_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Log every mismatch and enable debug output")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		samplerun.ShowHelp(os.Stdout)
		return
	}

	path, err := samplerun.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultDeadline)
	defer cancel()

	logger.Get().Info(ctx, "logging to file", logger.String("logFile", path))

	_, err = samplerun.Run(ctx, &samplerun.Config{
		BaseURL:      *baseURL,
		NumSubjects:  *subjects,
		BatchSize:    *batchSize,
		Workers:      *workers,
		Timeout:      *timeout,
		PollInterval: *poll,
		WaitTimeout:  *wait,
		Rate:         *rps,
		OutputFile:   *outputFile,
		LogFile:      path,
		Verbose:      *verbose,
	})
	if err != nil {
		logger.Get().Error(ctx, "sample run failed", logger.Error(err))
		cancel()
		os.Exit(1) //nolint:gocritic // cancel is called above
	}
}
