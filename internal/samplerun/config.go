// Package samplerun drives a running studyprio service with generated
// subjects and checks the labels it returns.
package samplerun

import (
	"io"
	"time"

	"github.com/okian/studyprio/internal/domain/model"
)

// Default run settings.
const (
	DefaultBaseURL      = "http://localhost:9080"
	DefaultNumSubjects  = 1000
	DefaultBatchSize    = 25
	DefaultTimeout      = 10 * time.Second
	DefaultPollInterval = 200 * time.Millisecond
	DefaultWaitTimeout  = time.Minute
)

// Config holds configuration for a sample run.
type Config struct {
	BaseURL      string        // Base URL of the service
	NumSubjects  int           // Number of subjects to generate
	BatchSize    int           // Subjects per submitted batch
	Workers      int           // Number of concurrent requests
	Timeout      time.Duration // HTTP request timeout
	PollInterval time.Duration // Delay between batch polls
	WaitTimeout  time.Duration // How long to wait for batches to complete
	Rate         float64       // Requests per second; zero is unlimited
	OutputFile   string        // Output file for generated cases
	LogFile      string        // Log file for run output
	Verbose      bool          // Log every mismatch
	Progress     io.Writer     // Progress output; nil means stdout when it is a terminal
}

// Case is one generated subject and the label it was generated for.
type Case struct {
	Subject string       `json:"subject"`
	Sample  model.Sample `json:"sample"`
	Target  model.Label  `json:"target"`
}

// Outcome is what the service returned for a case.
type Outcome struct {
	Subject string
	Label   model.Label
	Error   string
}

// Stats holds run statistics.
type Stats struct {
	SubjectsGenerated int
	BatchesSubmitted  int
	BatchesAccepted   int
	BatchesDuplicate  int
	BatchesRejected   int
	BatchesFailed     int
	BatchesCompleted  int
	Matched           int
	Mismatched        int
	ItemErrors        int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
