// Package relaytypes provides shared type definitions for the relay module.
package relaytypes

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/rs/zerolog"
)

// Object represents a listed S3 object with its basic metadata.
type Object struct {
	// Key is the S3 object key (path)
	Key string

	// Size is the object size in bytes
	Size int64

	// LastModified is when the object was last modified
	LastModified time.Time

	// ETag is the S3 entity tag for the object
	ETag string

	// StorageClass is the S3 storage class
	StorageClass string
}

// TransferOutcome is the per-object terminal state of a transfer decision.
type TransferOutcome string

// Predefined transfer outcomes
const (
	// OutcomeCopied means the object was transferred to the destination
	OutcomeCopied TransferOutcome = "Copied"

	// OutcomeSkippedExisting means the destination already held the object
	OutcomeSkippedExisting TransferOutcome = "SkippedExisting"
)

// RunConfig describes one relay run: where to read, where to write,
// and which accounts/regions to include.
type RunConfig struct {
	// SourceBucket is the bucket holding the config logs
	SourceBucket string

	// SourcePrefix is the optional prefix carried by the source location ARN.
	// When set it is used as the keyspace prefix directly; when empty the
	// prefix is resolved by probing the bucket.
	SourcePrefix string

	// DestinationBucket receives the copied objects
	DestinationBucket string

	// Accounts is the set of account identifiers to copy. An empty set
	// makes the run a no-op.
	Accounts []string

	// Regions optionally restricts objects to these regions.
	// Empty means no region restriction.
	Regions []string
}

// RunResult contains the summary of a relay run.
// When a run fails partway, the orchestrator still returns a RunResult
// carrying the counters accumulated before the failure.
type RunResult struct {
	// Copied is the number of objects transferred to the destination
	Copied int

	// Skipped is the number of objects already present at the destination
	Skipped int

	// Duration is how long the run took
	Duration time.Duration

	// Config echoes the resolved run configuration
	Config RunConfig
}

// ProgressTracker receives per-object progress updates during a run.
// Implementations must be safe to call from the run's single goroutine.
type ProgressTracker interface {
	// Update is called after each object is decided, with the total number
	// of objects processed so far and that object's outcome
	Update(processed int64, outcome TransferOutcome)

	// Complete is called when the run finishes successfully
	Complete()

	// Error is called when the run fails
	Error(err error)
}

// ClientConfig holds configuration for the relay client.
type ClientConfig struct {
	Region          string
	MaxRetries      int
	Timeout         time.Duration
	ForcePathStyle  bool
	WindowDays      int
	SourceAccountID string
	SourceRoleName  string
	CustomAWSConfig *aws.Config
	SourceAWSConfig *aws.Config
	Logger          *zerolog.Logger
	Clock           func() time.Time
	Tracker         ProgressTracker
}

// Option is a functional option for configuring the relay client.
type Option func(*ClientConfig)
