// Package config provides configuration defaults and utilities
// for the bybitarc application.
//
// This package defines all configurable constants with documented defaults.
// Users can override these values via config.yaml or CLI flags.
package config

import "time"

// =============================================================================
// Remote Source Defaults
// =============================================================================

const (
	// DefaultOrderbookBaseURL is the public archive host for order book dumps.
	// Override via config: source.orderbook_base_url
	DefaultOrderbookBaseURL = "https://quote-saver.bycsi.com/orderbook/spot"

	// DefaultBulkBaseURL is the public host for trades and klines dumps.
	// Override via config: source.bulk_base_url
	DefaultBulkBaseURL = "https://public.bybit.com"

	// DefaultDownloadTimeout bounds a single download attempt.
	// Archives run into gigabytes, so this is generous.
	// Override via config: source.timeout
	DefaultDownloadTimeout = 120 * time.Second

	// DownloadChunkSize is the copy buffer size for streaming downloads.
	DownloadChunkSize = 8 * 1024

	// ProgressLogBytes is how often download progress is logged (debug level).
	ProgressLogBytes = 20 * 1024 * 1024
)

// =============================================================================
// Pool Defaults
// =============================================================================

const (
	// DefaultWorkers is the number of concurrent fetch workers.
	// Each worker runs one full download-convert-publish pipeline at a time.
	// Override via config: pool.workers
	DefaultWorkers = 3

	// DefaultStaggerSec is the maximum random startup delay per worker, in
	// seconds. Spreads request load so the pool does not hit the archive
	// host in one synchronized burst. Zero disables staggering.
	// Override via config: pool.stagger_sec
	DefaultStaggerSec = 5.0

	// OutcomeQueueSize is the capacity of the task outcome channel drained
	// by the aggregator.
	OutcomeQueueSize = 64
)

// =============================================================================
// Retry Defaults
// =============================================================================

const (
	// DefaultMaxAttempts is the per-task attempt budget for transient
	// failures. Not-found responses are terminal and never retried.
	// Override via config: retry.max_attempts
	DefaultMaxAttempts = 3

	// DefaultTimeoutBackoff is the wait after a timeout before retrying.
	// Override via config: retry.timeout_backoff
	DefaultTimeoutBackoff = 5 * time.Second

	// DefaultTransientBackoff is the wait after any other transient error.
	// Override via config: retry.transient_backoff
	DefaultTransientBackoff = 2 * time.Second
)

// =============================================================================
// Disk Guard Defaults
// =============================================================================

const (
	// DefaultMinFreeGB is the minimum free space on the output volume.
	// When free space falls below this, no new tasks are submitted.
	// Override via config: disk.min_free_gb
	DefaultMinFreeGB = 50.0

	// DiskCheckEvery is how many completed tasks pass between free-space
	// re-checks while a batch is running.
	DiskCheckEvery = 5
)

// =============================================================================
// Sink Defaults
// =============================================================================

const (
	// DefaultBatchSize is the number of flattened records accumulated
	// before a batch is flushed to the Parquet writer.
	// Override via config: sink.batch_size
	DefaultBatchSize = 50000

	// DefaultCompression is the Parquet compression codec.
	// Override via config: sink.compression
	DefaultCompression = "zstd"

	// DefaultCompressionLevel is the codec level (zstd: 1-22).
	// Override via config: sink.compression_level
	DefaultCompressionLevel = 3
)
