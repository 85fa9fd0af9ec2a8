// Package loader - Configuration Types
//
// Defines the YAML configuration structure for bybitarc.
package loader

import (
	"time"

	"github.com/nssanta/bybitarc/config"
	"github.com/nssanta/bybitarc/internal/errors"
)

// =============================================================================
// Root Configuration
// =============================================================================

// Config is the root configuration structure for bybitarc.
type Config struct {
	// OutputDir is the root directory for published artifacts.
	// Artifacts land at {OutputDir}/{SYMBOL}/{artifact-name}.
	OutputDir string `yaml:"output_dir"`

	// Source configures the remote archive hosts and transfer behavior.
	Source SourceConfig `yaml:"source"`

	// Pool configures the fetch worker pool.
	Pool PoolConfig `yaml:"pool"`

	// Retry configures the per-task transient-failure retry policy.
	Retry RetryConfig `yaml:"retry"`

	// Disk configures the free-space guard on the output volume.
	Disk DiskConfig `yaml:"disk"`

	// Sink configures the Parquet output.
	Sink SinkConfig `yaml:"sink"`

	// Verify re-opens each published Parquet file and compares its row
	// count against the number of records appended. A mismatch is treated
	// as a transient failure and the task is retried.
	Verify bool `yaml:"verify"`

	// AbortInflightOnLowDisk also cancels tasks already running when the
	// disk guard trips. Off by default: the guard only stops submission
	// and lets in-flight downloads finish.
	AbortInflightOnLowDisk bool `yaml:"abort_inflight_on_low_disk"`
}

// SourceConfig configures the remote archive hosts.
type SourceConfig struct {
	// OrderbookBaseURL is the host serving daily order book zip archives.
	// Default: https://quote-saver.bycsi.com/orderbook/spot
	OrderbookBaseURL string `yaml:"orderbook_base_url"`

	// BulkBaseURL is the host serving trades and klines csv.gz dumps.
	// Default: https://public.bybit.com
	BulkBaseURL string `yaml:"bulk_base_url"`

	// Timeout bounds a single download attempt.
	Timeout time.Duration `yaml:"timeout"`
}

// PoolConfig configures the fetch worker pool.
type PoolConfig struct {
	// Workers is the number of concurrent fetch workers.
	Workers int `yaml:"workers"`

	// StaggerSec is the maximum random startup delay per task, in seconds.
	// Zero disables staggering.
	StaggerSec float64 `yaml:"stagger_sec"`
}

// RetryConfig configures the transient-failure retry policy.
type RetryConfig struct {
	// MaxAttempts is the per-task attempt budget.
	MaxAttempts int `yaml:"max_attempts"`

	// TimeoutBackoff is the wait after a timeout before the next attempt.
	TimeoutBackoff time.Duration `yaml:"timeout_backoff"`

	// TransientBackoff is the wait after any other transient error.
	TransientBackoff time.Duration `yaml:"transient_backoff"`
}

// DiskConfig configures the free-space guard.
type DiskConfig struct {
	// MinFreeGB is the minimum free space on the output volume. When free
	// space falls below this, no new tasks are submitted.
	MinFreeGB float64 `yaml:"min_free_gb"`

	// CheckEvery is how many completed tasks pass between re-checks.
	CheckEvery int `yaml:"check_every"`
}

// SinkConfig configures the Parquet output.
type SinkConfig struct {
	// Compression is the Parquet codec: zstd, snappy, lz4, gzip, none.
	Compression string `yaml:"compression"`

	// CompressionLevel is the codec level (zstd: 1-22).
	CompressionLevel int `yaml:"compression_level"`

	// BatchSize is the number of records accumulated before a batch is
	// flushed to the writer.
	BatchSize int `yaml:"batch_size"`
}

// DefaultConfig returns a config populated with documented defaults.
func DefaultConfig() *Config {
	return &Config{
		OutputDir: "data/parquet",
		Source: SourceConfig{
			OrderbookBaseURL: config.DefaultOrderbookBaseURL,
			BulkBaseURL:      config.DefaultBulkBaseURL,
			Timeout:          config.DefaultDownloadTimeout,
		},
		Pool: PoolConfig{
			Workers:    config.DefaultWorkers,
			StaggerSec: config.DefaultStaggerSec,
		},
		Retry: RetryConfig{
			MaxAttempts:      config.DefaultMaxAttempts,
			TimeoutBackoff:   config.DefaultTimeoutBackoff,
			TransientBackoff: config.DefaultTransientBackoff,
		},
		Disk: DiskConfig{
			MinFreeGB:  config.DefaultMinFreeGB,
			CheckEvery: config.DiskCheckEvery,
		},
		Sink: SinkConfig{
			Compression:      config.DefaultCompression,
			CompressionLevel: config.DefaultCompressionLevel,
			BatchSize:        config.DefaultBatchSize,
		},
		Verify: true,
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	v := &validationErrors{}

	if c.OutputDir == "" {
		v.add(errors.NewMissingField("output_dir"))
	}
	if c.Pool.Workers <= 0 {
		v.add(errors.NewValidation("pool.workers", "must be positive"))
	}
	if c.Pool.StaggerSec < 0 {
		v.add(errors.NewValidation("pool.stagger_sec", "must not be negative"))
	}
	if c.Retry.MaxAttempts <= 0 {
		v.add(errors.NewValidation("retry.max_attempts", "must be positive"))
	}
	if c.Disk.MinFreeGB < 0 {
		v.add(errors.NewValidation("disk.min_free_gb", "must not be negative"))
	}
	if c.Disk.CheckEvery <= 0 {
		v.add(errors.NewValidation("disk.check_every", "must be positive"))
	}
	if c.Sink.BatchSize <= 0 {
		v.add(errors.NewValidation("sink.batch_size", "must be positive"))
	}

	return v.err()
}

// validationErrors collects multiple validation errors.
type validationErrors struct {
	errs []error
}

func (v *validationErrors) add(err error) {
	if err != nil {
		v.errs = append(v.errs, err)
	}
}

func (v *validationErrors) err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return v
}

func (v *validationErrors) Error() string {
	if len(v.errs) == 1 {
		return v.errs[0].Error()
	}
	msg := "multiple validation errors:"
	for _, err := range v.errs {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Unwrap returns the first error for errors.Is/As support.
func (v *validationErrors) Unwrap() error {
	if len(v.errs) == 0 {
		return nil
	}
	return v.errs[0]
}
