// Package runner executes the fetch-verify-transform-publish pipeline
// over a planned date range.
//
// A fixed-size pool of workers drains a task channel; every worker emits
// one Outcome per task to a result channel drained by a single aggregator
// goroutine. The disk guard gates submission: a refusal stops new tasks
// while tasks already inside the pool run to natural completion.
package runner

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nssanta/bybitarc/config"
	"github.com/nssanta/bybitarc/internal/disk"
	"github.com/nssanta/bybitarc/internal/errors"
	"github.com/nssanta/bybitarc/internal/httpx"
	"github.com/nssanta/bybitarc/internal/loader"
	"github.com/nssanta/bybitarc/internal/logging"
	"github.com/nssanta/bybitarc/internal/plan"
	"github.com/nssanta/bybitarc/internal/sink"
)

var log = logging.Component("runner")

// SpaceGuard authorizes further task submission based on free space.
// Satisfied by *disk.Guard; stubbed in tests.
type SpaceGuard interface {
	FreeSpace() (uint64, error)
	Authorize() (bool, error)
}

// Runner drives the pipeline for one dataset across symbols and dates.
type Runner struct {
	cfg    *loader.Config
	spec   *plan.Spec
	worker *Worker
	guard  SpaceGuard

	workers    int
	checkEvery int
}

// New wires a Runner from configuration. The staging directory lives
// under the output directory so staged files share the destination
// volume and renames stay atomic.
func New(cfg *loader.Config, spec *plan.Spec) *Runner {
	worker := &Worker{
		Client: httpx.NewClient(httpx.Options{
			Timeout:   cfg.Source.Timeout,
			UserAgent: "bybitarc",
		}),
		StagingDir: filepath.Join(cfg.OutputDir, ".staging"),
		Sink: sink.Options{
			Compression:      sink.ParseCompressionType(cfg.Sink.Compression),
			CompressionLevel: cfg.Sink.CompressionLevel,
		},
		BatchSize:        cfg.Sink.BatchSize,
		MaxAttempts:      cfg.Retry.MaxAttempts,
		TimeoutBackoff:   cfg.Retry.TimeoutBackoff,
		TransientBackoff: cfg.Retry.TransientBackoff,
		StaggerMax:       time.Duration(cfg.Pool.StaggerSec * float64(time.Second)),
		Verify:           cfg.Verify,
	}

	return &Runner{
		cfg:        cfg,
		spec:       spec,
		worker:     worker,
		guard:      disk.New(cfg.OutputDir, disk.BytesFromGB(cfg.Disk.MinFreeGB)),
		workers:    cfg.Pool.Workers,
		checkEvery: cfg.Disk.CheckEvery,
	}
}

// Run processes every symbol in the spec in order. A disk-guard refusal
// ends the current symbol's batch and halts the remaining symbols; the
// summary reports the condition and Run returns errors.ErrDiskFull.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	agg := NewAggregator()

	for i, symbol := range r.spec.Symbols {
		log.Info("processing symbol",
			"symbol", symbol, "n", i+1, "of", len(r.spec.Symbols))

		todo, skipped := r.spec.Plan(symbol)
		agg.AddSkipped(symbol, skipped)
		log.Info("planned", "symbol", symbol, "todo", len(todo), "skipped", skipped)

		if len(todo) == 0 {
			continue
		}

		// Guard check before submitting the symbol's batch.
		if !r.authorized() {
			agg.MarkDiskConstrained()
			break
		}

		diskOK := r.runBatch(ctx, todo, agg)
		if !diskOK {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	summary := agg.Summary()
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	if summary.DiskConstrained {
		return summary, errors.ErrDiskFull
	}
	return summary, nil
}

// runBatch runs one symbol's tasks through the pool. It returns false
// when the disk guard stopped submission mid-batch.
func (r *Runner) runBatch(ctx context.Context, tasks []plan.Task, agg *Aggregator) bool {
	outcomes := make(chan Outcome, config.OutcomeQueueSize)
	stop := make(chan struct{})
	var stopOnce sync.Once
	diskOK := true

	// Weak cancellation by default: a guard refusal stops submission and
	// lets in-flight tasks finish. The configurable strict policy also
	// cancels the worker context.
	workCtx := ctx
	cancelWork := func() {}
	if r.cfg.AbortInflightOnLowDisk {
		var cancel context.CancelFunc
		workCtx, cancel = context.WithCancel(ctx)
		defer cancel()
		cancelWork = cancel
	}

	// Single consumer: the only place counters are mutated.
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		completed := 0
		for out := range outcomes {
			agg.Record(out)
			completed++
			if completed%r.checkEvery == 0 {
				if !r.authorized() {
					diskOK = false
					agg.MarkDiskConstrained()
					stopOnce.Do(func() {
						close(stop)
						cancelWork()
					})
				}
			}
		}
	}()

	// Fixed-size pool draining an unbuffered task channel, so no task is
	// parked in a queue when submission stops.
	taskCh := make(chan plan.Task)
	var g errgroup.Group
	for i := 0; i < r.workers; i++ {
		g.Go(func() error {
			for task := range taskCh {
				outcomes <- r.worker.Run(workCtx, task)
			}
			return nil
		})
	}

submit:
	for _, task := range tasks {
		select {
		case <-stop:
			break submit
		case <-ctx.Done():
			break submit
		case taskCh <- task:
		}
	}
	close(taskCh)

	g.Wait()
	close(outcomes)
	<-drained

	return diskOK
}

// authorized consults the guard, logging the verdict.
func (r *Runner) authorized() bool {
	ok, err := r.guard.Authorize()
	if err != nil {
		log.Error("disk check failed", "error", err)
		return false
	}
	if !ok {
		free, _ := r.guard.FreeSpace()
		log.Warn("stopping: disk space low",
			"free_bytes", free, "min_free_gb", r.cfg.Disk.MinFreeGB)
	}
	return ok
}

// SetGuard replaces the disk guard. Used by tests.
func (r *Runner) SetGuard(g SpaceGuard) {
	r.guard = g
}
