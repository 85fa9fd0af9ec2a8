package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/nssanta/bybitarc/config"
	"github.com/nssanta/bybitarc/internal/errors"
	"github.com/nssanta/bybitarc/internal/httpx"
	"github.com/nssanta/bybitarc/internal/logging"
	"github.com/nssanta/bybitarc/internal/plan"
	"github.com/nssanta/bybitarc/internal/sink"
)

// Worker runs the full per-task pipeline: stagger, streaming download,
// size check, streaming decode into batches, atomic publish, cleanup.
//
// A Worker holds no per-task state and may run many tasks concurrently;
// every task gets its own uniquely named staging resources.
type Worker struct {
	// Client streams archive downloads.
	Client *httpx.Client

	// StagingDir holds in-progress downloads. It must live on the same
	// volume as the destinations so the final rename stays atomic.
	StagingDir string

	// Sink configures the Parquet output.
	Sink sink.Options

	// BatchSize is the number of records accumulated before a flush.
	BatchSize int

	// MaxAttempts is the transient-failure attempt budget.
	MaxAttempts int

	// TimeoutBackoff and TransientBackoff are the fixed waits between
	// attempts, chosen by the class of the last error.
	TimeoutBackoff   time.Duration
	TransientBackoff time.Duration

	// StaggerMax is the upper bound of the random startup delay.
	// Zero disables staggering.
	StaggerMax time.Duration

	// Verify re-opens published Parquet files and compares row counts.
	Verify bool
}

// Run executes one task to a terminal state. The returned outcome is
// always populated; Run never panics the pool on a single task's failure.
func (w *Worker) Run(ctx context.Context, task plan.Task) Outcome {
	start := time.Now()
	log := logging.Task(task.Dataset.String(), task.Symbol, task.DateString())

	finish := func(out Outcome) Outcome {
		out.Task = task
		out.Elapsed = time.Since(start)
		return out
	}

	// Staggering: spread the pool's first requests over time.
	if w.StaggerMax > 0 {
		delay := time.Duration(rand.Float64() * float64(w.StaggerMax))
		log.Debug("staggering start", "delay", delay)
		if err := sleepCtx(ctx, delay); err != nil {
			return finish(Outcome{Status: StatusFailed, Detail: err.Error()})
		}
	}

	var lastErr error
	for attempt := 1; attempt <= w.MaxAttempts; attempt++ {
		out, err := w.attempt(ctx, task, log)
		if err == nil {
			out.Attempts = attempt
			log.Info("task done",
				"records", out.Records,
				"bytes", out.BytesWritten,
				"parse_errors", out.ParseErrors,
				"attempts", attempt)
			return finish(out)
		}

		// Not-found is terminal, never retried, and not a failure.
		if errors.IsNotFound(err) {
			log.Info("archive not available")
			return finish(Outcome{Status: StatusNotFound, Attempts: attempt})
		}

		if ctx.Err() != nil {
			return finish(Outcome{
				Status:   StatusFailed,
				Attempts: attempt,
				Detail:   ctx.Err().Error(),
			})
		}

		lastErr = err
		if attempt < w.MaxAttempts {
			backoff := w.TransientBackoff
			if errors.IsTimeout(err) {
				backoff = w.TimeoutBackoff
			}
			log.Warn("attempt failed, retrying",
				"attempt", attempt, "max", w.MaxAttempts,
				"backoff", backoff, "error", err)
			if serr := sleepCtx(ctx, backoff); serr != nil {
				return finish(Outcome{
					Status:   StatusFailed,
					Attempts: attempt,
					Detail:   lastErr.Error(),
				})
			}
		}
	}

	err := fmt.Errorf("%w after %d attempts: %w", errors.ErrRetryExhausted, w.MaxAttempts, lastErr)
	log.Error("task failed", "error", err)
	return finish(Outcome{
		Status:   StatusFailed,
		Attempts: w.MaxAttempts,
		Detail:   err.Error(),
	})
}

// attempt runs one download-verify-convert-publish cycle. Every staging
// resource it creates is removed before it returns, on success and
// failure alike.
func (w *Worker) attempt(ctx context.Context, task plan.Task, log *slog.Logger) (Outcome, error) {
	if err := os.MkdirAll(w.StagingDir, 0755); err != nil {
		return Outcome{}, errors.Wrap(err, "create staging dir")
	}

	stagePath := filepath.Join(w.StagingDir, uuid.NewString()+stagingExt(task.Dataset))
	defer os.Remove(stagePath)

	// Downloading
	written, declared, err := w.download(ctx, task.SourceURL, stagePath, log)
	if err != nil {
		return Outcome{}, err
	}

	// Verifying: a declared length that doesn't match what landed on disk
	// means a truncated transfer; treated as transient.
	if declared > 0 && written != declared {
		return Outcome{}, errors.Wrapf(errors.ErrIncompleteDownload,
			"%d of %d bytes", written, declared)
	}
	log.Debug("download complete", "bytes", written)

	// The in-progress output lives in the destination directory under a
	// unique temporary name until promotion.
	if err := os.MkdirAll(filepath.Dir(task.DestPath), 0755); err != nil {
		return Outcome{}, errors.Wrap(err, "create destination dir")
	}
	tmpOut := task.DestPath + "." + uuid.NewString() + ".tmp"
	defer os.Remove(tmpOut)

	// Decoding/Batching
	var records, parseErrors int64
	switch task.Dataset {
	case plan.DatasetOrderbook:
		records, parseErrors, err = w.convertDepth(stagePath, tmpOut)
	case plan.DatasetTrades:
		records, parseErrors, err = w.convertTrades(stagePath, tmpOut)
	case plan.DatasetKlines:
		// Raw mirror: the staging file is already the artifact.
		err = os.Rename(stagePath, tmpOut)
	}
	if err != nil {
		return Outcome{}, err
	}

	if w.Verify && task.Dataset.Converted() {
		n, verr := sink.CountRows(tmpOut)
		if verr != nil {
			return Outcome{}, verr
		}
		if n != records {
			return Outcome{}, errors.Wrapf(errors.ErrRowCountMismatch,
				"published %d, expected %d", n, records)
		}
	}

	// Publishing: the artifact appears under its final name only fully
	// formed.
	if err := os.Rename(tmpOut, task.DestPath); err != nil {
		return Outcome{}, errors.Wrap(err, "promote artifact")
	}

	var bytesWritten int64
	if st, serr := os.Stat(task.DestPath); serr == nil {
		bytesWritten = st.Size()
	}

	return Outcome{
		Status:       StatusSuccess,
		Records:      records,
		BytesWritten: bytesWritten,
		ParseErrors:  parseErrors,
	}, nil
}

// download streams the remote archive into the staging file. It returns
// the bytes written and the declared content length (-1 when chunked).
func (w *Worker) download(ctx context.Context, url, dest string, log *slog.Logger) (written, declared int64, err error) {
	resp, err := w.Client.Get(ctx, url)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	f, err := os.Create(dest)
	if err != nil {
		return 0, 0, errors.Wrap(err, "create staging file")
	}

	pw := &progressWriter{
		dst:     f,
		total:   resp.ContentLength,
		nextLog: config.ProgressLogBytes,
		log:     log,
	}
	written, copyErr := io.CopyBuffer(pw, resp.Body, make([]byte, config.DownloadChunkSize))

	if cerr := f.Close(); copyErr == nil {
		copyErr = cerr
	}
	if copyErr != nil {
		var netErr net.Error
		if (errors.As(copyErr, &netErr) && netErr.Timeout()) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return written, resp.ContentLength, errors.Wrap(errors.ErrTimeout, copyErr.Error())
		}
		return written, resp.ContentLength, errors.Wrap(errors.ErrConnectionFailed, copyErr.Error())
	}

	return written, resp.ContentLength, nil
}

// progressWriter logs download progress at debug level every ~20 MiB.
type progressWriter struct {
	dst     io.Writer
	total   int64
	written int64
	nextLog int64
	log     *slog.Logger
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.dst.Write(b)
	p.written += int64(n)
	if p.written >= p.nextLog {
		p.nextLog = p.written + config.ProgressLogBytes
		if p.total > 0 {
			p.log.Debug("downloading",
				"pct", int(float64(p.written)/float64(p.total)*100),
				"bytes", p.written)
		} else {
			p.log.Debug("downloading", "bytes", p.written)
		}
	}
	return n, err
}

// stagingExt picks the staging file suffix for a dataset's archive type.
func stagingExt(d plan.Dataset) string {
	if d == plan.DatasetOrderbook {
		return ".zip"
	}
	return ".csv.gz"
}

// sleepCtx sleeps for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
