package runner

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nssanta/bybitarc/internal/errors"
	"github.com/nssanta/bybitarc/internal/loader"
	"github.com/nssanta/bybitarc/internal/plan"
)

// stubGuard authorizes the first allow calls and refuses afterwards.
type stubGuard struct {
	allow int64
	calls atomic.Int64
}

func (g *stubGuard) FreeSpace() (uint64, error) { return 1 << 30, nil }

func (g *stubGuard) Authorize() (bool, error) {
	return g.calls.Add(1) <= g.allow, nil
}

func testConfig(dir string) *loader.Config {
	cfg := loader.DefaultConfig()
	cfg.OutputDir = dir
	cfg.Pool.Workers = 2
	cfg.Pool.StaggerSec = 0
	cfg.Retry.MaxAttempts = 1
	cfg.Retry.TimeoutBackoff = time.Millisecond
	cfg.Retry.TransientBackoff = time.Millisecond
	cfg.Disk.CheckEvery = 2
	return cfg
}

func orderbookSpec(dir, baseURL string, days int) *plan.Spec {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	return &plan.Spec{
		Dataset:          plan.DatasetOrderbook,
		Symbols:          []string{"BTCUSDT"},
		Start:            start,
		End:              start.AddDate(0, 0, days-1),
		OutputDir:        dir,
		OrderbookBaseURL: baseURL,
	}
}

func TestRunner_FullRun(t *testing.T) {
	archive := depthZip(t, depthLines)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfg := testConfig(dir)
	spec := orderbookSpec(dir, srv.URL, 3)

	r := New(cfg, spec)
	summary, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Totals.Success != 3 {
		t.Errorf("success: expected 3, got %d", summary.Totals.Success)
	}
	if summary.Totals.Records != 9 {
		t.Errorf("records: expected 9, got %d", summary.Totals.Records)
	}
	if summary.DiskConstrained {
		t.Error("run must not report disk constrained")
	}
	if summary.ElapsedP50 <= 0 {
		t.Error("expected positive elapsed p50")
	}

	for task := range spec.Tasks("BTCUSDT") {
		if _, err := os.Stat(task.DestPath); err != nil {
			t.Errorf("missing artifact %s", task.DestPath)
		}
	}
}

func TestRunner_SkipsExisting(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	dir := t.TempDir()
	spec := orderbookSpec(dir, srv.URL, 3)

	// Every artifact already exists.
	for task := range spec.Tasks("BTCUSDT") {
		if err := os.MkdirAll(filepath.Dir(task.DestPath), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(task.DestPath, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	r := New(testConfig(dir), spec)
	summary, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Totals.Skipped != 3 {
		t.Errorf("skipped: expected 3, got %d", summary.Totals.Skipped)
	}
	if summary.Totals.Success != 0 || summary.Totals.Failed != 0 {
		t.Errorf("unexpected totals: %+v", summary.Totals)
	}
	if got := requests.Load(); got != 0 {
		t.Errorf("skipped tasks must not touch the network, saw %d requests", got)
	}
}

func TestRunner_DiskBackpressure(t *testing.T) {
	archive := depthZip(t, depthLines)
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write(archive)
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfg := testConfig(dir)
	spec := orderbookSpec(dir, srv.URL, 20)

	r := New(cfg, spec)
	// First check (pre-batch) passes, the first mid-batch re-check refuses.
	r.SetGuard(&stubGuard{allow: 1})

	summary, err := r.Run(context.Background())
	if !errors.Is(err, errors.ErrDiskFull) {
		t.Fatalf("expected ErrDiskFull, got %v", err)
	}

	if !summary.DiskConstrained {
		t.Error("summary must report the disk constraint")
	}
	if summary.Totals.Success == 0 {
		t.Error("in-flight tasks must finish before the stop")
	}
	if summary.Totals.Success >= 20 {
		t.Errorf("expected submission to stop early, got %d successes", summary.Totals.Success)
	}
	// No task may fail because of the guard; they either ran or never started.
	if summary.Totals.Failed != 0 {
		t.Errorf("guard stop must not fail tasks, got %d failures", summary.Totals.Failed)
	}
}

func TestRunner_PreBatchRefusal(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer srv.Close()

	dir := t.TempDir()
	spec := orderbookSpec(dir, srv.URL, 5)

	r := New(testConfig(dir), spec)
	r.SetGuard(&stubGuard{allow: 0})

	summary, err := r.Run(context.Background())
	if !errors.Is(err, errors.ErrDiskFull) {
		t.Fatalf("expected ErrDiskFull, got %v", err)
	}

	if !summary.DiskConstrained {
		t.Error("summary must report the disk constraint")
	}
	if got := requests.Load(); got != 0 {
		t.Errorf("refused batch must not touch the network, saw %d requests", got)
	}
}

func TestAggregator_Totals(t *testing.T) {
	agg := NewAggregator()

	task := plan.Task{Symbol: "BTCUSDT"}
	agg.Record(Outcome{Task: task, Status: StatusSuccess, Records: 100, BytesWritten: 2048, ParseErrors: 2, Elapsed: 50 * time.Millisecond})
	agg.Record(Outcome{Task: task, Status: StatusSuccess, Records: 50, BytesWritten: 1024, Elapsed: 70 * time.Millisecond})
	agg.Record(Outcome{Task: task, Status: StatusNotFound})
	agg.Record(Outcome{Task: plan.Task{Symbol: "ETHUSDT"}, Status: StatusFailed, Detail: "boom"})
	agg.AddSkipped("BTCUSDT", 4)

	s := agg.Summary()

	if s.Totals.Success != 2 || s.Totals.NotFound != 1 || s.Totals.Failed != 1 {
		t.Errorf("unexpected totals: %+v", s.Totals)
	}
	if s.Totals.Records != 150 || s.Totals.Bytes != 3072 || s.Totals.ParseErrors != 2 {
		t.Errorf("unexpected volume totals: %+v", s.Totals)
	}
	if s.Totals.Skipped != 4 {
		t.Errorf("skipped: expected 4, got %d", s.Totals.Skipped)
	}

	btc := s.PerSymbol["BTCUSDT"]
	if btc.Success != 2 || btc.NotFound != 1 || btc.Skipped != 4 {
		t.Errorf("unexpected BTCUSDT stats: %+v", btc)
	}
	eth := s.PerSymbol["ETHUSDT"]
	if eth.Failed != 1 {
		t.Errorf("unexpected ETHUSDT stats: %+v", eth)
	}

	if len(s.Failures) != 1 || s.Failures[0].Detail != "boom" {
		t.Errorf("unexpected failures: %+v", s.Failures)
	}
	if s.ElapsedP50 <= 0 || s.ElapsedP95 < s.ElapsedP50 {
		t.Errorf("unexpected percentiles: p50=%v p95=%v", s.ElapsedP50, s.ElapsedP95)
	}
	if s.DiskConstrained {
		t.Error("disk constrained must default to false")
	}
}

func TestStats_Completed(t *testing.T) {
	s := Stats{Success: 2, Failed: 1, NotFound: 3, Skipped: 10}
	if got := s.Completed(); got != 6 {
		t.Errorf("completed: expected 6, got %d", got)
	}
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusSuccess, "success"},
		{StatusSkipped, "skipped"},
		{StatusNotFound, "not_found"},
		{StatusFailed, "failed"},
		{Status(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("%d: expected %s, got %s", tt.status, got, tt.want)
		}
	}
}
