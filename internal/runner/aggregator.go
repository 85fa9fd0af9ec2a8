package runner

import (
	"sync"
	"time"

	"github.com/DataDog/sketches-go/ddsketch"
)

// Stats holds running totals for one symbol or for the whole run.
type Stats struct {
	Success     int
	Failed      int
	NotFound    int
	Skipped     int
	Records     int64
	Bytes       int64
	ParseErrors int64
}

// add folds one outcome into the totals.
func (s *Stats) add(out Outcome) {
	switch out.Status {
	case StatusSuccess:
		s.Success++
		s.Records += out.Records
		s.Bytes += out.BytesWritten
		s.ParseErrors += out.ParseErrors
	case StatusFailed:
		s.Failed++
	case StatusNotFound:
		s.NotFound++
	case StatusSkipped:
		s.Skipped++
	}
}

// Completed is the number of tasks that reached a terminal state through
// a worker (skips never enter the pool).
func (s *Stats) Completed() int {
	return s.Success + s.Failed + s.NotFound
}

// Aggregator collects per-task outcomes into running totals. A single
// goroutine drains the outcome channel into it; the mutex covers summary
// reads from other goroutines.
type Aggregator struct {
	mu        sync.Mutex
	perSymbol map[string]*Stats
	totals    Stats

	// elapsed-time distribution across successful tasks
	sketch *ddsketch.DDSketch

	diskConstrained bool
	failures        []Outcome
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	a := &Aggregator{
		perSymbol: make(map[string]*Stats),
	}

	// 1% relative accuracy is plenty for a run summary.
	if sketch, err := ddsketch.NewDefaultDDSketch(0.01); err == nil {
		a.sketch = sketch
	}

	return a
}

// Record folds one task outcome into the totals.
func (a *Aggregator) Record(out Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.symbolStats(out.Task.Symbol).add(out)
	a.totals.add(out)

	if out.Status == StatusSuccess && a.sketch != nil {
		_ = a.sketch.Add(out.Elapsed.Seconds())
	}
	if out.Status == StatusFailed {
		a.failures = append(a.failures, out)
	}
}

// AddSkipped records tasks the planner excluded for a symbol.
func (a *Aggregator) AddSkipped(symbol string, n int) {
	if n == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.symbolStats(symbol).Skipped += n
	a.totals.Skipped += n
}

// MarkDiskConstrained flags the run as halted by the disk guard.
func (a *Aggregator) MarkDiskConstrained() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.diskConstrained = true
}

func (a *Aggregator) symbolStats(symbol string) *Stats {
	st, ok := a.perSymbol[symbol]
	if !ok {
		st = &Stats{}
		a.perSymbol[symbol] = st
	}
	return st
}

// Summary is the final report of a run.
type Summary struct {
	PerSymbol map[string]Stats
	Totals    Stats

	// ElapsedP50 and ElapsedP95 are percentiles of per-task wall time
	// across successful tasks. Zero when no task succeeded.
	ElapsedP50 time.Duration
	ElapsedP95 time.Duration

	// DiskConstrained is set when the free-space guard stopped the run.
	DiskConstrained bool

	// Failures lists the failed tasks with their last error detail.
	Failures []Outcome
}

// Summary snapshots the totals.
func (a *Aggregator) Summary() *Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := &Summary{
		PerSymbol:       make(map[string]Stats, len(a.perSymbol)),
		Totals:          a.totals,
		DiskConstrained: a.diskConstrained,
		Failures:        append([]Outcome(nil), a.failures...),
	}
	for sym, st := range a.perSymbol {
		s.PerSymbol[sym] = *st
	}

	if a.sketch != nil && a.sketch.GetCount() > 0 {
		if v, err := a.sketch.GetValueAtQuantile(0.5); err == nil {
			s.ElapsedP50 = time.Duration(v * float64(time.Second))
		}
		if v, err := a.sketch.GetValueAtQuantile(0.95); err == nil {
			s.ElapsedP95 = time.Duration(v * float64(time.Second))
		}
	}

	return s
}
