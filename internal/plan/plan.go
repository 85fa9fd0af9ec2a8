// Package plan enumerates download tasks and filters out work that is
// already done.
//
// A Task is immutable and maps one (symbol, date) pair to exactly one
// source URL and one destination path. The destination artifact's
// existence is the only idempotency marker: there is no manifest, and a
// re-run with the same parameters skips every task whose artifact is
// already on disk.
package plan

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"time"
)

// DateFormat is the calendar date layout used in archive names.
const DateFormat = "2006-01-02"

// Task describes one unit of work: fetch one archive, publish one artifact.
type Task struct {
	Dataset Dataset
	Symbol  string
	Date    time.Time

	// SourceURL is the fully templated remote archive URL.
	SourceURL string

	// DestPath is the final artifact path. The file never appears here
	// until it is fully written and validated.
	DestPath string
}

// DateString returns the task date in archive-name form.
func (t Task) DateString() string {
	return t.Date.Format(DateFormat)
}

// Spec describes a planning request for one dataset over a date range.
type Spec struct {
	Dataset  Dataset
	Symbols  []string
	Start    time.Time
	End      time.Time // inclusive
	Interval string    // klines only, minutes ("1", "5", ...)

	OutputDir        string
	OrderbookBaseURL string
	BulkBaseURL      string
}

// Dates yields each calendar day from start through end inclusive.
func Dates(start, end time.Time) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			if !yield(d) {
				return
			}
		}
	}
}

// Months yields the first day of each month touched by [start, end].
func Months(start, end time.Time) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		d := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())
		for !d.After(end) {
			if !yield(d) {
				return
			}
			d = d.AddDate(0, 1, 0)
		}
	}
}

// Tasks yields one task per archive for a single symbol, in chronological
// order. The sequence is lazy, finite and restartable; enumeration has no
// side effects.
func (s *Spec) Tasks(symbol string) iter.Seq[Task] {
	dates := Dates(s.Start, s.End)
	if s.Dataset.Monthly() {
		dates = Months(s.Start, s.End)
	}
	return func(yield func(Task) bool) {
		for date := range dates {
			if !yield(s.task(symbol, date)) {
				return
			}
		}
	}
}

// task builds the templated URL and destination path for one archive.
func (s *Spec) task(symbol string, date time.Time) Task {
	t := Task{
		Dataset: s.Dataset,
		Symbol:  symbol,
		Date:    date,
	}

	day := date.Format(DateFormat)
	symbolDir := filepath.Join(s.OutputDir, symbol)

	switch s.Dataset {
	case DatasetOrderbook:
		name := fmt.Sprintf("%s_%s_ob200.data.zip", day, symbol)
		t.SourceURL = fmt.Sprintf("%s/%s/%s", s.OrderbookBaseURL, symbol, name)
		t.DestPath = filepath.Join(symbolDir, fmt.Sprintf("%s_%s_ob200.parquet", day, symbol))

	case DatasetTrades:
		name := fmt.Sprintf("%s_%s.csv.gz", symbol, day)
		t.SourceURL = fmt.Sprintf("%s/spot/%s/%s", s.BulkBaseURL, symbol, name)
		t.DestPath = filepath.Join(symbolDir, fmt.Sprintf("%s_%s.parquet", symbol, day))

	case DatasetKlines:
		monthEnd := date.AddDate(0, 1, 0).AddDate(0, 0, -1)
		name := fmt.Sprintf("%s_%s_%s_%s.csv.gz",
			symbol, s.Interval, day, monthEnd.Format(DateFormat))
		t.SourceURL = fmt.Sprintf("%s/kline_for_metatrader4/%s/%d/%s",
			s.BulkBaseURL, symbol, date.Year(), name)
		t.DestPath = filepath.Join(symbolDir, name)
	}

	return t
}

// Plan filters the symbol's task sequence against the filesystem.
// Tasks whose destination artifact already exists are counted as skipped
// and never touch the network.
func (s *Spec) Plan(symbol string) (todo []Task, skipped int) {
	for t := range s.Tasks(symbol) {
		if _, err := os.Stat(t.DestPath); err == nil {
			skipped++
			continue
		}
		todo = append(todo, t)
	}
	return todo, skipped
}
