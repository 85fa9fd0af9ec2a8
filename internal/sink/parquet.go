// Package sink implements the compressed columnar output the pipeline
// publishes into.
//
// The package provides:
//   - Typed Parquet writers for order book depth and trade rows
//   - Support for multiple compression algorithms (snappy, zstd, lz4, gzip)
//   - Row counting for post-publish integrity checks
package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"

	"github.com/nssanta/bybitarc/internal/errors"
	"github.com/nssanta/bybitarc/internal/record"
)

// Options configures the Parquet writer.
type Options struct {
	// Compression algorithm
	Compression CompressionType

	// CompressionLevel for algorithms that support it (zstd: 1-22)
	CompressionLevel int
}

// CompressionType represents a Parquet compression algorithm.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
	CompressionLZ4
	CompressionGzip
)

// DefaultOptions returns default Parquet options.
func DefaultOptions() Options {
	return Options{
		Compression:      CompressionZstd,
		CompressionLevel: 3,
	}
}

// ParseCompressionType parses a compression type string.
func ParseCompressionType(s string) CompressionType {
	switch s {
	case "snappy":
		return CompressionSnappy
	case "zstd":
		return CompressionZstd
	case "lz4":
		return CompressionLZ4
	case "gzip":
		return CompressionGzip
	case "none", "":
		return CompressionNone
	default:
		return CompressionZstd
	}
}

// getCompression returns the parquet-go compression codec.
func getCompression(ct CompressionType) compress.Codec {
	switch ct {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		return &parquet.Zstd
	case CompressionLZ4:
		return &parquet.Lz4Raw
	case CompressionGzip:
		return &parquet.Gzip
	default:
		return &parquet.Uncompressed
	}
}

// DepthRow represents one order book record in Parquet format. The bid
// and ask level arrays are JSON text, keeping the schema static.
type DepthRow struct {
	TS   int64  `parquet:"ts"`
	CTS  *int64 `parquet:"cts,optional"`
	Type string `parquet:"type"`
	U    int64  `parquet:"u"`
	Seq  int64  `parquet:"seq"`
	Bids string `parquet:"bids"`
	Asks string `parquet:"asks"`
}

// TradeRow represents one trade tick in Parquet format.
type TradeRow struct {
	Timestamp       int64   `parquet:"timestamp"`
	Symbol          string  `parquet:"symbol"`
	Side            string  `parquet:"side"`
	Size            float64 `parquet:"size"`
	Price           float64 `parquet:"price"`
	Direction       string  `parquet:"direction,optional"`
	TradeID         string  `parquet:"trade_id,optional"`
	GrossValue      float64 `parquet:"gross_value,optional"`
	HomeNotional    float64 `parquet:"home_notional,optional"`
	ForeignNotional float64 `parquet:"foreign_notional,optional"`
}

// DepthToRow converts a parsed depth record to a DepthRow.
func DepthToRow(d *record.Depth) DepthRow {
	return DepthRow{
		TS:   d.TS,
		CTS:  d.CTS,
		Type: d.Type,
		U:    d.U,
		Seq:  d.Seq,
		Bids: d.Bids,
		Asks: d.Asks,
	}
}

// TradeToRow converts a parsed trade to a TradeRow.
func TradeToRow(t *record.Trade) TradeRow {
	return TradeRow{
		Timestamp:       t.Timestamp,
		Symbol:          t.Symbol,
		Side:            t.Side,
		Size:            t.Size,
		Price:           t.Price,
		Direction:       t.Direction,
		TradeID:         t.TradeID,
		GrossValue:      t.GrossValue,
		HomeNotional:    t.HomeNotional,
		ForeignNotional: t.ForeignNotional,
	}
}

// Writer writes rows of one schema to a Parquet file.
//
// Writer is safe for concurrent use, although the pipeline gives each
// worker its own exclusively owned writer.
type Writer[Row any] struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	writer   *parquet.GenericWriter[Row]
	rowCount int64
	closed   bool
}

// NewDepthWriter creates a Parquet writer for order book rows at path.
func NewDepthWriter(path string, opts Options) (*Writer[DepthRow], error) {
	return newWriter[DepthRow](path, opts)
}

// NewTradeWriter creates a Parquet writer for trade rows at path.
func NewTradeWriter(path string, opts Options) (*Writer[TradeRow], error) {
	return newWriter[TradeRow](path, opts)
}

func newWriter[Row any](path string, opts Options) (*Writer[Row], error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	writerOpts := []parquet.WriterOption{
		parquet.Compression(getCompression(opts.Compression)),
	}

	writer := parquet.NewGenericWriter[Row](f, writerOpts...)

	return &Writer[Row]{
		path:   path,
		file:   f,
		writer: writer,
	}, nil
}

// Write appends a batch of rows.
func (w *Writer[Row]) Write(rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.ErrWriterClosed
	}

	n, err := w.writer.Write(rows)
	if err != nil {
		return fmt.Errorf("write rows: %w", err)
	}

	w.rowCount += int64(n)
	return nil
}

// Close flushes remaining row groups and closes the file. Once Close
// returns nil, the file's row count equals the number of rows appended.
func (w *Writer[Row]) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close writer: %w", err)
	}

	return w.file.Close()
}

// RowCount returns the number of rows written.
func (w *Writer[Row]) RowCount() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rowCount
}

// Path returns the file path.
func (w *Writer[Row]) Path() string {
	return w.path
}

// CountRows reads back the row count of a finished Parquet file. Used for
// the optional post-publish integrity check.
func CountRows(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat file: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return 0, fmt.Errorf("open parquet: %w", err)
	}

	return pf.NumRows(), nil
}
