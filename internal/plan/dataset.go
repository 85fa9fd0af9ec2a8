package plan

import (
	"fmt"

	"github.com/nssanta/bybitarc/internal/errors"
)

// Dataset identifies one of the public Bybit archive products.
type Dataset int

const (
	// DatasetOrderbook is the daily 200-level order book dump: a zip
	// archive of line-delimited JSON snapshots and deltas. Decoded and
	// re-encoded to Parquet.
	DatasetOrderbook Dataset = iota

	// DatasetTrades is the daily tick-by-tick trade dump: a gzipped CSV.
	// Decoded and re-encoded to Parquet.
	DatasetTrades

	// DatasetKlines is the monthly OHLCV dump: a gzipped CSV mirrored
	// as-is (download, verify, atomic rename; no conversion).
	DatasetKlines
)

// String returns the dataset name as used on the CLI.
func (d Dataset) String() string {
	switch d {
	case DatasetOrderbook:
		return "orderbook"
	case DatasetTrades:
		return "trades"
	case DatasetKlines:
		return "klines"
	default:
		return fmt.Sprintf("Dataset(%d)", int(d))
	}
}

// Monthly reports whether the dataset is published per month rather than
// per day.
func (d Dataset) Monthly() bool {
	return d == DatasetKlines
}

// Converted reports whether the dataset is decoded into Parquet. Raw
// mirrors are published as downloaded.
func (d Dataset) Converted() bool {
	return d != DatasetKlines
}

// ParseDataset parses a dataset name.
func ParseDataset(s string) (Dataset, error) {
	switch s {
	case "orderbook":
		return DatasetOrderbook, nil
	case "trades":
		return DatasetTrades, nil
	case "klines":
		return DatasetKlines, nil
	default:
		return 0, errors.Wrapf(errors.ErrUnknownDataset, "%q", s)
	}
}
