package runner

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/nssanta/bybitarc/internal/archive"
	"github.com/nssanta/bybitarc/internal/errors"
	"github.com/nssanta/bybitarc/internal/record"
	"github.com/nssanta/bybitarc/internal/sink"
)

// convertDepth streams the order book zip at src line by line into a
// Parquet file at out. Malformed lines are counted and skipped; they
// never abort the stream. Returns the rows written and the error count.
func (w *Worker) convertDepth(src, out string) (records, parseErrors int64, err error) {
	lr, err := archive.OpenZipLines(src)
	if err != nil {
		return 0, 0, err
	}
	defer lr.Close()

	pw, err := sink.NewDepthWriter(out, w.Sink)
	if err != nil {
		return 0, 0, err
	}

	batch := make([]sink.DepthRow, 0, w.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := pw.Write(batch); err != nil {
			return err
		}
		records += int64(len(batch))
		batch = batch[:0]
		return nil
	}

	for lr.Next() {
		d, perr := record.ParseDepth(lr.Bytes())
		if perr != nil {
			parseErrors++
			continue
		}
		batch = append(batch, sink.DepthToRow(&d))
		if len(batch) >= w.BatchSize {
			if err := flush(); err != nil {
				pw.Close()
				return 0, 0, err
			}
		}
	}
	if rerr := lr.Err(); rerr != nil {
		pw.Close()
		// A read error inside the archive means the download is bad.
		return 0, 0, errors.Wrap(errors.ErrIncompleteDownload, rerr.Error())
	}

	if err := flush(); err != nil {
		pw.Close()
		return 0, 0, err
	}
	if err := pw.Close(); err != nil {
		return 0, 0, err
	}

	return records, parseErrors, nil
}

// convertTrades streams the gzipped trade CSV at src into a Parquet file
// at out, with the same skip-and-count policy for malformed rows.
func (w *Worker) convertTrades(src, out string) (records, parseErrors int64, err error) {
	f, err := os.Open(src)
	if err != nil {
		return 0, 0, errors.Wrap(err, "open staging file")
	}

	gz, err := archive.OpenGzip(f)
	if err != nil {
		return 0, 0, err
	}
	defer gz.Close()

	cr := csv.NewReader(gz)
	cr.FieldsPerRecord = -1 // rows are validated per field, not per width

	header, err := cr.Read()
	if err != nil {
		return 0, 0, errors.Wrap(errors.ErrIncompleteDownload, "read header: "+err.Error())
	}

	parser, err := record.NewTradeParser(header)
	if err != nil {
		return 0, 0, err
	}

	pw, err := sink.NewTradeWriter(out, w.Sink)
	if err != nil {
		return 0, 0, err
	}

	batch := make([]sink.TradeRow, 0, w.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := pw.Write(batch); err != nil {
			return err
		}
		records += int64(len(batch))
		batch = batch[:0]
		return nil
	}

	for {
		row, rerr := cr.Read()
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			if _, ok := rerr.(*csv.ParseError); ok {
				parseErrors++
				continue
			}
			pw.Close()
			return 0, 0, errors.Wrap(errors.ErrIncompleteDownload, rerr.Error())
		}

		t, perr := parser.Parse(row)
		if perr != nil {
			parseErrors++
			continue
		}
		batch = append(batch, sink.TradeToRow(&t))
		if len(batch) >= w.BatchSize {
			if err := flush(); err != nil {
				pw.Close()
				return 0, 0, err
			}
		}
	}

	if err := flush(); err != nil {
		pw.Close()
		return 0, 0, err
	}
	if err := pw.Close(); err != nil {
		return 0, 0, err
	}

	return records, parseErrors, nil
}
