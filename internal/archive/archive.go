// Package archive provides streaming readers over downloaded archives.
//
// Archives are never expanded to disk: the inner record stream is read
// line by line (zip) or byte by byte (gzip) straight from the downloaded
// file, so the working set stays bounded regardless of archive size.
package archive

import (
	"archive/zip"
	"bufio"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/nssanta/bybitarc/internal/errors"
)

// Order book lines carry 200 price levels per side and routinely run into
// tens of kilobytes. The scanner buffer has to accommodate the worst case.
const (
	scanBufSize = 1024 * 1024
	maxLineSize = 16 * 1024 * 1024
)

// LineReader streams the lines of the first entry of a zip archive.
type LineReader struct {
	rc      *zip.ReadCloser
	file    io.ReadCloser
	scanner *bufio.Scanner
}

// OpenZipLines opens the first entry of the zip archive at path for
// line-at-a-time reading. The daily order book dumps contain exactly one
// data file.
func OpenZipLines(path string) (*LineReader, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Wrap(err, "open zip")
	}

	if len(rc.File) == 0 {
		rc.Close()
		return nil, errors.ErrEmptyArchive
	}

	f, err := rc.File[0].Open()
	if err != nil {
		rc.Close()
		return nil, errors.Wrap(err, "open zip entry")
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, scanBufSize), maxLineSize)

	return &LineReader{rc: rc, file: f, scanner: scanner}, nil
}

// Next advances to the next line. It returns false at end of stream or on
// a read error; check Err afterwards.
func (r *LineReader) Next() bool {
	return r.scanner.Scan()
}

// Bytes returns the current line without the trailing newline. The slice
// is only valid until the next call to Next.
func (r *LineReader) Bytes() []byte {
	return r.scanner.Bytes()
}

// Err returns the first read error encountered, if any.
func (r *LineReader) Err() error {
	return r.scanner.Err()
}

// Close releases the archive.
func (r *LineReader) Close() error {
	r.file.Close()
	return r.rc.Close()
}

// gzipReadCloser closes both the gzip stream and the underlying file.
type gzipReadCloser struct {
	*gzip.Reader
	underlying io.Closer
}

func (g *gzipReadCloser) Close() error {
	err := g.Reader.Close()
	if cerr := g.underlying.Close(); err == nil {
		err = cerr
	}
	return err
}

// OpenGzip opens a gzipped file for streaming decompression.
func OpenGzip(rc io.ReadCloser) (io.ReadCloser, error) {
	gz, err := gzip.NewReader(rc)
	if err != nil {
		rc.Close()
		return nil, errors.Wrap(err, "open gzip")
	}
	return &gzipReadCloser{Reader: gz, underlying: rc}, nil
}
