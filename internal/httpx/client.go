// Package httpx provides the HTTP client used to stream archive downloads.
//
// The client performs a single attempt per call and maps transport and
// status failures onto the project's sentinel errors. Retry policy lives
// with the fetch worker, which owns the attempt budget and back-off.
package httpx

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/nssanta/bybitarc/internal/errors"
)

// Options configures the HTTP client.
type Options struct {
	// Timeout bounds a single download attempt, connect through last byte.
	// Default: 120s
	Timeout time.Duration

	// MaxIdleConnsPerHost sets the maximum idle connections per host.
	// Default: 8
	MaxIdleConnsPerHost int

	// UserAgent is sent with every request.
	UserAgent string
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:             120 * time.Second,
		MaxIdleConnsPerHost: 8,
		UserAgent:           "bybitarc",
	}
}

// Response is a streaming download in progress. The caller must close Body.
type Response struct {
	Body io.ReadCloser

	// ContentLength is the declared byte length, or -1 when the server
	// did not declare one (chunked transfer).
	ContentLength int64
}

// Client is an HTTP client for streaming large archive downloads.
type Client struct {
	client *http.Client
	opts   Options
}

// NewClient creates a new HTTP client with the given options.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	if opts.MaxIdleConnsPerHost <= 0 {
		opts.MaxIdleConnsPerHost = DefaultOptions().MaxIdleConnsPerHost
	}

	transport := &http.Transport{
		MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
		MaxIdleConns:        opts.MaxIdleConnsPerHost * 2,
		IdleConnTimeout:     90 * time.Second,
		DisableCompression:  true, // archives are already compressed
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		opts: opts,
	}
}

// Get starts a streaming GET. A 404 maps to errors.ErrNotFound, which is
// terminal for the task; transport errors and 5xx responses map to
// retriable sentinels.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	if err := checkStatusCode(resp.StatusCode, resp.Status); err != nil {
		resp.Body.Close()
		return nil, err
	}

	return &Response{
		Body:          resp.Body,
		ContentLength: resp.ContentLength,
	}, nil
}

// classifyTransportError maps a transport-level failure onto a sentinel.
func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.Wrap(errors.ErrTimeout, err.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(errors.ErrTimeout, err.Error())
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return errors.Wrap(errors.ErrConnectionFailed, err.Error())
}

// checkStatusCode returns an appropriate error for non-success status codes.
func checkStatusCode(code int, status string) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return errors.ErrNotFound
	case code >= 500:
		return errors.Wrapf(errors.ErrServerError, "%s", status)
	default:
		return errors.Wrapf(errors.ErrConnectionFailed, "unexpected status %s", status)
	}
}
