// Package uploader is a client for the upload service: resumable tus
// transfers with progress reporting, pinning, processing control and
// status polling.
package uploader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/bdragon300/tusgo"

	"github.com/JaimeStill/upload-lab/internal/tracking"
)

// DefaultChunkSize is the PATCH body size used when none is configured.
const DefaultChunkSize = 1 << 20

const uploadsPath = "/uploads"

// Client talks to one upload server.
type Client struct {
	base      *url.URL
	http      *http.Client
	chunkSize int64
	logger    *slog.Logger
	tus       *tusgo.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithChunkSize sets the PATCH body size. Non-positive values are ignored.
func WithChunkSize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("server url must be http or https: %q", baseURL)
	}

	c := &Client{
		base:      base,
		http:      http.DefaultClient,
		chunkSize: DefaultChunkSize,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("system", "uploader")

	endpoint, err := url.Parse(c.resolve(uploadsPath))
	if err != nil {
		return nil, fmt.Errorf("parse upload endpoint: %w", err)
	}
	c.tus = tusgo.NewClient(c.http, endpoint)

	return c, nil
}

// Process asks the server to start processing an upload.
func (c *Client) Process(ctx context.Context, uploadID string) error {
	return c.doJSON(ctx, http.MethodPost, "/process/"+url.PathEscape(uploadID), nil)
}

// CancelProcessing stops an active processing job.
func (c *Client) CancelProcessing(ctx context.Context, uploadID string) error {
	return c.doJSON(ctx, http.MethodPost, "/process/"+url.PathEscape(uploadID)+"/cancel", nil)
}

// Status returns the processing status. Unknown uploads match ErrNotFound.
func (c *Client) Status(ctx context.Context, uploadID string) (*tracking.Status, error) {
	var status tracking.Status
	if err := c.doJSON(ctx, http.MethodGet, "/status/"+url.PathEscape(uploadID), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Result returns the processing result once processing has completed.
func (c *Client) Result(ctx context.Context, uploadID string) (*tracking.Result, error) {
	var result tracking.Result
	if err := c.doJSON(ctx, http.MethodGet, "/result/"+url.PathEscape(uploadID), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) resolve(path string) string {
	ref, err := url.Parse(path)
	if err != nil || ref.IsAbs() {
		return path
	}
	u := *c.base
	u.Path = c.base.Path + ref.Path
	return u.String()
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrAborted, ctxErr)
		}
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, out any) error {
	req, err := c.newRequest(ctx, method, path, nil)
	if err != nil {
		return err
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readStatusError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", ErrAborted, ctx.Err())
		}
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func readStatusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var body struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		msg = body.Error
	}

	return &StatusError{Code: resp.StatusCode, Message: msg}
}
