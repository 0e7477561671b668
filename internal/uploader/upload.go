package uploader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/bdragon300/tusgo"

	"github.com/JaimeStill/upload-lab/internal/files"
)

// Upload is a server-side tus upload as seen by the client.
type Upload struct {
	ID       string
	Location string
	Length   int64
	Offset   int64
}

func newUpload(tu *tusgo.Upload) *Upload {
	return &Upload{
		ID:       path.Base(tu.Location),
		Location: tu.Location,
		Length:   tu.RemoteSize,
		Offset:   tu.RemoteOffset,
	}
}

// Options configure a single transfer.
type Options struct {
	// OnCreated runs once the server has assigned the upload a location,
	// before any bytes are sent.
	OnCreated func(*Upload)

	// OnProgress runs after every acknowledged chunk, in order.
	OnProgress func(Progress)

	// Metadata is sent in addition to filename and filetype.
	Metadata map[string]string
}

// PinResult is the content identifier of an uploaded file.
type PinResult struct {
	UploadID string        `json:"upload_id"`
	CID      string        `json:"cid"`
	Bytes    int64         `json:"bytes"`
	Duration time.Duration `json:"-"`
}

// Upload creates a tus upload for desc and sends body in chunks.
func (c *Client) Upload(ctx context.Context, desc files.Descriptor, body io.ReadSeeker, opts Options) (*Upload, error) {
	meta := map[string]string{
		"filename": desc.Name,
	}
	if desc.MIMEType != "" {
		meta["filetype"] = desc.MIMEType
	}
	for k, v := range opts.Metadata {
		meta[k] = v
	}

	tc := c.tus.WithContext(ctx)

	tu := tusgo.Upload{}
	resp, err := tc.CreateUpload(&tu, desc.Size, false, meta)
	if err != nil {
		return nil, c.tusError(ctx, "create upload", resp, err)
	}
	if tu.Location == "" {
		return nil, ErrMissingLocation
	}
	tu.RemoteSize = desc.Size

	c.logger.Debug("upload created", "location", tu.Location, "length", tu.RemoteSize)
	if opts.OnCreated != nil {
		opts.OnCreated(newUpload(&tu))
	}

	if err := c.send(ctx, tc, &tu, body, opts); err != nil {
		return newUpload(&tu), err
	}
	return newUpload(&tu), nil
}

// Resume continues a previously created upload from the server's offset.
// Resumption is always explicit; the client never retries on its own.
func (c *Client) Resume(ctx context.Context, uploadID string, body io.ReadSeeker, opts Options) (*Upload, error) {
	tc := c.tus.WithContext(ctx)

	tu, err := c.remote(ctx, tc, uploadID)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("upload resumed", "id", uploadID, "offset", tu.RemoteOffset, "length", tu.RemoteSize)

	if err := c.send(ctx, tc, tu, body, opts); err != nil {
		return newUpload(tu), err
	}
	return newUpload(tu), nil
}

// Head returns the server's view of an upload.
func (c *Client) Head(ctx context.Context, uploadID string) (*Upload, error) {
	tu, err := c.remote(ctx, c.tus.WithContext(ctx), uploadID)
	if err != nil {
		return nil, err
	}
	return newUpload(tu), nil
}

// Terminate deletes an upload and its stored bytes.
func (c *Client) Terminate(ctx context.Context, uploadID string) error {
	tu := tusgo.Upload{Location: c.location(uploadID)}
	if resp, err := c.tus.WithContext(ctx).DeleteUpload(tu); err != nil {
		return c.tusError(ctx, "terminate upload", resp, err)
	}
	return nil
}

// Pin stores a completed upload in the content-addressed store.
func (c *Client) Pin(ctx context.Context, uploadID string) (*PinResult, error) {
	var result PinResult
	if err := c.doJSON(ctx, http.MethodPost, "/pins/"+url.PathEscape(uploadID), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UploadAndPin uploads body and pins the result. Duration covers both steps.
func (c *Client) UploadAndPin(ctx context.Context, desc files.Descriptor, body io.ReadSeeker, opts Options) (*PinResult, error) {
	start := time.Now()

	up, err := c.Upload(ctx, desc, body, opts)
	if err != nil {
		return nil, err
	}

	pin, err := c.Pin(ctx, up.ID)
	if err != nil {
		return nil, err
	}
	pin.Duration = time.Since(start)

	return pin, nil
}

func (c *Client) remote(ctx context.Context, tc *tusgo.Client, uploadID string) (*tusgo.Upload, error) {
	tu := tusgo.Upload{}
	resp, err := tc.GetUpload(&tu, c.location(uploadID))
	if err != nil {
		return nil, c.tusError(ctx, "get upload", resp, err)
	}
	if tu.RemoteOffset < 0 || tu.RemoteSize < 0 || tu.RemoteOffset > tu.RemoteSize {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidOffset, tu.RemoteOffset, tu.RemoteSize)
	}
	return &tu, nil
}

// send writes body from tu.RemoteOffset until the upload is complete. Each
// chunk is one PATCH; progress follows the server-acknowledged offset.
func (c *Client) send(ctx context.Context, tc *tusgo.Client, tu *tusgo.Upload, body io.ReadSeeker, opts Options) error {
	report := func() {
		if opts.OnProgress != nil {
			opts.OnProgress(newProgress(tu.RemoteOffset, tu.RemoteSize))
		}
	}

	if tu.RemoteOffset >= tu.RemoteSize {
		report()
		return nil
	}

	if _, err := body.Seek(tu.RemoteOffset, io.SeekStart); err != nil {
		return fmt.Errorf("seek to offset %d: %w", tu.RemoteOffset, err)
	}

	stream := tusgo.NewUploadStream(tc, tu)
	stream.ChunkSize = c.chunkSize

	buf := make([]byte, min(c.chunkSize, tu.RemoteSize-tu.RemoteOffset))

	for tu.RemoteOffset < tu.RemoteSize {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrAborted, err)
		}

		before := tu.RemoteOffset
		n, err := io.ReadFull(body, buf[:min(int64(len(buf)), tu.RemoteSize-before)])
		if err != nil {
			return fmt.Errorf("read chunk at %d: %w", before, err)
		}

		if _, err := stream.Write(buf[:n]); err != nil {
			return c.tusError(ctx, "write chunk", stream.LastResponse, err)
		}
		if tu.RemoteOffset <= before || tu.RemoteOffset > tu.RemoteSize {
			return fmt.Errorf("%w: %d after %d", ErrInvalidOffset, tu.RemoteOffset, before)
		}

		report()
	}

	return nil
}

// tusError classifies a failed tus request: context cancellation is an
// abort, an HTTP error status becomes a *StatusError.
func (c *Client) tusError(ctx context.Context, op string, resp *http.Response, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ErrAborted, ctxErr)
	}
	if resp != nil && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		return fmt.Errorf("%s: %w", op, &StatusError{Code: resp.StatusCode, Message: err.Error()})
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (c *Client) location(uploadID string) string {
	return c.resolve(uploadsPath + "/" + url.PathEscape(uploadID))
}
