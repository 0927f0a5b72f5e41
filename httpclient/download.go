package httpclient

import (
	"context"
	"io"
	"net/http"

	"github.com/kbukum/mediascribe/errors"
)

// ProgressFunc receives the number of bytes copied so far and the expected
// total, which is -1 when the server did not announce a length.
type ProgressFunc func(written, total int64)

// Download streams the response body of req into dst.
// Transfer failures after the headers arrived are classified like transport
// errors so an interrupted body is transient, not a hard failure.
func (c *Client) Download(ctx context.Context, req Request, dst io.Writer, progress ProgressFunc) (int64, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	stream, err := c.DoStream(ctx, req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = stream.Close() }()

	written, err := Copy(ctx, dst, stream.Body, stream.Size, progress)
	if err != nil {
		if errors.IsAppError(err) {
			return written, err
		}
		return written, c.transportError(ctx, err)
	}
	return written, nil
}

// Copy copies src to dst reporting progress after every chunk and stopping
// as soon as ctx is done.
func Copy(ctx context.Context, dst io.Writer, src io.Reader, total int64, progress ProgressFunc) (int64, error) {
	buf := make([]byte, 32*1024)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, readErr := src.Read(buf)
		if n > 0 {
			m, writeErr := dst.Write(buf[:n])
			written += int64(m)
			if writeErr != nil {
				if errors.IsAppError(writeErr) {
					return written, writeErr
				}
				return written, errors.Internal(writeErr)
			}
			if m != n {
				return written, errors.Internal(io.ErrShortWrite)
			}
			if progress != nil {
				progress(written, total)
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}
