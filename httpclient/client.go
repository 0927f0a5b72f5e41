package httpclient

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kbukum/mediascribe/errors"
	"github.com/kbukum/mediascribe/provider"
)

// maxErrorBody bounds how much of a failed response is kept for the error.
const maxErrorBody = 4 << 10

// Client talks to one backend, such as a whisper sidecar or a media host.
// Buffered calls run through the full resilience stack. Streams skip retry
// because their body cannot be replayed.
type Client struct {
	cfg      Config
	buffered *http.Client
	streamed *http.Client
	policy   *provider.ResilienceState
	// streamPolicy is policy without retry.
	streamPolicy *provider.ResilienceState
}

var (
	_ provider.RequestResponse[Request, *Response] = (*Client)(nil)
	_ provider.Closeable                           = (*Client)(nil)
)

func New(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	policy := provider.BuildResilience(cfg.Resilience)
	return &Client{
		cfg:      cfg,
		buffered: &http.Client{Transport: transport, Timeout: cfg.Timeout},
		// A download may run far longer than Timeout. Its context bounds it.
		streamed:     &http.Client{Transport: transport},
		policy:       policy,
		streamPolicy: policy.WithoutRetry(),
	}, nil
}

func (c *Client) Name() string { return c.cfg.Name }

// IsAvailable is false while the circuit breaker is open.
func (c *Client) IsAvailable(context.Context) bool { return c.policy.Available() }

func (c *Client) Execute(ctx context.Context, req Request) (*Response, error) {
	return c.Do(ctx, req)
}

func (c *Client) Close(context.Context) error {
	c.buffered.CloseIdleConnections()
	return nil
}

// Do sends req and reads the whole body. A status of 400 or more is returned
// as a classified AppError, see ClassifyStatusCode.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	return provider.ExecuteWithResilience(ctx, c.policy, func() (*Response, error) {
		resp, err := c.send(ctx, c.buffered, req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, c.transportError(ctx, fmt.Errorf("read response body: %w", err))
		}
		return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
	})
}

// DoStream sends req and returns as soon as the headers arrive. The caller
// must Close the result.
func (c *Client) DoStream(ctx context.Context, req Request) (*StreamResponse, error) {
	return provider.ExecuteWithResilience(ctx, c.streamPolicy, func() (*StreamResponse, error) {
		resp, err := c.send(ctx, c.streamed, req)
		if err != nil {
			return nil, err
		}
		return &StreamResponse{
			StatusCode:  resp.StatusCode,
			Header:      resp.Header,
			ContentType: resp.Header.Get("Content-Type"),
			Size:        resp.ContentLength,
			Body:        resp.Body,
		}, nil
	})
}

// send performs one round trip. On an error status the body is drained
// into the returned error and closed, and a Retry-After header becomes the
// error's retry hint.
func (c *Client) send(ctx context.Context, hc *http.Client, req Request) (*http.Response, error) {
	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, err := hc.Do(httpReq)
	if err != nil {
		return nil, c.transportError(ctx, err)
	}
	if resp.StatusCode < http.StatusBadRequest {
		return resp, nil
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	appErr := ClassifyStatusCode(c.cfg.Name, resp.StatusCode, body)
	if wait := parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()); wait > 0 {
		appErr.WithDetail(errors.DetailRetryAfter, wait.String())
	}
	return nil, appErr
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	target, err := c.resolve(req.Path)
	if err != nil {
		return nil, errors.InvalidInput("url", "malformed request URL").WithCause(err)
	}
	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, errors.InvalidInput("body", "request body cannot be encoded").WithCause(err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, cmp.Or(req.Method, http.MethodGet), target, body)
	if err != nil {
		return nil, errors.InvalidInput("url", "malformed request URL").WithCause(err)
	}
	if len(req.Query) > 0 {
		q := httpReq.URL.Query()
		maps.Copy(q, req.Query)
		httpReq.URL.RawQuery = q.Encode()
	}

	// Later sources win: defaults, then config headers, then the request.
	h := httpReq.Header
	h.Set("User-Agent", c.cfg.UserAgent)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	for k, v := range c.cfg.Headers {
		h.Set(k, v)
	}
	for k, vs := range req.Header {
		h[http.CanonicalHeaderKey(k)] = vs
	}
	cmp.Or(req.Auth, c.cfg.Auth).apply(httpReq)
	return httpReq, nil
}

func (c *Client) resolve(path string) (string, error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	if u.IsAbs() || c.cfg.BaseURL == "" {
		return path, nil
	}
	return url.JoinPath(c.cfg.BaseURL, path)
}

// transportError classifies a failed round trip, letting a done ctx win so
// cancellation is never reported as a network fault.
func (c *Client) transportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = fmt.Errorf("%w: %w", ctxErr, err)
	}
	return classifyTransportError(c.cfg.Name, err)
}

func encodeBody(body any) (io.Reader, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case *MultipartBody:
		return v.encode()
	case io.Reader:
		return v, "", nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case string:
		return strings.NewReader(v), "text/plain; charset=utf-8", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}
}
