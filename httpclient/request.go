package httpclient

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
)

// Request is one outbound call.
type Request struct {
	Method string // GET when empty
	// Path is joined to Config.BaseURL unless it is an absolute URL.
	Path   string
	Header http.Header
	Query  url.Values
	// Body is a *MultipartBody, io.Reader, []byte or string, or any value
	// json.Marshal accepts.
	Body any
	// Auth replaces Config.Auth for this call.
	Auth *AuthConfig
}

// Response is a fully read 2xx or 3xx answer.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals a JSON body into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// StreamResponse is an answer whose body is still on the wire.
type StreamResponse struct {
	StatusCode  int
	Header      http.Header
	ContentType string
	// Size is the announced body length, -1 when unknown.
	Size int64
	Body io.ReadCloser
}

func (r *StreamResponse) Close() error {
	if r.Body == nil {
		return nil
	}
	return r.Body.Close()
}
