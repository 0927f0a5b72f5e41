// Package httpclient provides the HTTP client used for media downloads, model
// provisioning and transcription sidecars. Failures are returned as
// errors.AppError values already mapped onto the pipeline taxonomy
// (NOT_FOUND, RATE_LIMITED, SERVICE_UNAVAILABLE, TIMEOUT, CANCELED).
//
// # Basic Usage
//
//	client, err := httpclient.New(httpclient.Config{
//	    BaseURL: "http://localhost:8387",
//	    Timeout: 2 * time.Minute,
//	})
//
//	resp, err := client.Do(ctx, httpclient.Request{
//	    Method: http.MethodGet,
//	    Path:   "/health",
//	})
//
// # Streaming downloads
//
//	n, err := client.Download(ctx, httpclient.Request{Path: mediaURL}, file,
//	    func(written, total int64) { ... })
package httpclient
