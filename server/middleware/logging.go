package middleware

import (
	"net/http"
	"time"

	"github.com/kbukum/mediascribe/logger"
)

// quietPaths are polled by probes and never logged.
var quietPaths = map[string]bool{"/health": true, "/version": true}

// RequestLogger writes one line per finished request. An event stream
// finishes when its client leaves or the job ends, so its duration is the
// life of the subscription. Streams log at debug; other requests log at a
// level that follows the status class.
func RequestLogger(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if quietPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			rec := newRecorder(w)
			start := time.Now()
			next.ServeHTTP(rec, r)

			fields := logger.Fields(
				"method", r.Method,
				logger.FieldPath, r.URL.Path,
				"status", rec.status,
				logger.FieldDuration, time.Since(start).Milliseconds(),
				"bytes", rec.bytes,
			)
			if id := rec.Header().Get(RequestIDHeader); id != "" {
				fields[logger.FieldRequestID] = id
			}

			emit, msg := log.Debug, "Request completed"
			switch {
			case rec.eventStream():
				msg = "Event stream closed"
			case rec.status >= http.StatusInternalServerError:
				emit = log.Error
			case rec.status >= http.StatusBadRequest:
				emit = log.Warn
			}
			emit(msg, fields)
		})
	}
}
