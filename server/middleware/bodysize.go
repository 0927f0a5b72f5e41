package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

const defaultMaxBodySize = 1 << 20

// BodySizeLimit caps request bodies at maxSize, e.g. "64KB". An empty or
// unparsable size means 1MB.
func BodySizeLimit(maxSize string) Middleware {
	limit := ParseSize(maxSize, defaultMaxBodySize)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

var sizeUnits = []struct {
	suffix string
	shift  uint
}{{"GB", 30}, {"MB", 20}, {"KB", 10}, {"B", 0}}

// ParseSize reads a positive byte count with an optional KB, MB or GB
// suffix, case-insensitively. Anything else yields fallback.
func ParseSize(s string, fallback int64) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	var shift uint
	for _, u := range sizeUnits {
		if num, ok := strings.CutSuffix(s, u.suffix); ok {
			s, shift = strings.TrimSpace(num), u.shift
			break
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n << shift
}
