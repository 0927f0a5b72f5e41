package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// LastEventIDHeader is sent by EventSource when it reconnects to a job
// stream. It is always allowed.
const LastEventIDHeader = "Last-Event-ID"

// CORSConfig lists allowed origins as "*", an exact origin, or a subdomain
// wildcard such as "https://*.example.com".
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
	ExposedHeaders   []string `yaml:"exposed_headers" mapstructure:"exposed_headers"`
	AllowCredentials bool     `yaml:"allow_credentials" mapstructure:"allow_credentials"`
	// MaxAge is how long, in seconds, a browser may cache a preflight.
	MaxAge int `yaml:"max_age" mapstructure:"max_age"`
}

// corsPolicy is CORSConfig with the header values joined once.
type corsPolicy struct {
	origins     []string
	methods     string
	headers     string
	exposed     string
	credentials bool
	maxAge      string
}

func newCORSPolicy(cfg *CORSConfig) *corsPolicy {
	headers := slices.Clone(cfg.AllowedHeaders)
	if !slices.ContainsFunc(headers, func(h string) bool { return strings.EqualFold(h, LastEventIDHeader) }) {
		headers = append(headers, LastEventIDHeader)
	}
	p := &corsPolicy{
		origins:     cfg.AllowedOrigins,
		methods:     strings.Join(cfg.AllowedMethods, ", "),
		headers:     strings.Join(headers, ", "),
		exposed:     strings.Join(cfg.ExposedHeaders, ", "),
		credentials: cfg.AllowCredentials,
	}
	if cfg.MaxAge > 0 {
		p.maxAge = strconv.Itoa(cfg.MaxAge)
	}
	return p
}

// CORS sets the allow headers for permitted origins and answers preflight
// requests itself. Disallowed origins get no allow headers but still reach
// the handler.
func CORS(cfg *CORSConfig) Middleware {
	p := newCORSPolicy(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")
			origin := r.Header.Get("Origin")
			allowed := origin != "" && p.allows(origin)
			if allowed {
				p.apply(h, origin)
			}
			if r.Method != http.MethodOptions || r.Header.Get("Access-Control-Request-Method") == "" {
				next.ServeHTTP(w, r)
				return
			}
			if allowed && p.maxAge != "" {
				h.Set("Access-Control-Max-Age", p.maxAge)
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

func (p *corsPolicy) apply(h http.Header, origin string) {
	h.Set("Access-Control-Allow-Origin", origin)
	set := func(key, value string) {
		if value != "" {
			h.Set(key, value)
		}
	}
	set("Access-Control-Allow-Methods", p.methods)
	set("Access-Control-Allow-Headers", p.headers)
	set("Access-Control-Expose-Headers", p.exposed)
	if p.credentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
}

func (p *corsPolicy) allows(origin string) bool {
	for _, rule := range p.origins {
		if rule == "*" || rule == origin {
			return true
		}
		scheme, domain, wildcard := strings.Cut(rule, "://*.")
		if !wildcard {
			continue
		}
		if host, ok := strings.CutPrefix(origin, scheme+"://"); ok && strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
