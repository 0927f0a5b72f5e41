package httpclient

import (
	"fmt"
	"net/http"
)

// Supported AuthConfig types.
const (
	AuthBearer = "bearer"
	AuthAPIKey = "api_key"
)

const defaultAPIKeyHeader = "X-API-Key"

// AuthConfig authenticates requests to a backend such as a shared whisper
// sidecar. A nil or empty config sends no credentials.
type AuthConfig struct {
	// Type is "bearer" or "api_key".
	Type string `yaml:"type" mapstructure:"type"`
	// Token is the bearer token or API key.
	Token string `yaml:"token" mapstructure:"token"`
	// Header carries the API key. Defaults to X-API-Key.
	Header string `yaml:"header" mapstructure:"header"`
}

// BearerAuth sends "Authorization: Bearer <token>".
func BearerAuth(token string) *AuthConfig {
	return &AuthConfig{Type: AuthBearer, Token: token}
}

// APIKeyAuth sends the key in header, or X-API-Key when header is empty.
func APIKeyAuth(key, header string) *AuthConfig {
	return &AuthConfig{Type: AuthAPIKey, Token: key, Header: header}
}

// Enabled reports whether the config carries credentials.
func (a *AuthConfig) Enabled() bool {
	return a != nil && a.Token != ""
}

// Validate rejects unknown types.
func (a *AuthConfig) Validate() error {
	if !a.Enabled() {
		return nil
	}
	switch a.Type {
	case AuthBearer, AuthAPIKey:
		return nil
	default:
		return fmt.Errorf("auth.type must be %q or %q (got: %q)", AuthBearer, AuthAPIKey, a.Type)
	}
}

func (a *AuthConfig) apply(req *http.Request) {
	if !a.Enabled() {
		return
	}
	switch a.Type {
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+a.Token)
	case AuthAPIKey:
		name := a.Header
		if name == "" {
			name = defaultAPIKeyHeader
		}
		req.Header.Set(name, a.Token)
	}
}
