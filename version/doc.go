// Package version reports the build version of mediascribe.
//
// Version, git commit, branch, and build time are set at compile time
// via -ldflags; missing values fall back to the module's VCS build info:
//
//	go build -ldflags "-X github.com/kbukum/mediascribe/version.Version=1.0.0" ./cmd/mediascribe
package version
