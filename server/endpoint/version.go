package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/mediascribe/version"
)

// VersionResponse is the body of GET /version.
type VersionResponse struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	Branch    string `json:"branch,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
	Release   bool   `json:"release"`
	Dirty     bool   `json:"dirty,omitempty"`
	UserAgent string `json:"user_agent"`
}

// Version returns a handler that reports the build of the running service.
// The user agent is the one sent to remote media hosts.
func Version(serviceName string) gin.HandlerFunc {
	v := version.GetVersionInfo()
	body := VersionResponse{
		Service:   serviceName,
		Version:   v.Version,
		Commit:    v.GitCommit,
		Branch:    v.GitBranch,
		BuildTime: v.BuildTime,
		GoVersion: v.GoVersion,
		Release:   v.IsRelease,
		Dirty:     v.IsDirty,
		UserAgent: version.UserAgent(),
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, body)
	}
}
