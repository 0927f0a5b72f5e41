package version

import (
	"cmp"
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"slices"
	"strings"
	"time"
)

// Product names the binary in the user agent and version output.
const Product = "mediascribe"

// extractorModule is the YouTube client whose version is reported next to
// ours.
const extractorModule = "github.com/kkdai/youtube/v2"

// Set with -ldflags "-X".
var (
	Version   = "dev"
	GitCommit = ""
	GitBranch = ""
	BuildTime = ""
	GoVersion = ""
)

type Info struct {
	Version   string    `json:"version"`
	GitCommit string    `json:"git_commit"`
	GitBranch string    `json:"git_branch"`
	BuildTime string    `json:"build_time"`
	GoVersion string    `json:"go_version"`
	BuildDate time.Time `json:"build_date"`
	IsRelease bool      `json:"is_release"`
	IsDirty   bool      `json:"is_dirty"`
	// Extractor is the linked YouTube client version, empty in tests.
	Extractor string `json:"extractor,omitempty"`
}

// GetVersionInfo fills whatever -ldflags left empty from the VCS stamps
// and module list the toolchain embeds. BuildDate stays zero when the build
// time is unknown or not RFC 3339.
func GetVersionInfo() *Info {
	info := &Info{
		Version:   Version,
		GitCommit: GitCommit,
		GitBranch: GitBranch,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
	}
	info.IsRelease = info.Version != "dev" && !strings.Contains(info.Version, "dirty")
	if bi, ok := debug.ReadBuildInfo(); ok {
		applyBuildSettings(info, bi.Settings)
		info.Extractor = moduleVersion(bi.Deps, extractorModule)
	}
	info.GoVersion = cmp.Or(info.GoVersion, runtime.Version())
	if t, err := time.Parse(time.RFC3339, info.BuildTime); err == nil {
		info.BuildDate = t.UTC()
	}
	return info
}

func applyBuildSettings(info *Info, settings []debug.BuildSetting) {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			info.GitCommit = cmp.Or(info.GitCommit, s.Value[:min(len(s.Value), 7)])
		case "vcs.modified":
			info.IsDirty = s.Value == "true"
		case "vcs.time":
			info.BuildTime = cmp.Or(info.BuildTime, s.Value)
		}
	}
}

func moduleVersion(deps []*debug.Module, path string) string {
	for _, m := range deps {
		if m.Path != path {
			continue
		}
		if m.Replace != nil {
			return m.Replace.Version
		}
		return m.Version
	}
	return ""
}

// Short is "version[-commit][-dirty]", e.g. "1.2.0-abc1234".
func (i *Info) Short() string {
	if i.GitCommit == "" {
		return i.Version
	}
	parts := []string{i.Version, i.GitCommit}
	if i.IsDirty {
		parts = append(parts, "dirty")
	}
	return strings.Join(parts, "-")
}

// Full also names a branch other than main and the build date, e.g.
// "1.2.0-abc1234-feature (built 2026-01-02T15:04:05Z)".
func (i *Info) Full() string {
	parts := []string{i.Version}
	if i.GitCommit != "" {
		parts = append(parts, i.GitCommit)
	}
	if !slices.Contains([]string{"", "main", "master"}, i.GitBranch) {
		parts = append(parts, i.GitBranch)
	}
	if i.IsDirty {
		parts = append(parts, "dirty")
	}
	full := strings.Join(parts, "-")
	if !i.BuildDate.IsZero() {
		full += " (built " + i.BuildDate.Format(time.RFC3339) + ")"
	}
	return full
}

// UserAgent is sent to media hosts, e.g. "mediascribe/1.2.0-abc1234".
func UserAgent() string {
	return Product + "/" + GetVersionInfo().Short()
}

// Print writes the "mediascribe version" report.
func Print(w io.Writer) {
	info := GetVersionInfo()
	fmt.Fprintf(w, "%s %s\n", Product, info.Full())
	if info.GitCommit != "" {
		fmt.Fprintf(w, "  commit:  %s\n", info.GitCommit)
	}
	fmt.Fprintf(w, "  go:      %s\n", info.GoVersion)
	fmt.Fprintf(w, "  agent:   %s\n", UserAgent())
	if info.Extractor != "" {
		fmt.Fprintf(w, "  youtube: %s\n", info.Extractor)
	}
}
