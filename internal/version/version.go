// Package version reports how the marklive binary was built. Release builds
// set the variables below with -ldflags; other builds fall back to the VCS
// stamps the Go toolchain records in the binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string    `json:"version" yaml:"version"`
	GitCommit string    `json:"git_commit" yaml:"git_commit"`
	BuildTime time.Time `json:"build_time" yaml:"build_time"`
	GoVersion string    `json:"go_version" yaml:"go_version"`
	Platform  string    `json:"platform" yaml:"platform"`
	Dirty     bool      `json:"dirty" yaml:"dirty"`
}

// Set at build time:
//
//	go build -ldflags "-X github.com/conneroisu/marklive/internal/version.Version=v0.3.0"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

const unknown = "unknown"

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// GetBuildInfo returns comprehensive build information
func GetBuildInfo() *BuildInfo {
	return &BuildInfo{
		Version:   GetVersion(),
		GitCommit: GetGitCommit(),
		BuildTime: GetBuildTime(),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Dirty:     IsDirty(),
	}
}

// GetVersion returns the application version.
func GetVersion() string {
	if Version != "" && Version != "dev" {
		return Version
	}

	if v := buildSetting("vcs.revision"); len(v) >= 7 {
		return "dev-" + v[:7]
	}
	if info, ok := readBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}

	return "dev"
}

// GetGitCommit returns the commit the binary was built from.
func GetGitCommit() string {
	if GitCommit != "" && GitCommit != unknown {
		return GitCommit
	}
	if v := buildSetting("vcs.revision"); v != "" {
		return v
	}
	return unknown
}

// GetBuildTime returns the build time, or the commit time for untagged
// builds. The zero time means neither is known.
func GetBuildTime() time.Time {
	if t := parseISOTime(BuildTime); !t.IsZero() {
		return t
	}
	return parseISOTime(buildSetting("vcs.time"))
}

// GetShortVersion returns a short version string suitable for display
func GetShortVersion() string {
	v := GetVersion()
	commit := GetGitCommit()

	if commit == unknown || len(commit) < 7 || strings.HasPrefix(v, "dev-") {
		return v
	}
	if v == "dev" {
		return "dev-" + commit[:7]
	}
	return fmt.Sprintf("%s (%s)", v, commit[:7])
}

// GetDetailedVersion returns one "Key: value" line per known build fact.
func GetDetailedVersion() string {
	info := GetBuildInfo()

	lines := []string{"Version: " + info.Version}
	if info.GitCommit != unknown {
		lines = append(lines, "Commit: "+info.GitCommit)
	}
	if !info.BuildTime.IsZero() {
		lines = append(lines, "Built: "+info.BuildTime.Format(time.RFC3339))
	}
	lines = append(lines, "Go: "+info.GoVersion, "Platform: "+info.Platform)
	if info.Dirty {
		lines = append(lines, "Working tree: dirty")
	}

	return strings.Join(lines, "\n")
}

// IsRelease reports whether the binary carries a tagged version.
func IsRelease() bool {
	v := GetVersion()
	return v != "dev" && !strings.HasPrefix(v, "dev-")
}

// IsDirty returns true if the working directory was dirty when built
func IsDirty() bool {
	return buildSetting("vcs.modified") == "true"
}

func buildSetting(key string) string {
	info, ok := readBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}

// parseISOTime parses an ISO 8601 time string, returns zero time on error
func parseISOTime(s string) time.Time {
	if s == "" || s == unknown {
		return time.Time{}
	}

	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}

	return time.Time{}
}
