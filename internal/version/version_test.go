package version

import (
	"runtime/debug"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func withBuild(t *testing.T, version, commit, built string, settings ...debug.BuildSetting) {
	t.Helper()

	oldVersion, oldCommit, oldTime, oldRead := Version, GitCommit, BuildTime, readBuildInfo
	t.Cleanup(func() {
		Version, GitCommit, BuildTime, readBuildInfo = oldVersion, oldCommit, oldTime, oldRead
	})

	Version, GitCommit, BuildTime = version, commit, built
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}, Settings: settings}, true
	}
}

func TestReleaseBuild(t *testing.T) {
	withBuild(t, "v1.2.0", "0123456789abcdef", "2024-05-01T10:00:00Z")

	assert.Equal(t, "v1.2.0", GetVersion())
	assert.Equal(t, "v1.2.0 (0123456)", GetShortVersion())
	assert.True(t, IsRelease())
	assert.True(t, GetBuildTime().Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))

	detailed := GetDetailedVersion()
	assert.Contains(t, detailed, "Version: v1.2.0")
	assert.Contains(t, detailed, "Commit: 0123456789abcdef")
	assert.Contains(t, detailed, "Built: 2024-05-01T10:00:00Z")
}

func TestDevelopmentBuildUsesVCSStamps(t *testing.T) {
	withBuild(t, "dev", "unknown", "unknown",
		debug.BuildSetting{Key: "vcs.revision", Value: "fedcba9876543210"},
		debug.BuildSetting{Key: "vcs.time", Value: "2024-06-02T08:30:00Z"},
		debug.BuildSetting{Key: "vcs.modified", Value: "true"},
	)

	assert.Equal(t, "dev-fedcba9", GetVersion())
	assert.Equal(t, "fedcba9876543210", GetGitCommit())
	assert.Equal(t, "dev-fedcba9", GetShortVersion())
	assert.False(t, IsRelease())
	assert.True(t, IsDirty())
	assert.False(t, GetBuildTime().IsZero())
	assert.Contains(t, GetDetailedVersion(), "Working tree: dirty")
}

func TestUnknownBuild(t *testing.T) {
	withBuild(t, "dev", "unknown", "unknown")

	info := GetBuildInfo()
	assert.Equal(t, "dev", info.Version)
	assert.Equal(t, "unknown", info.GitCommit)
	assert.True(t, info.BuildTime.IsZero())
	assert.NotEmpty(t, info.GoVersion)
	assert.NotContains(t, GetDetailedVersion(), "Commit:")
}

func TestParseISOTime(t *testing.T) {
	tests := []struct {
		in   string
		zero bool
	}{
		{"2024-01-02T03:04:05Z", false},
		{"2024-01-02T03:04:05+02:00", false},
		{"2024-01-02T03:04:05", false},
		{"2024-01-02 03:04:05", false},
		{"", true},
		{"unknown", true},
		{"yesterday", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.zero, parseISOTime(tt.in).IsZero())
		})
	}
}
