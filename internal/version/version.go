// Package version reports build metadata for the quill binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// Set at build time with -ldflags "-X github.com/conneroisu/quill/internal/version.Version=...".
var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

// Info describes the running binary.
type Info struct {
	Version   string    `json:"version" yaml:"version"`
	GitCommit string    `json:"git_commit,omitempty" yaml:"git_commit,omitempty"`
	BuildTime time.Time `json:"build_time,omitempty" yaml:"build_time,omitempty"`
	GoVersion string    `json:"go_version" yaml:"go_version"`
	Platform  string    `json:"platform" yaml:"platform"`
	Dirty     bool      `json:"dirty,omitempty" yaml:"dirty,omitempty"`
}

// Get collects build information, falling back to the VCS settings the Go
// toolchain embeds when ldflags were not provided.
func Get() Info {
	settings := buildSettings()

	info := Info{
		Version:   Version,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Dirty:     settings["vcs.modified"] == "true",
	}
	if info.GitCommit == "" {
		info.GitCommit = settings["vcs.revision"]
	}

	stamp := BuildTime
	if stamp == "" {
		stamp = settings["vcs.time"]
	}
	if t, err := time.Parse(time.RFC3339, stamp); err == nil {
		info.BuildTime = t
	}

	if info.Version == "" || info.Version == "dev" {
		info.Version = "dev"
		if len(info.GitCommit) >= 7 {
			info.Version = "dev-" + info.GitCommit[:7]
		}
	}
	return info
}

func buildSettings() map[string]string {
	out := map[string]string{}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}
	for _, s := range bi.Settings {
		out[s.Key] = s.Value
	}
	return out
}

// Short returns a one-line version such as "v1.2.0 (abc1234)".
func (i Info) Short() string {
	if i.IsRelease() && len(i.GitCommit) >= 7 {
		return fmt.Sprintf("%s (%s)", i.Version, i.GitCommit[:7])
	}
	return i.Version
}

// Detailed returns every field on its own line.
func (i Info) Detailed() string {
	lines := []string{"Version: " + i.Version}
	if i.GitCommit != "" {
		commit := i.GitCommit
		if i.Dirty {
			commit += " (dirty)"
		}
		lines = append(lines, "Commit: "+commit)
	}
	if !i.BuildTime.IsZero() {
		lines = append(lines, "Built: "+i.BuildTime.Format(time.RFC3339))
	}
	lines = append(lines, "Go: "+i.GoVersion, "Platform: "+i.Platform)
	return strings.Join(lines, "\n")
}

// IsRelease reports whether the binary was built from a tagged version.
func (i Info) IsRelease() bool {
	return i.Version != "dev" && !strings.HasPrefix(i.Version, "dev-")
}
