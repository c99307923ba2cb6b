package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

// Set at release time:
//
//	go build -ldflags="-X github.com/muurk/lorasim/internal/version.Version=v1.2.3 \
//	                   -X github.com/muurk/lorasim/internal/version.Commit=abc123"
//
// Otherwise they come from the binary's build info, then from a dated dev
// fallback.
var (
	// Version is the release of lorasim-provision
	Version = ""
	// Commit is the short git revision
	Commit = ""
)

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		fillFromBuildInfo(info)
	}
	if Version == "" {
		Version = "dev-" + time.Now().Format("20060102-150405")
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// fillFromBuildInfo sets whatever ldflags left empty. A module installed
// with `go install ...@vX` carries its tag as the main module version;
// source builds only have VCS stamps.
func fillFromBuildInfo(info *debug.BuildInfo) {
	vcs := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		vcs[s.Key] = s.Value
	}

	if Commit == "" {
		if rev := vcs["vcs.revision"]; rev != "" {
			Commit = rev[:min(len(rev), 7)]
			if vcs["vcs.modified"] == "true" {
				Commit += "-dirty"
			}
		}
	}

	if Version != "" {
		return
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		Version = v
		return
	}
	if t, err := time.Parse(time.RFC3339, vcs["vcs.time"]); err == nil {
		Version = "dev-" + t.Format("20060102")
	}
}

// Full returns the version with its commit
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// UserAgent returns the User-Agent sent to the network registry
func UserAgent() string {
	return fmt.Sprintf("lorasim-provision/%s (%s; %s/%s)", Version, Commit, runtime.GOOS, runtime.GOARCH)
}
