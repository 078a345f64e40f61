// Package buildinfo carries the version stamped into the daftar binary.
//
//	go build -ldflags "-X github.com/daftar-dev/daftar/internal/buildinfo.Version=v0.3.0 \
//	  -X github.com/daftar-dev/daftar/internal/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/daftar-dev/daftar/internal/buildinfo.Date=$(date -u +%Y-%m-%d)"
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Summary is the --version line. Unstamped builds fall back to the module
// version and VCS revision recorded by the go command.
func Summary() string {
	version, commit := Version, Commit
	if info, ok := debug.ReadBuildInfo(); ok {
		if version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
		if commit == "none" {
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" && len(s.Value) >= 7 {
					commit = s.Value[:7]
				}
			}
		}
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, Date)
}
