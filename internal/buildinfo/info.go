// Package buildinfo carries version data stamped in with -ldflags.
package buildinfo

import (
	"runtime"
	"runtime/debug"
)

const Service = "trustgate"

// Set via -ldflags "-X github.com/classhub/trustgate/internal/buildinfo.Version=...".
var (
	Version    = "dev"
	CommitHash = ""
)

type Info struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	GoVersion string `json:"go_version"`
}

// Get falls back to the VCS revision recorded by the Go toolchain
// when no commit was stamped.
func Get() Info {
	commit := CommitHash
	if commit == "" {
		commit = vcsRevision()
	}
	return Info{
		Service:   Service,
		Version:   Version,
		Commit:    commit,
		GoVersion: runtime.Version(),
	}
}

func vcsRevision() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return ""
}
