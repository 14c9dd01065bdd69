// Package buildinfo reports the version stamped into the binary.
package buildinfo

import (
	"fmt"
	"runtime/debug"
	"sync"
)

// These variables are intended to be set via -ldflags at build time:
//
//	-X 'github.com/m3rciful/potluckbot/core/buildinfo.Version=v1.2.3'
//	-X 'github.com/m3rciful/potluckbot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/potluckbot/core/buildinfo.Date=2025-08-30T12:00:00Z'
//
// Unset values fall back to the VCS stamp of `go build`.
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

var fillOnce sync.Once

// fill copies vcs.revision and vcs.time into Commit and Date when ldflags
// left them empty.
func fill() {
	fillOnce.Do(func() {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			Version = info.Main.Version
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if Commit == "" && len(s.Value) >= 7 {
					Commit = s.Value[:7]
				}
			case "vcs.time":
				if Date == "" {
					Date = s.Value
				}
			}
		}
		if Commit == "" {
			Commit = "local"
		}
	})
}

// Info returns version, commit and build date.
func Info() (version, commit, date string) {
	fill()
	return Version, Commit, Date
}

// String formats the build for -version output.
func String() string {
	v, c, d := Info()
	if d == "" {
		return fmt.Sprintf("%s (%s)", v, c)
	}
	return fmt.Sprintf("%s (%s, %s)", v, c, d)
}
