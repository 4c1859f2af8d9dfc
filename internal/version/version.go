// Package version reports the bookbuilder release, set at link time with
// -ldflags "-X git.home.luguber.info/inful/bookbuilder/internal/version.Version=v1.0.0".
package version

import "runtime/debug"

var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

// String returns the version line printed by --version. Commit and build
// time fall back to the VCS stamp of the binary.
func String() string {
	commit, built := GitCommit, BuildTime
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			switch {
			case s.Key == "vcs.revision" && commit == "":
				commit = s.Value
			case s.Key == "vcs.time" && built == "":
				built = s.Value
			}
		}
	}
	return format(Version, commit, built)
}

func format(version, commit, built string) string {
	out := "bookbuilder " + version
	if commit != "" {
		if len(commit) > 12 {
			commit = commit[:12]
		}
		out += " (" + commit
		if built != "" {
			out += ", " + built
		}
		out += ")"
	}
	return out
}
