package version

import (
	"runtime/debug"
	"time"
)

// These variables can be overridden at build time with ldflags
var (
	Version   string // -X github.com/OmniBazaar/Coin-sub013/cmd/version.Version=...
	Commit    string // -X github.com/OmniBazaar/Coin-sub013/cmd/version.Commit=...
	BuildTime string // -X github.com/OmniBazaar/Coin-sub013/cmd/version.BuildTime=...
)

// getVersion returns the ldflags version if set, otherwise the module version
// recorded in the build info.
func getVersion() string {
	if Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(devel)"
}

// getCommit returns the short commit hash.
func getCommit() string {
	commit := Commit
	if commit == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, setting := range info.Settings {
				if setting.Key == "vcs.revision" {
					commit = setting.Value
					break
				}
			}
		}
	}

	const shortHashLength = 9
	if len(commit) > shortHashLength {
		return commit[:shortHashLength]
	}
	return commit
}

func getBuildTimeDisplay() string {
	if BuildTime != "" {
		if t, err := time.Parse(time.RFC3339, BuildTime); err == nil {
			return t.Format(time.RFC3339)
		}
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.time" {
				return setting.Value
			}
		}
	}
	return "unknown"
}
