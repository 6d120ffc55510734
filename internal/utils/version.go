package utils

import (
	"runtime/debug"
	"sync"
)

// BuildVersion is set by the build with -ldflags "-X employee-timesheet/internal/utils.BuildVersion=v1.2.3".
var BuildVersion = ""

var buildInfoVersion = sync.OnceValue(func() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" {
		return "devel"
	}

	// Check if dirty
	for _, setting := range info.Settings {
		if setting.Key == "vcs.modified" && setting.Value == "true" {
			return info.Main.Version + "-dirty"
		}
	}

	return info.Main.Version
})

func GetVersion() string {
	if BuildVersion != "" {
		return BuildVersion
	}
	return buildInfoVersion()
}
