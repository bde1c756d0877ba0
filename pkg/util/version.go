package util

import (
	"fmt"
)

var (
	// Version build version, set by the build script
	Version = "unknown"
	// GitCommit build commit, set by the build script
	GitCommit = "unknown"
	// BuildTime build time, set by the build script
	BuildTime = "unknown"
)

// PrintVersion prints the build version info
func PrintVersion() bool {
	fmt.Println("Version  : ", Version)
	fmt.Println("GitCommit: ", GitCommit)
	fmt.Println("BuildTime: ", BuildTime)
	return true
}
