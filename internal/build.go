package internal

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Name is the program name used for the CLI, log files and serverInfo.
const Name = "lsp-server"

// Set with -ldflags "-X github.com/ggoodman/lsp-server-go/internal.version=..."
var (
	version = ""
	commit  = ""
)

// Version returns the release version, falling back to the module version
// recorded in the build info and then to "(devel)".
func Version() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(devel)"
}

// VersionString is the one-line description printed by the version command.
func VersionString() string {
	s := fmt.Sprintf("%s %s", Name, Version())
	if commit != "" {
		s += " (" + commit + ")"
	}
	return fmt.Sprintf("%s %s/%s", s, runtime.GOOS, runtime.GOARCH)
}
