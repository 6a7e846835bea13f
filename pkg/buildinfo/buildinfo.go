package buildinfo

import "runtime"

// These vars are set at build time via ldflags:
// -X github.com/otherjamesbrown/roundtable/pkg/buildinfo.Version=v0.3.1
// -X github.com/otherjamesbrown/roundtable/pkg/buildinfo.Commit=4c21ad9
// -X github.com/otherjamesbrown/roundtable/pkg/buildinfo.BuildTime=2026-08-14T09:15:00Z
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info holds build information for the CLI.
type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// Get returns build info under the given binary name.
func Get(name string) Info {
	return Info{
		Name:      name,
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}

// String returns a human-readable one-liner like "v0.3.1 (4c21ad9, 2026-08-14T09:15:00Z)"
func String() string {
	return Version + " (" + Commit + ", " + BuildTime + ")"
}
