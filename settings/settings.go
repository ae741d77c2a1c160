// Package settings holds build metadata for the secsearch binary.
package settings

// CliBinaryName is the canonical binary name for this tool.
const CliBinaryName = "secsearch"

// VersionInformation is populated at build time via ldflags.
var VersionInformation = VersionInfo{
	Commit:       "unknown",
	BuildVersion: "v0.0.0-dev",
	BuildTime:    "unknown",
}

// VersionInfo holds the commit hash, version and build timestamp.
type VersionInfo struct {
	Commit       string
	BuildVersion string
	BuildTime    string
}
