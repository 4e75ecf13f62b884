// Package version provides the version of the databricks-mcp-server binary.
package version

// Version is set at build time via -ldflags.
var Version = "dev"

// GetVersion returns the current version of the application.
func GetVersion() string {
	return Version
}
