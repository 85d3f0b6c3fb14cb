// Package misc keeps build information.
package misc

var (
	version = "dev"
	githash = "unknown"
)

// GetVersion returns program version, set at link time with -X epubmg/misc.version=...
func GetVersion() string {
	return version
}

// GetGitHash returns git commit program was built from.
func GetGitHash() string {
	return githash
}
