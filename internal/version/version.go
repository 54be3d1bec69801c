package version

// Build information set by ldflags
var (
	Version = "dev"     // Set by goreleaser: -X github.com/arthur-debert/devplug/internal/version.Version={{.Version}}
	Commit  = "unknown" // Set by goreleaser: -X github.com/arthur-debert/devplug/internal/version.Commit={{.Commit}}
	Date    = "unknown" // Set by goreleaser: -X github.com/arthur-debert/devplug/internal/version.Date={{.Date}}
)

// IsDev reports whether this is an unreleased build.
func IsDev() bool {
	return Version == "dev" || Version == ""
}
