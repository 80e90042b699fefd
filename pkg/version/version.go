package version

// Unknown is reported for build variables that were not injected.
const Unknown = "unknown"

// Build variables to be set via ldflags during compilation:
// -X 'github.com/renovate-resolver/resolver/pkg/version.Version=v1.0.0'
// -X 'github.com/renovate-resolver/resolver/pkg/version.CommitHash=abc123'
// -X 'github.com/renovate-resolver/resolver/pkg/version.BuildDate=2024-01-01T00:00:00Z'
var (
	Version    = Unknown
	CommitHash = Unknown
	BuildDate  = Unknown
)

// APIVersion is the version advertised in the OpenAPI document.
const APIVersion = "1.0.0"

// Info returns build information in a structured format
type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildDate  string `json:"build_date"`
}

// Get returns the current build information
func Get() Info {
	return Info{
		Version:    Version,
		CommitHash: CommitHash,
		BuildDate:  BuildDate,
	}
}

// String renders the version for banners and the CLI.
func (i Info) String() string {
	if i.CommitHash == Unknown || i.CommitHash == "" {
		return i.Version
	}
	commit := i.CommitHash
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return i.Version + " (" + commit + ")"
}
