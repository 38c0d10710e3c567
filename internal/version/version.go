// Package version reports which toolchat build is running.
//
// The commit is stamped at link time:
//
//	go build -ldflags "-X github.com/mfateev/toolchat/internal/version.GitCommit=$(git rev-parse --short HEAD)"
package version

// Release is the toolchat release line.
const Release = "0.3.0"

// GitCommit is the short commit hash, "dev" for unstamped builds.
var GitCommit = "dev"

// String returns the release and commit, e.g. "0.3.0+1a2b3c4".
func String() string {
	return Release + "+" + GitCommit
}
