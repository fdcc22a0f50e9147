// Package version holds build information for the triples tool.
package version

import "fmt"

var (
	Version = "0.1.0"

	// git hash should be filled by:
	// 	go build -ldflags="-X github.com/cayleygraph/triples/version.GitHash=xxxx"

	GitHash   = "dev snapshot"
	BuildDate string
)

// String describes the build in one line.
func String() string {
	s := fmt.Sprintf("triples %s (%s)", Version, GitHash)
	if BuildDate != "" {
		s += " built " + BuildDate
	}
	return s
}
