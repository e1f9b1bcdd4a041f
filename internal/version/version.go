// Package version exposes the build version embedded from the VERSION file.
package version

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var versionContent string

// Get returns the current version, with whitespace trimmed
func Get() string {
	return strings.TrimSpace(versionContent)
}

// UserAgent identifies Stepwise to upstream services, e.g. "stepwise/0.1.0".
func UserAgent() string {
	return "stepwise/" + Get()
}
