package manifest

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

func parseVersion(v string) (*semver.Version, error) {
	// pip versions may carry local or post-release suffixes semver does not
	// know; keep the leading release segment.
	v = strings.SplitN(v, "+", 2)[0]
	return semver.NewVersion(v)
}

// Satisfies reports whether an installed version meets the declared minimum.
// An empty installed version means the package is absent. An empty minimum
// means any installed version satisfies the spec.
func Satisfies(installed, minimum string) bool {
	if installed == "" {
		return false
	}
	if minimum == "" {
		return true
	}
	have, err := parseVersion(installed)
	if err != nil {
		return false
	}
	want, err := parseVersion(minimum)
	if err != nil {
		return false
	}
	return !have.LessThan(want)
}
