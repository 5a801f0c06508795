package version

import (
	"fmt"
	"strings"

	masterminds "github.com/Masterminds/semver/v3"
)

// These variables are injected at build time via -ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// String returns a human-readable version string.
func String() string {
	return fmt.Sprintf("lintcascade %s (%s, %s)", Version, Commit, BuildDate)
}

// IsDev reports whether v names an unreleased build.
func IsDev(v string) bool {
	return v == "" || v == "dev"
}

// Satisfies reports whether the running version v meets a required_version
// constraint such as ">= 1.4" or "~1.2.0". A bare version ("1.2.3") must
// match exactly. Development builds satisfy every valid constraint.
func Satisfies(v, constraint string) (bool, error) {
	constraint = strings.TrimSpace(constraint)
	if constraint == "" {
		return true, nil
	}

	if bare, err := masterminds.StrictNewVersion(strings.TrimPrefix(constraint, "v")); err == nil {
		constraint = "= " + bare.String()
	}
	c, err := masterminds.NewConstraint(constraint)
	if err != nil {
		return false, fmt.Errorf("parsing constraint %q: %w", constraint, err)
	}
	if IsDev(v) {
		return true, nil
	}

	running, err := masterminds.NewVersion(v)
	if err != nil {
		return false, fmt.Errorf("parsing version %q: %w", v, err)
	}
	return c.Check(running), nil
}
