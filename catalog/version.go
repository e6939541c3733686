package catalog

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// FormatVersion is the current catalog artifact format version. Every
// written catalog declares it; readers refuse artifacts outside the
// compatibility window.
const FormatVersion = "1.0.0"

// IsCompatible checks whether an artifact's declared format version can be
// read by this build, using a caret constraint against FormatVersion
// (same major version, equal or newer minor/patch not required).
//
// Returns false with no error for well-formed but incompatible versions,
// and an error for versions that do not parse at all.
func IsCompatible(artifactVersion string) (bool, error) {
	constraint, err := semver.NewConstraint("^" + FormatVersion)
	if err != nil {
		return false, fmt.Errorf("invalid catalog format version: %w", err)
	}

	v, err := semver.NewVersion(artifactVersion)
	if err != nil {
		return false, fmt.Errorf("invalid artifact format version %q: %w", artifactVersion, err)
	}

	return constraint.Check(v), nil
}
