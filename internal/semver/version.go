// Package semver implements the strict MAJOR.MINOR.PATCH version triple and
// the five-operator constraint grammar used throughout the dependency
// Reactor. Unlike general-purpose SemVer libraries, this package accepts no
// prerelease or build-metadata suffix: a version is exactly three
// non-negative decimal integers.
package semver

import (
	"fmt"
	"strconv"
	"strings"

	mmsemver "github.com/Masterminds/semver/v3"
)

// Version is a parsed, validated MAJOR.MINOR.PATCH triple.
type Version struct {
	major, minor, patch uint64
	inner               *mmsemver.Version
}

// ParseError reports a malformed version or constraint string.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %q: %s", e.Input, e.Reason)
}

// Parse validates and parses a strict MAJOR.MINOR.PATCH string. It rejects
// anything Masterminds/semver would otherwise accept beyond the triple: a
// leading "v", prerelease tags, and build metadata are all errors here.
func Parse(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Version{}, &ParseError{Input: s, Reason: "version must have exactly three dot-separated components"}
	}

	nums := make([]uint64, 3)
	for i, p := range parts {
		if p == "" {
			return Version{}, &ParseError{Input: s, Reason: "empty version component"}
		}
		if p != "0" && strings.HasPrefix(p, "0") {
			return Version{}, &ParseError{Input: s, Reason: "leading zero in version component"}
		}
		for _, r := range p {
			if r < '0' || r > '9' {
				return Version{}, &ParseError{Input: s, Reason: "non-numeric version component"}
			}
		}
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return Version{}, &ParseError{Input: s, Reason: "version component out of range"}
		}
		nums[i] = n
	}

	inner, err := mmsemver.NewVersion(s)
	if err != nil {
		return Version{}, &ParseError{Input: s, Reason: err.Error()}
	}

	return Version{major: nums[0], minor: nums[1], patch: nums[2], inner: inner}, nil
}

// String renders the version back to MAJOR.MINOR.PATCH form.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.major, v.minor, v.patch)
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than o.
func (v Version) Compare(o Version) int {
	return v.inner.Compare(o.inner)
}

func (v Version) Equal(o Version) bool       { return v.Compare(o) == 0 }
func (v Version) LessThan(o Version) bool    { return v.Compare(o) < 0 }
func (v Version) GreaterThan(o Version) bool { return v.Compare(o) > 0 }
