// Copyright (c) 2013-2014 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package version houses the version information of chaind.
package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// semanticAlphabet defines the allowed characters for the pre-release and
// build metadata portions of a semantic version string.
const semanticAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-."

// semverRE splits a semantic version string into its constituent parts.
var semverRE = regexp.MustCompile(`^(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)` +
	`(?:-((?:0|[1-9]\d*|\d*[a-zA-Z-][0-9a-zA-Z-]*)(?:\.(?:0|[1-9]\d*|\d*` +
	`[a-zA-Z-][0-9a-zA-Z-]*))*))?(?:\+([0-9a-zA-Z-]+(?:\.[0-9a-zA-Z-]+)*))?$`)

var (
	// Version is the application version per the semantic versioning 2.0.0
	// spec (https://semver.org/).
	//
	// It may be overridden at build time with:
	// '-ldflags "-X github.com/stakechain/chaind/internal/version.Version=fullsemver"'
	//
	// The package panics during init when it is not a full semantic version.
	Version = "0.1.0-pre"

	// These fields are parsed from Version during init.
	Major         uint
	Minor         uint
	Patch         uint
	PreRelease    string
	BuildMetadata string
)

// semVer houses the parsed components of a semantic version string.
type semVer struct {
	major, minor, patch uint
	preRelease, build   string
}

// checkSemString returns an error if the passed string contains characters
// outside of the semantic alphabet.
func checkSemString(s, fieldName string) error {
	for _, r := range s {
		if !strings.ContainsRune(semanticAlphabet, r) {
			return fmt.Errorf("malformed semver %s: %q invalid", fieldName, r)
		}
	}
	return nil
}

// parseSemVer parses the components of the provided semantic version string.
func parseSemVer(s string) (semVer, error) {
	m := semverRE.FindStringSubmatch(s)
	if m == nil {
		return semVer{}, fmt.Errorf("malformed version string %q: does not "+
			"conform to semver specification", s)
	}

	var nums [3]uint
	for i, name := range []string{"major", "minor", "patch"} {
		val, err := strconv.ParseUint(m[i+1], 10, 0)
		if err != nil {
			return semVer{}, fmt.Errorf("malformed semver %s: %w", name, err)
		}
		nums[i] = uint(val)
	}
	if err := checkSemString(m[4], "pre-release"); err != nil {
		return semVer{}, err
	}
	if err := checkSemString(m[5], "buildmetadata"); err != nil {
		return semVer{}, err
	}

	return semVer{
		major:      nums[0],
		minor:      nums[1],
		patch:      nums[2],
		preRelease: m[4],
		build:      m[5],
	}, nil
}

func init() {
	v, err := parseSemVer(Version)
	if err != nil {
		panic(err)
	}
	Major, Minor, Patch = v.major, v.minor, v.patch
	PreRelease, BuildMetadata = v.preRelease, v.build
}

// withCommit returns the version string with the passed commit appended as
// build metadata when the version does not carry any.
func withCommit(version, build, commit string) string {
	commit = NormalizeString(commit)
	if build != "" || commit == "" {
		return version
	}
	return version + "+" + commit
}

// String returns the application version as a properly formed string per the
// semantic versioning 2.0.0 spec.  Builds from a version control checkout
// include the commit as build metadata unless other metadata was set.
func String() string {
	return withCommit(Version, BuildMetadata, vcsCommitID())
}

// NormalizeString returns the passed string stripped of all characters which
// are not valid for pre-release and build metadata strings.
func NormalizeString(str string) string {
	var b strings.Builder
	for _, r := range str {
		if strings.ContainsRune(semanticAlphabet, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
