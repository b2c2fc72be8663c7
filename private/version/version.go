// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

// Package version holds the build information of the binary.
package version

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/zeebo/errs"
)

var (
	// Timestamp is the UTC timestamp of the compilation time.
	Timestamp string
	// CommitHash is the git hash of the code being compiled.
	CommitHash string
	// Version is the semantic version set at compilation.
	// It names the README object stored in every archive.
	Version = "v0.2.0"
)

// Error is the default version error class.
var Error = errs.Class("version")

// SemVer represents a semantic version.
type SemVer struct {
	Major int64 `json:"major"`
	Minor int64 `json:"minor"`
	Patch int64 `json:"patch"`
}

// Info is the versioning information for a binary.
type Info struct {
	Timestamp  string `json:"timestamp,omitempty"`
	CommitHash string `json:"commitHash,omitempty"`
	Version    SemVer `json:"semver"`
}

// semVerRegex is the regular expression used to parse a semantic version.
// https://github.com/Masterminds/semver/blob/master/LICENSE.txt
var semVerRegex = regexp.MustCompile(`^v?([0-9]+)\.([0-9]+)\.([0-9]+)` +
	`(-([0-9A-Za-z\-]+(\.[0-9A-Za-z\-]+)*))?` +
	`(\+([0-9A-Za-z\-]+(\.[0-9A-Za-z\-]+)*))?$`)

// NewSemVer parses a given version and returns an instance of SemVer or
// an error if unable to parse the version.
func NewSemVer(v string) (SemVer, error) {
	m := semVerRegex.FindStringSubmatch(v)
	if m == nil {
		return SemVer{}, Error.New("invalid semantic version %q", v)
	}

	var sv SemVer
	var err error
	if sv.Major, err = strconv.ParseInt(m[1], 10, 64); err != nil {
		return SemVer{}, Error.Wrap(err)
	}
	if sv.Minor, err = strconv.ParseInt(m[2], 10, 64); err != nil {
		return SemVer{}, Error.Wrap(err)
	}
	if sv.Patch, err = strconv.ParseInt(m[3], 10, 64); err != nil {
		return SemVer{}, Error.Wrap(err)
	}
	return sv, nil
}

// String converts the SemVer struct to a more easy to handle string.
func (sem SemVer) String() string {
	return "v" + strconv.FormatInt(sem.Major, 10) + "." +
		strconv.FormatInt(sem.Minor, 10) + "." +
		strconv.FormatInt(sem.Patch, 10)
}

// Build returns the build information of the running binary.
func Build() (Info, error) {
	sv, err := NewSemVer(Version)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Timestamp:  Timestamp,
		CommitHash: CommitHash,
		Version:    sv,
	}, nil
}

// Format returns the version without the leading "v", as used in archive keys.
func Format() string {
	return strings.TrimPrefix(Version, "v")
}
