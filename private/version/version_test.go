// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package version_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"storj.io/minus80/private/version"
)

func TestNewSemVer(t *testing.T) {
	for _, v := range []string{"v1.2.3", "1.2.3", "v1.2.3-rc1", "v1.2.3+build.5"} {
		sv, err := version.NewSemVer(v)
		require.NoError(t, err, v)
		require.Equal(t, version.SemVer{Major: 1, Minor: 2, Patch: 3}, sv, v)
		require.Equal(t, "v1.2.3", sv.String())
	}

	for _, v := range []string{"", "1.2", "vx.y.z", "1.2.3.4"} {
		_, err := version.NewSemVer(v)
		require.Error(t, err, v)
	}
}

func TestBuild(t *testing.T) {
	info, err := version.Build()
	require.NoError(t, err)
	require.Equal(t, version.Version, info.Version.String())
	require.NotContains(t, version.Format(), "v")
}
