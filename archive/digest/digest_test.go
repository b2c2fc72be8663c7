// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package digest_test

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"storj.io/minus80/archive/digest"
	"storj.io/minus80/private/testcontext"
)

func TestBytes(t *testing.T) {
	require.Equal(t, digest.Digest("aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"), digest.Bytes([]byte("hello")))
	require.Equal(t, digest.Digest("da39a3ee5e6b4b0d3255bfef95601890afd80709"), digest.Bytes(nil))
}

func TestReaderMatchesBytes(t *testing.T) {
	// larger than a single chunk to exercise streaming
	data := bytes.Repeat([]byte("0123456789abcdef"), digest.ChunkSize/8)

	got, err := digest.Reader(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, digest.Bytes(data), got)

	again, err := digest.Reader(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, got, again)
}

func TestFile(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	path := ctx.File("hello.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	got, err := digest.File(path)
	require.NoError(t, err)
	require.Equal(t, digest.Bytes([]byte("hello")), got)

	_, err = digest.File(ctx.File("missing"))
	require.Error(t, err)
	require.True(t, digest.Error.Has(err))
}

func TestParse(t *testing.T) {
	valid := "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"
	d, err := digest.Parse(valid)
	require.NoError(t, err)
	require.Equal(t, valid, d.String())

	for _, invalid := range []string{
		"",
		"aaf4c61d",
		strings.ToUpper(valid),
		valid + "00",
		"zzf4c61ddcc5e8a2dabede0f3b482cd9aea9434d",
	} {
		_, err := digest.Parse(invalid)
		require.Error(t, err, invalid)
	}
}
