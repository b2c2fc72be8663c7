// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package digest computes the content digests used to address archived
// objects.
package digest

import (
	"crypto/sha1" //nolint: gosec // the archive format is defined in terms of sha1
	"encoding/hex"
	"io"
	"os"

	"github.com/zeebo/errs"
)

// Error is the default digest error class.
var Error = errs.Class("digest")

// ChunkSize is the size of the reads used when hashing a stream.
const ChunkSize = 1 << 20

// Size is the length of a hex encoded digest.
const Size = 2 * sha1.Size

// Digest is a lowercase hex encoded sha1 hash.
type Digest string

// String implements fmt.Stringer.
func (d Digest) String() string { return string(d) }

// Valid returns whether d looks like a hex encoded sha1 hash.
func (d Digest) Valid() bool {
	if len(d) != Size {
		return false
	}
	for i := 0; i < len(d); i++ {
		c := d[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f') {
			return false
		}
	}
	return true
}

// Parse validates s as a digest.
func Parse(s string) (Digest, error) {
	d := Digest(s)
	if !d.Valid() {
		return "", Error.New("invalid digest %q", s)
	}
	return d, nil
}

// Bytes returns the digest of data.
func Bytes(data []byte) Digest {
	sum := sha1.Sum(data) //nolint: gosec
	return Digest(hex.EncodeToString(sum[:]))
}

// Reader returns the digest of everything read from r. The stream is
// consumed in ChunkSize pieces so arbitrarily large inputs use bounded memory.
func Reader(r io.Reader) (Digest, error) {
	h := sha1.New() //nolint: gosec
	buf := make([]byte, ChunkSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", Error.Wrap(err)
	}
	return Digest(hex.EncodeToString(h.Sum(nil))), nil
}

// File returns the digest of the contents of the file at path.
func File(path string) (_ Digest, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", Error.Wrap(err)
	}
	defer func() { err = errs.Combine(err, Error.Wrap(f.Close())) }()

	return Reader(f)
}
