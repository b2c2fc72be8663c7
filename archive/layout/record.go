// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package layout

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"
	"unicode/utf8"

	"storj.io/minus80/archive/digest"
)

// MetadataRecord describes one archived instance of a file.
type MetadataRecord struct {
	Path  string
	Size  int64
	MTime time.Time
	Data  digest.Digest
}

// wireRecord fixes the serialized field order; fields are sorted by name.
type wireRecord struct {
	Data  digest.Digest `json:"data"`
	MTime seconds       `json:"mtime"`
	Path  string        `json:"path"`
	Size  int64         `json:"size"`
}

// Canonical returns the canonical serialization of the record: sorted keys,
// no insignificant whitespace, no HTML escaping and non-ASCII characters
// escaped as \uXXXX. mtime is written as float seconds in shortest round-trip
// form, so records hash the same as those written by earlier minus80 releases.
func (record MetadataRecord) Canonical() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(wireRecord{
		Data:  record.Data,
		MTime: seconds(record.MTime.UnixNano()),
		Path:  record.Path,
		Size:  record.Size,
	})
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return escapeNonASCII(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// escapeNonASCII replaces every non-ASCII rune with \uXXXX escapes, using
// surrogate pairs outside the basic plane. Such runes only occur inside JSON
// strings.
func escapeNonASCII(data []byte) []byte {
	if !bytes.ContainsFunc(data, func(r rune) bool { return r >= utf8.RuneSelf }) {
		return data
	}

	out := make([]byte, 0, len(data)+16)
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		data = data[size:]
		if r < utf8.RuneSelf {
			out = append(out, byte(r))
			continue
		}
		if r1, r2 := utf16.EncodeRune(r); r1 != utf8.RuneError {
			out = appendEscape(out, r1)
			r = r2
		}
		out = appendEscape(out, r)
	}
	return out
}

func appendEscape(out []byte, r rune) []byte {
	const hex = "0123456789abcdef"
	return append(out, '\\', 'u', hex[r>>12&0xf], hex[r>>8&0xf], hex[r>>4&0xf], hex[r&0xf])
}

// InfoDigest returns the digest of the canonical serialization.
func (record MetadataRecord) InfoDigest() (digest.Digest, error) {
	data, err := record.Canonical()
	if err != nil {
		return "", err
	}
	return digest.Bytes(data), nil
}

// IndexKey returns the key under which the record is stored.
func (record MetadataRecord) IndexKey() (string, error) {
	info, err := record.InfoDigest()
	if err != nil {
		return "", err
	}
	return IndexKey(record.Data, info), nil
}

// ParseMetadata parses a serialized metadata record.
func ParseMetadata(data []byte) (MetadataRecord, error) {
	var wire wireRecord
	if err := json.Unmarshal(data, &wire); err != nil {
		return MetadataRecord{}, Error.Wrap(err)
	}
	if !wire.Data.Valid() {
		return MetadataRecord{}, Error.New("invalid data digest %q", wire.Data)
	}
	if wire.Path == "" {
		return MetadataRecord{}, Error.New("missing path")
	}
	return MetadataRecord{
		Path:  wire.Path,
		Size:  wire.Size,
		MTime: time.Unix(0, int64(wire.MTime)),
		Data:  wire.Data,
	}, nil
}

// seconds is a unix time in nanoseconds, serialized as decimal seconds.
type seconds int64

// MarshalJSON implements json.Marshaler.
func (s seconds) MarshalJSON() ([]byte, error) {
	sec, nsec := int64(s)/1e9, int64(s)%1e9
	if nsec < 0 {
		sec, nsec = sec-1, nsec+1e9
	}
	// same arithmetic as the float st_mtime of a stat call
	f := float64(sec) + float64(nsec)*1e-9

	if abs := math.Abs(f); f != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.AppendFloat(nil, f, 'e', -1, 64), nil
	}
	b := strconv.AppendFloat(nil, f, 'f', -1, 64)
	if !bytes.ContainsRune(b, '.') {
		b = append(b, ".0"...)
	}
	return b, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *seconds) UnmarshalJSON(data []byte) error {
	text := string(data)
	if strings.ContainsAny(text, "eE") {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Error.Wrap(err)
		}
		*s = seconds(f * 1e9)
		return nil
	}

	neg := strings.HasPrefix(text, "-")
	text = strings.TrimPrefix(text, "-")
	wholeText, fracText, _ := strings.Cut(text, ".")

	whole, err := strconv.ParseInt(wholeText, 10, 64)
	if err != nil {
		return Error.Wrap(err)
	}
	var frac int64
	if fracText != "" {
		if len(fracText) > 9 {
			fracText = fracText[:9]
		}
		fracText += strings.Repeat("0", 9-len(fracText))
		frac, err = strconv.ParseInt(fracText, 10, 64)
		if err != nil {
			return Error.Wrap(err)
		}
	}

	n := whole*1e9 + frac
	if neg {
		n = -n
	}
	*s = seconds(n)
	return nil
}
