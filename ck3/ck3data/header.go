// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ck3data

import (
	"fmt"
	"io"
	"strconv"

	"go.chromium.org/luci/common/errors"
)

// Magic is the magic bytes which appear at the beginning of a headered save.
const Magic = "SAV"

// HeaderLen is the length of the header line, including its newline.
const HeaderLen = 24

// Offsets of the header line fields.
const (
	versionOff     = 3
	kindOff        = 5
	randomOff      = 7
	metadataLenOff = 15
)

// Kind is the body kind declared by the header line.
type Kind byte

// These are the known header kinds.
const (
	KindText Kind = iota
	KindBinary
	KindTextZip
	KindBinaryZip
	KindSplitText
	KindSplitBinary
)

// Binary returns true iff the body is binary tokens.
func (k Kind) Binary() bool {
	return k%2 == 1
}

// Compressed returns true iff the body is a zip archive.
func (k Kind) Compressed() bool {
	return k >= KindTextZip
}

// Valid returns a nil err iff this Kind is known.
func (k Kind) Valid() error {
	if k <= KindSplitBinary {
		return nil
	}
	return errors.Reason("unknown header kind %d", k).Err()
}

// Encoding returns the Encoding implied by the kind.
func (k Kind) Encoding() Encoding {
	switch {
	case k.Compressed() && k.Binary():
		return EncodingBinaryInArchive
	case k.Compressed():
		return EncodingTextInArchive
	case k.Binary():
		return EncodingRawBinary
	}
	return EncodingPlainText
}

// SaveHeader is the decoded header line.
type SaveHeader struct {
	// Version is the two character header version, usually "01".
	Version string
	Kind    Kind
	// Random is 8 opaque characters.
	Random string
	// MetadataLen is the length of the metadata block which follows the
	// header line.
	MetadataLen uint64
}

// ParseHeader decodes the header line at the start of data.
func ParseHeader(data []byte) (h SaveHeader, err error) {
	if len(data) < HeaderLen {
		if len(data) >= len(Magic) && string(data[:len(Magic)]) == Magic {
			err = errors.Annotate(io.ErrUnexpectedEOF, "header line").Err()
		} else {
			err = errors.Reason("bad magic: %q", data).Err()
		}
		return
	}

	if sBuf := string(data[:len(Magic)]); sBuf != Magic {
		err = errors.Reason("bad magic: %q", sBuf).Err()
		return
	}
	if data[HeaderLen-1] != '\n' {
		err = errors.Reason("header line not terminated: %q", data[:HeaderLen]).Err()
		return
	}

	h.Version = string(data[versionOff:kindOff])

	kind, err := strconv.ParseUint(string(data[kindOff:randomOff]), 16, 8)
	if err != nil {
		err = errors.Annotate(err, "bad kind %q", data[kindOff:randomOff]).Err()
		return
	}
	h.Kind = Kind(kind)
	if err = h.Kind.Valid(); err != nil {
		return
	}

	h.Random = string(data[randomOff:metadataLenOff])

	if h.MetadataLen, err = strconv.ParseUint(string(data[metadataLenOff:HeaderLen-1]), 16, 64); err != nil {
		err = errors.Annotate(err, "bad metadata length %q", data[metadataLenOff:HeaderLen-1]).Err()
		return
	}
	return
}

// ReadHeader reads and decodes the header line from r.
func ReadHeader(r io.Reader) (SaveHeader, error) {
	buf := make([]byte, HeaderLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return SaveHeader{}, err
	}
	return ParseHeader(buf)
}

// HasHeader returns true iff data starts with the header magic.
func HasHeader(data []byte) bool {
	return len(data) >= len(Magic) && string(data[:len(Magic)]) == Magic
}

// SetKind changes the declared body kind.
func (h *SaveHeader) SetKind(k Kind) {
	h.Kind = k
}

// SetMetadataLen changes the declared metadata length.
func (h *SaveHeader) SetMetadataLen(n uint64) {
	h.MetadataLen = n
}

// Append renders the header line onto buf.
func (h SaveHeader) Append(buf []byte) []byte {
	buf = append(buf, Magic...)
	buf = append(buf, fixed(h.Version, 2, '0')...)
	buf = append(buf, fmt.Sprintf("%02x", byte(h.Kind))...)
	buf = append(buf, fixed(h.Random, 8, '0')...)
	buf = append(buf, fmt.Sprintf("%08x", h.MetadataLen)...)
	return append(buf, '\n')
}

// Write writes the header line to w.
func (h SaveHeader) Write(w io.Writer) error {
	_, err := w.Write(h.Append(make([]byte, 0, HeaderLen)))
	return err
}

func (h SaveHeader) String() string {
	return string(h.Append(nil)[:HeaderLen-1])
}

// fixed left-pads or truncates s to exactly n bytes.
func fixed(s string, n int, pad byte) string {
	if len(s) >= n {
		return s[:n]
	}
	buf := make([]byte, n-len(s), n)
	for i := range buf {
		buf[i] = pad
	}
	return string(append(buf, s...))
}

// PatchMetadataLen overwrites the metadata length field of the header line at
// the start of buf.
func PatchMetadataLen(buf []byte, n uint64) error {
	if len(buf) < HeaderLen || !HasHeader(buf) {
		return errors.New("no header line to patch")
	}
	if n > 0xffffffff {
		return errors.Reason("metadata length %d does not fit the header", n).Err()
	}
	copy(buf[metadataLenOff:HeaderLen-1], fmt.Sprintf("%08x", n))
	return nil
}
