// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ck3data

import (
	"bytes"
	"fmt"
	"io"

	"go.chromium.org/luci/common/errors"
)

// Encoding is the encoding of a save's body.
type Encoding byte

// These are the body encodings.
const (
	EncodingPlainText Encoding = iota + 1
	EncodingTextInArchive
	EncodingBinaryInArchive
	EncodingRawBinary
)

// Binary returns true iff the body is binary tokens.
func (e Encoding) Binary() bool {
	return e == EncodingBinaryInArchive || e == EncodingRawBinary
}

// Archived returns true iff the body is inside a zip archive.
func (e Encoding) Archived() bool {
	return e == EncodingTextInArchive || e == EncodingBinaryInArchive
}

// Kind returns the header kind for a save with this encoding.
func (e Encoding) Kind() Kind {
	switch e {
	case EncodingTextInArchive:
		return KindTextZip
	case EncodingBinaryInArchive:
		return KindBinaryZip
	case EncodingRawBinary:
		return KindBinary
	}
	return KindText
}

func (e Encoding) String() string {
	switch e {
	case EncodingPlainText:
		return "text"
	case EncodingTextInArchive:
		return "text (zip)"
	case EncodingBinaryInArchive:
		return "binary (zip)"
	case EncodingRawBinary:
		return "binary"
	}
	return fmt.Sprintf("Encoding(%d)", byte(e))
}

// zipMagic is the signature of a zip local file header.
var zipMagic = []byte("PK\x03\x04")

// zipSearchSpace is how far into the body the zip signature is searched for
// when it isn't right after the inline metadata.
const zipSearchSpace = 64 * 1024

// Container is the result of sniffing a save.
type Container struct {
	Encoding Encoding

	// Header is nil for saves without a header line.
	Header *SaveHeader

	// Body is everything after the header line.
	Body []byte

	// ZipOffset is the offset of the zip archive within Body, for archived
	// encodings.
	ZipOffset int
}

// InlineMetadata returns the metadata block following the header line, or
// nil if there isn't one.
func (c *Container) InlineMetadata() ([]byte, error) {
	if c.Header == nil || c.Header.MetadataLen == 0 {
		return nil, nil
	}
	if c.Header.MetadataLen > uint64(len(c.Body)) {
		return nil, errors.Annotate(ErrHeaderLengthMismatch,
			"header declares %d bytes of metadata, %d available", c.Header.MetadataLen, len(c.Body)).Err()
	}
	return c.Body[:c.Header.MetadataLen], nil
}

// Sniff classifies data. It examines the header line and a bounded prefix of
// the body; for a headerless zip it also inflates the first bytes of the
// gamestate entry.
func Sniff(data []byte) (*Container, error) {
	if HasHeader(data) {
		return sniffHeadered(data)
	}

	switch {
	case bytes.HasPrefix(data, zipMagic):
		return sniffHeaderlessZip(data)
	case looksBinary(data):
		return &Container{Encoding: EncodingRawBinary, Body: data}, nil
	case looksText(data):
		return &Container{Encoding: EncodingPlainText, Body: data}, nil
	}
	return nil, errors.Annotate(ErrUnrecognizedContainer, "prefix %q", prefix(data)).Err()
}

func prefix(data []byte) []byte {
	if len(data) > 8 {
		return data[:8]
	}
	return data
}

func sniffHeadered(data []byte) (*Container, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, errors.Annotate(ErrUnrecognizedContainer, "header line: %s", err).Err()
	}
	ret := &Container{
		Encoding: h.Kind.Encoding(),
		Header:   &h,
		Body:     data[HeaderLen:],
	}
	if !h.Kind.Compressed() {
		return ret, nil
	}
	if ret.ZipOffset = findZip(ret.Body, h.MetadataLen); ret.ZipOffset < 0 {
		return nil, errors.Annotate(ErrUnrecognizedContainer, "header kind %d but no zip archive found", h.Kind).Err()
	}
	return ret, nil
}

// findZip locates the zip signature in body, trying metaLen first.
func findZip(body []byte, metaLen uint64) int {
	if metaLen <= uint64(len(body)) && bytes.HasPrefix(body[metaLen:], zipMagic) {
		return int(metaLen)
	}
	search := body
	if len(search) > zipSearchSpace {
		search = search[:zipSearchSpace]
	}
	return bytes.Index(search, zipMagic)
}

func sniffHeaderlessZip(data []byte) (*Container, error) {
	ar, err := OpenArchive(data, DecompressorKlauspost)
	if err != nil {
		return nil, err
	}
	rc, err := ar.Open(EntryGamestate)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	head := make([]byte, 4)
	n, err := io.ReadFull(rc, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, errors.Annotate(ErrDecompressionFailed, "sniffing %q: %s", EntryGamestate, err).Err()
	}
	enc := EncodingTextInArchive
	if looksBinary(head[:n]) {
		enc = EncodingBinaryInArchive
	}
	return &Container{Encoding: enc, Body: data}, nil
}

// looksBinary returns true iff data starts with `<token> =` in the binary
// encoding.
func looksBinary(data []byte) bool {
	return len(data) >= 4 && data[2] == 0x01 && data[3] == 0x00
}

// looksText returns true iff the first non-blank byte can start a statement.
func looksText(data []byte) bool {
	data = bytes.TrimPrefix(data, []byte{0xef, 0xbb, 0xbf})
	data = bytes.TrimLeft(data, " \t\r\n")
	if len(data) == 0 {
		return false
	}
	switch c := data[0]; {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_' || c == '"' || c == '{' || c == '#' || c == '-':
		return true
	}
	return false
}
