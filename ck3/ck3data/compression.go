// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ck3data

import (
	stdflate "compress/flate"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"go.chromium.org/luci/common/errors"
)

// Decompressor selects the DEFLATE implementation used to inflate archive
// entries. All of them produce identical output; they differ only in speed.
type Decompressor byte

// These are the available inflate backends.
const (
	// DecompressorKlauspost is github.com/klauspost/compress/flate. It's the
	// default.
	DecompressorKlauspost Decompressor = iota + 1

	// DecompressorStdlib is compress/flate from the standard library.
	DecompressorStdlib
)

// Reader returns a new decompressing reader for the given backend.
func (d Decompressor) Reader(r io.Reader) (io.ReadCloser, error) {
	switch d {
	case DecompressorKlauspost:
		return flate.NewReader(r), nil
	case DecompressorStdlib:
		return stdflate.NewReader(r), nil
	}
	return nil, d.Valid()
}

// Valid returns a nil err iff this Decompressor is valid.
func (d Decompressor) Valid() error {
	switch d {
	case DecompressorKlauspost, DecompressorStdlib:
		return nil
	}
	return errors.Reason("unknown decompressor %x", byte(d)).Err()
}

func (d Decompressor) String() string {
	switch d {
	case DecompressorKlauspost:
		return "klauspost"
	case DecompressorStdlib:
		return "stdlib"
	}
	return "unknown"
}

// register installs d as the inflate implementation of zr.
func (d Decompressor) register(zr *zip.Reader) error {
	if err := d.Valid(); err != nil {
		return err
	}
	zr.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		rc, _ := d.Reader(r)
		return rc
	})
	return nil
}
