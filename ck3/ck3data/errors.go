// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ck3data

import (
	"go.chromium.org/luci/common/errors"
)

// These are the container level failures. They're annotated with details;
// test for them with errors.Is.
var (
	// ErrUnrecognizedContainer means the data isn't a save in any known
	// encoding.
	ErrUnrecognizedContainer = errors.New("unrecognized container")

	// ErrArchiveCorrupt means the zip directory is damaged, a required entry
	// is missing, or an entry failed its checksum.
	ErrArchiveCorrupt = errors.New("archive corrupt")

	// ErrDecompressionFailed means an entry's compressed stream is malformed,
	// or it inflated to a different size than the archive declared.
	ErrDecompressionFailed = errors.New("decompression failed")

	// ErrHeaderLengthMismatch means the metadata length in the header line
	// doesn't match the metadata block.
	ErrHeaderLengthMismatch = errors.New("header length mismatch")
)
