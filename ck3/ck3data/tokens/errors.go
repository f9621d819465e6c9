// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package tokens

import (
	"go.chromium.org/luci/common/errors"
)

// These errors are structural failures of a token stream. Tokenizers wrap them
// with position information; test for them with errors.Is.
var (
	// ErrTruncatedInput is returned when the data ends in the middle of an
	// element.
	ErrTruncatedInput = errors.New("truncated input")

	// ErrUnknownTag is returned when the binary stream contains a reserved
	// element id which this package doesn't know how to decode.
	ErrUnknownTag = errors.New("unknown tag")

	// ErrUnbalancedGroups is returned when a group is closed which was never
	// opened, or when the stream ends with groups still open.
	ErrUnbalancedGroups = errors.New("unbalanced groups")
)
