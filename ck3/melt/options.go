// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package melt

import (
	"github.com/rakaly/ck3save/ck3/ck3data"
)

type optionData struct {
	preserveIronman bool
	strict          bool

	sink     []byte
	haveSink bool

	header *ck3data.SaveHeader
}

// Option configures a Melter.
type Option func(*optionData)

// PreserveIronmanFields keeps the `ironman` and `ironman_manager` fields,
// which are dropped by default because they mean nothing to a plaintext save.
func PreserveIronmanFields(keep bool) Option {
	return func(o *optionData) {
		o.preserveIronman = keep
	}
}

// Strict makes Melt fail with ErrStrictResolutionFailed on the first token id
// the Resolver can't name.
func Strict(strict bool) Option {
	return func(o *optionData) {
		o.strict = strict
	}
}

// Into makes Melt write into buf (from buf[:0]) instead of allocating. If buf
// is too small the output outgrows it, and Output.Owned reports that.
//
// Given to New, the Melter keeps buf and reuses it for every call. Given to
// Melt, it only applies to that call.
func Into(buf []byte) Option {
	return func(o *optionData) {
		o.sink = buf[:0]
		o.haveSink = true
	}
}

// WithHeader makes Melt start the output with h's header line, rewritten to
// declare a plaintext body and the length of the melted metadata.
func WithHeader(h ck3data.SaveHeader) Option {
	return func(o *optionData) {
		o.header = &h
	}
}
