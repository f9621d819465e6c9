// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package ck3 opens Crusader Kings III saves of any encoding and turns them
// into plaintext, JSON, or Go values.
//
// A save is opened from memory with Open, which only classifies it. Archived
// bodies are inflated on demand, after their declared size has been offered to
// the WithSizeCheck callback.
//
// Binary saves name their fields with opaque token ids. Every operation that
// reads a binary body takes a tokens.Resolver; nil is allowed, in which case
// fields are named by their hex id.
package ck3
