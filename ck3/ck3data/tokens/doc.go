// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package tokens turns the body of a save (either the binary token encoding or
// the plaintext script dialect) into a common stream of structural Events.
//
// Both tokenizers implement EventSource, so consumers like the melter and the
// JSON bridge are written once against the Event model and never need to know
// which encoding produced it.
//
// Token ids in the binary encoding are opaque; their names are looked up
// through a Resolver that the caller supplies per call.
package tokens
