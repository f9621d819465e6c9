// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package ck3data implements IO routines for the container layer of CK3 save
// files: the 24 byte "SAV" header line, sniffing of the body encoding, and
// access to the zip archive which wraps compressed saves.
//
// A save has a fairly basic format:
//   - header line: "SAV" + version (2 chars) + kind (2 hex digits) + random
//     (8 chars) + metadata length (8 hex digits) + "\n".
//   - metadata: metadata length bytes holding the meta_data section in the
//     body's encoding.
//   - body: either the gamestate itself, or a zip archive with a "gamestate"
//     entry (and, in newer saves, a "meta" entry).
//
// Older saves and bare gamestate dumps omit the header line entirely.
package ck3data
