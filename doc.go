// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package ck3save reads Crusader Kings III save files and converts them to
// plaintext ("melting").
//
// A save comes in one of four encodings:
//   * plaintext, optionally behind a header line;
//   * a zip archive holding a plaintext gamestate;
//   * a zip archive holding a binary gamestate;
//   * a raw binary stream.
//
// The header line ("SAV" + 20 hex digits) carries the save version, the
// encoding kind, a random seed and the length of the inline metadata block.
//
// Binary saves name their fields with 16 bit tokens. The table mapping tokens
// to names is not shipped with the game and must be supplied by the caller
// (see ck3/ck3data/tokens.Resolver); tokens missing from it are rendered as
// 0x-prefixed hex ids.
//
// Packages:
//   * ck3/ck3data sniffs the container, parses the header line and reads the
//     zip archive.
//   * ck3/ck3data/tokens turns a body into a stream of events, for both the
//     binary and the text encodings.
//   * ck3/melt renders an event stream as canonical plaintext.
//   * ck3 ties these together behind File, and renders events as JSON.
//   * cmd/ck3melt is the command line tool.
package ck3save
