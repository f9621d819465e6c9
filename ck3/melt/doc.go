// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package melt re-emits a token stream as plaintext script, the form the game
// writes for non-ironman saves.
//
// The input is any tokens.EventSource, so binary and text bodies melt the same
// way. Melting text is how plaintext saves are normalized: the output of Melt
// always melts to itself.
package melt
