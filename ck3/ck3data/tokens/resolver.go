// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package tokens

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strconv"
	"strings"

	"go.chromium.org/luci/common/errors"
)

// Resolver maps binary token ids to their names.
//
// Implementations must be safe for concurrent use once constructed.
type Resolver interface {
	Resolve(id uint16) (string, bool)
}

// NoResolver resolves nothing. Every token is reported as unknown.
type NoResolver struct{}

// Resolve implements Resolver.
func (NoResolver) Resolve(uint16) (string, bool) { return "", false }

// MapResolver resolves from an in-memory table.
type MapResolver map[uint16]string

// Resolve implements Resolver.
func (m MapResolver) Resolve(id uint16) (string, bool) {
	name, ok := m[id]
	return name, ok
}

// ParseResolver reads a token table made of "<id> <name>" lines. Ids may be
// decimal or 0x-prefixed hex. Blank lines and lines starting with '#' are
// ignored.
//
// A table without any entries yields NoResolver.
func ParseResolver(r io.Reader) (Resolver, error) {
	ret := MapResolver{}
	scn := bufio.NewScanner(r)
	lineNum := 0
	for scn.Scan() {
		lineNum++
		line := strings.TrimSpace(scn.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, errors.Reason("line %d: expected `<id> <name>`, got %q", lineNum, line).Err()
		}
		id, err := strconv.ParseUint(fields[0], 0, 16)
		if err != nil {
			return nil, errors.Annotate(err, "line %d: bad token id", lineNum).Err()
		}
		ret[uint16(id)] = fields[1]
	}
	if err := scn.Err(); err != nil {
		return nil, errors.Annotate(err, "reading token table").Err()
	}
	if len(ret) == 0 {
		return NoResolver{}, nil
	}
	return ret, nil
}

// LoadResolver reads a token table from path. An empty path, or a file with
// no entries, yields NoResolver.
func LoadResolver(path string) (Resolver, error) {
	if path == "" {
		return NoResolver{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Annotate(err, "loading token table %q", path).Err()
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return NoResolver{}, nil
	}
	return ParseResolver(bytes.NewReader(data))
}

func resolveName(r Resolver, id uint16) (string, bool) {
	if r == nil {
		return "", false
	}
	return r.Resolve(id)
}
