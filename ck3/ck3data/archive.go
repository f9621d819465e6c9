// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ck3data

import (
	"bytes"
	"io"
	"math"

	"github.com/klauspost/compress/zip"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/iotools"
)

// Names of the archive entries in a compressed save.
const (
	EntryGamestate = "gamestate"
	EntryMeta      = "meta"
)

// Entry describes one file in the archive, as declared by its directory.
type Entry struct {
	Name string

	// DeclaredSize is the uncompressed size claimed by the archive. It's not
	// trustworthy until the entry has actually been inflated.
	DeclaredSize   uint64
	CompressedSize uint64
	Method         uint16
}

// maxDeflateRatio bounds how far a DEFLATE stream can expand.
const maxDeflateRatio = 1032

// Archive is the zip archive embedded in a compressed save.
type Archive struct {
	zr      *zip.Reader
	size    uint64
	entries map[string]*zip.File
}

// OpenArchive reads the zip directory out of data, which is the whole save
// (header line and inline metadata included). No entry is inflated.
func OpenArchive(data []byte, d Decompressor) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Annotate(ErrArchiveCorrupt, "reading zip directory: %s", err).Err()
	}
	if err := d.register(zr); err != nil {
		return nil, err
	}
	ret := &Archive{zr: zr, size: uint64(len(data)), entries: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		ret.entries[f.Name] = f
	}
	return ret, nil
}

// Has returns true iff the archive has an entry with the given name.
func (a *Archive) Has(name string) bool {
	_, ok := a.entries[name]
	return ok
}

func (a *Archive) file(name string) (*zip.File, error) {
	f, ok := a.entries[name]
	if !ok {
		return nil, errors.Annotate(ErrArchiveCorrupt, "missing entry %q", name).Err()
	}
	return f, nil
}

// Entry returns the directory information for name.
func (a *Archive) Entry(name string) (Entry, error) {
	f, err := a.file(name)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		Name:           f.Name,
		DeclaredSize:   f.UncompressedSize64,
		CompressedSize: f.CompressedSize64,
		Method:         f.Method,
	}, nil
}

// Entries returns the directory information for every entry.
func (a *Archive) Entries() []Entry {
	ret := make([]Entry, 0, len(a.zr.File))
	for _, f := range a.zr.File {
		e, _ := a.Entry(f.Name)
		ret = append(ret, e)
	}
	return ret
}

// DeclaredSize returns the uncompressed size claimed for name, without
// inflating anything.
func (a *Archive) DeclaredSize(name string) (uint64, error) {
	e, err := a.Entry(name)
	return e.DeclaredSize, err
}

// Open returns a reader over the inflated contents of name. The reader yields
// at most one byte more than the declared size, so that an overlong stream can
// be detected without inflating all of it.
func (a *Archive) Open(name string) (io.ReadCloser, error) {
	f, err := a.file(name)
	if err != nil {
		return nil, err
	}
	if err := a.vet(f); err != nil {
		return nil, err
	}
	rc, err := f.Open()
	if err != nil {
		return nil, errors.Annotate(ErrArchiveCorrupt, "opening entry %q: %s", name, err).Err()
	}
	return readCloseHook{
		io.LimitReader(rc, int64(f.UncompressedSize64)+1),
		rc.Close,
	}, nil
}

// vet rejects directory sizes which the archive's data can't back: a compressed
// size larger than the archive, or a declared size no stream of that length
// could inflate to.
func (a *Archive) vet(f *zip.File) error {
	if f.CompressedSize64 > a.size {
		return errors.Annotate(ErrArchiveCorrupt, "entry %q claims %d compressed bytes in a %d byte archive",
			f.Name, f.CompressedSize64, a.size).Err()
	}
	limit := uint64(math.MaxInt64 - 1)
	switch f.Method {
	case zip.Store:
		limit = f.CompressedSize64
	case zip.Deflate:
		limit = f.CompressedSize64*maxDeflateRatio + 64
	}
	if f.UncompressedSize64 > limit {
		return errors.Annotate(ErrArchiveCorrupt, "entry %q declares %d bytes from %d compressed",
			f.Name, f.UncompressedSize64, f.CompressedSize64).Err()
	}
	return nil
}

// Decompress inflates name, appending it to sink, and returns the extended
// slice. sink may be nil.
//
// Decompress reserves room for DeclaredSize in sink up front. Declared sizes
// beyond what the compressed data could inflate to are ErrArchiveCorrupt, so
// the reservation is bounded by the size of the archive.
func (a *Archive) Decompress(name string, sink []byte) ([]byte, error) {
	declared, err := a.DeclaredSize(name)
	if err != nil {
		return sink, err
	}
	rc, err := a.Open(name)
	if err != nil {
		return sink, err
	}
	defer rc.Close()

	buf := bytes.NewBuffer(sink)
	buf.Grow(int(declared))
	cr := &iotools.CountingReader{Reader: rc}
	if _, err := buf.ReadFrom(cr); err != nil {
		if errors.Is(err, zip.ErrChecksum) {
			return sink, errors.Annotate(ErrArchiveCorrupt, "entry %q: %s", name, err).Err()
		}
		return sink, errors.Annotate(ErrDecompressionFailed, "entry %q after %d bytes: %s", name, cr.Count, err).Err()
	}
	if uint64(cr.Count) != declared {
		return sink, errors.Annotate(ErrDecompressionFailed,
			"entry %q inflated to %d bytes, declared %d", name, cr.Count, declared).Err()
	}
	return buf.Bytes(), nil
}
