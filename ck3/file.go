// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ck3

import (
	"context"
	"io"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/rakaly/ck3save/ck3/ck3data"
	"github.com/rakaly/ck3save/ck3/ck3data/tokens"
	"github.com/rakaly/ck3save/ck3/melt"
)

// ErrEntryTooLarge is returned when an archive entry declares more bytes than
// MaxEntrySize allows.
var ErrEntryTooLarge = errors.New("archive entry too large")

type openOptionData struct {
	decompressor ck3data.Decompressor
	sizeCheck    func(entry string, declared uint64) error
}

// OpenOption functions can be supplied to the Open function.
type OpenOption func(*openOptionData)

// WithDecompressor picks the DEFLATE implementation used for archived saves.
// The default is ck3data.DecompressorKlauspost.
func WithDecompressor(d ck3data.Decompressor) OpenOption {
	return func(o *openOptionData) {
		o.decompressor = d
	}
}

// WithSizeCheck installs a callback which sees the declared uncompressed size
// of every archive entry before room for it is allocated. Returning an error
// aborts the read.
func WithSizeCheck(fn func(entry string, declared uint64) error) OpenOption {
	return func(o *openOptionData) {
		o.sizeCheck = fn
	}
}

// MaxEntrySize rejects archive entries which declare more than n uncompressed
// bytes with ErrEntryTooLarge. It replaces any WithSizeCheck callback.
func MaxEntrySize(n uint64) OpenOption {
	return WithSizeCheck(func(entry string, declared uint64) error {
		if declared > n {
			return errors.Annotate(ErrEntryTooLarge, "limit is %d bytes", n).Err()
		}
		return nil
	})
}

// File is an opened save. It keeps a reference to the data passed to Open.
//
// A File may be used concurrently.
type File struct {
	c  *ck3data.Container
	ar *ck3data.Archive

	opts openOptionData
}

// Open classifies data as a save. It reads the header line and the zip
// directory, if any, but inflates nothing.
func Open(data []byte, options ...OpenOption) (*File, error) {
	opts := openOptionData{decompressor: ck3data.DecompressorKlauspost}
	for _, o := range options {
		o(&opts)
	}
	if err := opts.decompressor.Valid(); err != nil {
		return nil, err
	}

	c, err := ck3data.Sniff(data)
	if err != nil {
		return nil, err
	}
	ret := &File{c: c, opts: opts}
	if c.Encoding.Archived() {
		if ret.ar, err = ck3data.OpenArchive(c.Body[c.ZipOffset:], opts.decompressor); err != nil {
			return nil, errors.Annotate(err, "opening %s save", c.Encoding).Err()
		}
		if !ret.ar.Has(ck3data.EntryGamestate) {
			return nil, errors.Annotate(ck3data.ErrArchiveCorrupt, "no %q entry", ck3data.EntryGamestate).Err()
		}
	}
	return ret, nil
}

// Encoding returns the encoding of the save's body.
func (f *File) Encoding() ck3data.Encoding {
	return f.c.Encoding
}

// Header returns the header line. ok is false for saves without one.
func (f *File) Header() (h ck3data.SaveHeader, ok bool) {
	if f.c.Header == nil {
		return
	}
	return *f.c.Header, true
}

// Archive returns the embedded zip archive, or nil if the save isn't
// archived.
func (f *File) Archive() *ck3data.Archive {
	return f.ar
}

// EntrySize returns the declared uncompressed size of an archive entry.
func (f *File) EntrySize(entry string) (uint64, error) {
	if f.ar == nil {
		return 0, errors.Reason("%s save has no archive", f.c.Encoding).Err()
	}
	return f.ar.DeclaredSize(entry)
}

// inflate vets and decompresses one archive entry into sink.
func (f *File) inflate(entry string, sink []byte) ([]byte, error) {
	declared, err := f.ar.DeclaredSize(entry)
	if err != nil {
		return sink, err
	}
	if f.opts.sizeCheck != nil {
		if err := f.opts.sizeCheck(entry, declared); err != nil {
			return sink, errors.Annotate(err, "entry %q declares %d bytes", entry, declared).Err()
		}
	}
	return f.ar.Decompress(entry, sink)
}

// Body returns the save's body: the gamestate entry for archived saves,
// appended to sink, or everything after the header line otherwise. In the
// latter case the returned slice aliases the data passed to Open and sink is
// unused.
func (f *File) Body(sink []byte) ([]byte, error) {
	if f.ar == nil {
		return f.c.Body, nil
	}
	return f.inflate(ck3data.EntryGamestate, sink)
}

func (f *File) tokenize(body []byte, r tokens.Resolver) tokens.EventSource {
	if f.c.Encoding.Binary() {
		return tokens.NewBinaryTokenizer(body, r)
	}
	return tokens.NewTextTokenizer(body)
}

// Tokens returns the event stream of the whole body.
func (f *File) Tokens(r tokens.Resolver) (tokens.EventSource, error) {
	body, err := f.Body(nil)
	if err != nil {
		return nil, err
	}
	return f.tokenize(body, r), nil
}

// Melt converts the save to plaintext. The header line, if any, is carried
// over and rewritten for the plaintext body.
//
// Plaintext saves are melted too, which normalizes their layout.
func (f *File) Melt(ctx context.Context, r tokens.Resolver, opts ...melt.Option) (*melt.Output, error) {
	body, err := f.Body(nil)
	if err != nil {
		return nil, errors.Annotate(err, "reading body").Err()
	}
	logging.Debugf(ctx, "melting %s save: %d byte body", f.c.Encoding, len(body))

	if h, ok := f.Header(); ok {
		opts = append([]melt.Option{melt.WithHeader(h)}, opts...)
	}
	out, err := melt.New(opts...).Melt(f.tokenize(body, r), r)
	if err != nil {
		return nil, errors.Annotate(err, "melting").Err()
	}
	if n := len(out.Unknown); n > 0 {
		logging.Warningf(ctx, "%d token(s) could not be resolved", n)
	}
	return out, nil
}

// Metadata returns the event stream of the save's metadata block only: the
// meta entry of an archive if there is one, else the block the header line
// declares. Saves which have neither carry their metadata at the start of the
// body, and yield the whole body.
//
// A declared length which cuts an element or a group short makes the stream
// fail with ck3data.ErrHeaderLengthMismatch.
func (f *File) Metadata(r tokens.Resolver) (tokens.EventSource, error) {
	if f.ar != nil && f.ar.Has(ck3data.EntryMeta) {
		meta, err := f.inflate(ck3data.EntryMeta, nil)
		if err != nil {
			return nil, err
		}
		return f.tokenize(meta, r), nil
	}

	meta, err := f.c.InlineMetadata()
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return f.Tokens(r)
	}
	return boundedSource{f.tokenize(meta, r)}, nil
}

// ParseMetadata decodes the metadata block into v, as Decode does.
func (f *File) ParseMetadata(r tokens.Resolver, v any) error {
	src, err := f.Metadata(r)
	if err != nil {
		return err
	}
	return Decode(src, r, v)
}

// boundedSource reports structural failures of a length-delimited block as a
// bad length.
type boundedSource struct {
	src tokens.EventSource
}

func (b boundedSource) Next() (tokens.Event, error) {
	ev, err := b.src.Next()
	if err != nil && err != io.EOF {
		if errors.Is(err, tokens.ErrTruncatedInput) || errors.Is(err, tokens.ErrUnbalancedGroups) {
			err = errors.Annotate(ck3data.ErrHeaderLengthMismatch, "metadata block: %s", err).Err()
		}
	}
	return ev, err
}
