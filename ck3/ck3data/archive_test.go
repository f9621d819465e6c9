// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ck3data

import (
	"bytes"
	"hash/crc32"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"go.chromium.org/luci/common/errors"

	. "github.com/smartystreets/goconvey/convey"
	. "go.chromium.org/luci/common/testing/assertions"
)

type testEntry struct {
	name string
	data []byte

	// overrides of the honest directory values, when non-zero.
	size uint64
	crc  uint32
	raw  []byte
}

func deflate(data []byte) []byte {
	buf := &bytes.Buffer{}
	w, err := flate.NewWriter(buf, 9)
	if err != nil {
		panic(err)
	}
	if _, err := w.Write(data); err != nil {
		panic(err)
	}
	if err := w.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func makeZip(entries ...testEntry) []byte {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, e := range entries {
		compressed := e.raw
		if compressed == nil {
			compressed = deflate(e.data)
		}
		fh := &zip.FileHeader{
			Name:               e.name,
			Method:             zip.Deflate,
			CRC32:              crc32.ChecksumIEEE(e.data),
			CompressedSize64:   uint64(len(compressed)),
			UncompressedSize64: uint64(len(e.data)),
		}
		if e.size != 0 {
			fh.UncompressedSize64 = e.size
		}
		if e.crc != 0 {
			fh.CRC32 = e.crc
		}
		w, err := zw.CreateRaw(fh)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write(compressed); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func makeSave(kind Kind, meta []byte, body []byte) []byte {
	h := SaveHeader{Version: "01", Kind: kind, Random: "00000000", MetadataLen: uint64(len(meta))}
	ret := h.Append(nil)
	ret = append(ret, meta...)
	return append(ret, body...)
}

func TestArchive(t *testing.T) {
	t.Parallel()

	gamestate := bytes.Repeat([]byte("hello world! "), 1000)
	meta := []byte("meta_data={ version=\"1.5.0\" }\n")

	Convey("Archive", t, func() {
		for _, d := range []Decompressor{DecompressorKlauspost, DecompressorStdlib} {
			d := d
			Convey(d.String(), func() {
				data := makeSave(KindTextZip, meta, makeZip(
					testEntry{name: EntryMeta, data: meta},
					testEntry{name: EntryGamestate, data: gamestate},
				))
				ar, err := OpenArchive(data, d)
				So(err, ShouldBeNil)
				So(ar.Has(EntryMeta), ShouldBeTrue)
				So(ar.Has("nope"), ShouldBeFalse)

				Convey("declared size without inflating", func() {
					size, err := ar.DeclaredSize(EntryGamestate)
					So(err, ShouldBeNil)
					So(size, ShouldEqual, len(gamestate))

					e, err := ar.Entry(EntryGamestate)
					So(err, ShouldBeNil)
					So(e.CompressedSize, ShouldBeLessThan, len(gamestate))
					So(e.Method, ShouldEqual, zip.Deflate)
					So(ar.Entries(), ShouldHaveLength, 2)
				})

				Convey("decompress", func() {
					out, err := ar.Decompress(EntryGamestate, nil)
					So(err, ShouldBeNil)
					So(out, ShouldResemble, gamestate)
				})

				Convey("decompress appends to the sink", func() {
					sink := make([]byte, 0, len(meta)+len(gamestate))
					sink = append(sink, "prefix:"...)
					out, err := ar.Decompress(EntryMeta, sink)
					So(err, ShouldBeNil)
					So(string(out), ShouldEqual, "prefix:"+string(meta))
					So(&out[0], ShouldPointTo, &sink[0])
				})

				Convey("missing entry", func() {
					_, err := ar.Decompress("nope", nil)
					So(errors.Is(err, ErrArchiveCorrupt), ShouldBeTrue)
					So(err, ShouldErrLike, `missing entry "nope"`)

					_, err = ar.DeclaredSize("nope")
					So(errors.Is(err, ErrArchiveCorrupt), ShouldBeTrue)
				})
			})
		}

		Convey("bad archives", func() {
			Convey("not a zip", func() {
				_, err := OpenArchive([]byte("hello"), DecompressorKlauspost)
				So(errors.Is(err, ErrArchiveCorrupt), ShouldBeTrue)
			})

			Convey("bad decompressor", func() {
				_, err := OpenArchive(makeZip(testEntry{name: EntryGamestate, data: gamestate}), Decompressor(0))
				So(err, ShouldErrLike, "unknown decompressor")
			})

			Convey("checksum", func() {
				ar, err := OpenArchive(makeZip(testEntry{name: EntryGamestate, data: gamestate, crc: 1234}), DecompressorKlauspost)
				So(err, ShouldBeNil)
				_, err = ar.Decompress(EntryGamestate, nil)
				So(errors.Is(err, ErrArchiveCorrupt), ShouldBeTrue)
			})

			Convey("malformed deflate stream", func() {
				ar, err := OpenArchive(makeZip(testEntry{
					name: EntryGamestate, data: gamestate, raw: []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
				}), DecompressorKlauspost)
				So(err, ShouldBeNil)
				_, err = ar.Decompress(EntryGamestate, nil)
				So(errors.Is(err, ErrDecompressionFailed), ShouldBeTrue)
			})

			Convey("inflates past the declared size", func() {
				ar, err := OpenArchive(makeZip(testEntry{name: EntryGamestate, data: gamestate, size: 10}), DecompressorStdlib)
				So(err, ShouldBeNil)
				_, err = ar.Decompress(EntryGamestate, nil)
				So(errors.Is(err, ErrDecompressionFailed), ShouldBeTrue)
			})

			Convey("inflates short of the declared size", func() {
				ar, err := OpenArchive(makeZip(testEntry{name: EntryGamestate, data: gamestate, size: uint64(len(gamestate)) + 100}), DecompressorKlauspost)
				So(err, ShouldBeNil)
				_, err = ar.Decompress(EntryGamestate, nil)
				So(errors.Is(err, ErrDecompressionFailed), ShouldBeTrue)
			})

			Convey("declares more than the stream could inflate to", func() {
				for _, size := range []uint64{1 << 62, uint64(len(gamestate)) * maxDeflateRatio} {
					ar, err := OpenArchive(makeZip(testEntry{name: EntryGamestate, data: gamestate, size: size}), DecompressorKlauspost)
					if err == nil {
						_, err = ar.Decompress(EntryGamestate, nil)
					}
					So(errors.Is(err, ErrArchiveCorrupt), ShouldBeTrue)
				}
			})

			Convey("stored entries can't grow", func() {
				buf := &bytes.Buffer{}
				zw := zip.NewWriter(buf)
				w, err := zw.CreateRaw(&zip.FileHeader{
					Name:               EntryGamestate,
					Method:             zip.Store,
					CRC32:              crc32.ChecksumIEEE([]byte("a=b")),
					CompressedSize64:   3,
					UncompressedSize64: 3000,
				})
				So(err, ShouldBeNil)
				_, err = w.Write([]byte("a=b"))
				So(err, ShouldBeNil)
				So(zw.Close(), ShouldBeNil)

				ar, err := OpenArchive(buf.Bytes(), DecompressorKlauspost)
				So(err, ShouldBeNil)
				_, err = ar.Decompress(EntryGamestate, nil)
				So(errors.Is(err, ErrArchiveCorrupt), ShouldBeTrue)
			})
		})
	})
}
