// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ck3data

import (
	"testing"

	"go.chromium.org/luci/common/errors"

	. "github.com/smartystreets/goconvey/convey"
	. "go.chromium.org/luci/common/testing/assertions"
)

func TestSniff(t *testing.T) {
	t.Parallel()

	meta := []byte("meta_data={\n\tversion=\"1.5.0\"\n}\n")
	binBody := []byte{0x00, 0x20, 0x01, 0x00, 0x0c, 0x00, 0x05, 0x00, 0x00, 0x00}

	Convey("Sniff", t, func() {
		Convey("headered", func() {
			Convey("text", func() {
				c, err := Sniff(makeSave(KindText, meta, []byte("date=1066.9.15\n")))
				So(err, ShouldBeNil)
				So(c.Encoding, ShouldEqual, EncodingPlainText)
				So(c.Header, ShouldNotBeNil)
				So(c.Header.MetadataLen, ShouldEqual, len(meta))

				inline, err := c.InlineMetadata()
				So(err, ShouldBeNil)
				So(inline, ShouldResemble, meta)
			})

			Convey("binary", func() {
				c, err := Sniff(makeSave(KindBinary, nil, binBody))
				So(err, ShouldBeNil)
				So(c.Encoding, ShouldEqual, EncodingRawBinary)
				So(c.Body, ShouldResemble, binBody)

				inline, err := c.InlineMetadata()
				So(err, ShouldBeNil)
				So(inline, ShouldBeNil)
			})

			Convey("archives", func() {
				zipped := makeZip(testEntry{name: EntryGamestate, data: binBody})
				for _, k := range []Kind{KindTextZip, KindBinaryZip, KindSplitText, KindSplitBinary} {
					c, err := Sniff(makeSave(k, meta, zipped))
					So(err, ShouldBeNil)
					So(c.Encoding, ShouldEqual, k.Encoding())
					So(c.ZipOffset, ShouldEqual, len(meta))
				}
			})

			Convey("archive found by searching", func() {
				data := makeSave(KindBinaryZip, nil, append([]byte("junk before the archive"),
					makeZip(testEntry{name: EntryGamestate, data: binBody})...))
				c, err := Sniff(data)
				So(err, ShouldBeNil)
				So(c.ZipOffset, ShouldEqual, len("junk before the archive"))
			})

			Convey("archive missing", func() {
				_, err := Sniff(makeSave(KindBinaryZip, meta, binBody))
				So(errors.Is(err, ErrUnrecognizedContainer), ShouldBeTrue)
				So(err, ShouldErrLike, "no zip archive found")
			})

			Convey("bad header line", func() {
				_, err := Sniff([]byte("SAV01ff9a3e1b4c000001d2\n"))
				So(errors.Is(err, ErrUnrecognizedContainer), ShouldBeTrue)
			})

			Convey("metadata length past the end", func() {
				h := SaveHeader{Version: "01", Kind: KindText, Random: "00000000", MetadataLen: 100}
				c, err := Sniff(append(h.Append(nil), "a=b\n"...))
				So(err, ShouldBeNil)
				_, err = c.InlineMetadata()
				So(errors.Is(err, ErrHeaderLengthMismatch), ShouldBeTrue)
			})
		})

		Convey("headerless", func() {
			Convey("binary", func() {
				c, err := Sniff(binBody)
				So(err, ShouldBeNil)
				So(c.Encoding, ShouldEqual, EncodingRawBinary)
				So(c.Header, ShouldBeNil)
			})

			Convey("text", func() {
				for _, s := range []string{"a=b", "\ufeffa=b", "\n\n  date=1066.9.15", "# comment\na=b"} {
					c, err := Sniff([]byte(s))
					So(err, ShouldBeNil)
					So(c.Encoding, ShouldEqual, EncodingPlainText)
				}
			})

			Convey("zip of binary", func() {
				c, err := Sniff(makeZip(
					testEntry{name: EntryMeta, data: binBody},
					testEntry{name: EntryGamestate, data: binBody},
				))
				So(err, ShouldBeNil)
				So(c.Encoding, ShouldEqual, EncodingBinaryInArchive)
				So(c.ZipOffset, ShouldEqual, 0)
			})

			Convey("zip of text", func() {
				c, err := Sniff(makeZip(testEntry{name: EntryGamestate, data: []byte("date=1066.9.15\n")}))
				So(err, ShouldBeNil)
				So(c.Encoding, ShouldEqual, EncodingTextInArchive)
			})

			Convey("zip without gamestate", func() {
				_, err := Sniff(makeZip(testEntry{name: "other", data: binBody}))
				So(errors.Is(err, ErrArchiveCorrupt), ShouldBeTrue)
			})
		})

		Convey("garbage", func() {
			for _, data := range [][]byte{nil, {}, {0xff, 0xfe}, []byte("   "), {0x80, 0x81, 0x82, 0x83}} {
				_, err := Sniff(data)
				So(errors.Is(err, ErrUnrecognizedContainer), ShouldBeTrue)
			}
		})
	})
}
