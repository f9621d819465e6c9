// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package tokens

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestScalar(t *testing.T) {
	t.Parallel()

	Convey("Scalar", t, func() {
		Convey("Text", func() {
			So(Bool(true).Text(), ShouldEqual, "yes")
			So(Bool(false).Text(), ShouldEqual, "no")
			So(I32(-7).Text(), ShouldEqual, "-7")
			So(U64(18446744073709551615).Text(), ShouldEqual, "18446744073709551615")
			So(F32(4).Text(), ShouldEqual, "4")
			So(F32(0.25).Text(), ShouldEqual, "0.25")
			So(F64(4, 3).Text(), ShouldEqual, "4")
			So(F64(1.5, 5).Text(), ShouldEqual, "1.5")
			So(F64(-0.0001, 3).Text(), ShouldEqual, "0")
			So(F64Alt(251.25).Text(), ShouldEqual, "251.25")
			So(Unquoted("abc").Text(), ShouldEqual, "abc")
			So(DateScalar(Date{867, 1, 1}).Text(), ShouldEqual, "867.1.1")
			So(ColorScalar(Color{R: 1, G: 2, B: 3}).Text(), ShouldEqual, "rgb { 1 2 3 }")
			So(ColorScalar(Color{R: 1, G: 2, B: 3, A: 4, HasAlpha: true}).Text(), ShouldEqual, "rgb { 1 2 3 4 }")
			So(ColorScalar(Color{Model: ModelHSV, HSV: [3]float64{0.5, 0.25, 1}}).Text(), ShouldEqual, "hsv { 0.5 0.25 1 }")
		})

		Convey("quoting", func() {
			So(Quoted(`a"b`).Text(), ShouldEqual, `"a\"b"`)
			So(Quoted(`c:\dir`).Text(), ShouldEqual, `"c:\\dir"`)
			So(Unescape(`a\"b`), ShouldEqual, `a"b`)
			So(Unescape(`a\\b`), ShouldEqual, `a\b`)
			So(Unescape(`a\nb`), ShouldEqual, `a\nb`)
			So(Unescape(Escape(`x\"y\\z`)), ShouldEqual, `x\"y\\z`)
		})

		Convey("Canonical", func() {
			So(F64(4, 5).Canonical(), ShouldEqual, I64(4).Canonical())
			So(F64(0.1, 3).Canonical(), ShouldEqual, F64(0.1, -1).Canonical())
			So(Unquoted("yes").Canonical(), ShouldEqual, Bool(true).Canonical())
			So(Quoted("yes").Canonical(), ShouldNotEqual, Unquoted("yes").Canonical())
		})

		Convey("AsInt64", func() {
			v, ok := F64(7, 3).AsInt64()
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, 7)
			_, ok = F64(7.5, 3).AsInt64()
			So(ok, ShouldBeFalse)
			_, ok = Quoted("7").AsInt64()
			So(ok, ShouldBeFalse)
		})
	})
}

func TestFloatTable(t *testing.T) {
	t.Parallel()

	Convey("FloatTable", t, func() {
		Convey("epochs", func() {
			So(DefaultFloatTable.Epoch(0).MinVersion, ShouldEqual, 0)
			So(DefaultFloatTable.Epoch(5).MinVersion, ShouldEqual, 0)
			So(DefaultFloatTable.Epoch(6).MinVersion, ShouldEqual, 6)
			So(DefaultFloatTable.Epoch(99).MinVersion, ShouldEqual, 6)
			So(DefaultFloatTable.Epoch(-1).MinVersion, ShouldEqual, 0)
		})

		Convey("layouts", func() {
			early := DefaultFloatTable.Epoch(3)
			So(early.Layout("gold", false), ShouldEqual, LayoutMilli)
			So(early.Layout("gold", true), ShouldEqual, LayoutQ4915)
			So(early.Layout("budget_reserved", false), ShouldEqual, LayoutQ4915)
			So(early.Layout("", false), ShouldEqual, LayoutMilli)

			late := DefaultFloatTable.Epoch(7)
			So(late.Layout("gold", true), ShouldEqual, LayoutFixed5)
			So(late.Layout("budget_reserved", false), ShouldEqual, LayoutFixed5)
		})

		Convey("decoding", func() {
			So(LayoutQ4915.Decode(8232960).Float, ShouldEqual, 251.25)
			So(LayoutQ4915.Decode(49414).Float, ShouldEqual, 1.50799)
			So(LayoutQ4915.Decode(-11468800).Float, ShouldEqual, -350)
			So(LayoutQ4915.Decode(-11468800).Text(), ShouldEqual, "-350")
			So(LayoutQ4915.Decode(49414).Kind, ShouldEqual, KindF64Alt)

			So(LayoutMilli.Decode(1500).Text(), ShouldEqual, "1.5")
			So(LayoutMilli.Decode(4000).Text(), ShouldEqual, "4")
			So(LayoutMilli.Decode(-1).Text(), ShouldEqual, "-0.001")

			So(LayoutFixed5.Decode(150000).Text(), ShouldEqual, "1.5")
			So(LayoutFixed5.Decode(400000).Text(), ShouldEqual, "4")
			So(LayoutFixed5.Decode(-12345).Text(), ShouldEqual, "-0.12345")
		})

		Convey("unquoted keys", func() {
			So(DefaultFloatTable.Epoch(3).UnquoteKeys.Has("localization_key"), ShouldBeFalse)
			So(DefaultFloatTable.Epoch(6).UnquoteKeys.Has("localization_key"), ShouldBeTrue)
			So(DefaultFloatTable.Epoch(6).UnquoteKeys.Has("name_list"), ShouldBeTrue)
		})
	})
}
