// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package melt

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"go.chromium.org/luci/common/errors"

	"github.com/rakaly/ck3save/ck3/ck3data"
	"github.com/rakaly/ck3save/ck3/ck3data/tokens"

	. "github.com/smartystreets/goconvey/convey"
	. "go.chromium.org/luci/common/testing/assertions"
)

const (
	tokMetaData uint16 = 0x3000 + iota
	tokVersion
	tokDate
	tokLevels
	tokSeed
	tokVassalPower
	tokLanguages
	tokIronman
	tokFlag
	tokColor
	tokList
	tokGold

	tokUnmapped uint16 = 0x3fff
)

var resolver = tokens.MapResolver{
	tokMetaData:                 "meta_data",
	tokens.SaveGameVersionToken: "save_game_version",
	tokVersion:                  "version",
	tokDate:                     "date",
	tokLevels:                   "levels",
	tokSeed:                     "seed",
	tokVassalPower:              "vassal_power_value",
	tokLanguages:                "languages",
	tokIronman:                  "ironman",
	tokFlag:                     "flag",
	tokColor:                    "color",
	tokList:                     "list",
	tokGold:                     "gold",
}

func meltText(text string, opts ...Option) string {
	out, err := New(opts...).Melt(tokens.NewTextTokenizer([]byte(text)), nil)
	So(err, ShouldBeNil)
	return string(out.Data)
}

func sampleBinary() []byte {
	w := &tokens.BinaryWriter{}
	d, _ := tokens.NewDate(1066, 9, 15)
	w.Field(tokMetaData).Open().
		Field(tokens.SaveGameVersionToken).I32(3).
		Field(tokVersion).Quoted("1.4.4").
		Field(tokDate).Date(d).
		Field(tokIronman).Bool(true).
		Close()
	w.Field(tokSeed).I32(53138160)
	w.Field(tokVassalPower).F64(49152)
	w.Field(tokGold).F64(4000)
	w.Field(tokLevels).Open().
		I32(10).
		I32(0).Equal().I32(1).
		I32(1).Equal().I32(2).
		Close()
	w.Field(tokLanguages).Open().Quoted("english").Quoted("french").Close()
	w.Field(tokColor).RGB(10, 20, 30)
	w.Field(tokList).Open().
		Open().U32(1).U32(2).Close().
		Open().Field(tokFlag).Token(tokUnmapped).Close().
		Open().Close().
		Close()
	w.Field(tokUnmapped).Quoted(`say "hi"`)
	return w.Bytes()
}

func TestMelt(t *testing.T) {
	t.Parallel()

	Convey("Melt", t, func() {
		Convey("binary", func() {
			data := sampleBinary()
			out, err := New(PreserveIronmanFields(true)).Melt(tokens.NewBinaryTokenizer(data, resolver), resolver)
			So(err, ShouldBeNil)
			So(string(out.Data), ShouldEqual, strings.Join([]string{
				"meta_data={",
				"\tsave_game_version=3",
				"\tversion=\"1.4.4\"",
				"\tdate=1066.9.15",
				"\tironman=yes",
				"}",
				"seed=53138160",
				"vassal_power_value=1.5",
				"gold=4",
				"levels={ 10 0=1 1=2 }",
				"languages={ english french }",
				"color=rgb { 10 20 30 }",
				"list={",
				"\t{ 1 2 }",
				"\t{",
				"\t\tflag=0x3fff",
				"\t}",
				"\t{ }",
				"}",
				`0x3fff="say \"hi\""`,
				"",
			}, "\n"))
			So(out.UnknownTokens(), ShouldResemble, []uint16{tokUnmapped})
			So(out.Owned, ShouldBeTrue)

			Convey("is structurally equivalent to its text", func() {
				want, err := tokens.CanonicalForm(tokens.NewBinaryTokenizer(data, resolver), resolver)
				So(err, ShouldBeNil)
				got, err := tokens.CanonicalForm(tokens.NewTextTokenizer(out.Data), nil)
				So(err, ShouldBeNil)
				So(got, ShouldResemble, want)
			})

			Convey("melts to itself", func() {
				So(meltText(string(out.Data), PreserveIronmanFields(true)), ShouldEqual, string(out.Data))
			})
		})

		Convey("ironman fields", func() {
			text := "meta_data={ ironman=yes version=\"1.0\" }\nironman_manager={ a=b c={ 1 2 } }\nx=1\n"
			So(meltText(text), ShouldEqual, "meta_data={\n\tversion=\"1.0\"\n}\nx=1\n")
			So(meltText(text, PreserveIronmanFields(true)), ShouldContainSubstring, "ironman_manager={")
		})

		Convey("text is normalized and idempotent", func() {
			text := strings.Join([]string{
				"# a comment",
				"a   =  { b=1 c={1    2}",
				"  d={}",
				"e={{1}{x=y}} }",
				"trigger = { age >= 16 has_trait ?= brave }",
				"list={ { 1 } a=b }",
				"f=-0.500",
				"name=\"a\\\"b\"",
			}, "\n")
			once := meltText(text)
			So(once, ShouldEqual, strings.Join([]string{
				"a={",
				"\tb=1",
				"\tc={ 1 2 }",
				"\td={ }",
				"\te={",
				"\t\t{ 1 }",
				"\t\t{",
				"\t\t\tx=y",
				"\t\t}",
				"\t}",
				"}",
				"trigger={",
				"\tage>=16",
				"\thas_trait?=brave",
				"}",
				"list={",
				"\t{ 1 }",
				"\ta=b",
				"}",
				"f=-0.5",
				`name="a\"b"`,
				"",
			}, "\n"))
			So(meltText(once), ShouldEqual, once)
		})

		Convey("escapes round trip", func() {
			So(meltText(`key="a\"b"`), ShouldEqual, `key="a\"b"`+"\n")
			So(meltText(`key="back\\slash"`), ShouldEqual, `key="back\\slash"`+"\n")
		})

		Convey("whole floats have no decimal point", func() {
			w := &tokens.BinaryWriter{}
			w.Field(tokGold).F64(4000).Field(tokFlag).F32(4)
			out, err := New().Melt(tokens.NewBinaryTokenizer(w.Bytes(), resolver), resolver)
			So(err, ShouldBeNil)
			So(string(out.Data), ShouldEqual, "gold=4\nflag=4\n")
			So(meltText("x=4.000"), ShouldEqual, "x=4\n")
		})

		Convey("hybrid groups keep their shape", func() {
			So(meltText("levels={ 10 0=1 1=2 }"), ShouldEqual, "levels={ 10 0=1 1=2 }\n")
		})

		Convey("one unresolved token among resolved ones", func() {
			w := &tokens.BinaryWriter{}
			var fields []uint16
			for i := 0; i < 9; i++ {
				id := 0x4000 + uint16(i)
				fields = append(fields, id)
				w.Field(id).I32(int32(i + 1))
			}
			w.Field(tokUnmapped).I32(7)

			r := tokens.MapResolver{}
			for i, id := range fields {
				r[id] = fmt.Sprintf("field%d", i)
			}
			out, err := New().Melt(tokens.NewBinaryTokenizer(w.Bytes(), r), r)
			So(err, ShouldBeNil)

			lines := strings.Split(strings.TrimSuffix(string(out.Data), "\n"), "\n")
			So(lines, ShouldHaveLength, 10)
			for i := 0; i < 9; i++ {
				So(lines[i], ShouldEqual, fmt.Sprintf("field%d=%d", i, i+1))
			}
			So(lines[9], ShouldEqual, "0x3fff=7")
			So(out.Unknown, ShouldHaveLength, 1)
		})

		Convey("an empty token table is no token table", func() {
			empty, err := tokens.ParseResolver(strings.NewReader("# nothing here\n"))
			So(err, ShouldBeNil)

			data := sampleBinary()
			a, err := New().Melt(tokens.NewBinaryTokenizer(data, empty), empty)
			So(err, ShouldBeNil)
			b, err := New().Melt(tokens.NewBinaryTokenizer(data, nil), nil)
			So(err, ShouldBeNil)
			So(a.Data, ShouldResemble, b.Data)
			So(a.UnknownTokens(), ShouldResemble, b.UnknownTokens())
			So(a.UnknownTokens(), ShouldContain, tokMetaData)
		})

		Convey("header", func() {
			h := ck3data.SaveHeader{Version: "01", Kind: ck3data.KindBinaryZip, Random: "12345678", MetadataLen: 999}
			out, err := New(WithHeader(h)).Melt(tokens.NewBinaryTokenizer(sampleBinary(), resolver), resolver)
			So(err, ShouldBeNil)

			got, err := ck3data.ParseHeader(out.Data)
			So(err, ShouldBeNil)
			So(got.Kind, ShouldEqual, ck3data.KindText)
			So(got.Random, ShouldEqual, "12345678")

			body := out.Data[ck3data.HeaderLen:]
			meta := "meta_data={\n\tsave_game_version=3\n\tversion=\"1.4.4\"\n\tdate=1066.9.15\n}"
			So(got.MetadataLen, ShouldEqual, len(meta))
			So(string(body[:got.MetadataLen]), ShouldEqual, meta)

			Convey("and melting the result keeps it", func() {
				again, err := New(WithHeader(got)).Melt(tokens.NewTextTokenizer(body), nil)
				So(err, ShouldBeNil)
				So(again.Data, ShouldResemble, out.Data)
			})
		})

		Convey("strict", func() {
			_, err := New(Strict(true)).Melt(tokens.NewBinaryTokenizer(sampleBinary(), resolver), resolver)
			So(errors.Is(err, ErrStrictResolutionFailed), ShouldBeTrue)
			So(err, ShouldErrLike, "0x3fff")

			_, err = New(Strict(true)).Melt(tokens.NewTextTokenizer([]byte("a=b")), nil)
			So(err, ShouldBeNil)
		})

		Convey("into a caller buffer", func() {
			buf := make([]byte, 0, 1024)
			out, err := New(Into(buf)).Melt(tokens.NewTextTokenizer([]byte("a=b")), nil)
			So(err, ShouldBeNil)
			So(string(out.Data), ShouldEqual, "a=b\n")
			So(out.Owned, ShouldBeFalse)
			So(&out.Data[0], ShouldPointTo, &buf[:1][0])

			small := make([]byte, 0, 2)
			out, err = New(Into(small)).Melt(tokens.NewTextTokenizer([]byte("a=b")), nil)
			So(err, ShouldBeNil)
			So(string(out.Data), ShouldEqual, "a=b\n")
			So(out.Owned, ShouldBeTrue)
		})

		Convey("per-call buffers on a shared Melter", func() {
			m := New(Strict(false))
			inputs := []string{"a=b", "c={ 1 2 }", "d=e f=g"}
			bufs := make([][]byte, len(inputs))
			outs := make([]*Output, len(inputs))
			errs := make([]error, len(inputs))

			var wg sync.WaitGroup
			for i := range inputs {
				i := i
				bufs[i] = make([]byte, 0, 1024)
				wg.Add(1)
				go func() {
					defer wg.Done()
					outs[i], errs[i] = m.Melt(tokens.NewTextTokenizer([]byte(inputs[i])), nil, Into(bufs[i]))
				}()
			}
			wg.Wait()

			for i, want := range []string{"a=b\n", "c={ 1 2 }\n", "d=e\nf=g\n"} {
				So(errs[i], ShouldBeNil)
				So(string(outs[i].Data), ShouldEqual, want)
				So(outs[i].Owned, ShouldBeFalse)
				So(&outs[i].Data[0], ShouldPointTo, &bufs[i][:1][0])
			}

			out, err := m.Melt(tokens.NewTextTokenizer([]byte("a=b")), nil)
			So(err, ShouldBeNil)
			So(out.Owned, ShouldBeTrue)
		})

		Convey("malformed streams", func() {
			Convey("unbalanced", func() {
				src := tokens.SliceSource{tokens.ScalarKey(tokens.Unquoted("a")), tokens.OpenEvent(false)}
				_, err := New().Melt(&src, nil)
				So(errors.Is(err, tokens.ErrUnbalancedGroups), ShouldBeTrue)

				src = tokens.SliceSource{tokens.CloseEvent(false)}
				_, err = New().Melt(&src, nil)
				So(errors.Is(err, tokens.ErrUnbalancedGroups), ShouldBeTrue)
			})

			Convey("dangling key", func() {
				src := tokens.SliceSource{tokens.ScalarKey(tokens.Unquoted("a"))}
				_, err := New().Melt(&src, nil)
				So(errors.Is(err, tokens.ErrTruncatedInput), ShouldBeTrue)
			})

			Convey("tokenizer errors", func() {
				_, err := New().Melt(tokens.NewTextTokenizer([]byte("a={ b=1")), nil)
				So(errors.Is(err, tokens.ErrUnbalancedGroups), ShouldBeTrue)
			})

			Convey("bad tags after a key", func() {
				bin := (&tokens.BinaryWriter{}).Field(tokGold).Token(0x0005).Bytes()
				_, err := New().Melt(tokens.NewBinaryTokenizer(bin, resolver), resolver)
				So(errors.Is(err, tokens.ErrUnknownTag), ShouldBeTrue)

				bin = (&tokens.BinaryWriter{}).Field(tokGold).Open().Field(tokGold).Token(0x0005).Bytes()
				_, err = New().Melt(tokens.NewBinaryTokenizer(bin, resolver), resolver)
				So(errors.Is(err, tokens.ErrUnknownTag), ShouldBeTrue)

				_, err = New().Melt(tokens.NewTextTokenizer([]byte("a=!b")), nil)
				So(errors.Is(err, tokens.ErrUnknownTag), ShouldBeTrue)

				_, err = New(PreserveIronmanFields(false)).Melt(tokens.NewTextTokenizer([]byte("ironman=!b")), nil)
				So(errors.Is(err, tokens.ErrUnknownTag), ShouldBeTrue)
			})
		})
	})
}
