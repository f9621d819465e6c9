// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package tokens

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies which member of the Scalar union is populated.
type Kind byte

// These are the kinds of Scalar.
const (
	KindBool Kind = iota + 1
	KindI32
	KindU32
	KindI64
	KindU64
	KindF32

	// KindF64 is a 64-bit float decoded with the standard fixed point layout
	// (or parsed from text).
	KindF64

	// KindF64Alt is a 64-bit float decoded with the alternate (Q49.15) layout.
	KindF64Alt

	KindQuoted
	KindUnquoted
	KindDate
	KindColor
)

var kindNames = map[Kind]string{
	KindBool:     "bool",
	KindI32:      "i32",
	KindU32:      "u32",
	KindI64:      "i64",
	KindU64:      "u64",
	KindF32:      "f32",
	KindF64:      "f64",
	KindF64Alt:   "f64alt",
	KindQuoted:   "quoted",
	KindUnquoted: "unquoted",
	KindDate:     "date",
	KindColor:    "color",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", byte(k))
}

// ColorModel is the header word in front of a color's channels.
type ColorModel byte

// These are the color models the game writes. Binary saves only use rgb.
const (
	ModelRGB ColorModel = iota
	ModelHSV
	ModelHSV360
)

var colorModels = map[string]ColorModel{"rgb": ModelRGB, "hsv": ModelHSV, "hsv360": ModelHSV360}

// ParseColorModel returns the model named by a bare word.
func ParseColorModel(word string) (ColorModel, bool) {
	m, ok := colorModels[word]
	return m, ok
}

func (m ColorModel) String() string {
	switch m {
	case ModelRGB:
		return "rgb"
	case ModelHSV:
		return "hsv"
	case ModelHSV360:
		return "hsv360"
	}
	return fmt.Sprintf("ColorModel(%d)", byte(m))
}

// Color is a color value. rgb colors use R, G, B and, occasionally, a fourth
// channel A. Other models keep their three channels in HSV.
type Color struct {
	Model ColorModel

	R, G, B uint32

	A        uint32
	HasAlpha bool

	HSV [3]float64
}

// Channels returns the channel values in their text form.
func (c Color) Channels() []string {
	if c.Model != ModelRGB {
		ret := make([]string, len(c.HSV))
		for i, v := range c.HSV {
			ret[i] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		return ret
	}
	chans := []uint32{c.R, c.G, c.B}
	if c.HasAlpha {
		chans = append(chans, c.A)
	}
	ret := make([]string, len(chans))
	for i, v := range chans {
		ret[i] = strconv.FormatUint(uint64(v), 10)
	}
	return ret
}

// Scalar is a single typed leaf value.
type Scalar struct {
	Kind Kind

	// Int holds bools (0 or 1), i32 and i64.
	Int int64
	// Uint holds u32 and u64.
	Uint uint64
	// Float holds f32, f64 and f64alt.
	Float float64
	// Precision is the number of fractional digits the float's layout can
	// represent. -1 means "shortest representation".
	Precision int
	// Str holds quoted and unquoted strings, unescaped.
	Str string

	Date  Date
	Color Color
}

// Bool returns a bool Scalar.
func Bool(v bool) Scalar {
	s := Scalar{Kind: KindBool}
	if v {
		s.Int = 1
	}
	return s
}

// I32 returns an i32 Scalar.
func I32(v int32) Scalar { return Scalar{Kind: KindI32, Int: int64(v)} }

// U32 returns a u32 Scalar.
func U32(v uint32) Scalar { return Scalar{Kind: KindU32, Uint: uint64(v)} }

// I64 returns an i64 Scalar.
func I64(v int64) Scalar { return Scalar{Kind: KindI64, Int: v} }

// U64 returns a u64 Scalar.
func U64(v uint64) Scalar { return Scalar{Kind: KindU64, Uint: v} }

// F32 returns an f32 Scalar.
func F32(v float32) Scalar { return Scalar{Kind: KindF32, Float: float64(v), Precision: -1} }

// F64 returns a standard layout f64 Scalar which renders with at most
// precision fractional digits (-1 for the shortest round-tripping form).
func F64(v float64, precision int) Scalar {
	return Scalar{Kind: KindF64, Float: v, Precision: precision}
}

// F64Alt returns an alternate layout f64 Scalar.
func F64Alt(v float64) Scalar {
	return Scalar{Kind: KindF64Alt, Float: v, Precision: altPrecision}
}

// Quoted returns a string Scalar which was quoted at its source.
func Quoted(v string) Scalar { return Scalar{Kind: KindQuoted, Str: v} }

// Unquoted returns a bare identifier Scalar.
func Unquoted(v string) Scalar { return Scalar{Kind: KindUnquoted, Str: v} }

// DateScalar returns a date Scalar.
func DateScalar(d Date) Scalar { return Scalar{Kind: KindDate, Date: d} }

// ColorScalar returns a color Scalar.
func ColorScalar(c Color) Scalar { return Scalar{Kind: KindColor, Color: c} }

// IsString returns true for quoted and unquoted strings.
func (s Scalar) IsString() bool {
	return s.Kind == KindQuoted || s.Kind == KindUnquoted
}

// IsNumber returns true for all integer and float kinds.
func (s Scalar) IsNumber() bool {
	switch s.Kind {
	case KindI32, KindU32, KindI64, KindU64, KindF32, KindF64, KindF64Alt:
		return true
	}
	return false
}

// AsInt64 returns the value of an integer scalar. Floats with no fractional
// part also convert.
func (s Scalar) AsInt64() (int64, bool) {
	switch s.Kind {
	case KindI32, KindI64:
		return s.Int, true
	case KindU32, KindU64:
		if s.Uint > math.MaxInt64 {
			return 0, false
		}
		return int64(s.Uint), true
	case KindF32, KindF64, KindF64Alt:
		if s.Float == math.Trunc(s.Float) && math.Abs(s.Float) < 1<<53 {
			return int64(s.Float), true
		}
	}
	return 0, false
}

// Text renders the scalar in script syntax.
func (s Scalar) Text() string {
	switch s.Kind {
	case KindBool:
		if s.Int != 0 {
			return "yes"
		}
		return "no"
	case KindI32, KindI64:
		return strconv.FormatInt(s.Int, 10)
	case KindU32, KindU64:
		return strconv.FormatUint(s.Uint, 10)
	case KindF32:
		return formatFloat(s.Float, -1, 32)
	case KindF64, KindF64Alt:
		return formatFloat(s.Float, s.Precision, 64)
	case KindQuoted:
		return `"` + Escape(s.Str) + `"`
	case KindUnquoted:
		return s.Str
	case KindDate:
		return s.Date.GameFormat()
	case KindColor:
		return s.Color.Model.String() + " { " + strings.Join(s.Color.Channels(), " ") + " }"
	}
	return fmt.Sprintf("<invalid scalar %s>", s.Kind)
}

// Canonical renders the scalar such that two scalars with the same content
// compare equal regardless of the encoding they were read from. A binary f64
// of 4.0 and the text integer 4 are both "4".
func (s Scalar) Canonical() string {
	if t := s.Text(); t != "-0" {
		return t
	}
	return "0"
}

func (s Scalar) String() string {
	return s.Kind.String() + "(" + s.Text() + ")"
}

// formatFloat renders v with at most prec fractional digits, trimming trailing
// zeros. Values with no fractional part render as integers.
func formatFloat(v float64, prec, bitSize int) string {
	ret := strconv.FormatFloat(v, 'f', prec, bitSize)
	if strings.IndexByte(ret, '.') >= 0 {
		ret = strings.TrimRight(ret, "0")
		ret = strings.TrimSuffix(ret, ".")
	}
	if ret == "-0" {
		ret = "0"
	}
	return ret
}

// Escape backslash-escapes quotes and backslashes in a string value.
func Escape(s string) string {
	if strings.IndexAny(s, `"\`) < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 2)
	for i := 0; i < len(s); i++ {
		if c := s[i]; c == '"' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// Unescape reverses Escape. Backslashes which don't precede a quote or another
// backslash are preserved literally.
func Unescape(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) && (s[i+1] == '"' || s[i+1] == '\\') {
			i++
			c = s[i]
		}
		b.WriteByte(c)
	}
	return b.String()
}
