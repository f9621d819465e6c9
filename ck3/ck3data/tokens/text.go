// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package tokens

import (
	"bytes"
	"io"
	"strconv"

	"go.chromium.org/luci/common/errors"
)

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// TextTokenizer produces Events from the plaintext script dialect.
type TextTokenizer struct {
	data []byte
	pos  int

	sc   scope
	done bool
}

var _ EventSource = (*TextTokenizer)(nil)

// NewTextTokenizer returns a tokenizer over data, which must not include the
// save header line.
func NewTextTokenizer(data []byte) *TextTokenizer {
	return &TextTokenizer{
		data: bytes.TrimPrefix(data, utf8BOM),
		sc:   newScope(),
	}
}

// Offset returns the number of bytes consumed so far.
func (t *TextTokenizer) Offset() int {
	return t.pos
}

// Depth returns the current group nesting depth.
func (t *TextTokenizer) Depth() int {
	return t.sc.depth()
}

// Next implements EventSource.
func (t *TextTokenizer) Next() (Event, error) {
	for {
		if ev, ok := t.sc.pop(); ok {
			return ev, nil
		}
		if t.done {
			return Event{}, io.EOF
		}
		if err := t.step(); err != nil {
			t.done = true
			t.sc.pending = nil
			return Event{}, err
		}
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

// isDelimiter returns true for bytes which end a bare word.
func isDelimiter(c byte) bool {
	switch c {
	case '{', '}', '=', '<', '>', '!', '?', '"', '#':
		return true
	}
	return isSpace(c)
}

func (t *TextTokenizer) skipSpace() {
	for t.pos < len(t.data) {
		c := t.data[t.pos]
		switch {
		case isSpace(c):
			t.pos++
		case c == '#':
			if nl := bytes.IndexByte(t.data[t.pos:], '\n'); nl >= 0 {
				t.pos += nl + 1
			} else {
				t.pos = len(t.data)
			}
		default:
			return
		}
	}
}

// operator consumes an operator if one is next. assign is true for plain '='.
func (t *TextTokenizer) operator() (op Operator, assign, ok bool) {
	rest := t.data[t.pos:]
	if len(rest) == 0 {
		return
	}
	two := ""
	if len(rest) >= 2 {
		two = string(rest[:2])
	}
	switch two {
	case "==":
		t.pos += 2
		return OpEqual, false, true
	case "!=":
		t.pos += 2
		return OpNotEqual, false, true
	case "<=":
		t.pos += 2
		return OpLessEqual, false, true
	case ">=":
		t.pos += 2
		return OpGreaterEqual, false, true
	case "?=":
		t.pos += 2
		return OpExists, false, true
	}
	switch rest[0] {
	case '=':
		t.pos++
		return 0, true, true
	case '<':
		t.pos++
		return OpLess, false, true
	case '>':
		t.pos++
		return OpGreater, false, true
	}
	return
}

func (t *TextTokenizer) step() error {
	t.skipSpace()
	if t.pos >= len(t.data) {
		t.done = true
		return t.sc.finish()
	}

	start := t.pos
	switch c := t.data[t.pos]; c {
	case '{':
		t.pos++
		t.sc.onOpen()
		return nil
	case '}':
		t.pos++
		return t.sc.onClose()
	case '=', '<', '>', '!', '?':
		return errors.Annotate(ErrUnknownTag, "operator without key at offset %d", start).Err()
	}

	quoted, word, err := t.word()
	if err != nil {
		return err
	}

	t.skipSpace()
	if op, assign, ok := t.operator(); ok {
		t.onKey(quoted, word)
		if !assign {
			t.sc.emit(OperatorEvent(op))
		}
		return nil
	}

	if model, ok := ParseColorModel(word); ok && !quoted {
		if t.pos < len(t.data) && t.data[t.pos] == '{' {
			c, err := t.color(model)
			if err != nil {
				return err
			}
			t.sc.onValue(ValueEvent(ColorScalar(c)))
			return nil
		}
	}
	t.onValue(quoted, word)
	return nil
}

// word reads a quoted string (unescaped) or a bare word.
func (t *TextTokenizer) word() (quoted bool, word string, err error) {
	start := t.pos
	if t.data[t.pos] == '"' {
		t.pos++
		for i := t.pos; i < len(t.data); i++ {
			switch t.data[i] {
			case '\\':
				i++
			case '"':
				word = Unescape(string(t.data[t.pos:i]))
				t.pos = i + 1
				return true, word, nil
			}
		}
		return false, "", errors.Annotate(ErrTruncatedInput, "unterminated string at offset %d", start).Err()
	}
	for t.pos < len(t.data) && !isDelimiter(t.data[t.pos]) {
		t.pos++
	}
	return false, string(t.data[start:t.pos]), nil
}

func (t *TextTokenizer) color(model ColorModel) (c Color, err error) {
	t.pos++ // '{'
	c.Model = model
	var chans []uint32
	var hsv []float64
	for {
		t.skipSpace()
		if t.pos >= len(t.data) {
			err = errors.Annotate(ErrTruncatedInput, "unterminated %s", model).Err()
			return
		}
		if t.data[t.pos] == '}' {
			t.pos++
			break
		}
		start := t.pos
		var word string
		if _, word, err = t.word(); err != nil {
			return
		}
		if model != ModelRGB {
			v, perr := strconv.ParseFloat(word, 64)
			if perr != nil {
				err = errors.Annotate(ErrUnknownTag, "bad %s channel %q at offset %d", model, word, start).Err()
				return
			}
			hsv = append(hsv, v)
			continue
		}
		n, perr := strconv.ParseUint(word, 10, 32)
		if perr != nil {
			err = errors.Annotate(ErrUnknownTag, "bad rgb channel %q at offset %d", word, start).Err()
			return
		}
		chans = append(chans, uint32(n))
	}
	if model != ModelRGB {
		if len(hsv) != 3 {
			err = errors.Annotate(ErrUnknownTag, "%s with %d channels", model, len(hsv)).Err()
			return
		}
		copy(c.HSV[:], hsv)
		return
	}
	switch len(chans) {
	case 4:
		c.A, c.HasAlpha = chans[3], true
		fallthrough
	case 3:
		c.R, c.G, c.B = chans[0], chans[1], chans[2]
	default:
		err = errors.Annotate(ErrUnknownTag, "rgb with %d channels", len(chans)).Err()
	}
	return
}

func (t *TextTokenizer) onKey(quoted bool, word string) {
	if quoted {
		t.sc.onKey(ScalarKey(Quoted(word)), word)
		return
	}
	top := t.sc.top()
	t.sc.onKey(ScalarKey(classifyKey(word, knownNumberGroups.Has(top.key))), word)
}

func (t *TextTokenizer) onValue(quoted bool, word string) {
	if quoted {
		t.sc.onValue(ValueEvent(Quoted(word)))
		return
	}
	ctx := t.sc.context()
	t.sc.onValue(ValueEvent(classifyValue(word, ctx.knownNumber)))
}

// classifyKey types a bare key. Only numbers and dates are distinguished from
// identifiers.
func classifyKey(word string, knownNumber bool) Scalar {
	if s, ok := classifyNumber(word, knownNumber); ok {
		return s
	}
	return Unquoted(word)
}

// classifyValue types a bare value. Date-shaped words under known number keys
// remain identifiers.
func classifyValue(word string, knownNumber bool) Scalar {
	switch word {
	case "yes":
		return Bool(true)
	case "no":
		return Bool(false)
	}
	if s, ok := classifyNumber(word, knownNumber); ok {
		return s
	}
	return Unquoted(word)
}

func classifyNumber(word string, knownNumber bool) (Scalar, bool) {
	if word == "" {
		return Scalar{}, false
	}
	digits := word
	if digits[0] == '-' || digits[0] == '+' {
		digits = digits[1:]
	}
	if digits == "" || digits[0] < '0' || digits[0] > '9' {
		return Scalar{}, false
	}
	dots := 0
	for i := 0; i < len(digits); i++ {
		switch c := digits[i]; {
		case c == '.':
			dots++
		case c < '0' || c > '9':
			return Scalar{}, false
		}
	}
	switch dots {
	case 0:
		if v, err := strconv.ParseInt(word, 10, 64); err == nil {
			return I64(v), true
		}
		if v, err := strconv.ParseUint(digits, 10, 64); err == nil && word[0] != '-' {
			return U64(v), true
		}
	case 1:
		if digits[len(digits)-1] == '.' {
			return Scalar{}, false
		}
		if v, err := strconv.ParseFloat(word, 64); err == nil {
			return F64(v, -1), true
		}
	case 2:
		if knownNumber || len(digits) != len(word) {
			return Scalar{}, false
		}
		if d, ok := ParseDate(word); ok {
			return DateScalar(d), true
		}
	}
	return Scalar{}, false
}
