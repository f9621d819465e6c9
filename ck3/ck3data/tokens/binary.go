// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package tokens

import (
	"encoding/binary"
	"io"
	"math"

	"go.chromium.org/luci/common/errors"
)

// Element ids of the binary encoding. Every id which isn't one of these and is
// at least FirstTokenID names a token.
const (
	IDEqual    uint16 = 0x0001
	IDOpen     uint16 = 0x0003
	IDClose    uint16 = 0x0004
	IDI32      uint16 = 0x000c
	IDF32      uint16 = 0x000d
	IDBool     uint16 = 0x000e
	IDQuoted   uint16 = 0x000f
	IDU32      uint16 = 0x0014
	IDUnquoted uint16 = 0x0017
	IDF64      uint16 = 0x0167
	IDRGB      uint16 = 0x0243
	IDU64      uint16 = 0x029c
	IDI64      uint16 = 0x0317

	// FirstTokenID is the smallest id which may name a token. Smaller ids
	// which aren't listed above are reserved.
	FirstTokenID uint16 = 0x0018
)

// SaveGameVersionToken is the id of save_game_version, which is recognized
// even without a Resolver so that the float layouts can be chosen.
const SaveGameVersionToken uint16 = 1423

// BinaryOption configures a BinaryTokenizer.
type BinaryOption func(*BinaryTokenizer)

// WithFloatTable replaces DefaultFloatTable.
func WithFloatTable(t FloatTable) BinaryOption {
	return func(b *BinaryTokenizer) {
		b.table = t
	}
}

// WithSaveVersion fixes the save_game_version used to pick the float epoch,
// instead of waiting for it to appear in the stream.
func WithSaveVersion(v int) BinaryOption {
	return func(b *BinaryTokenizer) {
		b.version = v
		b.versionKnown = true
	}
}

// BinaryTokenizer produces Events from the binary token encoding.
type BinaryTokenizer struct {
	data []byte
	pos  int

	r Resolver

	table        FloatTable
	epoch        *FloatEpoch
	version      int
	versionKnown bool

	sc   scope
	done bool
}

var _ EventSource = (*BinaryTokenizer)(nil)

// NewBinaryTokenizer returns a tokenizer over data. r is used only to learn
// key names (which drive date, string and float decoding); events still carry
// the raw token ids.
func NewBinaryTokenizer(data []byte, r Resolver, opts ...BinaryOption) *BinaryTokenizer {
	ret := &BinaryTokenizer{
		data:  data,
		r:     r,
		table: DefaultFloatTable,
		sc:    newScope(),
	}
	for _, o := range opts {
		o(ret)
	}
	ret.epoch = ret.table.Epoch(ret.version)
	return ret
}

// Version returns the save_game_version seen so far (or fixed with
// WithSaveVersion).
func (b *BinaryTokenizer) Version() (int, bool) {
	return b.version, b.versionKnown
}

// Offset returns the number of bytes consumed so far.
func (b *BinaryTokenizer) Offset() int {
	return b.pos
}

// Depth returns the current group nesting depth, counting hidden groups only
// once with their parent.
func (b *BinaryTokenizer) Depth() int {
	return b.sc.depth()
}

// Next implements EventSource.
func (b *BinaryTokenizer) Next() (Event, error) {
	for {
		if ev, ok := b.sc.pop(); ok {
			return ev, nil
		}
		if b.done {
			return Event{}, io.EOF
		}
		if err := b.step(); err != nil {
			b.done = true
			b.sc.pending = nil
			return Event{}, err
		}
	}
}

func (b *BinaryTokenizer) truncated(what string) error {
	return errors.Annotate(ErrTruncatedInput, "reading %s at offset %d", what, b.pos).Err()
}

func (b *BinaryTokenizer) take(n int, what string) ([]byte, error) {
	if len(b.data)-b.pos < n {
		return nil, b.truncated(what)
	}
	ret := b.data[b.pos : b.pos+n]
	b.pos += n
	return ret, nil
}

func (b *BinaryTokenizer) readID() (uint16, error) {
	buf, err := b.take(2, "element id")
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf), nil
}

func (b *BinaryTokenizer) peekID() (uint16, bool) {
	if len(b.data)-b.pos < 2 {
		return 0, false
	}
	return binary.LittleEndian.Uint16(b.data[b.pos:]), true
}

// element is a decoded scalar or token before the key/value decision.
type element struct {
	token bool
	id    uint16

	s Scalar

	// raw holds the undecoded f64 payload when s.Kind == KindF64.
	raw int64
}

func (b *BinaryTokenizer) step() error {
	if b.pos >= len(b.data) {
		b.done = true
		return b.sc.finish()
	}
	start := b.pos
	id, err := b.readID()
	if err != nil {
		return err
	}

	switch id {
	case IDOpen:
		b.sc.onOpen()
		return nil
	case IDClose:
		return b.sc.onClose()
	case IDEqual:
		return errors.Annotate(ErrUnknownTag, "operator without key at offset %d", start).Err()
	}

	el, err := b.readElement(id)
	if err != nil {
		return err
	}

	if next, ok := b.peekID(); ok && next == IDEqual {
		b.pos += 2
		b.onKey(el)
		return nil
	}
	b.onValue(el)
	return nil
}

func (b *BinaryTokenizer) readElement(id uint16) (el element, err error) {
	el.id = id
	var buf []byte
	switch id {
	case IDI32:
		if buf, err = b.take(4, "i32"); err == nil {
			el.s = I32(int32(binary.LittleEndian.Uint32(buf)))
		}
	case IDU32:
		if buf, err = b.take(4, "u32"); err == nil {
			el.s = U32(binary.LittleEndian.Uint32(buf))
		}
	case IDF32:
		if buf, err = b.take(4, "f32"); err == nil {
			el.s = F32(math.Float32frombits(binary.LittleEndian.Uint32(buf)))
		}
	case IDBool:
		if buf, err = b.take(1, "bool"); err == nil {
			el.s = Bool(buf[0] != 0)
		}
	case IDI64:
		if buf, err = b.take(8, "i64"); err == nil {
			el.s = I64(int64(binary.LittleEndian.Uint64(buf)))
		}
	case IDU64:
		if buf, err = b.take(8, "u64"); err == nil {
			el.s = U64(binary.LittleEndian.Uint64(buf))
		}
	case IDF64:
		if buf, err = b.take(8, "f64"); err == nil {
			el.raw = int64(binary.LittleEndian.Uint64(buf))
			el.s = Scalar{Kind: KindF64}
		}
	case IDQuoted, IDUnquoted:
		var str string
		if str, err = b.readString(); err == nil {
			if id == IDQuoted {
				el.s = Quoted(str)
			} else {
				el.s = Unquoted(str)
			}
		}
	case IDRGB:
		var c Color
		if c, err = b.readColor(); err == nil {
			el.s = ColorScalar(c)
		}
	default:
		if id < FirstTokenID {
			err = errors.Annotate(ErrUnknownTag, "id 0x%04x at offset %d", id, b.pos-2).Err()
			return
		}
		el.token = true
	}
	return
}

func (b *BinaryTokenizer) readString() (string, error) {
	buf, err := b.take(2, "string length")
	if err != nil {
		return "", err
	}
	if buf, err = b.take(int(binary.LittleEndian.Uint16(buf)), "string"); err != nil {
		return "", err
	}
	return string(buf), nil
}

// readColor reads `{ r g b [a] }` following the rgb id.
func (b *BinaryTokenizer) readColor() (c Color, err error) {
	id, err := b.readID()
	if err != nil {
		return
	}
	if id != IDOpen {
		err = errors.Annotate(ErrUnknownTag, "rgb followed by 0x%04x at offset %d", id, b.pos-2).Err()
		return
	}
	var chans []uint32
	for {
		if id, err = b.readID(); err != nil {
			return
		}
		if id == IDClose {
			break
		}
		if id != IDI32 && id != IDU32 {
			err = errors.Annotate(ErrUnknownTag, "rgb channel 0x%04x at offset %d", id, b.pos-2).Err()
			return
		}
		var buf []byte
		if buf, err = b.take(4, "rgb channel"); err != nil {
			return
		}
		chans = append(chans, binary.LittleEndian.Uint32(buf))
	}
	switch len(chans) {
	case 4:
		c.A, c.HasAlpha = chans[3], true
		fallthrough
	case 3:
		c.R, c.G, c.B = chans[0], chans[1], chans[2]
	default:
		err = errors.Annotate(ErrUnknownTag, "rgb with %d channels at offset %d", len(chans), b.pos).Err()
	}
	return
}

func (b *BinaryTokenizer) keyName(el element) string {
	if !el.token {
		if el.s.IsString() {
			return el.s.Str
		}
		return el.s.Canonical()
	}
	if name, ok := resolveName(b.r, el.id); ok {
		return name
	}
	if el.id == SaveGameVersionToken {
		return "save_game_version"
	}
	return ""
}

func (b *BinaryTokenizer) onKey(el element) {
	name := b.keyName(el)
	if el.token {
		b.sc.onKey(TokenKey(el.id), name)
		return
	}
	switch el.s.Kind {
	case KindF64:
		el.s = b.epoch.Standard.Decode(el.raw)
	case KindI32:
		if !knownNumberGroups.Has(b.sc.top().key) {
			if d, ok := DateFromBinary(int32(el.s.Int)); ok {
				el.s = DateScalar(d)
				name = d.GameFormat()
			}
		}
	}
	b.sc.onKey(ScalarKey(el.s), name)
}

func (b *BinaryTokenizer) onValue(el element) {
	if el.token {
		b.sc.onValue(TokenValueEvent(el.id))
		return
	}
	ctx := b.sc.context()

	if !ctx.positional && ctx.key == "save_game_version" && !b.versionKnown {
		if v, ok := el.s.AsInt64(); ok {
			b.version, b.versionKnown = int(v), true
			b.epoch = b.table.Epoch(b.version)
		}
	}

	switch el.s.Kind {
	case KindI32:
		if !ctx.knownNumber {
			if d, ok := DateFromBinary(int32(el.s.Int)); ok {
				el.s = DateScalar(d)
			}
		}
	case KindQuoted:
		if ctx.unquote || b.epoch.UnquoteKeys.Has(ctx.key) {
			el.s.Kind = KindUnquoted
		}
	case KindF64:
		el.s = b.epoch.Layout(ctx.key, ctx.inAliveData).Decode(el.raw)
	}
	b.sc.onValue(ValueEvent(el.s))
}
