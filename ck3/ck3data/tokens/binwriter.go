// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package tokens

import (
	"encoding/binary"
	"math"
)

// BinaryWriter assembles a binary token stream. It's mostly useful for
// producing fixtures.
type BinaryWriter struct {
	buf []byte
}

// Bytes returns the stream written so far.
func (w *BinaryWriter) Bytes() []byte {
	return w.buf
}

func (w *BinaryWriter) id(id uint16) *BinaryWriter {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, id)
	return w
}

// Token writes a token id.
func (w *BinaryWriter) Token(id uint16) *BinaryWriter { return w.id(id) }

// Equal writes the '=' operator.
func (w *BinaryWriter) Equal() *BinaryWriter { return w.id(IDEqual) }

// Open writes '{'.
func (w *BinaryWriter) Open() *BinaryWriter { return w.id(IDOpen) }

// Close writes '}'.
func (w *BinaryWriter) Close() *BinaryWriter { return w.id(IDClose) }

// Field writes `token=`.
func (w *BinaryWriter) Field(id uint16) *BinaryWriter { return w.id(id).Equal() }

// I32 writes an i32.
func (w *BinaryWriter) I32(v int32) *BinaryWriter {
	w.id(IDI32)
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(v))
	return w
}

// U32 writes a u32.
func (w *BinaryWriter) U32(v uint32) *BinaryWriter {
	w.id(IDU32)
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
	return w
}

// I64 writes an i64.
func (w *BinaryWriter) I64(v int64) *BinaryWriter {
	w.id(IDI64)
	w.buf = binary.LittleEndian.AppendUint64(w.buf, uint64(v))
	return w
}

// U64 writes a u64.
func (w *BinaryWriter) U64(v uint64) *BinaryWriter {
	w.id(IDU64)
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
	return w
}

// F32 writes an f32.
func (w *BinaryWriter) F32(v float32) *BinaryWriter {
	w.id(IDF32)
	w.buf = binary.LittleEndian.AppendUint32(w.buf, math.Float32bits(v))
	return w
}

// F64 writes the raw fixed point payload of an f64.
func (w *BinaryWriter) F64(raw int64) *BinaryWriter {
	w.id(IDF64)
	w.buf = binary.LittleEndian.AppendUint64(w.buf, uint64(raw))
	return w
}

// Bool writes a bool.
func (w *BinaryWriter) Bool(v bool) *BinaryWriter {
	w.id(IDBool)
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
	return w
}

func (w *BinaryWriter) str(id uint16, s string) *BinaryWriter {
	w.id(id)
	w.buf = binary.LittleEndian.AppendUint16(w.buf, uint16(len(s)))
	w.buf = append(w.buf, s...)
	return w
}

// Quoted writes a quoted string.
func (w *BinaryWriter) Quoted(s string) *BinaryWriter { return w.str(IDQuoted, s) }

// Unquoted writes an unquoted string.
func (w *BinaryWriter) Unquoted(s string) *BinaryWriter { return w.str(IDUnquoted, s) }

// Date writes d in its i32 form.
func (w *BinaryWriter) Date(d Date) *BinaryWriter { return w.I32(d.Binary()) }

// RGB writes a color.
func (w *BinaryWriter) RGB(r, g, b uint32) *BinaryWriter {
	return w.id(IDRGB).Open().U32(r).U32(g).U32(b).Close()
}
