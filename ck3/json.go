// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ck3

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"go.chromium.org/luci/common/errors"

	"github.com/rakaly/ck3save/ck3/ck3data/tokens"
)

// ErrNotRepresentable is returned when a stream has a shape JSON can't hold,
// such as a bare value among fields.
var ErrNotRepresentable = errors.New("not representable as JSON")

// WriteJSON renders the event stream as JSON.
//
// The root and every group of fields become objects; fields repeated in the
// save are repeated in the object. Groups of values become arrays, and the
// fields which follow the values of a mixed group become an object at the end
// of its array. Empty groups are []. A comparison like `age >= 16` becomes
// {"age": {">=": 16}}.
//
// Dates are ISO 8601 strings and colors are {"rgb": [r, g, b]}.
func WriteJSON(w io.Writer, src tokens.EventSource, r tokens.Resolver) error {
	bw := bufio.NewWriter(w)
	jw := &jsonWriter{w: bw, src: tokens.NewPeeker(src), r: r}
	if err := jw.object(true, false); err != nil {
		return err
	}
	return bw.Flush()
}

// Decode renders src as JSON and unmarshals it into v.
func Decode(src tokens.EventSource, r tokens.Resolver, v any) error {
	buf := &bytes.Buffer{}
	if err := WriteJSON(buf, src, r); err != nil {
		return err
	}
	if err := json.Unmarshal(buf.Bytes(), v); err != nil {
		return errors.Annotate(err, "decoding").Err()
	}
	return nil
}

type jsonWriter struct {
	w   *bufio.Writer
	src *tokens.Peeker
	r   tokens.Resolver
}

func (j *jsonWriter) next() (tokens.Event, error) {
	ev, err := j.src.Next()
	if err == io.EOF {
		err = errors.Annotate(tokens.ErrTruncatedInput, "stream ended inside a group").Err()
	}
	return ev, err
}

func (j *jsonWriter) str(s string) {
	buf, _ := json.Marshal(s)
	j.w.Write(buf)
}

// object writes fields until the end of the stream (root), or until the
// matching Close.
func (j *jsonWriter) object(root, hidden bool) error {
	j.w.WriteByte('{')
	for first := true; ; first = false {
		ev, err := j.src.Next()
		switch {
		case err == io.EOF && root:
			j.w.WriteByte('}')
			return nil
		case err == io.EOF:
			return errors.Annotate(tokens.ErrTruncatedInput, "stream ended inside a group").Err()
		case err != nil:
			return err
		}

		switch {
		case ev.Kind == tokens.EventClose && !root && ev.Hidden == hidden:
			j.w.WriteByte('}')
			return nil
		case ev.Kind != tokens.EventKey:
			return errors.Annotate(ErrNotRepresentable, "%s among fields", ev).Err()
		}

		if !first {
			j.w.WriteByte(',')
		}
		name, _ := ev.Name(j.r)
		j.str(name)
		j.w.WriteByte(':')
		if err := j.fieldValue(); err != nil {
			return err
		}
	}
}

func (j *jsonWriter) fieldValue() error {
	ev, err := j.next()
	if err != nil {
		return err
	}
	if ev.Kind != tokens.EventOperator {
		return j.value(ev)
	}
	j.w.WriteByte('{')
	j.str(ev.Op.String())
	j.w.WriteByte(':')
	if ev, err = j.next(); err != nil {
		return err
	}
	if err := j.value(ev); err != nil {
		return err
	}
	j.w.WriteByte('}')
	return nil
}

func (j *jsonWriter) value(ev tokens.Event) error {
	switch ev.Kind {
	case tokens.EventValue:
		return j.scalar(ev.Scalar)
	case tokens.EventTokenValue:
		name, _ := ev.Name(j.r)
		j.str(name)
		return nil
	case tokens.EventOpen:
		if !ev.Hidden {
			return j.group()
		}
	}
	return errors.Annotate(ErrNotRepresentable, "%s in value position", ev).Err()
}

// group writes a group whose Open has been consumed.
func (j *jsonWriter) group() error {
	ev, err := j.src.Peek(0)
	if err == io.EOF {
		return errors.Annotate(tokens.ErrTruncatedInput, "stream ended inside a group").Err()
	}
	if err != nil {
		return err
	}
	switch ev.Kind {
	case tokens.EventClose:
		j.src.Next()
		j.w.WriteString("[]")
		return nil
	case tokens.EventKey:
		return j.object(false, false)
	}
	return j.array()
}

func (j *jsonWriter) array() error {
	j.w.WriteByte('[')
	for first := true; ; first = false {
		ev, err := j.next()
		if err != nil {
			return err
		}
		if ev.Kind == tokens.EventClose {
			j.w.WriteByte(']')
			return nil
		}
		if !first {
			j.w.WriteByte(',')
		}
		if ev.Kind == tokens.EventOpen && ev.Hidden {
			err = j.object(false, true)
		} else {
			err = j.value(ev)
		}
		if err != nil {
			return err
		}
	}
}

func (j *jsonWriter) scalar(s tokens.Scalar) error {
	switch s.Kind {
	case tokens.KindBool:
		j.w.WriteString(strconv.FormatBool(s.Int != 0))
	case tokens.KindQuoted, tokens.KindUnquoted:
		j.str(s.Str)
	case tokens.KindDate:
		buf, err := s.Date.MarshalJSON()
		if err != nil {
			return err
		}
		j.w.Write(buf)
	case tokens.KindColor:
		j.w.WriteString(`{"` + s.Color.Model.String() + `":[`)
		j.w.WriteString(strings.Join(s.Color.Channels(), ","))
		j.w.WriteString("]}")
	default:
		if !s.IsNumber() {
			return errors.Annotate(ErrNotRepresentable, "scalar %s", s).Err()
		}
		j.w.WriteString(s.Canonical())
	}
	return nil
}
