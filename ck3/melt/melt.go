// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package melt

import (
	"io"
	"sort"

	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/errors"

	"github.com/rakaly/ck3save/ck3/ck3data"
	"github.com/rakaly/ck3save/ck3/ck3data/tokens"
)

// ErrStrictResolutionFailed is returned by a Strict melt when a token id has
// no name.
var ErrStrictResolutionFailed = errors.New("unresolved token in strict mode")

// Fields which only mean something to an ironman save.
var ironmanFields = stringset.NewFromSlice("ironman", "ironman_manager")

// metadataKey is the root group whose length the header line declares.
const metadataKey = "meta_data"

// Melter converts token streams to plaintext. A Melter holds only its options
// and may be used concurrently, unless it was built with Into: every call then
// writes into the same buffer. Pass Into to Melt instead to give each call its
// own.
type Melter struct {
	opts optionData
}

// New returns a Melter.
func New(opts ...Option) *Melter {
	ret := &Melter{}
	for _, o := range opts {
		o(&ret.opts)
	}
	return ret
}

// Output is the result of a melt.
type Output struct {
	// Data is the plaintext.
	Data []byte

	// Owned is true if Data was allocated by Melt. It's false when Data lives
	// in the buffer passed with Into.
	Owned bool

	// Unknown holds every token id which the Resolver couldn't name.
	Unknown map[uint16]struct{}
}

// UnknownTokens returns the unresolved token ids in ascending order.
func (o *Output) UnknownTokens() []uint16 {
	ret := make([]uint16, 0, len(o.Unknown))
	for id := range o.Unknown {
		ret = append(ret, id)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

// Melt drains src and renders it as plaintext. r names the tokens of a binary
// stream; it may be nil. opts apply to this call only, on top of the Melter's.
//
// Melt fails only if src fails or is malformed, or in Strict mode.
func (m *Melter) Melt(src tokens.EventSource, r tokens.Resolver, opts ...Option) (*Output, error) {
	o := m.opts
	for _, opt := range opts {
		opt(&o)
	}
	st := &state{
		opts:     &o,
		src:      tokens.NewPeeker(src),
		r:        r,
		frames:   []frame{{}},
		unknown:  map[uint16]struct{}{},
		headerAt: -1,
	}
	if o.haveSink {
		st.out = o.sink
	}
	if h := o.header; h != nil {
		hdr := *h
		hdr.SetKind(ck3data.KindText)
		hdr.SetMetadataLen(0)
		st.headerAt = len(st.out)
		st.out = hdr.Append(st.out)
	}

	if err := st.run(); err != nil {
		return nil, err
	}

	ret := &Output{Data: st.out, Owned: true, Unknown: st.unknown}
	if o.haveSink {
		ret.Owned = !sameArray(st.out, o.sink)
	}
	return ret, nil
}

func sameArray(a, b []byte) bool {
	if cap(a) == 0 || cap(b) == 0 {
		return false
	}
	return &a[:1][0] == &b[:1][0]
}

type frame struct {
	// inline groups are written on one line: `{ 1 2 3 }`.
	inline bool
	hidden bool

	// level is the indentation of the group's elements.
	level int

	// meta is set on the root meta_data group.
	meta bool
}

type state struct {
	opts *optionData
	src  *tokens.Peeker
	r    tokens.Resolver

	out    []byte
	frames []frame

	// keyed is set between a key and its value.
	keyed       bool
	metaPending bool

	unknown  map[uint16]struct{}
	headerAt int
}

func (s *state) top() *frame {
	return &s.frames[len(s.frames)-1]
}

func truncated(err error) error {
	if err == io.EOF {
		return errors.Annotate(tokens.ErrTruncatedInput, "stream ended inside a field").Err()
	}
	return err
}

func (s *state) run() error {
	for {
		ev, err := s.src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := s.event(ev); err != nil {
			return err
		}
	}
	if s.keyed {
		return errors.Annotate(tokens.ErrTruncatedInput, "stream ended after a key").Err()
	}
	if d := len(s.frames) - 1; d != 0 {
		return errors.Annotate(tokens.ErrUnbalancedGroups, "%d group(s) left open", d).Err()
	}
	return nil
}

func (s *state) event(ev tokens.Event) error {
	switch ev.Kind {
	case tokens.EventKey:
		return s.key(ev)

	case tokens.EventOperator:
		return errors.Annotate(tokens.ErrUnknownTag, "operator %s without a key", ev.Op).Err()

	case tokens.EventValue:
		s.startValue()
		s.out = append(s.out, ev.Scalar.Text()...)
		s.endElement()

	case tokens.EventTokenValue:
		name, err := s.tokenName(ev)
		if err != nil {
			return err
		}
		s.startValue()
		s.out = append(s.out, name...)
		s.endElement()

	case tokens.EventOpen:
		if ev.Hidden {
			parent := s.top()
			s.frames = append(s.frames, frame{inline: parent.inline, hidden: true, level: parent.level})
			return nil
		}
		s.startValue()
		return s.open()

	case tokens.EventClose:
		return s.close(ev.Hidden)

	default:
		return errors.Annotate(tokens.ErrUnknownTag, "event %s", ev).Err()
	}
	return nil
}

func (s *state) key(ev tokens.Event) error {
	if s.keyed {
		return errors.Annotate(tokens.ErrTruncatedInput, "key %s follows a key", ev).Err()
	}

	var name, text string
	if ev.IsToken {
		var err error
		if name, err = s.tokenName(ev); err != nil {
			return err
		}
		text = name
	} else {
		name, _ = ev.Name(s.r)
		text = ev.Scalar.Text()
	}

	if !s.opts.preserveIronman && ironmanFields.Has(name) {
		return truncated(s.src.SkipValue())
	}

	s.startElement()
	s.out = append(s.out, text...)
	next, err := s.src.Peek(0)
	switch {
	case err == nil && next.Kind == tokens.EventOperator:
		s.src.Next()
		s.out = append(s.out, next.Op.String()...)
	case err != nil && err != io.EOF:
		return err
	default:
		s.out = append(s.out, '=')
	}
	s.keyed = true
	s.metaPending = len(s.frames) == 1 && name == metadataKey
	return nil
}

// tokenName names a token, falling back to its id.
func (s *state) tokenName(ev tokens.Event) (string, error) {
	name, ok := ev.Name(s.r)
	if !ok {
		if s.opts.strict {
			return "", errors.Annotate(ErrStrictResolutionFailed, "token 0x%x", ev.Token).Err()
		}
		s.unknown[ev.Token] = struct{}{}
	}
	return name, nil
}

func (s *state) indent(n int) {
	for i := 0; i < n; i++ {
		s.out = append(s.out, '\t')
	}
}

// startElement begins a key or a positional value.
func (s *state) startElement() {
	if f := s.top(); f.inline {
		s.out = append(s.out, ' ')
	} else {
		s.indent(f.level)
	}
}

func (s *state) startValue() {
	if s.keyed {
		s.keyed = false
		return
	}
	s.metaPending = false
	s.startElement()
}

func (s *state) endElement() {
	s.metaPending = false
	if !s.top().inline {
		s.out = append(s.out, '\n')
	}
}

// open writes the start of a group. Groups of scalars are inline; groups of
// fields or of groups get a line per element. Everything inside an inline
// group is inline too.
func (s *state) open() error {
	parent := s.top()
	f := frame{level: parent.level + 1, meta: s.metaPending, inline: parent.inline}
	s.metaPending = false

	if !f.inline {
		next, err := s.src.Peek(0)
		if err == io.EOF {
			return errors.Annotate(tokens.ErrUnbalancedGroups, "stream ended inside a group").Err()
		}
		if err != nil {
			return err
		}
		switch next.Kind {
		case tokens.EventValue, tokens.EventTokenValue, tokens.EventClose:
			f.inline = true
		}
	}

	s.out = append(s.out, '{')
	if !f.inline {
		s.out = append(s.out, '\n')
	}
	s.frames = append(s.frames, f)
	return nil
}

func (s *state) close(hidden bool) error {
	if len(s.frames) == 1 {
		return errors.Annotate(tokens.ErrUnbalancedGroups, "close without open").Err()
	}
	if s.keyed {
		return errors.Annotate(tokens.ErrTruncatedInput, "group closed after a key").Err()
	}
	f := *s.top()
	if f.hidden != hidden {
		return errors.Annotate(tokens.ErrUnbalancedGroups, "mismatched hidden group").Err()
	}
	s.frames = s.frames[:len(s.frames)-1]
	if hidden {
		return nil
	}

	if f.inline {
		s.out = append(s.out, " }"...)
	} else {
		s.indent(f.level - 1)
		s.out = append(s.out, '}')
	}
	if f.meta && s.headerAt >= 0 {
		n := len(s.out) - s.headerAt - ck3data.HeaderLen
		if err := ck3data.PatchMetadataLen(s.out[s.headerAt:], uint64(n)); err != nil {
			return err
		}
	}
	s.endElement()
	return nil
}
