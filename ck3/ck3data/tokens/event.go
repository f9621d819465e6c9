// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package tokens

import (
	"fmt"
	"io"
)

// EventKind identifies the type of an Event.
type EventKind byte

// These are the kinds of Event.
const (
	EventOpen EventKind = iota + 1
	EventClose
	EventKey
	EventOperator
	EventValue
	EventTokenValue
)

func (k EventKind) String() string {
	switch k {
	case EventOpen:
		return "Open"
	case EventClose:
		return "Close"
	case EventKey:
		return "Key"
	case EventOperator:
		return "Operator"
	case EventValue:
		return "Value"
	case EventTokenValue:
		return "TokenValue"
	}
	return fmt.Sprintf("EventKind(%d)", byte(k))
}

// Operator is a comparison between a key and its value. Plain assignment is
// implied by a Key and never appears as an Operator event.
type Operator byte

// These are the non-assignment operators of the script dialect.
const (
	OpLess Operator = iota + 1
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpEqual
	OpNotEqual
	OpExists
)

var operatorText = map[Operator]string{
	OpLess:         "<",
	OpLessEqual:    "<=",
	OpGreater:      ">",
	OpGreaterEqual: ">=",
	OpEqual:        "==",
	OpNotEqual:     "!=",
	OpExists:       "?=",
}

func (o Operator) String() string {
	if s, ok := operatorText[o]; ok {
		return s
	}
	return fmt.Sprintf("Operator(%d)", byte(o))
}

// Event is one structural element of a token stream.
type Event struct {
	Kind EventKind

	// Hidden marks Open/Close events of groups which exist only to separate
	// the positional and keyed halves of a hybrid group, e.g. the second half
	// of `{ 10 0=1 1=2 }`. They carry no braces in text.
	Hidden bool

	// IsToken is set for Key events whose key is a binary token id rather than
	// a scalar.
	IsToken bool
	// Token is the id for TokenValue events and token Key events.
	Token uint16
	// Scalar is the payload of Value events and scalar Key events.
	Scalar Scalar

	Op Operator
}

// OpenEvent returns an Open event.
func OpenEvent(hidden bool) Event { return Event{Kind: EventOpen, Hidden: hidden} }

// CloseEvent returns a Close event.
func CloseEvent(hidden bool) Event { return Event{Kind: EventClose, Hidden: hidden} }

// TokenKey returns a Key event for a binary token.
func TokenKey(id uint16) Event { return Event{Kind: EventKey, IsToken: true, Token: id} }

// ScalarKey returns a Key event for a scalar key.
func ScalarKey(s Scalar) Event { return Event{Kind: EventKey, Scalar: s} }

// OperatorEvent returns an Operator event.
func OperatorEvent(op Operator) Event { return Event{Kind: EventOperator, Op: op} }

// ValueEvent returns a Value event.
func ValueEvent(s Scalar) Event { return Event{Kind: EventValue, Scalar: s} }

// TokenValueEvent returns a TokenValue event.
func TokenValueEvent(id uint16) Event { return Event{Kind: EventTokenValue, Token: id} }

// Name returns the textual form of a Key or TokenValue, resolving tokens with
// r. ok is false if the token could not be resolved, in which case name is the
// hex fallback form.
func (e Event) Name(r Resolver) (name string, ok bool) {
	if e.Kind == EventTokenValue || (e.Kind == EventKey && e.IsToken) {
		if r != nil {
			if name, ok = r.Resolve(e.Token); ok {
				return
			}
		}
		return TokenFallback(e.Token), false
	}
	if e.Scalar.IsString() {
		return e.Scalar.Str, true
	}
	return e.Scalar.Canonical(), true
}

// TokenFallback is the textual form of a token id that has no name.
func TokenFallback(id uint16) string {
	return fmt.Sprintf("0x%x", id)
}

// Canonical renders the event in a form which is independent of the
// encoding it was read from. Two streams are structurally equivalent iff their
// canonical renderings are equal.
func (e Event) Canonical(r Resolver) string {
	switch e.Kind {
	case EventOpen, EventClose:
		if e.Hidden {
			return "hidden " + e.Kind.String()
		}
		return e.Kind.String()
	case EventKey:
		name, _ := e.Name(r)
		if !e.IsToken && e.Scalar.Kind == KindQuoted {
			name = e.Scalar.Text()
		}
		return "Key " + name
	case EventTokenValue:
		name, _ := e.Name(r)
		return "Value " + name
	case EventValue:
		return "Value " + e.Scalar.Canonical()
	case EventOperator:
		return "Operator " + e.Op.String()
	}
	return e.Kind.String()
}

func (e Event) String() string {
	switch e.Kind {
	case EventKey, EventTokenValue:
		if e.Kind == EventTokenValue || e.IsToken {
			return fmt.Sprintf("%s(token 0x%x)", e.Kind, e.Token)
		}
		return fmt.Sprintf("%s(%s)", e.Kind, e.Scalar)
	case EventValue:
		return fmt.Sprintf("%s(%s)", e.Kind, e.Scalar)
	}
	return e.Canonical(nil)
}

// EventSource produces a token stream. Next returns io.EOF after the last
// event.
type EventSource interface {
	Next() (Event, error)
}

// Peeker wraps an EventSource with arbitrary lookahead.
type Peeker struct {
	src EventSource
	buf []Event

	// err is the first error src returned. It's handed out again once buf is
	// drained.
	err error
}

// NewPeeker wraps src.
func NewPeeker(src EventSource) *Peeker {
	if p, ok := src.(*Peeker); ok {
		return p
	}
	return &Peeker{src: src}
}

// Peek returns the n'th upcoming event (0 is the next one) without consuming
// it.
func (p *Peeker) Peek(n int) (Event, error) {
	for len(p.buf) <= n {
		if p.err != nil {
			return Event{}, p.err
		}
		ev, err := p.src.Next()
		if err != nil {
			p.err = err
			return Event{}, err
		}
		p.buf = append(p.buf, ev)
	}
	return p.buf[n], nil
}

// Next implements EventSource.
func (p *Peeker) Next() (Event, error) {
	if len(p.buf) > 0 {
		ev := p.buf[0]
		p.buf = p.buf[1:]
		return ev, nil
	}
	if p.err != nil {
		return Event{}, p.err
	}
	ev, err := p.src.Next()
	if err != nil {
		p.err = err
	}
	return ev, err
}

// SkipValue consumes the value that follows a Key which has already been
// consumed: an optional Operator, then either a scalar or a whole group.
func (p *Peeker) SkipValue() error {
	ev, err := p.Next()
	if err != nil {
		return err
	}
	if ev.Kind == EventOperator {
		if ev, err = p.Next(); err != nil {
			return err
		}
	}
	if ev.Kind != EventOpen {
		return nil
	}
	for depth := 1; depth > 0; {
		if ev, err = p.Next(); err != nil {
			return err
		}
		switch ev.Kind {
		case EventOpen:
			depth++
		case EventClose:
			depth--
		}
	}
	return nil
}

// SliceSource replays a fixed list of events.
type SliceSource []Event

// Next implements EventSource.
func (s *SliceSource) Next() (Event, error) {
	if len(*s) == 0 {
		return Event{}, io.EOF
	}
	ev := (*s)[0]
	*s = (*s)[1:]
	return ev, nil
}

// Collect drains src.
func Collect(src EventSource) ([]Event, error) {
	var ret []Event
	for {
		ev, err := src.Next()
		if err == io.EOF {
			return ret, nil
		}
		if err != nil {
			return ret, err
		}
		ret = append(ret, ev)
	}
}

// CanonicalForm drains src and returns the canonical rendering of each event.
func CanonicalForm(src EventSource, r Resolver) ([]string, error) {
	evs, err := Collect(src)
	if err != nil {
		return nil, err
	}
	ret := make([]string, len(evs))
	for i, ev := range evs {
		ret[i] = ev.Canonical(r)
	}
	return ret, nil
}
