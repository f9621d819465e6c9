// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package tokens

import (
	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/errors"
)

// Integers under these keys are never dates, even when they look like one.
var knownNumberKeys = stringset.NewFromSlice("seed", "random_count")

// Integers directly inside these groups are never dates.
var knownNumberGroups = stringset.NewFromSlice("ai_strategies")

// Quoted strings anywhere inside these groups are written unquoted by the
// game's plaintext writer.
var unquoteGroups = stringset.NewFromSlice(
	"settings", "setting", "perks", "ethnicities", "languages",
)

// Like unquoteGroups, but only within an alive_data group.
var unquoteGroupsInAliveData = stringset.NewFromSlice("perk")

type groupMode byte

const (
	modeEmpty groupMode = iota
	modeArray
	modeObject
	// modeHybrid is an array which switched to key=value pairs. A hidden group
	// is open on top of it.
	modeHybrid
)

type frame struct {
	key  string
	mode groupMode

	aliveData bool
	unquote   bool
}

// valueContext is what a tokenizer knows about the value it's about to emit.
type valueContext struct {
	// key is the name of the key the value belongs to. Positional values
	// belong to the key of their group.
	key string

	positional bool

	inAliveData bool
	unquote     bool
	knownNumber bool
}

// scope tracks the group nesting shared by both tokenizers, and queues the
// events they emit. It inserts hidden groups for hybrid containers.
type scope struct {
	frames  []frame
	pending []Event

	haveKey bool
	key     string
}

func newScope() scope {
	return scope{frames: []frame{{mode: modeObject}}}
}

func (s *scope) top() *frame {
	return &s.frames[len(s.frames)-1]
}

func (s *scope) depth() int {
	return len(s.frames) - 1
}

func (s *scope) emit(ev Event) {
	s.pending = append(s.pending, ev)
}

// pop returns the next queued event.
func (s *scope) pop() (Event, bool) {
	if len(s.pending) == 0 {
		return Event{}, false
	}
	ev := s.pending[0]
	s.pending = s.pending[1:]
	return ev, true
}

// onKey records a key named name and emits ev for it.
func (s *scope) onKey(ev Event, name string) {
	top := s.top()
	switch top.mode {
	case modeEmpty:
		top.mode = modeObject
	case modeArray:
		if s.depth() > 0 {
			top.mode = modeHybrid
			s.emit(OpenEvent(true))
		}
	}
	s.haveKey = true
	s.key = name
	s.emit(ev)
}

// context describes the next value. It must be called before onValue or
// onOpen.
func (s *scope) context() valueContext {
	top := s.top()
	ctx := valueContext{
		key:         top.key,
		positional:  !s.haveKey,
		inAliveData: top.aliveData,
		unquote:     top.unquote,
	}
	if s.haveKey {
		ctx.key = s.key
		ctx.knownNumber = knownNumberKeys.Has(s.key)
	}
	ctx.knownNumber = ctx.knownNumber || knownNumberGroups.Has(top.key)
	ctx.unquote = ctx.unquote || unquoteGroups.Has(ctx.key) ||
		(top.aliveData && unquoteGroupsInAliveData.Has(ctx.key))
	return ctx
}

func (s *scope) markElement() {
	if s.haveKey {
		s.haveKey = false
		return
	}
	if top := s.top(); top.mode == modeEmpty {
		top.mode = modeArray
	}
}

// onValue emits a scalar or token value.
func (s *scope) onValue(ev Event) {
	s.markElement()
	s.emit(ev)
}

// onOpen opens a group. The group belongs to the pending key, if any.
func (s *scope) onOpen() {
	ctx := s.context()
	parent := *s.top()
	s.markElement()

	key := ""
	if !ctx.positional {
		key = ctx.key
	}
	s.frames = append(s.frames, frame{
		key:       key,
		aliveData: parent.aliveData || key == "alive_data",
		unquote: parent.unquote || unquoteGroups.Has(key) ||
			(parent.aliveData && unquoteGroupsInAliveData.Has(key)),
	})
	s.emit(OpenEvent(false))
}

// onClose closes the innermost group.
func (s *scope) onClose() error {
	if s.depth() == 0 {
		return errors.Annotate(ErrUnbalancedGroups, "close without open").Err()
	}
	if s.haveKey {
		return errors.Annotate(ErrTruncatedInput, "key %q has no value", s.key).Err()
	}
	if s.top().mode == modeHybrid {
		s.emit(CloseEvent(true))
	}
	s.frames = s.frames[:len(s.frames)-1]
	s.emit(CloseEvent(false))
	return nil
}

// finish checks that the stream ended at the root.
func (s *scope) finish() error {
	if s.haveKey {
		return errors.Annotate(ErrTruncatedInput, "key %q has no value", s.key).Err()
	}
	if d := s.depth(); d != 0 {
		return errors.Annotate(ErrUnbalancedGroups, "%d group(s) left open", d).Err()
	}
	return nil
}
