// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ck3

import (
	"bytes"
	"encoding/json"

	"go.chromium.org/luci/common/errors"

	"github.com/rakaly/ck3save/ck3/ck3data/tokens"
)

// Header is the metadata block of a save.
type Header struct {
	MetaData Metadata `json:"meta_data"`
}

// Metadata describes a save without reading its gamestate.
type Metadata struct {
	SaveGameVersion  int         `json:"save_game_version"`
	Version          string      `json:"version"`
	PortraitsVersion int         `json:"portraits_version"`
	MetaDate         tokens.Date `json:"meta_date"`
	MetaPlayerName   string      `json:"meta_player_name"`
	MetaTitleName    string      `json:"meta_title_name"`
}

// Gamestate is a small, commonly useful subset of a save's body.
type Gamestate struct {
	MetaData        Metadata                   `json:"meta_data"`
	Date            tokens.Date                `json:"date"`
	PlayedCharacter PlayedCharacter            `json:"played_character"`
	TraitsLookup    []string                   `json:"traits_lookup"`
	Living          map[uint64]LivingCharacter `json:"living"`
	Provinces       map[uint64]Province        `json:"provinces"`
	Dynasties       Dynasties                  `json:"dynasties"`
	Religion        Religions                  `json:"religion"`
}

// isEmptyGroup is true for the JSON rendering of `{ }`, which doesn't know
// whether it was meant as an object or a list.
func isEmptyGroup(data []byte) bool {
	return bytes.Equal(bytes.Join(bytes.Fields(data), nil), []byte("[]"))
}

// MaybeObject is a table entry which is either an object or a bare word. The
// game writes `123=none` in place of entries it has deleted.
type MaybeObject[T any] struct {
	// Text is set when the entry is a word.
	Text string
	// Object is set when the entry is an object.
	Object *T
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *MaybeObject[T]) UnmarshalJSON(data []byte) error {
	*m = MaybeObject[T]{}
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		return nil
	case len(trimmed) > 0 && trimmed[0] == '"':
		return json.Unmarshal(trimmed, &m.Text)
	case isEmptyGroup(trimmed):
		m.Object = new(T)
		return nil
	case len(trimmed) > 0 && trimmed[0] == '{':
		m.Object = new(T)
		return json.Unmarshal(trimmed, m.Object)
	}
	return errors.Reason("expected an object or a string, got %q", trimmed).Err()
}

// MarshalJSON implements json.Marshaler.
func (m MaybeObject[T]) MarshalJSON() ([]byte, error) {
	if m.Object != nil {
		return json.Marshal(m.Object)
	}
	return json.Marshal(m.Text)
}

// Dynasties holds the house and dynasty tables.
type Dynasties struct {
	DynastyHouse map[uint64]MaybeObject[DynastyHouse] `json:"dynasty_house"`
	Dynasties    map[uint64]MaybeObject[Dynasty]      `json:"dynasties"`
}

// DynastyHouse is one entry of the houses table.
type DynastyHouse struct {
	Name    string  `json:"name"`
	Dynasty *uint64 `json:"dynasty"`
}

// Dynasty is one entry of the dynasties table.
type Dynasty struct {
	Key string `json:"key"`
}

// Province is one entry of the provinces table.
type Province struct {
	Holding   Holding `json:"holding"`
	FortLevel *uint64 `json:"fort_level"`
}

// UnmarshalJSON implements json.Unmarshaler. Provinces without a holding are
// written as `{ }`.
func (p *Province) UnmarshalJSON(data []byte) error {
	type plain Province
	*p = Province{}
	if isEmptyGroup(data) {
		return nil
	}
	return json.Unmarshal(data, (*plain)(p))
}

// Holding is the settlement of a province.
type Holding struct {
	Type      string     `json:"type"`
	Buildings []Building `json:"buildings"`
	Levy      *uint64    `json:"levy"`
	Garrison  *uint64    `json:"garrison"`
	Income    *float64   `json:"income"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (h *Holding) UnmarshalJSON(data []byte) error {
	type plain Holding
	*h = Holding{}
	if isEmptyGroup(data) {
		return nil
	}
	return json.Unmarshal(data, (*plain)(h))
}

// Building is one building slot of a holding. Empty slots have no type.
type Building struct {
	Type string `json:"type"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *Building) UnmarshalJSON(data []byte) error {
	type plain Building
	*b = Building{}
	if isEmptyGroup(data) {
		return nil
	}
	return json.Unmarshal(data, (*plain)(b))
}

// PlayedCharacter is the player's current character.
type PlayedCharacter struct {
	Name      string `json:"name"`
	Character uint64 `json:"character"`
}

// LivingCharacter is one entry of the living characters table.
type LivingCharacter struct {
	FirstName    string       `json:"first_name"`
	Birth        *tokens.Date `json:"birth"`
	Female       bool         `json:"female"`
	DynastyHouse *uint64      `json:"dynasty_house"`
	Skill        []int        `json:"skill"`
	Traits       []int        `json:"traits"`
	Faith        *uint64      `json:"faith"`
	AliveData    *AliveData   `json:"alive_data"`
}

// AliveData holds the parts of a character which only exist while alive.
type AliveData struct {
	Gold      *float64 `json:"gold"`
	Health    *float64 `json:"health"`
	Income    *float64 `json:"income"`
	Fertility *float64 `json:"fertility"`
	Faith     *uint64  `json:"faith"`
}

// Religions holds the religion and faith tables.
type Religions struct {
	Religions map[uint64]Religion `json:"religions"`
	Faiths    map[uint64]Faith    `json:"faiths"`
}

// Religion is one entry of the religions table.
type Religion struct {
	Tag    string `json:"tag"`
	Family string `json:"family"`
}

// Faith is one entry of the faiths table.
type Faith struct {
	Tag      string `json:"tag"`
	Religion uint64 `json:"religion"`
}
