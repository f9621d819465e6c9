// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package tokens

import (
	"fmt"
	"math"
	"sort"

	"go.chromium.org/luci/common/data/stringset"
)

// float32Epsilon is the difference between 1 and the next float32 above it.
//
// The fixed point decoders nudge values by this amount away from zero so that
// binary and plaintext saves of the same game state agree on the decoded
// value.
const float32Epsilon = 1.0 / (1 << 23)

const altPrecision = 5

// FloatLayout is one of the decodings of the 8 byte f64 element.
type FloatLayout byte

// These are the known f64 layouts.
const (
	// LayoutMilli is a signed fixed point value with 3 decimal digits.
	LayoutMilli FloatLayout = iota + 1

	// LayoutFixed5 is a signed fixed point value with 5 decimal digits.
	LayoutFixed5

	// LayoutQ4915 is a Q49.15 binary fixed point value, rendered with 5
	// decimal digits. It's stored on the wire as if it were LayoutMilli.
	LayoutQ4915
)

func (l FloatLayout) String() string {
	switch l {
	case LayoutMilli:
		return "milli"
	case LayoutFixed5:
		return "fixed5"
	case LayoutQ4915:
		return "q49.15"
	}
	return fmt.Sprintf("FloatLayout(%d)", byte(l))
}

// Decode returns the Scalar for the raw little endian f64 payload.
func (l FloatLayout) Decode(raw int64) Scalar {
	switch l {
	case LayoutFixed5:
		x := float64(raw)
		return F64(math.Trunc(x+math.Copysign(float32Epsilon, x))/100000, 5)
	case LayoutQ4915:
		return F64Alt(reencodeQ4915(float64(raw) / 1000))
	}
	return F64(float64(raw)/1000, 3)
}

// reencodeQ4915 undoes the milli decoding of v and decodes the raw value
// again as Q49.15.
func reencodeQ4915(v float64) float64 {
	f := v * 1000
	num := math.Trunc(f/32768*100000 + math.Copysign(float32Epsilon, f))
	return num / 100000
}

// FloatEpoch describes how f64 values are decoded from one save_game_version
// onward.
type FloatEpoch struct {
	// MinVersion is the first save_game_version this epoch applies to.
	MinVersion int

	// Standard is the layout for every key not listed below.
	Standard FloatLayout

	// Alternate is used for AlternateKeys and AlternateInAliveData. Zero means
	// this epoch has no alternate layout.
	Alternate FloatLayout

	// AlternateKeys use the Alternate layout wherever they appear.
	AlternateKeys stringset.Set

	// AlternateInAliveData use the Alternate layout only within an alive_data
	// group.
	AlternateInAliveData stringset.Set

	// UnquoteKeys are keys whose quoted string values the game writes
	// unquoted in plaintext saves.
	UnquoteKeys stringset.Set
}

// Layout returns the layout for an f64 attached to key.
func (e *FloatEpoch) Layout(key string, inAliveData bool) FloatLayout {
	if e.Alternate == 0 {
		return e.Standard
	}
	if e.AlternateKeys.Has(key) || (inAliveData && e.AlternateInAliveData.Has(key)) {
		return e.Alternate
	}
	return e.Standard
}

// FloatTable is a set of FloatEpochs ordered by MinVersion.
type FloatTable []FloatEpoch

// Epoch returns the epoch which applies to the given save_game_version.
// Versions before the first epoch use the first epoch.
func (t FloatTable) Epoch(version int) *FloatEpoch {
	i := sort.Search(len(t), func(i int) bool { return t[i].MinVersion > version })
	if i == 0 {
		return &t[0]
	}
	return &t[i-1]
}

var baseUnquoteKeys = []string{
	"save_game_version",
	"portraits_version",
	"meta_date",
	"color1",
	"color2",
	"color3",
	"color4",
	"color5",
	"traits_lookup",
	"features",
	"modifiers",
	"traditions",
	"name_list",
}

// DefaultFloatTable covers the released game versions: before save version 6
// (game 1.5) a handful of keys use Q49.15, afterwards all values are plain
// fixed point with 5 digits.
var DefaultFloatTable = FloatTable{
	{
		MinVersion: 0,
		Standard:   LayoutMilli,
		Alternate:  LayoutQ4915,
		AlternateKeys: stringset.NewFromSlice(
			"vassal_power_value",
			"budget_war_chest",
			"budget_short_term",
			"budget_long_term",
			"budget_reserved",
			"damage_last_tick",
		),
		AlternateInAliveData: stringset.NewFromSlice("gold"),
		UnquoteKeys:          stringset.NewFromSlice(baseUnquoteKeys...),
	},
	{
		MinVersion:  6,
		Standard:    LayoutFixed5,
		UnquoteKeys: stringset.NewFromSlice(append(baseUnquoteKeys, "localization_key")...),
	},
}
