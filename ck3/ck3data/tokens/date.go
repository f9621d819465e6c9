// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package tokens

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.chromium.org/luci/common/errors"
)

// daysPerMonth is indexed by month (1-12). The game calendar has no leap
// years.
var daysPerMonth = [13]int{0, 31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// daysBeforeMonth[m] is the number of days in the year before month m starts.
var daysBeforeMonth = [13]int{0, 0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334}

// binaryYearOffset is added to the year of dates stored in the binary
// encoding.
const binaryYearOffset = 5000

// Date is a date in the game's calendar, where every year has 365 days.
//
// The zero Date is not a valid date.
type Date struct {
	Year  uint16
	Month uint8
	Day   uint8
}

// NewDate returns the Date for the given parts, and false if the date doesn't
// exist in the game calendar.
func NewDate(year, month, day int) (Date, bool) {
	if year < 1 || year > 0xffff || month < 1 || month > 12 || day < 1 {
		return Date{}, false
	}
	if day > daysPerMonth[month] {
		return Date{}, false
	}
	return Date{uint16(year), uint8(month), uint8(day)}, true
}

// ParseDate parses dates in the game format ("1066.9.15", leading zeros
// permitted) and in ISO 8601 format ("1066-09-15").
func ParseDate(s string) (Date, bool) {
	sep := "."
	if strings.Contains(s, "-") {
		sep = "-"
	}
	parts := strings.Split(s, sep)
	if len(parts) != 3 {
		return Date{}, false
	}
	var nums [3]int
	for i, p := range parts {
		if p == "" || len(p) > 5 {
			return Date{}, false
		}
		for _, c := range []byte(p) {
			if c < '0' || c > '9' {
				return Date{}, false
			}
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return Date{}, false
		}
		nums[i] = n
	}
	return NewDate(nums[0], nums[1], nums[2])
}

// DateFromBinary decodes the integer form of a date used by the binary
// encoding: the number of hours since the start of year -5000.
//
// Integers which carry a non-zero hour, or which land before year 1, are not
// considered dates.
func DateFromBinary(v int32) (Date, bool) {
	if v < 0 || v%24 != 0 {
		return Date{}, false
	}
	days := int(v / 24)
	year := days/365 - binaryYearOffset
	if year < 1 {
		return Date{}, false
	}
	month, day := monthDay(days % 365)
	return NewDate(year, month, day)
}

// Binary returns the integer form of d used by the binary encoding.
func (d Date) Binary() int32 {
	return int32((int(d.Year)+binaryYearOffset)*365+d.dayOfYear()) * 24
}

func (d Date) dayOfYear() int {
	return daysBeforeMonth[d.Month] + int(d.Day) - 1
}

func monthDay(dayOfYear int) (month, day int) {
	month = 12
	for month > 1 && daysBeforeMonth[month] > dayOfYear {
		month--
	}
	return month, dayOfYear - daysBeforeMonth[month] + 1
}

// Days returns the number of days since the start of year 0.
func (d Date) Days() int {
	return int(d.Year)*365 + d.dayOfYear()
}

// DaysUntil returns the number of days from d to other. It's negative if other
// is earlier than d.
func (d Date) DaysUntil(other Date) int {
	return other.Days() - d.Days()
}

// AddDays returns the date n days after d (or before, if n is negative).
func (d Date) AddDays(n int) Date {
	total := d.Days() + n
	month, day := monthDay(total % 365)
	return Date{uint16(total / 365), uint8(month), uint8(day)}
}

// Before returns true iff d is earlier than other.
func (d Date) Before(other Date) bool {
	return d.Days() < other.Days()
}

// GameFormat renders d as the game writes it, e.g. "1066.9.15".
func (d Date) GameFormat() string {
	return fmt.Sprintf("%d.%d.%d", d.Year, d.Month, d.Day)
}

// ISO8601 renders d as YYYY-MM-DD.
func (d Date) ISO8601() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d Date) String() string {
	return d.GameFormat()
}

// MarshalJSON renders the date as an ISO 8601 string.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.ISO8601())
}

// UnmarshalJSON accepts either date string format, or the binary integer
// encoding.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n int32
		if err := json.Unmarshal(data, &n); err != nil {
			return errors.Reason("date must be a string or integer, got %s", data).Err()
		}
		var ok bool
		if *d, ok = DateFromBinary(n); !ok {
			return errors.Reason("could not convert %d to a date", n).Err()
		}
		return nil
	}
	var ok bool
	if *d, ok = ParseDate(s); !ok {
		return errors.Reason("invalid date: %q", s).Err()
	}
	return nil
}
