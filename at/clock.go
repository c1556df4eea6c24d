package at

import (
	"errors"
	"fmt"
	"time"
)

// ErrMalformedClock is returned when a +CCLK argument does not carry all
// seven fields, or one of them is out of range.
var ErrMalformedClock = errors.New("malformed clock string")

// Clock is a network time reading converted to local wall time.
type Clock struct {
	Time    time.Time
	Weekday time.Weekday
	// Offset is the GMT offset in hours as reported by the network.
	Offset int
}

// ParseClock parses a +CCLK argument of the form "2023/03/26,16:32:07GMT-4".
//
// The local hour is the reported hour minus the offset. A result of zero or
// less moves the date back one day and wraps the hour by 24.
func ParseClock(arg string) (Clock, error) {
	var y, mo, d, h, mi, s, gmt int
	n, err := fmt.Sscanf(Strip(arg), "%4d/%2d/%2d,%2d:%2d:%2dGMT%d", &y, &mo, &d, &h, &mi, &s, &gmt)
	if n != 7 {
		return Clock{}, fmt.Errorf("%w: %q: %d of 7 fields (%v)", ErrMalformedClock, arg, n, err)
	}
	if mo < 1 || mo > 12 || d < 1 || d > 31 || h < 0 || h > 23 || mi < 0 || mi > 59 || s < 0 || s > 59 {
		return Clock{}, fmt.Errorf("%w: %q: field out of range", ErrMalformedClock, arg)
	}

	h -= gmt
	if h <= 0 {
		h += 24
		d--
	}

	// time.Date normalises day 0 and hour 24 into the neighbouring unit.
	t := time.Date(y, time.Month(mo), d, h, mi, s, 0, time.UTC)
	return Clock{
		Time:    t,
		Weekday: Weekday(t.Year(), int(t.Month()), t.Day()),
		Offset:  gmt,
	}, nil
}

// Weekday computes the day of the week for a Gregorian date using the
// calendar congruence with January and February counted as months 13 and 14
// of the previous year. Sunday is 0.
func Weekday(year, month, day int) time.Weekday {
	if month < 3 {
		month += 12
		year--
	}
	// Zeller's congruence gives 0 for Saturday.
	k := year % 100
	j := year / 100
	h := (day + 13*(month+1)/5 + k + k/4 + j/4 + 5*j) % 7
	return time.Weekday((h + 6) % 7)
}
