// Package eta does the wall clock arithmetic for arrival estimates.
//
// Estimates are stored as 24h "HH:MM" strings. The distance to an estimate is
// always taken forward to its next occurrence, so a time slightly in the past
// reads as almost a day away. That is a known approximation.
package eta

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	TBD = "TBD"

	// Far is the distance of an estimate that can't be parsed.
	Far = 99999

	day = 24 * 60
)

const (
	Format24h = "24h"
	Format12h = "12h"
)

type Preset struct {
	Label   string
	Minutes int
}

var Presets = []Preset{
	{"10m", 10},
	{"20m", 20},
	{"30m", 30},
	{"40m", 40},
	{"50m", 50},
	{"60m", 60},
}

// ParseClock returns minutes since midnight of a "HH:MM" string.
func ParseClock(s string) (int, bool) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, false
	}

	hours, err := strconv.Atoi(h)
	if err != nil || hours < 0 || hours > 23 {
		return 0, false
	}

	minutes, err := strconv.Atoi(m)
	if err != nil || minutes < 0 || minutes > 59 || len(m) != 2 {
		return 0, false
	}

	return hours*60 + minutes, true
}

// Distance is the number of minutes from current to the next occurrence of target.
func Distance(target, current int) int {
	return ((target-current)%day + day) % day
}

func clockMinutes(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// MinutesUntil returns the distance from now to eta, or Far when eta is not a clock time.
func MinutesUntil(eta string, now time.Time) int {
	target, ok := ParseClock(eta)
	if !ok {
		return Far
	}

	return Distance(target, clockMinutes(now))
}

// FromNow returns the clock time minutes after now.
func FromNow(minutes int, now time.Time) string {
	return now.Add(time.Duration(minutes) * time.Minute).Format("15:04")
}

// Display renders a clock eta in the given format. Values that are not clock
// times are returned unchanged.
func Display(eta string, format string) string {
	if format != Format12h {
		return eta
	}

	m, ok := ParseClock(eta)
	if !ok {
		return eta
	}

	h := m / 60
	suffix := "AM"

	if h >= 12 {
		suffix = "PM"
	}

	h %= 12
	if h == 0 {
		h = 12
	}

	return fmt.Sprintf("%d:%02d %s", h, m%60, suffix)
}
