package logdate

import (
	"strings"
	"time"
)

// Matcher decides which dates are covered by a set of note titles.
type Matcher struct {
	Set FormatSet
}

// NewMatcher returns a Matcher for set, falling back to FormatSetFull for
// unknown values.
func NewMatcher(set FormatSet) Matcher {
	if !set.Valid() {
		set = FormatSetFull
	}
	return Matcher{Set: set}
}

// IsCovered reports whether any title contains one of d's renderings.
//
// A rendering only counts when it is not glued to further digits, so
// "2026012" (January 2nd, unpadded day) does not match inside "20260128".
func (m Matcher) IsCovered(d time.Time, titles []string) bool {
	formats := Formats(d, m.Set)
	for _, title := range titles {
		for _, f := range formats {
			if containsWhole(title, f) {
				return true
			}
		}
	}
	return false
}

// MissingDates returns the dates in window that no title covers, in the
// order they appear in window.
func (m Matcher) MissingDates(window []time.Time, titles []string) []time.Time {
	var out []time.Time
	for _, d := range window {
		if !m.IsCovered(d, titles) {
			out = append(out, d)
		}
	}
	return out
}

func containsWhole(s, sub string) bool {
	for from := 0; from <= len(s)-len(sub); {
		i := strings.Index(s[from:], sub)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(sub)
		if !digitAt(s, start-1) && !digitAt(s, end) {
			return true
		}
		from = start + 1
	}
	return false
}

func digitAt(s string, i int) bool {
	return i >= 0 && i < len(s) && s[i] >= '0' && s[i] <= '9'
}
