package logdate

import (
	"fmt"
	"strings"
	"time"
)

// FormatSet selects how many string renderings of a date are tried when
// matching titles.
type FormatSet string

const (
	// FormatSetBasic renders the four canonical zero-padded forms.
	FormatSetBasic FormatSet = "basic"
	// FormatSetFull adds every padded/non-padded month and day combination.
	FormatSetFull FormatSet = "full"
)

const compactLayout = "20060102"

// Valid reports whether s names a known format set.
func (s FormatSet) Valid() bool {
	return s == FormatSetBasic || s == FormatSetFull
}

type family struct {
	sep    [2]string
	suffix string
}

// Order matters only for short-circuiting: compact first, CJK last.
var families = []family{
	{sep: [2]string{"", ""}},
	{sep: [2]string{"-", "-"}},
	{sep: [2]string{"/", "/"}},
	{sep: [2]string{"年", "月"}, suffix: "日"},
}

// Formats renders d in every representation the set allows. The result is
// never empty and always starts with the compact YYYYMMDD form.
func Formats(d time.Time, set FormatSet) []string {
	y, m, day := d.Date()

	variants := [][2]bool{{true, true}}
	if set != FormatSetBasic {
		variants = append(variants, [2]bool{true, false}, [2]bool{false, true}, [2]bool{false, false})
	}

	out := make([]string, 0, len(families)*len(variants))
	seen := make(map[string]struct{}, cap(out))
	for _, f := range families {
		for _, v := range variants {
			s := fmt.Sprintf("%04d%s%s%s%s%s", y, f.sep[0], pad(int(m), v[0]), f.sep[1], pad(day, v[1]), f.suffix)
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

func pad(n int, zero bool) string {
	if zero {
		return fmt.Sprintf("%02d", n)
	}
	return fmt.Sprintf("%d", n)
}

// Compact renders d as YYYYMMDD.
func Compact(d time.Time) string {
	return d.Format(compactLayout)
}

// ParseCompact parses a YYYYMMDD string in loc.
func ParseCompact(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(compactLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("logdate: parse %q: %w", s, err)
	}
	return t, nil
}

// ParseDay accepts YYYY-MM-DD or YYYYMMDD in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}
	return ParseCompact(s, loc)
}

// CompactAll renders each date in dates with Compact, keeping order.
func CompactAll(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = Compact(d)
	}
	return out
}
