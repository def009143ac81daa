package runconfig

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the layout of absolute dates in a configuration file
const DateLayout = "2006-01-02"

var macroRegex = regexp.MustCompile(`^:YYYYMMDD(?:-(\d+))?$`)

// DateSpec is either an absolute date (2024-01-31) or a macro relative to
// the day of the run: ":YYYYMMDD" is today, ":YYYYMMDD-N" is N days before today.
type DateSpec string

// Resolve returns the calendar day the spec denotes, at midnight in now's location
func (d DateSpec) Resolve(now time.Time) (time.Time, error) {
	s := strings.TrimSpace(string(d))
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if strings.HasPrefix(s, ":") {
		m := macroRegex.FindStringSubmatch(s)
		if m == nil {
			return time.Time{}, fmt.Errorf("invalid date macro %q (expected :YYYYMMDD or :YYYYMMDD-N)", s)
		}
		days := 0
		if m[1] != "" {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				return time.Time{}, fmt.Errorf("invalid date macro %q: %w", s, err)
			}
			days = n
		}
		return Day(now).AddDate(0, 0, -days), nil
	}

	t, err := time.ParseInLocation(DateLayout, s, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD or :YYYYMMDD-N)", s)
	}
	return t, nil
}

// Day truncates t to midnight in its own location
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
