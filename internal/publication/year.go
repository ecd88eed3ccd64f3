package publication

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// OlderKey is the file value of the catch-all year group.
const OlderKey = "older"

// OlderCutoff is the first year that gets its own group on import.
// Earlier years are folded into the "older" group.
const OlderCutoff = 2022

// ErrInvalidYear is returned when a year value is neither an integer nor "older".
var ErrInvalidYear = errors.New("invalid year")

// Year is either a calendar year or the "older" sentinel.
// The zero value is not a valid year.
type Year struct {
	value int
	older bool
}

// Older is the catch-all year group.
var Older = Year{older: true}

// CalendarYear returns a numeric year.
func CalendarYear(y int) Year {
	return Year{value: y}
}

// ParseYear parses "older" (any case) or a decimal year.
func ParseYear(s string) (Year, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, OlderKey) {
		return Older, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Year{}, fmt.Errorf("%w: %q", ErrInvalidYear, s)
	}
	return CalendarYear(n), nil
}

// Category maps a free-form publication year to the group it is filed under.
// Years before OlderCutoff and unparsable values land in Older.
func Category(s string) Year {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < OlderCutoff {
		return Older
	}
	return CalendarYear(n)
}

// IsOlder reports whether y is the catch-all group.
func (y Year) IsOlder() bool { return y.older }

// Int returns the numeric year, or 0 for Older.
func (y Year) Int() int { return y.value }

// String returns the file representation ("2023" or "older").
func (y Year) String() string {
	if y.older {
		return OlderKey
	}
	return strconv.Itoa(y.value)
}

// Heading returns the section heading shown on the page.
func (y Year) Heading() string {
	if y.older {
		return "Older"
	}
	return strconv.Itoa(y.value)
}

// Citation returns the year as written in exported citations.
func (y Year) Citation() string {
	if y.older {
		return "various"
	}
	return strconv.Itoa(y.value)
}

// MarshalJSON writes numeric years as numbers and Older as "older".
func (y Year) MarshalJSON() ([]byte, error) {
	if y.older {
		return json.Marshal(OlderKey)
	}
	return json.Marshal(y.value)
}

// UnmarshalJSON accepts a number, a numeric string, or "older".
func (y *Year) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		v, err := strconv.Atoi(n.String())
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidYear, n)
		}
		*y = CalendarYear(v)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidYear, string(data))
	}
	parsed, err := ParseYear(s)
	if err != nil {
		return err
	}
	*y = parsed
	return nil
}

// CompareYears orders years most recent first with Older after every
// calendar year. Two Older values compare equal.
func CompareYears(a, b Year) int {
	switch {
	case a.older && b.older:
		return 0
	case a.older:
		return 1
	case b.older:
		return -1
	}
	// Descending
	return b.value - a.value
}
