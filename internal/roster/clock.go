package roster

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MinutesPerDay is the wrap point for Clock arithmetic.
const MinutesPerDay = 1440

// ErrInvalidTime is returned for time tokens outside 0000-2359.
var ErrInvalidTime = errors.New("invalid time token")

// Clock is a time of day in minutes after midnight (0-1439).
type Clock int

// ParseClock parses a time of day. Accepts "0830", "0830*" (the asterisk
// marks a next-day or changed time in roster exports), "08:30" and "08.30".
// Leg columns use the stricter ParseLegTime.
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "*")

	var hh, mm string
	switch {
	case strings.ContainsAny(s, ":."):
		parts := strings.FieldsFunc(s, func(r rune) bool { return r == ':' || r == '.' })
		if len(parts) != 2 || len(parts[1]) != 2 || len(parts[0]) == 0 || len(parts[0]) > 2 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
		}
		hh, mm = parts[0], parts[1]
	case len(s) == 4:
		hh, mm = s[:2], s[2:]
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}

	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return Clock(h*60 + m), nil
}

// ParseLegTime parses a leg time column: exactly four digits HHMM with an
// optional trailing asterisk. Separators and short tokens are rejected.
func ParseLegTime(s string) (Clock, error) {
	tok := strings.TrimSpace(s)
	digits := strings.TrimSuffix(tok, "*")
	if len(digits) != 4 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, tok)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTime, tok)
		}
	}
	return ParseClock(digits)
}

// NewClock builds a Clock from hours and minutes.
func NewClock(h, m int) Clock { return Clock(h*60 + m).Add(0) }

// Add returns c shifted by minutes, wrapping around midnight.
func (c Clock) Add(minutes int) Clock {
	v := (int(c) + minutes) % MinutesPerDay
	if v < 0 {
		v += MinutesPerDay
	}
	return Clock(v)
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

// String renders HH:MM.
func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute()) }

// HHMM renders the four-digit roster form.
func (c Clock) HHMM() string { return fmt.Sprintf("%02d%02d", c.Hour(), c.Minute()) }

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON handles fields that can be "HH:MM", "HHMM" or a number
// in HHMM form (830 for 08:30).
func (c *Clock) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		parsed, err := ParseClock(fmt.Sprintf("%04d", n))
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTime, string(data))
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
