// Package daterange resolves roster EFFECTIVE expressions into concrete
// operating dates.
//
// An expression names either a single date ("JAN01 ONLY") or an inclusive
// range ("JAN21-JAN. 28", "DEC31-JAN.09"). Combined with a day-of-week mask
// and a list of EXCEPT dates it yields the calendar dates a trip operates on.
// Resolve and ExpandDates share one code path so occurrence counts and
// calendar placement can never disagree.
package daterange

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedDateExpression is returned when an EFFECTIVE or EXCEPT text
// cannot be decomposed into month+day tokens.
var ErrMalformedDateExpression = errors.New("malformed date expression")

// Kind identifies the shape of an EFFECTIVE expression.
type Kind int

const (
	KindNone Kind = iota
	KindSingle
	KindRange
)

func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindRange:
		return "range"
	default:
		return "none"
	}
}

// MonthDay is a month-day token without a year. Month is zero when the
// token carried no month abbreviation.
type MonthDay struct {
	Month time.Month
	Day   int
}

func (md MonthDay) String() string {
	if md.Month == 0 {
		return fmt.Sprintf("%02d", md.Day)
	}
	return fmt.Sprintf("%s%02d", monthAbbrev[md.Month], md.Day)
}

// Expression is a parsed EFFECTIVE expression.
type Expression struct {
	Raw   string   `json:"raw"`
	Kind  Kind     `json:"-"`
	Start MonthDay `json:"-"`
	End   MonthDay `json:"-"`
	Mask  Weekdays `json:"-"` // day-of-week tokens found inside the expression
}

var months = map[string]time.Month{
	"JAN": time.January, "FEB": time.February, "MAR": time.March,
	"APR": time.April, "MAY": time.May, "JUN": time.June,
	"JUL": time.July, "AUG": time.August, "SEP": time.September,
	"OCT": time.October, "NOV": time.November, "DEC": time.December,
}

var monthAbbrev = map[time.Month]string{}

func init() {
	for k, v := range months {
		monthAbbrev[v] = k
	}
}

// JAN21, JAN. 28, JAN 1, 09
var dateTokenRe = regexp.MustCompile(`(?:([A-Z]{3})\.?\s*)?(\d+)`)

// Parse decomposes an EFFECTIVE expression into its date tokens.
func Parse(raw string) (Expression, error) {
	expr := Expression{Raw: strings.TrimSpace(raw)}
	text := strings.ToUpper(expr.Raw)
	if text == "" {
		return expr, fmt.Errorf("%w: empty expression", ErrMalformedDateExpression)
	}

	expr.Mask = ParseWeekdays(text)

	tokens, err := parseTokens(text)
	if err != nil {
		return expr, err
	}

	only := strings.Contains(text, "ONLY")
	switch {
	case len(tokens) == 1:
		expr.Kind = KindSingle
		expr.Start = tokens[0]
		expr.End = tokens[0]
	case len(tokens) == 2 && !only && strings.Contains(text, "-"):
		expr.Kind = KindRange
		expr.Start = tokens[0]
		expr.End = tokens[1]
		// JAN21-28: the end inherits the start month.
		if expr.End.Month == 0 {
			expr.End.Month = expr.Start.Month
		}
	case len(tokens) == 0:
		return expr, fmt.Errorf("%w: no month/day token in %q", ErrMalformedDateExpression, expr.Raw)
	default:
		return expr, fmt.Errorf("%w: cannot interpret %q", ErrMalformedDateExpression, expr.Raw)
	}

	return expr, nil
}

// ParseExcept extracts the dates from an EXCEPT line. The EXCEPT keyword
// itself is optional.
func ParseExcept(text string) ([]MonthDay, error) {
	upper := strings.ToUpper(text)
	if idx := strings.Index(upper, "EXCEPT"); idx >= 0 {
		upper = upper[idx+len("EXCEPT"):]
	}
	tokens, err := parseTokens(upper)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: no EXCEPT dates in %q", ErrMalformedDateExpression, strings.TrimSpace(text))
	}
	return tokens, nil
}

func parseTokens(text string) ([]MonthDay, error) {
	var tokens []MonthDay
	for _, m := range dateTokenRe.FindAllStringSubmatch(text, -1) {
		md := MonthDay{}
		if m[1] != "" {
			mon, ok := months[m[1]]
			if !ok {
				return nil, fmt.Errorf("%w: unknown month %q", ErrMalformedDateExpression, m[1])
			}
			md.Month = mon
		}
		day, err := strconv.Atoi(m[2])
		if err != nil || day < 1 || day > 31 {
			return nil, fmt.Errorf("%w: bad day %q", ErrMalformedDateExpression, m[2])
		}
		md.Day = day
		tokens = append(tokens, md)
	}
	return tokens, nil
}

// Resolve returns the number of operating dates for an expression.
func Resolve(expr Expression, mask Weekdays, except []MonthDay, month, year int) (int, error) {
	dates, err := ExpandDates(expr, mask, except, month, year)
	if err != nil {
		return 0, err
	}
	return len(dates), nil
}

// ExpandDates returns the ascending operating dates for an expression.
//
// The start date falls in year. When the end month precedes the start
// month the range crosses the year boundary and the end falls in year+1.
// Tokens without a month take it from month. The mask is the union of the
// given weekdays and any found inside the expression; an empty mask
// matches every date. EXCEPT dates are removed by exact date match.
func ExpandDates(expr Expression, mask Weekdays, except []MonthDay, month, year int) ([]time.Time, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month %d out of range", ErrMalformedDateExpression, month)
	}
	if expr.Kind == KindNone {
		return nil, fmt.Errorf("%w: no expression", ErrMalformedDateExpression)
	}

	startMD := withMonth(expr.Start, time.Month(month))
	endMD := withMonth(expr.End, startMD.Month)

	start, err := makeDate(year, startMD)
	if err != nil {
		return nil, err
	}
	endYear := year
	if endMD.Month < startMD.Month {
		endYear = year + 1
	}
	end, err := makeDate(endYear, endMD)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: %q ends before it starts", ErrMalformedDateExpression, expr.Raw)
	}

	excluded := make(map[time.Time]bool, len(except))
	for _, md := range except {
		md = withMonth(md, startMD.Month)
		y := year
		if endYear > year && md.Month < startMD.Month {
			y = endYear
		}
		// An impossible EXCEPT date can never match; skip it.
		if d, err := makeDate(y, md); err == nil {
			excluded[d] = true
		}
	}

	mask |= expr.Mask

	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if !mask.Empty() && !mask.Has(d.Weekday()) {
			continue
		}
		if excluded[d] {
			continue
		}
		dates = append(dates, d)
	}
	return dates, nil
}

func withMonth(md MonthDay, fallback time.Month) MonthDay {
	if md.Month == 0 {
		md.Month = fallback
	}
	return md
}

func makeDate(year int, md MonthDay) (time.Time, error) {
	d := time.Date(year, md.Month, md.Day, 0, 0, 0, 0, time.UTC)
	if d.Month() != md.Month || d.Day() != md.Day {
		return time.Time{}, fmt.Errorf("%w: %s is not a date in %d", ErrMalformedDateExpression, md, year)
	}
	return d, nil
}
