package daterange

import (
	"regexp"
	"strings"
	"time"
)

// Weekdays is a day-of-week mask.
type Weekdays uint8

var weekdayCodes = []struct {
	code string
	day  time.Weekday
}{
	{"MO", time.Monday},
	{"TU", time.Tuesday},
	{"WE", time.Wednesday},
	{"TH", time.Thursday},
	{"FR", time.Friday},
	{"SA", time.Saturday},
	{"SU", time.Sunday},
}

var weekdayRe = regexp.MustCompile(`\b(MO|TU|WE|TH|FR|SA|SU)\b`)

// ParseWeekdays collects every two-letter day code (MO..SU) in text.
func ParseWeekdays(text string) Weekdays {
	var w Weekdays
	for _, m := range weekdayRe.FindAllString(strings.ToUpper(text), -1) {
		for _, wc := range weekdayCodes {
			if wc.code == m {
				w = w.With(wc.day)
			}
		}
	}
	return w
}

// With returns the mask with d added.
func (w Weekdays) With(d time.Weekday) Weekdays { return w | 1<<uint(d) }

// Has reports whether d is in the mask.
func (w Weekdays) Has(d time.Weekday) bool { return w&(1<<uint(d)) != 0 }

// Empty reports whether no day is set.
func (w Weekdays) Empty() bool { return w == 0 }

// Codes returns the day codes in Monday-first order.
func (w Weekdays) Codes() []string {
	var codes []string
	for _, wc := range weekdayCodes {
		if w.Has(wc.day) {
			codes = append(codes, wc.code)
		}
	}
	return codes
}

func (w Weekdays) String() string { return strings.Join(w.Codes(), " ") }
