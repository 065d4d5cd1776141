// Package staffing expands classified trips onto a calendar of pilots on
// duty per date.
package staffing

import (
	"sort"
	"time"

	"roster_parser/internal/classifier"
	"roster_parser/internal/daterange"
	"roster_parser/internal/roster"
)

// DateLayout is the calendar date format used in output.
const DateLayout = "2006-01-02"

// Entry is one pilot-day: a duty day of a trip in progress on a date.
type Entry struct {
	TripNumber string `json:"trip_number"`
	DutyDay    string `json:"duty_day"`
}

// Day is one calendar date with its pilot count.
type Day struct {
	Date       time.Time `json:"-"`
	DateString string    `json:"date"`
	PilotCount int       `json:"pilot_count"`
	Entries    []Entry   `json:"entries"`
}

// Calendar is the staffing calendar, ordered by ascending date.
type Calendar struct {
	Days []Day `json:"days"`

	// Unplaced counts trips that could not be put on the calendar: no
	// EFFECTIVE text, a date error, or no duty days.
	Unplaced int `json:"unplaced"`

	index map[string]int
}

// Lookup returns the calendar day for date, if any pilot is on duty.
func (c *Calendar) Lookup(date time.Time) (Day, bool) {
	key := date.Format(DateLayout)
	if c.index == nil {
		// Calendars decoded from JSON carry no index.
		for _, d := range c.Days {
			if d.DateString == key {
				return d, true
			}
		}
		return Day{}, false
	}
	i, ok := c.index[key]
	if !ok {
		return Day{}, false
	}
	return c.Days[i], true
}

// TotalPilotDays sums pilot counts across the calendar.
func (c *Calendar) TotalPilotDays() int {
	n := 0
	for _, d := range c.Days {
		n += d.PilotCount
	}
	return n
}

// ExpandToCalendar places every duty day of every trip on the date it is
// flown: the trip's start date plus the duty day's offset (A=+0, B=+1 ...).
// Start dates come from daterange.ExpandDates, so EXCEPT dates never start
// a trip.
func ExpandToCalendar(trips []classifier.ClassifiedTrip) *Calendar {
	byDate := make(map[string]*Day)
	cal := &Calendar{}

	for _, ct := range trips {
		trip := ct.Trip
		if trip == nil || ct.Malformed || !trip.HasDates() || ct.DateErr() != nil || len(trip.Days) == 0 {
			cal.Unplaced++
			continue
		}

		starts, err := daterange.ExpandDates(trip.Effective, trip.Weekdays, trip.Except, trip.Context.Month, trip.Context.Year)
		if err != nil {
			cal.Unplaced++
			continue
		}

		letters := dutyLetters(trip)
		for _, start := range starts {
			for _, letter := range letters {
				date := start.AddDate(0, 0, roster.DayIndex(letter))
				key := date.Format(DateLayout)
				day, ok := byDate[key]
				if !ok {
					day = &Day{Date: date, DateString: key}
					byDate[key] = day
				}
				day.Entries = append(day.Entries, Entry{TripNumber: trip.Number, DutyDay: letter})
				day.PilotCount++
			}
		}
	}

	cal.Days = make([]Day, 0, len(byDate))
	for _, d := range byDate {
		cal.Days = append(cal.Days, *d)
	}
	sort.Slice(cal.Days, func(i, j int) bool { return cal.Days[i].Date.Before(cal.Days[j].Date) })

	cal.index = make(map[string]int, len(cal.Days))
	for i, d := range cal.Days {
		cal.index[d.DateString] = i
	}
	return cal
}

// dutyLetters returns the trip's duty-day letters in A..E order.
func dutyLetters(trip *roster.Trip) []string {
	var letters []string
	for _, l := range roster.DayLetters {
		letter := string(l)
		for _, d := range trip.Days {
			if d.Letter == letter {
				letters = append(letters, letter)
				break
			}
		}
	}
	return letters
}
