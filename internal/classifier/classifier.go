// Package classifier derives per-trip scheduling attributes: base, trip
// length, red-eye exposure, credit category, commutability and weight.
package classifier

import (
	"fmt"

	"github.com/shopspring/decimal"

	"roster_parser/internal/daterange"
	"roster_parser/internal/roster"
)

// Red-eye thresholds, in minutes after midnight. Both apply to the same leg
// and the arrival is compared without next-day rollover.
const (
	RedEyeDeparture = 20 * 60
	RedEyeArrival   = 2 * 60
)

// Report and release offsets in minutes.
const (
	ReportBefore = 60
	ReleaseAfter = 45
)

// CommuteThresholds are the latest release and earliest report times a
// commuting pilot can work with.
type CommuteThresholds struct {
	Front roster.Clock `json:"front"`
	Back  roster.Clock `json:"back"`
}

// DefaultThresholds returns front 10:00 and back 20:00.
func DefaultThresholds() CommuteThresholds {
	return CommuteThresholds{Front: roster.NewClock(10, 0), Back: roster.NewClock(20, 0)}
}

// ClassifiedTrip is the immutable classification of one trip.
type ClassifiedTrip struct {
	Number string `json:"trip_number"`
	Base   string `json:"base"`

	// Occurrences is the trip's weight in aggregates: resolved operating
	// dates, 1 when the trip carries no EFFECTIVE text, 0 on a date error.
	Occurrences int    `json:"occurrences"`
	HasDates    bool   `json:"has_dates"`
	DateError   string `json:"date_error,omitempty"`

	BaseLength     int  `json:"base_length"`
	AdjustedLength int  `json:"adjusted_length"`
	OneLegLastDay  bool `json:"one_leg_last_day"`
	RedEye         bool `json:"red_eye"`
	FinalLegRedEye bool `json:"final_leg_red_eye"`

	Credit   decimal.NullDecimal `json:"credit"`
	Overage  decimal.NullDecimal `json:"cr"`
	Category CreditCategory      `json:"credit_category,omitempty"`
	TAFB     decimal.NullDecimal `json:"tafb"`

	Report       roster.Clock `json:"report"`
	ReportValid  bool         `json:"report_valid"`
	Release      roster.Clock `json:"release"`
	ReleaseValid bool         `json:"release_valid"`

	FrontCommutable bool `json:"front_commutable"`
	BackCommutable  bool `json:"back_commutable"`
	BothCommutable  bool `json:"both_commutable"`

	Malformed bool           `json:"malformed"`
	Issues    []roster.Issue `json:"issues,omitempty"`

	Trip *roster.Trip `json:"-"`
	err  error
}

// DateErr returns the date resolution error, if any.
func (c ClassifiedTrip) DateErr() error { return c.err }

// HasCredit reports whether the trip carried a TL value.
func (c ClassifiedTrip) HasCredit() bool { return c.Credit.Valid }

// IsRedEye applies the literal red-eye test to a single leg.
func IsRedEye(leg roster.FlightLeg) bool {
	return int(leg.DepTime) >= RedEyeDeparture && int(leg.ArrTime) >= RedEyeArrival
}

// Classify derives the ClassifiedTrip for trip.
func Classify(trip *roster.Trip, aliases BaseAliases, thresholds CommuteThresholds) ClassifiedTrip {
	c := ClassifiedTrip{
		Number:   trip.Number,
		Base:     UnknownBase,
		HasDates: trip.HasDates(),
		Trip:     trip,
	}

	c.classifyDates(trip)
	c.classifyCredit(trip)

	legs := trip.Legs()
	if len(legs) == 0 {
		c.Malformed = true
		return c
	}

	c.classifyBase(trip, legs, aliases)
	c.classifyLength(trip, aliases)
	c.classifyCommute(legs, aliases, thresholds)

	for _, l := range legs {
		if IsRedEye(l) {
			c.RedEye = true
			break
		}
	}
	return c
}

// ClassifyAll classifies trips in order.
func ClassifyAll(trips []*roster.Trip, aliases BaseAliases, thresholds CommuteThresholds) []ClassifiedTrip {
	out := make([]ClassifiedTrip, 0, len(trips))
	for _, t := range trips {
		out = append(out, Classify(t, aliases, thresholds))
	}
	return out
}

func (c *ClassifiedTrip) addIssue(err error) {
	c.Issues = append(c.Issues, roster.NewIssue(err, c.Number, c.Trip.StartLine))
}

func (c *ClassifiedTrip) classifyDates(trip *roster.Trip) {
	switch {
	case trip.DateErr != nil:
		// Already reported by the extractor.
		c.err = trip.DateErr
	case !trip.HasDates():
		c.Occurrences = 1
		return
	default:
		n, err := daterange.Resolve(trip.Effective, trip.Weekdays, trip.Except, trip.Context.Month, trip.Context.Year)
		if err == nil {
			c.Occurrences = n
			return
		}
		c.err = err
		c.addIssue(err)
	}
	c.DateError = c.err.Error()
}

func (c *ClassifiedTrip) classifyCredit(trip *roster.Trip) {
	if trip.Credit == nil {
		c.addIssue(fmt.Errorf("%w: no TOTAL CREDIT line", roster.ErrMissingCreditData))
		return
	}
	c.Credit = trip.Credit.Total
	c.Overage = trip.Credit.Overage
	c.TAFB = trip.Credit.TAFB
	if !c.Overage.Valid {
		c.addIssue(fmt.Errorf("%w: no CR value", roster.ErrMissingCreditData))
		return
	}
	c.Category = CategorizeCredit(c.Overage.Decimal)
}

func (c *ClassifiedTrip) classifyBase(trip *roster.Trip, legs []roster.FlightLeg, aliases BaseAliases) {
	airport := legs[0].DepAirport
	for _, d := range trip.Days {
		if d.Letter == "A" && len(d.Legs) > 0 {
			airport = d.Legs[0].DepAirport
			break
		}
	}

	base, ok := aliases.Base(airport)
	c.Base = base
	if !ok {
		c.addIssue(fmt.Errorf("%w: %s", roster.ErrUnknownBaseAirport, airport))
	}
}

func (c *ClassifiedTrip) classifyLength(trip *roster.Trip, aliases BaseAliases) {
	last, ok := trip.LastDay()
	if !ok {
		return
	}
	c.BaseLength = roster.DayIndex(last.Letter) + 1
	c.AdjustedLength = c.BaseLength

	if n := len(last.Legs); n > 0 && IsRedEye(last.Legs[n-1]) {
		c.FinalLegRedEye = true
		c.AdjustedLength++
	}

	home := 0
	for _, l := range last.Legs {
		if aliases.InGroup(l.ArrAirport, c.Base) {
			home++
		}
	}
	c.OneLegLastDay = home == 1
}

func (c *ClassifiedTrip) classifyCommute(legs []roster.FlightLeg, aliases BaseAliases, thresholds CommuteThresholds) {
	c.Report = legs[0].DepTime.Add(-ReportBefore)
	c.ReportValid = true

	for i := len(legs) - 1; i >= 0; i-- {
		if aliases.InGroup(legs[i].ArrAirport, c.Base) {
			c.Release = legs[i].ArrTime.Add(ReleaseAfter)
			c.ReleaseValid = true
			break
		}
	}

	c.FrontCommutable = c.Report >= thresholds.Front
	c.BackCommutable = c.ReleaseValid && c.Release <= thresholds.Back
	c.BothCommutable = c.FrontCommutable && c.BackCommutable
}
