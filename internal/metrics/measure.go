package metrics

import (
	"math"

	"github.com/shopspring/decimal"

	"roster_parser/internal/classifier"
)

// Measure is a count kept twice: raw trips and occurrence-weighted trips.
// Percentages are relative to the enclosing scope's total.
type Measure struct {
	Trips          int     `json:"trips"`
	Occurrences    int     `json:"occurrences"`
	TripsPct       float64 `json:"trips_pct"`
	OccurrencesPct float64 `json:"occurrences_pct"`
}

// Average is an occurrence-weighted mean with its unweighted twin.
type Average struct {
	Weighted    decimal.Decimal `json:"weighted"`
	Raw         decimal.Decimal `json:"raw"`
	Trips       int             `json:"trips"`
	Occurrences int             `json:"occurrences"`
}

// averagePlaces is the rounding applied to reported averages.
const averagePlaces = 4

type tally struct {
	trips int
	occ   int
}

func (t *tally) add(c classifier.ClassifiedTrip) {
	t.trips++
	t.occ += c.Occurrences
}

func (t tally) measure(total tally) Measure {
	return Measure{
		Trips:          t.trips,
		Occurrences:    t.occ,
		TripsPct:       percent(t.trips, total.trips),
		OccurrencesPct: percent(t.occ, total.occ),
	}
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)*10000/float64(total)) / 100
}

type averager struct {
	weighted decimal.Decimal
	raw      decimal.Decimal
	trips    int
	occ      int
}

func (a *averager) add(v decimal.Decimal, occ int) {
	a.weighted = a.weighted.Add(v.Mul(decimal.NewFromInt(int64(occ))))
	a.raw = a.raw.Add(v)
	a.trips++
	a.occ += occ
}

func (a averager) result() Average {
	avg := Average{Weighted: decimal.Zero, Raw: decimal.Zero, Trips: a.trips, Occurrences: a.occ}
	if a.occ > 0 {
		avg.Weighted = a.weighted.Div(decimal.NewFromInt(int64(a.occ))).Round(averagePlaces)
	}
	if a.trips > 0 {
		avg.Raw = a.raw.Div(decimal.NewFromInt(int64(a.trips))).Round(averagePlaces)
	}
	return avg
}
