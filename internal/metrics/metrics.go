// Package metrics aggregates classified trips into fleet-wide summaries and
// a per-length breakdown.
//
// Every count is reported as a Measure carrying both the raw trip count and
// the occurrence-weighted count. Averages are always weighted by
// occurrences; the raw mean is kept alongside for diagnostics.
package metrics

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"roster_parser/internal/classifier"
)

// ErrUnknownBaseFilter is returned for a base filter outside the base set.
var ErrUnknownBaseFilter = errors.New("unknown base filter")

// AllBases is the normalised filter that selects every trip.
const AllBases = "All"

// MaxBucket is the last length bucket; longer trips are folded into it.
const MaxBucket = 5

// CategoryCount is the Measure for one credit category.
type CategoryCount struct {
	Category classifier.CreditCategory `json:"category"`
	Measure
}

// Bucket aggregates trips of one adjusted length. Percentages inside a
// bucket are relative to the bucket total, except Total whose percentage
// is the bucket's share of the whole scope.
type Bucket struct {
	Length int    `json:"length"`
	Label  string `json:"label"`

	Total           Measure         `json:"total"`
	OneLegLastDay   Measure         `json:"one_leg_last_day"`
	RedEye          Measure         `json:"red_eye"`
	FrontCommutable Measure         `json:"front_commutable"`
	BackCommutable  Measure         `json:"back_commutable"`
	BothCommutable  Measure         `json:"both_commutable"`
	Categories      []CategoryCount `json:"credit_categories"`

	AvgCreditPerTrip Average `json:"avg_credit_per_trip"`
	AvgCreditPerDay  Average `json:"avg_credit_per_day"`
	AvgTAFB          Average `json:"avg_tafb"`
}

// Summary aggregates every trip in scope. Total and the flag measures
// cover trips with usable legs; HeaderTotal also counts malformed trips,
// which still contribute their credit line to AvgCreditPerTrip, AvgTAFB
// and the credit categories.
type Summary struct {
	HeaderTotal     Measure `json:"header_total"`
	Total           Measure `json:"total"`
	OneLegLastDay   Measure `json:"one_leg_last_day"`
	RedEye          Measure `json:"red_eye"`
	FrontCommutable Measure `json:"front_commutable"`
	BackCommutable  Measure `json:"back_commutable"`
	BothCommutable  Measure `json:"both_commutable"`

	AvgCreditPerTrip Average `json:"avg_credit_per_trip"`
	AvgCreditPerDay  Average `json:"avg_credit_per_day"`
	AvgTripLength    Average `json:"avg_trip_length"`
	AvgTAFB          Average `json:"avg_tafb"`
}

// Scope counts the trips matched by the base filter and the diagnostics
// that kept some of them out of individual aggregates.
type Scope struct {
	Trips         int `json:"trips"`
	Malformed     int `json:"malformed"`
	UnknownBase   int `json:"unknown_base"`
	MissingCredit int `json:"missing_credit"`
	DateErrors    int `json:"date_errors"`
}

// AggregateResult is the full metrics report for one base filter.
type AggregateResult struct {
	BaseFilter string          `json:"base_filter"`
	Summary    Summary         `json:"summary"`
	Buckets    []Bucket        `json:"buckets"`
	Categories []CategoryCount `json:"credit_categories"`
	Scope      Scope           `json:"scope"`
}

// NormalizeBaseFilter maps "", "All" and "All Bases" to AllBases and
// validates any other value against the base set.
func NormalizeBaseFilter(filter string) (string, error) {
	f := strings.TrimSpace(filter)
	switch strings.ToUpper(f) {
	case "", "ALL", "ALL BASES":
		return AllBases, nil
	}
	f = strings.ToUpper(f)
	if !classifier.IsBase(f) {
		return "", fmt.Errorf("%w: %q", ErrUnknownBaseFilter, filter)
	}
	return f, nil
}

// FilterByBase returns the trips whose base matches filter.
func FilterByBase(trips []classifier.ClassifiedTrip, filter string) ([]classifier.ClassifiedTrip, error) {
	f, err := NormalizeBaseFilter(filter)
	if err != nil {
		return nil, err
	}
	if f == AllBases {
		return trips, nil
	}
	var out []classifier.ClassifiedTrip
	for _, t := range trips {
		if t.Base == f {
			out = append(out, t)
		}
	}
	return out, nil
}

// bucketAcc accumulates one bucket or the summary.
type bucketAcc struct {
	header                                   tally
	total, oneLeg, redEye, front, back, both tally
	categories                               map[classifier.CreditCategory]*tally
	creditTrip, creditDay, tafb, length      averager
}

func newBucketAcc() *bucketAcc {
	return &bucketAcc{categories: make(map[classifier.CreditCategory]*tally)}
}

// add records a trip with usable legs.
func (b *bucketAcc) add(t classifier.ClassifiedTrip) {
	b.addHeader(t)
	b.addLegs(t)
}

// addHeader records the parts of a trip that come from its header and
// credit line.
func (b *bucketAcc) addHeader(t classifier.ClassifiedTrip) {
	b.header.add(t)
	if t.Category != "" {
		c, ok := b.categories[t.Category]
		if !ok {
			c = &tally{}
			b.categories[t.Category] = c
		}
		c.add(t)
	}
	if t.HasCredit() {
		b.creditTrip.add(t.Credit.Decimal, t.Occurrences)
	}
	if t.TAFB.Valid {
		b.tafb.add(t.TAFB.Decimal, t.Occurrences)
	}
}

// addLegs records the parts of a trip that need its legs.
func (b *bucketAcc) addLegs(t classifier.ClassifiedTrip) {
	b.total.add(t)
	if t.OneLegLastDay {
		b.oneLeg.add(t)
	}
	if t.RedEye {
		b.redEye.add(t)
	}
	if t.FrontCommutable {
		b.front.add(t)
	}
	if t.BackCommutable {
		b.back.add(t)
	}
	if t.BothCommutable {
		b.both.add(t)
	}

	b.length.add(decimal.NewFromInt(int64(t.AdjustedLength)), t.Occurrences)
	if t.HasCredit() && t.AdjustedLength > 0 {
		b.creditDay.add(t.Credit.Decimal.Div(decimal.NewFromInt(int64(t.AdjustedLength))), t.Occurrences)
	}
}

func (b *bucketAcc) categoryCounts() []CategoryCount {
	out := make([]CategoryCount, 0, len(classifier.CreditCategories))
	for _, cat := range classifier.CreditCategories {
		var t tally
		if c, ok := b.categories[cat]; ok {
			t = *c
		}
		out = append(out, CategoryCount{Category: cat, Measure: t.measure(b.header)})
	}
	return out
}

// Aggregate builds the AggregateResult for trips matching baseFilter.
// Malformed trips carry no length, red-eye or commute data, so they are
// left out of the buckets and leg-based measures but kept in the
// header-level summary figures.
func Aggregate(trips []classifier.ClassifiedTrip, baseFilter string) (*AggregateResult, error) {
	filter, err := NormalizeBaseFilter(baseFilter)
	if err != nil {
		return nil, err
	}
	inScope, _ := FilterByBase(trips, filter)

	result := &AggregateResult{BaseFilter: filter}
	summary := newBucketAcc()
	buckets := make([]*bucketAcc, MaxBucket)
	for i := range buckets {
		buckets[i] = newBucketAcc()
	}

	for _, t := range inScope {
		result.Scope.Trips++
		if t.Base == classifier.UnknownBase && !t.Malformed {
			result.Scope.UnknownBase++
		}
		if !t.HasCredit() {
			result.Scope.MissingCredit++
		}
		if t.DateErr() != nil {
			result.Scope.DateErrors++
		}
		if t.Malformed {
			result.Scope.Malformed++
			summary.addHeader(t)
			continue
		}

		summary.add(t)
		buckets[bucketIndex(t.AdjustedLength)].add(t)
	}

	total := summary.total
	result.Summary = Summary{
		HeaderTotal:      summary.header.measure(summary.header),
		Total:            total.measure(total),
		OneLegLastDay:    summary.oneLeg.measure(total),
		RedEye:           summary.redEye.measure(total),
		FrontCommutable:  summary.front.measure(total),
		BackCommutable:   summary.back.measure(total),
		BothCommutable:   summary.both.measure(total),
		AvgCreditPerTrip: summary.creditTrip.result(),
		AvgCreditPerDay:  summary.creditDay.result(),
		AvgTripLength:    summary.length.result(),
		AvgTAFB:          summary.tafb.result(),
	}
	result.Categories = summary.categoryCounts()

	result.Buckets = make([]Bucket, 0, MaxBucket)
	for i, b := range buckets {
		length := i + 1
		result.Buckets = append(result.Buckets, Bucket{
			Length:           length,
			Label:            bucketLabel(length),
			Total:            b.total.measure(total),
			OneLegLastDay:    b.oneLeg.measure(b.total),
			RedEye:           b.redEye.measure(b.total),
			FrontCommutable:  b.front.measure(b.total),
			BackCommutable:   b.back.measure(b.total),
			BothCommutable:   b.both.measure(b.total),
			Categories:       b.categoryCounts(),
			AvgCreditPerTrip: b.creditTrip.result(),
			AvgCreditPerDay:  b.creditDay.result(),
			AvgTAFB:          b.tafb.result(),
		})
	}

	return result, nil
}

func bucketIndex(length int) int {
	switch {
	case length < 1:
		return 0
	case length > MaxBucket:
		return MaxBucket - 1
	default:
		return length - 1
	}
}

func bucketLabel(length int) string {
	if length >= MaxBucket {
		return fmt.Sprintf("%d+", MaxBucket)
	}
	return fmt.Sprintf("%d", length)
}
