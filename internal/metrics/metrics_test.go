package metrics

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"roster_parser/internal/classifier"
)

func dec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func sampleTrips() []classifier.ClassifiedTrip {
	return []classifier.ClassifiedTrip{
		{
			Number: "1", Base: "ATL", Occurrences: 3, BaseLength: 2, AdjustedLength: 2,
			Credit: dec("10"), Overage: dec("0.10"), Category: classifier.CategoryUnder15, TAFB: dec("30"),
			OneLegLastDay: true, FrontCommutable: true,
		},
		{
			Number: "2", Base: "ATL", Occurrences: 1, BaseLength: 3, AdjustedLength: 4,
			Credit: dec("20"), Overage: dec("6.28"), Category: classifier.CategoryOver60, TAFB: dec("70"),
			RedEye: true, FinalLegRedEye: true, BackCommutable: true,
		},
		{
			Number: "3", Base: "NYC", Occurrences: 4, BaseLength: 1, AdjustedLength: 1,
			Credit: dec("6"), Overage: dec("0.45"), Category: classifier.Category30To60,
			FrontCommutable: true, BackCommutable: true, BothCommutable: true, OneLegLastDay: true,
		},
		{
			Number: "4", Base: "LAX", Occurrences: 1, BaseLength: 5, AdjustedLength: 6,
			RedEye: true, FinalLegRedEye: true,
		},
		{
			Number: "5", Base: classifier.UnknownBase, Occurrences: 2, Malformed: true,
			Credit: dec("9"),
		},
	}
}

func TestWeightedAverageIdentity(t *testing.T) {
	trips := sampleTrips()
	res, err := Aggregate(trips, "")
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}

	// Σ(credit·occ)/Σ(occ) over every trip with credit, malformed included.
	num, occ := decimal.Zero, 0
	for _, tr := range trips {
		if !tr.Credit.Valid {
			continue
		}
		num = num.Add(tr.Credit.Decimal.Mul(decimal.NewFromInt(int64(tr.Occurrences))))
		occ += tr.Occurrences
	}
	want := num.Div(decimal.NewFromInt(int64(occ))).Round(averagePlaces)

	got := res.Summary.AvgCreditPerTrip
	if !got.Weighted.Equal(want) {
		t.Errorf("AvgCreditPerTrip.Weighted = %s, want %s", got.Weighted, want)
	}
	// (10·3 + 20·1 + 6·4 + 9·2) / 10 = 9.2
	if !got.Weighted.Equal(decimal.RequireFromString("9.2")) {
		t.Errorf("AvgCreditPerTrip.Weighted = %s, want 9.2", got.Weighted)
	}
	// (10 + 20 + 6 + 9) / 4 = 11.25
	if !got.Raw.Equal(decimal.RequireFromString("11.25")) {
		t.Errorf("AvgCreditPerTrip.Raw = %s, want 11.25", got.Raw)
	}
	if got.Trips != 4 || got.Occurrences != 10 {
		t.Errorf("contributors = %d/%d, want 4/10", got.Trips, got.Occurrences)
	}
}

func TestSummaryCounts(t *testing.T) {
	res, err := Aggregate(sampleTrips(), "All Bases")
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}
	if res.BaseFilter != AllBases {
		t.Errorf("BaseFilter = %q, want All", res.BaseFilter)
	}

	s := res.Summary
	if s.Total.Trips != 4 || s.Total.Occurrences != 9 {
		t.Errorf("Total = %+v, want 4 trips / 9 occurrences", s.Total)
	}
	if s.HeaderTotal.Trips != 5 || s.HeaderTotal.Occurrences != 11 {
		t.Errorf("HeaderTotal = %+v, want 5 trips / 11 occurrences", s.HeaderTotal)
	}
	if s.Total.TripsPct != 100 {
		t.Errorf("Total.TripsPct = %v, want 100", s.Total.TripsPct)
	}
	if s.RedEye.Trips != 2 || s.RedEye.Occurrences != 2 {
		t.Errorf("RedEye = %+v, want 2/2", s.RedEye)
	}
	if s.RedEye.TripsPct != 50 || s.RedEye.OccurrencesPct != 22.22 {
		t.Errorf("RedEye pct = %v/%v, want 50/22.22", s.RedEye.TripsPct, s.RedEye.OccurrencesPct)
	}
	if s.FrontCommutable.Occurrences != 7 || s.BothCommutable.Occurrences != 4 {
		t.Errorf("commute = %+v / %+v", s.FrontCommutable, s.BothCommutable)
	}

	// (2·3 + 4·1 + 1·4 + 6·1) / 9
	wantLen := decimal.NewFromInt(20).Div(decimal.NewFromInt(9)).Round(averagePlaces)
	if !s.AvgTripLength.Weighted.Equal(wantLen) {
		t.Errorf("AvgTripLength = %s, want %s", s.AvgTripLength.Weighted, wantLen)
	}
	// (30·3 + 70·1) / 4
	if !s.AvgTAFB.Weighted.Equal(decimal.NewFromInt(40)) {
		t.Errorf("AvgTAFB = %s, want 40", s.AvgTAFB.Weighted)
	}
	// (10/2·3 + 20/4·1 + 6/1·4) / 8 = 5.5
	if !s.AvgCreditPerDay.Weighted.Equal(decimal.RequireFromString("5.5")) {
		t.Errorf("AvgCreditPerDay = %s, want 5.5", s.AvgCreditPerDay.Weighted)
	}

	sc := res.Scope
	// The malformed trip's unknown base is not counted: it has no legs to
	// take a base from.
	if sc.Trips != 5 || sc.Malformed != 1 || sc.UnknownBase != 0 || sc.MissingCredit != 1 {
		t.Errorf("Scope = %+v", sc)
	}
}

func TestBucketsOrderedAndComplete(t *testing.T) {
	res, err := Aggregate(sampleTrips(), "All")
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}
	if len(res.Buckets) != MaxBucket {
		t.Fatalf("got %d buckets, want %d", len(res.Buckets), MaxBucket)
	}

	wantLabels := []string{"1", "2", "3", "4", "5+"}
	wantTrips := []int{1, 1, 0, 1, 1}
	for i, b := range res.Buckets {
		if b.Length != i+1 || b.Label != wantLabels[i] {
			t.Errorf("bucket %d = %d/%q, want %d/%q", i, b.Length, b.Label, i+1, wantLabels[i])
		}
		if b.Total.Trips != wantTrips[i] {
			t.Errorf("bucket %s trips = %d, want %d", b.Label, b.Total.Trips, wantTrips[i])
		}
		if len(b.Categories) != len(classifier.CreditCategories) {
			t.Errorf("bucket %s has %d categories", b.Label, len(b.Categories))
		}
	}

	two := res.Buckets[1]
	if two.OneLegLastDay.TripsPct != 100 {
		t.Errorf("bucket 2 OneLegLastDay pct = %v, want 100", two.OneLegLastDay.TripsPct)
	}
	// 3 of 9 occurrences fall in bucket 2.
	if two.Total.OccurrencesPct != 33.33 {
		t.Errorf("bucket 2 share = %v, want 33.33", two.Total.OccurrencesPct)
	}
	if res.Buckets[2].AvgCreditPerTrip.Trips != 0 || !res.Buckets[2].AvgCreditPerTrip.Weighted.IsZero() {
		t.Errorf("empty bucket average = %+v", res.Buckets[2].AvgCreditPerTrip)
	}
}

func TestCategoryBreakdown(t *testing.T) {
	res, err := Aggregate(sampleTrips(), "")
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}
	want := map[classifier.CreditCategory]int{
		classifier.CategoryUnder15: 3,
		classifier.Category15To30:  0,
		classifier.Category30To60:  4,
		classifier.CategoryOver60:  1,
	}
	for i, c := range res.Categories {
		if c.Category != classifier.CreditCategories[i] {
			t.Errorf("category %d = %q, want %q", i, c.Category, classifier.CreditCategories[i])
		}
		if c.Occurrences != want[c.Category] {
			t.Errorf("%s occurrences = %d, want %d", c.Category, c.Occurrences, want[c.Category])
		}
	}
}

func TestBaseFilter(t *testing.T) {
	res, err := Aggregate(sampleTrips(), "atl")
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}
	if res.BaseFilter != "ATL" {
		t.Errorf("BaseFilter = %q, want ATL", res.BaseFilter)
	}
	if res.Summary.Total.Trips != 2 || res.Scope.Trips != 2 {
		t.Errorf("ATL trips = %d (scope %d), want 2", res.Summary.Total.Trips, res.Scope.Trips)
	}

	res, err = Aggregate(sampleTrips(), "MSP")
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}
	if res.Summary.Total.Trips != 0 || res.Summary.Total.TripsPct != 0 {
		t.Errorf("MSP summary = %+v, want empty", res.Summary.Total)
	}
	if len(res.Buckets) != MaxBucket {
		t.Errorf("empty scope still needs %d buckets, got %d", MaxBucket, len(res.Buckets))
	}

	for _, bad := range []string{"XYZ", "UNKNOWN", "ORD"} {
		if _, err := Aggregate(sampleTrips(), bad); !errors.Is(err, ErrUnknownBaseFilter) {
			t.Errorf("Aggregate(%q) error = %v, want ErrUnknownBaseFilter", bad, err)
		}
	}
}

func TestMalformedTripsKeepHeaderMetrics(t *testing.T) {
	trips := []classifier.ClassifiedTrip{
		{
			Number: "1", Base: "ATL", Occurrences: 1, BaseLength: 1, AdjustedLength: 1,
			Credit: dec("4"), Overage: dec("0.10"), Category: classifier.CategoryUnder15,
		},
		{
			Number: "2", Base: classifier.UnknownBase, Occurrences: 1, Malformed: true,
			Credit: dec("10"), Overage: dec("2.00"), Category: classifier.CategoryOver60, TAFB: dec("12"),
		},
		{
			Number: "3", Base: classifier.UnknownBase, Occurrences: 2, BaseLength: 1, AdjustedLength: 1,
		},
	}
	res, err := Aggregate(trips, "")
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}

	s := res.Summary
	if s.Total.Trips != 2 || s.Total.Occurrences != 3 {
		t.Errorf("Total = %+v, want 2 trips / 3 occurrences", s.Total)
	}
	if s.HeaderTotal.Trips != 3 || s.HeaderTotal.Occurrences != 4 {
		t.Errorf("HeaderTotal = %+v, want 3 trips / 4 occurrences", s.HeaderTotal)
	}
	// (4 + 10) / 2
	if !s.AvgCreditPerTrip.Weighted.Equal(decimal.NewFromInt(7)) || s.AvgCreditPerTrip.Trips != 2 {
		t.Errorf("AvgCreditPerTrip = %+v, want 7 over 2 trips", s.AvgCreditPerTrip)
	}
	if !s.AvgTAFB.Weighted.Equal(decimal.NewFromInt(12)) {
		t.Errorf("AvgTAFB = %s, want 12", s.AvgTAFB.Weighted)
	}
	// Credit per day needs a length, so only trip 1 counts.
	if !s.AvgCreditPerDay.Weighted.Equal(decimal.NewFromInt(4)) || s.AvgCreditPerDay.Trips != 1 {
		t.Errorf("AvgCreditPerDay = %+v, want 4 over 1 trip", s.AvgCreditPerDay)
	}

	for _, c := range res.Categories {
		if c.Category != classifier.CategoryOver60 {
			continue
		}
		if c.Trips != 1 || c.Occurrences != 1 || c.OccurrencesPct != 25 || c.TripsPct != 33.33 {
			t.Errorf("%s = %+v, want 1/1 at 33.33%%/25%%", c.Category, c.Measure)
		}
	}

	bucketTrips := 0
	for _, b := range res.Buckets {
		bucketTrips += b.Total.Trips
	}
	if bucketTrips != 2 {
		t.Errorf("bucket trips = %d, want 2", bucketTrips)
	}

	sc := res.Scope
	if sc.Trips != 3 || sc.Malformed != 1 || sc.UnknownBase != 1 || sc.MissingCredit != 1 {
		t.Errorf("Scope = %+v", sc)
	}
}

func TestZeroWeightTrips(t *testing.T) {
	trips := []classifier.ClassifiedTrip{
		{Number: "1", Base: "SEA", Occurrences: 0, AdjustedLength: 1, Credit: dec("5")},
	}
	res, err := Aggregate(trips, "SEA")
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}
	avg := res.Summary.AvgCreditPerTrip
	if !avg.Weighted.IsZero() || !avg.Raw.Equal(decimal.NewFromInt(5)) {
		t.Errorf("avg = %+v, want weighted 0 raw 5", avg)
	}
	if res.Summary.Total.OccurrencesPct != 0 || res.Summary.Total.TripsPct != 100 {
		t.Errorf("Total = %+v", res.Summary.Total)
	}
}
