package features

import (
	"errors"
	"math"
	"testing"
	"time"

	"ToneFX/internal/domain/models"
)

func dates(n int) []time.Time {
	base := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = base.AddDate(0, 0, i)
	}
	return out
}

func TestForwardAndBackFill(t *testing.T) {
	f := models.NewFrame(dates(4), []string{"TRY"})
	f.Set(1, 0, 7.5)
	// row 0 leading gap, rows 2-3 trailing gaps
	ForwardFill(f)
	BackFill(f)
	for i := 0; i < 4; i++ {
		if f.At(i, 0) != 7.5 {
			t.Fatalf("row %d not filled: %v", i, f.At(i, 0))
		}
	}
}

func TestForwardReturnsAlignment(t *testing.T) {
	f := models.NewFrame(dates(3), []string{"TRY"})
	f.Set(0, 0, 100)
	f.Set(1, 0, 110)
	f.Set(2, 0, 99)
	fr := ForwardReturns(f)

	// return at t is realized from close(t) to close(t+1), never p_t/p_{t-1}-1
	if got := fr.At(0, 0); math.Abs(got-0.10) > 1e-12 {
		t.Fatalf("day0 forward return = %v, want 0.10", got)
	}
	if got := fr.At(1, 0); math.Abs(got-(-0.1)) > 1e-12 {
		t.Fatalf("day1 forward return = %v, want -0.10", got)
	}
	if !math.IsNaN(fr.At(2, 0)) {
		t.Fatalf("last day must have no forward return")
	}
}

func TestSimpleReturnsSuffix(t *testing.T) {
	f := models.NewFrame(dates(2), []string{"EUR"})
	f.Set(0, 0, 1.0)
	f.Set(1, 0, 1.1)
	sr := SimpleReturns(f)
	if sr.Columns[0] != "EUR_ret" {
		t.Fatalf("unexpected column %s", sr.Columns[0])
	}
	if !math.IsNaN(sr.At(0, 0)) {
		t.Fatalf("first row must be NaN")
	}
	if got := sr.At(1, 0); math.Abs(got-0.1) > 1e-9 {
		t.Fatalf("unexpected return %v", got)
	}
}

func TestPivotAggregates(t *testing.T) {
	d := dates(2)
	rows := []models.DailyAggregate{
		{Date: d[0], Currency: "TRY", AvgTone: -2.5, ToneDispersion: 1.1, EventCount: 10},
		{Date: d[1], Currency: "BRL", AvgTone: 0.5, ToneDispersion: math.NaN(), EventCount: 3},
	}
	f := PivotAggregates(rows)
	if len(f.Columns) != 6 {
		t.Fatalf("expected 6 columns, got %v", f.Columns)
	}
	if got := f.At(0, f.ColIdx("avg_tone_try")); got != -2.5 {
		t.Fatalf("avg_tone_try = %v", got)
	}
	if got := f.At(1, f.ColIdx("event_count_brl")); got != 3 {
		t.Fatalf("event_count_brl = %v", got)
	}
	// TRY has no row on day 2
	if !math.IsNaN(f.At(1, f.ColIdx("avg_tone_try"))) {
		t.Fatalf("absent (date,ccy) must stay NaN")
	}
}

func TestInnerJoinIntersectsDates(t *testing.T) {
	a := models.NewFrame(dates(3), []string{"x"})
	b := models.NewFrame(dates(2), []string{"y"})
	for i := range a.Dates {
		a.Set(i, 0, float64(i))
	}
	for i := range b.Dates {
		b.Set(i, 0, float64(10+i))
	}
	j := InnerJoin(a, b)
	if len(j.Dates) != 2 || len(j.Columns) != 2 {
		t.Fatalf("unexpected join shape %dx%d", len(j.Dates), len(j.Columns))
	}
	if j.At(1, 0) != 1 || j.At(1, 1) != 11 {
		t.Fatalf("unexpected join cells %v", j.Data[1])
	}
}

func TestWideToLongNoFeatures(t *testing.T) {
	f := models.NewFrame(dates(1), []string{"TRY"})
	if _, err := WideToLong(f); !errors.Is(err, ErrNoFeatureColumns) {
		t.Fatalf("expected ErrNoFeatureColumns, got %v", err)
	}
}

func TestWideToLongZeroFillsAndMatchesReturn(t *testing.T) {
	f := models.NewFrame(dates(1), []string{"avg_tone_try", "TRY"})
	f.Set(0, 0, -1.5)
	f.Set(0, 1, 0.02)
	rows, err := WideToLong(f)
	if err != nil {
		t.Fatalf("reshape: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	r := rows[0]
	if r.Features[0] != -1.5 || r.Features[1] != 0 || r.Features[2] != 0 {
		t.Fatalf("unexpected features %v", r.Features)
	}
	if r.NextDayReturn != 0.02 {
		t.Fatalf("unexpected return %v", r.NextDayReturn)
	}
}
