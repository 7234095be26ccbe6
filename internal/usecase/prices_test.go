package usecase

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"ToneFX/internal/registry"
	"ToneFX/pkg/util"
)

type stubQuotes struct {
	closes map[string]map[time.Time]float64
	errs   map[string]error
}

func newStubQuotes() *stubQuotes {
	return &stubQuotes{
		closes: make(map[string]map[time.Time]float64),
		errs:   make(map[string]error),
	}
}

func (s *stubQuotes) DailyCloses(_ context.Context, symbol string, _, _ time.Time) (map[time.Time]float64, error) {
	if err, ok := s.errs[symbol]; ok {
		return nil, err
	}
	return s.closes[symbol], nil
}

func (s *stubQuotes) set(symbol string, points map[string]float64) {
	m := make(map[time.Time]float64, len(points))
	for ds, v := range points {
		m[day(ds)] = v
	}
	s.closes[symbol] = m
}

// small two-ticker universe for price tests
func miniRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New([]registry.Entry{
		{Ticker: "JPY", Country: "JPN"},
		{Ticker: "GBP", Country: "GBR"},
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return reg
}

func TestFetchPricesFillsGaps(t *testing.T) {
	q := newStubQuotes()
	q.set("JPY=X", map[string]float64{
		"2024-03-01": 150.0,
		// 2024-03-04 missing for JPY
		"2024-03-05": 151.0,
	})
	q.set("GBP=X", map[string]float64{
		// 2024-03-01 missing for GBP
		"2024-03-04": 1.27,
		"2024-03-05": 1.28,
	})

	svc := NewPriceService(q, miniRegistry(t), "=X", 0.5, nil, nil)
	frame, err := svc.FetchPrices(context.Background(), day("2024-03-01"), day("2024-03-05"))
	if err != nil {
		t.Fatalf("FetchPrices: %v", err)
	}
	if frame.NumRows() != 3 {
		t.Fatalf("rows = %d, want 3 (union of trading dates)", frame.NumRows())
	}
	jpy, gbp := frame.ColIdx("JPY"), frame.ColIdx("GBP")
	if jpy < 0 || gbp < 0 {
		t.Fatalf("columns = %v", frame.Columns)
	}
	// JPY gap on 03-04 forward-filled from 03-01.
	if got := frame.At(1, jpy); got != 150.0 {
		t.Fatalf("JPY 03-04 = %v, want 150 (ffill)", got)
	}
	// GBP gap on 03-01 back-filled from 03-04.
	if got := frame.At(0, gbp); got != 1.27 {
		t.Fatalf("GBP 03-01 = %v, want 1.27 (bfill)", got)
	}
}

func TestFetchPricesDropsSparseInstrument(t *testing.T) {
	q := newStubQuotes()
	// JPY present on all 5 dates.
	q.set("JPY=X", map[string]float64{
		"2024-03-01": 150, "2024-03-02": 150, "2024-03-03": 150,
		"2024-03-04": 150, "2024-03-05": 150,
	})
	// GBP present on 2 of 5: 60% missing, above the 50% ceiling.
	q.set("GBP=X", map[string]float64{
		"2024-03-01": 1.27, "2024-03-05": 1.28,
	})

	svc := NewPriceService(q, miniRegistry(t), "=X", 0.5, nil, nil)
	frame, err := svc.FetchPrices(context.Background(), day("2024-03-01"), day("2024-03-05"))
	if err != nil {
		t.Fatalf("FetchPrices: %v", err)
	}
	if len(frame.Columns) != 1 || frame.Columns[0] != "JPY" {
		t.Fatalf("columns = %v, want [JPY]", frame.Columns)
	}
}

func TestFetchPricesKeepsModeratelySparse(t *testing.T) {
	q := newStubQuotes()
	q.set("JPY=X", map[string]float64{
		"2024-03-01": 150, "2024-03-02": 150, "2024-03-03": 150,
		"2024-03-04": 150, "2024-03-05": 150,
	})
	// GBP present on 3 of 5: 40% missing, inside the ceiling, so it stays
	// and its gaps are filled.
	q.set("GBP=X", map[string]float64{
		"2024-03-01": 1.27, "2024-03-03": 1.28, "2024-03-05": 1.29,
	})

	svc := NewPriceService(q, miniRegistry(t), "=X", 0.5, nil, nil)
	frame, err := svc.FetchPrices(context.Background(), day("2024-03-01"), day("2024-03-05"))
	if err != nil {
		t.Fatalf("FetchPrices: %v", err)
	}
	if len(frame.Columns) != 2 {
		t.Fatalf("columns = %v, want both instruments", frame.Columns)
	}
	for _, col := range frame.Columns {
		for _, v := range frame.Column(col) {
			if math.IsNaN(v) {
				t.Fatalf("column %s still has gaps after filling", col)
			}
		}
	}
}

func TestFetchPricesSkipsFailedInstrument(t *testing.T) {
	q := newStubQuotes()
	q.set("JPY=X", map[string]float64{"2024-03-01": 150, "2024-03-02": 151})
	q.errs["GBP=X"] = errors.New("rate limited")

	svc := NewPriceService(q, miniRegistry(t), "=X", 0.5, nil, nil)
	frame, err := svc.FetchPrices(context.Background(), day("2024-03-01"), day("2024-03-02"))
	if err != nil {
		t.Fatalf("FetchPrices: %v", err)
	}
	if len(frame.Columns) != 1 || frame.Columns[0] != "JPY" {
		t.Fatalf("columns = %v, want only JPY", frame.Columns)
	}
}

func TestFetchPricesAllEmpty(t *testing.T) {
	svc := NewPriceService(newStubQuotes(), miniRegistry(t), "=X", 0.5, nil, nil)
	if _, err := svc.FetchPrices(context.Background(), day("2024-03-01"), day("2024-03-02")); err == nil {
		t.Fatalf("expected error with no price data at all")
	}
}

func TestFetchReturnsSuffix(t *testing.T) {
	q := newStubQuotes()
	q.set("JPY=X", map[string]float64{"2024-03-01": 100, "2024-03-02": 110})
	q.set("GBP=X", map[string]float64{"2024-03-01": 1.0, "2024-03-02": 1.5})

	svc := NewPriceService(q, miniRegistry(t), "=X", 0.5, nil, nil)
	rets, err := svc.FetchReturns(context.Background(), day("2024-03-01"), day("2024-03-02"))
	if err != nil {
		t.Fatalf("FetchReturns: %v", err)
	}
	idx := rets.ColIdx("JPY_ret")
	if idx < 0 {
		t.Fatalf("columns = %v, want JPY_ret", rets.Columns)
	}
	if !math.IsNaN(rets.At(0, idx)) {
		t.Fatalf("first return = %v, want NaN", rets.At(0, idx))
	}
	if got := rets.At(1, idx); math.Abs(got-0.10) > 1e-12 {
		t.Fatalf("JPY return = %v, want 0.10", got)
	}
}

func TestFetchPricesDateRangeUsesUnionIndex(t *testing.T) {
	q := newStubQuotes()
	q.set("JPY=X", map[string]float64{"2024-03-01": 150})
	q.set("GBP=X", map[string]float64{"2024-03-04": 1.27})

	svc := NewPriceService(q, miniRegistry(t), "=X", 0.6, nil, nil)
	frame, err := svc.FetchPrices(context.Background(), day("2024-03-01"), day("2024-03-04"))
	if err != nil {
		t.Fatalf("FetchPrices: %v", err)
	}
	want := []time.Time{day("2024-03-01"), day("2024-03-04")}
	if len(frame.Dates) != len(want) {
		t.Fatalf("dates = %v", frame.Dates)
	}
	for i := range want {
		if !frame.Dates[i].Equal(util.DateOnly(want[i])) {
			t.Fatalf("dates[%d] = %v, want %v", i, frame.Dates[i], want[i])
		}
	}
}
