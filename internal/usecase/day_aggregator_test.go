package usecase

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"ToneFX/internal/domain/models"
	drepo "ToneFX/internal/domain/repository"
	"ToneFX/internal/registry"
	"ToneFX/pkg/util"
)

type stubSource struct {
	mu     sync.Mutex
	events map[string][]models.RawEvent
	errs   map[string]error
	calls  map[string]int
}

func newStubSource() *stubSource {
	return &stubSource{
		events: make(map[string][]models.RawEvent),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (s *stubSource) FetchDay(_ context.Context, date time.Time) ([]models.RawEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := date.Format(util.DateLayout)
	s.calls[key]++
	if err, ok := s.errs[key]; ok {
		return nil, err
	}
	return s.events[key], nil
}

func (s *stubSource) callCount(date time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[date.Format(util.DateLayout)]
}

type memStore struct {
	mu   sync.Mutex
	rows map[string][]models.DailyAggregate
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string][]models.DailyAggregate)}
}

func (m *memStore) Get(_ context.Context, date time.Time) ([]models.DailyAggregate, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.rows[date.Format(util.DateLayout)]
	return rows, ok, nil
}

func (m *memStore) Put(_ context.Context, date time.Time, rows []models.DailyAggregate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[date.Format(util.DateLayout)] = rows
	return nil
}

func day(s string) time.Time {
	t, err := time.Parse(util.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func event(date time.Time, country string, tone float64) models.RawEvent {
	return models.RawEvent{
		EventDate:   date,
		Country:     country,
		IsRoot:      true,
		NumMentions: 5,
		AvgTone:     tone,
	}
}

func TestAggregateDayBasic(t *testing.T) {
	d := day("2024-03-01")
	src := newStubSource()
	src.events[d.Format(util.DateLayout)] = []models.RawEvent{
		event(d, "JPN", 2.0),
		event(d, "JPN", 4.0),
		event(d, "GBR", -1.0),
	}

	agg := NewDayAggregator(src, newMemStore(), registry.Default(), FilterParams{}, nil, nil)
	rows, report := agg.AggregateDay(context.Background(), d)

	if report.Outcome != models.DayOK {
		t.Fatalf("outcome = %s, want %s", report.Outcome, models.DayOK)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	// Sorted by currency.
	if rows[0].Currency != "GBP" || rows[1].Currency != "JPY" {
		t.Fatalf("currencies = %s,%s", rows[0].Currency, rows[1].Currency)
	}
	jpy := rows[1]
	if jpy.AvgTone != 3.0 {
		t.Fatalf("JPY avg tone = %v, want 3", jpy.AvgTone)
	}
	if jpy.EventCount != 2 {
		t.Fatalf("JPY event count = %d, want 2", jpy.EventCount)
	}
	// Sample stddev of {2,4} = sqrt(2).
	if math.Abs(jpy.ToneDispersion-math.Sqrt2) > 1e-12 {
		t.Fatalf("JPY dispersion = %v, want sqrt(2)", jpy.ToneDispersion)
	}
	gbp := rows[0]
	if !math.IsNaN(gbp.ToneDispersion) {
		t.Fatalf("single-event dispersion = %v, want NaN", gbp.ToneDispersion)
	}
}

func TestAggregateDaySameDayFilter(t *testing.T) {
	d := day("2024-03-01")
	src := newStubSource()
	src.events[d.Format(util.DateLayout)] = []models.RawEvent{
		event(d, "JPN", 2.0),
		event(day("2024-02-28"), "JPN", 9.0), // historical backfill row
		event(day("2024-03-02"), "GBR", 1.0),
	}

	agg := NewDayAggregator(src, newMemStore(), registry.Default(), FilterParams{}, nil, nil)
	rows, report := agg.AggregateDay(context.Background(), d)

	if report.Outcome != models.DayOK {
		t.Fatalf("outcome = %s", report.Outcome)
	}
	if len(rows) != 1 || rows[0].Currency != "JPY" {
		t.Fatalf("rows = %+v, want only JPY", rows)
	}
	if rows[0].AvgTone != 2.0 {
		t.Fatalf("avg tone = %v: off-date events leaked in", rows[0].AvgTone)
	}
}

func TestAggregateDayFilters(t *testing.T) {
	d := day("2024-03-01")
	lowMentions := event(d, "JPN", 2.0)
	lowMentions.NumMentions = 1
	nonRoot := event(d, "JPN", 2.0)
	nonRoot.IsRoot = false
	weakTone := event(d, "JPN", 0.1)
	unknown := event(d, "XXX", 2.0)

	src := newStubSource()
	src.events[d.Format(util.DateLayout)] = []models.RawEvent{
		event(d, "JPN", 3.0),
		lowMentions,
		nonRoot,
		weakTone,
		unknown,
	}

	agg := NewDayAggregator(src, newMemStore(), registry.Default(), FilterParams{
		MinMentions:   2,
		RootOnly:      true,
		ToneThreshold: 0.5,
	}, nil, nil)
	rows, _ := agg.AggregateDay(context.Background(), d)

	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0].EventCount != 1 || rows[0].AvgTone != 3.0 {
		t.Fatalf("row = %+v: filtered events leaked in", rows[0])
	}
}

func TestAggregateDayMinEventCount(t *testing.T) {
	d := day("2024-03-01")
	src := newStubSource()
	src.events[d.Format(util.DateLayout)] = []models.RawEvent{
		event(d, "JPN", 1.0),
		event(d, "JPN", 2.0),
		event(d, "JPN", 3.0),
		event(d, "GBR", 1.0),
	}

	agg := NewDayAggregator(src, newMemStore(), registry.Default(),
		FilterParams{MinEventCount: 3}, nil, nil)
	rows, _ := agg.AggregateDay(context.Background(), d)

	if len(rows) != 1 || rows[0].Currency != "JPY" {
		t.Fatalf("rows = %+v, want only JPY (GBP below min event count)", rows)
	}
}

func TestAggregateDayCacheIdempotent(t *testing.T) {
	d := day("2024-03-01")
	src := newStubSource()
	src.events[d.Format(util.DateLayout)] = []models.RawEvent{
		event(d, "JPN", 2.0),
		event(d, "JPN", 4.0),
	}

	agg := NewDayAggregator(src, newMemStore(), registry.Default(), FilterParams{}, nil, nil)

	first, report := agg.AggregateDay(context.Background(), d)
	if report.Outcome != models.DayOK {
		t.Fatalf("first outcome = %s", report.Outcome)
	}

	// Poison the source: a second upstream fetch would now fail.
	src.errs[d.Format(util.DateLayout)] = errors.New("upstream gone")

	second, report := agg.AggregateDay(context.Background(), d)
	if report.Outcome != models.DayCached {
		t.Fatalf("second outcome = %s, want %s", report.Outcome, models.DayCached)
	}
	if src.callCount(d) != 1 {
		t.Fatalf("source calls = %d, want 1", src.callCount(d))
	}
	if len(second) != len(first) || second[0] != first[0] {
		t.Fatalf("cached rows diverge: %+v vs %+v", second, first)
	}
}

func TestAggregateDayOutcomes(t *testing.T) {
	src := newStubSource()
	src.errs["2024-03-01"] = drepo.ErrNoArchive
	src.errs["2024-03-02"] = drepo.ErrUnknownSchema
	src.errs["2024-03-03"] = errors.New("connection reset")
	// 2024-03-04 has no events at all.

	agg := NewDayAggregator(src, newMemStore(), registry.Default(), FilterParams{}, nil, nil)

	cases := []struct {
		date string
		want models.DayOutcome
	}{
		{"2024-03-01", models.DayNotFound},
		{"2024-03-02", models.DaySchemaMismatch},
		{"2024-03-03", models.DayFetchError},
		{"2024-03-04", models.DayEmpty},
	}
	for _, tc := range cases {
		rows, report := agg.AggregateDay(context.Background(), day(tc.date))
		if report.Outcome != tc.want {
			t.Fatalf("%s: outcome = %s, want %s", tc.date, report.Outcome, tc.want)
		}
		if len(rows) != 0 {
			t.Fatalf("%s: got %d rows on a failed day", tc.date, len(rows))
		}
	}
}
