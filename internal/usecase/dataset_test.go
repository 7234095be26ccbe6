package usecase

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"ToneFX/internal/domain/models"
	"ToneFX/pkg/util"
)

type memDatasetStore struct {
	frames map[string]*models.Frame
	saves  int
	loads  int
}

func newMemDatasetStore() *memDatasetStore {
	return &memDatasetStore{frames: make(map[string]*models.Frame)}
}

func (m *memDatasetStore) Load(_ context.Context, path string) (*models.Frame, bool, error) {
	m.loads++
	f, ok := m.frames[path]
	return f, ok, nil
}

func (m *memDatasetStore) Save(_ context.Context, path string, f *models.Frame) (int64, error) {
	m.saves++
	m.frames[path] = f
	return 1, nil
}

type memFeatureStore struct {
	stored []models.DailyAggregate
	err    error
}

func (m *memFeatureStore) StoreAggregates(_ context.Context, rows []models.DailyAggregate) error {
	if m.err != nil {
		return m.err
	}
	m.stored = append(m.stored, rows...)
	return nil
}

func (m *memFeatureStore) QueryAggregates(context.Context, string, time.Time, time.Time) ([]models.DailyAggregate, error) {
	return nil, nil
}
func (m *memFeatureStore) Health(context.Context) error { return nil }
func (m *memFeatureStore) Close() error                 { return nil }

// testBuilder wires a full in-memory pipeline over [2024-03-01, 2024-03-03]:
// two events per currency per day so dispersion is defined, and prices
// extending past the window so every in-range day keeps a forward return.
func testBuilder(t *testing.T) (*DatasetBuilder, *stubSource, *memDatasetStore, *memFeatureStore) {
	t.Helper()
	reg := miniRegistry(t)

	src := newStubSource()
	for i, ds := range []string{"2024-03-01", "2024-03-02", "2024-03-03"} {
		d := day(ds)
		tone := float64(i + 1)
		src.events[ds] = []models.RawEvent{
			event(d, "JPN", tone),
			event(d, "JPN", tone+1),
			event(d, "GBR", -tone),
			event(d, "GBR", -tone-1),
		}
	}

	q := newStubQuotes()
	q.set("JPY=X", map[string]float64{
		"2024-03-01": 100, "2024-03-02": 110, "2024-03-03": 99,
		"2024-03-04": 99, "2024-03-05": 99, "2024-03-06": 99,
	})
	q.set("GBP=X", map[string]float64{
		"2024-03-01": 1.0, "2024-03-02": 1.0, "2024-03-03": 1.0,
		"2024-03-04": 2.0, "2024-03-05": 2.0, "2024-03-06": 2.0,
	})

	agg := NewDayAggregator(src, newMemStore(), reg, FilterParams{}, nil, nil)
	col := NewCollector(agg, 2, 30, nil)
	prices := NewPriceService(q, reg, "=X", 0.5, nil, nil)
	store := newMemDatasetStore()
	fs := &memFeatureStore{}

	return NewDatasetBuilder(col, prices, store, fs, "dataset.csv.gz", 3, nil, nil), src, store, fs
}

func TestBuildDatasetLeakageFree(t *testing.T) {
	b, _, _, _ := testBuilder(t)

	frame, err := b.Build(context.Background(), day("2024-03-01"), day("2024-03-03"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Every merged row must be complete after the drop pass.
	for i := range frame.Dates {
		for j := range frame.Columns {
			if math.IsNaN(frame.At(i, j)) {
				t.Fatalf("missing cell at (%s, %s)", frame.Dates[i], frame.Columns[j])
			}
		}
	}

	jpy := frame.ColIdx("JPY")
	if jpy < 0 {
		t.Fatalf("columns = %v, want JPY return column", frame.Columns)
	}
	i := frame.DateIdx(day("2024-03-01"))
	if i < 0 {
		t.Fatalf("2024-03-01 missing from merged dataset")
	}
	// Close 100 -> 110: the row dated 03-01 carries the return realized
	// the NEXT day, never that day's own move.
	if got := frame.At(i, jpy); math.Abs(got-0.10) > 1e-12 {
		t.Fatalf("JPY forward return on 03-01 = %v, want 0.10", got)
	}

	tone := frame.ColIdx("avg_tone_jpy")
	if tone < 0 {
		t.Fatalf("columns = %v, want avg_tone_jpy", frame.Columns)
	}
	// Day 1 JPY tones are {1, 2}.
	if got := frame.At(i, tone); got != 1.5 {
		t.Fatalf("avg_tone_jpy on 03-01 = %v, want 1.5", got)
	}
}

func TestBuildDatasetFeatureColumns(t *testing.T) {
	b, _, _, fs := testBuilder(t)

	frame, err := b.Build(context.Background(), day("2024-03-01"), day("2024-03-03"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, want := range []string{
		"avg_tone_jpy", "avg_tone_gbp",
		"tone_dispersion_jpy", "tone_dispersion_gbp",
		"event_count_jpy", "event_count_gbp",
		"JPY", "GBP",
	} {
		if frame.ColIdx(want) < 0 {
			t.Fatalf("columns = %v, missing %s", frame.Columns, want)
		}
	}
	// 3 days x 2 currencies mirrored into the analytical store.
	if len(fs.stored) != 6 {
		t.Fatalf("feature store rows = %d, want 6", len(fs.stored))
	}
}

func TestBuildDatasetCacheShortCircuits(t *testing.T) {
	b, src, store, _ := testBuilder(t)

	first, err := b.Build(context.Background(), day("2024-03-01"), day("2024-03-03"))
	if err != nil {
		t.Fatalf("first Build: %v", err)
	}
	if store.saves != 1 {
		t.Fatalf("saves = %d, want 1", store.saves)
	}

	// Poison every upstream day; a cached dataset must never refetch.
	for _, ds := range []string{"2024-03-01", "2024-03-02", "2024-03-03"} {
		src.errs[ds] = errors.New("upstream gone")
	}

	second, err := b.Build(context.Background(), day("2024-03-01"), day("2024-03-03"))
	if err != nil {
		t.Fatalf("second Build: %v", err)
	}
	if second.NumRows() != first.NumRows() || len(second.Columns) != len(first.Columns) {
		t.Fatalf("cached dataset diverges: %dx%d vs %dx%d",
			second.NumRows(), len(second.Columns), first.NumRows(), len(first.Columns))
	}
	if store.saves != 1 {
		t.Fatalf("saves = %d after cache hit, want 1", store.saves)
	}
}

func TestBuildDatasetFeatureStoreFailureIsSoft(t *testing.T) {
	b, _, _, fs := testBuilder(t)
	fs.err = errors.New("clickhouse down")

	if _, err := b.Build(context.Background(), day("2024-03-01"), day("2024-03-03")); err != nil {
		t.Fatalf("Build should tolerate a mirror failure, got %v", err)
	}
}

func TestBuildDatasetEmptyWindow(t *testing.T) {
	b, _, _, _ := testBuilder(t)
	if _, err := b.Build(context.Background(), day("2024-06-01"), day("2024-06-03")); err == nil {
		t.Fatalf("expected error for a window with no sentiment")
	}
}

func TestBuildDatasetLastDayKeepsForwardReturn(t *testing.T) {
	b, _, _, _ := testBuilder(t)

	frame, err := b.Build(context.Background(), day("2024-03-01"), day("2024-03-03"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	i := frame.DateIdx(day("2024-03-03"))
	if i < 0 {
		t.Fatalf("window's last day dropped: buffer days not applied")
	}
	gbp := frame.ColIdx("GBP")
	// GBP close 1.0 on 03-03 -> 2.0 on 03-04 (buffer region).
	if got := frame.At(i, gbp); math.Abs(got-1.0) > 1e-12 {
		t.Fatalf("GBP forward return on 03-03 = %v, want 1.0", got)
	}
}

func TestBuildDatasetDateBoundsRespectUTC(t *testing.T) {
	b, _, _, _ := testBuilder(t)

	// Timestamps inside the day normalize to the same calendar window.
	start := day("2024-03-01").Add(13 * time.Hour)
	end := day("2024-03-03").Add(5 * time.Hour)
	frame, err := b.Build(context.Background(), start, end)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if frame.DateIdx(util.DateOnly(start)) < 0 {
		t.Fatalf("normalized start date missing from dataset")
	}
}
