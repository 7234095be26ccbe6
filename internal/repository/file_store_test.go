package repository

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ToneFX/internal/domain/models"
	"ToneFX/pkg/util"
)

func day(s string) time.Time {
	t, err := time.Parse(util.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestFileAggregateStoreRoundTrip(t *testing.T) {
	store, err := NewFileAggregateStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileAggregateStore: %v", err)
	}
	d := day("2024-03-01")
	rows := []models.DailyAggregate{
		{Date: d, Currency: "GBP", AvgTone: -1.25, ToneDispersion: 0.5, EventCount: 3},
		{Date: d, Currency: "JPY", AvgTone: 2.0, ToneDispersion: math.NaN(), EventCount: 1},
	}
	if err := store.Put(context.Background(), d, rows); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := store.Get(context.Background(), d)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("day not found after Put")
	}
	if len(got) != 2 {
		t.Fatalf("rows = %d, want 2", len(got))
	}
	if got[0] != rows[0] {
		t.Fatalf("row 0 = %+v, want %+v", got[0], rows[0])
	}
	if got[1].Currency != "JPY" || !math.IsNaN(got[1].ToneDispersion) {
		t.Fatalf("NaN dispersion lost in round trip: %+v", got[1])
	}
}

func TestFileAggregateStoreMiss(t *testing.T) {
	store, err := NewFileAggregateStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileAggregateStore: %v", err)
	}
	_, ok, err := store.Get(context.Background(), day("2024-03-01"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatalf("unexpected hit on empty store")
	}
}

func TestFileAggregateStoreNoPartialFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileAggregateStore(dir)
	if err != nil {
		t.Fatalf("NewFileAggregateStore: %v", err)
	}
	d := day("2024-03-01")
	if err := store.Put(context.Background(), d, []models.DailyAggregate{
		{Date: d, Currency: "JPY", AvgTone: 1, ToneDispersion: math.NaN(), EventCount: 1},
	}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "2024-03-01.csv.gz" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("cache dir = %v, want exactly [2024-03-01.csv.gz]", names)
	}
}

func TestFileDatasetStoreRoundTrip(t *testing.T) {
	store := NewFileDatasetStore()
	path := filepath.Join(t.TempDir(), "data", "dataset.csv.gz")

	dates := []time.Time{day("2024-03-01"), day("2024-03-02")}
	frame := models.NewFrame(dates, []string{"avg_tone_jpy", "JPY"})
	frame.Set(0, 0, 1.5)
	frame.Set(0, 1, 0.01)
	frame.Set(1, 0, -0.25)
	// (1,1) stays missing.

	size, err := store.Save(context.Background(), path, frame)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if size <= 0 {
		t.Fatalf("size = %d, want > 0", size)
	}

	got, ok, err := store.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !ok {
		t.Fatalf("dataset not found after Save")
	}
	if got.NumRows() != 2 || len(got.Columns) != 2 {
		t.Fatalf("shape = %dx%d, want 2x2", got.NumRows(), len(got.Columns))
	}
	if got.At(0, 0) != 1.5 || got.At(0, 1) != 0.01 || got.At(1, 0) != -0.25 {
		t.Fatalf("values did not round-trip")
	}
	if !math.IsNaN(got.At(1, 1)) {
		t.Fatalf("missing cell = %v, want NaN", got.At(1, 1))
	}
	if !got.Dates[1].Equal(day("2024-03-02")) {
		t.Fatalf("dates did not round-trip: %v", got.Dates)
	}
}

func TestFileDatasetStoreMiss(t *testing.T) {
	store := NewFileDatasetStore()
	_, ok, err := store.Load(context.Background(), filepath.Join(t.TempDir(), "absent.csv.gz"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Fatalf("unexpected hit on absent dataset")
	}
}
