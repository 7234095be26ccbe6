package usecase

import (
	"context"
	"sort"
	"testing"

	"ToneFX/internal/domain/models"
	"ToneFX/internal/registry"
	"ToneFX/pkg/util"
)

func TestCollectRangeSortedAndComplete(t *testing.T) {
	start, end := day("2024-03-01"), day("2024-03-05")
	src := newStubSource()
	for _, d := range util.DateRange(start, end) {
		src.events[d.Format(util.DateLayout)] = []models.RawEvent{
			event(d, "GBR", 1.0),
			event(d, "JPN", -0.5),
		}
	}

	agg := NewDayAggregator(src, newMemStore(), registry.Default(), FilterParams{}, nil, nil)
	col := NewCollector(agg, 4, 2, nil)

	rows, reports, err := col.CollectRange(context.Background(), start, end)
	if err != nil {
		t.Fatalf("CollectRange: %v", err)
	}
	if len(reports) != 5 {
		t.Fatalf("reports = %d, want 5", len(reports))
	}
	if len(rows) != 10 {
		t.Fatalf("rows = %d, want 10", len(rows))
	}
	sorted := sort.SliceIsSorted(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date)
		}
		return rows[i].Currency < rows[j].Currency
	})
	if !sorted {
		t.Fatalf("rows are not sorted by (date, currency)")
	}
	for _, rep := range reports {
		if rep.Outcome != models.DayOK {
			t.Fatalf("%s: outcome = %s", rep.Date.Format(util.DateLayout), rep.Outcome)
		}
	}
}

func TestCollectRangeMixedOutcomes(t *testing.T) {
	start, end := day("2024-03-01"), day("2024-03-03")
	src := newStubSource()
	src.events["2024-03-01"] = []models.RawEvent{event(day("2024-03-01"), "JPN", 1.0)}
	src.errs["2024-03-02"] = context.DeadlineExceeded
	// 2024-03-03 empty.

	agg := NewDayAggregator(src, newMemStore(), registry.Default(), FilterParams{}, nil, nil)
	col := NewCollector(agg, 2, 1, nil)

	rows, reports, err := col.CollectRange(context.Background(), start, end)
	if err != nil {
		t.Fatalf("CollectRange: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1 (only the good day contributes)", len(rows))
	}
	got := make(map[models.DayOutcome]int)
	for _, rep := range reports {
		got[rep.Outcome]++
	}
	if got[models.DayOK] != 1 || got[models.DayFetchError] != 1 || got[models.DayEmpty] != 1 {
		t.Fatalf("outcome histogram = %v", got)
	}
}

func TestCollectRangeProgress(t *testing.T) {
	start, end := day("2024-03-01"), day("2024-03-07")
	src := newStubSource()
	for _, d := range util.DateRange(start, end) {
		src.events[d.Format(util.DateLayout)] = []models.RawEvent{event(d, "JPN", 1.0)}
	}

	agg := NewDayAggregator(src, newMemStore(), registry.Default(), FilterParams{}, nil, nil)
	col := NewCollector(agg, 3, 3, nil)

	var snaps []Progress
	col.SetProgressFunc(func(p Progress) { snaps = append(snaps, p) })

	if _, _, err := col.CollectRange(context.Background(), start, end); err != nil {
		t.Fatalf("CollectRange: %v", err)
	}
	// 7 days, every 3rd plus the final: done=3, 6, 7.
	if len(snaps) != 3 {
		t.Fatalf("progress snapshots = %d, want 3", len(snaps))
	}
	last := snaps[len(snaps)-1]
	if last.Done != 7 || last.Total != 7 {
		t.Fatalf("final snapshot = %+v", last)
	}
}

func TestCollectRangeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := newStubSource()
	agg := NewDayAggregator(src, newMemStore(), registry.Default(), FilterParams{}, nil, nil)
	col := NewCollector(agg, 2, 30, nil)

	_, _, err := col.CollectRange(ctx, day("2024-03-01"), day("2024-03-10"))
	if err == nil {
		t.Fatalf("expected context error after cancellation")
	}
}

func TestCollectRangeEmptyWindow(t *testing.T) {
	src := newStubSource()
	agg := NewDayAggregator(src, newMemStore(), registry.Default(), FilterParams{}, nil, nil)
	col := NewCollector(agg, 2, 30, nil)

	rows, reports, err := col.CollectRange(context.Background(), day("2024-03-05"), day("2024-03-01"))
	if err != nil || rows != nil || reports != nil {
		t.Fatalf("inverted window: rows=%v reports=%v err=%v", rows, reports, err)
	}
}
