package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"ToneFX/internal/domain/models"
	applogger "ToneFX/pkg/logger"
	"ToneFX/pkg/util"
)

// Progress is a point-in-time snapshot of a running collection. Reported as
// an observable side effect only; it is not part of the functional contract.
type Progress struct {
	Done  int `json:"done"`
	Total int `json:"total"`
	Rows  int `json:"rows"`
}

// ProgressFunc receives periodic collection progress.
type ProgressFunc func(Progress)

// Collector fans AggregateDay out over a date range with a bounded worker
// pool. Day tasks are independent: each writes only its own cache key, so
// the pool needs no coordination beyond the job and result channels.
type Collector struct {
	agg           *DayAggregator
	workers       int
	progressEvery int
	logger        *applogger.Logger
	onProgress    ProgressFunc
}

func NewCollector(agg *DayAggregator, workers, progressEvery int, logger *applogger.Logger) *Collector {
	if workers < 1 {
		workers = 1
	}
	if progressEvery < 1 {
		progressEvery = 30
	}
	return &Collector{agg: agg, workers: workers, progressEvery: progressEvery, logger: logger}
}

// SetProgressFunc attaches a progress observer (optional).
func (c *Collector) SetProgressFunc(fn ProgressFunc) { c.onProgress = fn }

type dayResult struct {
	rows   []models.DailyAggregate
	report models.DayReport
}

// CollectRange aggregates every calendar date in [start, end] inclusive.
// Completion order is non-deterministic; the final table is sorted by
// (date, currency) so downstream logic observes a deterministic view. Days
// that fail or hold no data contribute nothing — the reports tell why.
func (c *Collector) CollectRange(ctx context.Context, start, end time.Time) ([]models.DailyAggregate, []models.DayReport, error) {
	dates := util.DateRange(start, end)
	if len(dates) == 0 {
		return nil, nil, nil
	}

	if c.logger != nil {
		c.logger.Info("collection started",
			applogger.String("start", util.DateOnly(start).Format(util.DateLayout)),
			applogger.String("end", util.DateOnly(end).Format(util.DateLayout)),
			applogger.Int("days", len(dates)),
			applogger.Int("workers", c.workers),
		)
	}

	jobs := make(chan time.Time)
	results := make(chan dayResult)

	var wg sync.WaitGroup
	workers := c.workers
	if workers > len(dates) {
		workers = len(dates)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range jobs {
				rows, report := c.agg.AggregateDay(ctx, d)
				results <- dayResult{rows: rows, report: report}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, d := range dates {
			select {
			case <-ctx.Done():
				return
			case jobs <- d:
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	var (
		all     []models.DailyAggregate
		reports = make([]models.DayReport, 0, len(dates))
		done    int
	)
	for res := range results {
		done++
		all = append(all, res.rows...)
		reports = append(reports, res.report)
		if done%c.progressEvery == 0 || done == len(dates) {
			c.reportProgress(done, len(dates), len(all))
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, reports, err
	}

	sort.Slice(all, func(i, j int) bool {
		if !all[i].Date.Equal(all[j].Date) {
			return all[i].Date.Before(all[j].Date)
		}
		return all[i].Currency < all[j].Currency
	})

	c.logSummary(all)
	return all, reports, nil
}

func (c *Collector) reportProgress(done, total, rows int) {
	if c.logger != nil {
		c.logger.Info("collection progress",
			applogger.Int("done", done),
			applogger.Int("total", total),
			applogger.Int("rows", rows),
		)
	}
	if c.onProgress != nil {
		c.onProgress(Progress{Done: done, Total: total, Rows: rows})
	}
}

func (c *Collector) logSummary(all []models.DailyAggregate) {
	if c.logger == nil {
		return
	}
	if len(all) == 0 {
		c.logger.Warn("collection finished empty")
		return
	}
	days := make(map[time.Time]bool)
	ccys := make(map[string]bool)
	toneSum := 0.0
	for _, r := range all {
		days[r.Date] = true
		ccys[r.Currency] = true
		toneSum += r.AvgTone
	}
	c.logger.Info("collection complete",
		applogger.Int("rows", len(all)),
		applogger.Int("days", len(days)),
		applogger.Int("currencies", len(ccys)),
		applogger.String("first", all[0].Date.Format(util.DateLayout)),
		applogger.String("last", all[len(all)-1].Date.Format(util.DateLayout)),
		applogger.Any("avg_tone_mean", toneSum/float64(len(all))),
	)
}
