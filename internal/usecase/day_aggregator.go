package usecase

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"ToneFX/internal/domain/models"
	drepo "ToneFX/internal/domain/repository"
	"ToneFX/internal/registry"
	applogger "ToneFX/pkg/logger"
	"ToneFX/pkg/util"
)

// FilterParams are the configurable record filters applied before
// aggregation. Cached days do NOT encode the parameter set they were built
// with; a present cache key is trusted as-is, so changing filters without
// clearing the day cache silently serves stale rows. The active set is
// logged with every computed day to keep that observable.
type FilterParams struct {
	MinMentions   int
	MinEventCount int
	RootOnly      bool
	ToneThreshold float64 // 0 disables the magnitude filter
}

// DayAggregator turns one day's raw event feed into per-currency sentiment
// rows. Every per-day failure is absorbed into an empty result; the
// DayReport records why, so a single bad day can never abort a collection.
type DayAggregator struct {
	source  drepo.EventSource
	store   drepo.AggregateStore
	reg     *registry.Registry
	filters FilterParams
	metrics drepo.Metrics
	logger  *applogger.Logger
}

func NewDayAggregator(
	source drepo.EventSource,
	store drepo.AggregateStore,
	reg *registry.Registry,
	filters FilterParams,
	metrics drepo.Metrics,
	logger *applogger.Logger,
) *DayAggregator {
	if filters.MinMentions < 1 {
		filters.MinMentions = 1
	}
	if filters.MinEventCount < 1 {
		filters.MinEventCount = 1
	}
	return &DayAggregator{
		source:  source,
		store:   store,
		reg:     reg,
		filters: filters,
		metrics: metrics,
		logger:  logger,
	}
}

// AggregateDay fetches, filters, and aggregates one calendar day.
func (a *DayAggregator) AggregateDay(ctx context.Context, date time.Time) ([]models.DailyAggregate, models.DayReport) {
	date = util.DateOnly(date)
	start := time.Now()

	// Cache first. A readable cached day is returned unconditionally.
	if rows, ok, err := a.store.Get(ctx, date); err == nil && ok {
		a.observe(models.DayCached, len(rows), start)
		return rows, models.DayReport{Date: date, Outcome: models.DayCached, Rows: len(rows)}
	} else if err != nil && a.logger != nil {
		// Unreadable cache entries fall through to recompute.
		a.logger.Warn("day cache read failed",
			applogger.String("date", date.Format(util.DateLayout)),
			applogger.Error(err),
		)
	}

	events, err := a.source.FetchDay(ctx, date)
	if err != nil {
		outcome := models.DayFetchError
		switch {
		case errors.Is(err, drepo.ErrNoArchive):
			outcome = models.DayNotFound
		case errors.Is(err, drepo.ErrUnknownSchema):
			outcome = models.DaySchemaMismatch
		default:
			if a.metrics != nil {
				a.metrics.RecordError("day_fetch")
			}
			if a.logger != nil {
				a.logger.Warn("day fetch failed",
					applogger.String("date", date.Format(util.DateLayout)),
					applogger.Error(err),
				)
			}
		}
		a.observe(outcome, 0, start)
		return nil, models.DayReport{Date: date, Outcome: outcome, Err: err}
	}

	rows := a.aggregate(date, events)
	if len(rows) == 0 {
		a.observe(models.DayEmpty, 0, start)
		return nil, models.DayReport{Date: date, Outcome: models.DayEmpty}
	}

	// At most one durable write per date: a failure here leaves no cache
	// file and the next run recomputes.
	if err := a.store.Put(ctx, date, rows); err != nil {
		if a.metrics != nil {
			a.metrics.RecordError("day_cache_write")
		}
		if a.logger != nil {
			a.logger.Error("day cache write failed",
				applogger.String("date", date.Format(util.DateLayout)),
				applogger.Error(err),
			)
		}
	}

	if a.logger != nil {
		a.logger.Debug("day aggregated",
			applogger.String("date", date.Format(util.DateLayout)),
			applogger.Int("rows", len(rows)),
			applogger.Int("min_mentions", a.filters.MinMentions),
			applogger.Int("min_event_count", a.filters.MinEventCount),
			applogger.Bool("root_only", a.filters.RootOnly),
		)
	}
	a.observe(models.DayOK, len(rows), start)
	return rows, models.DayReport{Date: date, Outcome: models.DayOK, Rows: len(rows)}
}

// aggregate applies the record filters and folds survivors per currency.
func (a *DayAggregator) aggregate(date time.Time, events []models.RawEvent) []models.DailyAggregate {
	accs := make(map[string]*welford)
	for _, ev := range events {
		if !a.reg.HasCountry(ev.Country) {
			continue
		}
		// Same-day filter: the feed carries delayed reports of older
		// events; only same-day reporting counts as fresh news.
		if !ev.EventDate.Equal(date) {
			continue
		}
		if ev.NumMentions < a.filters.MinMentions {
			continue
		}
		if a.filters.RootOnly && !ev.IsRoot {
			continue
		}
		if a.filters.ToneThreshold > 0 && math.Abs(ev.AvgTone) < a.filters.ToneThreshold {
			continue
		}
		ccy, err := a.reg.TickerForCountry(ev.Country)
		if err != nil {
			continue
		}
		acc := accs[ccy]
		if acc == nil {
			acc = &welford{}
			accs[ccy] = acc
		}
		acc.add(ev.AvgTone)
	}

	rows := make([]models.DailyAggregate, 0, len(accs))
	for ccy, acc := range accs {
		if acc.n < a.filters.MinEventCount {
			continue
		}
		rows = append(rows, models.DailyAggregate{
			Date:           date,
			Currency:       ccy,
			AvgTone:        acc.mean,
			ToneDispersion: acc.stddev(),
			EventCount:     acc.n,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Currency < rows[j].Currency })
	return rows
}

func (a *DayAggregator) observe(outcome models.DayOutcome, rows int, start time.Time) {
	if a.metrics == nil {
		return
	}
	a.metrics.RecordDay(string(outcome))
	if outcome == models.DayCached {
		a.metrics.RecordCacheHit("day")
	}
	if rows > 0 {
		a.metrics.RecordAggregateRows(rows)
	}
	a.metrics.RecordLatency("aggregate_day", time.Since(start).Seconds())
}
