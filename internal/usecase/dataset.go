package usecase

import (
	"context"
	"fmt"
	"time"

	"ToneFX/internal/domain/models"
	drepo "ToneFX/internal/domain/repository"
	"ToneFX/internal/services/features"
	applogger "ToneFX/pkg/logger"
	"ToneFX/pkg/util"
)

// DatasetBuilder assembles the merged research dataset: per-currency daily
// sentiment features inner-joined with next-day FX returns. The finished
// frame is persisted and reused wholesale on later runs; a present dataset
// file short-circuits the entire build.
type DatasetBuilder struct {
	collector    *Collector
	prices       *PriceService
	store        drepo.DatasetStore
	featureStore drepo.FeatureStore // optional analytical mirror
	path         string
	bufferDays   int
	metrics      drepo.Metrics
	logger       *applogger.Logger
}

func NewDatasetBuilder(
	collector *Collector,
	prices *PriceService,
	store drepo.DatasetStore,
	featureStore drepo.FeatureStore,
	path string,
	bufferDays int,
	metrics drepo.Metrics,
	logger *applogger.Logger,
) *DatasetBuilder {
	if bufferDays < 1 {
		bufferDays = 3
	}
	return &DatasetBuilder{
		collector:    collector,
		prices:       prices,
		store:        store,
		featureStore: featureStore,
		path:         path,
		bufferDays:   bufferDays,
		metrics:      metrics,
		logger:       logger,
	}
}

// Build produces the merged dataset for [start, end]. Rows pair the
// features observed on date t with the return realized over t to t+1;
// prices are fetched past end so the last in-range days keep their
// forward return. Rows missing any cell are dropped.
func (b *DatasetBuilder) Build(ctx context.Context, start, end time.Time) (*models.Frame, error) {
	start, end = util.DateOnly(start), util.DateOnly(end)
	began := time.Now()

	if frame, ok, err := b.store.Load(ctx, b.path); err == nil && ok {
		if b.metrics != nil {
			b.metrics.RecordCacheHit("dataset")
		}
		if b.logger != nil {
			b.logger.Info("dataset loaded from cache",
				applogger.String("path", b.path),
				applogger.Int("rows", frame.NumRows()),
			)
		}
		return frame, nil
	} else if err != nil && b.logger != nil {
		b.logger.Warn("dataset cache read failed, rebuilding",
			applogger.String("path", b.path),
			applogger.Error(err),
		)
	}

	rows, reports, err := b.collector.CollectRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("collect sentiment: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no sentiment rows in [%s, %s]",
			start.Format(util.DateLayout), end.Format(util.DateLayout))
	}

	if b.featureStore != nil {
		if err := b.featureStore.StoreAggregates(ctx, rows); err != nil {
			if b.metrics != nil {
				b.metrics.RecordError("feature_store_write")
			}
			if b.logger != nil {
				b.logger.Warn("feature store mirror failed", applogger.Error(err))
			}
		}
	}

	// Extend the price window so date=end still has a next-day close.
	priceEnd := end.AddDate(0, 0, b.bufferDays)
	prices, err := b.prices.FetchPrices(ctx, start, priceEnd)
	if err != nil {
		return nil, fmt.Errorf("fetch prices: %w", err)
	}
	forward := features.ForwardReturns(prices)

	sentiment := features.PivotAggregates(rows)
	merged := features.InnerJoin(sentiment, forward)
	merged.DropIncompleteRows()
	if merged.NumRows() == 0 {
		return nil, fmt.Errorf("merged dataset empty after join in [%s, %s]",
			start.Format(util.DateLayout), end.Format(util.DateLayout))
	}

	size, err := b.store.Save(ctx, b.path, merged)
	if err != nil {
		if b.metrics != nil {
			b.metrics.RecordError("dataset_write")
		}
		if b.logger != nil {
			b.logger.Error("dataset write failed",
				applogger.String("path", b.path),
				applogger.Error(err),
			)
		}
		// The in-memory frame is still good; the next run rebuilds.
	}

	if b.metrics != nil {
		b.metrics.RecordLatency("dataset_build", time.Since(began).Seconds())
	}
	if b.logger != nil {
		failed := 0
		for _, rep := range reports {
			if rep.Outcome == models.DayFetchError || rep.Outcome == models.DaySchemaMismatch {
				failed++
			}
		}
		b.logger.Info("dataset built",
			applogger.Int("rows", merged.NumRows()),
			applogger.Int("columns", len(merged.Columns)),
			applogger.Int("failed_days", failed),
			applogger.Any("bytes", size),
			applogger.String("path", b.path),
		)
	}
	return merged, nil
}
