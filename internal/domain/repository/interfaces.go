package repository

import (
	"context"
	"errors"
	"time"

	"ToneFX/internal/domain/models"
)

// ErrNoArchive marks a date for which the remote source published nothing.
// It is a valid empty-data outcome, not a failure.
var ErrNoArchive = errors.New("archive not published for date")

// ErrUnknownSchema marks an archive whose column layout matched no known
// revision. Treated like ErrNoArchive at the aggregation boundary.
var ErrUnknownSchema = errors.New("unrecognized archive schema")

// EventSource fetches one calendar day's raw event records.
type EventSource interface {
	FetchDay(ctx context.Context, date time.Time) ([]models.RawEvent, error)
}

// QuoteSource fetches daily closing prices for one instrument symbol.
type QuoteSource interface {
	DailyCloses(ctx context.Context, symbol string, start, end time.Time) (map[time.Time]float64, error)
}

// AggregateStore is the per-day cache capability handed to the aggregator.
// Get reports presence explicitly; a present key is trusted without
// revalidation. Put must be atomic: either the full day lands or nothing.
type AggregateStore interface {
	Get(ctx context.Context, date time.Time) ([]models.DailyAggregate, bool, error)
	Put(ctx context.Context, date time.Time, rows []models.DailyAggregate) error
}

// DatasetStore persists the full merged dataset, keyed by explicit path.
// Save returns the resulting file size in bytes.
type DatasetStore interface {
	Load(ctx context.Context, path string) (*models.Frame, bool, error)
	Save(ctx context.Context, path string, f *models.Frame) (int64, error)
}

// FeatureStore mirrors aggregates into an analytical store for ad-hoc SQL.
type FeatureStore interface {
	StoreAggregates(ctx context.Context, rows []models.DailyAggregate) error
	QueryAggregates(ctx context.Context, currency string, from, to time.Time) ([]models.DailyAggregate, error)
	Health(ctx context.Context) error
	Close() error
}

// SignalPublisher delivers entry matrices to the external backtest engine.
type SignalPublisher interface {
	PublishSignals(ctx context.Context, long, short *models.SignalMatrix) error
	Close() error
}

// Metrics abstracts pipeline instrumentation.
type Metrics interface {
	RecordDay(outcome string)
	RecordAggregateRows(n int)
	RecordCacheHit(tier string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordInstrumentDropped(symbol string)
}
