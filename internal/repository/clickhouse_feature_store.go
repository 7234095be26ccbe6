package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"ToneFX/internal/domain/models"
	pkgch "ToneFX/pkg/clickhouse"
	applogger "ToneFX/pkg/logger"
	"ToneFX/pkg/util"
)

// SentimentSchema creates the analytical mirror table. ReplacingMergeTree
// keeps re-inserted days idempotent: the latest version of a (date, ccy)
// pair wins at merge time.
var SentimentSchema = []string{
	`CREATE TABLE IF NOT EXISTS daily_sentiment (
        date            Date,
        ccy             LowCardinality(String),
        avg_tone        Float64,
        tone_dispersion Float64,
        event_count     UInt32,
        inserted_at     DateTime DEFAULT now()
    ) ENGINE = ReplacingMergeTree(inserted_at)
    ORDER BY (ccy, date)`,
}

// CHFeatureStore implements FeatureStore backed by ClickHouse.
type CHFeatureStore struct {
	db *sql.DB
	ch *pkgch.Client
	l  *applogger.Logger
}

func NewCHFeatureStore(ch *pkgch.Client) *CHFeatureStore {
	return &CHFeatureStore{db: ch.DB(), ch: ch}
}

// SetLogger injects a structured logger.
func (s *CHFeatureStore) SetLogger(l *applogger.Logger) { s.l = l }

// Init creates the sentiment table if missing.
func (s *CHFeatureStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, SentimentSchema)
}

func (s *CHFeatureStore) StoreAggregates(ctx context.Context, rows []models.DailyAggregate) error {
	if len(rows) == 0 {
		return nil
	}
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO daily_sentiment (date, ccy, avg_tone, tone_dispersion, event_count) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	for _, r := range rows {
		// ClickHouse Float64 has no NaN-safe aggregate path; store the
		// undefined dispersion as zero and let event_count disambiguate.
		dispersion := r.ToneDispersion
		if math.IsNaN(dispersion) {
			dispersion = 0
		}
		if _, err := stmt.ExecContext(ctx, r.Date, r.Currency, r.AvgTone, dispersion, uint32(r.EventCount)); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			if s.l != nil {
				s.l.Error("clickhouse sentiment insert error",
					applogger.String("ccy", r.Currency),
					applogger.String("date", r.Date.Format(util.DateLayout)),
					applogger.Error(err),
				)
			}
			return fmt.Errorf("insert sentiment row: %w", err)
		}
	}
	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("close insert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}

	if s.l != nil {
		s.l.Info("clickhouse sentiment insert ok",
			applogger.Int("rows", len(rows)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

func (s *CHFeatureStore) QueryAggregates(ctx context.Context, currency string, from, to time.Time) ([]models.DailyAggregate, error) {
	start := time.Now()
	const q = `
        SELECT date, ccy, avg_tone, tone_dispersion, event_count
        FROM daily_sentiment FINAL
        WHERE ccy = ? AND date >= ? AND date <= ?
        ORDER BY date ASC
    `
	rows, err := s.db.QueryContext(ctx, q, currency, from, to)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse sentiment query error",
				applogger.String("ccy", currency),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("query sentiment: %w", err)
	}
	defer rows.Close()

	out := make([]models.DailyAggregate, 0, 256)
	for rows.Next() {
		var (
			r     models.DailyAggregate
			count uint32
		)
		if err := rows.Scan(&r.Date, &r.Currency, &r.AvgTone, &r.ToneDispersion, &count); err != nil {
			return nil, fmt.Errorf("scan sentiment row: %w", err)
		}
		r.Date = util.DateOnly(r.Date)
		r.EventCount = int(count)
		if r.EventCount < 2 {
			r.ToneDispersion = math.NaN()
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	if s.l != nil {
		s.l.Info("clickhouse sentiment query ok",
			applogger.String("ccy", currency),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHFeatureStore) Health(ctx context.Context) error {
	return s.ch.Health(ctx)
}

func (s *CHFeatureStore) Close() error {
	return s.ch.Close()
}
