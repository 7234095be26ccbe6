package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"ToneFX/internal/domain/models"
	drepo "ToneFX/internal/domain/repository"
	"ToneFX/internal/registry"
	"ToneFX/internal/services/features"
	applogger "ToneFX/pkg/logger"
	"ToneFX/pkg/util"
)

// PriceService assembles a wide daily close-price table for the whole
// currency universe. Gaps are filled forward then backward; instruments
// still too sparse before filling are dropped rather than papered over.
type PriceService struct {
	quotes         drepo.QuoteSource
	reg            *registry.Registry
	symbolSuffix   string
	maxMissingFrac float64
	metrics        drepo.Metrics
	logger         *applogger.Logger
}

func NewPriceService(
	quotes drepo.QuoteSource,
	reg *registry.Registry,
	symbolSuffix string,
	maxMissingFrac float64,
	metrics drepo.Metrics,
	logger *applogger.Logger,
) *PriceService {
	if maxMissingFrac <= 0 {
		maxMissingFrac = 0.5
	}
	return &PriceService{
		quotes:         quotes,
		reg:            reg,
		symbolSuffix:   symbolSuffix,
		maxMissingFrac: maxMissingFrac,
		metrics:        metrics,
		logger:         logger,
	}
}

// FetchPrices returns a frame of daily closes over [start, end] with one
// uppercase ticker column per surviving instrument. The row index is the
// union of every instrument's trading dates. Missingness is judged before
// filling, against that union index.
func (p *PriceService) FetchPrices(ctx context.Context, start, end time.Time) (*models.Frame, error) {
	start, end = util.DateOnly(start), util.DateOnly(end)

	type series struct {
		ticker string
		closes map[time.Time]float64
	}
	var fetched []series
	dateSet := make(map[time.Time]bool)

	for _, ticker := range p.reg.Universe() {
		symbol := ticker + p.symbolSuffix
		closes, err := p.quotes.DailyCloses(ctx, symbol, start, end)
		if err != nil {
			if p.metrics != nil {
				p.metrics.RecordError("price_fetch")
			}
			if p.logger != nil {
				p.logger.Warn("price fetch failed",
					applogger.String("symbol", symbol),
					applogger.Error(err),
				)
			}
			continue
		}
		fetched = append(fetched, series{ticker: ticker, closes: closes})
		for d := range closes {
			dateSet[d] = true
		}
	}
	if len(dateSet) == 0 {
		return nil, fmt.Errorf("no price data for any instrument in [%s, %s]",
			start.Format(util.DateLayout), end.Format(util.DateLayout))
	}

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	columns := make([]string, len(fetched))
	for i, s := range fetched {
		columns[i] = s.ticker
	}
	frame := models.NewFrame(dates, columns)
	for j, s := range fetched {
		for i, d := range dates {
			if v, ok := s.closes[d]; ok {
				frame.Set(i, j, v)
			}
		}
	}

	var dropped []string
	for _, col := range frame.Columns {
		frac := features.MissingFraction(frame, col)
		if frac > p.maxMissingFrac {
			dropped = append(dropped, col)
			if p.metrics != nil {
				p.metrics.RecordInstrumentDropped(col)
			}
			if p.logger != nil {
				p.logger.Warn("instrument dropped for sparsity",
					applogger.String("ticker", col),
					applogger.Any("missing_frac", frac),
				)
			}
		}
	}
	if len(dropped) > 0 {
		frame.DropColumns(dropped)
	}
	if len(frame.Columns) == 0 {
		return nil, fmt.Errorf("all instruments dropped for sparsity in [%s, %s]",
			start.Format(util.DateLayout), end.Format(util.DateLayout))
	}

	features.ForwardFill(frame)
	features.BackFill(frame)

	if p.logger != nil {
		p.logger.Info("prices assembled",
			applogger.Int("instruments", len(frame.Columns)),
			applogger.Int("days", frame.NumRows()),
			applogger.String("dropped", strings.Join(dropped, ",")),
		)
	}
	return frame, nil
}

// FetchReturns is FetchPrices followed by simple daily returns, columns
// suffixed "_ret". The first row of every return series is missing.
func (p *PriceService) FetchReturns(ctx context.Context, start, end time.Time) (*models.Frame, error) {
	prices, err := p.FetchPrices(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return features.SimpleReturns(prices), nil
}
