package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"ToneFX/internal/domain/models"
	drepo "ToneFX/internal/domain/repository"
	dservice "ToneFX/internal/domain/service"
	"ToneFX/internal/registry"
	"ToneFX/internal/services/features"
	applogger "ToneFX/pkg/logger"
)

// SignalBuilder turns model predictions into cross-sectional long/short
// entry matrices. Ranking is per date and dense: ties break by order of
// first appearance, so the same prediction slice always yields the same
// books.
type SignalBuilder struct {
	scaler    dservice.Scaler
	regressor dservice.Regressor
	reg       *registry.Registry
	publisher drepo.SignalPublisher // optional hand-off to the backtest engine
	topN      int
	logger    *applogger.Logger
}

func NewSignalBuilder(
	scaler dservice.Scaler,
	regressor dservice.Regressor,
	reg *registry.Registry,
	publisher drepo.SignalPublisher,
	topN int,
	logger *applogger.Logger,
) *SignalBuilder {
	if topN < 1 {
		topN = 5
	}
	return &SignalBuilder{
		scaler:    scaler,
		regressor: regressor,
		reg:       reg,
		publisher: publisher,
		topN:      topN,
		logger:    logger,
	}
}

// BuildSignals ranks predictions per date. Rank r counts from 1 at the
// highest predicted return: long holds r <= topN, short holds r > n-topN
// with n the date's cross-section size. When topN exceeds half the
// cross-section the books overlap; that is the caller's lookout. Columns
// always span the full canonical universe; currencies with no prediction
// on a date stay false.
func (s *SignalBuilder) BuildSignals(predictions []models.Prediction, topN int) (*models.SignalMatrix, *models.SignalMatrix, error) {
	if topN < 1 {
		topN = s.topN
	}
	if len(predictions) == 0 {
		return nil, nil, fmt.Errorf("no predictions to rank")
	}

	byDate := make(map[time.Time][]models.Prediction)
	for _, p := range predictions {
		d := p.Date
		byDate[d] = append(byDate[d], p)
	}
	dates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	universe := s.reg.Universe()
	long := models.NewSignalMatrix(dates, universe)
	short := models.NewSignalMatrix(dates, universe)

	colIdx := make(map[string]int, len(universe))
	for j, c := range universe {
		colIdx[c] = j
	}

	for i, d := range dates {
		preds := byDate[d]
		order := make([]int, len(preds))
		for k := range order {
			order[k] = k
		}
		// Descending by predicted return; stable keeps first-appearance
		// order among exact ties.
		sort.SliceStable(order, func(a, b int) bool {
			return preds[order[a]].PredReturn > preds[order[b]].PredReturn
		})

		n := len(preds)
		for rank0, k := range order {
			rank := rank0 + 1
			ticker := strings.ToUpper(preds[k].Currency)
			j, ok := colIdx[ticker]
			if !ok {
				continue
			}
			if rank <= topN {
				long.Cells[i][j] = true
			}
			if rank > n-topN {
				short.Cells[i][j] = true
			}
		}
	}

	if s.logger != nil {
		s.logger.Info("signals built",
			applogger.Int("dates", len(dates)),
			applogger.Int("top_n", topN),
			applogger.Int("universe", len(universe)),
		)
	}
	return long, short, nil
}

// BuildSignalsFromFeatures scores a merged dataset with the fitted model
// and ranks the predictions. The scaler and regressor must already be
// fitted; Transform and Predict are pure applications.
func (s *SignalBuilder) BuildSignalsFromFeatures(ctx context.Context, dataset *models.Frame, topN int) (*models.SignalMatrix, *models.SignalMatrix, error) {
	rows, err := features.WideToLong(dataset)
	if err != nil {
		return nil, nil, err
	}

	matrix := make([][]float64, len(rows))
	for i, r := range rows {
		matrix[i] = []float64{r.Features[0], r.Features[1], r.Features[2]}
	}
	scaled, err := s.scaler.Transform(ctx, matrix)
	if err != nil {
		return nil, nil, fmt.Errorf("scale features: %w", err)
	}
	scores, err := s.regressor.Predict(ctx, scaled)
	if err != nil {
		return nil, nil, fmt.Errorf("predict: %w", err)
	}
	if len(scores) != len(rows) {
		return nil, nil, fmt.Errorf("model returned %d scores for %d rows", len(scores), len(rows))
	}

	preds := make([]models.Prediction, len(rows))
	for i, r := range rows {
		preds[i] = models.Prediction{
			Date:       r.Date,
			Currency:   strings.ToUpper(r.Currency),
			PredReturn: scores[i],
		}
	}
	return s.BuildSignals(preds, topN)
}

// TrainModel fits the scaler and regressor on a merged dataset. Rows with
// no realized next-day return are excluded from the fit.
func (s *SignalBuilder) TrainModel(ctx context.Context, dataset *models.Frame) error {
	rows, err := features.WideToLong(dataset)
	if err != nil {
		return err
	}

	var (
		matrix [][]float64
		target []float64
	)
	for _, r := range rows {
		if math.IsNaN(r.NextDayReturn) {
			continue
		}
		matrix = append(matrix, []float64{r.Features[0], r.Features[1], r.Features[2]})
		target = append(target, r.NextDayReturn)
	}
	if len(matrix) == 0 {
		return fmt.Errorf("no labeled rows to fit on")
	}

	scaled, err := s.scaler.FitTransform(ctx, matrix)
	if err != nil {
		return fmt.Errorf("fit scaler: %w", err)
	}
	if err := s.regressor.Fit(ctx, scaled, target); err != nil {
		return fmt.Errorf("fit regressor: %w", err)
	}
	if s.logger != nil {
		s.logger.Info("model fitted", applogger.Int("samples", len(target)))
	}
	return nil
}

// Publish hands finished books to the external backtest engine. A nil
// publisher makes this a no-op.
func (s *SignalBuilder) Publish(ctx context.Context, long, short *models.SignalMatrix) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.PublishSignals(ctx, long, short)
}
