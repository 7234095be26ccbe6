package service

import "context"

// Regressor is the external prediction model. Any regression algorithm is
// substitutable; the pipeline only needs fit and predict.
type Regressor interface {
	Fit(ctx context.Context, features [][]float64, target []float64) error
	Predict(ctx context.Context, features [][]float64) ([]float64, error)
}

// Scaler is the external feature scaler paired with the Regressor.
type Scaler interface {
	FitTransform(ctx context.Context, features [][]float64) ([][]float64, error)
	Transform(ctx context.Context, features [][]float64) ([][]float64, error)
}
