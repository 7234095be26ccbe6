package model

import (
	"context"
	"fmt"
	"time"

	xhttp "ToneFX/pkg/http"
)

// Client talks to the model sidecar over JSON HTTP. The sidecar owns the
// fitted estimator state; this process only ships matrices back and forth.
type Client struct {
	baseURL string
	http    *xhttp.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

func (c *Client) postJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	if c.http == nil || c.baseURL == "" {
		return fmt.Errorf("model client not initialized")
	}
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.baseURL + path,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: payload,
	}, dest)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

type fitRequest struct {
	Features [][]float64 `json:"features"`
	Target   []float64   `json:"target"`
}

type matrixRequest struct {
	Features [][]float64 `json:"features"`
}

type statusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type predictResponse struct {
	Predictions []float64 `json:"predictions"`
	Error       string    `json:"error,omitempty"`
}

type matrixResponse struct {
	Features [][]float64 `json:"features"`
	Error    string      `json:"error,omitempty"`
}

// Regressor implements the fit/predict half of the sidecar.
type Regressor struct{ c *Client }

func NewRegressor(c *Client) *Regressor { return &Regressor{c: c} }

func (r *Regressor) Fit(ctx context.Context, features [][]float64, target []float64) error {
	if len(features) != len(target) {
		return fmt.Errorf("fit: %d feature rows vs %d targets", len(features), len(target))
	}
	var resp statusResponse
	if err := r.c.postJSON(ctx, "/model/fit", fitRequest{Features: features, Target: target}, &resp); err != nil {
		return err
	}
	if resp.Error != "" {
		return fmt.Errorf("model fit: %s", resp.Error)
	}
	return nil
}

func (r *Regressor) Predict(ctx context.Context, features [][]float64) ([]float64, error) {
	var resp predictResponse
	if err := r.c.postJSON(ctx, "/model/predict", matrixRequest{Features: features}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("model predict: %s", resp.Error)
	}
	if len(resp.Predictions) != len(features) {
		return nil, fmt.Errorf("model predict: %d scores for %d rows", len(resp.Predictions), len(features))
	}
	return resp.Predictions, nil
}

// Scaler implements the feature-scaling half of the sidecar.
type Scaler struct{ c *Client }

func NewScaler(c *Client) *Scaler { return &Scaler{c: c} }

func (s *Scaler) FitTransform(ctx context.Context, features [][]float64) ([][]float64, error) {
	return s.roundTrip(ctx, "/scaler/fit_transform", features)
}

func (s *Scaler) Transform(ctx context.Context, features [][]float64) ([][]float64, error) {
	return s.roundTrip(ctx, "/scaler/transform", features)
}

func (s *Scaler) roundTrip(ctx context.Context, path string, features [][]float64) ([][]float64, error) {
	var resp matrixResponse
	if err := s.c.postJSON(ctx, path, matrixRequest{Features: features}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("scaler: %s", resp.Error)
	}
	if len(resp.Features) != len(features) {
		return nil, fmt.Errorf("scaler: %d rows back for %d sent", len(resp.Features), len(features))
	}
	return resp.Features, nil
}
