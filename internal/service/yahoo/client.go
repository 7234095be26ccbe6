package yahoo

import (
	"context"
	"fmt"
	"strings"
	"time"

	svccache "ToneFX/internal/service/cache"
	xhttp "ToneFX/pkg/http"
	applogger "ToneFX/pkg/logger"
	"ToneFX/pkg/util"
)

// Client fetches daily closing prices from the chart endpoint, one symbol
// per request. Responses are cached briefly so a dataset rebuild does not
// refetch every instrument.
type Client struct {
	baseURL  string
	client   *xhttp.Client
	cache    *svccache.TTLCache
	cacheTTL time.Duration
	logger   *applogger.Logger
}

// New creates a quote client.
func New(baseURL string, timeout, cacheTTL time.Duration, l *applogger.Logger) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   xhttp.NewClient(xhttp.WithTimeout(timeout)),
		cache:    svccache.NewTTLCache(),
		cacheTTL: cacheTTL,
		logger:   l,
	}
}

// DailyCloses returns the close for every session the source reports in
// [start, end], keyed by date at midnight UTC. Sessions with a null close
// are omitted; the caller decides how to repair gaps.
func (c *Client) DailyCloses(ctx context.Context, symbol string, start, end time.Time) (map[time.Time]float64, error) {
	key := fmt.Sprintf("%s|%s|%s", symbol, util.CompactDate(start), util.CompactDate(end))
	if v, ok := c.cache.Get(key); ok {
		if m, ok2 := v.(map[time.Time]float64); ok2 {
			return m, nil
		}
	}

	// period2 is exclusive at day granularity; push it one day past end.
	url := fmt.Sprintf("%s/%s?period1=%d&period2=%d&interval=1d",
		c.baseURL, symbol, util.DateOnly(start).Unix(), util.DateOnly(end).AddDate(0, 0, 1).Unix())

	var resp chartResponse
	if err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    url,
	}, &resp); err != nil {
		return nil, fmt.Errorf("chart %s: %w", symbol, err)
	}

	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("chart %s: %s", symbol, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("chart %s: no result", symbol)
	}

	out := parseCloses(resp.Chart.Result[0])
	c.cache.Set(key, out, c.cacheTTL)
	return out, nil
}

// parseCloses maps timestamps to closes, folding any intraday stamp onto
// its calendar date and skipping null prints.
func parseCloses(r chartResult) map[time.Time]float64 {
	out := make(map[time.Time]float64, len(r.Timestamp))
	if len(r.Indicators.Quote) == 0 {
		return out
	}
	closes := r.Indicators.Quote[0].Close
	for i, ts := range r.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		d := util.DateOnly(time.Unix(ts, 0).UTC())
		out[d] = *closes[i]
	}
	return out
}
