package api

import (
	"fmt"
	"time"

	"ToneFX/internal/domain/models"
	"ToneFX/internal/usecase"
	pkgcache "ToneFX/pkg/cache"
	xhttp "ToneFX/pkg/http"
	xlogger "ToneFX/pkg/logger"
	"ToneFX/pkg/util"

	"github.com/labstack/echo/v4"
)

// ResearchHandler exposes the pipeline over HTTP: day aggregates on demand,
// full dataset builds, and ranked entry signals.
type ResearchHandler struct {
	logger   *xlogger.Logger
	agg      *usecase.DayAggregator
	builder  *usecase.DatasetBuilder
	signals  *usecase.SignalBuilder
	cache    pkgcache.Service
	cacheTTL time.Duration
}

func NewResearchHandler(
	logger *xlogger.Logger,
	agg *usecase.DayAggregator,
	builder *usecase.DatasetBuilder,
	signals *usecase.SignalBuilder,
) *ResearchHandler {
	return &ResearchHandler{
		logger:   logger,
		agg:      agg,
		builder:  builder,
		signals:  signals,
		cacheTTL: 5 * time.Minute,
	}
}

// SetCache attaches an API response cache.
func (h *ResearchHandler) SetCache(c pkgcache.Service, ttl time.Duration) {
	h.cache = c
	if ttl > 0 {
		h.cacheTTL = ttl
	}
}

func (h *ResearchHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/status", h.Status)
	g.GET("/aggregates", h.Aggregates)
	g.POST("/dataset/build", h.BuildDataset)
	g.GET("/signals", h.Signals)
}

func (h *ResearchHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

type aggregatesResponse struct {
	Date    string                  `json:"date"`
	Outcome models.DayOutcome       `json:"outcome"`
	Rows    []models.DailyAggregate `json:"rows"`
}

func (h *ResearchHandler) Aggregates(c echo.Context) error {
	req := &models.AggregatesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	date, _ := time.Parse(util.DateLayout, req.Date)

	cacheKey := "aggregates:" + req.Date
	if h.cache != nil {
		var cached aggregatesResponse
		if err := h.cache.Get(c.Request().Context(), cacheKey, &cached); err == nil {
			return xhttp.SuccessResponse(c, cached)
		}
	}

	rows, report := h.agg.AggregateDay(c.Request().Context(), date)
	resp := aggregatesResponse{Date: req.Date, Outcome: report.Outcome, Rows: rows}
	if h.cache != nil && report.Outcome != models.DayFetchError {
		if err := h.cache.Set(c.Request().Context(), cacheKey, resp, h.cacheTTL); err != nil {
			h.logger.Warn("aggregates cache set failed", xlogger.Error(err))
		}
	}
	return xhttp.SuccessResponse(c, resp)
}

type datasetResponse struct {
	Start   string   `json:"start"`
	End     string   `json:"end"`
	Rows    int      `json:"rows"`
	Columns []string `json:"columns"`
}

func (h *ResearchHandler) BuildDataset(c echo.Context) error {
	req := &models.DatasetBuildRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	start, _ := time.Parse(util.DateLayout, req.Start)
	end, _ := time.Parse(util.DateLayout, req.End)
	if end.Before(start) {
		return xhttp.BadRequestResponse(c, xhttp.BadRequestError("end precedes start"))
	}

	frame, err := h.builder.Build(c.Request().Context(), start, end)
	if err != nil {
		h.logger.Error("dataset build error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, datasetResponse{
		Start:   req.Start,
		End:     req.End,
		Rows:    frame.NumRows(),
		Columns: frame.Columns,
	})
}

type signalsResponse struct {
	TopN  int           `json:"top_n"`
	Dates []string      `json:"dates"`
	Long  []signalsBook `json:"long"`
	Short []signalsBook `json:"short"`
}

type signalsBook struct {
	Date    string   `json:"date"`
	Members []string `json:"members"`
}

func (h *ResearchHandler) Signals(c echo.Context) error {
	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	start, _ := time.Parse(util.DateLayout, req.Start)
	end, _ := time.Parse(util.DateLayout, req.End)
	if end.Before(start) {
		return xhttp.BadRequestResponse(c, xhttp.BadRequestError("end precedes start"))
	}

	cacheKey := fmt.Sprintf("signals:%s:%s:%d", req.Start, req.End, req.TopN)
	if h.cache != nil {
		var cached signalsResponse
		if err := h.cache.Get(c.Request().Context(), cacheKey, &cached); err == nil {
			return xhttp.SuccessResponse(c, cached)
		}
	}

	ctx := c.Request().Context()
	frame, err := h.builder.Build(ctx, start, end)
	if err != nil {
		h.logger.Error("signals dataset error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if err := h.signals.TrainModel(ctx, frame); err != nil {
		h.logger.Error("signals train error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	long, short, err := h.signals.BuildSignalsFromFeatures(ctx, frame, req.TopN)
	if err != nil {
		h.logger.Error("signals build error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if err := h.signals.Publish(ctx, long, short); err != nil {
		// Publication is a side channel; the API response still carries the books.
		h.logger.Warn("signals publish failed", xlogger.Error(err))
	}

	resp := signalsResponse{TopN: req.TopN}
	for i, d := range long.Dates {
		ds := d.Format(util.DateLayout)
		resp.Dates = append(resp.Dates, ds)
		resp.Long = append(resp.Long, signalsBook{Date: ds, Members: rowMembers(long, i)})
		resp.Short = append(resp.Short, signalsBook{Date: ds, Members: rowMembers(short, i)})
	}
	if h.cache != nil {
		if err := h.cache.Set(ctx, cacheKey, resp, h.cacheTTL); err != nil {
			h.logger.Warn("signals cache set failed", xlogger.Error(err))
		}
	}
	return xhttp.SuccessResponse(c, resp)
}

func rowMembers(m *models.SignalMatrix, row int) []string {
	out := make([]string, 0, 8)
	for j, on := range m.Cells[row] {
		if on {
			out = append(out, m.Currencies[j])
		}
	}
	return out
}
