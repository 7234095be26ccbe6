package models

// Requests for the research HTTP endpoints. Defined in domain for consistency and reuse.

type AggregatesRequest struct {
	Date string `query:"date" json:"date" validate:"required,datetime=2006-01-02"`
}

type DatasetBuildRequest struct {
	Start string `query:"start" json:"start" validate:"required,datetime=2006-01-02"`
	End   string `query:"end" json:"end" validate:"required,datetime=2006-01-02"`
}

type SignalsRequest struct {
	Start string `query:"start" json:"start" validate:"required,datetime=2006-01-02"`
	End   string `query:"end" json:"end" validate:"required,datetime=2006-01-02"`
	TopN  int    `query:"top_n" json:"top_n" default:"5" validate:"gte=1,lte=20"`
}
