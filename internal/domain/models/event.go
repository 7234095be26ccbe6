package models

import (
	"encoding/json"
	"math"
	"time"
)

// RawEvent is one news-event observation from a daily archive feed.
// It exists only while a single day is being aggregated and is never persisted.
type RawEvent struct {
	EventID     int64
	EventDate   time.Time // calendar date the event occurred
	Country     string    // ISO3 actor country code
	IsRoot      bool
	NumMentions int
	AvgTone     float64
}

// DailyAggregate is one (date, currency) row of aggregated sentiment.
// ToneDispersion is NaN when fewer than two events contributed.
type DailyAggregate struct {
	Date           time.Time `json:"date"`
	Currency       string    `json:"currency"`
	AvgTone        float64   `json:"avg_tone"`
	ToneDispersion float64   `json:"tone_dispersion"`
	EventCount     int       `json:"event_count"`
}

// HasDispersion reports whether the dispersion field carries a value.
func (a DailyAggregate) HasDispersion() bool {
	return !math.IsNaN(a.ToneDispersion)
}

type dailyAggregateJSON struct {
	Date           time.Time `json:"date"`
	Currency       string    `json:"currency"`
	AvgTone        float64   `json:"avg_tone"`
	ToneDispersion *float64  `json:"tone_dispersion"`
	EventCount     int       `json:"event_count"`
}

// MarshalJSON encodes an undefined dispersion as null; NaN is not
// representable in JSON.
func (a DailyAggregate) MarshalJSON() ([]byte, error) {
	out := dailyAggregateJSON{
		Date:       a.Date,
		Currency:   a.Currency,
		AvgTone:    a.AvgTone,
		EventCount: a.EventCount,
	}
	if a.HasDispersion() {
		d := a.ToneDispersion
		out.ToneDispersion = &d
	}
	return json.Marshal(out)
}

func (a *DailyAggregate) UnmarshalJSON(b []byte) error {
	var in dailyAggregateJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	a.Date = in.Date
	a.Currency = in.Currency
	a.AvgTone = in.AvgTone
	a.EventCount = in.EventCount
	if in.ToneDispersion != nil {
		a.ToneDispersion = *in.ToneDispersion
	} else {
		a.ToneDispersion = math.NaN()
	}
	return nil
}

// DayOutcome classifies why a day produced the rows it did.
type DayOutcome string

const (
	DayOK             DayOutcome = "ok"
	DayCached         DayOutcome = "cached"
	DayEmpty          DayOutcome = "empty"
	DayNotFound       DayOutcome = "not_found"
	DaySchemaMismatch DayOutcome = "schema_mismatch"
	DayFetchError     DayOutcome = "fetch_error"
)

// DayReport records the fail-soft outcome of aggregating one day.
// Per-day failures are absorbed into an empty result; the report keeps the
// error kind observable instead of discarding it.
type DayReport struct {
	Date    time.Time  `json:"date"`
	Outcome DayOutcome `json:"outcome"`
	Rows    int        `json:"rows"`
	Err     error      `json:"-"`
}
