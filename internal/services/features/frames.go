package features

import (
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"ToneFX/internal/domain/models"
)

// ErrNoFeatureColumns indicates the frame carries no sentiment feature
// columns at all. This is a caller-configuration error and the one failure
// of the reshaping layer that propagates instead of degrading.
var ErrNoFeatureColumns = errors.New("features: no avg_tone_ columns in frame")

// FeatureOrder is the fixed model input order.
var FeatureOrder = [3]string{"avg_tone", "event_count", "tone_dispersion"}

// ForwardFill replaces each NaN cell with the last seen value in its column.
func ForwardFill(f *models.Frame) {
	for j := range f.Columns {
		last := math.NaN()
		for i := range f.Dates {
			if math.IsNaN(f.Data[i][j]) {
				f.Data[i][j] = last
			} else {
				last = f.Data[i][j]
			}
		}
	}
}

// BackFill replaces each leading NaN cell with the next seen value.
func BackFill(f *models.Frame) {
	for j := range f.Columns {
		next := math.NaN()
		for i := len(f.Dates) - 1; i >= 0; i-- {
			if math.IsNaN(f.Data[i][j]) {
				f.Data[i][j] = next
			} else {
				next = f.Data[i][j]
			}
		}
	}
}

// MissingFraction returns the NaN share of one column.
func MissingFraction(f *models.Frame, col string) float64 {
	j := f.ColIdx(col)
	if j < 0 || len(f.Dates) == 0 {
		return 1
	}
	n := 0
	for i := range f.Dates {
		if math.IsNaN(f.Data[i][j]) {
			n++
		}
	}
	return float64(n) / float64(len(f.Dates))
}

// SimpleReturns computes r_t = p_t/p_{t-1} - 1 per column, suffixing column
// names with _ret. The first row has no prior price and stays NaN.
func SimpleReturns(prices *models.Frame) *models.Frame {
	cols := make([]string, len(prices.Columns))
	for j, c := range prices.Columns {
		cols[j] = c + "_ret"
	}
	out := models.NewFrame(append([]time.Time(nil), prices.Dates...), cols)
	for j := range prices.Columns {
		for i := 1; i < len(prices.Dates); i++ {
			prev := prices.Data[i-1][j]
			cur := prices.Data[i][j]
			if math.IsNaN(prev) || math.IsNaN(cur) || prev == 0 {
				continue
			}
			out.Data[i][j] = cur/prev - 1
		}
	}
	return out
}

// ForwardReturns computes the next-day return p_{t+1}/p_t - 1 and assigns it
// to date t. The last row has no subsequent price and stays NaN, so it drops
// out of the merged dataset instead of leaking a partial cross-section.
// Column names are kept as the instrument tickers.
func ForwardReturns(prices *models.Frame) *models.Frame {
	out := models.NewFrame(append([]time.Time(nil), prices.Dates...), append([]string(nil), prices.Columns...))
	for j := range prices.Columns {
		for i := 0; i+1 < len(prices.Dates); i++ {
			cur := prices.Data[i][j]
			next := prices.Data[i+1][j]
			if math.IsNaN(cur) || math.IsNaN(next) || cur == 0 {
				continue
			}
			out.Data[i][j] = next/cur - 1
		}
	}
	return out
}

// PivotAggregates reshapes long-format daily aggregates into a wide frame
// with one lowercase <metric>_<ccy> column per (metric, currency) pair.
func PivotAggregates(rows []models.DailyAggregate) *models.Frame {
	dateSet := make(map[time.Time]bool)
	ccySet := make(map[string]bool)
	for _, r := range rows {
		dateSet[r.Date] = true
		ccySet[r.Currency] = true
	}
	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	ccys := make([]string, 0, len(ccySet))
	for c := range ccySet {
		ccys = append(ccys, c)
	}
	sort.Strings(ccys)

	cols := make([]string, 0, 3*len(ccys))
	for _, m := range FeatureOrder {
		for _, c := range ccys {
			cols = append(cols, m+"_"+strings.ToLower(c))
		}
	}
	f := models.NewFrame(dates, cols)
	for _, r := range rows {
		i := f.DateIdx(r.Date)
		lc := strings.ToLower(r.Currency)
		f.Set(i, f.ColIdx("avg_tone_"+lc), r.AvgTone)
		f.Set(i, f.ColIdx("event_count_"+lc), float64(r.EventCount))
		f.Set(i, f.ColIdx("tone_dispersion_"+lc), r.ToneDispersion)
	}
	return f
}

// InnerJoin merges two frames on date, keeping only dates present in both.
func InnerJoin(a, b *models.Frame) *models.Frame {
	cols := append(append([]string(nil), a.Columns...), b.Columns...)
	dates := make([]time.Time, 0, len(a.Dates))
	for _, d := range a.Dates {
		if b.DateIdx(d) >= 0 {
			dates = append(dates, d)
		}
	}
	out := models.NewFrame(dates, cols)
	for i, d := range dates {
		ai := a.DateIdx(d)
		bi := b.DateIdx(d)
		copy(out.Data[i][:len(a.Columns)], a.Data[ai])
		copy(out.Data[i][len(a.Columns):], b.Data[bi])
	}
	return out
}

// LongRow is one (date, currency) observation reshaped for the model:
// features in FeatureOrder plus the realized next-day return when known.
type LongRow struct {
	Date          time.Time
	Currency      string
	Features      [3]float64
	NextDayReturn float64 // NaN when no return column matched
}

// WideToLong reshapes a wide feature frame into per-currency rows. The
// currency list is derived from the avg_tone_ columns. Missing feature cells
// are zero-filled; the return column is matched by, in order, the uppercase
// ticker, the lowercase ticker, and <ccy>_ret.
func WideToLong(f *models.Frame) ([]LongRow, error) {
	ccys := make([]string, 0)
	for _, c := range f.Columns {
		if strings.HasPrefix(c, "avg_tone_") {
			ccys = append(ccys, strings.TrimPrefix(c, "avg_tone_"))
		}
	}
	if len(ccys) == 0 {
		return nil, ErrNoFeatureColumns
	}
	sort.Strings(ccys)

	out := make([]LongRow, 0, len(ccys)*len(f.Dates))
	for _, ccy := range ccys {
		featIdx := [3]int{
			f.ColIdx("avg_tone_" + ccy),
			f.ColIdx("event_count_" + ccy),
			f.ColIdx("tone_dispersion_" + ccy),
		}
		retIdx := -1
		for _, cand := range []string{strings.ToUpper(ccy), ccy, ccy + "_ret"} {
			if j := f.ColIdx(cand); j >= 0 {
				retIdx = j
				break
			}
		}
		for i, d := range f.Dates {
			row := LongRow{Date: d, Currency: ccy, NextDayReturn: math.NaN()}
			for k, j := range featIdx {
				if j >= 0 && !math.IsNaN(f.Data[i][j]) {
					row.Features[k] = f.Data[i][j]
				}
			}
			if retIdx >= 0 {
				row.NextDayReturn = f.Data[i][retIdx]
			}
			out = append(out, row)
		}
	}
	return out, nil
}
